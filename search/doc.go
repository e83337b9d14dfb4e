// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package search answers natural-language catalog queries with an optional
// departure window.
//
// A query runs in stages:
//   - The date window is validated; an invalid or missing window falls back
//     to an unrestricted search.
//   - A valid window is resolved to candidate entity ids through the date
//     index. No candidates means no results.
//   - The query text is embedded and the vector collection is searched,
//     restricted to the candidates when there are any.
//   - Each hit is enriched with a booking link built from its first range id
//     and display code.
//
// A SearchMonitor can observe each stage.
package search
