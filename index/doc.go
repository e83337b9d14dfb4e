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

// Package index embeds retrieval documents and writes them to the vector
// collection.
//
// Vectors are normalized to unit length before they are stored, so cosine
// distance reduces to 1 - dot(a, b). A document whose text is unchanged since
// it was last indexed keeps its stored vector; only its text and metadata are
// rewritten. Embedding calls are retried with exponential backoff.
package index
