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

// Package source reads catalog entities and their dated price facts from an
// upstream system.
//
// A Reader lists the candidate entity ids (enabled entities with at least one
// departure strictly after today) and then streams the entities in batches.
// Implementations live in sub-packages:
//
//   - source/sqlsource: the catalog's relational views over database/sql
//   - source/catalog: the catalog's HTTP API
//
// Connectivity errors end a batch sequence and are fatal for the run. A
// malformed record only skips that record and is counted in Batch.Skipped.
package source
