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

// Package storage provides the storage abstraction layer for cruisekb.
//
// This package defines repository interfaces that decouple the pipeline from
// the storage implementation. The local cache keeps four logical tables:
//
//   - raw entities, as fetched from the catalog source
//   - transformed documents, ready for embedding
//   - the processed-id ledger used to resume transformation
//   - the date index mapping departure periods to entities
//
// A VectorIndex holds embedded documents in a named collection and supports
// filtered nearest neighbour search by cosine distance.
//
// # Usage
//
//	store, err := badger.Open("/path/to/cache")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// Use in tests with in-memory storage:
//
//	store, err := badger.OpenMemoryStore()
//
// # Errors
//
// Methods return explicit errors. Callers decide whether a failure is fatal;
// the ingestion stages log storage errors and continue with the next entity.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
