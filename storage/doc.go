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


// Package storage provides the durable-store abstraction the indexing
// pipeline writes through.
//
// The pipeline treats the store as opaque: it fetches raw content, lists
// folder descendants, and upserts/deletes derived vectors and graph nodes.
// Failures always surface as explicit errors so caller status bookkeeping is
// never bypassed.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend subpackages return the storage.Store
// interface to enforce abstraction and keep backends swappable:
//
//	store, err := badger.NewStore(path, false)  // returns storage.Store
//
// # Thread Safety
//
// All Store implementations must be thread-safe and support concurrent
// access from multiple goroutines; the batch scheduler fans out item
// processing across a worker pool.
package storage
