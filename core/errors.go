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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidEntity indicates an Entity failed validation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyID indicates an identifier is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEmptyText indicates a document has no text body.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrForeignFact indicates a fact belongs to a different entity.
	ErrForeignFact = errors.New("fact belongs to another entity")

	// ErrEmptyDate indicates a date string is empty.
	ErrEmptyDate = errors.New("date cannot be empty")
)
