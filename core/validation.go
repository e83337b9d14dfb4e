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

import (
	"fmt"
	"strings"
)

// ValidateEntity validates an Entity according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Every fact must reference the entity's ID (or leave it empty)
//
// NOT validated (free-form, resolved downstream):
//   - Info tree shape
//   - Code (a missing code only yields empty booking links)
func ValidateEntity(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}

	if strings.TrimSpace(entity.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyID)
	}

	for _, fact := range entity.Facts {
		if fact.EntityID != "" && fact.EntityID != entity.ID {
			return fmt.Errorf("%w: %w: range %s", ErrInvalidEntity, ErrForeignFact, fact.RangeID)
		}
	}

	return nil
}

// ValidateDocument validates a Document before it is persisted or indexed.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyID)
	}

	if strings.TrimSpace(doc.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyText)
	}

	return nil
}
