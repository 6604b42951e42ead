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

import "fmt"

// ValidateFile validates a File according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - Path must not be empty
//
// NOT validated (populated during a run):
//   - Status (zero until the item is seeded into a run)
//   - ErrMsg
func ValidateFile(file *File) error {
	if file == nil {
		return fmt.Errorf("%w: file is nil", ErrInvalidFile)
	}
	if file.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFile, ErrEmptyName)
	}
	if file.Path == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFile, ErrEmptyPath)
	}
	return nil
}

// ValidateNote validates a Note according to domain rules.
//
// Validation rules:
//   - Contents must not be empty (a note with no text cannot be embedded)
//
// Title is optional.
func ValidateNote(note *Note) error {
	if note == nil {
		return fmt.Errorf("%w: note is nil", ErrInvalidNote)
	}
	if note.Contents == "" {
		return fmt.Errorf("%w: %w", ErrInvalidNote, ErrEmptyContent)
	}
	return nil
}

// ValidateCollection validates a Collection according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - Entry ids must be unique within the collection
func ValidateCollection(collection *Collection) error {
	if collection == nil {
		return fmt.Errorf("%w: collection is nil", ErrInvalidCollection)
	}
	if collection.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCollection, ErrEmptyName)
	}
	seen := make(map[ID]struct{}, len(collection.Entries))
	for _, entry := range collection.Entries {
		if _, ok := seen[entry.Id]; ok {
			return fmt.Errorf("%w: duplicate entry id %d", ErrInvalidCollection, entry.Id)
		}
		seen[entry.Id] = struct{}{}
	}
	return nil
}
