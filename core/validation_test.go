package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFile(t *testing.T) {
	valid := &File{Id: 1, Name: "readme.md", Path: "docs/readme.md"}
	require.NoError(t, ValidateFile(valid))

	assert.ErrorIs(t, ValidateFile(nil), ErrInvalidFile)
	assert.ErrorIs(t, ValidateFile(&File{Path: "docs/readme.md"}), ErrEmptyName)
	assert.ErrorIs(t, ValidateFile(&File{Name: "readme.md"}), ErrEmptyPath)
}

func TestValidateNote(t *testing.T) {
	require.NoError(t, ValidateNote(&Note{Id: 1, Contents: "remember this"}))

	assert.ErrorIs(t, ValidateNote(nil), ErrInvalidNote)
	assert.ErrorIs(t, ValidateNote(&Note{Title: "empty"}), ErrEmptyContent)
}

func TestValidateNoteTitleOptional(t *testing.T) {
	assert.NoError(t, ValidateNote(&Note{Contents: "untitled but valid"}))
}

func TestValidateCollection(t *testing.T) {
	valid := &Collection{
		Id:   1,
		Name: "research",
		Entries: []Entry{
			{Kind: EntryFile, Id: 10},
			{Kind: EntryFolder, Id: 11},
		},
	}
	require.NoError(t, ValidateCollection(valid))

	assert.ErrorIs(t, ValidateCollection(nil), ErrInvalidCollection)
	assert.ErrorIs(t, ValidateCollection(&Collection{}), ErrEmptyName)
}

func TestValidateCollectionDuplicateEntries(t *testing.T) {
	dup := &Collection{
		Id:   1,
		Name: "research",
		Entries: []Entry{
			{Kind: EntryFile, Id: 10},
			{Kind: EntryNote, Id: 10},
		},
	}
	err := ValidateCollection(dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCollection)
	assert.Contains(t, err.Error(), "duplicate entry id")
}
