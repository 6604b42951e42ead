package storage

import (
	"testing"

	"github.com/poiesic/lattice/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRecordRoundTrip(t *testing.T) {
	original := &VectorRecord{
		CollectionId: 7,
		ItemId:       42,
		Vector:       []float32{0.1, -0.5, 0.9},
		UpdatedAt:    1700000000000000,
	}

	decoded, err := UnmarshalVectorRecord(MarshalVectorRecord(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestVectorRecordEmptyVector(t *testing.T) {
	original := &VectorRecord{CollectionId: 1, ItemId: 2}

	decoded, err := UnmarshalVectorRecord(MarshalVectorRecord(original))
	require.NoError(t, err)
	assert.Equal(t, original.CollectionId, decoded.CollectionId)
	assert.Equal(t, original.ItemId, decoded.ItemId)
	assert.Empty(t, decoded.Vector)
}

func TestGraphRecordRoundTrip(t *testing.T) {
	original := &GraphRecord{
		ItemId:       42,
		CollectionId: 7,
		Path:         "docs/ada.md",
		Vector:       []float32{0.25, 0.75},
		Entities: []core.GraphEntity{
			{
				Id:          "e1",
				Name:        "Ada Lovelace",
				Type:        "person",
				Description: "mathematician",
				Snippets:    []string{"wrote the first program", "worked with Babbage"},
			},
			{
				Id:   "e2",
				Name: "Analytical Engine",
				Type: "artifact",
			},
		},
	}

	decoded, err := UnmarshalGraphRecord(MarshalGraphRecord(original))
	require.NoError(t, err)
	assert.Equal(t, original.ItemId, decoded.ItemId)
	assert.Equal(t, original.Path, decoded.Path)
	assert.Equal(t, original.Vector, decoded.Vector)
	require.Len(t, decoded.Entities, 2)
	assert.Equal(t, original.Entities[0], decoded.Entities[0])
	assert.Equal(t, "Analytical Engine", decoded.Entities[1].Name)
}

func TestNoteRecordRoundTrip(t *testing.T) {
	original := &NoteRecord{
		Id:     99,
		Path:   "notes/idea.md",
		Vector: []float32{0.5},
	}

	decoded, err := UnmarshalNoteRecord(MarshalNoteRecord(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
	assert.True(t, decoded.Indexed())
}

func TestNoteRecordIndexed(t *testing.T) {
	assert.False(t, (&NoteRecord{Id: 1, Path: "notes/a.md"}).Indexed())
	assert.True(t, (&NoteRecord{Id: 1, Path: "notes/a.md", Vector: []float32{0.1}}).Indexed())
}

func TestUnmarshalVectorRecordTruncated(t *testing.T) {
	full := MarshalVectorRecord(&VectorRecord{
		CollectionId: 7,
		ItemId:       42,
		Vector:       []float32{0.1, 0.2, 0.3},
		UpdatedAt:    123456,
	})

	_, err := UnmarshalVectorRecord(full[:3])
	assert.Error(t, err)
}
