package badger

import (
	"encoding/binary"

	"github.com/poiesic/lattice/core"
)

// Key prefixes for different data types
const (
	contentPrefix = "cont"
	vectorPrefix  = "vec"
	graphPrefix   = "gra"
	notePrefix    = "note"
)

// makeContentKey generates a key for raw content by path.
func makeContentKey(path string) []byte {
	return []byte(contentPrefix + ":" + path)
}

// makeVectorKey generates a composite key for an item's vector.
// Format: prefix:collectionID:itemID
func makeVectorKey(collectionID, itemID core.ID) []byte {
	prefix := vectorPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(collectionID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(itemID))
	return buf
}

// makePartialVectorKey generates a partial key for per-collection scans.
func makePartialVectorKey(collectionID core.ID) []byte {
	prefix := vectorPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(collectionID))
	return buf
}

// makeGraphKey generates a key for an item's graph node.
func makeGraphKey(itemID core.ID) []byte {
	prefix := graphPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(itemID))
	return buf
}

// makeNoteKey generates a key for a registered note.
func makeNoteKey(noteID core.ID) []byte {
	prefix := notePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(noteID))
	return buf
}
