package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/storage"
)

// Store implements storage.Store on top of BadgerDB.
type Store struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// NewStore opens a badger-backed store at the given path.
//
// Returns storage.Store interface to enforce abstraction.
func NewStore(path string, inMemory bool) (storage.Store, error) {
	return newStore(path, inMemory)
}

// NewMemoryStore opens an in-memory store, primarily for tests.
func NewMemoryStore() (storage.Store, error) {
	return newStore("", true)
}

func newStore(path string, inMemory bool) (*Store, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	return &Store{
		backend: backend,
		logger:  slog.Default().With("component", "badger-store"),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.backend.Close()
}

// PutContent stores raw text content at the given path.
// Not part of storage.Store; ingestion tooling uses the concrete type.
func (s *Store) PutContent(ctx context.Context, path, contents string) error {
	if path == "" {
		return core.ErrEmptyPath
	}
	return s.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(makeContentKey(path), []byte(contents))
	})
}

// GetContent retrieves the raw text stored at path.
func (s *Store) GetContent(ctx context.Context, path string) (string, error) {
	var contents string
	err := s.backend.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeContentKey(path))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: content at %q", storage.ErrNotFound, path)
			}
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		contents = string(value)
		return nil
	})
	if err != nil {
		return "", err
	}
	return contents, nil
}

// ListRecursive lists all transitive descendants of path.
// File entries come first in key order, followed by the distinct intermediate
// folders, sorted by path.
func (s *Store) ListRecursive(ctx context.Context, path string) ([]storage.Entry, error) {
	root := strings.TrimSuffix(path, "/")
	scanPrefix := contentPrefix + ":"
	if root != "" {
		scanPrefix += root + "/"
	}

	var entries []storage.Entry
	folders := make(map[string]struct{})

	err := s.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(scanPrefix)
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			fullPath := strings.TrimPrefix(key, contentPrefix+":")
			entries = append(entries, storage.Entry{
				Name: baseName(fullPath),
				Path: fullPath,
				Kind: storage.EntryFile,
			})

			// Collect intermediate directories between root and the file.
			rel := fullPath
			if root != "" {
				rel = strings.TrimPrefix(fullPath, root+"/")
			}
			parts := strings.Split(rel, "/")
			dir := root
			for _, part := range parts[:len(parts)-1] {
				if dir == "" {
					dir = part
				} else {
					dir = dir + "/" + part
				}
				folders[dir] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	folderPaths := make([]string, 0, len(folders))
	for dir := range folders {
		folderPaths = append(folderPaths, dir)
	}
	sort.Strings(folderPaths)
	for _, dir := range folderPaths {
		entries = append(entries, storage.Entry{
			Name: baseName(dir),
			Path: dir,
			Kind: storage.EntryFolder,
		})
	}

	return entries, nil
}

// UpsertVector writes the embedding vector for an item.
// When forceReindex is false and a vector already exists, the write is skipped.
func (s *Store) UpsertVector(ctx context.Context, collectionID, itemID core.ID, vector []float32, forceReindex bool) error {
	key := makeVectorKey(collectionID, itemID)
	return s.backend.Update(func(tx *badger.Txn) error {
		if !forceReindex {
			if _, err := tx.Get(key); err == nil {
				s.logger.Debug("vector exists, skipping upsert", "item", itemID)
				return nil
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		record := &storage.VectorRecord{
			CollectionId: collectionID,
			ItemId:       itemID,
			Vector:       vector,
			UpdatedAt:    time.Now().UTC().UnixMicro(),
		}
		return tx.Set(key, storage.MarshalVectorRecord(record))
	})
}

// GetVector retrieves the stored vector record for an item.
// Not part of storage.Store; tests and tooling use the concrete type.
func (s *Store) GetVector(ctx context.Context, collectionID, itemID core.ID) (*storage.VectorRecord, error) {
	var record *storage.VectorRecord
	err := s.backend.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorKey(collectionID, itemID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: vector for item %d", storage.ErrNotFound, itemID)
			}
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		record, err = storage.UnmarshalVectorRecord(value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// UpsertGraph writes the knowledge-graph node derived from an item.
func (s *Store) UpsertGraph(ctx context.Context, ext *core.GraphExtraction, itemID core.ID, vector []float32, collectionID core.ID, path string) error {
	record := &storage.GraphRecord{
		ItemId:       itemID,
		CollectionId: collectionID,
		Path:         path,
		Vector:       vector,
		Entities:     ext.Entities,
	}
	return s.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(makeGraphKey(itemID), storage.MarshalGraphRecord(record))
	})
}

// GetGraph retrieves the stored graph node for an item.
// Not part of storage.Store; tests and tooling use the concrete type.
func (s *Store) GetGraph(ctx context.Context, itemID core.ID) (*storage.GraphRecord, error) {
	var record *storage.GraphRecord
	err := s.backend.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeGraphKey(itemID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: graph node for item %d", storage.ErrNotFound, itemID)
			}
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		record, err = storage.UnmarshalGraphRecord(value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteVectors removes the stored vector for an item. Missing vectors are
// not an error.
func (s *Store) DeleteVectors(ctx context.Context, collectionID, itemID core.ID) error {
	return s.backend.Update(func(tx *badger.Txn) error {
		return tx.Delete(makeVectorKey(collectionID, itemID))
	})
}

// DeleteCollectionVectors removes every stored vector under a collection in
// one prefix scan. Not part of storage.Store; collection teardown tooling
// uses the concrete type.
func (s *Store) DeleteCollectionVectors(ctx context.Context, collectionID core.ID) error {
	prefix := makePartialVectorKey(collectionID)
	return s.backend.Update(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := tx.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := tx.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteGraphNode removes the stored graph node for an item. Missing nodes
// are not an error.
func (s *Store) DeleteGraphNode(ctx context.Context, itemID core.ID) error {
	return s.backend.Update(func(tx *badger.Txn) error {
		return tx.Delete(makeGraphKey(itemID))
	})
}

// RegisterNote adds a note to the corpus-wide indexing partition, without an
// embedding. Not part of storage.Store; ingestion tooling uses the concrete
// type. Re-registering an already-indexed note keeps its vector.
func (s *Store) RegisterNote(ctx context.Context, noteID core.ID, path string) error {
	key := makeNoteKey(noteID)
	return s.backend.Update(func(tx *badger.Txn) error {
		if _, err := tx.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		record := &storage.NoteRecord{Id: noteID, Path: path}
		return tx.Set(key, storage.MarshalNoteRecord(record))
	})
}

// NotesNeedingIndexing partitions registered notes by embedding presence.
// The check reads stored records only; no embeddings are generated.
func (s *Store) NotesNeedingIndexing(ctx context.Context) (*core.NoteIndexStatus, error) {
	status := &core.NoteIndexStatus{}
	err := s.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(notePrefix + ":")
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			record, err := storage.UnmarshalNoteRecord(value)
			if err != nil {
				return err
			}
			status.Total++
			if record.Indexed() {
				status.AlreadyIndexed++
			} else {
				status.NeedsIndexing = append(status.NeedsIndexing, core.NoteRef{
					Id:   record.Id,
					Path: record.Path,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// MarkIndexed records the embedding for a note.
func (s *Store) MarkIndexed(ctx context.Context, noteID core.ID, vector []float32) error {
	key := makeNoteKey(noteID)
	return s.backend.Update(func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: note %d", storage.ErrNotFound, noteID)
			}
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		record, err := storage.UnmarshalNoteRecord(value)
		if err != nil {
			return err
		}
		record.Vector = vector
		return tx.Set(key, storage.MarshalNoteRecord(record))
	})
}

func baseName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
