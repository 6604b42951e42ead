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


package storage

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/lattice/core"
)

// Hand-written MUS serializers for the stored record shapes. The shapes are
// small and fixed, so there is no generator step; field order is the wire
// contract and must not change.

var (
	float32SliceSer = ord.NewSliceSer[float32](raw.Float32)
	stringSliceSer  = ord.NewSliceSer[string](ord.String)
	entitySer       = graphEntitySer{}
	entitySliceSer  = ord.NewSliceSer[core.GraphEntity](entitySer)
)

type graphEntitySer struct{}

func (graphEntitySer) Marshal(e core.GraphEntity, bs []byte) (n int) {
	n = ord.String.Marshal(e.Id, bs)
	n += ord.String.Marshal(e.Name, bs[n:])
	n += ord.String.Marshal(e.Type, bs[n:])
	n += ord.String.Marshal(e.Description, bs[n:])
	n += stringSliceSer.Marshal(e.Snippets, bs[n:])
	return
}

func (graphEntitySer) Unmarshal(bs []byte) (e core.GraphEntity, n int, err error) {
	var n1 int
	if e.Id, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if e.Name, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if e.Type, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if e.Description, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if e.Snippets, n1, err = stringSliceSer.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	return
}

func (graphEntitySer) Size(e core.GraphEntity) (size int) {
	size = ord.String.Size(e.Id)
	size += ord.String.Size(e.Name)
	size += ord.String.Size(e.Type)
	size += ord.String.Size(e.Description)
	size += stringSliceSer.Size(e.Snippets)
	return
}

func (s graphEntitySer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// MarshalVectorRecord serializes a VectorRecord to bytes.
func MarshalVectorRecord(r *VectorRecord) []byte {
	size := varint.Uint64.Size(uint64(r.CollectionId)) +
		varint.Uint64.Size(uint64(r.ItemId)) +
		float32SliceSer.Size(r.Vector) +
		varint.Int64.Size(r.UpdatedAt)
	bs := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(r.CollectionId), bs)
	n += varint.Uint64.Marshal(uint64(r.ItemId), bs[n:])
	n += float32SliceSer.Marshal(r.Vector, bs[n:])
	varint.Int64.Marshal(r.UpdatedAt, bs[n:])
	return bs
}

// UnmarshalVectorRecord deserializes a VectorRecord from bytes.
func UnmarshalVectorRecord(bs []byte) (*VectorRecord, error) {
	var (
		r     VectorRecord
		n, n1 int
		err   error
		v     uint64
	)
	if v, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return nil, err
	}
	r.CollectionId = core.ID(v)
	if v, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return nil, err
	}
	r.ItemId = core.ID(v)
	n += n1
	if r.Vector, n1, err = float32SliceSer.Unmarshal(bs[n:]); err != nil {
		return nil, err
	}
	n += n1
	if r.UpdatedAt, _, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return nil, err
	}
	return &r, nil
}

// MarshalGraphRecord serializes a GraphRecord to bytes.
func MarshalGraphRecord(r *GraphRecord) []byte {
	size := varint.Uint64.Size(uint64(r.ItemId)) +
		varint.Uint64.Size(uint64(r.CollectionId)) +
		ord.String.Size(r.Path) +
		float32SliceSer.Size(r.Vector) +
		entitySliceSer.Size(r.Entities)
	bs := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(r.ItemId), bs)
	n += varint.Uint64.Marshal(uint64(r.CollectionId), bs[n:])
	n += ord.String.Marshal(r.Path, bs[n:])
	n += float32SliceSer.Marshal(r.Vector, bs[n:])
	entitySliceSer.Marshal(r.Entities, bs[n:])
	return bs
}

// UnmarshalGraphRecord deserializes a GraphRecord from bytes.
func UnmarshalGraphRecord(bs []byte) (*GraphRecord, error) {
	var (
		r     GraphRecord
		n, n1 int
		err   error
		v     uint64
	)
	if v, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return nil, err
	}
	r.ItemId = core.ID(v)
	if v, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return nil, err
	}
	r.CollectionId = core.ID(v)
	n += n1
	if r.Path, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, err
	}
	n += n1
	if r.Vector, n1, err = float32SliceSer.Unmarshal(bs[n:]); err != nil {
		return nil, err
	}
	n += n1
	if r.Entities, _, err = entitySliceSer.Unmarshal(bs[n:]); err != nil {
		return nil, err
	}
	return &r, nil
}

// MarshalNoteRecord serializes a NoteRecord to bytes.
func MarshalNoteRecord(r *NoteRecord) []byte {
	size := varint.Uint64.Size(uint64(r.Id)) +
		ord.String.Size(r.Path) +
		float32SliceSer.Size(r.Vector)
	bs := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(r.Id), bs)
	n += ord.String.Marshal(r.Path, bs[n:])
	float32SliceSer.Marshal(r.Vector, bs[n:])
	return bs
}

// UnmarshalNoteRecord deserializes a NoteRecord from bytes.
func UnmarshalNoteRecord(bs []byte) (*NoteRecord, error) {
	var (
		r     NoteRecord
		n, n1 int
		err   error
		v     uint64
	)
	if v, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return nil, err
	}
	r.Id = core.ID(v)
	if r.Path, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, err
	}
	n += n1
	if r.Vector, _, err = float32SliceSer.Unmarshal(bs[n:]); err != nil {
		return nil, err
	}
	return &r, nil
}
