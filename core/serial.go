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
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for every stored record type. Hand-maintained; the record
// set is small and changes rarely. Timestamps are encoded as Unix
// microseconds.
var (
	IDMUS              = idMUS{}
	DocumentMUS        = documentMUS{}
	StageTaskMUS       = stageTaskMUS{}
	ChunkMUS           = chunkMUS{}
	EntityMUS          = entityMUS{}
	RelationMUS        = relationMUS{}
	SectionMUS         = sectionMUS{}
	SectionDocumentMUS = sectionDocumentMUS{}
)

var (
	float32SliceMUS = ord.NewSliceSer[float32](raw.Float32)
	idSliceMUS      = ord.NewSliceSer[ID](IDMUS)
	timeMUS         = timeMicroMUS{}
)

var (
	_ mus.Serializer[ID]              = IDMUS
	_ mus.Serializer[Document]        = DocumentMUS
	_ mus.Serializer[StageTask]       = StageTaskMUS
	_ mus.Serializer[Chunk]           = ChunkMUS
	_ mus.Serializer[Entity]          = EntityMUS
	_ mus.Serializer[Relation]        = RelationMUS
	_ mus.Serializer[Section]         = SectionMUS
	_ mus.Serializer[SectionDocument] = SectionDocumentMUS
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

type timeMicroMUS struct{}

func (timeMicroMUS) Marshal(v time.Time, bs []byte) int {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func (timeMicroMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	micro, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micro).UTC(), n, nil
}

func (timeMicroMUS) Size(v time.Time) int {
	return varint.Int64.Size(v.UnixMicro())
}

func (timeMicroMUS) Skip(bs []byte) (int, error) {
	return varint.Int64.Skip(bs)
}

type documentMUS struct{}

func (documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.Creator, bs[n:])
	n += varint.Int.Marshal(int(v.Category), bs[n:])
	n += ord.String.Marshal(v.Locator, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += ord.String.Marshal(v.Cover, bs[n:])
	n += timeMUS.Marshal(v.InsertedAt, bs[n:])
	n += timeMUS.Marshal(v.UpdatedAt, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	var c int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.Creator, c, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	var cat int
	if cat, c, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	v.Category = DocumentCategory(cat)
	if v.Locator, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Content, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Title, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Description, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Cover, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.InsertedAt, c, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	v.UpdatedAt, c, err = timeMUS.Unmarshal(bs[n:])
	return v, n + c, err
}

func (documentMUS) Size(v Document) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.Creator)
	size += varint.Int.Size(int(v.Category))
	size += ord.String.Size(v.Locator)
	size += ord.String.Size(v.Content)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Description)
	size += ord.String.Size(v.Cover)
	size += timeMUS.Size(v.InsertedAt)
	size += timeMUS.Size(v.UpdatedAt)
	return size
}

func (s documentMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type stageTaskMUS struct{}

func (stageTaskMUS) Marshal(v StageTask, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.DocumentId, bs[n:])
	n += IDMUS.Marshal(v.UserId, bs[n:])
	n += varint.Int.Marshal(int(v.Stage), bs[n:])
	n += varint.Int.Marshal(int(v.Status), bs[n:])
	n += ord.String.Marshal(v.Output, bs[n:])
	n += ord.String.Marshal(v.ErrorContext, bs[n:])
	n += timeMUS.Marshal(v.InsertedAt, bs[n:])
	n += timeMUS.Marshal(v.UpdatedAt, bs[n:])
	return n
}

func (stageTaskMUS) Unmarshal(bs []byte) (v StageTask, n int, err error) {
	var c int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.DocumentId, c, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.UserId, c, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	var stage, status int
	if stage, c, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	v.Stage = TaskStage(stage)
	if status, c, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	v.Status = TaskStatus(status)
	if v.Output, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.ErrorContext, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.InsertedAt, c, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	v.UpdatedAt, c, err = timeMUS.Unmarshal(bs[n:])
	return v, n + c, err
}

func (stageTaskMUS) Size(v StageTask) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.DocumentId)
	size += IDMUS.Size(v.UserId)
	size += varint.Int.Size(int(v.Stage))
	size += varint.Int.Size(int(v.Status))
	size += ord.String.Size(v.Output)
	size += ord.String.Size(v.ErrorContext)
	size += timeMUS.Size(v.InsertedAt)
	size += timeMUS.Size(v.UpdatedAt)
	return size
}

func (s stageTaskMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type chunkMUS struct{}

func (chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.DocumentId, bs[n:])
	n += varint.Int.Marshal(v.Index, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += float32SliceMUS.Marshal(v.Vector, bs[n:])
	n += ord.String.Marshal(v.Summary, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	var c int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.DocumentId, c, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Index, c, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Text, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Vector, c, err = float32SliceMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	v.Summary, c, err = ord.String.Unmarshal(bs[n:])
	return v, n + c, err
}

func (chunkMUS) Size(v Chunk) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.DocumentId)
	size += varint.Int.Size(v.Index)
	size += ord.String.Size(v.Text)
	size += float32SliceMUS.Size(v.Vector)
	size += ord.String.Size(v.Summary)
	return size
}

func (s chunkMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type entityMUS struct{}

func (entityMUS) Marshal(v Entity, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Type, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += IDMUS.Marshal(v.Creator, bs[n:])
	n += idSliceMUS.Marshal(v.ChunkIds, bs[n:])
	n += ord.String.Marshal(v.ContextSample, bs[n:])
	n += float32SliceMUS.Marshal(v.ContextVector, bs[n:])
	n += IDMUS.Marshal(v.ContextHash, bs[n:])
	n += varint.Int.Marshal(v.Degree, bs[n:])
	return n
}

func (entityMUS) Unmarshal(bs []byte) (v Entity, n int, err error) {
	var c int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.Type, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Text, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Creator, c, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.ChunkIds, c, err = idSliceMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.ContextSample, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.ContextVector, c, err = float32SliceMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.ContextHash, c, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	v.Degree, c, err = varint.Int.Unmarshal(bs[n:])
	return v, n + c, err
}

func (entityMUS) Size(v Entity) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Type)
	size += ord.String.Size(v.Text)
	size += IDMUS.Size(v.Creator)
	size += idSliceMUS.Size(v.ChunkIds)
	size += ord.String.Size(v.ContextSample)
	size += float32SliceMUS.Size(v.ContextVector)
	size += IDMUS.Size(v.ContextHash)
	size += varint.Int.Size(v.Degree)
	return size
}

func (s entityMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type relationMUS struct{}

func (relationMUS) Marshal(v Relation, bs []byte) (n int) {
	n = IDMUS.Marshal(v.SourceId, bs)
	n += ord.String.Marshal(v.Type, bs[n:])
	n += IDMUS.Marshal(v.TargetId, bs[n:])
	return n
}

func (relationMUS) Unmarshal(bs []byte) (v Relation, n int, err error) {
	var c int
	if v.SourceId, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.Type, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	v.TargetId, c, err = IDMUS.Unmarshal(bs[n:])
	return v, n + c, err
}

func (relationMUS) Size(v Relation) (size int) {
	size = IDMUS.Size(v.SourceId)
	size += ord.String.Size(v.Type)
	size += IDMUS.Size(v.TargetId)
	return size
}

func (s relationMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type sectionMUS struct{}

func (sectionMUS) Marshal(v Section, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.Creator, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Markdown, bs[n:])
	n += timeMUS.Marshal(v.InsertedAt, bs[n:])
	n += timeMUS.Marshal(v.UpdatedAt, bs[n:])
	return n
}

func (sectionMUS) Unmarshal(bs []byte) (v Section, n int, err error) {
	var c int
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.Creator, c, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Title, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.Markdown, c, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	if v.InsertedAt, c, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	v.UpdatedAt, c, err = timeMUS.Unmarshal(bs[n:])
	return v, n + c, err
}

func (sectionMUS) Size(v Section) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.Creator)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Markdown)
	size += timeMUS.Size(v.InsertedAt)
	size += timeMUS.Size(v.UpdatedAt)
	return size
}

func (s sectionMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type sectionDocumentMUS struct{}

func (sectionDocumentMUS) Marshal(v SectionDocument, bs []byte) (n int) {
	n = IDMUS.Marshal(v.SectionId, bs)
	n += IDMUS.Marshal(v.DocumentId, bs[n:])
	n += varint.Int.Marshal(int(v.Status), bs[n:])
	n += timeMUS.Marshal(v.UpdatedAt, bs[n:])
	return n
}

func (sectionDocumentMUS) Unmarshal(bs []byte) (v SectionDocument, n int, err error) {
	var c int
	if v.SectionId, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if v.DocumentId, c, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	var status int
	if status, c, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + c, err
	}
	n += c
	v.Status = IntegrationStatus(status)
	v.UpdatedAt, c, err = timeMUS.Unmarshal(bs[n:])
	return v, n + c, err
}

func (sectionDocumentMUS) Size(v SectionDocument) (size int) {
	size = IDMUS.Size(v.SectionId)
	size += IDMUS.Size(v.DocumentId)
	size += varint.Int.Size(int(v.Status))
	size += timeMUS.Size(v.UpdatedAt)
	return size
}

func (s sectionDocumentMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}
