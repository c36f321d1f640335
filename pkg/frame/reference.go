// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package frame

import (
	"github.com/matrixorigin/frameflow/pkg/container/pointable"
)

// Reference is a cursor over one tuple. FieldData returns the backing
// array, FieldStart and FieldLength locate the field inside it.
type Reference interface {
	FieldCount() int
	FieldData(fIdx int) []byte
	FieldStart(fIdx int) int
	FieldLength(fIdx int) int
}

// Field returns field fIdx of ref as a slice of its backing array.
func Field(ref Reference, fIdx int) []byte {
	start := ref.FieldStart(fIdx)
	return ref.FieldData(fIdx)[start : start+ref.FieldLength(fIdx)]
}

// FrameTupleReference points at tuple tIdx of the frame bound to acc.
type FrameTupleReference struct {
	acc  *TupleAccessor
	tIdx int
}

func NewFrameTupleReference() *FrameTupleReference {
	return &FrameTupleReference{}
}

func (r *FrameTupleReference) Reset(acc *TupleAccessor, tIdx int) {
	r.acc, r.tIdx = acc, tIdx
}

func (r *FrameTupleReference) Accessor() *TupleAccessor { return r.acc }

func (r *FrameTupleReference) TupleIndex() int { return r.tIdx }

func (r *FrameTupleReference) FieldCount() int { return r.acc.FieldCount() }

func (r *FrameTupleReference) FieldData(int) []byte { return r.acc.Buffer() }

func (r *FrameTupleReference) FieldStart(fIdx int) int {
	return r.acc.AbsoluteFieldStartOffset(r.tIdx, fIdx)
}

func (r *FrameTupleReference) FieldLength(fIdx int) int {
	return r.acc.FieldLength(r.tIdx, fIdx)
}

// PointableTupleReference presents standalone pointables as a tuple.
type PointableTupleReference struct {
	fields []*pointable.Pointable
}

func NewPointableTupleReference(fields ...*pointable.Pointable) *PointableTupleReference {
	return &PointableTupleReference{fields: fields}
}

// NewPointableTupleReferenceOfSize allocates n empty pointables.
func NewPointableTupleReferenceOfSize(n int) *PointableTupleReference {
	fields := make([]*pointable.Pointable, n)
	for i := range fields {
		fields[i] = pointable.New()
	}
	return &PointableTupleReference{fields: fields}
}

func (r *PointableTupleReference) Reset(fields ...*pointable.Pointable) {
	r.fields = fields
}

func (r *PointableTupleReference) Field(fIdx int) *pointable.Pointable { return r.fields[fIdx] }

func (r *PointableTupleReference) FieldCount() int { return len(r.fields) }

func (r *PointableTupleReference) FieldData(fIdx int) []byte { return r.fields[fIdx].ByteArray() }

func (r *PointableTupleReference) FieldStart(fIdx int) int { return r.fields[fIdx].StartOffset() }

func (r *PointableTupleReference) FieldLength(fIdx int) int { return r.fields[fIdx].Length() }
