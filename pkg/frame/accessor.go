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
	"github.com/matrixorigin/frameflow/pkg/container/types"
)

// TupleAccessor gives O(1) access to the tuples and fields of a frame
// buffer. It does not copy; Reset rebinds it to another buffer.
type TupleAccessor struct {
	rd  *types.RecordDescriptor
	buf []byte
}

func NewTupleAccessor(rd *types.RecordDescriptor) *TupleAccessor {
	return &TupleAccessor{rd: rd}
}

func (a *TupleAccessor) Reset(buf []byte) {
	a.buf = buf
}

func (a *TupleAccessor) Buffer() []byte { return a.buf }

func (a *TupleAccessor) RecordDescriptor() *types.RecordDescriptor { return a.rd }

func (a *TupleAccessor) FieldCount() int { return a.rd.FieldCount() }

func (a *TupleAccessor) FieldSlotsLength() int {
	return a.rd.FieldCount() * FieldSlotSize
}

func (a *TupleAccessor) TupleCount() int {
	if len(a.buf) == 0 {
		return 0
	}
	return GetTupleCount(a.buf)
}

func (a *TupleAccessor) TupleStartOffset(tIdx int) int {
	if tIdx == 0 {
		return HeaderSize
	}
	return a.TupleEndOffset(tIdx - 1)
}

func (a *TupleAccessor) TupleEndOffset(tIdx int) int {
	return getInt(a.buf, slotOffset(len(a.buf), tIdx))
}

func (a *TupleAccessor) TupleLength(tIdx int) int {
	return a.TupleEndOffset(tIdx) - a.TupleStartOffset(tIdx)
}

// FieldStartOffset is relative to the first field byte of the tuple.
func (a *TupleAccessor) FieldStartOffset(tIdx, fIdx int) int {
	if fIdx == 0 {
		return 0
	}
	return getInt(a.buf, a.TupleStartOffset(tIdx)+(fIdx-1)*FieldSlotSize)
}

func (a *TupleAccessor) FieldEndOffset(tIdx, fIdx int) int {
	return getInt(a.buf, a.TupleStartOffset(tIdx)+fIdx*FieldSlotSize)
}

func (a *TupleAccessor) FieldLength(tIdx, fIdx int) int {
	return a.FieldEndOffset(tIdx, fIdx) - a.FieldStartOffset(tIdx, fIdx)
}

// AbsoluteFieldStartOffset is the offset of the field in the frame buffer.
func (a *TupleAccessor) AbsoluteFieldStartOffset(tIdx, fIdx int) int {
	return a.TupleStartOffset(tIdx) + a.FieldSlotsLength() + a.FieldStartOffset(tIdx, fIdx)
}

// Field returns the bytes of field fIdx of tuple tIdx as a sub slice of the
// frame buffer.
func (a *TupleAccessor) Field(tIdx, fIdx int) []byte {
	start := a.AbsoluteFieldStartOffset(tIdx, fIdx)
	return a.buf[start : start+a.FieldLength(tIdx, fIdx)]
}

// Tuple returns the whole tuple, field slots included.
func (a *TupleAccessor) Tuple(tIdx int) []byte {
	return a.buf[a.TupleStartOffset(tIdx):a.TupleEndOffset(tIdx)]
}
