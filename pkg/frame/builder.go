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

// TupleBuilder assembles one tuple field by field in its own buffer. The
// result is appended to a frame with TupleAppender.AppendBuilder.
type TupleBuilder struct {
	nFields int
	offsets []int
	data    []byte
}

func NewTupleBuilder(nFields int) *TupleBuilder {
	return &TupleBuilder{
		nFields: nFields,
		offsets: make([]int, 0, nFields),
	}
}

func (tb *TupleBuilder) Reset() {
	tb.offsets = tb.offsets[:0]
	tb.data = tb.data[:0]
}

func (tb *TupleBuilder) AddFieldBytes(b []byte) {
	tb.data = append(tb.data, b...)
	tb.offsets = append(tb.offsets, len(tb.data))
}

func (tb *TupleBuilder) AddField(acc *TupleAccessor, tIdx, fIdx int) {
	tb.AddFieldBytes(acc.Field(tIdx, fIdx))
}

func (tb *TupleBuilder) AddFieldFromReference(ref Reference, fIdx int) {
	tb.AddFieldBytes(Field(ref, fIdx))
}

// FieldEndOffsets returns the end offset of every field added so far.
func (tb *TupleBuilder) FieldEndOffsets() []int { return tb.offsets }

func (tb *TupleBuilder) ByteArray() []byte { return tb.data }

// Size is the number of field bytes, slots excluded.
func (tb *TupleBuilder) Size() int { return len(tb.data) }

func (tb *TupleBuilder) FieldCount() int { return len(tb.offsets) }

// ExpectedFieldCount is the number of fields the builder was created for.
func (tb *TupleBuilder) ExpectedFieldCount() int { return tb.nFields }
