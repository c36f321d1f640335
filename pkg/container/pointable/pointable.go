// Copyright 2021 Matrix Origin
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

package pointable

import "github.com/matrixorigin/frameflow/pkg/container/types"

// Pointable is a non owning view over a byte range holding one serialized
// value. Setting a pointable never copies.
type Pointable struct {
	data   []byte
	start  int
	length int
}

func New() *Pointable {
	return &Pointable{}
}

func (p *Pointable) Set(data []byte, start, length int) {
	p.data, p.start, p.length = data, start, length
}

// SetBytes points p at the whole of b.
func (p *Pointable) SetBytes(b []byte) {
	p.Set(b, 0, len(b))
}

// SetPointable makes p an alias of o's current range.
func (p *Pointable) SetPointable(o *Pointable) {
	p.Set(o.data, o.start, o.length)
}

func (p *Pointable) ByteArray() []byte { return p.data }

func (p *Pointable) StartOffset() int { return p.start }

func (p *Pointable) Length() int { return p.length }

// Bytes returns the viewed range. The result aliases the backing array.
func (p *Pointable) Bytes() []byte {
	return p.data[p.start : p.start+p.length]
}

func (p *Pointable) Tag() types.T {
	return types.Tag(p.Bytes())
}

// ArrayBackedValueStorage owns a growable buffer. Evaluators write their
// result into it and then point the output pointable at it.
type ArrayBackedValueStorage struct {
	buf []byte
}

func NewArrayBackedValueStorage() *ArrayBackedValueStorage {
	return &ArrayBackedValueStorage{}
}

func (s *ArrayBackedValueStorage) Reset() {
	s.buf = s.buf[:0]
}

func (s *ArrayBackedValueStorage) Append(b ...byte) {
	s.buf = append(s.buf, b...)
}

// Buffer returns the internal buffer truncated to zero length, ready to be
// appended to. The result must be handed back through Set:
//
//	s.Set(types.AppendInt64(s.Buffer(), v))
func (s *ArrayBackedValueStorage) Buffer() []byte {
	return s.buf[:0]
}

func (s *ArrayBackedValueStorage) Set(b []byte) {
	s.buf = b
}

func (s *ArrayBackedValueStorage) Bytes() []byte {
	return s.buf
}

func (s *ArrayBackedValueStorage) Length() int {
	return len(s.buf)
}

// Point sets p to the stored bytes.
func (s *ArrayBackedValueStorage) Point(p *Pointable) {
	p.Set(s.buf, 0, len(s.buf))
}
