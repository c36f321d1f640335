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

// Package frame implements the binary frame layout shared by all
// operators:
//
//	[header][tuple 0][tuple 1]...[free space][slot n-1]...[slot 0][count]
//
// The 5 byte header holds the frame size in units of the minimum frame
// size (int32) followed by one reserved byte. Slot i is the int32 end offset
// of tuple i, measured from the start of the frame, and the last 4 bytes hold
// the tuple count. All integers are big endian.
//
// A tuple is [field end offsets, one int32 per field][field bytes]. Field
// end offsets are relative to the first field byte.
package frame

import (
	"encoding/binary"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	v2 "github.com/matrixorigin/frameflow/pkg/util/metric/v2"
)

const (
	HeaderSize    = 5
	SlotSize      = 4
	CountSize     = 4
	FieldSlotSize = 4

	// MinFrameSizeLimit is the smallest frame that can hold the header, the
	// tuple count and a single one field tuple.
	MinFrameSizeLimit = 64
)

// DefaultMinFrameSize is used when the process does not say otherwise.
var DefaultMinFrameSize = 32 * 1024

// Frame owns a byte buffer with the layout above. A fixed frame always keeps
// its initial capacity. A growable frame can be enlarged, in multiples of the
// minimum frame size, by EnsureFrameSize; accessors bound to the old buffer
// must be reset after that.
type Frame struct {
	minSize  int
	growable bool
	buf      []byte
}

func NewFrame(minFrameSize int) *Frame {
	f := &Frame{minSize: minFrameSize}
	f.alloc(minFrameSize)
	return f
}

// NewVSizeFrame returns a growable frame.
func NewVSizeFrame(minFrameSize int) *Frame {
	f := NewFrame(minFrameSize)
	f.growable = true
	return f
}

func (f *Frame) alloc(size int) {
	f.buf = make([]byte, size)
	binary.BigEndian.PutUint32(f.buf, uint32(size/f.minSize))
}

func (f *Frame) Buffer() []byte { return f.buf }

func (f *Frame) FrameSize() int { return len(f.buf) }

func (f *Frame) MinFrameSize() int { return f.minSize }

func (f *Frame) IsGrowable() bool { return f.growable }

// AlignedSize rounds n up to a multiple of the minimum frame size.
func (f *Frame) AlignedSize(n int) int {
	if n <= f.minSize {
		return f.minSize
	}
	return (n + f.minSize - 1) / f.minSize * f.minSize
}

// EnsureFrameSize makes sure the frame can hold n bytes. Tuples, slots and
// count survive the move. Fixed frames fail when n exceeds their capacity.
func (f *Frame) EnsureFrameSize(n int) error {
	if n <= len(f.buf) {
		return nil
	}
	if !f.growable {
		return moerr.NewTupleTooLarge(moerr.Context(), n, len(f.buf))
	}
	old := f.buf
	count := GetTupleCount(old)
	tail := CountSize + SlotSize*count
	dataEnd := HeaderSize
	if count > 0 {
		dataEnd = getInt(old, slotOffset(len(old), count-1))
	}
	f.alloc(f.AlignedSize(n))
	copy(f.buf[HeaderSize:], old[HeaderSize:dataEnd])
	copy(f.buf[len(f.buf)-tail:], old[len(old)-tail:])
	v2.FrameGrowCounter.Inc()
	return nil
}

// Reset empties the frame. A growable frame shrinks back to the minimum
// size.
func (f *Frame) Reset() {
	if f.growable && len(f.buf) != f.minSize {
		f.alloc(f.minSize)
		return
	}
	SetTupleCount(f.buf, 0)
}

// CopyFrame copies the content of src into dst, resizing dst if needed.
func CopyFrame(dst *Frame, src []byte) error {
	if len(src) != len(dst.buf) {
		if !dst.growable && len(src) > len(dst.buf) {
			return moerr.NewTupleTooLarge(moerr.Context(), len(src), len(dst.buf))
		}
		dst.buf = make([]byte, len(src))
	}
	copy(dst.buf, src)
	return nil
}

// FrameSizeUnits reads the header of buf.
func FrameSizeUnits(buf []byte) int {
	return int(binary.BigEndian.Uint32(buf))
}

func GetTupleCount(buf []byte) int {
	return getInt(buf, len(buf)-CountSize)
}

func SetTupleCount(buf []byte, n int) {
	putInt(buf, len(buf)-CountSize, n)
}

func slotOffset(capacity, i int) int {
	return capacity - CountSize - SlotSize*(i+1)
}

func getInt(buf []byte, off int) int {
	return int(int32(binary.BigEndian.Uint32(buf[off:])))
}

func putInt(buf []byte, off, v int) {
	binary.BigEndian.PutUint32(buf[off:], uint32(int32(v)))
}
