// Copyright 2023 Matrix Origin
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

package window

import (
	"context"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
)

const (
	// PartitionPositionSlot keeps the position of the row by row scan.
	PartitionPositionSlot = iota
	// FramePositionSlot keeps the chunk holding the first tuple of the last
	// window frame, the monotonic scan resumes from there.
	FramePositionSlot
	// TmpPositionSlot is the position before the chunk being scanned.
	TmpPositionSlot

	partitionReaderSlotCount
)

type chunk struct {
	offset int
	length int
	// first and last tuple of the chunk that belong to the partition
	tBegin int
	tEnd   int
}

// PartitionBuffer materializes the frames of one partition. Every chunk is a
// copy of a whole input frame plus the range of its tuples that belong to
// the partition, so a chunk can be scanned with a plain accessor.
type PartitionBuffer struct {
	arena  []byte
	chunks []chunk
	// budget is the number of bytes the buffer may hold, -1 when unbounded.
	budget int64
}

func NewPartitionBuffer(budget int64) *PartitionBuffer {
	return &PartitionBuffer{budget: budget}
}

func (b *PartitionBuffer) Reset() {
	b.arena = b.arena[:0]
	b.chunks = b.chunks[:0]
}

// Append copies buf as a new chunk made of tuples tBegin..tEnd.
func (b *PartitionBuffer) Append(ctx context.Context, buf []byte, tBegin, tEnd int) error {
	if b.budget >= 0 && int64(len(b.arena)+len(buf)) > b.budget {
		return moerr.NewOOM(ctx, "window partition needs %d bytes, budget is %d bytes",
			len(b.arena)+len(buf), b.budget)
	}
	b.chunks = append(b.chunks, chunk{
		offset: len(b.arena),
		length: len(buf),
		tBegin: tBegin,
		tEnd:   tEnd,
	})
	b.arena = append(b.arena, buf...)
	return nil
}

func (b *PartitionBuffer) ChunkCount() int { return len(b.chunks) }

// Chunk returns the frame of chunk i. The slice is only valid until the
// next Append.
func (b *PartitionBuffer) Chunk(i int) []byte {
	c := b.chunks[i]
	return b.arena[c.offset : c.offset+c.length : c.offset+c.length]
}

func (b *PartitionBuffer) TupleBeginIdx(i int) int { return b.chunks[i].tBegin }

func (b *PartitionBuffer) TupleEndIdx(i int) int { return b.chunks[i].tEnd }

// Size is the number of bytes materialized.
func (b *PartitionBuffer) Size() int { return len(b.arena) }

func (b *PartitionBuffer) TupleCount() int {
	n := 0
	for _, c := range b.chunks {
		n += c.tEnd - c.tBegin + 1
	}
	return n
}

// position is the chunk NextFrame returns next along with its arena offset.
type position struct {
	chunk  int
	offset int
}

// PartitionReader scans a partition buffer chunk by chunk. Positions can be
// saved into and restored from a fixed set of slots, a restore has to be
// paired with a previous save of the same slot.
type PartitionReader struct {
	buf   *PartitionBuffer
	pos   position
	slots [partitionReaderSlotCount]position
}

func NewPartitionReader(buf *PartitionBuffer) *PartitionReader {
	return &PartitionReader{buf: buf}
}

func (r *PartitionReader) Rewind() {
	r.pos = position{}
}

// NextFrame returns the next chunk.
func (r *PartitionReader) NextFrame() ([]byte, error) {
	if r.pos.chunk >= r.buf.ChunkCount() {
		return nil, moerr.NewInvalidState(moerr.Context(), "partition reader at chunk %d of %d",
			r.pos.chunk, r.buf.ChunkCount())
	}
	data := r.buf.Chunk(r.pos.chunk)
	r.pos.chunk++
	r.pos.offset += len(data)
	return data, nil
}

func (r *PartitionReader) SavePosition(slot int) {
	r.slots[slot] = r.pos
}

func (r *PartitionReader) RestorePosition(slot int) {
	r.pos = r.slots[slot]
}

func (r *PartitionReader) CopyPosition(from, to int) {
	r.slots[to] = r.slots[from]
}

// ChunkIndex is the index of the chunk NextFrame returns next.
func (r *PartitionReader) ChunkIndex() int { return r.pos.chunk }

// Offset is the arena offset of the chunk NextFrame returns next.
func (r *PartitionReader) Offset() int { return r.pos.offset }
