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
	"github.com/matrixorigin/frameflow/pkg/common/moerr"
)

//go:generate mockgen -source=appender.go -destination=mock_frame/frame_mock.go -package=mock_frame

// Writer is the downstream side of an operator. NextFrame may block until
// the consumer is ready; the buffer may be reused by the caller as soon as
// NextFrame returns. Close is called exactly once after Open, also after
// Fail.
type Writer interface {
	Open() error
	NextFrame(buf []byte) error
	Fail() error
	Close() error
}

// TupleAppender packs tuples into a frame. A tuple is always written whole:
// Append returns false when the frame is not empty and the tuple does not
// fit, and the caller is expected to flush and retry.
type TupleAppender struct {
	frame      *Frame
	tupleCount int
	dataEnd    int
}

func NewTupleAppender(f *Frame) *TupleAppender {
	app := &TupleAppender{}
	app.Reset(f, true)
	return app
}

// Reset binds the appender to f. With clear the frame is emptied, otherwise
// appending continues after the tuples already in f.
func (app *TupleAppender) Reset(f *Frame, clear bool) {
	app.frame = f
	if clear {
		f.Reset()
		app.tupleCount = 0
		app.dataEnd = HeaderSize
		return
	}
	buf := f.Buffer()
	app.tupleCount = GetTupleCount(buf)
	app.dataEnd = HeaderSize
	if app.tupleCount > 0 {
		app.dataEnd = getInt(buf, slotOffset(len(buf), app.tupleCount-1))
	}
}

func (app *TupleAppender) TupleCount() int { return app.tupleCount }

func (app *TupleAppender) Buffer() []byte { return app.frame.Buffer() }

func (app *TupleAppender) Frame() *Frame { return app.frame }

func (app *TupleAppender) hasSpace(tupleLen int) bool {
	return app.dataEnd+tupleLen+SlotSize*(app.tupleCount+1)+CountSize <= app.frame.FrameSize()
}

// canHold makes room for a tuple of tupleLen bytes. Only an empty frame is
// grown; a non empty one has to be flushed first.
func (app *TupleAppender) canHold(tupleLen int) (bool, error) {
	if app.hasSpace(tupleLen) {
		return true, nil
	}
	if app.tupleCount > 0 {
		return false, nil
	}
	need := HeaderSize + tupleLen + SlotSize + CountSize
	if err := app.frame.EnsureFrameSize(need); err != nil {
		return false, moerr.NewTupleTooLarge(moerr.Context(), tupleLen, app.frame.FrameSize())
	}
	return true, nil
}

// Append adds a tuple given by its field end offsets and field bytes.
func (app *TupleAppender) Append(fieldEndOffsets []int, data []byte) (bool, error) {
	tupleLen := FieldSlotSize*len(fieldEndOffsets) + len(data)
	ok, err := app.canHold(tupleLen)
	if !ok || err != nil {
		return ok, err
	}
	buf := app.frame.Buffer()
	off := app.dataEnd
	for _, end := range fieldEndOffsets {
		putInt(buf, off, end)
		off += FieldSlotSize
	}
	copy(buf[off:], data)
	app.commit(tupleLen)
	return true, nil
}

// AppendTuple copies tuple tIdx of acc as is.
func (app *TupleAppender) AppendTuple(acc *TupleAccessor, tIdx int) (bool, error) {
	tuple := acc.Tuple(tIdx)
	ok, err := app.canHold(len(tuple))
	if !ok || err != nil {
		return ok, err
	}
	copy(app.frame.Buffer()[app.dataEnd:], tuple)
	app.commit(len(tuple))
	return true, nil
}

func (app *TupleAppender) AppendBuilder(tb *TupleBuilder) (bool, error) {
	return app.Append(tb.FieldEndOffsets(), tb.ByteArray())
}

func (app *TupleAppender) commit(tupleLen int) {
	buf := app.frame.Buffer()
	app.dataEnd += tupleLen
	putInt(buf, slotOffset(len(buf), app.tupleCount), app.dataEnd)
	app.tupleCount++
	SetTupleCount(buf, app.tupleCount)
}

// Write hands the frame to w if it holds any tuple, then empties it when
// clear is set.
func (app *TupleAppender) Write(w Writer, clear bool) error {
	if app.tupleCount > 0 {
		if err := w.NextFrame(app.frame.Buffer()); err != nil {
			return err
		}
	}
	if clear {
		app.Reset(app.frame, true)
	}
	return nil
}

func (app *TupleAppender) Flush(w Writer) error {
	return app.Write(w, true)
}

// AppendToWriter appends a tuple, flushing the frame to w first when it is
// full.
func AppendToWriter(w Writer, app *TupleAppender, fieldEndOffsets []int, data []byte) error {
	ok, err := app.Append(fieldEndOffsets, data)
	if err != nil || ok {
		return err
	}
	if err = app.Flush(w); err != nil {
		return err
	}
	if ok, err = app.Append(fieldEndOffsets, data); err != nil {
		return err
	}
	if !ok {
		return moerr.NewTupleTooLarge(moerr.Context(), len(data), app.frame.FrameSize())
	}
	return nil
}
