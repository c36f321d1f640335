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

package frame

import (
	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/container/types"
)

// CollectingWriter keeps a copy of every frame it receives.
type CollectingWriter struct {
	Opened bool
	Failed bool
	Closed bool
	Frames [][]byte

	// FailAfter makes NextFrame fail once that many frames were taken.
	// Negative disables it.
	FailAfter int
}

func NewCollectingWriter() *CollectingWriter {
	return &CollectingWriter{FailAfter: -1}
}

func (w *CollectingWriter) Open() error {
	w.Opened = true
	return nil
}

func (w *CollectingWriter) NextFrame(buf []byte) error {
	if w.FailAfter >= 0 && len(w.Frames) >= w.FailAfter {
		return moerr.NewOperatorFail(moerr.Context(), "collecting writer")
	}
	w.Frames = append(w.Frames, append([]byte(nil), buf...))
	return nil
}

func (w *CollectingWriter) Fail() error {
	w.Failed = true
	return nil
}

func (w *CollectingWriter) Close() error {
	w.Closed = true
	return nil
}

// Tuples decodes all collected tuples as lists of field values.
func (w *CollectingWriter) Tuples(rd *types.RecordDescriptor) [][][]byte {
	var res [][][]byte
	acc := NewTupleAccessor(rd)
	for _, buf := range w.Frames {
		acc.Reset(buf)
		for i := 0; i < acc.TupleCount(); i++ {
			fields := make([][]byte, rd.FieldCount())
			for j := range fields {
				fields[j] = acc.Field(i, j)
			}
			res = append(res, fields)
		}
	}
	return res
}

// TupleCount counts the collected tuples.
func (w *CollectingWriter) TupleCount() int {
	n := 0
	for _, buf := range w.Frames {
		n += GetTupleCount(buf)
	}
	return n
}
