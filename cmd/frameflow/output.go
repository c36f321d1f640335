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

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/container/types"
	"github.com/matrixorigin/frameflow/pkg/frame"
)

// printWriter prints every tuple it receives, one line per tuple.
type printWriter struct {
	out    io.Writer
	acc    *frame.TupleAccessor
	fields []string
	rows   int
}

func newPrintWriter(out io.Writer, rd *types.RecordDescriptor) *printWriter {
	return &printWriter{out: out, acc: frame.NewTupleAccessor(rd)}
}

func (w *printWriter) Open() error { return nil }

func (w *printWriter) NextFrame(buf []byte) error {
	w.acc.Reset(buf)
	for t := 0; t < w.acc.TupleCount(); t++ {
		w.fields = w.fields[:0]
		for f := 0; f < w.acc.FieldCount(); f++ {
			w.fields = append(w.fields, types.ValueString(w.acc.Field(t, f)))
		}
		if _, err := fmt.Fprintln(w.out, strings.Join(w.fields, "\t")); err != nil {
			return moerr.ConvertGoError(moerr.Context(), err)
		}
		w.rows++
	}
	return nil
}

func (w *printWriter) Fail() error { return nil }

func (w *printWriter) Close() error { return nil }
