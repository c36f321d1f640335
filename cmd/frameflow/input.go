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
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/matrixorigin/simdcsv"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/container/types"
	"github.com/matrixorigin/frameflow/pkg/frame"
)

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, moerr.ConvertGoError(moerr.Context(), err)
	}
	return f, nil
}

// csvFrames parses csv lines into tuples of the given types and packs them
// into frames of frameSize bytes. With rowID set the ordinal of the line is
// appended to every tuple as a BIGINT field.
func csvFrames(ctx context.Context, r io.Reader, ts []types.T, frameSize int, rowID bool) ([][]byte, error) {
	reader := simdcsv.NewReaderWithOptions(r, ',', '#', true, true)
	defer reader.Close()
	records, err := reader.ReadAll()
	if err != nil {
		return nil, moerr.ConvertGoError(ctx, err)
	}

	out := frame.NewCollectingWriter()
	app := frame.NewTupleAppender(frame.NewVSizeFrame(frameSize))
	tb := frame.NewTupleBuilder(len(ts) + 1)
	var field []byte
	for line, record := range records {
		if len(record) != len(ts) {
			return nil, moerr.NewInvalidInput(ctx, "line %d has %d fields, expected %d", line+1, len(record), len(ts))
		}
		tb.Reset()
		for i, s := range record {
			if field, err = types.ParseValue(field[:0], ts[i], strings.TrimSpace(s)); err != nil {
				return nil, err
			}
			tb.AddFieldBytes(field)
		}
		if rowID {
			tb.AddFieldBytes(types.AppendInt64(field[:0], int64(line)))
		}
		if err = frame.AppendToWriter(out, app, tb.FieldEndOffsets(), tb.ByteArray()); err != nil {
			return nil, err
		}
	}
	if err = app.Flush(out); err != nil {
		return nil, err
	}
	return out.Frames, nil
}

func parseTypes(s string) ([]types.T, error) {
	var ts []types.T
	for _, name := range splitList(s) {
		t, ok := types.ParseT(name)
		if !ok {
			return nil, moerr.NewInvalidInput(moerr.Context(), "unknown type %s", name)
		}
		ts = append(ts, t)
	}
	if len(ts) == 0 {
		return nil, moerr.NewInvalidInput(moerr.Context(), "no field types")
	}
	return ts, nil
}

func parseColumns(s string, nFields int) ([]int, error) {
	var cols []int
	for _, item := range splitList(s) {
		c, err := strconv.Atoi(item)
		if err != nil || c < 0 || c >= nFields {
			return nil, moerr.NewInvalidInput(moerr.Context(), "bad column %s", item)
		}
		cols = append(cols, c)
	}
	return cols, nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
