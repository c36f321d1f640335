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

package agg

import (
	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/container/types"
)

// listify collects every value, NULL and MISSING included, into an array.
type listify struct {
	data  []byte
	items [][]byte
}

func newListify() *listify {
	return &listify{}
}

func (l *listify) Reset() {
	l.data = l.data[:0]
	l.items = l.items[:0]
}

func (l *listify) Step(v []byte) error {
	l.data = append(l.data, v...)
	l.items = append(l.items, l.data[len(l.data)-len(v):len(l.data):len(l.data)])
	return nil
}

// Merge appends the items of a partial array.
func (l *listify) Merge(partial []byte) error {
	if types.Tag(partial).IsUnknown() {
		return nil
	}
	it, err := types.NewArrayIterator(partial)
	if err != nil {
		return moerr.NewInvalidInput(moerr.Context(), "bad partial listify %s", types.ValueString(partial))
	}
	for {
		item, ok, err := it.Next()
		if err != nil || !ok {
			return err
		}
		if err = l.Step(item); err != nil {
			return err
		}
	}
}

func (l *listify) Result(dst []byte) ([]byte, error) {
	return types.AppendArray(dst, l.items), nil
}

func (l *listify) PartialResult(dst []byte) ([]byte, error) {
	return l.Result(dst)
}

func (l *listify) Size() int64 { return int64(len(l.data)) }
