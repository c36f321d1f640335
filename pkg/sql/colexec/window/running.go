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
	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/container/types"
)

// runningAggregate computes a value from the rows of the partition up to
// and including the current one.
type runningAggregate interface {
	initPartition()
	// step appends the value of the next row to dst. peer tells whether
	// the row ties with the previous one on the order columns.
	step(dst []byte, peer bool) []byte
}

func newRunningAggregate(op int) (runningAggregate, error) {
	switch op {
	case RowNumber:
		return &rowNumber{}, nil
	case Rank:
		return &rank{}, nil
	case DenseRank:
		return &rank{dense: true}, nil
	}
	return nil, moerr.NewNotSupported(moerr.Context(), "running aggregate %d", op)
}

// ParseRunningName looks a running aggregate up by name.
func ParseRunningName(name string) (int, bool) {
	for op, n := range RunningNames {
		if n == name {
			return op, true
		}
	}
	return 0, false
}

type rowNumber struct {
	n int64
}

func (r *rowNumber) initPartition() { r.n = 0 }

func (r *rowNumber) step(dst []byte, _ bool) []byte {
	r.n++
	return types.AppendInt64(dst, r.n)
}

type rank struct {
	dense bool
	rows  int64
	rank  int64
}

func (r *rank) initPartition() {
	r.rows, r.rank = 0, 0
}

func (r *rank) step(dst []byte, peer bool) []byte {
	r.rows++
	if !peer || r.rank == 0 {
		if r.dense {
			r.rank++
		} else {
			r.rank = r.rows
		}
	}
	return types.AppendInt64(dst, r.rank)
}
