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
)

const (
	Count = iota
	CountStar
	Sum
	Min
	Max
	Avg
	CountDistinct
	ApproxCountDistinct
	Listify
)

// Names maps an aggregate op to the name used in plans and on the command
// line.
var Names = [...]string{
	Count:               "count",
	CountStar:           "count_star",
	Sum:                 "sum",
	Min:                 "min",
	Max:                 "max",
	Avg:                 "avg",
	CountDistinct:       "count_distinct",
	ApproxCountDistinct: "approx_count_distinct",
	Listify:             "listify",
}

// Function accumulates the values of one group or window frame. Values and
// results are serialized values as described in package types.
//
// A partial result is what a map side instance ships to the reduce side,
// which feeds it to Merge of its own instance.
type Function interface {
	// Reset drops all state, the function can be reused for the next group.
	Reset()
	// Step adds one value. NULL and MISSING are ignored unless the function
	// says otherwise.
	Step(v []byte) error
	// Merge adds a partial result produced by PartialResult.
	Merge(partial []byte) error
	// Result appends the final result to dst.
	Result(dst []byte) ([]byte, error)
	// PartialResult appends the partial result to dst.
	PartialResult(dst []byte) ([]byte, error)
	// Size is the number of bytes buffered by the state.
	Size() int64
}

// New returns a fresh instance of aggregate op.
func New(op int) (Function, error) {
	switch op {
	case Count:
		return newCount(false), nil
	case CountStar:
		return newCount(true), nil
	case Sum:
		return newSum(), nil
	case Min:
		return newMinMax(-1), nil
	case Max:
		return newMinMax(1), nil
	case Avg:
		return newAvg(), nil
	case CountDistinct:
		return newCountDistinct(), nil
	case ApproxCountDistinct:
		return newApprox(), nil
	case Listify:
		return newListify(), nil
	}
	return nil, moerr.NewNotSupported(moerr.Context(), "aggregate %d", op)
}

// ParseName looks an aggregate up by name.
func ParseName(name string) (int, bool) {
	for op, n := range Names {
		if n == name {
			return op, true
		}
	}
	return 0, false
}

// NewByName is New for a name.
func NewByName(name string) (Function, error) {
	op, ok := ParseName(name)
	if !ok {
		return nil, moerr.NewNotSupported(moerr.Context(), "aggregate %s", name)
	}
	return New(op)
}
