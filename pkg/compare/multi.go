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

package compare

import (
	"github.com/matrixorigin/frameflow/pkg/frame"
)

// MultiComparator compares tuples lexicographically, field i with cmps[i].
type MultiComparator struct {
	cmps []Comparator
}

func NewMultiComparator(cmps ...Comparator) *MultiComparator {
	return &MultiComparator{cmps: cmps}
}

func (m *MultiComparator) Len() int { return len(m.cmps) }

// Compare compares fields 0..Len()-1 of a and b.
func (m *MultiComparator) Compare(a, b frame.Reference) int {
	for i, c := range m.cmps {
		if r := c(frame.Field(a, i), frame.Field(b, i)); r != 0 {
			return r
		}
	}
	return 0
}

// CompareFields compares field aFields[i] of a with field bFields[i] of b.
func (m *MultiComparator) CompareFields(a frame.Reference, aFields []int, b frame.Reference, bFields []int) int {
	for i, c := range m.cmps {
		if r := c(frame.Field(a, aFields[i]), frame.Field(b, bFields[i])); r != 0 {
			return r
		}
	}
	return 0
}

// CompareTuples compares the key fields of two tuples in possibly different
// frames.
func (m *MultiComparator) CompareTuples(a *frame.TupleAccessor, ta int, b *frame.TupleAccessor, tb int, fields []int) int {
	for i, c := range m.cmps {
		f := fields[i]
		if r := c(a.Field(ta, f), b.Field(tb, f)); r != 0 {
			return r
		}
	}
	return 0
}
