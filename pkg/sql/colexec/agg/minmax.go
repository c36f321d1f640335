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
	"github.com/matrixorigin/frameflow/pkg/compare"
	"github.com/matrixorigin/frameflow/pkg/container/types"
)

// minMax keeps a copy of the smallest (dir -1) or largest (dir 1) value in
// the generic order.
type minMax struct {
	dir  int
	seen bool
	v    []byte
}

func newMinMax(dir int) *minMax {
	return &minMax{dir: dir}
}

func (m *minMax) Reset() {
	m.seen = false
	m.v = m.v[:0]
}

func (m *minMax) Step(v []byte) error {
	if types.Tag(v).IsUnknown() {
		return nil
	}
	if !m.seen || compare.Generic(v, m.v)*m.dir > 0 {
		m.v = append(m.v[:0], v...)
		m.seen = true
	}
	return nil
}

func (m *minMax) Merge(partial []byte) error {
	return m.Step(partial)
}

func (m *minMax) Result(dst []byte) ([]byte, error) {
	if !m.seen {
		return types.AppendNull(dst), nil
	}
	return append(dst, m.v...), nil
}

func (m *minMax) PartialResult(dst []byte) ([]byte, error) {
	return m.Result(dst)
}

func (m *minMax) Size() int64 { return int64(len(m.v)) }
