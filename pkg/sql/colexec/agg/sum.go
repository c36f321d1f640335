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

// sum stays in int64 as long as every value is an integer and switches to
// float64 on the first float.
type sum struct {
	seen    bool
	isFloat bool
	i       int64
	f       float64
}

func newSum() *sum {
	return &sum{}
}

func (s *sum) Reset() {
	*s = sum{}
}

func (s *sum) Step(v []byte) error {
	t := types.Tag(v)
	switch {
	case t.IsUnknown():
		return nil
	case t.IsInteger():
		x, _ := types.GetIntegerValue(v)
		s.seen = true
		if s.isFloat {
			s.f += float64(x)
			return nil
		}
		r, ok := addInt64(s.i, x)
		if !ok {
			return moerr.NewOutOfRange(moerr.Context(), "BIGINT", "sum overflow")
		}
		s.i = r
	case t.IsFloat():
		x, _ := types.GetNumericValue(v)
		if !s.isFloat {
			s.isFloat = true
			s.f = float64(s.i)
		}
		s.seen = true
		s.f += x
	default:
		return moerr.NewInvalidInput(moerr.Context(), "sum of %s", t)
	}
	return nil
}

func (s *sum) Merge(partial []byte) error {
	return s.Step(partial)
}

func (s *sum) Result(dst []byte) ([]byte, error) {
	switch {
	case !s.seen:
		return types.AppendNull(dst), nil
	case s.isFloat:
		return types.AppendFloat64(dst, s.f), nil
	}
	return types.AppendInt64(dst, s.i), nil
}

func (s *sum) PartialResult(dst []byte) ([]byte, error) {
	return s.Result(dst)
}

func (s *sum) Size() int64 { return 0 }

func addInt64(a, b int64) (int64, bool) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, false
	}
	return r, true
}

type avg struct {
	sum float64
	cnt int64
}

func newAvg() *avg {
	return &avg{}
}

func (a *avg) Reset() {
	a.sum, a.cnt = 0, 0
}

func (a *avg) Step(v []byte) error {
	t := types.Tag(v)
	if t.IsUnknown() {
		return nil
	}
	x, err := types.GetNumericValue(v)
	if err != nil {
		return moerr.NewInvalidInput(moerr.Context(), "avg of %s", t)
	}
	a.sum += x
	a.cnt++
	return nil
}

// Merge takes [sum, count].
func (a *avg) Merge(partial []byte) error {
	if types.Tag(partial).IsUnknown() {
		return nil
	}
	it, err := types.NewArrayIterator(partial)
	if err != nil || it.Len() != 2 {
		return moerr.NewInvalidInput(moerr.Context(), "bad partial avg %s", types.ValueString(partial))
	}
	s, _, err := it.Next()
	if err != nil {
		return err
	}
	c, _, err := it.Next()
	if err != nil {
		return err
	}
	x, err := types.GetNumericValue(s)
	if err != nil {
		return err
	}
	n, err := types.GetIntegerValue(c)
	if err != nil {
		return err
	}
	a.sum += x
	a.cnt += n
	return nil
}

func (a *avg) Result(dst []byte) ([]byte, error) {
	if a.cnt == 0 {
		return types.AppendNull(dst), nil
	}
	return types.AppendFloat64(dst, a.sum/float64(a.cnt)), nil
}

func (a *avg) PartialResult(dst []byte) ([]byte, error) {
	return types.AppendArray(dst, [][]byte{
		types.AppendFloat64(nil, a.sum),
		types.AppendInt64(nil, a.cnt),
	}), nil
}

func (a *avg) Size() int64 { return 0 }
