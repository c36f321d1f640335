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

package expr

import (
	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/container/pointable"
	"github.com/matrixorigin/frameflow/pkg/container/types"
	"github.com/matrixorigin/frameflow/pkg/frame"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/agg"
	"github.com/matrixorigin/frameflow/pkg/vm/process"
)

// Column reads field idx of the tuple without copying.
func Column(idx int) Factory {
	return func(*process.Process) (Evaluator, error) {
		return EvaluatorFunc(func(ref frame.Reference, out *pointable.Pointable) error {
			if idx >= ref.FieldCount() {
				return moerr.NewInvalidArg(moerr.Context(), "column", idx)
			}
			out.Set(ref.FieldData(idx), ref.FieldStart(idx), ref.FieldLength(idx))
			return nil
		}), nil
	}
}

// Constant always yields v, a serialized value.
func Constant(v []byte) Factory {
	return func(*process.Process) (Evaluator, error) {
		return EvaluatorFunc(func(_ frame.Reference, out *pointable.Pointable) error {
			out.SetBytes(v)
			return nil
		}), nil
	}
}

// FailAt wraps inner so that its n-th call (1 based) of every instance
// returns err instead of a value.
func FailAt(n int64, inner Factory, err error) Factory {
	return func(proc *process.Process) (Evaluator, error) {
		e, ierr := inner(proc)
		if ierr != nil {
			return nil, ierr
		}
		var calls int64
		return EvaluatorFunc(func(ref frame.Reference, out *pointable.Pointable) error {
			calls++
			if calls == n {
				return err
			}
			return e.Evaluate(ref, out)
		}), nil
	}
}

// ScalarAggregate applies aggregate op to the items of the array produced by
// list, the way array_sum or array_count work on a single value. Anything
// but an array yields NULL.
func ScalarAggregate(op int, list Factory) Factory {
	return func(proc *process.Process) (Evaluator, error) {
		inner, err := list(proc)
		if err != nil {
			return nil, err
		}
		fn, err := agg.New(op)
		if err != nil {
			return nil, err
		}
		return &scalarAggregate{
			fn:      fn,
			inner:   inner,
			arg:     pointable.New(),
			storage: pointable.NewArrayBackedValueStorage(),
		}, nil
	}
}

type scalarAggregate struct {
	fn      agg.Function
	inner   Evaluator
	arg     *pointable.Pointable
	storage *pointable.ArrayBackedValueStorage
	it      types.ArrayIterator
}

func (s *scalarAggregate) Evaluate(ref frame.Reference, out *pointable.Pointable) error {
	if err := s.inner.Evaluate(ref, s.arg); err != nil {
		return err
	}
	if s.arg.Tag() != types.T_array {
		s.storage.Set(types.AppendNull(s.storage.Buffer()))
		s.storage.Point(out)
		return nil
	}
	if err := s.it.Reset(s.arg.Bytes()); err != nil {
		return err
	}
	s.fn.Reset()
	for {
		item, ok, err := s.it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err = s.fn.Step(item); err != nil {
			return err
		}
	}
	res, err := s.fn.Result(s.storage.Buffer())
	if err != nil {
		return err
	}
	s.storage.Set(res)
	s.storage.Point(out)
	return nil
}
