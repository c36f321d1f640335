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

package group

import (
	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/container/pointable"
	"github.com/matrixorigin/frameflow/pkg/container/types"
	"github.com/matrixorigin/frameflow/pkg/frame"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/agg"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/expr"
	"github.com/matrixorigin/frameflow/pkg/vm/process"
)

type simpleAggregatorFactory struct {
	specs []AggSpec
}

// NewSimpleAggregatorFactory returns a factory of aggregators computing one
// output field per spec, in order, after the group key fields.
func NewSimpleAggregatorFactory(specs []AggSpec) AggregatorFactory {
	return &simpleAggregatorFactory{specs: specs}
}

func (f *simpleAggregatorFactory) CreateAggregator(proc *process.Process, inDesc, outDesc *types.RecordDescriptor,
	keyFields []int, memoryLimit int64) (Aggregator, error) {
	if want := len(keyFields) + len(f.specs); outDesc.FieldCount() != want {
		return nil, moerr.NewInvalidArg(proc.Ctx, "output field count", outDesc.FieldCount())
	}
	a := &simpleAggregator{
		proc:        proc,
		specs:       f.specs,
		memoryLimit: memoryLimit,
		evals:       make([]expr.Evaluator, len(f.specs)),
		ref:         frame.NewFrameTupleReference(),
		arg:         pointable.New(),
		null:        types.AppendNull(nil),
	}
	for i, spec := range f.specs {
		if spec.Arg == nil {
			continue
		}
		e, err := spec.Arg(proc)
		if err != nil {
			return nil, err
		}
		a.evals[i] = e
	}
	return a, nil
}

type simpleAggregator struct {
	proc        *process.Process
	specs       []AggSpec
	memoryLimit int64

	evals []expr.Evaluator
	ref   *frame.FrameTupleReference
	arg   *pointable.Pointable
	null  []byte
	out   []byte

	// rows is the ordinal of the input tuple being aggregated, 1 based.
	rows int64
}

func (a *simpleAggregator) CreateAggregateStates() *AggregateState {
	return &AggregateState{}
}

func (a *simpleAggregator) functions(state *AggregateState) ([]agg.Function, error) {
	if fns, ok := state.State.([]agg.Function); ok {
		return fns, nil
	}
	fns := make([]agg.Function, len(a.specs))
	for i, spec := range a.specs {
		fn, err := agg.New(spec.Op)
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	state.State = fns
	return fns, nil
}

func (a *simpleAggregator) Init(_ *frame.TupleBuilder, acc *frame.TupleAccessor, tIdx int, state *AggregateState) error {
	fns, err := a.functions(state)
	if err != nil {
		return err
	}
	for _, fn := range fns {
		fn.Reset()
	}
	return a.step(fns, acc, tIdx)
}

func (a *simpleAggregator) Aggregate(acc *frame.TupleAccessor, tIdx int, state *AggregateState) error {
	fns, err := a.functions(state)
	if err != nil {
		return err
	}
	return a.step(fns, acc, tIdx)
}

func (a *simpleAggregator) step(fns []agg.Function, acc *frame.TupleAccessor, tIdx int) error {
	a.ref.Reset(acc, tIdx)
	a.rows++
	var size int64
	for i, fn := range fns {
		v := a.null
		if a.evals[i] != nil {
			if err := a.evals[i].Evaluate(a.ref, a.arg); err != nil {
				return moerr.NewEvaluation(a.proc.Ctx, opName, a.rows, err)
			}
			v = a.arg.Bytes()
		}
		var err error
		if a.specs[i].Merge {
			err = fn.Merge(v)
		} else {
			err = fn.Step(v)
		}
		if err != nil {
			return err
		}
		size += fn.Size()
	}
	if a.memoryLimit >= 0 && size > a.memoryLimit {
		return moerr.NewOOM(a.proc.Ctx, "group state of %d bytes exceeds %d bytes", size, a.memoryLimit)
	}
	return nil
}

func (a *simpleAggregator) OutputPartialResult(tb *frame.TupleBuilder, _ *frame.TupleAccessor, _ int, state *AggregateState) (bool, error) {
	return a.output(tb, state, true)
}

func (a *simpleAggregator) OutputFinalResult(tb *frame.TupleBuilder, _ *frame.TupleAccessor, _ int, state *AggregateState) (bool, error) {
	return a.output(tb, state, false)
}

func (a *simpleAggregator) output(tb *frame.TupleBuilder, state *AggregateState, partial bool) (bool, error) {
	fns, err := a.functions(state)
	if err != nil {
		return false, err
	}
	for _, fn := range fns {
		if partial {
			a.out, err = fn.PartialResult(a.out[:0])
		} else {
			a.out, err = fn.Result(a.out[:0])
		}
		if err != nil {
			return false, err
		}
		tb.AddFieldBytes(a.out)
	}
	return true, nil
}

func (a *simpleAggregator) Close() {
	a.evals = nil
}
