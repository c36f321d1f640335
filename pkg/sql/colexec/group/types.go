// Copyright 2021 Matrix Origin
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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matrixorigin/frameflow/pkg/compare"
	"github.com/matrixorigin/frameflow/pkg/container/types"
	"github.com/matrixorigin/frameflow/pkg/frame"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/expr"
	"github.com/matrixorigin/frameflow/pkg/vm"
	"github.com/matrixorigin/frameflow/pkg/vm/process"
)

var opName = vm.Group.String()

// AggregateState holds whatever an aggregator keeps for the current group.
type AggregateState struct {
	State any
}

// Close releases the state if it knows how to.
func (s *AggregateState) Close() {
	if c, ok := s.State.(interface{ Close() }); ok {
		c.Close()
	}
	s.State = nil
}

// Aggregator computes the aggregate fields of a group. Init is called with
// the first tuple of a group, Aggregate with every following one, and one of
// the Output methods once the group ends. The tuple builder passed to Init
// and the Output methods already holds the group key fields.
type Aggregator interface {
	CreateAggregateStates() *AggregateState
	Init(tb *frame.TupleBuilder, acc *frame.TupleAccessor, tIdx int, state *AggregateState) error
	Aggregate(acc *frame.TupleAccessor, tIdx int, state *AggregateState) error
	// OutputPartialResult appends the partial aggregate fields to tb and
	// reports whether the group produces a tuple.
	OutputPartialResult(tb *frame.TupleBuilder, acc *frame.TupleAccessor, tIdx int, state *AggregateState) (bool, error)
	OutputFinalResult(tb *frame.TupleBuilder, acc *frame.TupleAccessor, tIdx int, state *AggregateState) (bool, error)
	Close()
}

// AggregatorFactory creates the aggregator of one writer. memoryLimit is the
// number of bytes the aggregator may buffer, -1 when unbounded.
type AggregatorFactory interface {
	CreateAggregator(proc *process.Process, inDesc, outDesc *types.RecordDescriptor,
		keyFields []int, memoryLimit int64) (Aggregator, error)
}

// AggSpec is one aggregate field of the output.
type AggSpec struct {
	// Op is one of the agg package aggregates.
	Op int
	// Arg computes the aggregated value. A nil Arg feeds NULL, which only
	// makes sense for count_star.
	Arg expr.Factory
	// Merge tells that Arg yields partial results to merge rather than
	// plain values.
	Merge bool
}

type container struct {
	first    bool
	isFailed bool

	// failForwarded is set once downstream was told about the failure
	failForwarded bool

	groups int64
	tuples int64
	frames int64

	aggregator Aggregator
	state      *AggregateState

	copyFrame    *frame.Frame
	inAccessor   *frame.TupleAccessor
	copyAccessor *frame.TupleAccessor
	appender     *frame.AppenderWrapper
	builder      *frame.TupleBuilder

	frameIn  prometheus.Counter
	tupleIn  prometheus.Counter
	tupleOut prometheus.Counter
}

// PreclusteredGroupWriter aggregates an input already clustered on the group
// fields: equal keys arrive next to each other, so one group is open at a
// time and is emitted as soon as the key changes.
type PreclusteredGroupWriter struct {
	ctr  *container
	proc *process.Process

	GroupFields   []int
	Comparators   []compare.Comparator
	OutputPartial bool
	GroupAll      bool
	MemoryLimit   int64
}

func (w *PreclusteredGroupWriter) Free(pipelineFailed bool) {
	ctr := w.ctr
	if ctr == nil {
		return
	}
	ctr.cleanAggregator()
	ctr.cleanFrames()
	if pipelineFailed {
		w.proc.Logger.Debug("group writer freed after failure")
	}
}

func (ctr *container) cleanAggregator() {
	if ctr.aggregator != nil {
		ctr.aggregator.Close()
	}
	if ctr.state != nil {
		ctr.state.Close()
	}
}

func (ctr *container) cleanFrames() {
	ctr.copyFrame = nil
	ctr.inAccessor = nil
	ctr.copyAccessor = nil
}
