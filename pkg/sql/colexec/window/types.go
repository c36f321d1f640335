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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matrixorigin/frameflow/pkg/compare"
	"github.com/matrixorigin/frameflow/pkg/container/pointable"
	"github.com/matrixorigin/frameflow/pkg/frame"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/agg"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/expr"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/group"
	"github.com/matrixorigin/frameflow/pkg/vm"
	"github.com/matrixorigin/frameflow/pkg/vm/process"
)

var argName = vm.Window.String()

// minMemSizeInFrames covers the input frame, the output frame, the reader
// frames and one materialized chunk.
const minMemSizeInFrames = 5

const (
	RowNumber = iota
	Rank
	DenseRank
)

var RunningNames = [...]string{
	RowNumber: "row_number",
	Rank:      "rank",
	DenseRank: "dense_rank",
}

// WindowSpec describes one window operator. Frame clauses that are not set
// are nil; the frame then extends to the partition bound on that side.
type WindowSpec struct {
	// PartitionColumns and PartitionComparators detect partition breaks.
	PartitionColumns     []int
	PartitionComparators []compare.Comparator
	// OrderColumns and OrderComparators detect peers for the ranking
	// functions.
	OrderColumns     []int
	OrderComparators []compare.Comparator

	// FrameValueEvals compute the ordering value of a scanned tuple, it is
	// compared with the frame bounds of the current row.
	FrameValueEvals       []expr.Factory
	FrameValueComparators []compare.Comparator
	FrameStartEvals       []expr.Factory
	// FrameStartIsMonotonic tells that the frame start never moves back
	// while the current row advances.
	FrameStartIsMonotonic bool
	FrameEndEvals         []expr.Factory

	// A scanned tuple is excluded when it equals the current row on every
	// exclusion key before FrameExcludeNegationStartIdx and differs on
	// every key from there on.
	FrameExcludeEvals            []expr.Factory
	FrameExcludeNegationStartIdx int
	FrameExcludeComparators      []compare.Comparator

	// FrameOffsetEval is the number of frame tuples to skip.
	FrameOffsetEval expr.Factory
	// FrameMaxObjects caps the number of frame tuples aggregated, -1 is
	// unlimited.
	FrameMaxObjects int

	ProjectionColumns []int
	RunningAggs       []int
	NestedAggs        []group.AggSpec

	// MemSizeInFrames bounds the memory of the operator, non positive
	// means unbounded.
	MemSizeInFrames int
}

type container struct {
	inPartition bool
	isFailed    bool

	// failForwarded is set once downstream was told about the failure
	failForwarded bool

	frames     int64
	rows       int64
	partitions int64

	inAccessor *frame.TupleAccessor
	// lastAccessor is bound to the last chunk of the partition buffer.
	lastAccessor *frame.TupleAccessor

	partition *PartitionBuffer
	reader    *PartitionReader

	tAccess *frame.TupleAccessor
	tRef    *frame.FrameTupleReference
	// the inner frame scan
	tAccess2 *frame.TupleAccessor
	tRef2    *frame.FrameTupleReference

	builder  *frame.TupleBuilder
	appender *frame.AppenderWrapper

	running      []runningAggregate
	runningValue *pointable.ArrayBackedValueStorage
	prevOrder    []*pointable.ArrayBackedValueStorage
	hasPrevRow   bool

	nestedFns   []agg.Function
	nestedEvals []expr.Evaluator
	nestedArg   *pointable.Pointable
	nestedOut   []byte

	frameValueEvals       []expr.Evaluator
	frameValuePointables  *frame.PointableTupleReference
	frameValueComparators *compare.MultiComparator
	frameStartEvals       []expr.Evaluator
	frameStartPointables  *frame.PointableTupleReference
	frameEndEvals         []expr.Evaluator
	frameEndPointables    *frame.PointableTupleReference

	frameExcludeEvals      []expr.Evaluator
	frameExcludeEvals2     []expr.Evaluator
	frameExcludePointables *frame.PointableTupleReference
	frameExcludePointable2 *pointable.Pointable

	frameOffsetEval      expr.Evaluator
	frameOffsetPointable *pointable.Pointable

	chunkIdxFrameStartGlobal  int
	tBeginIdxFrameStartGlobal int

	frameIn  prometheus.Counter
	tupleIn  prometheus.Counter
	tupleOut prometheus.Counter
}

// WindowNestedPlansRuntime materializes every partition of an input sorted
// on the partition and order columns, then computes one output tuple per
// row: the projection columns, the running aggregates and the nested
// aggregates over the window frame of the row.
type WindowNestedPlansRuntime struct {
	ctr  *container
	proc *process.Process

	Spec WindowSpec

	frameValueExists   bool
	frameStartExists   bool
	frameEndExists     bool
	frameExcludeExists bool
	frameOffsetExists  bool
	frameStartMonotone bool
}

func (w *WindowNestedPlansRuntime) Free() {
	ctr := w.ctr
	if ctr == nil {
		return
	}
	ctr.cleanPartition()
	ctr.cleanEvaluators()
}

func (ctr *container) cleanPartition() {
	if ctr.partition != nil {
		ctr.partition.Reset()
	}
	ctr.inPartition = false
}

func (ctr *container) cleanEvaluators() {
	ctr.nestedEvals = nil
	ctr.frameValueEvals = nil
	ctr.frameStartEvals = nil
	ctr.frameEndEvals = nil
	ctr.frameExcludeEvals = nil
	ctr.frameExcludeEvals2 = nil
	ctr.frameOffsetEval = nil
}
