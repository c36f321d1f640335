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
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/compare"
	"github.com/matrixorigin/frameflow/pkg/container/pointable"
	"github.com/matrixorigin/frameflow/pkg/container/types"
	"github.com/matrixorigin/frameflow/pkg/frame"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/agg"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/expr"
	v2 "github.com/matrixorigin/frameflow/pkg/util/metric/v2"
	"github.com/matrixorigin/frameflow/pkg/vm/process"
)

// NewWindowNestedPlansRuntime builds a window operator pushing its result
// to writer. Evaluators are created here, once per operator.
func NewWindowNestedPlansRuntime(proc *process.Process, spec WindowSpec, inDesc *types.RecordDescriptor,
	writer frame.Writer) (*WindowNestedPlansRuntime, error) {
	if err := validate(proc, &spec); err != nil {
		return nil, err
	}
	budget := int64(-1)
	if spec.MemSizeInFrames > 0 {
		budget = int64(spec.MemSizeInFrames-minMemSizeInFrames+1) * int64(proc.FrameSize)
	}

	w := &WindowNestedPlansRuntime{
		proc:               proc,
		Spec:               spec,
		frameValueExists:   len(spec.FrameValueEvals) > 0,
		frameStartExists:   len(spec.FrameStartEvals) > 0,
		frameEndExists:     len(spec.FrameEndEvals) > 0,
		frameExcludeExists: len(spec.FrameExcludeEvals) > 0,
		frameOffsetExists:  spec.FrameOffsetEval != nil,
	}
	w.frameStartMonotone = w.frameStartExists && spec.FrameStartIsMonotonic

	partition := NewPartitionBuffer(budget)
	nOut := len(spec.ProjectionColumns) + len(spec.RunningAggs) + len(spec.NestedAggs)
	ctr := &container{
		inAccessor:   frame.NewTupleAccessor(inDesc),
		lastAccessor: frame.NewTupleAccessor(inDesc),
		partition:    partition,
		reader:       NewPartitionReader(partition),
		tAccess:      frame.NewTupleAccessor(inDesc),
		tRef:         frame.NewFrameTupleReference(),
		tAccess2:     frame.NewTupleAccessor(inDesc),
		tRef2:        frame.NewFrameTupleReference(),
		builder:      frame.NewTupleBuilder(nOut),
		appender:     frame.NewAppenderWrapper(frame.NewTupleAppender(proc.AllocateVSizeFrame()), writer),
		runningValue: pointable.NewArrayBackedValueStorage(),
		nestedArg:    pointable.New(),
		frameIn:      v2.FrameInCounter(argName),
		tupleIn:      v2.TupleInCounter(argName),
		tupleOut:     v2.TupleOutCounter(argName),
	}
	w.ctr = ctr
	if err := w.init(); err != nil {
		return nil, err
	}
	return w, nil
}

func validate(proc *process.Process, spec *WindowSpec) error {
	if spec.MemSizeInFrames > 0 && spec.MemSizeInFrames < minMemSizeInFrames {
		return moerr.NewIllegalMemoryBudget(proc.Ctx, "WINDOW",
			int64(spec.MemSizeInFrames)*int64(proc.FrameSize), minMemSizeInFrames*int64(proc.FrameSize))
	}
	switch {
	case len(spec.PartitionColumns) != len(spec.PartitionComparators):
		return moerr.NewBadConfig(proc.Ctx, "%d partition columns with %d comparators",
			len(spec.PartitionColumns), len(spec.PartitionComparators))
	case len(spec.OrderColumns) != len(spec.OrderComparators):
		return moerr.NewBadConfig(proc.Ctx, "%d order columns with %d comparators",
			len(spec.OrderColumns), len(spec.OrderComparators))
	case (len(spec.FrameStartEvals) > 0 || len(spec.FrameEndEvals) > 0) &&
		len(spec.FrameValueEvals) != len(spec.FrameValueComparators):
		return moerr.NewBadConfig(proc.Ctx, "%d frame values with %d comparators",
			len(spec.FrameValueEvals), len(spec.FrameValueComparators))
	case len(spec.FrameStartEvals) > 0 && len(spec.FrameStartEvals) != len(spec.FrameValueEvals):
		return moerr.NewBadConfig(proc.Ctx, "frame start has %d values, frame value has %d",
			len(spec.FrameStartEvals), len(spec.FrameValueEvals))
	case len(spec.FrameEndEvals) > 0 && len(spec.FrameEndEvals) != len(spec.FrameValueEvals):
		return moerr.NewBadConfig(proc.Ctx, "frame end has %d values, frame value has %d",
			len(spec.FrameEndEvals), len(spec.FrameValueEvals))
	case len(spec.FrameExcludeEvals) != len(spec.FrameExcludeComparators):
		return moerr.NewBadConfig(proc.Ctx, "%d exclusion keys with %d comparators",
			len(spec.FrameExcludeEvals), len(spec.FrameExcludeComparators))
	}
	return nil
}

func (w *WindowNestedPlansRuntime) init() error {
	ctr, spec, proc := w.ctr, &w.Spec, w.proc
	var err error

	ctr.running = make([]runningAggregate, len(spec.RunningAggs))
	for i, op := range spec.RunningAggs {
		if ctr.running[i], err = newRunningAggregate(op); err != nil {
			return err
		}
	}
	ctr.prevOrder = make([]*pointable.ArrayBackedValueStorage, len(spec.OrderColumns))
	for i := range ctr.prevOrder {
		ctr.prevOrder[i] = pointable.NewArrayBackedValueStorage()
	}

	ctr.nestedFns = make([]agg.Function, len(spec.NestedAggs))
	ctr.nestedEvals = make([]expr.Evaluator, len(spec.NestedAggs))
	for i, a := range spec.NestedAggs {
		if ctr.nestedFns[i], err = agg.New(a.Op); err != nil {
			return err
		}
		if a.Arg != nil {
			if ctr.nestedEvals[i], err = a.Arg(proc); err != nil {
				return err
			}
		}
	}

	if w.frameStartExists || w.frameEndExists {
		if ctr.frameValueEvals, err = expr.NewEvaluators(proc, spec.FrameValueEvals); err != nil {
			return err
		}
		ctr.frameValueComparators = compare.NewMultiComparator(spec.FrameValueComparators...)
		ctr.frameValuePointables = frame.NewPointableTupleReferenceOfSize(len(spec.FrameValueEvals))
	}
	if w.frameStartExists {
		if ctr.frameStartEvals, err = expr.NewEvaluators(proc, spec.FrameStartEvals); err != nil {
			return err
		}
		ctr.frameStartPointables = frame.NewPointableTupleReferenceOfSize(len(spec.FrameStartEvals))
	}
	if w.frameEndExists {
		if ctr.frameEndEvals, err = expr.NewEvaluators(proc, spec.FrameEndEvals); err != nil {
			return err
		}
		ctr.frameEndPointables = frame.NewPointableTupleReferenceOfSize(len(spec.FrameEndEvals))
	}
	if w.frameExcludeExists {
		// scanned tuples get their own instances, the current row keys
		// must survive the scan
		if ctr.frameExcludeEvals, err = expr.NewEvaluators(proc, spec.FrameExcludeEvals); err != nil {
			return err
		}
		if ctr.frameExcludeEvals2, err = expr.NewEvaluators(proc, spec.FrameExcludeEvals); err != nil {
			return err
		}
		ctr.frameExcludePointables = frame.NewPointableTupleReferenceOfSize(len(spec.FrameExcludeEvals))
		ctr.frameExcludePointable2 = pointable.New()
	}
	if w.frameOffsetExists {
		if ctr.frameOffsetEval, err = spec.FrameOffsetEval(proc); err != nil {
			return err
		}
		ctr.frameOffsetPointable = pointable.New()
	}
	return nil
}

func (w *WindowNestedPlansRuntime) String(buf *bytes.Buffer) {
	buf.WriteString(argName)
	buf.WriteString(fmt.Sprintf(": partition=%v order=%v", w.Spec.PartitionColumns, w.Spec.OrderColumns))
	if w.frameStartMonotone {
		buf.WriteString(" monotonic")
	}
}

func (w *WindowNestedPlansRuntime) Open() error {
	w.proc.Logger.Debug("window open",
		zap.String("operator", argName),
		zap.Int("mem-frames", w.Spec.MemSizeInFrames),
		zap.Bool("monotonic", w.frameStartMonotone))
	return w.ctr.appender.Open()
}

// NextFrame splits the frame on partition breaks. Tuples of the open
// partition are materialized, and every completed partition is produced.
// After an error the open partition is dropped and the operator is failed.
func (w *WindowNestedPlansRuntime) NextFrame(buf []byte) error {
	if err := w.nextFrame(buf); err != nil {
		w.ctr.isFailed = true
		w.ctr.cleanPartition()
		return err
	}
	return nil
}

func (w *WindowNestedPlansRuntime) nextFrame(buf []byte) error {
	if err := w.proc.CancelCheck(); err != nil {
		return err
	}
	ctr := w.ctr
	ctr.frames++
	ctr.frameIn.Inc()
	ctr.inAccessor.Reset(buf)
	n := ctr.inAccessor.TupleCount()
	ctr.tupleIn.Add(float64(n))

	begin := 0
	for i := 0; i < n; i++ {
		var same bool
		if i == 0 {
			if ctr.inPartition {
				ctr.lastAccessor.Reset(ctr.partition.Chunk(ctr.partition.ChunkCount() - 1))
				last := ctr.partition.TupleEndIdx(ctr.partition.ChunkCount() - 1)
				same = w.samePartition(ctr.lastAccessor, last, ctr.inAccessor, 0)
			}
		} else {
			same = w.samePartition(ctr.inAccessor, i-1, ctr.inAccessor, i)
		}
		if same {
			continue
		}
		if i > begin {
			if err := ctr.partition.Append(w.proc.Ctx, buf, begin, i-1); err != nil {
				return err
			}
		}
		if ctr.inPartition {
			if err := w.endPartition(); err != nil {
				return err
			}
		}
		w.beginPartition()
		begin = i
	}
	if n > begin {
		return ctr.partition.Append(w.proc.Ctx, buf, begin, n-1)
	}
	return nil
}

func (w *WindowNestedPlansRuntime) samePartition(a1 *frame.TupleAccessor, t1 int, a2 *frame.TupleAccessor, t2 int) bool {
	for i, cmp := range w.Spec.PartitionComparators {
		f := w.Spec.PartitionColumns[i]
		if cmp(a1.Field(t1, f), a2.Field(t2, f)) != 0 {
			return false
		}
	}
	return true
}

func (w *WindowNestedPlansRuntime) beginPartition() {
	ctr := w.ctr
	ctr.partition.Reset()
	ctr.inPartition = true
	ctr.hasPrevRow = false
	for _, r := range ctr.running {
		r.initPartition()
	}
	ctr.chunkIdxFrameStartGlobal = -1
	ctr.tBeginIdxFrameStartGlobal = -1
}

// endPartition produces the output tuples of the materialized partition.
func (w *WindowNestedPlansRuntime) endPartition() error {
	ctr := w.ctr
	ctr.partitions++
	v2.WindowPartitionCounter.Inc()
	v2.WindowPartitionSizeHistogram.Observe(float64(ctr.partition.Size()))

	// a failed partition is dropped as well
	defer ctr.cleanPartition()
	ctr.reader.Rewind()
	for i := 0; i < ctr.partition.ChunkCount(); i++ {
		chunk, err := ctr.reader.NextFrame()
		if err != nil {
			return err
		}
		if err = w.producePartitionTuples(i, chunk); err != nil {
			return err
		}
	}
	return nil
}

// produceTuple starts the output tuple of the current row with the
// projection columns and the running aggregates.
func (w *WindowNestedPlansRuntime) produceTuple(acc *frame.TupleAccessor, tIdx int) {
	ctr := w.ctr
	ctr.builder.Reset()
	for _, c := range w.Spec.ProjectionColumns {
		ctr.builder.AddField(acc, tIdx, c)
	}
	if len(ctr.running) == 0 {
		return
	}
	peer := ctr.hasPrevRow
	for i, c := range w.Spec.OrderColumns {
		if peer && w.Spec.OrderComparators[i](ctr.prevOrder[i].Bytes(), acc.Field(tIdx, c)) != 0 {
			peer = false
		}
	}
	for i, c := range w.Spec.OrderColumns {
		ctr.prevOrder[i].Set(append(ctr.prevOrder[i].Buffer(), acc.Field(tIdx, c)...))
	}
	ctr.hasPrevRow = true
	for _, r := range ctr.running {
		ctr.runningValue.Set(r.step(ctr.runningValue.Buffer(), peer))
		ctr.builder.AddFieldBytes(ctr.runningValue.Bytes())
	}
}

func (w *WindowNestedPlansRuntime) appendTuple() error {
	w.ctr.tupleOut.Inc()
	return w.ctr.appender.AppendBuilder(w.ctr.builder)
}

func (w *WindowNestedPlansRuntime) evaluationError(err error) error {
	if moerr.IsMoErrCode(err, moerr.ErrEvaluation) {
		return err
	}
	return moerr.NewEvaluation(w.proc.Ctx, argName, w.ctr.rows, err)
}

func (w *WindowNestedPlansRuntime) Fail() error {
	w.ctr.isFailed = true
	w.ctr.failForwarded = true
	v2.OperatorFailureCounter.WithLabelValues(argName).Inc()
	return w.ctr.appender.Fail()
}

// Close produces the last partition and flushes the output unless the
// operator failed. Downstream is always closed.
func (w *WindowNestedPlansRuntime) Close() (err error) {
	ctr := w.ctr
	defer func() {
		if cerr := ctr.appender.Close(); err == nil {
			err = cerr
		}
		w.Free()
		w.proc.Logger.Debug("window closed",
			zap.String("operator", argName),
			zap.Int64("frames", ctr.frames),
			zap.Int64("tuples", ctr.rows),
			zap.Int64("partitions", ctr.partitions),
			zap.Error(err))
	}()
	if !ctr.isFailed {
		if ctr.inPartition {
			err = w.endPartition()
		}
		if err == nil {
			err = ctr.appender.Write()
			v2.FrameFlushCounter.WithLabelValues(argName).Inc()
		}
	}
	if err != nil {
		w.proc.Logger.Error("window failed", zap.String("operator", argName), zap.Error(err))
	}
	if (err != nil || ctr.isFailed) && !ctr.failForwarded {
		_ = ctr.appender.Fail()
	}
	return err
}
