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
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/compare"
	"github.com/matrixorigin/frameflow/pkg/container/types"
	"github.com/matrixorigin/frameflow/pkg/frame"
	v2 "github.com/matrixorigin/frameflow/pkg/util/metric/v2"
	"github.com/matrixorigin/frameflow/pkg/vm/process"
)

// NewPreclusteredGroupWriter builds a group writer pushing its result to
// writer. framesLimit is the number of frames the operator may use, input
// and output frame included; a negative limit means unbounded.
func NewPreclusteredGroupWriter(proc *process.Process, groupFields []int, comparators []compare.Comparator,
	aggFactory AggregatorFactory, inDesc, outDesc *types.RecordDescriptor, writer frame.Writer,
	outputPartial, groupAll bool, framesLimit int) (*PreclusteredGroupWriter, error) {
	if framesLimit >= 0 && framesLimit <= 2 {
		return nil, moerr.NewIllegalMemoryBudget(proc.Ctx, "GROUP BY",
			int64(framesLimit)*int64(proc.FrameSize), 2*int64(proc.FrameSize))
	}
	if len(comparators) > len(groupFields) {
		return nil, moerr.NewInvalidArg(proc.Ctx, "comparators", len(comparators))
	}

	// input and output frames are not available to the aggregator
	memoryLimit := int64(-1)
	if framesLimit > 0 {
		memoryLimit = int64(framesLimit-2) * int64(proc.FrameSize)
	}
	aggregator, err := aggFactory.CreateAggregator(proc, inDesc, outDesc, groupFields, memoryLimit)
	if err != nil {
		return nil, err
	}

	ctr := &container{
		aggregator:   aggregator,
		state:        aggregator.CreateAggregateStates(),
		copyFrame:    proc.AllocateVSizeFrame(),
		inAccessor:   frame.NewTupleAccessor(inDesc),
		copyAccessor: frame.NewTupleAccessor(inDesc),
		appender:     frame.NewAppenderWrapper(frame.NewTupleAppender(proc.AllocateVSizeFrame()), writer),
		builder:      frame.NewTupleBuilder(outDesc.FieldCount()),
		frameIn:      v2.FrameInCounter(opName),
		tupleIn:      v2.TupleInCounter(opName),
		tupleOut:     v2.TupleOutCounter(opName),
	}
	ctr.copyAccessor.Reset(ctr.copyFrame.Buffer())
	return &PreclusteredGroupWriter{
		ctr:           ctr,
		proc:          proc,
		GroupFields:   groupFields,
		Comparators:   comparators,
		OutputPartial: outputPartial,
		GroupAll:      groupAll,
		MemoryLimit:   memoryLimit,
	}, nil
}

func (w *PreclusteredGroupWriter) String(buf *bytes.Buffer) {
	buf.WriteString("preclustered_group(")
	buf.WriteString(fmt.Sprintf("keys=%v", w.GroupFields))
	if w.OutputPartial {
		buf.WriteString(", partial")
	}
	if w.GroupAll {
		buf.WriteString(", all")
	}
	buf.WriteString(")")
}

func (w *PreclusteredGroupWriter) Open() error {
	w.ctr.first = true
	w.proc.Logger.Debug("group writer open",
		zap.String("operator", opName),
		zap.Ints("keys", w.GroupFields),
		zap.Int64("memory-limit", w.MemoryLimit))
	return w.ctr.appender.Open()
}

// NextFrame folds the tuples of buf into the open group. After an error the
// writer is failed: Close emits nothing and fails downstream.
func (w *PreclusteredGroupWriter) NextFrame(buf []byte) error {
	if err := w.nextFrame(buf); err != nil {
		w.ctr.isFailed = true
		return err
	}
	return nil
}

func (w *PreclusteredGroupWriter) nextFrame(buf []byte) error {
	if err := w.proc.CancelCheck(); err != nil {
		return err
	}
	ctr := w.ctr
	ctr.inAccessor.Reset(buf)
	n := ctr.inAccessor.TupleCount()
	ctr.frames++
	ctr.frameIn.Inc()
	if n == 0 {
		return nil
	}
	for i := 0; i < n; i++ {
		var err error
		switch {
		case ctr.first:
			err = w.initGroup(ctr.inAccessor, i)
			ctr.first = false
		case i == 0:
			err = w.switchGroupIfRequired(ctr.copyAccessor, ctr.copyAccessor.TupleCount()-1, ctr.inAccessor, i)
		default:
			err = w.switchGroupIfRequired(ctr.inAccessor, i-1, ctr.inAccessor, i)
		}
		if err != nil {
			return err
		}
	}
	ctr.tuples += int64(n)
	ctr.tupleIn.Add(float64(n))

	// the last tuple of this frame is compared with the first of the next
	if err := frame.CopyFrame(ctr.copyFrame, buf); err != nil {
		return err
	}
	ctr.copyAccessor.Reset(ctr.copyFrame.Buffer())
	return nil
}

func (w *PreclusteredGroupWriter) initGroup(acc *frame.TupleAccessor, tIdx int) error {
	ctr := w.ctr
	ctr.builder.Reset()
	for _, f := range w.GroupFields {
		ctr.builder.AddField(acc, tIdx, f)
	}
	return ctr.aggregator.Init(ctr.builder, acc, tIdx, ctr.state)
}

func (w *PreclusteredGroupWriter) switchGroupIfRequired(prev *frame.TupleAccessor, prevIdx int,
	curr *frame.TupleAccessor, currIdx int) error {
	if SameGroup(prev, prevIdx, curr, currIdx, w.GroupFields, w.Comparators) {
		return w.ctr.aggregator.Aggregate(curr, currIdx, w.ctr.state)
	}
	if err := w.writeOutput(prev, prevIdx); err != nil {
		return err
	}
	return w.initGroup(curr, currIdx)
}

func (w *PreclusteredGroupWriter) writeOutput(last *frame.TupleAccessor, lastIdx int) error {
	ctr := w.ctr
	ctr.builder.Reset()
	if lastIdx >= 0 {
		for _, f := range w.GroupFields {
			ctr.builder.AddField(last, lastIdx, f)
		}
	}
	var hasOutput bool
	var err error
	if w.OutputPartial {
		hasOutput, err = ctr.aggregator.OutputPartialResult(ctr.builder, last, lastIdx, ctr.state)
	} else {
		hasOutput, err = ctr.aggregator.OutputFinalResult(ctr.builder, last, lastIdx, ctr.state)
	}
	if err != nil || !hasOutput {
		return err
	}
	ctr.groups++
	v2.GroupEmittedCounter.Inc()
	ctr.tupleOut.Inc()
	return ctr.appender.AppendBuilder(ctr.builder)
}

// SameGroup reports whether tuple t1 of a1 and tuple t2 of a2 agree on the
// group fields. Only the fields that have a comparator are compared.
func SameGroup(a1 *frame.TupleAccessor, t1 int, a2 *frame.TupleAccessor, t2 int,
	groupFields []int, comparators []compare.Comparator) bool {
	for i, cmp := range comparators {
		f := groupFields[i]
		if cmp(a1.Field(t1, f), a2.Field(t2, f)) != 0 {
			return false
		}
	}
	return true
}

func (w *PreclusteredGroupWriter) Fail() error {
	w.ctr.isFailed = true
	w.ctr.failForwarded = true
	v2.OperatorFailureCounter.WithLabelValues(opName).Inc()
	return w.ctr.appender.Fail()
}

// Close emits the open group, or the single group of an empty input when
// GroupAll is set, unless the writer failed. Downstream is always closed.
func (w *PreclusteredGroupWriter) Close() (err error) {
	ctr := w.ctr
	defer func() {
		if cerr := ctr.appender.Close(); err == nil {
			err = cerr
		}
		w.Free(err != nil || ctr.isFailed)
		w.proc.Logger.Debug("group writer closed",
			zap.String("operator", opName),
			zap.Int64("frames", ctr.frames),
			zap.Int64("tuples", ctr.tuples),
			zap.Int64("groups", ctr.groups),
			zap.Error(err))
	}()
	if !ctr.isFailed && (!ctr.first || w.GroupAll) {
		if err = w.writeOutput(ctr.copyAccessor, ctr.copyAccessor.TupleCount()-1); err == nil {
			err = ctr.appender.Write()
			v2.FrameFlushCounter.WithLabelValues(opName).Inc()
		}
	}
	if err != nil {
		w.proc.Logger.Error("group writer failed to flush", zap.String("operator", opName), zap.Error(err))
	}
	if (err != nil || ctr.isFailed) && !ctr.failForwarded {
		_ = ctr.appender.Fail()
	}
	return err
}
