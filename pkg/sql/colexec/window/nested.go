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
	"github.com/matrixorigin/frameflow/pkg/container/types"
	"github.com/matrixorigin/frameflow/pkg/frame"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/expr"
	v2 "github.com/matrixorigin/frameflow/pkg/util/metric/v2"
)

// producePartitionTuples emits the rows of chunk chunkIdx. For every row
// the partition is scanned for the tuples of the row's window frame, from
// the partition start or, when the frame start is monotonic, from the
// chunk where the frame of the previous row started.
func (w *WindowNestedPlansRuntime) producePartitionTuples(chunkIdx int, chunk []byte) error {
	ctr := w.ctr
	reader := ctr.reader
	reader.SavePosition(PartitionPositionSlot)

	nChunks := ctr.partition.ChunkCount()
	isFirstChunkInPartition := chunkIdx == 0

	ctr.tAccess.Reset(chunk)
	tBeginIdx := ctr.partition.TupleBeginIdx(chunkIdx)
	tEndIdx := ctr.partition.TupleEndIdx(chunkIdx)

	for tIdx := tBeginIdx; tIdx <= tEndIdx; tIdx++ {
		isFirstTupleInPartition := isFirstChunkInPartition && tIdx == tBeginIdx
		ctr.tRef.Reset(ctr.tAccess, tIdx)
		ctr.rows++

		w.produceTuple(ctr.tAccess, tIdx)

		// frame bounds of the current row
		if w.frameStartExists {
			if err := evaluate(ctr.frameStartEvals, ctr.tRef, ctr.frameStartPointables); err != nil {
				return w.evaluationError(err)
			}
		}
		if w.frameEndExists {
			if err := evaluate(ctr.frameEndEvals, ctr.tRef, ctr.frameEndPointables); err != nil {
				return w.evaluationError(err)
			}
		}
		if w.frameExcludeExists {
			if err := evaluate(ctr.frameExcludeEvals, ctr.tRef, ctr.frameExcludePointables); err != nil {
				return w.evaluationError(err)
			}
		}
		toSkip := int64(0)
		if w.frameOffsetExists {
			if err := ctr.frameOffsetEval.Evaluate(ctr.tRef, ctr.frameOffsetPointable); err != nil {
				return w.evaluationError(err)
			}
			v, err := types.GetIntegerValue(ctr.frameOffsetPointable.Bytes())
			if err != nil {
				return w.evaluationError(err)
			}
			toSkip = v
		}
		toWrite := w.Spec.FrameMaxObjects

		w.nestedAggInit()

		frameStartForward := w.frameStartMonotone && ctr.chunkIdxFrameStartGlobal >= 0
		chunkIdxInnerStart, tBeginIdxInnerStart := 0, -1
		if frameStartForward {
			chunkIdxInnerStart, tBeginIdxInnerStart = ctr.chunkIdxFrameStartGlobal, ctr.tBeginIdxFrameStartGlobal
		}
		if chunkIdxInnerStart < nChunks {
			if frameStartForward && !isFirstTupleInPartition {
				reader.RestorePosition(FramePositionSlot)
				v2.WindowFrameScanResumeCounter.Inc()
			} else {
				reader.Rewind()
				v2.WindowFrameScanRewindCounter.Inc()
			}
		}

		chunkIdxFrameStartLocal, tBeginIdxFrameStartLocal := -1, -1

	frameLoop:
		for chunkIdxInner := chunkIdxInnerStart; chunkIdxInner < nChunks; chunkIdxInner++ {
			reader.SavePosition(TmpPositionSlot)
			frameInner, err := reader.NextFrame()
			if err != nil {
				return err
			}
			ctr.tAccess2.Reset(frameInner)

			tBeginIdxInner := ctr.partition.TupleBeginIdx(chunkIdxInner)
			if tBeginIdxInnerStart >= 0 {
				tBeginIdxInner = tBeginIdxInnerStart
				tBeginIdxInnerStart = -1
			}
			tEndIdxInner := ctr.partition.TupleEndIdx(chunkIdxInner)

			for tIdxInner := tBeginIdxInner; tIdxInner <= tEndIdxInner; tIdxInner++ {
				ctr.tRef2.Reset(ctr.tAccess2, tIdxInner)

				if w.frameStartExists || w.frameEndExists {
					if err = evaluate(ctr.frameValueEvals, ctr.tRef2, ctr.frameValuePointables); err != nil {
						return w.evaluationError(err)
					}
					if w.frameStartExists {
						if ctr.frameValueComparators.Compare(ctr.frameValuePointables, ctr.frameStartPointables) < 0 {
							continue
						}
						if chunkIdxFrameStartLocal < 0 {
							// the next row resumes from here
							chunkIdxFrameStartLocal = chunkIdxInner
							tBeginIdxFrameStartLocal = tIdxInner
							reader.CopyPosition(TmpPositionSlot, FramePositionSlot)
						}
					}
					if w.frameEndExists &&
						ctr.frameValueComparators.Compare(ctr.frameValuePointables, ctr.frameEndPointables) > 0 {
						break frameLoop
					}
				}
				if w.frameExcludeExists {
					excluded, err := w.isExcluded()
					if err != nil {
						return w.evaluationError(err)
					}
					if excluded {
						continue
					}
				}
				if toSkip > 0 {
					toSkip--
					continue
				}
				if toWrite != 0 {
					if err = w.nestedAggAggregate(); err != nil {
						return err
					}
				}
				if toWrite > 0 {
					toWrite--
				}
				if toWrite == 0 {
					break frameLoop
				}
			}
		}

		if w.frameStartMonotone {
			if chunkIdxFrameStartLocal >= 0 {
				ctr.chunkIdxFrameStartGlobal = chunkIdxFrameStartLocal
				ctr.tBeginIdxFrameStartGlobal = tBeginIdxFrameStartLocal
			} else {
				// no frame start in the partition, later rows find none either
				ctr.chunkIdxFrameStartGlobal = nChunks
				ctr.tBeginIdxFrameStartGlobal = 0
			}
		}

		if err := w.nestedAggOutputFinalResult(); err != nil {
			return err
		}
		if err := w.appendTuple(); err != nil {
			return err
		}
	}

	reader.RestorePosition(PartitionPositionSlot)
	return nil
}

// isExcluded compares the exclusion keys of the scanned tuple with those of
// the current row.
func (w *WindowNestedPlansRuntime) isExcluded() (bool, error) {
	ctr := w.ctr
	for i, e := range ctr.frameExcludeEvals2 {
		if err := e.Evaluate(ctr.tRef2, ctr.frameExcludePointable2); err != nil {
			return false, err
		}
		differs := w.Spec.FrameExcludeComparators[i](ctr.frameExcludePointables.Field(i).Bytes(),
			ctr.frameExcludePointable2.Bytes()) != 0
		if i >= w.Spec.FrameExcludeNegationStartIdx {
			differs = !differs
		}
		if differs {
			return false, nil
		}
	}
	return true, nil
}

func (w *WindowNestedPlansRuntime) nestedAggInit() {
	for _, fn := range w.ctr.nestedFns {
		fn.Reset()
	}
}

func (w *WindowNestedPlansRuntime) nestedAggAggregate() error {
	ctr := w.ctr
	for i, fn := range ctr.nestedFns {
		var v []byte
		if e := ctr.nestedEvals[i]; e != nil {
			if err := e.Evaluate(ctr.tRef2, ctr.nestedArg); err != nil {
				return w.evaluationError(err)
			}
			v = ctr.nestedArg.Bytes()
		} else {
			v = types.AppendNull(ctr.nestedOut[:0])
			ctr.nestedOut = v
		}
		if err := fn.Step(v); err != nil {
			return w.evaluationError(err)
		}
	}
	return nil
}

func (w *WindowNestedPlansRuntime) nestedAggOutputFinalResult() error {
	ctr := w.ctr
	for _, fn := range ctr.nestedFns {
		out, err := fn.Result(ctr.nestedOut[:0])
		if err != nil {
			return w.evaluationError(err)
		}
		ctr.nestedOut = out
		ctr.builder.AddFieldBytes(out)
	}
	return nil
}

func evaluate(evals []expr.Evaluator, ref frame.Reference, out *frame.PointableTupleReference) error {
	for i, e := range evals {
		if err := e.Evaluate(ref, out.Field(i)); err != nil {
			return err
		}
	}
	return nil
}
