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

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/lni/goutils/leaktest"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/compare"
	"github.com/matrixorigin/frameflow/pkg/container/types"
	"github.com/matrixorigin/frameflow/pkg/frame"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/agg"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/group"
	"github.com/matrixorigin/frameflow/pkg/vm/process"
)

var inDesc = types.NewRecordDescriptor(types.T_int64)

// framesOf packs keys into frames, one field per tuple.
func framesOf(t *testing.T, keys ...int64) [][]byte {
	out := frame.NewCollectingWriter()
	app := frame.NewTupleAppender(frame.NewFrame(64))
	for _, k := range keys {
		v := types.AppendInt64(nil, k)
		require.NoError(t, frame.AppendToWriter(out, app, []int{len(v)}, v))
	}
	require.NoError(t, app.Flush(out))
	return out.Frames
}

func countWriter(t *testing.T, out frame.Writer) frame.Writer {
	proc := process.New(context.Background(), 64)
	gw, err := group.NewPreclusteredGroupWriter(proc, []int{0},
		[]compare.Comparator{compare.New(types.T_int64, true, false)},
		group.NewSimpleAggregatorFactory([]group.AggSpec{{Op: agg.CountStar}}),
		inDesc, types.NewRecordDescriptor(types.T_int64, types.T_int64), out, false, false, -1)
	require.NoError(t, err)
	return gw
}

type panicWriter struct {
	frame.CollectingWriter
}

func (w *panicWriter) NextFrame([]byte) error {
	panic("bad frame")
}

func TestRunnerRunsIndependentTasks(t *testing.T) {
	defer leaktest.AfterTest(t)()

	r, err := NewRunner(4)
	require.NoError(t, err)
	defer r.Release()

	outs := make([]*frame.CollectingWriter, 8)
	tasks := make([]Task, len(outs))
	for i := range tasks {
		outs[i] = frame.NewCollectingWriter()
		keys := make([]int64, 0, 10)
		for j := 0; j < 10; j++ {
			keys = append(keys, int64(j/(i+1)))
		}
		tasks[i] = Task{
			Name:     fmt.Sprintf("task-%d", i),
			Source:   &FrameSource{Frames: framesOf(t, keys...)},
			Operator: countWriter(t, outs[i]),
		}
	}
	require.NoError(t, r.Run(context.Background(), tasks))

	for i, out := range outs {
		require.True(t, out.Closed)
		groups := (10 + i) / (i + 1)
		require.Equal(t, groups, out.TupleCount(), "task %d", i)
	}
	require.Zero(t, r.Running())
}

func TestRunnerReturnsFirstError(t *testing.T) {
	defer leaktest.AfterTest(t)()

	r, err := NewRunner(2)
	require.NoError(t, err)
	defer r.Release()

	failing := frame.NewCollectingWriter()
	failing.FailAfter = 0
	good := frame.NewCollectingWriter()
	err = r.Run(context.Background(), []Task{
		{Name: "good", Source: &FrameSource{Frames: framesOf(t, 1, 1, 2)}, Operator: countWriter(t, good)},
		{Name: "bad", Source: &FrameSource{Frames: framesOf(t, 1, 2)}, Operator: countWriter(t, failing)},
	})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOperatorFail), "%v", err)
	require.Equal(t, 2, good.TupleCount())
	require.True(t, failing.Failed)
	require.True(t, failing.Closed)
}

// runningSource records how many tasks the runner reports while it runs.
type runningSource struct {
	r    *Runner
	seen int
}

func (s *runningSource) Run(w frame.Writer) error {
	s.seen = s.r.Running()
	return (&FrameSource{}).Run(w)
}

func TestRunnerCountsRunningTasks(t *testing.T) {
	defer leaktest.AfterTest(t)()

	r, err := NewRunner(2)
	require.NoError(t, err)
	defer r.Release()
	require.Zero(t, r.Running())

	src := &runningSource{r: r}
	require.NoError(t, r.Run(context.Background(), []Task{{Name: "one", Source: src, Operator: frame.NewCollectingWriter()}}))
	require.Equal(t, 1, src.seen)
	require.Zero(t, r.Running())
}

func TestRunnerRecoversPanics(t *testing.T) {
	defer leaktest.AfterTest(t)()

	r, err := NewRunner(1)
	require.NoError(t, err)
	defer r.Release()

	err = r.Run(context.Background(), []Task{
		{Name: "panic", Source: &FrameSource{Frames: framesOf(t, 1)}, Operator: &panicWriter{}},
	})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal), "%v", err)
}

func TestRunnerCancelled(t *testing.T) {
	defer leaktest.AfterTest(t)()

	r, err := NewRunner(1)
	require.NoError(t, err)
	defer r.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := frame.NewCollectingWriter()
	err = r.Run(ctx, []Task{{Source: &FrameSource{Frames: framesOf(t, 1)}, Operator: out}})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrQueryInterrupted))
	require.False(t, out.Opened)
}

func TestDecoderIsSource(t *testing.T) {
	var stream bytes.Buffer
	enc := frame.NewEncoder(&stream, true)
	for _, buf := range framesOf(t, 1, 2, 2, 3) {
		require.NoError(t, enc.NextFrame(buf))
	}
	require.NoError(t, enc.Close())

	var src Source = frame.NewDecoder(&stream, true)
	out := frame.NewCollectingWriter()
	require.NoError(t, src.Run(countWriter(t, out)))
	require.Equal(t, 3, out.TupleCount())
}

func TestNewRunnerRejectsNoWorkers(t *testing.T) {
	_, err := NewRunner(0)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))
}
