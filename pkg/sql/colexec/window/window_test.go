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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/compare"
	"github.com/matrixorigin/frameflow/pkg/container/types"
	"github.com/matrixorigin/frameflow/pkg/frame"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/agg"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/expr"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/group"
	"github.com/matrixorigin/frameflow/pkg/vm/process"
)

const testFrameSize = 128

// partition, order value, value, row id
var inDesc = types.NewRecordDescriptor(types.T_int64, types.T_int64, types.T_int64, types.T_int64)

var asc = compare.New(types.T_any, true, false)

type row struct {
	part, ord, val int64
}

func one() []byte { return types.AppendInt64(nil, 1) }

func two() []byte { return types.AppendInt64(nil, 2) }

// push packs rows two per frame, giving each a row id, and pushes them.
func push(w frame.Writer, rows []row) error {
	app := frame.NewTupleAppender(frame.NewFrame(testFrameSize))
	tb := frame.NewTupleBuilder(4)
	for i, r := range rows {
		tb.Reset()
		for _, v := range []int64{r.part, r.ord, r.val, int64(i)} {
			tb.AddFieldBytes(types.AppendInt64(nil, v))
		}
		if err := frame.AppendToWriter(w, app, tb.FieldEndOffsets(), tb.ByteArray()); err != nil {
			return err
		}
	}
	return app.Flush(w)
}

func baseSpec() WindowSpec {
	return WindowSpec{
		PartitionColumns:     []int{0},
		PartitionComparators: []compare.Comparator{asc},
		FrameMaxObjects:      -1,
		NestedAggs:           []group.AggSpec{{Op: agg.Sum, Arg: expr.Column(2)}},
	}
}

func rangeSpec(start, end expr.Factory, monotonic bool) WindowSpec {
	spec := baseSpec()
	spec.FrameValueEvals = []expr.Factory{expr.Column(1)}
	spec.FrameValueComparators = []compare.Comparator{asc}
	spec.FrameStartEvals = []expr.Factory{start}
	spec.FrameEndEvals = []expr.Factory{end}
	spec.FrameStartIsMonotonic = monotonic
	return spec
}

func outDesc(spec WindowSpec) *types.RecordDescriptor {
	n := len(spec.ProjectionColumns) + len(spec.RunningAggs) + len(spec.NestedAggs)
	ts := make([]types.T, n)
	for i := range ts {
		ts[i] = types.T_any
	}
	return types.NewRecordDescriptor(ts...)
}

func run(t *testing.T, spec WindowSpec, rows []row) [][]string {
	proc := process.New(context.Background(), testFrameSize)
	out := frame.NewCollectingWriter()
	w, err := NewWindowNestedPlansRuntime(proc, spec, inDesc, out)
	require.NoError(t, err)
	require.NoError(t, w.Open())
	require.NoError(t, push(w, rows))
	require.NoError(t, w.Close())
	require.True(t, out.Closed)

	var res [][]string
	for _, tuple := range out.Tuples(outDesc(spec)) {
		var fields []string
		for _, f := range tuple {
			fields = append(fields, types.ValueString(f))
		}
		res = append(res, fields)
	}
	return res
}

// column returns field i of every output row.
func column(res [][]string, i int) []string {
	col := make([]string, len(res))
	for j, r := range res {
		col[j] = r[i]
	}
	return col
}

func ordRows(part int64, ords ...int64) []row {
	rows := make([]row, len(ords))
	for i, o := range ords {
		rows[i] = row{part: part, ord: o, val: o}
	}
	return rows
}

func TestRangePrecedingMonotonicEquivalence(t *testing.T) {
	rows := append(ordRows(0, 1, 2, 2, 3, 4), ordRows(1, 1, 2, 2, 3, 4)...)
	want := []string{"1", "5", "5", "7", "7", "1", "5", "5", "7", "7"}
	for _, monotonic := range []bool{false, true} {
		spec := rangeSpec(expr.Sub(expr.Column(1), expr.Constant(one())), expr.Column(1), monotonic)
		require.Equal(t, want, column(run(t, spec, rows), 0), "monotonic %v", monotonic)
	}
}

func TestRangeFollowingPastPartitionEnd(t *testing.T) {
	rows := ordRows(0, 1, 2, 3, 10)
	want := []string{"5", "3", "null", "null"}
	for _, monotonic := range []bool{false, true} {
		spec := rangeSpec(expr.Add(expr.Column(1), expr.Constant(one())),
			expr.Add(expr.Column(1), expr.Constant(two())), monotonic)
		require.Equal(t, want, column(run(t, spec, rows), 0), "monotonic %v", monotonic)
	}
}

func TestRangePeers(t *testing.T) {
	rows := ordRows(0, 10, 10, 20, 30)
	spec := rangeSpec(expr.Column(1), expr.Column(1), true)
	require.Equal(t, []string{"20", "20", "20", "30"}, column(run(t, spec, rows), 0))
}

func TestRowsCurrentRow(t *testing.T) {
	rows := ordRows(0, 10, 10, 20, 30)
	want := []string{"10", "10", "20", "30"}

	// the row id is the frame value
	spec := baseSpec()
	spec.FrameValueEvals = []expr.Factory{expr.Column(3)}
	spec.FrameValueComparators = []compare.Comparator{asc}
	spec.FrameStartEvals = []expr.Factory{expr.Column(3)}
	spec.FrameEndEvals = []expr.Factory{expr.Column(3)}
	require.Equal(t, want, column(run(t, spec, rows), 0))

	// skip the rows before the current one, take one
	spec = baseSpec()
	spec.FrameOffsetEval = expr.Column(3)
	spec.FrameMaxObjects = 1
	require.Equal(t, want, column(run(t, spec, rows), 0))
}

func TestOffsetAndMaxObjects(t *testing.T) {
	rows := ordRows(0, 1, 2, 3, 4, 5)

	spec := baseSpec()
	require.Equal(t, []string{"15", "15", "15", "15", "15"}, column(run(t, spec, rows), 0))

	spec.FrameOffsetEval = expr.Constant(one())
	spec.FrameMaxObjects = 2
	require.Equal(t, []string{"5", "5", "5", "5", "5"}, column(run(t, spec, rows), 0))

	spec.FrameOffsetEval = expr.Constant(types.AppendInt64(nil, 10))
	spec.FrameMaxObjects = -1
	require.Equal(t, []string{"null", "null", "null", "null", "null"}, column(run(t, spec, rows), 0))
}

func TestExclusion(t *testing.T) {
	rows := []row{{0, 7, 1}, {0, 7, 2}, {0, 7, 4}}

	// EXCLUDE CURRENT ROW over three peers
	spec := rangeSpec(expr.Column(1), expr.Column(1), false)
	spec.FrameExcludeEvals = []expr.Factory{expr.Column(3)}
	spec.FrameExcludeComparators = []compare.Comparator{asc}
	spec.FrameExcludeNegationStartIdx = 1
	require.Equal(t, []string{"6", "5", "3"}, column(run(t, spec, rows), 0))

	// EXCLUDE TIES: same order value but another row
	spec.FrameExcludeEvals = []expr.Factory{expr.Column(1), expr.Column(3)}
	spec.FrameExcludeComparators = []compare.Comparator{asc, asc}
	spec.FrameExcludeNegationStartIdx = 1
	require.Equal(t, []string{"1", "2", "4"}, column(run(t, spec, rows), 0))

	// everything negated keeps only the current row
	spec.FrameExcludeEvals = []expr.Factory{expr.Column(3)}
	spec.FrameExcludeComparators = []compare.Comparator{asc}
	spec.FrameExcludeNegationStartIdx = 0
	require.Equal(t, []string{"1", "2", "4"}, column(run(t, spec, rows), 0))
}

func TestRunningAggregates(t *testing.T) {
	rows := append(ordRows(0, 1, 2, 2, 3), ordRows(1, 5, 5)...)
	spec := baseSpec()
	spec.OrderColumns = []int{1}
	spec.OrderComparators = []compare.Comparator{asc}
	spec.ProjectionColumns = []int{1}
	spec.RunningAggs = []int{RowNumber, Rank, DenseRank}
	spec.NestedAggs = nil
	require.Equal(t, [][]string{
		{"1", "1", "1", "1"},
		{"2", "2", "2", "2"},
		{"2", "3", "2", "2"},
		{"3", "4", "4", "3"},
		{"5", "1", "1", "1"},
		{"5", "2", "1", "1"},
	}, run(t, spec, rows))

	op, ok := ParseRunningName("dense_rank")
	require.True(t, ok)
	require.Equal(t, DenseRank, op)
}

func TestNoPartitionColumns(t *testing.T) {
	rows := append(ordRows(0, 1, 2), ordRows(1, 3)...)
	spec := baseSpec()
	spec.PartitionColumns = nil
	spec.PartitionComparators = nil
	spec.ProjectionColumns = []int{0}
	require.Equal(t, [][]string{{"0", "6"}, {"0", "6"}, {"1", "6"}}, run(t, spec, rows))
}

func TestEvaluationFailure(t *testing.T) {
	boom := errors.New("boom")
	// five rows in partition 0, the sixth opens partition 1 and triggers
	// the production of partition 0
	rows := append(ordRows(0, 1, 2, 3, 4, 5), ordRows(1, 6)...)
	newSpec := func() WindowSpec {
		spec := rangeSpec(expr.FailAt(3, expr.Column(1), boom), expr.Column(1), true)
		spec.ProjectionColumns = []int{2}
		return spec
	}

	t.Run("failed operator emits nothing", func(t *testing.T) {
		proc := process.New(context.Background(), testFrameSize)
		out := frame.NewCollectingWriter()
		w, err := NewWindowNestedPlansRuntime(proc, newSpec(), inDesc, out)
		require.NoError(t, err)
		require.NoError(t, w.Open())
		err = push(w, rows)
		require.True(t, moerr.IsMoErrCode(err, moerr.ErrEvaluation), "%v", err)
		require.ErrorIs(t, err, boom)
		// rows 1 and 2 are waiting in the output frame
		require.Equal(t, 2, w.ctr.appender.Appender().TupleCount())

		require.NoError(t, w.Fail())
		require.NoError(t, w.Close())
		require.True(t, out.Failed)
		require.True(t, out.Closed)
		require.Zero(t, out.TupleCount())
	})

	t.Run("close without fail emits nothing", func(t *testing.T) {
		proc := process.New(context.Background(), testFrameSize)
		out := frame.NewCollectingWriter()
		w, err := NewWindowNestedPlansRuntime(proc, newSpec(), inDesc, out)
		require.NoError(t, err)
		require.NoError(t, w.Open())
		require.Error(t, push(w, rows))
		require.NoError(t, w.Close())
		require.Zero(t, out.TupleCount())
		require.True(t, out.Failed)
		require.True(t, out.Closed)
	})
}

func TestMemoryBudget(t *testing.T) {
	proc := process.New(context.Background(), testFrameSize)
	for _, frames := range []int{1, 2, 3, 4} {
		spec := baseSpec()
		spec.MemSizeInFrames = frames
		_, err := NewWindowNestedPlansRuntime(proc, spec, inDesc, frame.NewCollectingWriter())
		require.True(t, moerr.IsMoErrCode(err, moerr.ErrIllegalMemoryBudget), "frames %d", frames)
	}

	// one materialized chunk: a partition of two frames does not fit
	spec := baseSpec()
	spec.MemSizeInFrames = 5
	w, err := NewWindowNestedPlansRuntime(proc, spec, inDesc, frame.NewCollectingWriter())
	require.NoError(t, err)
	require.NoError(t, w.Open())
	err = push(w, ordRows(0, 1, 2, 3))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM), "%v", err)
	require.NoError(t, w.Fail())
	require.NoError(t, w.Close())

	// the open partition is dropped when materializing it fails
	out := frame.NewCollectingWriter()
	w, err = NewWindowNestedPlansRuntime(proc, spec, inDesc, out)
	require.NoError(t, err)
	require.NoError(t, w.Open())
	err = push(w, ordRows(0, 1, 2, 3))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM), "%v", err)
	require.False(t, w.ctr.inPartition)
	require.NoError(t, w.Close())
	require.Zero(t, out.TupleCount())
	require.True(t, out.Failed)
	require.True(t, out.Closed)

	// the same rows fit when every partition fits into a chunk
	require.Equal(t, []string{"1", "2", "3"}, column(run(t, spec, []row{{0, 1, 1}, {1, 2, 2}, {2, 3, 3}}), 0))
}

func TestBadSpec(t *testing.T) {
	proc := process.New(context.Background(), testFrameSize)
	spec := baseSpec()
	spec.PartitionComparators = nil
	_, err := NewWindowNestedPlansRuntime(proc, spec, inDesc, frame.NewCollectingWriter())
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))

	spec = baseSpec()
	spec.RunningAggs = []int{42}
	_, err = NewWindowNestedPlansRuntime(proc, spec, inDesc, frame.NewCollectingWriter())
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotSupported))
}

func TestCancelled(t *testing.T) {
	proc := process.New(context.Background(), testFrameSize)
	w, err := NewWindowNestedPlansRuntime(proc, baseSpec(), inDesc, frame.NewCollectingWriter())
	require.NoError(t, err)
	require.NoError(t, w.Open())
	proc.Cancel()
	err = push(w, ordRows(0, 1))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrQueryInterrupted))
	require.NoError(t, w.Fail())
	require.NoError(t, w.Close())
}
