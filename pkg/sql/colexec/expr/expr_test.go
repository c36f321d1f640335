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
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/container/pointable"
	"github.com/matrixorigin/frameflow/pkg/container/types"
	"github.com/matrixorigin/frameflow/pkg/frame"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/agg"
	"github.com/matrixorigin/frameflow/pkg/vm/process"
)

func tuple(vs ...[]byte) frame.Reference {
	ps := make([]*pointable.Pointable, len(vs))
	for i, v := range vs {
		ps[i] = pointable.New()
		ps[i].SetBytes(v)
	}
	return frame.NewPointableTupleReference(ps...)
}

func eval(t *testing.T, f Factory, ref frame.Reference) ([]byte, error) {
	e, err := f(process.New(context.Background(), 1024))
	require.NoError(t, err)
	out := pointable.New()
	if err = e.Evaluate(ref, out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func TestColumnAndConstant(t *testing.T) {
	ref := tuple(types.AppendInt64(nil, 1), types.AppendString(nil, "x"))
	v, err := eval(t, Column(1), ref)
	require.NoError(t, err)
	require.Equal(t, types.AppendString(nil, "x"), v)

	_, err = eval(t, Column(5), ref)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))

	v, err = eval(t, Constant(types.AppendNull(nil)), ref)
	require.NoError(t, err)
	require.Equal(t, "null", types.ValueString(v))
}

func TestArith(t *testing.T) {
	kases := []struct {
		f    Factory
		row  frame.Reference
		want string
	}{
		{Sub(Column(0), Constant(types.AppendInt64(nil, 1))), tuple(types.AppendInt32(nil, 5)), "4"},
		{Add(Column(0), Constant(types.AppendInt8(nil, 2))), tuple(types.AppendInt16(nil, -5)), "-3"},
		{Add(Column(0), Constant(types.AppendFloat64(nil, 0.5))), tuple(types.AppendInt64(nil, 1)), "1.5"},
		{Sub(Column(0), Constant(types.AppendInt64(nil, 1))), tuple(types.AppendNull(nil)), "null"},
		{Sub(Column(0), Constant(types.AppendNull(nil))), tuple(types.AppendMissing(nil)), "missing"},
		{Add(Column(0), Constant(types.AppendInt64(nil, 1))), tuple(types.AppendDate(nil, 0)), "1970-01-02"},
		{Sub(Column(0), Constant(types.AppendDayTimeDuration(nil, 1000))), tuple(types.AppendDatetime(nil, 1000)), "1970-01-01 00:00:00.000"},
	}
	for i, k := range kases {
		v, err := eval(t, k.f, k.row)
		require.NoError(t, err, "case %d", i)
		require.Equal(t, k.want, types.ValueString(v), "case %d", i)
	}

	_, err := eval(t, Add(Column(0), Constant(types.AppendInt64(nil, 1))), tuple(types.AppendInt64(nil, math.MaxInt64)))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOutOfRange))
	_, err = eval(t, Sub(Column(0), Constant(types.AppendInt64(nil, 1))), tuple(types.AppendInt64(nil, math.MinInt64)))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOutOfRange))
	_, err = eval(t, Add(Column(0), Constant(types.AppendInt64(nil, 1))), tuple(types.AppendString(nil, "a")))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
}

func TestFailAt(t *testing.T) {
	boom := moerr.NewInternalError(context.Background(), "boom")
	e, err := FailAt(3, Column(0), boom)(process.New(context.Background(), 1024))
	require.NoError(t, err)
	ref := tuple(types.AppendInt64(nil, 1))
	out := pointable.New()
	for i := 1; i <= 5; i++ {
		err = e.Evaluate(ref, out)
		if i == 3 {
			require.Equal(t, boom, err)
		} else {
			require.NoError(t, err)
		}
	}
}

func TestScalarAggregate(t *testing.T) {
	arr := types.AppendArray(nil, [][]byte{
		types.AppendInt64(nil, 1), types.AppendNull(nil), types.AppendInt64(nil, 4),
	})
	v, err := eval(t, ScalarAggregate(agg.Sum, Column(0)), tuple(arr))
	require.NoError(t, err)
	require.Equal(t, "5", types.ValueString(v))

	v, err = eval(t, ScalarAggregate(agg.Count, Column(0)), tuple(arr))
	require.NoError(t, err)
	require.Equal(t, "2", types.ValueString(v))

	v, err = eval(t, ScalarAggregate(agg.Sum, Column(0)), tuple(types.AppendInt64(nil, 1)))
	require.NoError(t, err)
	require.Equal(t, "null", types.ValueString(v))

	_, err = ScalarAggregate(99, Column(0))(process.New(context.Background(), 1024))
	require.Error(t, err)
}

func TestNewEvaluators(t *testing.T) {
	proc := process.New(context.Background(), 1024)
	evals, err := NewEvaluators(proc, []Factory{Column(0), Constant(types.AppendInt8(nil, 1))})
	require.NoError(t, err)
	require.Len(t, evals, 2)

	_, err = NewEvaluators(proc, []Factory{ScalarAggregate(99, Column(0))})
	require.Error(t, err)
}
