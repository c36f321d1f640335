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

package agg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/container/types"
)

func ints(vs ...int64) [][]byte {
	res := make([][]byte, len(vs))
	for i, v := range vs {
		res[i] = types.AppendInt64(nil, v)
	}
	return res
}

func run(t *testing.T, name string, vs [][]byte) []byte {
	f, err := NewByName(name)
	require.NoError(t, err)
	for _, v := range vs {
		require.NoError(t, f.Step(v))
	}
	res, err := f.Result(nil)
	require.NoError(t, err)
	return res
}

// runSplit aggregates two halves separately and merges the partial results.
func runSplit(t *testing.T, name string, vs [][]byte) []byte {
	left, err := NewByName(name)
	require.NoError(t, err)
	right, err := NewByName(name)
	require.NoError(t, err)
	half := len(vs) / 2
	for _, v := range vs[:half] {
		require.NoError(t, left.Step(v))
	}
	for _, v := range vs[half:] {
		require.NoError(t, right.Step(v))
	}
	partial, err := right.PartialResult(nil)
	require.NoError(t, err)
	require.NoError(t, left.Merge(partial))
	res, err := left.Result(nil)
	require.NoError(t, err)
	return res
}

func TestAggregates(t *testing.T) {
	null := types.AppendNull(nil)
	vs := append(ints(3, 1, 4, 1, 5), null, types.AppendMissing(nil))
	kases := []struct {
		name string
		want string
	}{
		{"count", "5"},
		{"count_star", "7"},
		{"sum", "14"},
		{"min", "1"},
		{"max", "5"},
		{"avg", "2.8"},
		{"count_distinct", "4"},
		{"approx_count_distinct", "4"},
		{"listify", "[3, 1, 4, 1, 5, null, missing]"},
	}
	for _, k := range kases {
		require.Equal(t, k.want, types.ValueString(run(t, k.name, vs)), k.name)
		require.Equal(t, k.want, types.ValueString(runSplit(t, k.name, vs)), k.name)
	}
}

func TestEmptyInput(t *testing.T) {
	for _, name := range []string{"sum", "min", "max", "avg"} {
		require.Equal(t, "null", types.ValueString(run(t, name, nil)), name)
	}
	for _, name := range []string{"count", "count_star", "count_distinct"} {
		require.Equal(t, "0", types.ValueString(run(t, name, nil)), name)
	}
	require.Equal(t, "[]", types.ValueString(run(t, "listify", nil)))
}

func TestSumMixedAndOverflow(t *testing.T) {
	vs := [][]byte{types.AppendInt8(nil, 1), types.AppendFloat64(nil, 0.5), types.AppendInt32(nil, 2)}
	require.Equal(t, "3.5", types.ValueString(run(t, "sum", vs)))

	f, err := New(Sum)
	require.NoError(t, err)
	require.NoError(t, f.Step(types.AppendInt64(nil, math.MaxInt64)))
	err = f.Step(types.AppendInt64(nil, 1))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOutOfRange))

	err = f.Step(types.AppendString(nil, "x"))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
}

func TestMinMaxAcrossTypes(t *testing.T) {
	vs := [][]byte{types.AppendString(nil, "b"), types.AppendInt64(nil, 9), types.AppendString(nil, "a")}
	require.Equal(t, "9", types.ValueString(run(t, "min", vs)))
	require.Equal(t, `"b"`, types.ValueString(run(t, "max", vs)))
}

func TestReset(t *testing.T) {
	for op := range Names {
		f, err := New(op)
		require.NoError(t, err)
		require.NoError(t, f.Step(types.AppendInt64(nil, 7)))
		f.Reset()
		empty, err := New(op)
		require.NoError(t, err)
		got, err := f.Result(nil)
		require.NoError(t, err)
		want, err := empty.Result(nil)
		require.NoError(t, err)
		require.Equal(t, want, got, Names[op])
	}
}

func TestSize(t *testing.T) {
	f, err := New(Listify)
	require.NoError(t, err)
	for _, v := range ints(1, 2, 3) {
		require.NoError(t, f.Step(v))
	}
	require.Equal(t, int64(27), f.Size())

	f, err = New(CountDistinct)
	require.NoError(t, err)
	require.NoError(t, f.Step(types.AppendInt64(nil, 1)))
	require.Greater(t, f.Size(), int64(0))
	require.Error(t, f.Step(types.AppendFloat64(nil, 1)))
}

func TestUnknownAggregate(t *testing.T) {
	_, err := NewByName("median")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotSupported))
	_, err = New(100)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotSupported))
	op, ok := ParseName("avg")
	require.True(t, ok)
	require.Equal(t, Avg, op)
}
