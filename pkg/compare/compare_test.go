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

package compare

import (
	"math"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/frameflow/pkg/container/pointable"
	"github.com/matrixorigin/frameflow/pkg/container/types"
	"github.com/matrixorigin/frameflow/pkg/frame"
)

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

// sampleValues covers every tag, several values per tag.
func sampleValues() [][]byte {
	var vs [][]byte
	vs = append(vs, types.AppendMissing(nil), types.AppendNull(nil), nil)
	vs = append(vs, types.AppendBool(nil, false), types.AppendBool(nil, true))
	for _, v := range []int64{math.MinInt8, -1, 0, 3, math.MaxInt8} {
		vs = append(vs, types.AppendInt8(nil, int8(v)), types.AppendInt16(nil, int16(v)),
			types.AppendInt32(nil, int32(v)), types.AppendInt64(nil, v))
	}
	vs = append(vs, types.AppendInt64(nil, math.MaxInt64), types.AppendInt64(nil, math.MinInt64))
	for _, v := range []float64{math.Inf(-1), -2.5, math.Copysign(0, -1), 0, 0.5, 3, 1e30, math.Inf(1), math.NaN()} {
		vs = append(vs, types.AppendFloat32(nil, float32(v)), types.AppendFloat64(nil, v))
	}
	for _, s := range []string{"", "a", "ab", "b", "é", "Zebra"} {
		vs = append(vs, types.AppendString(nil, s), types.AppendBinary(nil, []byte(s)))
	}
	vs = append(vs,
		types.AppendDate(nil, -1), types.AppendDate(nil, 19000),
		types.AppendTime(nil, 1000), types.AppendDatetime(nil, 1),
		types.AppendYearMonthDuration(nil, 13), types.AppendDayTimeDuration(nil, -5),
		types.AppendUUID(nil, uuid.MustParse("00000000-0000-0000-0000-000000000001")),
		types.AppendUUID(nil, uuid.MustParse("f0000000-0000-0000-0000-000000000000")),
		types.AppendArray(nil, nil),
		types.AppendArray(nil, [][]byte{types.AppendInt64(nil, 1)}),
		types.AppendArray(nil, [][]byte{types.AppendInt64(nil, 1), types.AppendNull(nil)}),
		types.AppendArray(nil, [][]byte{types.AppendFloat64(nil, 1.5)}),
		types.AppendObject(nil, []byte{1}),
		[]byte{0xf0, 1, 2},
	)
	return vs
}

func TestGenericTotalOrder(t *testing.T) {
	vs := sampleValues()
	Convey("the generic comparator is a total order over all tags", t, func() {
		for _, a := range vs {
			So(Generic(a, a), ShouldEqual, 0)
			for _, b := range vs {
				So(sign(Generic(a, b)), ShouldEqual, -sign(Generic(b, a)))
				for _, c := range vs {
					ab, bc := Generic(a, b), Generic(b, c)
					if ab <= 0 && bc <= 0 {
						So(Generic(a, c), ShouldBeLessThanOrEqualTo, 0)
					}
					if ab == 0 && bc == 0 {
						So(Generic(a, c), ShouldEqual, 0)
					}
				}
			}
		}
	})

	Convey("descending is the negation of ascending", t, func() {
		desc := New(types.T_any, false, false)
		for _, a := range vs {
			for _, b := range vs {
				So(desc(a, b), ShouldEqual, -Generic(a, b))
			}
		}
	})
}

func TestTypedComparatorsAgreeWithGeneric(t *testing.T) {
	vs := sampleValues()
	Convey("typed comparators order like the generic one", t, func() {
		for _, typ := range []types.T{types.T_bool, types.T_int8, types.T_int32, types.T_int64,
			types.T_float32, types.T_float64, types.T_string, types.T_binary, types.T_date,
			types.T_uuid, types.T_array, types.T_null} {
			asc := New(typ, true, false)
			desc := New(typ, false, false)
			for _, a := range vs {
				for _, b := range vs {
					So(sign(asc(a, b)), ShouldEqual, sign(Generic(a, b)))
					So(desc(a, b), ShouldEqual, -asc(a, b))
				}
			}
		}
	})
}

func TestUnknownValuesSortFirst(t *testing.T) {
	missing, null := types.AppendMissing(nil), types.AppendNull(nil)
	for _, typ := range []types.T{types.T_int64, types.T_string, types.T_any, types.T_null} {
		c := New(typ, true, false)
		require.Less(t, c(missing, null), 0)
		require.Less(t, c(null, types.AppendBool(nil, false)), 0)
		require.Less(t, c(missing, types.AppendInt64(nil, math.MinInt64)), 0)
		require.Less(t, c(null, types.AppendString(nil, "")), 0)
	}
}

func TestNumericCrossType(t *testing.T) {
	kases := []struct {
		a, b []byte
		want int
	}{
		{types.AppendInt8(nil, 3), types.AppendInt64(nil, 3), 0},
		{types.AppendInt32(nil, 3), types.AppendFloat64(nil, 3), 0},
		{types.AppendInt32(nil, 3), types.AppendFloat64(nil, 3.5), -1},
		{types.AppendInt32(nil, -3), types.AppendFloat64(nil, -3.5), 1},
		{types.AppendFloat32(nil, 2.5), types.AppendInt16(nil, 2), 1},
		{types.AppendInt64(nil, math.MaxInt64), types.AppendFloat64(nil, math.Inf(1)), -1},
		{types.AppendInt64(nil, math.MaxInt64), types.AppendFloat64(nil, 9.3e18), -1},
		{types.AppendInt64(nil, math.MinInt64), types.AppendFloat64(nil, -9.3e18), 1},
		{types.AppendInt64(nil, 1<<53+1), types.AppendFloat64(nil, 1<<53), 1},
		{types.AppendInt64(nil, 0), types.AppendFloat64(nil, math.NaN()), -1},
		{types.AppendFloat64(nil, math.NaN()), types.AppendFloat32(nil, float32(math.NaN())), 0},
		{types.AppendFloat64(nil, math.Copysign(0, -1)), types.AppendFloat64(nil, 0), 0},
		{types.AppendFloat64(nil, math.Inf(1)), types.AppendFloat64(nil, math.NaN()), -1},
		{types.AppendFloat64(nil, 1e300), types.AppendString(nil, ""), -1},
	}
	for i, k := range kases {
		require.Equal(t, k.want, sign(Generic(k.a, k.b)), "case %d", i)
	}
}

func TestStrings(t *testing.T) {
	c := New(types.T_string, true, false)
	ci := New(types.T_string, true, true)
	a, b := types.AppendString(nil, "apple"), types.AppendString(nil, "Banana")
	require.Greater(t, c(a, b), 0)
	require.Less(t, ci(a, b), 0)
	require.Equal(t, 0, ci(types.AppendString(nil, "ÉTÉ"), types.AppendString(nil, "été")))
	require.Less(t, ci(types.AppendString(nil, "ab"), types.AppendString(nil, "ABC")), 0)
	// the length prefix does not leak into the order
	require.Less(t, c(types.AppendString(nil, "aaaa"), types.AppendString(nil, "b")), 0)

	// ignoreCase is dropped when the static types differ
	mixed := NewForTypes(types.T_string, types.T_any, true, true)
	require.Greater(t, mixed(a, b), 0)
	same := NewForTypes(types.T_string, types.T_string, true, true)
	require.Less(t, same(a, b), 0)
}

func TestUnknownTagFallsBackToRawBytes(t *testing.T) {
	c := New(types.T(0xf0), true, false)
	require.Less(t, c([]byte{0xf0, 1}, []byte{0xf0, 2}), 0)
	require.Equal(t, 0, c([]byte{0xf0, 1}, []byte{0xf0, 1}))
	require.Greater(t, Generic([]byte{0xf1}, []byte{0xf0, 9}), 0)
}

func TestMultiComparator(t *testing.T) {
	mc := NewMultiComparator(New(types.T_int64, true, false), New(types.T_string, false, false))
	ref := func(i int64, s string) frame.Reference {
		p0, p1 := pointable.New(), pointable.New()
		p0.SetBytes(types.AppendInt64(nil, i))
		p1.SetBytes(types.AppendString(nil, s))
		return frame.NewPointableTupleReference(p0, p1)
	}
	require.Equal(t, 2, mc.Len())
	require.Less(t, mc.Compare(ref(1, "z"), ref(2, "a")), 0)
	require.Greater(t, mc.Compare(ref(1, "a"), ref(1, "b")), 0)
	require.Equal(t, 0, mc.Compare(ref(1, "a"), ref(1, "a")))

	swapped := NewMultiComparator(New(types.T_string, true, false))
	require.Less(t, swapped.CompareFields(ref(9, "a"), []int{1}, ref(0, "b"), []int{1}), 0)

	f := frame.NewFrame(256)
	app := frame.NewTupleAppender(f)
	tb := frame.NewTupleBuilder(2)
	for _, r := range []frame.Reference{ref(1, "a"), ref(1, "b")} {
		tb.Reset()
		tb.AddFieldFromReference(r, 0)
		tb.AddFieldFromReference(r, 1)
		_, err := app.AppendBuilder(tb)
		require.NoError(t, err)
	}
	acc := frame.NewTupleAccessor(types.NewRecordDescriptor(types.T_int64, types.T_string))
	acc.Reset(f.Buffer())
	keyOnly := NewMultiComparator(New(types.T_int64, true, false))
	require.Equal(t, 0, keyOnly.CompareTuples(acc, 0, acc, 1, []int{0}))
	require.Less(t, swapped.CompareTuples(acc, 0, acc, 1, []int{1}), 0)
}
