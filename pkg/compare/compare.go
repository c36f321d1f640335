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

package compare

import (
	"bytes"

	"github.com/matrixorigin/frameflow/pkg/container/types"
)

// Comparator orders two serialized values, each given as a byte range that
// starts with its type tag. The result is negative, zero or positive.
type Comparator func(a, b []byte) int

// ascTable holds the ascending comparator for two values carrying the same
// tag. It is filled once in init and never written afterwards.
var ascTable [256]Comparator

func init() {
	ascTable[types.T_missing] = compareUnknown
	ascTable[types.T_null] = compareUnknown
	ascTable[types.T_bool] = compareBool
	ascTable[types.T_int8] = signedComparator(types.DecodeInt8)
	ascTable[types.T_int16] = signedComparator(types.DecodeInt16)
	ascTable[types.T_int32] = signedComparator(types.DecodeInt32)
	ascTable[types.T_int64] = signedComparator(types.DecodeInt64)
	ascTable[types.T_float32] = floatComparator(types.DecodeFloat32)
	ascTable[types.T_float64] = floatComparator(types.DecodeFloat64)
	ascTable[types.T_string] = compareVarlen
	ascTable[types.T_binary] = compareVarlen
	ascTable[types.T_date] = signedComparator(types.DecodeInt32)
	ascTable[types.T_time] = signedComparator(types.DecodeInt32)
	ascTable[types.T_datetime] = signedComparator(types.DecodeInt64)
	ascTable[types.T_year_month_duration] = signedComparator(types.DecodeInt32)
	ascTable[types.T_day_time_duration] = signedComparator(types.DecodeInt64)
	ascTable[types.T_uuid] = RawBytes
	ascTable[types.T_array] = compareArray
	ascTable[types.T_object] = RawBytes
}

// New returns the comparator for values of the static type typ.
//
// T_any yields the generic comparator. Known types get a typed comparator
// that falls back to the generic one when a value turns out to carry
// another tag (NULL in a BIGINT column, for example), so the order stays
// total. ignoreCase only has an effect for T_string. Tags this package does
// not know are compared as raw bytes.
func New(typ types.T, ascending, ignoreCase bool) Comparator {
	c := forType(typ, ignoreCase)
	if ascending {
		return c
	}
	return Descending(c)
}

// NewForTypes is New for a comparison whose sides have possibly different
// static types. Unless both are the same known type the generic comparator
// is used.
func NewForTypes(left, right types.T, ascending, ignoreCase bool) Comparator {
	if left != right {
		return New(types.T_any, ascending, false)
	}
	return New(left, ascending, ignoreCase)
}

func forType(typ types.T, ignoreCase bool) Comparator {
	switch {
	case typ == types.T_any:
		return Generic
	case typ.IsUnknown():
		return compareUnknownOrGeneric
	case typ == types.T_string && ignoreCase:
		return typed(typ, compareStringIgnoreCase)
	case typ.IsKnown():
		return typed(typ, ascTable[typ])
	}
	return RawBytes
}

func typed(typ types.T, c Comparator) Comparator {
	return func(a, b []byte) int {
		if types.Tag(a) == typ && types.Tag(b) == typ {
			return c(a, b)
		}
		return Generic(a, b)
	}
}

// Descending returns the exact negation of c.
func Descending(c Comparator) Comparator {
	return func(a, b []byte) int {
		return -c(a, b)
	}
}

// RawBytes orders byte ranges lexicographically.
func RawBytes(a, b []byte) int {
	return bytes.Compare(a, b)
}

// compareUnknown orders MISSING before NULL. Both sides must be one of the
// two.
func compareUnknown(a, b []byte) int {
	return compareOrdered(types.Tag(a), types.Tag(b))
}

func compareUnknownOrGeneric(a, b []byte) int {
	if types.Tag(a).IsUnknown() && types.Tag(b).IsUnknown() {
		return compareUnknown(a, b)
	}
	return Generic(a, b)
}
