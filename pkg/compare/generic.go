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
	"github.com/matrixorigin/frameflow/pkg/container/types"
)

// Generic dispatches on the runtime tags of both sides. Values with the
// same tag use the typed comparator, numeric values of different tags are
// compared by exact value, and any other pair of distinct tags is ordered by
// tag ordinal, which puts MISSING first and NULL second. Empty ranges read
// as MISSING.
func Generic(a, b []byte) int {
	ta, tb := types.Tag(a), types.Tag(b)
	if ta == tb {
		if c := ascTable[ta]; c != nil {
			return c(a, b)
		}
		return RawBytes(a, b)
	}
	if ta.IsNumeric() && tb.IsNumeric() {
		return compareNumeric(a, ta, b, tb)
	}
	return compareOrdered(ta, tb)
}

func compareNumeric(a []byte, ta types.T, b []byte, tb types.T) int {
	switch {
	case ta.IsInteger() && tb.IsInteger():
		x, _ := types.GetIntegerValue(a)
		y, _ := types.GetIntegerValue(b)
		return compareOrdered(x, y)
	case ta.IsFloat() && tb.IsFloat():
		x, _ := types.GetNumericValue(a)
		y, _ := types.GetNumericValue(b)
		return compareFloat(x, y)
	case ta.IsInteger():
		x, _ := types.GetIntegerValue(a)
		y, _ := types.GetNumericValue(b)
		return compareIntFloat(x, y)
	}
	x, _ := types.GetNumericValue(a)
	y, _ := types.GetIntegerValue(b)
	return -compareIntFloat(y, x)
}

// compareArray compares item by item with Generic; a proper prefix sorts
// first. Malformed arrays fall back to raw bytes.
func compareArray(a, b []byte) int {
	ia, err := types.NewArrayIterator(a)
	if err != nil {
		return RawBytes(a, b)
	}
	ib, err := types.NewArrayIterator(b)
	if err != nil {
		return RawBytes(a, b)
	}
	for {
		x, okx, err := ia.Next()
		if err != nil {
			return RawBytes(a, b)
		}
		y, oky, err := ib.Next()
		if err != nil {
			return RawBytes(a, b)
		}
		switch {
		case !okx && !oky:
			return 0
		case !okx:
			return -1
		case !oky:
			return 1
		}
		if c := Generic(x, y); c != 0 {
			return c
		}
	}
}
