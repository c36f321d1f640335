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
	"math"
	"unicode"
	"unicode/utf8"

	"golang.org/x/exp/constraints"

	"github.com/matrixorigin/frameflow/pkg/container/types"
)

func compareOrdered[T constraints.Ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func signedComparator[T constraints.Signed](decode func([]byte) T) Comparator {
	return func(a, b []byte) int {
		return compareOrdered(decode(a), decode(b))
	}
}

func floatComparator[T constraints.Float](decode func([]byte) T) Comparator {
	return func(a, b []byte) int {
		return compareFloat(decode(a), decode(b))
	}
}

// compareFloat is a total order: -Inf < ... < -0 == +0 < ... < +Inf < NaN,
// and NaN equals NaN.
func compareFloat[T constraints.Float](a, b T) int {
	aNaN, bNaN := a != a, b != b
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	return compareOrdered(a, b)
}

// compareIntFloat compares an integer with a float by exact value.
func compareIntFloat(i int64, f float64) int {
	switch {
	case math.IsNaN(f):
		return -1
	case f >= math.MaxInt64:
		// 2^63 and above, +Inf included
		return -1
	case f < math.MinInt64:
		return 1
	}
	t := math.Trunc(f)
	if c := compareOrdered(i, int64(t)); c != 0 {
		return c
	}
	return compareFloat(0, f-t)
}

func compareBool(a, b []byte) int {
	return compareOrdered(a[1], b[1])
}

// compareVarlen orders length prefixed payloads bytewise, which for UTF-8
// strings is code point order. Malformed values fall back to raw bytes.
func compareVarlen(a, b []byte) int {
	pa, err := types.DecodeVarlen(a)
	if err != nil {
		return RawBytes(a, b)
	}
	pb, err := types.DecodeVarlen(b)
	if err != nil {
		return RawBytes(a, b)
	}
	return bytes.Compare(pa, pb)
}

func compareStringIgnoreCase(a, b []byte) int {
	pa, err := types.DecodeVarlen(a)
	if err != nil {
		return RawBytes(a, b)
	}
	pb, err := types.DecodeVarlen(b)
	if err != nil {
		return RawBytes(a, b)
	}
	for len(pa) > 0 && len(pb) > 0 {
		ra, na := utf8.DecodeRune(pa)
		rb, nb := utf8.DecodeRune(pb)
		if c := compareOrdered(unicode.ToLower(ra), unicode.ToLower(rb)); c != 0 {
			return c
		}
		pa, pb = pa[na:], pb[nb:]
	}
	return compareOrdered(len(pa), len(pb))
}
