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

package types

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
)

// All values are serialized as [tag][payload]. Fixed width payloads are big
// endian, variable length payloads carry a uvarint length prefix.

func AppendMissing(dst []byte) []byte {
	return append(dst, byte(T_missing))
}

func AppendNull(dst []byte) []byte {
	return append(dst, byte(T_null))
}

func AppendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, byte(T_bool), 1)
	}
	return append(dst, byte(T_bool), 0)
}

func AppendInt8(dst []byte, v int8) []byte {
	return append(dst, byte(T_int8), byte(v))
}

func AppendInt16(dst []byte, v int16) []byte {
	dst = append(dst, byte(T_int16))
	return binary.BigEndian.AppendUint16(dst, uint16(v))
}

func AppendInt32(dst []byte, v int32) []byte {
	return appendFixed32(dst, T_int32, uint32(v))
}

func AppendInt64(dst []byte, v int64) []byte {
	return appendFixed64(dst, T_int64, uint64(v))
}

func AppendFloat32(dst []byte, v float32) []byte {
	return appendFixed32(dst, T_float32, math.Float32bits(v))
}

func AppendFloat64(dst []byte, v float64) []byte {
	return appendFixed64(dst, T_float64, math.Float64bits(v))
}

// AppendDate appends a date as days since the epoch.
func AppendDate(dst []byte, days int32) []byte {
	return appendFixed32(dst, T_date, uint32(days))
}

// AppendTime appends a time of day in milliseconds.
func AppendTime(dst []byte, ms int32) []byte {
	return appendFixed32(dst, T_time, uint32(ms))
}

// AppendDatetime appends milliseconds since the epoch.
func AppendDatetime(dst []byte, ms int64) []byte {
	return appendFixed64(dst, T_datetime, uint64(ms))
}

func AppendYearMonthDuration(dst []byte, months int32) []byte {
	return appendFixed32(dst, T_year_month_duration, uint32(months))
}

func AppendDayTimeDuration(dst []byte, ms int64) []byte {
	return appendFixed64(dst, T_day_time_duration, uint64(ms))
}

func AppendUUID(dst []byte, v uuid.UUID) []byte {
	dst = append(dst, byte(T_uuid))
	return append(dst, v[:]...)
}

func AppendString(dst []byte, v string) []byte {
	dst = append(dst, byte(T_string))
	dst = binary.AppendUvarint(dst, uint64(len(v)))
	return append(dst, v...)
}

func AppendBinary(dst []byte, v []byte) []byte {
	dst = append(dst, byte(T_binary))
	dst = binary.AppendUvarint(dst, uint64(len(v)))
	return append(dst, v...)
}

// AppendObject appends an opaque record payload.
func AppendObject(dst []byte, payload []byte) []byte {
	dst = append(dst, byte(T_object))
	dst = binary.AppendUvarint(dst, uint64(len(payload)))
	return append(dst, payload...)
}

// AppendArray appends an ordered list of already serialized values.
func AppendArray(dst []byte, items [][]byte) []byte {
	dst = append(dst, byte(T_array))
	dst = binary.AppendUvarint(dst, uint64(len(items)))
	for _, item := range items {
		dst = binary.AppendUvarint(dst, uint64(len(item)))
		dst = append(dst, item...)
	}
	return dst
}

func appendFixed32(dst []byte, t T, v uint32) []byte {
	dst = append(dst, byte(t))
	return binary.BigEndian.AppendUint32(dst, v)
}

func appendFixed64(dst []byte, t T, v uint64) []byte {
	dst = append(dst, byte(t))
	return binary.BigEndian.AppendUint64(dst, v)
}

// Tag returns the type tag of a serialized value. An empty range is
// reported as MISSING.
func Tag(b []byte) T {
	if len(b) == 0 {
		return T_missing
	}
	return T(b[0])
}

func DecodeBool(b []byte) bool {
	return b[1] != 0
}

func DecodeInt8(b []byte) int8 {
	return int8(b[1])
}

func DecodeInt16(b []byte) int16 {
	return int16(binary.BigEndian.Uint16(b[1:]))
}

func DecodeInt32(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b[1:]))
}

func DecodeInt64(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b[1:]))
}

func DecodeFloat32(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b[1:]))
}

func DecodeFloat64(b []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(b[1:]))
}

func DecodeUUID(b []byte) uuid.UUID {
	var v uuid.UUID
	copy(v[:], b[1:17])
	return v
}

// DecodeVarlen returns the payload of a length prefixed value (string,
// binary, object) without copying.
func DecodeVarlen(b []byte) ([]byte, error) {
	n, w := binary.Uvarint(b[1:])
	if w <= 0 || 1+w+int(n) > len(b) {
		return nil, moerr.NewInvalidInput(moerr.Context(), "malformed %s value", Tag(b))
	}
	return b[1+w : 1+w+int(n)], nil
}

func DecodeString(b []byte) (string, error) {
	p, err := DecodeVarlen(b)
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// ValueLength returns the serialized length of the value starting at b[0].
func ValueLength(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, moerr.NewShortBuffer(moerr.Context())
	}
	t := T(b[0])
	if n := t.FixedLength(); n >= 0 {
		if len(b) < 1+n {
			return 0, moerr.NewShortBuffer(moerr.Context())
		}
		return 1 + n, nil
	}
	switch t {
	case T_string, T_binary, T_object:
		n, w := binary.Uvarint(b[1:])
		if w <= 0 || 1+w+int(n) > len(b) {
			return 0, moerr.NewShortBuffer(moerr.Context())
		}
		return 1 + w + int(n), nil
	case T_array:
		off := 1
		cnt, w := binary.Uvarint(b[off:])
		if w <= 0 {
			return 0, moerr.NewShortBuffer(moerr.Context())
		}
		off += w
		for i := uint64(0); i < cnt; i++ {
			n, w := binary.Uvarint(b[off:])
			if w <= 0 || off+w+int(n) > len(b) {
				return 0, moerr.NewShortBuffer(moerr.Context())
			}
			off += w + int(n)
		}
		return off, nil
	}
	return 0, moerr.NewUnsupportedDataType(moerr.Context(), t.String())
}

// ArrayIterator walks the items of a serialized array without copying.
type ArrayIterator struct {
	data   []byte
	off    int
	remain uint64
}

func NewArrayIterator(b []byte) (*ArrayIterator, error) {
	it := &ArrayIterator{}
	return it, it.Reset(b)
}

func (it *ArrayIterator) Reset(b []byte) error {
	if Tag(b) != T_array {
		return moerr.NewInvalidInput(moerr.Context(), "%s is not an array", Tag(b))
	}
	cnt, w := binary.Uvarint(b[1:])
	if w <= 0 {
		return moerr.NewShortBuffer(moerr.Context())
	}
	it.data, it.off, it.remain = b, 1+w, cnt
	return nil
}

func (it *ArrayIterator) Len() int {
	return int(it.remain)
}

// Next returns the next item, or false when the array is exhausted.
func (it *ArrayIterator) Next() ([]byte, bool, error) {
	if it.remain == 0 {
		return nil, false, nil
	}
	n, w := binary.Uvarint(it.data[it.off:])
	if w <= 0 || it.off+w+int(n) > len(it.data) {
		return nil, false, moerr.NewShortBuffer(moerr.Context())
	}
	item := it.data[it.off+w : it.off+w+int(n)]
	it.off += w + int(n)
	it.remain--
	return item, true, nil
}

// GetIntegerValue reads any integer typed value as int64.
func GetIntegerValue(b []byte) (int64, error) {
	switch Tag(b) {
	case T_int8:
		return int64(DecodeInt8(b)), nil
	case T_int16:
		return int64(DecodeInt16(b)), nil
	case T_int32:
		return int64(DecodeInt32(b)), nil
	case T_int64:
		return DecodeInt64(b), nil
	}
	return 0, moerr.NewInvalidInput(moerr.Context(), "expected an integer value, got %s", Tag(b))
}

// GetNumericValue reads any numeric value as float64.
func GetNumericValue(b []byte) (float64, error) {
	switch Tag(b) {
	case T_float32:
		return float64(DecodeFloat32(b)), nil
	case T_float64:
		return DecodeFloat64(b), nil
	}
	v, err := GetIntegerValue(b)
	if err != nil {
		return 0, moerr.NewInvalidInput(moerr.Context(), "expected a numeric value, got %s", Tag(b))
	}
	return float64(v), nil
}
