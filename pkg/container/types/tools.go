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
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05.000"
	datetimeLayout = "2006-01-02 15:04:05.000"

	msPerDay = int64(24 * time.Hour / time.Millisecond)
)

// ValueString renders a serialized value for display.
func ValueString(b []byte) string {
	t := Tag(b)
	if n := t.FixedLength(); n >= 0 && len(b) < 1+n {
		return "<" + t.String() + ":short>"
	}
	switch t {
	case T_missing:
		return "missing"
	case T_null:
		return "null"
	case T_bool:
		return strconv.FormatBool(DecodeBool(b))
	case T_int8, T_int16, T_int32, T_int64:
		v, _ := GetIntegerValue(b)
		return strconv.FormatInt(v, 10)
	case T_float32:
		return strconv.FormatFloat(float64(DecodeFloat32(b)), 'g', -1, 32)
	case T_float64:
		return strconv.FormatFloat(DecodeFloat64(b), 'g', -1, 64)
	case T_date:
		return time.UnixMilli(int64(DecodeInt32(b)) * msPerDay).UTC().Format(dateLayout)
	case T_time:
		return time.UnixMilli(int64(DecodeInt32(b))).UTC().Format(timeLayout)
	case T_datetime:
		return time.UnixMilli(DecodeInt64(b)).UTC().Format(datetimeLayout)
	case T_year_month_duration:
		return strconv.FormatInt(int64(DecodeInt32(b)), 10) + "M"
	case T_day_time_duration:
		return strconv.FormatInt(DecodeInt64(b), 10) + "ms"
	case T_uuid:
		return DecodeUUID(b).String()
	case T_string:
		s, err := DecodeString(b)
		if err != nil {
			return "<STRING:malformed>"
		}
		return strconv.Quote(s)
	case T_binary, T_object:
		p, err := DecodeVarlen(b)
		if err != nil {
			return "<" + t.String() + ":malformed>"
		}
		return "0x" + hex.EncodeToString(p)
	case T_array:
		it, err := NewArrayIterator(b)
		if err != nil {
			return "<ARRAY:malformed>"
		}
		var sb strings.Builder
		sb.WriteByte('[')
		for i := 0; ; i++ {
			item, ok, err := it.Next()
			if err != nil {
				return "<ARRAY:malformed>"
			}
			if !ok {
				break
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(ValueString(item))
		}
		sb.WriteByte(']')
		return sb.String()
	}
	return "0x" + hex.EncodeToString(b)
}

// ParseValue parses the textual form s of a value of type t and appends its
// serialized form to dst. An empty string or "null" yields NULL for every
// type except string.
func ParseValue(dst []byte, t T, s string) ([]byte, error) {
	if t != T_string && (s == "" || strings.EqualFold(s, "null")) {
		return AppendNull(dst), nil
	}
	switch t {
	case T_missing:
		return AppendMissing(dst), nil
	case T_null:
		return AppendNull(dst), nil
	case T_bool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return dst, parseError(t, s)
		}
		return AppendBool(dst, v), nil
	case T_int8, T_int16, T_int32, T_int64:
		bits := t.FixedLength() * 8
		v, err := strconv.ParseInt(s, 10, bits)
		if err != nil {
			return dst, moerr.NewOutOfRange(moerr.Context(), t.String(), "value '%s'", s)
		}
		switch t {
		case T_int8:
			return AppendInt8(dst, int8(v)), nil
		case T_int16:
			return AppendInt16(dst, int16(v)), nil
		case T_int32:
			return AppendInt32(dst, int32(v)), nil
		}
		return AppendInt64(dst, v), nil
	case T_float32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return dst, parseError(t, s)
		}
		return AppendFloat32(dst, float32(v)), nil
	case T_float64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return dst, parseError(t, s)
		}
		return AppendFloat64(dst, v), nil
	case T_string:
		return AppendString(dst, s), nil
	case T_binary:
		v, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return dst, parseError(t, s)
		}
		return AppendBinary(dst, v), nil
	case T_date:
		v, err := time.Parse(dateLayout, s)
		if err != nil {
			return dst, parseError(t, s)
		}
		return AppendDate(dst, int32(v.UnixMilli()/msPerDay)), nil
	case T_time:
		v, err := time.Parse("15:04:05", s)
		if err != nil {
			return dst, parseError(t, s)
		}
		ms := int64(v.Hour())*3600000 + int64(v.Minute())*60000 + int64(v.Second())*1000 + int64(v.Nanosecond())/1e6
		return AppendTime(dst, int32(ms)), nil
	case T_datetime:
		v, err := time.Parse("2006-01-02 15:04:05", s)
		if err != nil {
			return dst, parseError(t, s)
		}
		return AppendDatetime(dst, v.UnixMilli()), nil
	case T_uuid:
		v, err := uuid.Parse(s)
		if err != nil {
			return dst, parseError(t, s)
		}
		return AppendUUID(dst, v), nil
	case T_any:
		return parseAny(dst, s), nil
	}
	return dst, moerr.NewUnsupportedDataType(moerr.Context(), t.String())
}

// parseAny guesses the narrowest of int64, double and string.
func parseAny(dst []byte, s string) []byte {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return AppendInt64(dst, v)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return AppendFloat64(dst, v)
	}
	return AppendString(dst, s)
}

func parseError(t T, s string) error {
	return moerr.NewInvalidInput(moerr.Context(), "can't parse '%s' as %s", s, t)
}
