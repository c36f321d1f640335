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

import "fmt"

// T is the one byte type tag that prefixes every serialized field value.
// The numeric order of the tags is the cross-type order used by the
// generic comparator.
type T uint8

const (
	T_missing T = iota
	T_null
	T_bool
	T_int8
	T_int16
	T_int32
	T_int64
	T_float32
	T_float64
	T_string
	T_binary
	T_date
	T_time
	T_datetime
	T_year_month_duration
	T_day_time_duration
	T_uuid
	T_array
	T_object

	// T_any is only a static type. It never appears on the wire.
	T_any T = 0xff
)

var typeNames = map[T]string{
	T_missing:             "MISSING",
	T_null:                "NULL",
	T_bool:                "BOOLEAN",
	T_int8:                "TINYINT",
	T_int16:               "SMALLINT",
	T_int32:               "INTEGER",
	T_int64:               "BIGINT",
	T_float32:             "FLOAT",
	T_float64:             "DOUBLE",
	T_string:              "STRING",
	T_binary:              "BINARY",
	T_date:                "DATE",
	T_time:                "TIME",
	T_datetime:            "DATETIME",
	T_year_month_duration: "YEARMONTHDURATION",
	T_day_time_duration:   "DAYTIMEDURATION",
	T_uuid:                "UUID",
	T_array:               "ARRAY",
	T_object:              "OBJECT",
	T_any:                 "ANY",
}

func (t T) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// ParseT maps a type name, case sensitive as returned by String, or one of
// the lower case aliases accepted on the command line.
func ParseT(name string) (T, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	if t, ok := typeAliases[name]; ok {
		return t, true
	}
	return T_any, false
}

var typeAliases = map[string]T{
	"bool":     T_bool,
	"int8":     T_int8,
	"int16":    T_int16,
	"int32":    T_int32,
	"int64":    T_int64,
	"float32":  T_float32,
	"float64":  T_float64,
	"string":   T_string,
	"binary":   T_binary,
	"date":     T_date,
	"time":     T_time,
	"datetime": T_datetime,
	"uuid":     T_uuid,
	"any":      T_any,
}

// FixedLength returns the payload length following the tag byte, or -1 for
// variable length types.
func (t T) FixedLength() int {
	switch t {
	case T_missing, T_null:
		return 0
	case T_bool, T_int8:
		return 1
	case T_int16:
		return 2
	case T_int32, T_float32, T_date, T_time, T_year_month_duration:
		return 4
	case T_int64, T_float64, T_datetime, T_day_time_duration:
		return 8
	case T_uuid:
		return 16
	}
	return -1
}

func (t T) IsUnknown() bool {
	return t == T_missing || t == T_null
}

func (t T) IsInteger() bool {
	return t >= T_int8 && t <= T_int64
}

func (t T) IsFloat() bool {
	return t == T_float32 || t == T_float64
}

func (t T) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

// IsKnown reports whether t is a tag this package can encode.
func (t T) IsKnown() bool {
	return t <= T_object
}

// RecordDescriptor describes the fields of the tuples flowing through an
// operator. Types may be T_any for fields whose type is only known at
// runtime.
type RecordDescriptor struct {
	Types []T
}

func NewRecordDescriptor(ts ...T) *RecordDescriptor {
	return &RecordDescriptor{Types: ts}
}

func (rd *RecordDescriptor) FieldCount() int {
	return len(rd.Types)
}
