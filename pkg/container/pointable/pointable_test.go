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

package pointable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/frameflow/pkg/container/types"
)

func TestPointableAliases(t *testing.T) {
	buf := types.AppendInt32(types.AppendString(nil, "ab"), 5)
	p := New()
	p.Set(buf, 4, 5)
	require.Equal(t, types.T_int32, p.Tag())
	require.Equal(t, 4, p.StartOffset())
	require.Equal(t, 5, p.Length())

	// a view, not a copy
	buf[8] = 6
	v, err := types.GetIntegerValue(p.Bytes())
	require.NoError(t, err)
	require.Equal(t, int64(6), v)

	q := New()
	q.SetPointable(p)
	require.Equal(t, p.Bytes(), q.Bytes())
}

func TestArrayBackedValueStorage(t *testing.T) {
	s := NewArrayBackedValueStorage()
	s.Set(types.AppendInt64(s.Buffer(), 42))
	require.Equal(t, 9, s.Length())

	p := New()
	s.Point(p)
	v, err := types.GetIntegerValue(p.Bytes())
	require.NoError(t, err)
	require.Equal(t, int64(42), v)

	s.Reset()
	s.Append(byte(types.T_null))
	require.Equal(t, []byte{byte(types.T_null)}, s.Bytes())
}
