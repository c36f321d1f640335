// Copyright 2021 - 2022 Matrix Origin
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

package moerr

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMoErrCode(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		err      error
		code     uint16
		expected bool
	}{
		{name: "nil is ok", err: nil, code: Ok, expected: true},
		{name: "nil is not internal", err: nil, code: ErrInternal, expected: false},
		{name: "go error", err: errors.New("x"), code: ErrInternal, expected: false},
		{name: "bad config", err: NewBadConfig(ctx, "x"), code: ErrBadConfig, expected: true},
		{name: "memory budget", err: NewIllegalMemoryBudget(ctx, "GROUP BY", 64, 128), code: ErrIllegalMemoryBudget, expected: true},
		{name: "wrong code", err: NewOOM(ctx, "x"), code: ErrBadConfig, expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsMoErrCode(tt.err, tt.code))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	ctx := context.Background()
	err := NewIllegalMemoryBudget(ctx, "GROUP BY", 65536, 65536)
	require.Equal(t, "GROUP BY: illegal memory budget 65536 bytes, at least 65536 bytes required", err.Error())
	require.Equal(t, err.Error(), err.Display())

	err = NewTupleTooLarge(ctx, 100, 64)
	require.Equal(t, "tuple of 100 bytes does not fit into a frame of 64 bytes", err.Error())
}

func TestNewEvaluation(t *testing.T) {
	cause := errors.New("malformed bound")
	err := NewEvaluation(context.Background(), "window", 3, cause)
	require.True(t, IsMoErrCode(err, ErrEvaluation))
	require.True(t, errors.Is(err, cause))
	require.Contains(t, err.Error(), "row 3")
	require.Contains(t, err.Error(), "malformed bound")
}

func TestConvertGoError(t *testing.T) {
	ctx := context.Background()
	require.Nil(t, ConvertGoError(ctx, nil))

	me := NewInvalidInput(ctx, "x")
	require.Equal(t, error(me), ConvertGoError(ctx, me))

	require.True(t, IsMoErrCode(ConvertGoError(ctx, io.EOF), ErrUnexpectedEOF))
	require.True(t, IsMoErrCode(ConvertGoError(ctx, errors.New("boom")), ErrInternal))
}

func TestConvertPanicError(t *testing.T) {
	ctx := context.Background()
	me := NewInvalidState(ctx, "x")
	require.Equal(t, me, ConvertPanicError(ctx, me))

	err := ConvertPanicError(ctx, "boom")
	require.True(t, IsMoErrCode(err, ErrInternal))
	require.NotEmpty(t, err.Detail())
}

func TestOkExpectedEOF(t *testing.T) {
	err := GetOkExpectedEOF()
	require.True(t, err.Succeeded())
	require.True(t, IsMoErrCode(err, OkExpectedEOF))
	require.False(t, NewInternalError(context.Background(), "x").Succeeded())
}
