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

package process

import (
	"context"
	"testing"

	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/frame"
)

func TestNew(t *testing.T) {
	stubs := gostub.Stub(&frame.DefaultMinFrameSize, 1024)
	defer stubs.Reset()

	proc := New(context.Background(), 0)
	require.Equal(t, 1024, proc.FrameSize)
	require.NotEmpty(t, proc.Id)
	require.NotNil(t, proc.Logger)
	require.Equal(t, 1024, proc.AllocateFrame().FrameSize())
	require.True(t, proc.AllocateVSizeFrame().IsGrowable())

	proc = New(context.Background(), 256)
	require.Equal(t, 256, proc.AllocateFrame().FrameSize())
}

func TestCancelCheck(t *testing.T) {
	proc := New(context.Background(), 128)
	require.NoError(t, proc.CancelCheck())
	proc.Cancel()
	require.True(t, moerr.IsMoErrCode(proc.CancelCheck(), moerr.ErrQueryInterrupted))
}
