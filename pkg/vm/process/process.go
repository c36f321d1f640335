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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/frame"
	"github.com/matrixorigin/frameflow/pkg/logutil"
)

// Process is the per task context handed to operators and to the
// evaluator factories they create.
type Process struct {
	// Id identifies the task in logs.
	Id string
	// FrameSize is the minimum frame size of the task.
	FrameSize int

	Ctx    context.Context
	Cancel context.CancelFunc
	Logger *zap.Logger
}

// New creates a process. A non positive frameSize selects
// frame.DefaultMinFrameSize.
func New(ctx context.Context, frameSize int) *Process {
	if frameSize <= 0 {
		frameSize = frame.DefaultMinFrameSize
	}
	id := uuid.New().String()
	proc := &Process{
		Id:        id,
		FrameSize: frameSize,
		Logger:    logutil.GetGlobalLogger().With(zap.String("task-id", id)),
	}
	proc.Ctx, proc.Cancel = context.WithCancel(ctx)
	return proc
}

// AllocateFrame returns a fixed frame of the task frame size.
func (proc *Process) AllocateFrame() *frame.Frame {
	return frame.NewFrame(proc.FrameSize)
}

// AllocateVSizeFrame returns a frame that grows in multiples of the task
// frame size.
func (proc *Process) AllocateVSizeFrame() *frame.Frame {
	return frame.NewVSizeFrame(proc.FrameSize)
}

// CancelCheck returns ErrQueryInterrupted once the task was cancelled.
func (proc *Process) CancelCheck() error {
	select {
	case <-proc.Ctx.Done():
		return moerr.NewQueryInterrupted(proc.Ctx)
	default:
		return nil
	}
}
