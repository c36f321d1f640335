// Copyright 2022 Matrix Origin
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

package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/frame"
	"github.com/matrixorigin/frameflow/pkg/logutil"
)

// NewRunner creates a runner of at most workers concurrent tasks.
func NewRunner(workers int) (*Runner, error) {
	if workers <= 0 {
		return nil, moerr.NewInvalidArg(moerr.Context(), "workers", workers)
	}
	r := &Runner{logger: logutil.GetGlobalLogger().Named("pipeline")}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v interface{}) {
		r.logger.Error("task panicked", zap.Any("panic", v))
	}))
	if err != nil {
		return nil, moerr.ConvertGoError(moerr.Context(), err)
	}
	r.pool = pool
	return r, nil
}

// Run executes every task and waits for all of them. It returns the first
// error a task reported. A task that has not started when ctx is done is
// skipped with ErrQueryInterrupted.
func (r *Runner) Run(ctx context.Context, tasks []Task) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	start := time.Now()
	for i := range tasks {
		task := tasks[i]
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			r.running.Add(1)
			defer r.running.Add(-1)
			if err := runTask(ctx, task); err != nil {
				r.logger.Error("task failed", zap.String("task", task.Name), zap.Error(err))
				setErr(err)
			}
		})
		if err != nil {
			wg.Done()
			setErr(moerr.ConvertGoError(ctx, err))
		}
	}
	wg.Wait()
	r.logger.Debug("run finished",
		zap.Int("tasks", len(tasks)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(firstErr))
	return firstErr
}

func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = moerr.ConvertPanicError(ctx, e)
		}
	}()
	if ctx.Err() != nil {
		return moerr.NewQueryInterrupted(ctx)
	}
	return task.Source.Run(task.Operator)
}

// Running is the number of tasks being executed.
func (r *Runner) Running() int {
	return int(r.running.Load())
}

// Release stops the workers of the pool.
func (r *Runner) Release() {
	r.pool.Release()
}

// FrameSource replays frames held in memory.
type FrameSource struct {
	Frames [][]byte
}

func (s *FrameSource) Run(w frame.Writer) (err error) {
	if err = w.Open(); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = w.Fail()
		}
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	for _, buf := range s.Frames {
		if err = w.NextFrame(buf); err != nil {
			return err
		}
	}
	return nil
}
