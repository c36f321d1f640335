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
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/matrixorigin/frameflow/pkg/frame"
)

// Source pushes a stream of frames into w. It opens w, fails it when the
// stream or w reports an error, and always closes it. frame.Decoder is a
// Source.
type Source interface {
	Run(w frame.Writer) error
}

// Task is one operator instance fed by its own source. Tasks of a run share
// no frames or operators.
type Task struct {
	Name     string
	Source   Source
	Operator frame.Writer
}

// Runner executes independent tasks on a goroutine pool.
type Runner struct {
	pool   *ants.Pool
	logger *zap.Logger

	// running counts the tasks between start and end of their source. Pool
	// workers outlive the tasks they ran.
	running atomic.Int32
}
