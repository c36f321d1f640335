// Copyright 2023 Matrix Origin
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

package expr

import (
	"github.com/matrixorigin/frameflow/pkg/container/pointable"
	"github.com/matrixorigin/frameflow/pkg/frame"
	"github.com/matrixorigin/frameflow/pkg/vm/process"
)

// Evaluator computes one value from a tuple. The result is exposed through
// out and stays valid until the next call; callers that keep it must copy.
type Evaluator interface {
	Evaluate(ref frame.Reference, out *pointable.Pointable) error
}

// Factory creates a per task evaluator. Operators call factories when they
// are constructed, never while processing tuples.
type Factory func(proc *process.Process) (Evaluator, error)

// NewEvaluators instantiates a list of factories.
func NewEvaluators(proc *process.Process, factories []Factory) ([]Evaluator, error) {
	evals := make([]Evaluator, len(factories))
	for i, f := range factories {
		e, err := f(proc)
		if err != nil {
			return nil, err
		}
		evals[i] = e
	}
	return evals, nil
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ref frame.Reference, out *pointable.Pointable) error

func (f EvaluatorFunc) Evaluate(ref frame.Reference, out *pointable.Pointable) error {
	return f(ref, out)
}
