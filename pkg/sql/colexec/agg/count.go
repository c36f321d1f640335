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

package agg

import (
	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/container/types"
)

type count struct {
	isStar bool
	n      int64
}

func newCount(isStar bool) *count {
	return &count{isStar: isStar}
}

func (c *count) Reset() { c.n = 0 }

func (c *count) Step(v []byte) error {
	if c.isStar || !types.Tag(v).IsUnknown() {
		c.n++
	}
	return nil
}

func (c *count) Merge(partial []byte) error {
	n, err := types.GetIntegerValue(partial)
	if err != nil {
		return moerr.NewInvalidInput(moerr.Context(), "bad partial count %s", types.ValueString(partial))
	}
	c.n += n
	return nil
}

func (c *count) Result(dst []byte) ([]byte, error) {
	return types.AppendInt64(dst, c.n), nil
}

func (c *count) PartialResult(dst []byte) ([]byte, error) {
	return c.Result(dst)
}

func (c *count) Size() int64 { return 0 }
