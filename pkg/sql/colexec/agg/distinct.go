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
	"github.com/RoaringBitmap/roaring/roaring64"
	hll "github.com/axiomhq/hyperloglog"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/container/types"
)

// countDistinct counts distinct integer values exactly.
type countDistinct struct {
	bmp *roaring64.Bitmap
}

func newCountDistinct() *countDistinct {
	return &countDistinct{bmp: roaring64.New()}
}

func (c *countDistinct) Reset() {
	c.bmp.Clear()
}

func (c *countDistinct) Step(v []byte) error {
	t := types.Tag(v)
	if t.IsUnknown() {
		return nil
	}
	x, err := types.GetIntegerValue(v)
	if err != nil {
		return moerr.NewInvalidInput(moerr.Context(), "count_distinct of %s", t)
	}
	c.bmp.Add(uint64(x))
	return nil
}

// Merge takes the serialized bitmap as a BINARY value.
func (c *countDistinct) Merge(partial []byte) error {
	data, err := types.DecodeVarlen(partial)
	if err != nil {
		return err
	}
	other := roaring64.New()
	if err = other.UnmarshalBinary(data); err != nil {
		return moerr.NewInvalidInput(moerr.Context(), "bad partial count_distinct: %v", err)
	}
	c.bmp.Or(other)
	return nil
}

func (c *countDistinct) Result(dst []byte) ([]byte, error) {
	return types.AppendInt64(dst, int64(c.bmp.GetCardinality())), nil
}

func (c *countDistinct) PartialResult(dst []byte) ([]byte, error) {
	data, err := c.bmp.MarshalBinary()
	if err != nil {
		return dst, err
	}
	return types.AppendBinary(dst, data), nil
}

func (c *countDistinct) Size() int64 {
	return int64(c.bmp.GetSizeInBytes())
}

// approx estimates the number of distinct values of any type with a
// hyperloglog sketch over their serialized bytes.
type approx struct {
	sk *hll.Sketch
}

func newApprox() *approx {
	return &approx{sk: hll.New()}
}

func (a *approx) Reset() {
	a.sk = hll.New()
}

func (a *approx) Step(v []byte) error {
	if types.Tag(v).IsUnknown() {
		return nil
	}
	a.sk.Insert(v)
	return nil
}

func (a *approx) Merge(partial []byte) error {
	data, err := types.DecodeVarlen(partial)
	if err != nil {
		return err
	}
	other := hll.New()
	if err = other.UnmarshalBinary(data); err != nil {
		return moerr.NewInvalidInput(moerr.Context(), "bad partial approx_count_distinct: %v", err)
	}
	return a.sk.Merge(other)
}

func (a *approx) Result(dst []byte) ([]byte, error) {
	return types.AppendInt64(dst, int64(a.sk.Estimate())), nil
}

func (a *approx) PartialResult(dst []byte) ([]byte, error) {
	data, err := a.sk.MarshalBinary()
	if err != nil {
		return dst, err
	}
	return types.AppendBinary(dst, data), nil
}

func (a *approx) Size() int64 { return 0 }
