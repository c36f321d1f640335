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
	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/container/pointable"
	"github.com/matrixorigin/frameflow/pkg/container/types"
	"github.com/matrixorigin/frameflow/pkg/frame"
	"github.com/matrixorigin/frameflow/pkg/vm/process"
)

// Add and Sub compute frame bounds such as "x PRECEDING". Two integers give
// a BIGINT, any float makes it a DOUBLE. DATE takes an integer number of
// days and DATETIME a DAYTIMEDURATION. MISSING wins over NULL, and either
// one yields itself.
func Add(left, right Factory) Factory {
	return arith(left, right, false)
}

func Sub(left, right Factory) Factory {
	return arith(left, right, true)
}

func arith(left, right Factory, negate bool) Factory {
	return func(proc *process.Process) (Evaluator, error) {
		l, err := left(proc)
		if err != nil {
			return nil, err
		}
		r, err := right(proc)
		if err != nil {
			return nil, err
		}
		return &arithEvaluator{
			left:    l,
			right:   r,
			negate:  negate,
			lp:      pointable.New(),
			rp:      pointable.New(),
			storage: pointable.NewArrayBackedValueStorage(),
		}, nil
	}
}

type arithEvaluator struct {
	left, right Evaluator
	negate      bool
	lp, rp      *pointable.Pointable
	storage     *pointable.ArrayBackedValueStorage
}

func (e *arithEvaluator) Evaluate(ref frame.Reference, out *pointable.Pointable) error {
	if err := e.left.Evaluate(ref, e.lp); err != nil {
		return err
	}
	if err := e.right.Evaluate(ref, e.rp); err != nil {
		return err
	}
	res, err := e.compute(e.storage.Buffer(), e.lp.Bytes(), e.rp.Bytes())
	if err != nil {
		return err
	}
	e.storage.Set(res)
	e.storage.Point(out)
	return nil
}

func (e *arithEvaluator) compute(dst, a, b []byte) ([]byte, error) {
	ta, tb := types.Tag(a), types.Tag(b)
	switch {
	case ta == types.T_missing || tb == types.T_missing:
		return types.AppendMissing(dst), nil
	case ta == types.T_null || tb == types.T_null:
		return types.AppendNull(dst), nil
	case ta.IsInteger() && tb.IsInteger():
		x, _ := types.GetIntegerValue(a)
		y, _ := types.GetIntegerValue(b)
		r, ok := e.addInt(x, y)
		if !ok {
			return dst, moerr.NewOutOfRange(moerr.Context(), "BIGINT", "%d %s %d", x, e.op(), y)
		}
		return types.AppendInt64(dst, r), nil
	case ta.IsNumeric() && tb.IsNumeric():
		x, _ := types.GetNumericValue(a)
		y, _ := types.GetNumericValue(b)
		if e.negate {
			y = -y
		}
		return types.AppendFloat64(dst, x+y), nil
	case ta == types.T_date && tb.IsInteger():
		y, _ := types.GetIntegerValue(b)
		r, ok := e.addInt(int64(types.DecodeInt32(a)), y)
		if !ok || r != int64(int32(r)) {
			return dst, moerr.NewOutOfRange(moerr.Context(), "DATE", "%d days", r)
		}
		return types.AppendDate(dst, int32(r)), nil
	case ta == types.T_datetime && tb == types.T_day_time_duration:
		r, ok := e.addInt(types.DecodeInt64(a), types.DecodeInt64(b))
		if !ok {
			return dst, moerr.NewOutOfRange(moerr.Context(), "DATETIME", "%s %s %s", types.ValueString(a), e.op(), types.ValueString(b))
		}
		return types.AppendDatetime(dst, r), nil
	}
	return dst, moerr.NewInvalidInput(moerr.Context(), "%s %s %s", ta, e.op(), tb)
}

func (e *arithEvaluator) op() string {
	if e.negate {
		return "-"
	}
	return "+"
}

func (e *arithEvaluator) addInt(x, y int64) (int64, bool) {
	if e.negate {
		r := x - y
		if (y > 0 && r > x) || (y < 0 && r < x) {
			return 0, false
		}
		return r, true
	}
	r := x + y
	if (y > 0 && r < x) || (y < 0 && r > x) {
		return 0, false
	}
	return r, true
}
