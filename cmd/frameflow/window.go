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

package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matrixorigin/frameflow/pkg/common/moerr"
	"github.com/matrixorigin/frameflow/pkg/compare"
	"github.com/matrixorigin/frameflow/pkg/config"
	"github.com/matrixorigin/frameflow/pkg/container/types"
	"github.com/matrixorigin/frameflow/pkg/logutil"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/expr"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/window"
	"github.com/matrixorigin/frameflow/pkg/vm/pipeline"
	"github.com/matrixorigin/frameflow/pkg/vm/process"
)

type windowOptions struct {
	input, types     string
	partition, order string
	frame, aggs      string
	running, exclude string
	monotonic        bool
	maxObjects       int
	offset           int64
}

func windowCommand() *cobra.Command {
	var opts windowOptions
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Evaluate window aggregates over csv input sorted on partition and order columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := setup(ctx)
			if err != nil {
				return err
			}
			return runWindow(ctx, cfg, cmd, &opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "-", "csv input file, - for stdin")
	f.StringVarP(&opts.types, "types", "t", "", "comma separated field types")
	f.StringVarP(&opts.partition, "partition", "p", "", "partition columns")
	f.StringVarP(&opts.order, "order", "o", "", "order column")
	f.StringVarP(&opts.frame, "frame", "f", "", "frame as range:P:F or rows:P:F, - for unbounded")
	f.StringVarP(&opts.aggs, "agg", "a", "", "window aggregates as name[:column]")
	f.StringVar(&opts.running, "running", "", "running aggregates: row_number, rank, dense_rank")
	f.StringVar(&opts.exclude, "exclude", "", "frame exclusion: current, ties or group")
	f.BoolVar(&opts.monotonic, "monotonic", false, "frame start never moves backwards")
	f.IntVar(&opts.maxObjects, "max-objects", -1, "tuples aggregated per frame, -1 for all")
	f.Int64Var(&opts.offset, "offset", 0, "tuples of the frame skipped before aggregating")
	return cmd
}

func runWindow(ctx context.Context, cfg *config.Config, cmd *cobra.Command, opts *windowOptions) error {
	ts, err := parseTypes(opts.types)
	if err != nil {
		return err
	}
	spec, err := buildWindowSpec(ts, opts)
	if err != nil {
		return err
	}
	spec.MemSizeInFrames = cfg.Window.MemSizeInFrames

	r, err := openInput(opts.input)
	if err != nil {
		return err
	}
	defer r.Close()
	frames, err := csvFrames(ctx, r, ts, cfg.Frame.MinFrameSize, true)
	if err != nil {
		return err
	}

	outTypes := append([]types.T(nil), ts...)
	for range spec.RunningAggs {
		outTypes = append(outTypes, types.T_int64)
	}
	for range spec.NestedAggs {
		outTypes = append(outTypes, types.T_any)
	}
	inDesc := types.NewRecordDescriptor(append(append([]types.T(nil), ts...), types.T_int64)...)

	proc := process.New(ctx, cfg.Frame.MinFrameSize)
	defer proc.Cancel()
	out := newPrintWriter(cmd.OutOrStdout(), types.NewRecordDescriptor(outTypes...))
	w, err := window.NewWindowNestedPlansRuntime(proc, spec, inDesc, out)
	if err != nil {
		return err
	}

	runner, err := pipeline.NewRunner(cfg.Runner.Workers)
	if err != nil {
		return err
	}
	defer runner.Release()
	if err = runner.Run(proc.Ctx, []pipeline.Task{{
		Name:     "window",
		Source:   &pipeline.FrameSource{Frames: frames},
		Operator: w,
	}}); err != nil {
		return err
	}
	logutil.Info("window finished", zap.Int("frames", len(frames)), zap.Int("rows", out.rows))
	return nil
}

// buildWindowSpec translates the command line into a window spec. The input
// carries a row id column after the csv fields, ROWS frames and row
// exclusion are expressed on it.
func buildWindowSpec(ts []types.T, opts *windowOptions) (window.WindowSpec, error) {
	ctx := moerr.Context()
	idCol := len(ts)
	asc := compare.New(types.T_any, true, false)
	spec := window.WindowSpec{
		FrameMaxObjects: opts.maxObjects,
	}

	parts, err := parseColumns(opts.partition, len(ts))
	if err != nil {
		return spec, err
	}
	for _, c := range parts {
		spec.PartitionColumns = append(spec.PartitionColumns, c)
		spec.PartitionComparators = append(spec.PartitionComparators, compare.New(ts[c], true, false))
	}
	order, err := parseColumns(opts.order, len(ts))
	if err != nil {
		return spec, err
	}
	if len(order) > 1 {
		return spec, moerr.NewInvalidInput(ctx, "at most one order column")
	}
	for _, c := range order {
		spec.OrderColumns = append(spec.OrderColumns, c)
		spec.OrderComparators = append(spec.OrderComparators, compare.New(ts[c], true, false))
	}
	for i := range ts {
		spec.ProjectionColumns = append(spec.ProjectionColumns, i)
	}

	if opts.frame != "" {
		kind, bounds, _ := strings.Cut(opts.frame, ":")
		preceding, following, ok := strings.Cut(bounds, ":")
		if !ok {
			return spec, moerr.NewInvalidInput(ctx, "bad frame %s", opts.frame)
		}
		var value expr.Factory
		switch kind {
		case "rows":
			value = expr.Column(idCol)
		case "range":
			if len(order) != 1 {
				return spec, moerr.NewInvalidInput(ctx, "range frame needs an order column")
			}
			value = expr.Column(order[0])
		default:
			return spec, moerr.NewInvalidInput(ctx, "bad frame kind %s", kind)
		}
		spec.FrameValueEvals = []expr.Factory{value}
		spec.FrameValueComparators = []compare.Comparator{asc}
		if preceding != "-" {
			n, err := parseBound(preceding)
			if err != nil {
				return spec, err
			}
			spec.FrameStartEvals = []expr.Factory{expr.Sub(value, expr.Constant(n))}
		}
		if following != "-" {
			n, err := parseBound(following)
			if err != nil {
				return spec, err
			}
			spec.FrameEndEvals = []expr.Factory{expr.Add(value, expr.Constant(n))}
		}
	}
	spec.FrameStartIsMonotonic = opts.monotonic
	if opts.offset > 0 {
		spec.FrameOffsetEval = expr.Constant(types.AppendInt64(nil, opts.offset))
	}

	switch opts.exclude {
	case "":
	case "current":
		spec.FrameExcludeEvals = []expr.Factory{expr.Column(idCol)}
		spec.FrameExcludeComparators = []compare.Comparator{asc}
		spec.FrameExcludeNegationStartIdx = 1
	case "ties", "group":
		if len(order) != 1 {
			return spec, moerr.NewInvalidInput(ctx, "exclude %s needs an order column", opts.exclude)
		}
		spec.FrameExcludeEvals = []expr.Factory{expr.Column(order[0])}
		spec.FrameExcludeComparators = []compare.Comparator{asc}
		spec.FrameExcludeNegationStartIdx = 1
		if opts.exclude == "ties" {
			spec.FrameExcludeEvals = append(spec.FrameExcludeEvals, expr.Column(idCol))
			spec.FrameExcludeComparators = append(spec.FrameExcludeComparators, asc)
		}
	default:
		return spec, moerr.NewInvalidInput(ctx, "bad exclusion %s", opts.exclude)
	}

	for _, name := range splitList(opts.running) {
		op, ok := window.ParseRunningName(name)
		if !ok {
			return spec, moerr.NewNotSupported(ctx, "running aggregate %s", name)
		}
		spec.RunningAggs = append(spec.RunningAggs, op)
	}
	if spec.NestedAggs, err = parseAggs(opts.aggs, len(ts), false); err != nil && opts.aggs != "" {
		return spec, err
	}
	if len(spec.NestedAggs) == 0 && len(spec.RunningAggs) == 0 {
		return spec, moerr.NewInvalidInput(ctx, "no aggregates")
	}
	return spec, nil
}

func parseBound(s string) ([]byte, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return nil, moerr.NewInvalidInput(moerr.Context(), "bad frame bound %s", s)
	}
	return types.AppendInt64(nil, n), nil
}
