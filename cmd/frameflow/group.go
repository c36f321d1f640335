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
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/agg"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/expr"
	"github.com/matrixorigin/frameflow/pkg/sql/colexec/group"
	"github.com/matrixorigin/frameflow/pkg/vm/pipeline"
	"github.com/matrixorigin/frameflow/pkg/vm/process"
)

func groupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Aggregate csv input that is clustered on the group keys",
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
			input, _ := cmd.Flags().GetString("input")
			typeList, _ := cmd.Flags().GetString("types")
			keys, _ := cmd.Flags().GetString("keys")
			aggs, _ := cmd.Flags().GetString("agg")
			merge, _ := cmd.Flags().GetBool("merge")
			return runGroup(ctx, cfg, cmd, input, typeList, keys, aggs, merge)
		},
	}
	cmd.Flags().StringP("input", "i", "-", "csv input file, - for stdin")
	cmd.Flags().StringP("types", "t", "", "comma separated field types, e.g. int64,string")
	cmd.Flags().StringP("keys", "k", "", "comma separated group key columns")
	cmd.Flags().StringP("agg", "a", "count_star", "aggregates as name[:column], e.g. count:1,sum:2")
	cmd.Flags().Bool("merge", false, "the aggregate columns hold partial results to merge")
	return cmd
}

func runGroup(ctx context.Context, cfg *config.Config, cmd *cobra.Command,
	input, typeList, keyList, aggList string, merge bool) error {
	ts, err := parseTypes(typeList)
	if err != nil {
		return err
	}
	keys, err := parseColumns(keyList, len(ts))
	if err != nil {
		return err
	}
	specs, err := parseAggs(aggList, len(ts), merge)
	if err != nil {
		return err
	}

	r, err := openInput(input)
	if err != nil {
		return err
	}
	defer r.Close()
	frames, err := csvFrames(ctx, r, ts, cfg.Frame.MinFrameSize, false)
	if err != nil {
		return err
	}

	cmps := make([]compare.Comparator, len(keys))
	outTypes := make([]types.T, 0, len(keys)+len(specs))
	for i, k := range keys {
		cmps[i] = compare.New(ts[k], true, false)
		outTypes = append(outTypes, ts[k])
	}
	for range specs {
		outTypes = append(outTypes, types.T_any)
	}

	proc := process.New(ctx, cfg.Frame.MinFrameSize)
	defer proc.Cancel()
	out := newPrintWriter(cmd.OutOrStdout(), types.NewRecordDescriptor(outTypes...))
	w, err := group.NewPreclusteredGroupWriter(proc, keys, cmps, group.NewSimpleAggregatorFactory(specs),
		types.NewRecordDescriptor(ts...), types.NewRecordDescriptor(outTypes...), out,
		cfg.Group.OutputPartial, cfg.Group.GroupAll, cfg.Group.FramesLimit)
	if err != nil {
		return err
	}

	runner, err := pipeline.NewRunner(cfg.Runner.Workers)
	if err != nil {
		return err
	}
	defer runner.Release()
	if err = runner.Run(proc.Ctx, []pipeline.Task{{
		Name:     "group",
		Source:   &pipeline.FrameSource{Frames: frames},
		Operator: w,
	}}); err != nil {
		return err
	}
	logutil.Info("group finished", zap.Int("frames", len(frames)), zap.Int("rows", out.rows))
	return nil
}

// parseAggs parses name[:column] items. count_star takes no column.
func parseAggs(s string, nFields int, merge bool) ([]group.AggSpec, error) {
	var specs []group.AggSpec
	for _, item := range splitList(s) {
		name, col, hasCol := strings.Cut(item, ":")
		op, ok := agg.ParseName(name)
		if !ok {
			return nil, moerr.NewNotSupported(moerr.Context(), "aggregate %s", name)
		}
		spec := group.AggSpec{Op: op, Merge: merge}
		if hasCol {
			c, err := strconv.Atoi(col)
			if err != nil || c < 0 || c >= nFields {
				return nil, moerr.NewInvalidInput(moerr.Context(), "bad aggregate column %s", col)
			}
			spec.Arg = expr.Column(c)
		} else if op != agg.CountStar || merge {
			return nil, moerr.NewInvalidInput(moerr.Context(), "aggregate %s needs a column", name)
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, moerr.NewInvalidInput(moerr.Context(), "no aggregates")
	}
	return specs, nil
}
