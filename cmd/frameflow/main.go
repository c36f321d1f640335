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
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matrixorigin/frameflow/pkg/config"
	"github.com/matrixorigin/frameflow/pkg/logutil"
	v2 "github.com/matrixorigin/frameflow/pkg/util/metric/v2"
)

var (
	// Version is set with -ldflags at build time.
	Version = "unknown"
	// CommitID is set with -ldflags at build time.
	CommitID = "unknown"
)

var configFile string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "frameflow",
		Short:         "Run frame based operators over csv input",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "toml configuration file")
	root.AddCommand(groupCommand(), windowCommand(), versionCommand())
	return root
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "frameflow %s (%s)\n", Version, CommitID)
		},
	}
}

// setup loads and validates the configuration, installs the logger and
// starts the metric exporter when enabled.
func setup(ctx context.Context) (*config.Config, error) {
	cfg := config.NewConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.LoadConfig(configFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(ctx); err != nil {
		return nil, err
	}
	logutil.SetupMOLogger(&cfg.Log)
	if cfg.Metric.Enable {
		serveMetrics(cfg.Metric.Addr)
	}
	return cfg, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(v2.GetPrometheusGatherer(), promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logutil.Error("metric exporter stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
}
