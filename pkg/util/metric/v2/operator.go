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

package v2

import "github.com/prometheus/client_golang/prometheus"

var (
	OperatorTupleCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frameflow",
			Subsystem: "operator",
			Name:      "tuple_total",
			Help:      "Total number of tuples consumed and produced by operators.",
		}, []string{"operator", "direction"})

	OperatorFrameCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frameflow",
			Subsystem: "operator",
			Name:      "frame_total",
			Help:      "Total number of frames consumed by operators.",
		}, []string{"operator"})

	OperatorFailureCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frameflow",
			Subsystem: "operator",
			Name:      "failure_total",
			Help:      "Total number of operator instances that ended in failure.",
		}, []string{"operator"})
)

var (
	GroupEmittedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "frameflow",
			Subsystem: "group",
			Name:      "emitted_total",
			Help:      "Total number of groups emitted by the preclustered group writer.",
		})
)

var (
	WindowPartitionCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "frameflow",
			Subsystem: "window",
			Name:      "partition_total",
			Help:      "Total number of window partitions processed.",
		})

	WindowFrameScanCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frameflow",
			Subsystem: "window",
			Name:      "frame_scan_total",
			Help:      "Total number of per row frame scans, by where the scan started.",
		}, []string{"type"})
	WindowFrameScanRewindCounter = WindowFrameScanCounter.WithLabelValues("rewind")
	WindowFrameScanResumeCounter = WindowFrameScanCounter.WithLabelValues("resume")

	WindowPartitionSizeHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "frameflow",
			Subsystem: "window",
			Name:      "partition_size_bytes",
			Help:      "Bytes materialized per window partition.",
			Buckets:   prometheus.ExponentialBuckets(1024, 2, 20),
		})
)

var (
	FrameFlushCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frameflow",
			Subsystem: "frame",
			Name:      "flush_total",
			Help:      "Total number of output frames pushed downstream.",
		}, []string{"operator"})

	FrameGrowCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "frameflow",
			Subsystem: "frame",
			Name:      "grow_total",
			Help:      "Total number of times a growable frame was enlarged.",
		})
)

func TupleInCounter(op string) prometheus.Counter {
	return OperatorTupleCounter.WithLabelValues(op, "in")
}

func TupleOutCounter(op string) prometheus.Counter {
	return OperatorTupleCounter.WithLabelValues(op, "out")
}

func FrameInCounter(op string) prometheus.Counter {
	return OperatorFrameCounter.WithLabelValues(op)
}
