package l3grid

import (
	"io"

	"github.com/banshee-data/rangeimage/internal/lidar"
)

var logs = lidar.NewStreams("[l3grid] ")

// SetLogWriters configures the three logging streams for the l3grid package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) { logs.Set(ops, diag, trace) }

// opsf logs to the ops stream (actionable warnings, errors, data loss).
func opsf(format string, args ...interface{}) { logs.Opsf(format, args...) }

// diagf logs to the diag stream (build summaries, tuning context).
func diagf(format string, args ...interface{}) { logs.Diagf(format, args...) }

// tracef logs to the trace stream (per-point telemetry).
func tracef(format string, args ...interface{}) { logs.Tracef(format, args...) }
