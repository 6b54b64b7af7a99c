package monitor

import (
	"io"

	"github.com/banshee-data/rangeimage/internal/lidar"
)

var logs = lidar.NewStreams("[monitor] ")

// SetLogWriters configures the three logging streams for the monitor package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) { logs.Set(ops, diag, trace) }

func opsf(format string, args ...interface{})  { logs.Opsf(format, args...) }
func diagf(format string, args ...interface{}) { logs.Diagf(format, args...) }
