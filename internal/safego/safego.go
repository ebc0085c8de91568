// Package safego provides a panic-recovering goroutine launcher for background work.
package safego

import (
	"log/slog"
	"runtime/debug"

	"github.com/annotation-study/registration/internal/telemetry"
)

// Go runs fn in a new goroutine. A panic in fn is logged with the task name
// and counted in background_task_panics_total instead of crashing the process.
func Go(name string, fn func()) {
	go Run(name, fn)
}

// Run calls fn on the current goroutine with the same recovery as Go. It
// reports whether fn returned normally.
func Run(name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.BackgroundPanicsTotal.WithLabelValues(name).Inc()
			slog.Error("recovered panic in background goroutine",
				"task", name, "panic", r, "stack", string(debug.Stack()))
			ok = false
		}
	}()
	fn()
	return true
}
