package safego

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/annotation-study/registration/internal/telemetry"
)

func panicCount(t *testing.T, task string) float64 {
	t.Helper()
	var m dto.Metric
	if err := telemetry.BackgroundPanicsTotal.WithLabelValues(task).Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRun(t *testing.T) {
	called := false
	if !Run("content-watcher-test", func() { called = true }) {
		t.Error("Run() = false for a function that returned normally")
	}
	if !called {
		t.Error("Run() did not call fn")
	}
}

func TestRun_RecoversPanic(t *testing.T) {
	before := panicCount(t, "admin-notification-test")

	if Run("admin-notification-test", func() { panic("smtp client exploded") }) {
		t.Error("Run() = true after a panic")
	}
	if got := panicCount(t, "admin-notification-test"); got != before+1 {
		t.Errorf("panic counter = %v, want %v", got, before+1)
	}
}

func TestGo(t *testing.T) {
	done := make(chan struct{})
	Go("go-test", func() {
		defer close(done)
		panic("recovered on the background goroutine")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("goroutine did not finish")
	}
}
