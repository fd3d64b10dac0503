package wait

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/valeger/automl/internal/errs"
)

func TestPollSucceedsImmediately(t *testing.T) {
	targets := []Target{
		{Name: "a", Probe: func(context.Context) (Status, error) { return StatusReady, nil }},
	}
	opts := Options{PollInterval: time.Millisecond, Timeout: time.Second}
	if err := Poll(context.Background(), opts, targets); err != nil {
		t.Fatalf("Poll: %v", err)
	}
}

func TestPollEventuallyReady(t *testing.T) {
	calls := 0
	targets := []Target{
		{Name: "a", Probe: func(context.Context) (Status, error) {
			calls++
			if calls < 3 {
				return StatusPending, nil
			}
			return StatusReady, nil
		}},
	}
	opts := Options{PollInterval: time.Millisecond, Timeout: time.Second}
	if err := Poll(context.Background(), opts, targets); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if calls < 3 {
		t.Errorf("expected at least 3 probe calls, got %d", calls)
	}
}

func TestPollTimesOut(t *testing.T) {
	targets := []Target{
		{
			Name:  "Job=demo",
			Probe: func(context.Context) (Status, error) { return StatusPending, nil },
			Logs:  func(context.Context) string { return "log output" },
		},
	}
	opts := Options{PollInterval: time.Millisecond, Timeout: 5 * time.Millisecond}
	err := Poll(context.Background(), opts, targets)
	if err == nil {
		t.Fatalf("expected a timeout error")
	}
	classified, ok := errs.As(err)
	if !ok || classified.Kind != errs.KindTimeout {
		t.Fatalf("expected KindTimeout, got %v", err)
	}
	if !strings.Contains(classified.Message, "Job=demo") || !strings.Contains(classified.Message, "log output") {
		t.Errorf("expected timeout message to name target and logs, got %q", classified.Message)
	}
}

func TestPollFailsFast(t *testing.T) {
	targets := []Target{
		{
			Name:  "Job=broken",
			Probe: func(context.Context) (Status, error) { return StatusFailed, nil },
			Logs:  func(context.Context) string { return "boom" },
		},
	}
	opts := Options{PollInterval: time.Millisecond, Timeout: time.Second}
	err := Poll(context.Background(), opts, targets)
	if err == nil {
		t.Fatalf("expected a StopExecution error")
	}
	classified, ok := errs.As(err)
	if !ok || classified.Kind != errs.KindStopExecution {
		t.Fatalf("expected KindStopExecution, got %v", err)
	}
}

func TestPollRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	targets := []Target{
		{Name: "a", Probe: func(context.Context) (Status, error) { return StatusPending, nil }},
	}
	opts := Options{WaitBeforeStart: time.Millisecond, PollInterval: time.Millisecond, Timeout: time.Second}
	if err := Poll(ctx, opts, targets); err == nil {
		t.Fatalf("expected context cancellation to produce an error")
	}
}
