/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package wait implements the bounded readiness poll every step executor
// uses to decide when its targets have settled: warm up, probe on an
// interval, and fail with a composed, per-target log dump on timeout.
package wait

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valeger/automl/internal/errs"
)

// Target is a single object being watched: Name identifies it for the
// timeout/failure message, Probe reports its current settled/failed state.
type Target struct {
	Name  string
	Probe func(ctx context.Context) (Status, error)
	Logs  func(ctx context.Context) string
}

// Status is the three-way verdict a Probe reports, mirroring the
// active/succeeded/failed state machine every batch and service step goes
// through.
type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusFailed
)

// Options configures a Poll call's timing.
type Options struct {
	WaitBeforeStart time.Duration
	PollInterval    time.Duration
	Timeout         time.Duration // zero means no deadline
}

// Poll blocks until every target reports StatusReady, one reports
// StatusFailed, the context is canceled, or Timeout elapses.
//
// On timeout it returns a *errs.Error (KindTimeout) naming every
// not-yet-ready target along with that target's logs. On a StatusFailed
// verdict it returns a *errs.Error (KindStopExecution) naming every failed
// target and its logs.
func Poll(ctx context.Context, opts Options, targets []Target) error {
	select {
	case <-time.After(opts.WaitBeforeStart):
	case <-ctx.Done():
		return ctx.Err()
	}

	start := time.Now()
	for {
		statuses := make([]Status, len(targets))
		anyFailed := false
		anyPending := false
		for i, target := range targets {
			status, err := target.Probe(ctx)
			if err != nil {
				return err
			}
			statuses[i] = status
			switch status {
			case StatusFailed:
				anyFailed = true
			case StatusPending:
				anyPending = true
			}
		}

		if anyFailed {
			return errs.StopExecution(composeMessage(ctx, targets, statuses, StatusFailed))
		}
		if !anyPending {
			return nil
		}

		if opts.Timeout > 0 && time.Since(start) >= opts.Timeout {
			return errs.Timeout(composeMessage(ctx, targets, statuses, StatusPending))
		}

		select {
		case <-time.After(opts.PollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func composeMessage(ctx context.Context, targets []Target, statuses []Status, want Status) string {
	var parts []string
	for i, target := range targets {
		if statuses[i] != want {
			continue
		}
		logs := ""
		if target.Logs != nil {
			logs = target.Logs(ctx)
		}
		parts = append(parts, fmt.Sprintf("\n%s\nLogs:\n%s", target.Name, logs))
	}
	return strings.Join(parts, "")
}
