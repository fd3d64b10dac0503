package steps

import (
	"time"

	"github.com/valeger/automl/internal/config"
)

// A stage's batch/service steps run concurrently under one shared wait, so
// the three timing knobs are aggregated across the stage's steps: the
// longest timeout and warm-up win (nobody gets cut off early), the shortest
// polling interval wins (nobody is checked on too slowly).

func maxTimeout(steps []config.Step) time.Duration {
	var max time.Duration
	for _, s := range steps {
		d := time.Duration(s.TimeoutSeconds) * time.Second
		if d > max {
			max = d
		}
	}
	return max
}

func maxWarmUp(steps []config.Step) time.Duration {
	var max time.Duration
	for _, s := range steps {
		d := time.Duration(s.WaitBeforeStartSeconds) * time.Second
		if d > max {
			max = d
		}
	}
	return max
}

func minPolling(steps []config.Step) time.Duration {
	min := time.Duration(0)
	for _, s := range steps {
		d := time.Duration(s.PollingSeconds) * time.Second
		if min == 0 || d < min {
			min = d
		}
	}
	if min == 0 {
		min = time.Second
	}
	return min
}
