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

// Package runner executes a parsed pipeline's stages in declared order: each
// stage's batch steps run to completion first, and its service steps are
// rolled out after them, matching the invocation a driver pod makes once it
// has downloaded and loaded its pipeline's configuration.
package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/valeger/automl/internal/config"
	"github.com/valeger/automl/internal/errs"
	"github.com/valeger/automl/internal/platform"
	"github.com/valeger/automl/internal/steps"
)

// Runner drives one pipeline run to completion or to the first stage that
// fails.
type Runner struct {
	batch   *steps.BatchExecutor
	service *steps.ServiceExecutor
	logger  *zap.Logger
}

// New builds a Runner bound to rc, the resolved checkout and namespace a
// driver pod is running against.
func New(client *platform.Client, rc steps.RunContext, logger *zap.Logger) *Runner {
	return &Runner{
		batch:   steps.NewBatchExecutor(client, rc),
		service: steps.NewServiceExecutor(client, rc, logger),
		logger:  logger,
	}
}

// Run executes every stage of pipeline in the order recorded in stageOrder.
// A stage's batch steps are submitted and awaited first; its service steps
// are then reconciled. The first stage whose steps fail or time out stops
// the run — later stages never start, matching the original executor's
// fail-fast behavior.
func (r *Runner) Run(ctx context.Context, pipeline *config.Pipeline, stageOrder []string) error {
	for _, stage := range pipeline.OrderedStages(stageOrder) {
		var batchSteps, serviceSteps []config.Step
		for _, step := range stage.Steps {
			if step.IsService() {
				serviceSteps = append(serviceSteps, step)
			} else {
				batchSteps = append(batchSteps, step)
			}
		}

		if len(batchSteps) > 0 {
			if err := r.batch.Run(ctx, stage.Name, batchSteps); err != nil {
				return stageErr(pipeline.Name, stage.Name, err)
			}
			r.logger.Info("batch steps completed",
				zap.String("pipeline", pipeline.Name), zap.String("stage", stage.Name))
		}

		if len(serviceSteps) > 0 {
			if err := r.service.Run(ctx, stage.Name, serviceSteps); err != nil {
				return stageErr(pipeline.Name, stage.Name, err)
			}
			r.logger.Info("service steps rolled out",
				zap.String("pipeline", pipeline.Name), zap.String("stage", stage.Name))
		}
	}
	return nil
}

// stageErr re-wraps a step executor's KindTimeout or KindStopExecution error
// with the stage and pipeline it failed in, preserving its Kind so callers
// can still branch on errs.As. Errors of any other kind, and unclassified
// errors, are returned unchanged.
func stageErr(pipeline, stage string, err error) error {
	classified, ok := errs.As(err)
	if !ok {
		return err
	}
	prefix := fmt.Sprintf("stage=%s in %s pipeline: ", stage, pipeline)
	switch classified.Kind {
	case errs.KindTimeout:
		return errs.Timeout(prefix + classified.Message)
	case errs.KindStopExecution:
		return errs.StopExecution(prefix + classified.Message)
	default:
		return err
	}
}
