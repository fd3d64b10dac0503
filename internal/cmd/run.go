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

package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valeger/automl/internal/config"
	"github.com/valeger/automl/internal/errs"
	"github.com/valeger/automl/internal/runner"
	"github.com/valeger/automl/internal/steps"
)

// runCmd is the entrypoint a driver pod invokes once the cluster has
// scheduled it: it reads its pipeline's configuration from the URL the
// driver's repo secret stashed in the environment and executes every stage
// in order. It is hidden because operators never invoke it directly.
var runCmd = &cobra.Command{
	Use:    "run",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, _ := cmd.Flags().GetString("workflow")
		branch, _ := cmd.Flags().GetString("branch")
		projectDir, _ := cmd.Flags().GetString("project-dir")
		namespace, _ := cmd.Flags().GetString("namespace")

		configURL := os.Getenv("CONFIG_URL")
		if configURL == "" {
			return errs.Value("CONFIG_URL environment variable is not set")
		}

		raw, err := config.Download(configURL)
		if err != nil {
			return err
		}
		cfg, order, err := config.Load(raw, false)
		if err != nil {
			return err
		}

		logger.Info("pipeline started by runner", zap.String("pipeline", pipeline))

		client, _, mgr, err := connect()
		if err != nil {
			return err
		}
		rc := steps.RunContext{
			Pipeline:   pipeline,
			Branch:     branch,
			ProjectDir: projectDir,
			Namespace:  namespace,
			Secrets:    mgr,
		}

		run := runner.New(client, rc, logger)
		return run.Run(context.Background(), cfg, order)
	},
}

func init() {
	runCmd.Flags().StringP("workflow", "w", "", "pipeline name")
	runCmd.Flags().StringP("branch", "b", "", "git branch checked out")
	runCmd.Flags().String("project-dir", "", "project subdirectory inside the repository")
	runCmd.Flags().StringP("namespace", "n", defaultNamespace, "namespace to run in")
}
