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
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valeger/automl/internal/naming"
	"github.com/valeger/automl/internal/report"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Describe pipelines, scheduled pipelines, their resources, and secrets",
}

func init() {
	getCmd.AddCommand(
		getSecretsCmd,
		getWorkflowCmd, getWorkflowsCmd,
		getCronWorkflowCmd, getCronWorkflowsCmd,
	)
	for _, c := range []*cobra.Command{getSecretsCmd, getWorkflowsCmd, getCronWorkflowsCmd} {
		c.Flags().StringP("namespace", "n", defaultNamespace, "namespace to search in")
	}
}

var getSecretsCmd = &cobra.Command{
	Use:     "secrets",
	Aliases: []string{},
	Short:   "List all secrets",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		namespace = naming.FixResourceName(namespace)

		_, _, mgr, err := connect()
		if err != nil {
			return err
		}
		infos, err := mgr.List(context.Background(), namespace)
		if err != nil {
			return err
		}
		if out := report.Secrets(infos); out != "" {
			fmt.Println(out)
		} else {
			logger.Warn("no secrets were found", zap.String("namespace", namespace))
		}
		return nil
	},
}

var getWorkflowsCmd = &cobra.Command{
	Use:     "workflows",
	Aliases: []string{"ws"},
	Short:   "List all one-shot pipelines",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		namespace = naming.FixResourceName(namespace)

		_, drv, _, err := connect()
		if err != nil {
			return err
		}
		runners, err := drv.ListOneShot(context.Background(), namespace)
		if err != nil {
			return err
		}
		if out := report.Workflows(namespace, runners); out != "" {
			fmt.Println(out)
		} else {
			logger.Warn("no workflows were found", zap.String("namespace", namespace))
		}
		return nil
	},
}

var getCronWorkflowsCmd = &cobra.Command{
	Use:     "cronworkflows",
	Aliases: []string{"cws"},
	Short:   "List all scheduled pipelines",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		namespace = naming.FixResourceName(namespace)

		_, drv, _, err := connect()
		if err != nil {
			return err
		}
		runners, err := drv.ListScheduled(context.Background(), namespace)
		if err != nil {
			return err
		}
		if out := report.CronWorkflows(namespace, runners); out != "" {
			fmt.Println(out)
		} else {
			logger.Warn("no cronworkflows were found", zap.String("namespace", namespace))
		}
		return nil
	},
}

var getWorkflowCmd = &cobra.Command{
	Use:     "workflow NAME",
	Aliases: []string{"w"},
	Short:   "Describe a one-shot pipeline's resources, or show its logs",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return describeRunner(cmd, args[0], false)
	},
}

var getCronWorkflowCmd = &cobra.Command{
	Use:     "cronworkflow NAME",
	Aliases: []string{"cw"},
	Short:   "Describe a scheduled pipeline's resources, or show its logs",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return describeRunner(cmd, args[0], true)
	},
}

func init() {
	for _, c := range []*cobra.Command{getWorkflowCmd, getCronWorkflowCmd} {
		c.Flags().StringP("namespace", "n", defaultNamespace, "namespace the pipeline runs in")
		c.Flags().Bool("logs", false, "show the runner's logs instead of its resources")
	}
}

// describeRunner implements the shared body of "get workflow" and
// "get cronworkflow": confirm the runner exists, then either print its logs
// or tabulate the Jobs/Deployments its stages have created.
func describeRunner(cmd *cobra.Command, name string, scheduled bool) error {
	namespace, _ := cmd.Flags().GetString("namespace")
	showLogs, _ := cmd.Flags().GetBool("logs")
	name = naming.FixResourceName(name)
	namespace = naming.FixResourceName(namespace)

	client, drv, _, err := connect()
	if err != nil {
		return err
	}
	ctx := context.Background()

	var exists bool
	if scheduled {
		exists, err = drv.CronExists(ctx, namespace, name)
	} else {
		exists, err = drv.JobExists(ctx, namespace, name)
	}
	if err != nil {
		return err
	}
	if !exists {
		logger.Warn("no such pipeline", zap.String("pipeline", name), zap.String("namespace", namespace))
		return nil
	}

	if showLogs {
		selector := naming.Selector(name, "", "", "")
		if out := client.LogsForSelector(ctx, namespace, selector); out != "" {
			fmt.Println(out)
		}
		return nil
	}

	resources, err := drv.Resources(ctx, namespace, name)
	if err != nil {
		return err
	}
	if out := report.Resources(resources); out != "" {
		fmt.Println(out)
	} else {
		logger.Warn("requested resources are not found yet", zap.String("pipeline", name))
	}
	return nil
}
