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

	"github.com/spf13/cobra"

	"github.com/valeger/automl/internal/config"
	"github.com/valeger/automl/internal/naming"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update a pipeline, scheduled pipeline, or secret",
}

func init() {
	updateCmd.AddCommand(updateSecretCmd, updateWorkflowCmd, updateCronWorkflowCmd)
}

var updateSecretCmd = &cobra.Command{
	Use:     "secret NAME KEY=VALUE...",
	Aliases: []string{"s"},
	Short:   "Update a secret",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		name := naming.FixResourceName(args[0])
		namespace = naming.FixResourceName(namespace)

		data, err := parseSecretArgs(args[1:])
		if err != nil {
			return err
		}

		_, _, mgr, err := connect()
		if err != nil {
			return err
		}
		return mgr.Update(context.Background(), name, namespace, data)
	},
}

func init() {
	updateSecretCmd.Flags().StringP("namespace", "n", defaultNamespace, "namespace the secret lives in")
}

var updateWorkflowCmd = &cobra.Command{
	Use:     "workflow URL NAME",
	Aliases: []string{"w"},
	Short:   "Update a one-shot pipeline runner",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveParams(cmd, args)
		if err != nil {
			return err
		}

		_, drv, _, err := connectAndBootstrap(p.Namespace)
		if err != nil {
			return err
		}

		if err := checkConfigIfRequested(cmd, p); err != nil {
			return err
		}

		return drv.UpdateOneShot(context.Background(), p)
	},
}

var updateCronWorkflowCmd = &cobra.Command{
	Use:     "cronworkflow URL NAME",
	Aliases: []string{"cw"},
	Short:   "Update a scheduled pipeline runner",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		schedule, _ := cmd.Flags().GetString("schedule")
		if schedule != "" {
			if err := config.ValidateSchedule(schedule); err != nil {
				return err
			}
		}

		p, err := resolveParams(cmd, args)
		if err != nil {
			return err
		}

		_, drv, _, err := connectAndBootstrap(p.Namespace)
		if err != nil {
			return err
		}

		if err := checkConfigIfRequested(cmd, p); err != nil {
			return err
		}

		return drv.UpdateScheduled(context.Background(), p, schedule)
	},
}

func init() {
	addWorkflowFlags(updateWorkflowCmd)
	addWorkflowFlags(updateCronWorkflowCmd)
	// unlike create, schedule is optional here: an empty value preserves
	// whatever schedule the existing cronworkflow already runs on.
	updateCronWorkflowCmd.Flags().StringP("schedule", "s", "", "cron schedule, e.g. \"0 12 * * *\"")
}
