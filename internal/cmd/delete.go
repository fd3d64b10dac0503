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

	"github.com/valeger/automl/internal/naming"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a pipeline, scheduled pipeline, or secret",
}

func init() {
	deleteCmd.AddCommand(deleteSecretCmd, deleteWorkflowCmd, deleteCronWorkflowCmd)
	for _, c := range []*cobra.Command{deleteSecretCmd, deleteWorkflowCmd, deleteCronWorkflowCmd} {
		c.Flags().StringP("namespace", "n", defaultNamespace, "namespace to delete from")
	}
}

var deleteSecretCmd = &cobra.Command{
	Use:     "secret NAME",
	Aliases: []string{"s"},
	Short:   "Delete a secret",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		name := naming.FixResourceName(args[0])
		namespace = naming.FixResourceName(namespace)

		_, _, mgr, err := connect()
		if err != nil {
			return err
		}
		return mgr.Delete(context.Background(), name, namespace)
	},
}

var deleteWorkflowCmd = &cobra.Command{
	Use:     "workflow NAME",
	Aliases: []string{"w"},
	Short:   "Delete a one-shot pipeline and everything it owns",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		name := naming.FixResourceName(args[0])
		namespace = naming.FixResourceName(namespace)

		_, drv, _, err := connect()
		if err != nil {
			return err
		}
		return drv.DeleteAll(context.Background(), namespace, name, false)
	},
}

var deleteCronWorkflowCmd = &cobra.Command{
	Use:     "cronworkflow NAME",
	Aliases: []string{"cw"},
	Short:   "Delete a scheduled pipeline and everything it owns",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		name := naming.FixResourceName(args[0])
		namespace = naming.FixResourceName(namespace)

		_, drv, _, err := connect()
		if err != nil {
			return err
		}
		return drv.DeleteAll(context.Background(), namespace, name, true)
	},
}
