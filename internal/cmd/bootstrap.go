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
	"go.uber.org/zap"

	"github.com/valeger/automl/internal/auth"
	"github.com/valeger/automl/internal/naming"
)

// bootstrapCmd stands the access-control objects a namespace needs up on
// their own, for operators who want to provision a namespace ahead of the
// first "create workflow" rather than let it happen implicitly.
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the namespace, service account, and RBAC objects a pipeline needs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		namespace = naming.FixResourceName(namespace)

		client, _, _, err := connect()
		if err != nil {
			return err
		}

		if err := auth.Bootstrap(context.Background(), client, logger, auth.Options{Namespace: namespace}); err != nil {
			return err
		}
		logger.Info("namespace bootstrapped", zap.String("namespace", namespace))
		return nil
	},
}

func init() {
	bootstrapCmd.Flags().StringP("namespace", "n", defaultNamespace, "namespace to bootstrap")
}
