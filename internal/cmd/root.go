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

// Package cmd assembles the cobra command tree: create/update/delete/get for
// pipelines, cronpipelines and secrets, a standalone "bootstrap", plus the
// hidden "run" entrypoint a driver pod invokes to execute its pipeline.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valeger/automl/internal/auth"
	"github.com/valeger/automl/internal/driver"
	"github.com/valeger/automl/internal/errs"
	"github.com/valeger/automl/internal/platform"
	"github.com/valeger/automl/internal/secrets"
)

var logger, _ = zap.NewProduction()

var rootCmd = &cobra.Command{
	Use:   "automl",
	Short: "automl drives ML pipelines defined in a git repository onto a Kubernetes cluster",
	Long: `automl turns a git-hosted pipeline config into Kubernetes Jobs and
Deployments: create a one-shot or scheduled runner for a repository,
and automl will check it out, resolve its stages, and execute them in
order on the cluster.`,
}

func init() {
	rootCmd.AddCommand(createCmd, updateCmd, deleteCmd, getCmd, runCmd, bootstrapCmd)
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

// Execute runs the root command and returns the process exit code. Every
// classified error gets exactly one log line from errs.Handle; cobra's own
// usage/error printing is silenced so a command failure never prints twice.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		errs.Handle(logger, err)
	}
	return errs.ExitCode(err)
}

// connect authenticates against the platform and wires the Driver and
// secrets Manager every command needs. It is called once per command
// invocation rather than at process start so unit tests never touch a real
// cluster.
func connect() (*platform.Client, *driver.Driver, *secrets.Manager, error) {
	client, err := platform.Authenticate()
	if err != nil {
		return nil, nil, nil, err
	}
	mgr := secrets.New(client)
	drv := driver.New(client, mgr, logger, driver.Options{})
	return client, drv, mgr, nil
}

const defaultNamespace = "automl"

// connectAndBootstrap is connect plus the namespace/service-account/RBAC
// bootstrap that create and update commands (but not delete, get, or run)
// perform before touching any pipeline object.
func connectAndBootstrap(namespace string) (*platform.Client, *driver.Driver, *secrets.Manager, error) {
	client, drv, mgr, err := connect()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := auth.Bootstrap(context.Background(), client, logger, auth.Options{Namespace: namespace}); err != nil {
		return nil, nil, nil, err
	}
	return client, drv, mgr, nil
}
