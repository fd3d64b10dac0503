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
	corev1 "k8s.io/api/core/v1"

	"github.com/valeger/automl/internal/config"
	"github.com/valeger/automl/internal/driver"
	"github.com/valeger/automl/internal/gitsource"
	"github.com/valeger/automl/internal/naming"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a pipeline, scheduled pipeline, or secret",
}

func init() {
	createCmd.AddCommand(createSecretCmd, createWorkflowCmd, createCronWorkflowCmd)
}

var createSecretCmd = &cobra.Command{
	Use:     "secret NAME KEY=VALUE...",
	Aliases: []string{"s"},
	Short:   "Create a secret",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		pipeline, _ := cmd.Flags().GetString("workflow")
		secretType, _ := cmd.Flags().GetString("type")

		name := naming.FixResourceName(args[0])
		namespace = naming.FixResourceName(namespace)
		if pipeline != "" {
			pipeline = naming.FixResourceName(pipeline)
		}

		data, err := parseSecretArgs(args[1:])
		if err != nil {
			return err
		}

		_, _, mgr, err := connect()
		if err != nil {
			return err
		}
		ctx := context.Background()

		if exists, err := secretExists(ctx, mgr, name, namespace); err != nil {
			return err
		} else if exists {
			logger.Error("secret already exists", zap.String("name", name), zap.String("namespace", namespace))
			return nil
		}

		if err := mgr.Create(ctx, name, namespace, pipeline, data, corev1.SecretType(secretType)); err != nil {
			return err
		}
		logger.Info("secret created", zap.String("name", name), zap.String("namespace", namespace))
		return nil
	},
}

func init() {
	createSecretCmd.Flags().StringP("workflow", "w", "", "pipeline name to bind this secret to")
	createSecretCmd.Flags().StringP("namespace", "n", defaultNamespace, "namespace to create the secret in")
	createSecretCmd.Flags().StringP("type", "t", string(corev1.SecretTypeOpaque), "type of the secret")
}

var createWorkflowCmd = &cobra.Command{
	Use:     "workflow URL NAME",
	Aliases: []string{"w"},
	Short:   "Create a one-shot pipeline runner",
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

		return drv.CreateOneShot(context.Background(), p)
	},
}

var createCronWorkflowCmd = &cobra.Command{
	Use:     "cronworkflow URL NAME",
	Aliases: []string{"cw"},
	Short:   "Create a scheduled pipeline runner",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		schedule, _ := cmd.Flags().GetString("schedule")
		if err := config.ValidateSchedule(schedule); err != nil {
			return err
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

		return drv.CreateScheduled(context.Background(), p, schedule)
	},
}

func init() {
	addWorkflowFlags(createWorkflowCmd)
	addWorkflowFlags(createCronWorkflowCmd)
	createCronWorkflowCmd.Flags().StringP("schedule", "s", "", "cron schedule, e.g. \"0 12 * * *\"")
	_ = createCronWorkflowCmd.MarkFlagRequired("schedule")
}

// addWorkflowFlags registers the flags shared by create/update workflow and
// cronworkflow commands.
func addWorkflowFlags(c *cobra.Command) {
	c.Flags().StringP("token", "t", "", "PAT token for private repositories")
	c.Flags().String("id", "", "numeric project id, required for private GitLab repositories")
	c.Flags().StringP("branch", "b", "master", "git branch to check out")
	c.Flags().StringP("namespace", "n", defaultNamespace, "namespace to run the pipeline in")
	c.Flags().StringP("file", "f", "config.yaml", "configuration file path in the repository root")
	c.Flags().Bool("check", false, "validate the configuration file before creating the runner")
}

// resolveParams parses URL/NAME and flags shared by create and update into a
// driver.Params, deriving the repo and raw-config URLs via gitsource.
func resolveParams(cmd *cobra.Command, args []string) (driver.Params, error) {
	url, name := args[0], args[1]
	token, _ := cmd.Flags().GetString("token")
	id, _ := cmd.Flags().GetString("id")
	branch, _ := cmd.Flags().GetString("branch")
	namespace, _ := cmd.Flags().GetString("namespace")
	file, _ := cmd.Flags().GetString("file")

	name = naming.FixResourceName(name)
	namespace = naming.FixResourceName(namespace)

	repo, err := gitsource.Parse(url,
		gitsource.WithToken(token), gitsource.WithID(id),
		gitsource.WithBranch(branch), gitsource.WithFile(file))
	if err != nil {
		return driver.Params{}, err
	}
	configURL, err := repo.RawConfigURL()
	if err != nil {
		return driver.Params{}, err
	}

	return driver.Params{
		Pipeline:   name,
		Namespace:  namespace,
		URL:        repo.RepoURL(),
		ConfigURL:  configURL,
		ProjectDir: repo.Project,
		Branch:     repo.Branch,
	}, nil
}

// checkConfigIfRequested downloads and validates the pipeline configuration
// up front when --check is set, surfacing a bad config before any runner is
// created.
func checkConfigIfRequested(cmd *cobra.Command, p driver.Params) error {
	check, _ := cmd.Flags().GetBool("check")
	if !check {
		return nil
	}
	raw, err := config.Download(p.ConfigURL)
	if err != nil {
		return err
	}
	_, _, err = config.Load(raw, true)
	return err
}
