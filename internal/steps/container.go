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

// Package steps builds and drives the two step executors described in
// §4.5 and §4.6: a batch step runs a Job to completion, a service step
// keeps a Deployment (and optionally a Service/Ingress) running.
package steps

import (
	"context"
	"fmt"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	resourceapi "k8s.io/apimachinery/pkg/api/resource"

	"github.com/valeger/automl/internal/config"
	"github.com/valeger/automl/internal/naming"
	"github.com/valeger/automl/internal/secrets"
)

const containerName = "automl"

// RunContext carries everything shared by every step in a pipeline run:
// where the repo was checked out from, which branch, and the project's
// subdirectory inside it.
type RunContext struct {
	Pipeline    string
	Branch      string
	ProjectDir  string
	Namespace   string
	Secrets     *secrets.Manager
}

// buildContainer assembles the one container every batch and service step
// runs, applying the image-override rule: when the step keeps the default
// client image, the repo is cloned and bootstrapped by a generated shell
// recipe; when a custom image is given, command is cleared and the step's
// own command list becomes the container's args verbatim.
func buildContainer(ctx context.Context, rc RunContext, stage string, step config.Step) (corev1.Container, error) {
	envFrom, err := rc.Secrets.EnvFrom(ctx, rc.Namespace, append(append([]string{}, step.Secrets...), secrets.RepoSecretName(rc.Pipeline)))
	if err != nil {
		return corev1.Container{}, err
	}

	var envVars []corev1.EnvVar
	if len(step.Envs) > 0 {
		names := make([]string, 0, len(step.Envs))
		for name := range step.Envs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			envVars = append(envVars, corev1.EnvVar{Name: name, Value: step.Envs[name]})
		}
	}

	var command, args []string
	if step.Image == config.ClientImage {
		baseArgs := fmt.Sprintf(
			"git clone $(echo $REPO_URL) && cd %s && git checkout %s && python -m pip install -r %s && ",
			rc.ProjectDir, rc.Branch, step.DependencyPath,
		)
		custom := fmt.Sprintf("python %s", step.PathToExecutable)
		if len(step.Command) > 0 {
			custom = strings.Join(step.Command, " ")
		}
		command = []string{"/bin/sh", "-c"}
		args = []string{baseArgs + custom}
	} else {
		args = step.Command
		command = nil
	}

	requests := corev1.ResourceList{}
	if step.CPURequest > 0 {
		requests[corev1.ResourceCPU] = resourceapi.MustParse(fmt.Sprintf("%v", step.CPURequest))
	}
	if step.MemoryRequest > 0 {
		requests[corev1.ResourceMemory] = resourceapi.MustParse(fmt.Sprintf("%dM", step.MemoryRequest))
	}

	return corev1.Container{
		Name:            containerName,
		Image:           step.Image,
		ImagePullPolicy: corev1.PullAlways,
		Resources:       corev1.ResourceRequirements{Requests: requests},
		Env:             envVars,
		EnvFrom:         envFrom,
		Command:         command,
		Args:            args,
	}, nil
}

// imagePullSecrets resolves the pull secret list for a pod spec, separated
// from buildContainer so it is computed exactly once per step build.
func imagePullSecrets(ctx context.Context, rc RunContext) ([]corev1.LocalObjectReference, error) {
	ref, err := rc.Secrets.ImagePullSecret(ctx, rc.Namespace)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, nil
	}
	return []corev1.LocalObjectReference{*ref}, nil
}

func stepLabels(pipeline, stage, step string) map[string]string {
	return naming.Labels(pipeline, stage, step, "")
}
