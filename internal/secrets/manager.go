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

// Package secrets manages the per-pipeline credential objects: creation,
// merge-style updates, deletion, and the two read paths every step executor
// needs — turning a step's declared secret names into pod env sources, and
// finding the most recently created image-pull secret.
package secrets

import (
	"context"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/valeger/automl/internal/errs"
	"github.com/valeger/automl/internal/naming"
	"github.com/valeger/automl/internal/platform"
)

// Manager is the credential manager described by §4.3: every secret it
// creates carries the app=automl and pipeline labels so it can later be
// discovered and torn down as a unit.
type Manager struct {
	client *platform.Client
}

func New(client *platform.Client) *Manager {
	return &Manager{client: client}
}

func object(name, namespace, pipeline string, data map[string]string, secretType corev1.SecretType) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    naming.Labels(pipeline, "", "", ""),
		},
		StringData: data,
		Type:       secretType,
	}
}

// Create creates a new secret. Platform AlreadyExists conflicts propagate
// unchanged — callers decide whether a pre-existing secret is acceptable.
func (m *Manager) Create(ctx context.Context, name, namespace, pipeline string, data map[string]string, secretType corev1.SecretType) error {
	return m.client.CreateSecret(ctx, object(name, namespace, pipeline, data, secretType))
}

// Update merges data into the existing secret's StringData, preserving the
// pipeline label recorded on first creation.
func (m *Manager) Update(ctx context.Context, name, namespace string, data map[string]string) error {
	existing, err := m.client.GetSecret(ctx, name, namespace)
	if err != nil {
		return err
	}

	merged := map[string]string{}
	for k, v := range existing.Data {
		merged[k] = string(v)
	}
	for k, v := range data {
		merged[k] = v
	}

	existing.StringData = merged
	existing.Data = nil
	return m.client.UpdateSecret(ctx, existing)
}

// Delete removes a single named secret.
func (m *Manager) Delete(ctx context.Context, name, namespace string) error {
	return m.client.DeleteSecret(ctx, name, namespace)
}

// DeleteAll removes every secret labeled with the given pipeline.
func (m *Manager) DeleteAll(ctx context.Context, namespace, pipeline string) error {
	selector := naming.Selector(pipeline, "", "", "")
	list, err := m.client.ListSecrets(ctx, namespace, selector)
	if err != nil {
		return err
	}
	for _, secret := range list {
		if err := m.client.DeleteSecret(ctx, secret.Name, namespace); err != nil {
			return err
		}
	}
	return nil
}

// Info summarizes a secret for tabular reporting.
type Info struct {
	Name      string
	Namespace string
	Pipeline  string
	Keys      []string
}

// List returns every automl-owned secret in namespace.
func (m *Manager) List(ctx context.Context, namespace string) ([]Info, error) {
	list, err := m.client.ListSecrets(ctx, namespace, naming.Selector("", "", "", ""))
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(list))
	for _, secret := range list {
		keys := make([]string, 0, len(secret.Data))
		for key := range secret.Data {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		infos = append(infos, Info{
			Name:      secret.Name,
			Namespace: secret.Namespace,
			Pipeline:  secret.Labels[naming.LabelPipeline],
			Keys:      keys,
		})
	}
	return infos, nil
}

// EnvFrom turns a step's declared secret names into pod env-from sources.
// If any named secret is missing from the namespace, it returns a
// StopExecution error naming every missing secret — never just the first.
func (m *Manager) EnvFrom(ctx context.Context, namespace string, secretNames []string) ([]corev1.EnvFromSource, error) {
	list, err := m.client.ListSecrets(ctx, namespace, naming.Selector("", "", "", ""))
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(list))
	for _, secret := range list {
		present[secret.Name] = true
	}

	var missing []string
	for _, name := range secretNames {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errs.StopExecution(
			strings.Join(missing, ", ") + " secret(-s) was/were not found in " + namespace + " namespace",
		)
	}

	envs := make([]corev1.EnvFromSource, 0, len(secretNames))
	for _, name := range secretNames {
		envs = append(envs, corev1.EnvFromSource{
			SecretRef: &corev1.SecretEnvSource{LocalObjectReference: corev1.LocalObjectReference{Name: name}},
		})
	}
	return envs, nil
}

// ImagePullSecret returns the most recently created dockerconfigjson-type
// secret in namespace, or nil if there is none.
func (m *Manager) ImagePullSecret(ctx context.Context, namespace string) (*corev1.LocalObjectReference, error) {
	list, err := m.client.ListSecrets(ctx, namespace, naming.Selector("", "", "", ""))
	if err != nil {
		return nil, err
	}

	var dockerSecrets []corev1.Secret
	for _, secret := range list {
		if secret.Type == corev1.SecretTypeDockerConfigJson {
			dockerSecrets = append(dockerSecrets, secret)
		}
	}
	if len(dockerSecrets) == 0 {
		return nil, nil
	}

	sort.Slice(dockerSecrets, func(i, j int) bool {
		return dockerSecrets[i].CreationTimestamp.After(dockerSecrets[j].CreationTimestamp.Time)
	})
	return &corev1.LocalObjectReference{Name: dockerSecrets[0].Name}, nil
}

// RepoSecretName derives the per-pipeline repo-URL secret name.
func RepoSecretName(pipeline string) string {
	return naming.RepoSecretName(pipeline)
}
