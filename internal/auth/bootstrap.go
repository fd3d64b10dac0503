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

// Package auth bootstraps the access-control objects a driver pod needs
// before it can touch anything else on the platform: a namespace, a
// ServiceAccount, a ClusterRole, and the ClusterRoleBinding that ties them
// together. It is idempotent: each object is created only if it is missing.
package auth

import (
	"context"

	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"go.uber.org/zap"

	"github.com/valeger/automl/internal/platform"
)

const (
	DefaultServiceAccount     = "automl-service-account"
	DefaultClusterRole        = "automl-controller"
	DefaultClusterRoleBinding = "automl-granter"
)

// Options names the access-control objects to bootstrap. Zero values take
// the defaults above, matching the original's keyword-argument defaults.
type Options struct {
	Namespace          string
	ServiceAccount     string
	ClusterRole        string
	ClusterRoleBinding string
}

func (o Options) withDefaults() Options {
	if o.ServiceAccount == "" {
		o.ServiceAccount = DefaultServiceAccount
	}
	if o.ClusterRole == "" {
		o.ClusterRole = DefaultClusterRole
	}
	if o.ClusterRoleBinding == "" {
		o.ClusterRoleBinding = DefaultClusterRoleBinding
	}
	return o
}

// Bootstrap ensures the namespace and RBAC chain required to run pipelines
// exist, creating whichever pieces are missing.
func Bootstrap(ctx context.Context, client *platform.Client, logger *zap.Logger, opts Options) error {
	opts = opts.withDefaults()

	exists, err := client.NamespaceExists(ctx, opts.Namespace)
	if err != nil {
		return err
	}
	if !exists {
		logger.Info("creating namespace", zap.String("namespace", opts.Namespace))
		if err := client.CreateNamespace(ctx, opts.Namespace); err != nil {
			return err
		}
	}

	saExists, err := client.ServiceAccountExists(ctx, opts.ServiceAccount, opts.Namespace)
	if err != nil {
		return err
	}
	if !saExists {
		logger.Info("creating service account",
			zap.String("name", opts.ServiceAccount), zap.String("namespace", opts.Namespace))
		if err := client.CreateServiceAccount(ctx, opts.ServiceAccount, opts.Namespace); err != nil {
			return err
		}
	}

	roleExists, err := client.ClusterRoleExists(ctx, opts.ClusterRole)
	if err != nil {
		return err
	}
	if !roleExists {
		logger.Info("creating cluster role", zap.String("name", opts.ClusterRole))
		if err := client.CreateClusterRole(ctx, clusterRole(opts.ClusterRole)); err != nil {
			return err
		}
	}

	bindingExists, err := client.ClusterRoleBindingExists(ctx, opts.ClusterRoleBinding)
	if err != nil {
		return err
	}
	if !bindingExists {
		logger.Info("creating cluster role binding",
			zap.String("name", opts.ClusterRoleBinding),
			zap.String("role", opts.ClusterRole),
			zap.String("serviceAccount", opts.ServiceAccount))
		binding := clusterRoleBinding(opts.ClusterRoleBinding, opts.ClusterRole, opts.ServiceAccount, opts.Namespace)
		if err := client.CreateClusterRoleBinding(ctx, binding); err != nil {
			return err
		}
	}

	return nil
}

// clusterRole builds the exact policy set the driver needs: namespace,
// service-account and secret CRUD; read-only access to pods/logs and
// configmaps; the ability to hand out roles and cluster-role-bindings it
// does not itself need beyond creation; and full control over the
// apps/batch/core workload objects plus ingresses it creates and tears down.
func clusterRole(name string) *rbacv1.ClusterRole {
	return &rbacv1.ClusterRole{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Rules: []rbacv1.PolicyRule{
			{
				APIGroups: []string{""},
				Resources: []string{"namespaces", "services"},
				Verbs:     []string{"get", "list", "create", "delete"},
			},
			{
				APIGroups: []string{""},
				Resources: []string{"serviceaccounts"},
				Verbs:     []string{"list", "create"},
			},
			{
				APIGroups: []string{""},
				Resources: []string{"pods", "pods/log"},
				Verbs:     []string{"get", "list"},
			},
			{
				APIGroups: []string{""},
				Resources: []string{"configmaps"},
				Verbs:     []string{"get", "list"},
			},
			{
				APIGroups: []string{""},
				Resources: []string{"secrets"},
				Verbs:     []string{"get", "list", "create", "update", "patch"},
			},
			{
				APIGroups: []string{"rbac.authorization.k8s.io"},
				Resources: []string{"roles", "rolebindings"},
				Verbs:     []string{"create"},
			},
			{
				APIGroups: []string{"rbac.authorization.k8s.io"},
				Resources: []string{"clusterrolebindings"},
				Verbs:     []string{"get", "list", "create"},
			},
			{
				APIGroups: []string{"apps", "batch", ""},
				Resources: []string{"*"},
				Verbs:     []string{"*"},
			},
			{
				APIGroups: []string{"networking.k8s.io"},
				Resources: []string{"ingresses"},
				Verbs:     []string{"*"},
			},
		},
	}
}

func clusterRoleBinding(name, roleName, serviceAccount, namespace string) *rbacv1.ClusterRoleBinding {
	return &rbacv1.ClusterRoleBinding{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		RoleRef: rbacv1.RoleRef{
			Kind:     "ClusterRole",
			Name:     roleName,
			APIGroup: "rbac.authorization.k8s.io",
		},
		Subjects: []rbacv1.Subject{
			{
				Kind:      "ServiceAccount",
				Name:      serviceAccount,
				Namespace: namespace,
			},
		},
	}
}
