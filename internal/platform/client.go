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

// Package platform is the sole adapter over the container platform's object
// API. Every other package speaks to the platform exclusively through the
// Client type defined here; no non-test code outside this package imports
// k8s.io/client-go's typed clientset directly.
package platform

import (
	"context"
	"fmt"
	"os"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/valeger/automl/internal/errs"
)

// DeploymentStatus reports the two fields §4.7's state machine cares about.
type DeploymentStatus struct {
	Replicas          *int32
	AvailableReplicas *int32
}

// BatchStatus reports the three mutually exclusive counters that drive
// §4.7's batch state machine.
type BatchStatus struct {
	Active    int32
	Succeeded int32
	Failed    int32
}

// Client is the typed wrapper the spec calls "the platform client": the only
// module permitted to call the platform API.
type Client struct {
	clientset kubernetes.Interface
	endpoint  string
}

// New wraps an already-authenticated clientset. Tests construct a Client
// directly around a fake clientset instead of calling Authenticate.
func New(clientset kubernetes.Interface, endpoint string) *Client {
	return &Client{clientset: clientset, endpoint: endpoint}
}

// Authenticate builds a Client using in-cluster config when run from a
// driver pod (KUBERNETES_SERVICE_HOST is set), or the local kubeconfig
// otherwise. This call is explicit at the start of every operation; there is
// no implicit authenticating wrapper.
func Authenticate() (*Client, error) {
	inCluster := os.Getenv("KUBERNETES_SERVICE_HOST") != ""

	var cfg *rest.Config
	var err error
	if inCluster {
		cfg, err = rest.InClusterConfig()
	} else {
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		cfg, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			loadingRules, &clientcmd.ConfigOverrides{},
		).ClientConfig()
	}
	if err != nil {
		return nil, errs.Auth(errs.AuthContext(inCluster), err)
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, errs.Auth("cannot build platform clientset", err)
	}

	return New(clientset, cfg.Host), nil
}

func background() metav1.DeleteOptions {
	policy := metav1.DeletePropagationBackground
	return metav1.DeleteOptions{PropagationPolicy: &policy}
}

func (c *Client) wrap(err error) error {
	if err == nil {
		return nil
	}
	return errs.Platform(c.endpoint, err)
}

// ── Namespaces ──────────────────────────────────────────────────────────

func (c *Client) NamespaceExists(ctx context.Context, name string) (bool, error) {
	_, err := c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if errs.IsNotFound(c.wrap(err)) {
			return false, nil
		}
		return false, c.wrap(err)
	}
	return true, nil
}

func (c *Client) CreateNamespace(ctx context.Context, name string) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	_, err := c.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	return c.wrap(err)
}

func (c *Client) DeleteNamespace(ctx context.Context, name string) error {
	err := c.clientset.CoreV1().Namespaces().Delete(ctx, name, background())
	return c.wrap(err)
}

// ── Service accounts ────────────────────────────────────────────────────

func (c *Client) ServiceAccountExists(ctx context.Context, name, namespace string) (bool, error) {
	_, err := c.clientset.CoreV1().ServiceAccounts(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if errs.IsNotFound(c.wrap(err)) {
			return false, nil
		}
		return false, c.wrap(err)
	}
	return true, nil
}

func (c *Client) CreateServiceAccount(ctx context.Context, name, namespace string) error {
	sa := &corev1.ServiceAccount{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace}}
	_, err := c.clientset.CoreV1().ServiceAccounts(namespace).Create(ctx, sa, metav1.CreateOptions{})
	return c.wrap(err)
}

// ── Cluster roles & bindings ────────────────────────────────────────────

func (c *Client) ClusterRoleExists(ctx context.Context, name string) (bool, error) {
	_, err := c.clientset.RbacV1().ClusterRoles().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if errs.IsNotFound(c.wrap(err)) {
			return false, nil
		}
		return false, c.wrap(err)
	}
	return true, nil
}

func (c *Client) CreateClusterRole(ctx context.Context, role *rbacv1.ClusterRole) error {
	_, err := c.clientset.RbacV1().ClusterRoles().Create(ctx, role, metav1.CreateOptions{})
	return c.wrap(err)
}

func (c *Client) ClusterRoleBindingExists(ctx context.Context, name string) (bool, error) {
	_, err := c.clientset.RbacV1().ClusterRoleBindings().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if errs.IsNotFound(c.wrap(err)) {
			return false, nil
		}
		return false, c.wrap(err)
	}
	return true, nil
}

func (c *Client) CreateClusterRoleBinding(ctx context.Context, binding *rbacv1.ClusterRoleBinding) error {
	_, err := c.clientset.RbacV1().ClusterRoleBindings().Create(ctx, binding, metav1.CreateOptions{})
	return c.wrap(err)
}

// ── Secrets ─────────────────────────────────────────────────────────────

func (c *Client) GetSecret(ctx context.Context, name, namespace string) (*corev1.Secret, error) {
	secret, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	return secret, c.wrap(err)
}

func (c *Client) CreateSecret(ctx context.Context, secret *corev1.Secret) error {
	_, err := c.clientset.CoreV1().Secrets(secret.Namespace).Create(ctx, secret, metav1.CreateOptions{})
	return c.wrap(err)
}

func (c *Client) UpdateSecret(ctx context.Context, secret *corev1.Secret) error {
	_, err := c.clientset.CoreV1().Secrets(secret.Namespace).Update(ctx, secret, metav1.UpdateOptions{})
	return c.wrap(err)
}

func (c *Client) DeleteSecret(ctx context.Context, name, namespace string) error {
	err := c.clientset.CoreV1().Secrets(namespace).Delete(ctx, name, background())
	return c.wrap(err)
}

func (c *Client) ListSecrets(ctx context.Context, namespace, selector string) ([]corev1.Secret, error) {
	list, err := c.clientset.CoreV1().Secrets(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, c.wrap(err)
	}
	return list.Items, nil
}

// ── Batch objects (jobs) ────────────────────────────────────────────────

func (c *Client) CreateJob(ctx context.Context, job *batchv1.Job) error {
	_, err := c.clientset.BatchV1().Jobs(job.Namespace).Create(ctx, job, metav1.CreateOptions{})
	return c.wrap(err)
}

func (c *Client) DeleteJob(ctx context.Context, name, namespace string) error {
	err := c.clientset.BatchV1().Jobs(namespace).Delete(ctx, name, background())
	return c.wrap(err)
}

func (c *Client) ListJobs(ctx context.Context, namespace, selector string) ([]batchv1.Job, error) {
	list, err := c.clientset.BatchV1().Jobs(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, c.wrap(err)
	}
	return list.Items, nil
}

func (c *Client) ReadBatchStatus(ctx context.Context, name, namespace string) (BatchStatus, error) {
	job, err := c.clientset.BatchV1().Jobs(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return BatchStatus{}, c.wrap(err)
	}
	return BatchStatus{
		Active:    job.Status.Active,
		Succeeded: job.Status.Succeeded,
		Failed:    job.Status.Failed,
	}, nil
}

// ── Cron objects ────────────────────────────────────────────────────────

func (c *Client) CreateCronJob(ctx context.Context, cronJob *batchv1.CronJob) error {
	_, err := c.clientset.BatchV1().CronJobs(cronJob.Namespace).Create(ctx, cronJob, metav1.CreateOptions{})
	return c.wrap(err)
}

func (c *Client) DeleteCronJob(ctx context.Context, name, namespace string) error {
	err := c.clientset.BatchV1().CronJobs(namespace).Delete(ctx, name, background())
	return c.wrap(err)
}

func (c *Client) ListCronJobs(ctx context.Context, namespace, selector string) ([]batchv1.CronJob, error) {
	list, err := c.clientset.BatchV1().CronJobs(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, c.wrap(err)
	}
	return list.Items, nil
}

// ── Deployments ─────────────────────────────────────────────────────────

func (c *Client) GetDeployment(ctx context.Context, name, namespace string) (*appsv1.Deployment, error) {
	dep, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	return dep, c.wrap(err)
}

func (c *Client) CreateDeployment(ctx context.Context, dep *appsv1.Deployment) error {
	_, err := c.clientset.AppsV1().Deployments(dep.Namespace).Create(ctx, dep, metav1.CreateOptions{})
	return c.wrap(err)
}

func (c *Client) ReplaceDeployment(ctx context.Context, dep *appsv1.Deployment) error {
	_, err := c.clientset.AppsV1().Deployments(dep.Namespace).Update(ctx, dep, metav1.UpdateOptions{})
	return c.wrap(err)
}

func (c *Client) DeleteDeployment(ctx context.Context, name, namespace string) error {
	err := c.clientset.AppsV1().Deployments(namespace).Delete(ctx, name, background())
	return c.wrap(err)
}

func (c *Client) ListDeployments(ctx context.Context, namespace, selector string) ([]appsv1.Deployment, error) {
	list, err := c.clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, c.wrap(err)
	}
	return list.Items, nil
}

func (c *Client) ReadDeploymentStatus(ctx context.Context, name, namespace string) (DeploymentStatus, error) {
	dep, err := c.GetDeployment(ctx, name, namespace)
	if err != nil {
		return DeploymentStatus{}, err
	}
	return DeploymentStatus{
		Replicas:          dep.Spec.Replicas,
		AvailableReplicas: &dep.Status.AvailableReplicas,
	}, nil
}

// ── Services ────────────────────────────────────────────────────────────

func (c *Client) ServiceExists(ctx context.Context, name, namespace string) (bool, error) {
	_, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if errs.IsNotFound(c.wrap(err)) {
			return false, nil
		}
		return false, c.wrap(err)
	}
	return true, nil
}

func (c *Client) CreateService(ctx context.Context, svc *corev1.Service) error {
	_, err := c.clientset.CoreV1().Services(svc.Namespace).Create(ctx, svc, metav1.CreateOptions{})
	return c.wrap(err)
}

func (c *Client) DeleteService(ctx context.Context, name, namespace string) error {
	err := c.clientset.CoreV1().Services(namespace).Delete(ctx, name, background())
	return c.wrap(err)
}

// ── Ingresses ───────────────────────────────────────────────────────────

func (c *Client) IngressExists(ctx context.Context, name, namespace string) (bool, error) {
	_, err := c.clientset.NetworkingV1().Ingresses(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if errs.IsNotFound(c.wrap(err)) {
			return false, nil
		}
		return false, c.wrap(err)
	}
	return true, nil
}

func (c *Client) CreateIngress(ctx context.Context, ing *networkingv1.Ingress) error {
	_, err := c.clientset.NetworkingV1().Ingresses(ing.Namespace).Create(ctx, ing, metav1.CreateOptions{})
	return c.wrap(err)
}

func (c *Client) DeleteIngress(ctx context.Context, name, namespace string) error {
	err := c.clientset.NetworkingV1().Ingresses(namespace).Delete(ctx, name, background())
	return c.wrap(err)
}

// ── Pods & logs ─────────────────────────────────────────────────────────

func (c *Client) ListPods(ctx context.Context, namespace, selector string) ([]corev1.Pod, error) {
	list, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, c.wrap(err)
	}
	return list.Items, nil
}

func (c *Client) ReadPodLog(ctx context.Context, name, namespace string) ([]byte, error) {
	req := c.clientset.CoreV1().Pods(namespace).GetLogs(name, &corev1.PodLogOptions{})
	data, err := req.DoRaw(ctx)
	if err != nil {
		return nil, c.wrap(err)
	}
	return data, nil
}

// LogsForSelector resolves the first pod matching selector and returns its
// logs, or a not-found message if no pod matches. Every readiness-wait
// timeout message in §4.8 is built from this helper.
func (c *Client) LogsForSelector(ctx context.Context, namespace, selector string) string {
	pods, err := c.ListPods(ctx, namespace, selector)
	if err != nil || len(pods) == 0 {
		return fmt.Sprintf("<no pod found for selector %q>", selector)
	}
	logs, err := c.ReadPodLog(ctx, pods[0].Name, namespace)
	if err != nil {
		return fmt.Sprintf("<cannot read logs for pod %q: %v>", pods[0].Name, err)
	}
	return string(logs)
}
