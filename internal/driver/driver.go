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

// Package driver manages the lifecycle of the runner object that drives a
// pipeline on the platform: a one-shot Job for an immediate run, or a
// recurring CronJob for a scheduled one. It owns the duplicate-pipeline
// invariant (a pipeline name is unique across both runner kinds in a
// namespace) and the terminal delete-everything operation used when a
// pipeline is torn down.
package driver

import (
	"context"
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"go.uber.org/zap"

	"github.com/valeger/automl/internal/errs"
	"github.com/valeger/automl/internal/naming"
	"github.com/valeger/automl/internal/platform"
	"github.com/valeger/automl/internal/report"
	"github.com/valeger/automl/internal/secrets"
)

const (
	DefaultImage                      = "valeger/automl:latest"
	DefaultContainerName              = "automl"
	DefaultServiceAccount             = "automl-service-account"
	DefaultBackoffLimit               = 2
	DefaultTTLSecondsAfterFinished    = 604800
	DefaultSuccessfulJobsHistoryLimit = 2
	DefaultFailedJobsHistoryLimit     = 2
)

// Options configures the runner objects a Driver builds. The zero value is
// filled in with the package defaults by withDefaults.
type Options struct {
	Image                      string
	ContainerName              string
	ServiceAccount             string
	BackoffLimit               int32
	TTLSecondsAfterFinished    int32
	SuccessfulJobsHistoryLimit int32
	FailedJobsHistoryLimit     int32
}

func (o Options) withDefaults() Options {
	if o.Image == "" {
		o.Image = DefaultImage
	}
	if o.ContainerName == "" {
		o.ContainerName = DefaultContainerName
	}
	if o.ServiceAccount == "" {
		o.ServiceAccount = DefaultServiceAccount
	}
	if o.BackoffLimit == 0 {
		o.BackoffLimit = DefaultBackoffLimit
	}
	if o.TTLSecondsAfterFinished == 0 {
		o.TTLSecondsAfterFinished = DefaultTTLSecondsAfterFinished
	}
	if o.SuccessfulJobsHistoryLimit == 0 {
		o.SuccessfulJobsHistoryLimit = DefaultSuccessfulJobsHistoryLimit
	}
	if o.FailedJobsHistoryLimit == 0 {
		o.FailedJobsHistoryLimit = DefaultFailedJobsHistoryLimit
	}
	return o
}

// Driver creates, updates and deletes the runner objects that execute a
// pipeline, plus the supporting repo-URL secret every runner pod reads its
// checkout credentials from.
type Driver struct {
	client  *platform.Client
	secrets *secrets.Manager
	logger  *zap.Logger
	opts    Options
}

func New(client *platform.Client, secretsMgr *secrets.Manager, logger *zap.Logger, opts Options) *Driver {
	return &Driver{client: client, secrets: secretsMgr, logger: logger, opts: opts.withDefaults()}
}

// Params names everything a runner pod needs to check out and execute a
// pipeline.
type Params struct {
	Pipeline   string
	Namespace  string
	URL        string
	ConfigURL  string
	ProjectDir string
	Branch     string
}

func (d *Driver) configureRepoSecret(ctx context.Context, p Params) error {
	name := secrets.RepoSecretName(p.Pipeline)
	data := map[string]string{"REPO_URL": p.URL, "CONFIG_URL": p.ConfigURL}

	if _, err := d.client.GetSecret(ctx, name, p.Namespace); err == nil {
		return d.secrets.Update(ctx, name, p.Namespace, data)
	} else if !errs.IsNotFound(err) {
		return err
	}
	return d.secrets.Create(ctx, name, p.Namespace, p.Pipeline, data, corev1.SecretTypeOpaque)
}

func (d *Driver) container(p Params) corev1.Container {
	return corev1.Container{
		Name:            d.opts.ContainerName,
		Image:           d.opts.Image,
		ImagePullPolicy: corev1.PullAlways,
		EnvFrom: []corev1.EnvFromSource{{
			SecretRef: &corev1.SecretEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: secrets.RepoSecretName(p.Pipeline)},
			},
		}},
		Command: []string{"automl", "run"},
		Args: []string{
			"--workflow", p.Pipeline,
			"--branch", p.Branch,
			"--project-dir", p.ProjectDir,
			"--namespace", p.Namespace,
		},
	}
}

func (d *Driver) podTemplate(p Params) corev1.PodTemplateSpec {
	return corev1.PodTemplateSpec{
		ObjectMeta: metav1.ObjectMeta{Namespace: p.Namespace},
		Spec: corev1.PodSpec{
			Containers:         []corev1.Container{d.container(p)},
			ServiceAccountName: d.opts.ServiceAccount,
			RestartPolicy:      corev1.RestartPolicyNever,
		},
	}
}

func (d *Driver) jobObject(p Params) *batchv1.Job {
	backoff := d.opts.BackoffLimit
	ttl := d.opts.TTLSecondsAfterFinished
	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Namespace:    p.Namespace,
			GenerateName: p.Pipeline + "-",
			Labels:       naming.Labels(p.Pipeline, "", "", naming.KindRunner),
			Annotations:  map[string]string{"url": p.URL},
		},
		Spec: batchv1.JobSpec{
			Template:                d.podTemplate(p),
			BackoffLimit:            &backoff,
			TTLSecondsAfterFinished: &ttl,
		},
	}
}

func (d *Driver) cronJobObject(p Params, schedule string) *batchv1.CronJob {
	job := d.jobObject(p)
	successLimit := d.opts.SuccessfulJobsHistoryLimit
	failLimit := d.opts.FailedJobsHistoryLimit
	return &batchv1.CronJob{
		ObjectMeta: job.ObjectMeta,
		Spec: batchv1.CronJobSpec{
			Schedule: schedule,
			JobTemplate: batchv1.JobTemplateSpec{
				ObjectMeta: job.ObjectMeta,
				Spec:       job.Spec,
			},
			SuccessfulJobsHistoryLimit: &successLimit,
			FailedJobsHistoryLimit:     &failLimit,
		},
	}
}

func (d *Driver) selector(namespace, pipeline string) string {
	return naming.Selector(pipeline, "", "", naming.KindRunner)
}

// JobExists reports whether a one-shot runner for pipeline already exists
// in namespace.
func (d *Driver) JobExists(ctx context.Context, namespace, pipeline string) (bool, error) {
	jobs, err := d.client.ListJobs(ctx, namespace, d.selector(namespace, pipeline))
	if err != nil {
		return false, err
	}
	return len(jobs) > 0, nil
}

// CronExists reports whether a scheduled runner for pipeline already exists
// in namespace.
func (d *Driver) CronExists(ctx context.Context, namespace, pipeline string) (bool, error) {
	crons, err := d.client.ListCronJobs(ctx, namespace, d.selector(namespace, pipeline))
	if err != nil {
		return false, err
	}
	return len(crons) > 0, nil
}

func (d *Driver) duplicateCheck(ctx context.Context, namespace, pipeline string) error {
	job, err := d.JobExists(ctx, namespace, pipeline)
	if err != nil {
		return err
	}
	cron, err := d.CronExists(ctx, namespace, pipeline)
	if err != nil {
		return err
	}
	if job || cron {
		return errs.StopExecution(fmt.Sprintf(
			"the specified pipeline=%s already exists in %s namespace", pipeline, namespace,
		))
	}
	return nil
}

// CreateOneShot creates an immediate-run driver Job for p.Pipeline, failing
// if a runner of either kind already exists for this pipeline in the
// namespace.
func (d *Driver) CreateOneShot(ctx context.Context, p Params) error {
	if err := d.duplicateCheck(ctx, p.Namespace, p.Pipeline); err != nil {
		return err
	}

	d.logger.Info("creating pipeline", zap.String("pipeline", p.Pipeline), zap.String("namespace", p.Namespace))

	if err := d.configureRepoSecret(ctx, p); err != nil {
		return err
	}
	return d.client.CreateJob(ctx, d.jobObject(p))
}

// UpdateOneShot replaces an existing one-shot driver Job with a fresh one
// built from p, failing if no runner currently exists for this pipeline.
func (d *Driver) UpdateOneShot(ctx context.Context, p Params) error {
	exists, err := d.JobExists(ctx, p.Namespace, p.Pipeline)
	if err != nil {
		return err
	}
	if !exists {
		return errs.StopExecution(fmt.Sprintf("no specified pipeline exists in %s namespace", p.Namespace))
	}

	d.logger.Info("updating pipeline runner", zap.String("pipeline", p.Pipeline), zap.String("namespace", p.Namespace))

	if err := d.configureRepoSecret(ctx, p); err != nil {
		return err
	}
	if err := d.DeleteOneShot(ctx, p.Namespace, p.Pipeline); err != nil {
		return err
	}
	return d.client.CreateJob(ctx, d.jobObject(p))
}

// CreateScheduled creates a recurring driver CronJob for p.Pipeline on
// schedule, failing if a runner of either kind already exists for this
// pipeline in the namespace.
func (d *Driver) CreateScheduled(ctx context.Context, p Params, schedule string) error {
	if err := d.duplicateCheck(ctx, p.Namespace, p.Pipeline); err != nil {
		return err
	}

	d.logger.Info("creating scheduled pipeline", zap.String("pipeline", p.Pipeline), zap.String("namespace", p.Namespace))

	if err := d.configureRepoSecret(ctx, p); err != nil {
		return err
	}
	return d.client.CreateCronJob(ctx, d.cronJobObject(p, schedule))
}

// UpdateScheduled replaces an existing scheduled driver CronJob with a fresh
// one built from p. An empty schedule preserves the previous CronJob's
// schedule instead of changing it.
func (d *Driver) UpdateScheduled(ctx context.Context, p Params, schedule string) error {
	crons, err := d.client.ListCronJobs(ctx, p.Namespace, d.selector(p.Namespace, p.Pipeline))
	if err != nil {
		return err
	}
	if len(crons) == 0 {
		return errs.StopExecution(fmt.Sprintf("no specified scheduled pipeline exists in %s namespace", p.Namespace))
	}
	if schedule == "" {
		schedule = crons[0].Spec.Schedule
	}

	d.logger.Info("updating scheduled pipeline", zap.String("pipeline", p.Pipeline), zap.String("namespace", p.Namespace))

	if err := d.configureRepoSecret(ctx, p); err != nil {
		return err
	}
	if err := d.DeleteScheduled(ctx, p.Namespace, p.Pipeline); err != nil {
		return err
	}
	return d.client.CreateCronJob(ctx, d.cronJobObject(p, schedule))
}

// DeleteOneShot deletes every one-shot runner Job for pipeline in namespace,
// or every one-shot runner in the namespace if pipeline is "".
func (d *Driver) DeleteOneShot(ctx context.Context, namespace, pipeline string) error {
	jobs, err := d.client.ListJobs(ctx, namespace, d.selector(namespace, pipeline))
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if err := d.client.DeleteJob(ctx, job.Name, namespace); err != nil {
			return err
		}
	}
	return nil
}

// DeleteScheduled deletes every scheduled runner CronJob for pipeline in
// namespace, or every scheduled runner in the namespace if pipeline is "".
func (d *Driver) DeleteScheduled(ctx context.Context, namespace, pipeline string) error {
	crons, err := d.client.ListCronJobs(ctx, namespace, d.selector(namespace, pipeline))
	if err != nil {
		return err
	}
	for _, cron := range crons {
		if err := d.client.DeleteCronJob(ctx, cron.Name, namespace); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll tears down every object owned by pipeline in namespace: its
// runner (one-shot or scheduled, whichever kind is named), every Job,
// Deployment, Service, Ingress and Secret the pipeline's stages created.
// This is the terminal operation; there is no undo.
func (d *Driver) DeleteAll(ctx context.Context, namespace, pipeline string, scheduled bool) error {
	if scheduled {
		if err := d.DeleteScheduled(ctx, namespace, pipeline); err != nil {
			return err
		}
	} else {
		if err := d.DeleteOneShot(ctx, namespace, pipeline); err != nil {
			return err
		}
	}

	selector := naming.Selector(pipeline, "", "", "")

	jobs, err := d.client.ListJobs(ctx, namespace, selector)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if err := d.client.DeleteJob(ctx, job.Name, namespace); err != nil {
			return err
		}
	}

	deployments, err := d.client.ListDeployments(ctx, namespace, selector)
	if err != nil {
		return err
	}
	for _, dep := range deployments {
		if err := d.client.DeleteDeployment(ctx, dep.Name, namespace); err != nil {
			return err
		}
		if exists, _ := d.client.ServiceExists(ctx, dep.Name, namespace); exists {
			if err := d.client.DeleteService(ctx, dep.Name, namespace); err != nil {
				return err
			}
		}
		if exists, _ := d.client.IngressExists(ctx, dep.Name, namespace); exists {
			if err := d.client.DeleteIngress(ctx, dep.Name, namespace); err != nil {
				return err
			}
		}
	}

	if err := d.secrets.DeleteAll(ctx, namespace, pipeline); err != nil {
		return err
	}

	d.logger.Info("deleted pipeline", zap.String("pipeline", pipeline), zap.String("namespace", namespace))
	return nil
}

// ListOneShot returns every one-shot runner in namespace for tabular
// reporting.
func (d *Driver) ListOneShot(ctx context.Context, namespace string) ([]report.Runner, error) {
	jobs, err := d.client.ListJobs(ctx, namespace, naming.Selector("", "", "", naming.KindRunner))
	if err != nil {
		return nil, err
	}
	runners := make([]report.Runner, 0, len(jobs))
	for _, job := range jobs {
		runners = append(runners, report.Runner{
			Pipeline: job.Labels[naming.LabelPipeline],
			URL:      job.Annotations["url"],
		})
	}
	return runners, nil
}

// ListScheduled returns every scheduled runner in namespace for tabular
// reporting.
func (d *Driver) ListScheduled(ctx context.Context, namespace string) ([]report.Runner, error) {
	crons, err := d.client.ListCronJobs(ctx, namespace, naming.Selector("", "", "", naming.KindRunner))
	if err != nil {
		return nil, err
	}
	runners := make([]report.Runner, 0, len(crons))
	for _, cron := range crons {
		runners = append(runners, report.Runner{
			Pipeline: cron.Labels[naming.LabelPipeline],
			URL:      cron.Annotations["url"],
			Schedule: cron.Spec.Schedule,
		})
	}
	return runners, nil
}

// Resources lists the Jobs and Deployments a pipeline's stages have created,
// excluding the runner object itself, for tabular reporting.
func (d *Driver) Resources(ctx context.Context, namespace, pipeline string) ([]report.Resource, error) {
	selector := naming.Selector(pipeline, "", "", "")

	jobs, err := d.client.ListJobs(ctx, namespace, selector)
	if err != nil {
		return nil, err
	}

	var resources []report.Resource
	for _, job := range jobs {
		if job.Labels[naming.LabelKind] == naming.KindRunner {
			continue
		}
		status, err := d.client.ReadBatchStatus(ctx, job.Name, namespace)
		if err != nil {
			return nil, err
		}
		resources = append(resources, report.Resource{
			Namespace: namespace,
			Pipeline:  job.Labels[naming.LabelPipeline],
			Kind:      "Job",
			Stage:     job.Labels[naming.LabelStage],
			Step:      job.Labels[naming.LabelStep],
			Info: map[string]string{
				"name":      job.Name,
				"active":    fmt.Sprintf("%d", status.Active),
				"succeeded": fmt.Sprintf("%d", status.Succeeded),
				"failed":    fmt.Sprintf("%d", status.Failed),
			},
		})
	}

	deployments, err := d.client.ListDeployments(ctx, namespace, selector)
	if err != nil {
		return nil, err
	}
	for _, dep := range deployments {
		available := int32(0)
		if dep.Status.AvailableReplicas != 0 {
			available = dep.Status.AvailableReplicas
		}
		resources = append(resources, report.Resource{
			Namespace: namespace,
			Pipeline:  dep.Labels[naming.LabelPipeline],
			Kind:      "Deployment",
			Stage:     dep.Labels[naming.LabelStage],
			Step:      dep.Labels[naming.LabelStep],
			Info: map[string]string{
				"name":               dep.Name,
				"available_replicas": fmt.Sprintf("%d", available),
				"required_replicas":  fmt.Sprintf("%d", dep.Status.Replicas),
			},
		})
	}

	return resources, nil
}
