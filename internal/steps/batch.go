package steps

import (
	"context"
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/valeger/automl/internal/config"
	"github.com/valeger/automl/internal/naming"
	"github.com/valeger/automl/internal/platform"
	"github.com/valeger/automl/internal/wait"
)

// BatchExecutor runs batch steps (Jobs) to completion, one Job per step in
// a stage, waiting on all of them together so a stage's batch steps run
// concurrently but the stage only advances once every one has settled.
type BatchExecutor struct {
	client *platform.Client
	rc     RunContext
}

func NewBatchExecutor(client *platform.Client, rc RunContext) *BatchExecutor {
	return &BatchExecutor{client: client, rc: rc}
}

// Run deletes any pre-existing jobs for this stage, submits a fresh Job per
// step, and waits for all of them to complete. It returns a KindTimeout
// error if any job is still active past its timeout, or a KindStopExecution
// error if any job failed.
func (e *BatchExecutor) Run(ctx context.Context, stage string, batchSteps []config.Step) error {
	if len(batchSteps) == 0 {
		return nil
	}

	selector := naming.Selector(e.rc.Pipeline, stage, "", "")
	existing, err := e.client.ListJobs(ctx, e.rc.Namespace, selector)
	if err != nil {
		return err
	}
	for _, job := range existing {
		if err := e.client.DeleteJob(ctx, job.Name, e.rc.Namespace); err != nil {
			return err
		}
	}

	jobs := make([]*batchv1.Job, 0, len(batchSteps))
	for _, step := range batchSteps {
		job, err := e.buildJob(ctx, stage, step)
		if err != nil {
			return err
		}
		if err := e.client.CreateJob(ctx, job); err != nil {
			return err
		}
		jobs = append(jobs, job)
	}

	return e.waitForJobs(ctx, batchSteps, jobs)
}

func (e *BatchExecutor) buildJob(ctx context.Context, stage string, step config.Step) (*batchv1.Job, error) {
	container, err := buildContainer(ctx, e.rc, stage, step)
	if err != nil {
		return nil, err
	}
	pullSecrets, err := imagePullSecrets(ctx, e.rc)
	if err != nil {
		return nil, err
	}

	backoff := int32(step.BackoffLimit)
	completions := int32(1)

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.BatchStepName(e.rc.Pipeline, stage, step.StepName),
			Namespace: e.rc.Namespace,
			Labels:    stepLabels(e.rc.Pipeline, stage, step.StepName),
			Annotations: map[string]string{
				"executable_module": step.PathToExecutable,
			},
		},
		Spec: batchv1.JobSpec{
			Completions:  &completions,
			BackoffLimit: &backoff,
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{
					Containers:       []corev1.Container{container},
					RestartPolicy:    corev1.RestartPolicyNever,
					ImagePullSecrets: pullSecrets,
				},
			},
		},
	}, nil
}

func (e *BatchExecutor) waitForJobs(ctx context.Context, batchSteps []config.Step, jobs []*batchv1.Job) error {
	timeout := maxTimeout(batchSteps)
	polling := minPolling(batchSteps)
	warmUp := maxWarmUp(batchSteps)

	targets := make([]wait.Target, 0, len(jobs))
	for _, job := range jobs {
		job := job
		targets = append(targets, wait.Target{
			Name: fmt.Sprintf("Job=%s", job.Name),
			Probe: func(ctx context.Context) (wait.Status, error) {
				status, err := e.client.ReadBatchStatus(ctx, job.Name, e.rc.Namespace)
				if err != nil {
					return wait.StatusFailed, err
				}
				switch {
				case status.Failed > 0:
					return wait.StatusFailed, nil
				case status.Succeeded > 0:
					return wait.StatusReady, nil
				default:
					return wait.StatusPending, nil
				}
			},
			Logs: func(ctx context.Context) string {
				return e.client.LogsForSelector(ctx, e.rc.Namespace, fmt.Sprintf("job-name=%s", job.Name))
			},
		})
	}

	return wait.Poll(ctx, wait.Options{
		WaitBeforeStart: warmUp,
		PollInterval:    polling,
		Timeout:         timeout,
	}, targets)
}
