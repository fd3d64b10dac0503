package steps

import (
	"context"
	"testing"

	batchv1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/valeger/automl/internal/config"
	"github.com/valeger/automl/internal/platform"
	"github.com/valeger/automl/internal/secrets"
)

func newRunContext(t *testing.T, clientset *fake.Clientset) (*platform.Client, RunContext) {
	t.Helper()
	client := platform.New(clientset, "https://fake.test:6443")
	mgr := secrets.New(client)
	ctx := context.Background()

	if err := mgr.Create(ctx, "repo-demo", "demo", "demo", map[string]string{"REPO_URL": "https://x"}, ""); err != nil {
		t.Fatalf("seeding repo secret: %v", err)
	}

	return client, RunContext{
		Pipeline:   "demo",
		Branch:     "main",
		ProjectDir: ".",
		Namespace:  "demo",
		Secrets:    mgr,
	}
}

func sampleBatchStep() config.Step {
	step := config.Step{
		StepName:         "Fit",
		PathToExecutable: "fit.py",
		DependencyPath:   "requirements.txt",
	}
	step.ApplyDefaults()
	step.TimeoutSeconds = 1
	step.PollingSeconds = 1
	step.WaitBeforeStartSeconds = 0
	return step
}

func TestBuildJobUsesDefaultImageRecipe(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	_, rc := newRunContext(t, clientset)
	exec := NewBatchExecutor(platform.New(clientset, ""), rc)

	step := sampleBatchStep()
	job, err := exec.buildJob(context.Background(), "train", step)
	if err != nil {
		t.Fatalf("buildJob: %v", err)
	}

	container := job.Spec.Template.Spec.Containers[0]
	if len(container.Command) != 2 || container.Command[0] != "/bin/sh" {
		t.Errorf("expected default-image command wrapper, got %v", container.Command)
	}
	if len(container.Args) != 1 {
		t.Fatalf("expected a single args entry, got %v", container.Args)
	}
}

func TestBuildJobWithCustomImagePassesCommandAsArgs(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	_, rc := newRunContext(t, clientset)
	exec := NewBatchExecutor(platform.New(clientset, ""), rc)

	step := sampleBatchStep()
	step.Image = "custom/image:1.0"
	step.Command = []string{"python", "custom_entry.py"}

	job, err := exec.buildJob(context.Background(), "train", step)
	if err != nil {
		t.Fatalf("buildJob: %v", err)
	}

	container := job.Spec.Template.Spec.Containers[0]
	if container.Command != nil {
		t.Errorf("expected nil command for a custom image, got %v", container.Command)
	}
	if len(container.Args) != 2 || container.Args[0] != "python" {
		t.Errorf("expected command passed through as args, got %v", container.Args)
	}
}

func TestRunDeletesPreExistingStageJobsBeforeSubmitting(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	_, rc := newRunContext(t, clientset)
	client := platform.New(clientset, "")
	exec := NewBatchExecutor(client, rc)

	ctx := context.Background()
	stale := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "demo-train-old-abc123",
			Namespace: "demo",
			Labels:    stepLabels("demo", "train", "old"),
		},
	}
	if err := client.CreateJob(ctx, stale); err != nil {
		t.Fatalf("seeding stale job: %v", err)
	}

	selector := "app=automl,pipeline=demo,stage=train"
	before, err := client.ListJobs(ctx, "demo", selector)
	if err != nil || len(before) != 1 {
		t.Fatalf("expected the stale job to exist before Run, got %v err=%v", before, err)
	}

	step := sampleBatchStep()
	step.TimeoutSeconds = 1
	step.WaitBeforeStartSeconds = 0
	step.PollingSeconds = 1

	// Run will time out waiting for the freshly submitted job (the fake
	// clientset never flips a Job's status to Succeeded), but the
	// pre-existing stage job must already be gone by then.
	_ = exec.Run(ctx, "train", []config.Step{step})

	after, err := client.ListJobs(ctx, "demo", selector)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	for _, job := range after {
		if job.Name == "demo-train-old-abc123" {
			t.Errorf("expected stale job to be deleted before resubmission, still found %q", job.Name)
		}
	}
}
