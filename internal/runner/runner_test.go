package runner

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/valeger/automl/internal/config"
	"github.com/valeger/automl/internal/errs"
	"github.com/valeger/automl/internal/naming"
	"github.com/valeger/automl/internal/platform"
	"github.com/valeger/automl/internal/secrets"
	"github.com/valeger/automl/internal/steps"
)

func newTestRunner(t *testing.T, clientset *fake.Clientset) (*Runner, *platform.Client) {
	t.Helper()
	client := platform.New(clientset, "https://fake.test:6443")
	mgr := secrets.New(client)
	ctx := context.Background()
	if err := mgr.Create(ctx, "repo-demo", "demo", "demo", map[string]string{"REPO_URL": "https://x"}, ""); err != nil {
		t.Fatalf("seeding repo secret: %v", err)
	}

	rc := steps.RunContext{
		Pipeline:   "demo",
		Branch:     "main",
		ProjectDir: ".",
		Namespace:  "demo",
		Secrets:    mgr,
	}
	return New(client, rc, zap.NewNop()), client
}

func quickBatchStep(name string) config.Step {
	step := config.Step{
		StepName:         name,
		PathToExecutable: name + ".py",
		DependencyPath:   "requirements.txt",
	}
	step.ApplyDefaults()
	step.TimeoutSeconds = 1
	step.PollingSeconds = 1
	step.WaitBeforeStartSeconds = 0
	return step
}

func TestRunSkipsEmptyStages(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	r, _ := newTestRunner(t, clientset)

	pipeline := &config.Pipeline{
		Name:   "demo",
		Stages: map[string][]config.Step{"empty": {}},
	}
	if err := r.Run(context.Background(), pipeline, []string{"empty"}); err != nil {
		t.Fatalf("expected a stage with no steps to succeed trivially, got %v", err)
	}
}

func TestRunWrapsTimeoutWithStageContext(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	r, _ := newTestRunner(t, clientset)

	pipeline := &config.Pipeline{
		Name: "demo",
		Stages: map[string][]config.Step{
			"train": {quickBatchStep("fit")},
		},
	}

	err := r.Run(context.Background(), pipeline, []string{"train"})
	if err == nil {
		t.Fatalf("expected the fake clientset's job to never complete, triggering a timeout")
	}
	classified, ok := errs.As(err)
	if !ok || classified.Kind != errs.KindTimeout {
		t.Fatalf("expected a KindTimeout error, got %v", err)
	}
	if want := "stage=train in demo pipeline"; !strings.Contains(classified.Message, want) {
		t.Errorf("expected message to mention %q, got %q", want, classified.Message)
	}
}

func TestRunStopsAtFirstFailingStage(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	r, client := newTestRunner(t, clientset)

	pipeline := &config.Pipeline{
		Name: "demo",
		Stages: map[string][]config.Step{
			"train": {quickBatchStep("fit")},
			"serve": {quickBatchStep("predict")},
		},
	}

	if err := r.Run(context.Background(), pipeline, []string{"train", "serve"}); err == nil {
		t.Fatalf("expected the first stage to fail with a timeout")
	}

	selector := naming.Selector("demo", "serve", "", "")
	jobs, err := client.ListJobs(context.Background(), "demo", selector)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("expected the second stage to never run, found jobs %v", jobs)
	}
}
