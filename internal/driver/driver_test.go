package driver

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/valeger/automl/internal/platform"
	"github.com/valeger/automl/internal/secrets"
)

func newDriver(clientset *fake.Clientset) (*Driver, *platform.Client) {
	client := platform.New(clientset, "https://fake.test:6443")
	mgr := secrets.New(client)
	return New(client, mgr, zap.NewNop(), Options{}), client
}

func sampleParams() Params {
	return Params{
		Pipeline:   "demo",
		Namespace:  "automl",
		URL:        "https://github.com/acme/demo.git",
		ConfigURL:  "https://raw.githubusercontent.com/acme/demo/main/config.yaml",
		ProjectDir: ".",
		Branch:     "main",
	}
}

func TestCreateOneShotCreatesJobAndSecret(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	d, client := newDriver(clientset)
	ctx := context.Background()
	p := sampleParams()

	if err := d.CreateOneShot(ctx, p); err != nil {
		t.Fatalf("CreateOneShot: %v", err)
	}

	exists, err := d.JobExists(ctx, p.Namespace, p.Pipeline)
	if err != nil || !exists {
		t.Fatalf("expected a runner job to exist, exists=%v err=%v", exists, err)
	}

	if _, err := client.GetSecret(ctx, "repo-demo", p.Namespace); err != nil {
		t.Fatalf("expected the repo secret to be created: %v", err)
	}
}

func TestCreateOneShotRejectsDuplicatePipeline(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	d, _ := newDriver(clientset)
	ctx := context.Background()
	p := sampleParams()

	if err := d.CreateOneShot(ctx, p); err != nil {
		t.Fatalf("first CreateOneShot: %v", err)
	}
	if err := d.CreateOneShot(ctx, p); err == nil {
		t.Fatalf("expected the second CreateOneShot to fail as a duplicate")
	}
}

func TestCreateScheduledConflictsWithOneShot(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	d, _ := newDriver(clientset)
	ctx := context.Background()
	p := sampleParams()

	if err := d.CreateOneShot(ctx, p); err != nil {
		t.Fatalf("CreateOneShot: %v", err)
	}
	if err := d.CreateScheduled(ctx, p, "*/5 * * * *"); err == nil {
		t.Fatalf("expected CreateScheduled to fail against an existing one-shot runner")
	}
}

func TestUpdateOneShotFailsWhenMissing(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	d, _ := newDriver(clientset)
	if err := d.UpdateOneShot(context.Background(), sampleParams()); err == nil {
		t.Fatalf("expected UpdateOneShot to fail for a nonexistent pipeline")
	}
}

func TestUpdateScheduledPreservesScheduleWhenNotGiven(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	d, client := newDriver(clientset)
	ctx := context.Background()
	p := sampleParams()

	if err := d.CreateScheduled(ctx, p, "0 3 * * *"); err != nil {
		t.Fatalf("CreateScheduled: %v", err)
	}
	if err := d.UpdateScheduled(ctx, p, ""); err != nil {
		t.Fatalf("UpdateScheduled: %v", err)
	}

	crons, err := client.ListCronJobs(ctx, p.Namespace, d.selector(p.Namespace, p.Pipeline))
	if err != nil || len(crons) != 1 {
		t.Fatalf("expected exactly one cronjob to remain, got %v err=%v", crons, err)
	}
	if crons[0].Spec.Schedule != "0 3 * * *" {
		t.Errorf("expected the previous schedule to be preserved, got %q", crons[0].Spec.Schedule)
	}
}

func TestDeleteAllRemovesEverythingOwnedByPipeline(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	d, client := newDriver(clientset)
	ctx := context.Background()
	p := sampleParams()

	if err := d.CreateOneShot(ctx, p); err != nil {
		t.Fatalf("CreateOneShot: %v", err)
	}
	if err := d.DeleteAll(ctx, p.Namespace, p.Pipeline, false); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}

	if exists, _ := d.JobExists(ctx, p.Namespace, p.Pipeline); exists {
		t.Errorf("expected the runner job to be deleted")
	}
	if _, err := client.GetSecret(ctx, "repo-demo", p.Namespace); err == nil {
		t.Errorf("expected the repo secret to be deleted")
	}
}
