package secrets

import (
	"context"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/valeger/automl/internal/errs"
	"github.com/valeger/automl/internal/platform"
)

func newManager() (*Manager, context.Context) {
	client := platform.New(fake.NewSimpleClientset(), "https://fake.test:6443")
	return New(client), context.Background()
}

func TestCreateAndUpdate(t *testing.T) {
	m, ctx := newManager()

	if err := m.Create(ctx, "repo-demo", "demo", "demo", map[string]string{"TOKEN": "abc"}, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := m.Update(ctx, "repo-demo", "demo", map[string]string{"EXTRA": "xyz"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestCreateDuplicateFails(t *testing.T) {
	m, ctx := newManager()
	if err := m.Create(ctx, "repo-demo", "demo", "demo", map[string]string{"TOKEN": "abc"}, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := m.Create(ctx, "repo-demo", "demo", "demo", map[string]string{"TOKEN": "abc"}, "")
	if err == nil || !errs.IsAlreadyExists(err) {
		t.Fatalf("expected an already-exists error, got %v", err)
	}
}

func TestDeleteAll(t *testing.T) {
	m, ctx := newManager()
	_ = m.Create(ctx, "repo-demo", "demo", "demo", map[string]string{"TOKEN": "abc"}, "")
	_ = m.Create(ctx, "other-demo", "demo", "other", map[string]string{"TOKEN": "xyz"}, "")

	if err := m.DeleteAll(ctx, "demo", "demo"); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}

	infos, err := m.List(ctx, "demo")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "other-demo" {
		t.Errorf("List() after DeleteAll = %v, want only other-demo", infos)
	}
}

func TestEnvFromMissingSecret(t *testing.T) {
	m, ctx := newManager()
	_ = m.Create(ctx, "present", "demo", "demo", map[string]string{"K": "v"}, "")

	_, err := m.EnvFrom(ctx, "demo", []string{"present", "missing-one", "missing-two"})
	if err == nil {
		t.Fatalf("expected an error for missing secrets")
	}
	classified, ok := errs.As(err)
	if !ok || classified.Kind != errs.KindStopExecution {
		t.Fatalf("expected a StopExecution error, got %v", err)
	}
}

func TestEnvFromAllPresent(t *testing.T) {
	m, ctx := newManager()
	_ = m.Create(ctx, "one", "demo", "demo", map[string]string{"K": "v"}, "")
	_ = m.Create(ctx, "two", "demo", "demo", map[string]string{"K": "v"}, "")

	envs, err := m.EnvFrom(ctx, "demo", []string{"one", "two"})
	if err != nil {
		t.Fatalf("EnvFrom: %v", err)
	}
	if len(envs) != 2 {
		t.Errorf("EnvFrom() returned %d sources, want 2", len(envs))
	}
}

func TestImagePullSecretNoneFound(t *testing.T) {
	m, ctx := newManager()
	ref, err := m.ImagePullSecret(ctx, "demo")
	if err != nil {
		t.Fatalf("ImagePullSecret: %v", err)
	}
	if ref != nil {
		t.Errorf("expected nil reference when no docker secret exists, got %v", ref)
	}
}

func TestImagePullSecretPicksMostRecent(t *testing.T) {
	m, ctx := newManager()
	older := object("docker-old", "demo", "demo", map[string]string{}, corev1.SecretTypeDockerConfigJson)
	older.CreationTimestamp = metav1.NewTime(time.Unix(100, 0))
	newer := object("docker-new", "demo", "demo", map[string]string{}, corev1.SecretTypeDockerConfigJson)
	newer.CreationTimestamp = metav1.NewTime(time.Unix(200, 0))
	_ = m.client.CreateSecret(ctx, older)
	_ = m.client.CreateSecret(ctx, newer)

	ref, err := m.ImagePullSecret(ctx, "demo")
	if err != nil {
		t.Fatalf("ImagePullSecret: %v", err)
	}
	if ref == nil {
		t.Fatalf("expected a non-nil reference")
	}
	if ref.Name != "docker-new" {
		t.Errorf("ImagePullSecret() = %q, want the most recently created docker-new", ref.Name)
	}
}
