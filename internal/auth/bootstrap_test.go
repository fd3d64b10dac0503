package auth

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/valeger/automl/internal/platform"
)

func TestBootstrapCreatesEverythingOnce(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	client := platform.New(clientset, "https://fake.test:6443")
	logger := zap.NewNop()
	ctx := context.Background()

	opts := Options{Namespace: "demo"}

	if err := Bootstrap(ctx, client, logger, opts); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	exists, err := client.NamespaceExists(ctx, "demo")
	if err != nil || !exists {
		t.Fatalf("expected namespace demo to exist, err=%v exists=%v", err, exists)
	}

	saExists, err := client.ServiceAccountExists(ctx, DefaultServiceAccount, "demo")
	if err != nil || !saExists {
		t.Fatalf("expected default service account to exist, err=%v exists=%v", err, saExists)
	}

	roleExists, err := client.ClusterRoleExists(ctx, DefaultClusterRole)
	if err != nil || !roleExists {
		t.Fatalf("expected default cluster role to exist, err=%v exists=%v", err, roleExists)
	}

	bindingExists, err := client.ClusterRoleBindingExists(ctx, DefaultClusterRoleBinding)
	if err != nil || !bindingExists {
		t.Fatalf("expected default cluster role binding to exist, err=%v exists=%v", err, bindingExists)
	}

	// Re-running Bootstrap must not fail even though everything already exists.
	if err := Bootstrap(ctx, client, logger, opts); err != nil {
		t.Fatalf("second Bootstrap call should be a no-op, got err: %v", err)
	}
}

func TestBootstrapCustomNames(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	client := platform.New(clientset, "https://fake.test:6443")
	logger := zap.NewNop()
	ctx := context.Background()

	opts := Options{
		Namespace:          "demo",
		ServiceAccount:     "custom-sa",
		ClusterRole:        "custom-role",
		ClusterRoleBinding: "custom-binding",
	}
	if err := Bootstrap(ctx, client, logger, opts); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	if ok, _ := client.ServiceAccountExists(ctx, "custom-sa", "demo"); !ok {
		t.Errorf("expected custom-sa to exist")
	}
	if ok, _ := client.ClusterRoleExists(ctx, "custom-role"); !ok {
		t.Errorf("expected custom-role to exist")
	}
}
