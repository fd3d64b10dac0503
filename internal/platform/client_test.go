package platform

import (
	"context"
	"testing"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/valeger/automl/internal/errs"
)

func newTestClient(objects ...interface{}) *Client {
	clientset := fake.NewSimpleClientset()
	for _, obj := range objects {
		switch o := obj.(type) {
		case *corev1.Namespace:
			_, _ = clientset.CoreV1().Namespaces().Create(context.Background(), o, metav1.CreateOptions{})
		case *corev1.Secret:
			_, _ = clientset.CoreV1().Secrets(o.Namespace).Create(context.Background(), o, metav1.CreateOptions{})
		case *batchv1.Job:
			_, _ = clientset.BatchV1().Jobs(o.Namespace).Create(context.Background(), o, metav1.CreateOptions{})
		}
	}
	return New(clientset, "https://fake.test:6443")
}

func TestNamespaceExistsAndCreate(t *testing.T) {
	c := newTestClient()
	ctx := context.Background()

	exists, err := c.NamespaceExists(ctx, "demo")
	if err != nil {
		t.Fatalf("NamespaceExists returned err: %v", err)
	}
	if exists {
		t.Fatalf("expected namespace to not exist yet")
	}

	if err := c.CreateNamespace(ctx, "demo"); err != nil {
		t.Fatalf("CreateNamespace: %v", err)
	}

	exists, err = c.NamespaceExists(ctx, "demo")
	if err != nil {
		t.Fatalf("NamespaceExists returned err: %v", err)
	}
	if !exists {
		t.Fatalf("expected namespace to exist after create")
	}
}

func TestCreateSecretAlreadyExists(t *testing.T) {
	existing := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: "repo-demo", Namespace: "demo"}}
	c := newTestClient(existing)

	err := c.CreateSecret(context.Background(), &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "repo-demo", Namespace: "demo"},
	})
	if err == nil {
		t.Fatalf("expected an error creating a duplicate secret")
	}
	if !errs.IsAlreadyExists(err) {
		t.Fatalf("expected IsAlreadyExists(err) to be true, got %v", err)
	}
}

func TestGetSecretNotFound(t *testing.T) {
	c := newTestClient()
	_, err := c.GetSecret(context.Background(), "missing", "demo")
	if err == nil {
		t.Fatalf("expected an error for a missing secret")
	}
	if !errs.IsNotFound(err) {
		t.Fatalf("expected IsNotFound(err) to be true, got %v", err)
	}
}

func TestReadBatchStatus(t *testing.T) {
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: "demo-train-fit-abc123", Namespace: "demo"},
		Status:     batchv1.JobStatus{Succeeded: 1},
	}
	c := newTestClient(job)

	status, err := c.ReadBatchStatus(context.Background(), "demo-train-fit-abc123", "demo")
	if err != nil {
		t.Fatalf("ReadBatchStatus: %v", err)
	}
	if status.Succeeded != 1 || status.Active != 0 || status.Failed != 0 {
		t.Errorf("ReadBatchStatus() = %+v, want Succeeded=1", status)
	}
}

func TestListSecretsBySelector(t *testing.T) {
	c := newTestClient()
	ctx := context.Background()
	_ = c.CreateSecret(ctx, &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name: "repo-demo", Namespace: "demo",
			Labels: map[string]string{"app": "automl", "pipeline": "demo"},
		},
	})
	_ = c.CreateSecret(ctx, &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name: "repo-other", Namespace: "demo",
			Labels: map[string]string{"app": "automl", "pipeline": "other"},
		},
	})

	secrets, err := c.ListSecrets(ctx, "demo", "app=automl,pipeline=demo")
	if err != nil {
		t.Fatalf("ListSecrets: %v", err)
	}
	if len(secrets) != 1 || secrets[0].Name != "repo-demo" {
		t.Errorf("ListSecrets() = %v, want exactly [repo-demo]", secrets)
	}
}

func TestLogsForSelectorNoPod(t *testing.T) {
	c := newTestClient()
	msg := c.LogsForSelector(context.Background(), "demo", "app=automl,step=fit")
	if msg == "" {
		t.Errorf("expected a non-empty placeholder message when no pod matches")
	}
}
