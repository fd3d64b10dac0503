package steps

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"go.uber.org/zap"

	"github.com/valeger/automl/internal/config"
	"github.com/valeger/automl/internal/naming"
	"github.com/valeger/automl/internal/platform"
	"github.com/valeger/automl/internal/wait"
)

// ServiceExecutor reconciles the Deployment (and optional Service/Ingress)
// backing each service step in a stage, rolls a deployment back to its
// previous revision if the new one never becomes available, and garbage
// collects deployments whose steps were removed from the configuration.
type ServiceExecutor struct {
	client *platform.Client
	rc     RunContext
	logger *zap.Logger
}

func NewServiceExecutor(client *platform.Client, rc RunContext, logger *zap.Logger) *ServiceExecutor {
	return &ServiceExecutor{client: client, rc: rc, logger: logger}
}

// Run snapshots every deployment currently owned by this stage, builds and
// applies the current set of service steps, waits for rollout, rolls back
// on timeout, exposes Services/Ingresses for steps that request them on
// success, and finally removes any previously-owned deployment whose step
// no longer appears in the configuration.
func (e *ServiceExecutor) Run(ctx context.Context, stage string, serviceSteps []config.Step) error {
	selector := naming.Selector(e.rc.Pipeline, stage, "", "")
	previous, err := e.client.ListDeployments(ctx, e.rc.Namespace, selector)
	if err != nil {
		return err
	}

	if len(serviceSteps) == 0 {
		return e.garbageCollect(ctx, previous, nil)
	}

	current := make([]*appsv1.Deployment, 0, len(serviceSteps))
	for _, step := range serviceSteps {
		dep, err := e.buildDeployment(ctx, stage, step)
		if err != nil {
			return err
		}
		if err := e.createOrReplace(ctx, dep); err != nil {
			return err
		}
		current = append(current, dep)
	}

	if err := e.waitForRollout(ctx, serviceSteps, current); err != nil {
		if classified, ok := asTimeout(err); ok {
			e.logger.Error("rollout timed out, rolling back", zap.Error(classified))
			if rbErr := e.rollback(ctx, previous, current); rbErr != nil {
				return rbErr
			}
			return err
		}
		return err
	}

	for _, step := range serviceSteps {
		if err := e.exposeIfRequested(ctx, stage, step); err != nil {
			return err
		}
	}

	return e.garbageCollect(ctx, previous, current)
}

func (e *ServiceExecutor) createOrReplace(ctx context.Context, dep *appsv1.Deployment) error {
	_, err := e.client.GetDeployment(ctx, dep.Name, dep.Namespace)
	if err != nil {
		if apiNotFound(err) {
			return e.client.CreateDeployment(ctx, dep)
		}
		return err
	}
	return e.client.ReplaceDeployment(ctx, dep)
}

func (e *ServiceExecutor) buildDeployment(ctx context.Context, stage string, step config.Step) (*appsv1.Deployment, error) {
	container, err := buildContainer(ctx, e.rc, stage, step)
	if err != nil {
		return nil, err
	}
	pullSecrets, err := imagePullSecrets(ctx, e.rc)
	if err != nil {
		return nil, err
	}
	container.Name = containerName

	replicas := int32(step.Replicas)
	revisionHistory := int32(step.RevisionHistoryLimit)
	labels := stepLabels(e.rc.Pipeline, stage, step.StepName)

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.DeploymentName(e.rc.Pipeline, stage, step.StepName),
			Namespace: e.rc.Namespace,
			Labels:    mergeLabels(labels, map[string]string{"branch": e.rc.Branch}),
			Annotations: map[string]string{
				"last-updated":      nowRFC3339(),
				"executable_module": step.PathToExecutable,
			},
		},
		Spec: appsv1.DeploymentSpec{
			Replicas:             &replicas,
			RevisionHistoryLimit: &revisionHistory,
			MinReadySeconds:      int32(step.MinReadySeconds),
			Selector:             &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Namespace: e.rc.Namespace, Labels: labels},
				Spec: corev1.PodSpec{
					Containers:       []corev1.Container{container},
					RestartPolicy:    corev1.RestartPolicyAlways,
					ImagePullSecrets: pullSecrets,
				},
			},
		},
	}, nil
}

func (e *ServiceExecutor) waitForRollout(ctx context.Context, serviceSteps []config.Step, deployments []*appsv1.Deployment) error {
	timeout := maxTimeout(serviceSteps)
	polling := minPolling(serviceSteps)
	warmUp := maxWarmUp(serviceSteps)

	targets := make([]wait.Target, 0, len(deployments))
	for _, dep := range deployments {
		dep := dep
		targets = append(targets, wait.Target{
			Name: fmt.Sprintf("Deployment=%s", dep.Name),
			Probe: func(ctx context.Context) (wait.Status, error) {
				status, err := e.client.ReadDeploymentStatus(ctx, dep.Name, e.rc.Namespace)
				if err != nil {
					return wait.StatusFailed, err
				}
				if status.AvailableReplicas != nil && status.Replicas != nil &&
					*status.AvailableReplicas == *status.Replicas {
					return wait.StatusReady, nil
				}
				return wait.StatusPending, nil
			},
			Logs: func(ctx context.Context) string {
				selector := naming.Selector(e.rc.Pipeline, "", "", "") + fmt.Sprintf(",deployment=%s", dep.Name)
				return e.client.LogsForSelector(ctx, e.rc.Namespace, selector)
			},
		})
	}

	return wait.Poll(ctx, wait.Options{WaitBeforeStart: warmUp, PollInterval: polling, Timeout: timeout}, targets)
}

// rollback restores every currently-applied deployment that existed before
// this run to its previous revision, clearing the immutable metadata fields
// the platform rejects on replace; a deployment that did not exist before
// this run is deleted outright instead.
func (e *ServiceExecutor) rollback(ctx context.Context, previous []appsv1.Deployment, current []*appsv1.Deployment) error {
	priorByName := make(map[string]appsv1.Deployment, len(previous))
	for _, dep := range previous {
		priorByName[dep.Name] = dep
	}

	for _, dep := range current {
		prior, ok := priorByName[dep.Name]
		if !ok {
			if err := e.client.DeleteDeployment(ctx, dep.Name, e.rc.Namespace); err != nil {
				return err
			}
			continue
		}
		prior.ManagedFields = nil
		prior.UID = ""
		prior.ResourceVersion = ""
		prior.CreationTimestamp = metav1.Time{}
		if err := e.client.ReplaceDeployment(ctx, &prior); err != nil {
			return err
		}
	}
	return nil
}

// garbageCollect removes deployments (and their Service/Ingress) that
// existed before this run but have no corresponding step in the current
// configuration.
func (e *ServiceExecutor) garbageCollect(ctx context.Context, previous []appsv1.Deployment, current []*appsv1.Deployment) error {
	keep := make(map[string]bool, len(current))
	for _, dep := range current {
		keep[dep.Name] = true
	}

	for _, dep := range previous {
		if keep[dep.Name] {
			continue
		}
		if err := e.client.DeleteDeployment(ctx, dep.Name, dep.Namespace); err != nil {
			return err
		}
		if exists, _ := e.client.ServiceExists(ctx, dep.Name, dep.Namespace); exists {
			if err := e.client.DeleteService(ctx, dep.Name, dep.Namespace); err != nil {
				return err
			}
		}
		if exists, _ := e.client.IngressExists(ctx, dep.Name, dep.Namespace); exists {
			if err := e.client.DeleteIngress(ctx, dep.Name, dep.Namespace); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *ServiceExecutor) exposeIfRequested(ctx context.Context, stage string, step config.Step) error {
	if step.Service == nil {
		return nil
	}
	name := naming.DeploymentName(e.rc.Pipeline, stage, step.StepName)
	labels := stepLabels(e.rc.Pipeline, stage, step.StepName)
	port := int32(step.Service.Port)

	if exists, err := e.client.ServiceExists(ctx, name, e.rc.Namespace); err != nil {
		return err
	} else if !exists {
		svc := &corev1.Service{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: e.rc.Namespace, Labels: labels},
			Spec: corev1.ServiceSpec{
				Type:     corev1.ServiceTypeNodePort,
				Selector: labels,
				Ports:    []corev1.ServicePort{{Port: port, TargetPort: intstr.FromInt(int(port))}},
			},
		}
		if err := e.client.CreateService(ctx, svc); err != nil {
			return err
		}
	}

	if !step.Service.Ingress {
		return nil
	}
	if exists, err := e.client.IngressExists(ctx, name, e.rc.Namespace); err != nil {
		return err
	} else if exists {
		return nil
	}

	pathType := networkingv1.PathTypeExact
	path := fmt.Sprintf("/%s/%s-%s-%s", e.rc.Namespace, e.rc.Pipeline, stage, step.StepName)
	ing := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: e.rc.Namespace,
			Labels:    labels,
			Annotations: map[string]string{
				"kubernetes.io/ingress.class":                  "nginx",
				"nginx.ingress.kubernetes.io/rewrite-target":   "/$1",
			},
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{{
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     path,
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: name,
									Port: networkingv1.ServiceBackendPort{Number: port},
								},
							},
						}},
					},
				},
			}},
		},
	}
	return e.client.CreateIngress(ctx, ing)
}

func mergeLabels(base, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func asTimeout(err error) (error, bool) {
	classified, ok := classifyKindTimeout(err)
	return classified, ok
}
