package kube

import (
	"context"
	"sort"

	appsv1 "k8s.io/api/apps/v1"
	autoscalingv1 "k8s.io/api/autoscaling/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/bluefairy/tenantd/internal/driver"
)

const stateVolumeName = "state"

// CreateComputeUnit provisions the gateway Deployment with the tenant's
// claim mounted at the state directory. The deployment name is the
// backend compute id.
func (c *Client) CreateComputeUnit(ctx context.Context, spec driver.ComputeSpec) (string, error) {
	const op = "kube: create deployment"

	if err := spec.Validate(); err != nil {
		return "", driver.Conflict(op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Create)
	defer cancel()

	deployment := c.buildDeployment(spec)
	created, err := c.clientset.AppsV1().Deployments(c.cfg.Namespace).Create(ctx, deployment, metav1.CreateOptions{})
	if err != nil {
		return "", classify(op, err)
	}
	return created.Name, nil
}

func (c *Client) buildDeployment(spec driver.ComputeSpec) *appsv1.Deployment {
	podLabels := labels(spec.Name)

	var ports []corev1.ContainerPort
	for _, p := range spec.Ports {
		ports = append(ports, corev1.ContainerPort{ContainerPort: int32(p.Port)})
	}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.Name,
			Namespace: c.cfg.Namespace,
			Labels:    podLabels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptrInt32(1),
			// Recreate: the state volume is ReadWriteOnce, two pods must
			// never hold it at once.
			Strategy: appsv1.DeploymentStrategy{Type: appsv1.RecreateDeploymentStrategyType},
			Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": spec.Name}},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: podLabels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  "gateway",
						Image: spec.Image,
						Env:   envVars(spec.Env),
						Ports: ports,
						Resources: corev1.ResourceRequirements{
							Requests: corev1.ResourceList{
								corev1.ResourceCPU:    resource.MustParse(c.cfg.CPURequest),
								corev1.ResourceMemory: resource.MustParse(c.cfg.MemRequest),
							},
						},
						VolumeMounts: []corev1.VolumeMount{{
							Name:      stateVolumeName,
							MountPath: spec.StateDir,
						}},
					}},
					Volumes: []corev1.Volume{{
						Name: stateVolumeName,
						VolumeSource: corev1.VolumeSource{
							PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
								ClaimName: spec.VolumeID,
							},
						},
					}},
				},
			},
		},
	}
}

func envVars(env map[string]string) []corev1.EnvVar {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]corev1.EnvVar, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, corev1.EnvVar{Name: k, Value: env[k]})
	}
	return vars
}

// Inspect maps the deployment's replica state onto the observed status.
// Scaled to zero reads as stopped; scaled up but unavailable as pending.
func (c *Client) Inspect(ctx context.Context, computeID string) (driver.ObservedStatus, error) {
	const op = "kube: inspect deployment"

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Inspect)
	defer cancel()

	deployment, err := c.clientset.AppsV1().Deployments(c.cfg.Namespace).Get(ctx, computeID, metav1.GetOptions{})
	if err != nil {
		classified := classify(op, err)
		if driver.IsNotFound(classified) {
			return driver.ObservedNotFound, nil
		}
		return driver.ObservedUnknown, classified
	}

	desired := int32(1)
	if deployment.Spec.Replicas != nil {
		desired = *deployment.Spec.Replicas
	}
	switch {
	case desired == 0:
		return driver.ObservedStopped, nil
	case deployment.Status.AvailableReplicas > 0:
		return driver.ObservedRunning, nil
	default:
		return driver.ObservedPending, nil
	}
}

// Start scales the deployment to one replica. Already scaled up is a
// no-op.
func (c *Client) Start(ctx context.Context, computeID string) error {
	return c.scale(ctx, "kube: start deployment", computeID, 1)
}

// Stop scales the deployment to zero. Already scaled down is a no-op.
func (c *Client) Stop(ctx context.Context, computeID string) error {
	return c.scale(ctx, "kube: stop deployment", computeID, 0)
}

func (c *Client) scale(ctx context.Context, op, computeID string, replicas int32) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Inspect)
	defer cancel()

	deployments := c.clientset.AppsV1().Deployments(c.cfg.Namespace)
	current, err := deployments.GetScale(ctx, computeID, metav1.GetOptions{})
	if err != nil {
		return classify(op, err)
	}
	if current.Spec.Replicas == replicas {
		return nil
	}

	scale := &autoscalingv1.Scale{
		ObjectMeta: metav1.ObjectMeta{Name: computeID, Namespace: c.cfg.Namespace},
		Spec:       autoscalingv1.ScaleSpec{Replicas: replicas},
	}
	if _, err := deployments.UpdateScale(ctx, computeID, scale, metav1.UpdateOptions{}); err != nil {
		return classify(op, err)
	}
	return nil
}

func ptrInt32(v int32) *int32 { return &v }
