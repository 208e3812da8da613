package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/bluefairy/tenantd/internal/driver"
)

// CreateVolume provisions a PersistentVolumeClaim for the tenant's state
// directory. The claim name doubles as the backend volume id.
func (c *Client) CreateVolume(ctx context.Context, spec driver.VolumeSpec) (string, error) {
	const op = "kube: create pvc"

	if err := spec.Validate(); err != nil {
		return "", driver.Conflict(op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Create)
	defer cancel()

	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.Name,
			Namespace: c.cfg.Namespace,
			Labels:    labels(spec.Name),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse(fmt.Sprintf("%dGi", spec.SizeGB)),
				},
			},
		},
	}
	if c.cfg.StorageClass != "" {
		pvc.Spec.StorageClassName = &c.cfg.StorageClass
	}

	created, err := c.clientset.CoreV1().PersistentVolumeClaims(c.cfg.Namespace).Create(ctx, pvc, metav1.CreateOptions{})
	if err != nil {
		return "", classify(op, err)
	}
	return created.Name, nil
}
