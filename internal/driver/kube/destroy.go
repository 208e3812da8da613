package kube

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/bluefairy/tenantd/internal/driver"
)

// Destroy deletes the ingress, service, deployment and claim. Missing
// objects are skipped; double-destroy is not an error.
func (c *Client) Destroy(ctx context.Context, ref driver.BackendRef) error {
	const op = "kube: destroy"

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Destroy)
	defer cancel()

	ns := c.cfg.Namespace

	if ref.ComputeID != "" {
		deleters := []func(context.Context, string, metav1.DeleteOptions) error{
			c.clientset.NetworkingV1().Ingresses(ns).Delete,
			c.clientset.CoreV1().Services(ns).Delete,
			c.clientset.AppsV1().Deployments(ns).Delete,
		}
		for _, del := range deleters {
			if err := del(ctx, ref.ComputeID, metav1.DeleteOptions{}); err != nil {
				classified := classify(op, err)
				if !driver.IsNotFound(classified) {
					return classified
				}
			}
		}
	}

	if ref.VolumeID != "" {
		err := c.clientset.CoreV1().PersistentVolumeClaims(ns).Delete(ctx, ref.VolumeID, metav1.DeleteOptions{})
		if err != nil {
			classified := classify(op, err)
			if !driver.IsNotFound(classified) {
				return classified
			}
		}
	}
	return nil
}
