package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/bluefairy/tenantd/internal/driver"
)

// BindNetwork creates the Service and Ingress that expose the gateway at
// the desired hostname. Both are named after the compute unit so Destroy
// can find them without extra bookkeeping.
func (c *Client) BindNetwork(ctx context.Context, computeID, hostname string) (string, error) {
	const op = "kube: bind network"

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Create)
	defer cancel()

	deployment, err := c.clientset.AppsV1().Deployments(c.cfg.Namespace).Get(ctx, computeID, metav1.GetOptions{})
	if err != nil {
		return "", classify(op, err)
	}

	containers := deployment.Spec.Template.Spec.Containers
	if len(containers) == 0 || len(containers[0].Ports) == 0 {
		return "", driver.Conflict(op, fmt.Errorf("deployment %s exposes no ports", computeID))
	}
	port := containers[0].Ports[0].ContainerPort

	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      computeID,
			Namespace: c.cfg.Namespace,
			Labels:    labels(computeID),
		},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{"app": computeID},
			Ports: []corev1.ServicePort{{
				Port:       port,
				TargetPort: intstr.FromInt32(port),
			}},
		},
	}
	if _, err := c.clientset.CoreV1().Services(c.cfg.Namespace).Create(ctx, service, metav1.CreateOptions{}); err != nil {
		if !apierrors.IsAlreadyExists(err) {
			return "", classify(op, err)
		}
		// A bind can fail between creating the Service and the Ingress;
		// the workflow re-runs the whole step on retry. Our own object
		// from that earlier attempt is adopted, anything else is a real
		// name collision.
		if adoptErr := c.adoptService(ctx, op, computeID); adoptErr != nil {
			return "", adoptErr
		}
	}

	pathType := networkingv1.PathTypePrefix
	ingress := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:      computeID,
			Namespace: c.cfg.Namespace,
			Labels:    labels(computeID),
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{{
				Host: hostname,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     "/",
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: computeID,
									Port: networkingv1.ServiceBackendPort{Number: port},
								},
							},
						}},
					},
				},
			}},
			TLS: []networkingv1.IngressTLS{{
				Hosts:      []string{hostname},
				SecretName: computeID + "-tls",
			}},
		},
	}
	if c.cfg.IngressClass != "" {
		ingress.Spec.IngressClassName = &c.cfg.IngressClass
	}
	if _, err := c.clientset.NetworkingV1().Ingresses(c.cfg.Namespace).Create(ctx, ingress, metav1.CreateOptions{}); err != nil {
		if !apierrors.IsAlreadyExists(err) {
			return "", classify(op, err)
		}
		if adoptErr := c.adoptIngress(ctx, op, computeID); adoptErr != nil {
			return "", adoptErr
		}
	}

	return "https://" + hostname, nil
}

// adoptService accepts an existing Service as this bind's result when it
// carries the driver's labels.
func (c *Client) adoptService(ctx context.Context, op, computeID string) error {
	existing, err := c.clientset.CoreV1().Services(c.cfg.Namespace).Get(ctx, computeID, metav1.GetOptions{})
	if err != nil {
		return classify(op, err)
	}
	if !ownedByDriver(existing.Labels, computeID) {
		return driver.Conflict(op, fmt.Errorf("service %s exists but is not managed by this driver", computeID))
	}
	return nil
}

// adoptIngress is the Ingress counterpart of adoptService.
func (c *Client) adoptIngress(ctx context.Context, op, computeID string) error {
	existing, err := c.clientset.NetworkingV1().Ingresses(c.cfg.Namespace).Get(ctx, computeID, metav1.GetOptions{})
	if err != nil {
		return classify(op, err)
	}
	if !ownedByDriver(existing.Labels, computeID) {
		return driver.Conflict(op, fmt.Errorf("ingress %s exists but is not managed by this driver", computeID))
	}
	return nil
}

func ownedByDriver(have map[string]string, computeID string) bool {
	for k, v := range labels(computeID) {
		if have[k] != v {
			return false
		}
	}
	return true
}
