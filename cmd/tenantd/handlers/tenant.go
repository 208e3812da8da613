package handlers

import (
	"context"
	"fmt"
)

// Provision registers the tenant and runs the workflow to completion,
// printing the resulting endpoint or the failure.
func Provision(ctx context.Context, configPath, ownerRef, slug, region string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	record, err := a.orch.Provision(ctx, ownerRef, slug, region)
	if err != nil {
		return err
	}
	fmt.Printf("Tenant %s registered (slug %s), provisioning...\n", record.ID, record.Slug)

	a.orch.Wait()

	info, err := a.orch.GetStatus(ctx, ownerRef)
	if err != nil {
		return err
	}
	if !info.Ready {
		return fmt.Errorf("provisioning did not complete: tenant %s is %s (retry with: tenantd retry %s)",
			record.ID, info.Status, record.ID)
	}
	fmt.Printf("Gateway ready at %s\n", info.Endpoint)
	return nil
}

// Status prints the owner's tenant status.
func Status(ctx context.Context, configPath, ownerRef string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	info, err := a.orch.GetStatus(ctx, ownerRef)
	if err != nil {
		return err
	}

	fmt.Printf("Tenant:   %s\n", info.TenantID)
	fmt.Printf("Status:   %s\n", info.Status)
	fmt.Printf("Region:   %s\n", info.Region)
	if info.Endpoint != "" {
		fmt.Printf("Endpoint: %s\n", info.Endpoint)
	}
	return nil
}

// LifecycleOp names a single-tenant operation.
type LifecycleOp string

const (
	OpStart     LifecycleOp = "start"
	OpStop      LifecycleOp = "stop"
	OpDestroy   LifecycleOp = "destroy"
	OpRetry     LifecycleOp = "retry"
	OpReconcile LifecycleOp = "reconcile"
)

// Lifecycle runs the named operation against one tenant and prints the
// resulting status.
func Lifecycle(ctx context.Context, configPath, tenantID string, op LifecycleOp) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	switch op {
	case OpStart:
		err = a.orch.Start(ctx, tenantID)
	case OpStop:
		err = a.orch.Stop(ctx, tenantID)
	case OpDestroy:
		err = a.orch.Destroy(ctx, tenantID)
	case OpRetry:
		err = a.orch.Retry(ctx, tenantID)
	case OpReconcile:
		err = a.orch.Reconcile(ctx, tenantID)
	default:
		return fmt.Errorf("unknown operation: %s", op)
	}
	if err != nil {
		return err
	}

	if op == OpRetry {
		// Retry re-enters the workflow in the background; wait so the
		// CLI reports the final outcome.
		a.orch.Wait()
	}

	record, err := a.orch.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	fmt.Printf("Tenant %s is %s\n", tenantID, record.Status)
	return nil
}

// Recover resumes provisioning workflows that a previous process
// abandoned, and waits for them.
func Recover(ctx context.Context, configPath string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	resumed, err := a.orch.RecoverStale(ctx, a.cfg.Reconcile.StaleProvisioningAfter.Std())
	if err != nil {
		return err
	}
	if resumed == 0 {
		fmt.Println("No stale provisioning attempts found")
		return nil
	}

	fmt.Printf("Resuming %d provisioning attempt(s)...\n", resumed)
	a.orch.Wait()
	fmt.Println("Done")
	return nil
}
