package driver

import (
	"context"
	"sync"
)

// Mock is a function-field Driver implementation for tests. Unset fields
// fall back to benign defaults so tests only stub what they assert on.
// Call counts are tracked per operation.
type Mock struct {
	CreateVolumeFunc      func(ctx context.Context, spec VolumeSpec) (string, error)
	CreateComputeUnitFunc func(ctx context.Context, spec ComputeSpec) (string, error)
	BindNetworkFunc       func(ctx context.Context, computeID, hostname string) (string, error)
	InspectFunc           func(ctx context.Context, computeID string) (ObservedStatus, error)
	StartFunc             func(ctx context.Context, computeID string) error
	StopFunc              func(ctx context.Context, computeID string) error
	DestroyFunc           func(ctx context.Context, ref BackendRef) error

	mu    sync.Mutex
	calls map[string]int
}

var _ Driver = (*Mock)(nil)

func (m *Mock) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

// Calls returns how many times the named operation was invoked.
func (m *Mock) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Mock) CreateVolume(ctx context.Context, spec VolumeSpec) (string, error) {
	m.record("CreateVolume")
	if m.CreateVolumeFunc != nil {
		return m.CreateVolumeFunc(ctx, spec)
	}
	return "mock-volume", nil
}

func (m *Mock) CreateComputeUnit(ctx context.Context, spec ComputeSpec) (string, error) {
	m.record("CreateComputeUnit")
	if m.CreateComputeUnitFunc != nil {
		return m.CreateComputeUnitFunc(ctx, spec)
	}
	return "mock-compute", nil
}

func (m *Mock) BindNetwork(ctx context.Context, computeID, hostname string) (string, error) {
	m.record("BindNetwork")
	if m.BindNetworkFunc != nil {
		return m.BindNetworkFunc(ctx, computeID, hostname)
	}
	return "https://" + hostname, nil
}

func (m *Mock) Inspect(ctx context.Context, computeID string) (ObservedStatus, error) {
	m.record("Inspect")
	if m.InspectFunc != nil {
		return m.InspectFunc(ctx, computeID)
	}
	return ObservedRunning, nil
}

func (m *Mock) Start(ctx context.Context, computeID string) error {
	m.record("Start")
	if m.StartFunc != nil {
		return m.StartFunc(ctx, computeID)
	}
	return nil
}

func (m *Mock) Stop(ctx context.Context, computeID string) error {
	m.record("Stop")
	if m.StopFunc != nil {
		return m.StopFunc(ctx, computeID)
	}
	return nil
}

func (m *Mock) Destroy(ctx context.Context, ref BackendRef) error {
	m.record("Destroy")
	if m.DestroyFunc != nil {
		return m.DestroyFunc(ctx, ref)
	}
	return nil
}
