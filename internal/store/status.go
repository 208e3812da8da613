package store

// Status is the lifecycle state of a tenant gateway.
type Status string

const (
	// StatusProvisioning means the record exists but the provisioning
	// workflow has not yet completed all backend steps.
	StatusProvisioning Status = "provisioning"

	// StatusRunning means the gateway's compute unit is up and reachable
	// at the tenant's endpoint.
	StatusRunning Status = "running"

	// StatusStopped means the compute unit exists but is powered off.
	StatusStopped Status = "stopped"

	// StatusError means a provisioning step or lifecycle operation failed,
	// or drift was detected. Requires an explicit retry or destroy.
	StatusError Status = "error"

	// StatusDestroyed is terminal. The record is retained for audit but all
	// backend resources are gone.
	StatusDestroyed Status = "destroyed"
)

// transitions is the status graph. The provisioning workflow drives
// provisioning->running|error, the lifecycle controller drives
// start/stop/destroy, and reconciliation may correct any live status to
// the backend's observed reality (including back to provisioning when the
// compute unit is still booting).
var transitions = map[Status][]Status{
	StatusProvisioning: {StatusRunning, StatusStopped, StatusError, StatusDestroyed},
	StatusRunning:      {StatusProvisioning, StatusStopped, StatusError, StatusDestroyed},
	StatusStopped:      {StatusProvisioning, StatusRunning, StatusError, StatusDestroyed},
	StatusError:        {StatusProvisioning, StatusRunning, StatusStopped, StatusDestroyed},
	StatusDestroyed:    {},
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return s == StatusDestroyed
}

// CanTransition reports whether the status graph permits moving from
// `from` to `to`. Self-transitions are not permitted; callers that find
// the record already in the desired status treat the operation as a no-op
// instead of writing.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionSources returns every status from which `to` is reachable.
// Stores use this to build the compare-and-swap guard in UpdateStatus.
func TransitionSources(to Status) []Status {
	var sources []Status
	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				sources = append(sources, from)
			}
		}
	}
	return sources
}
