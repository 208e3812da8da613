package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultReconcileInterval = 60 * time.Second
	defaultStaleProvisioning = 10 * time.Minute
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Timeouts holds the per-operation deadlines applied to infrastructure
// driver calls. Every driver call is a network call with unbounded
// latency; a deadline expiry is surfaced as a retryable backend failure,
// never as success or failure of the underlying operation.
type Timeouts struct {
	Create  time.Duration // volume/compute/network creation
	Inspect time.Duration // inspect, start, stop
	Destroy time.Duration // teardown

	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
}

// LoadTimeouts loads timeout configuration from environment variables,
// falling back to defaults.
//
// Environment variables:
//   - TENANTD_TIMEOUT_CREATE (default: 60s)
//   - TENANTD_TIMEOUT_INSPECT (default: 10s)
//   - TENANTD_TIMEOUT_DESTROY (default: 5m)
//   - TENANTD_RETRY_MAX_ATTEMPTS (default: 4)
//   - TENANTD_RETRY_INITIAL_DELAY (default: 500ms)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Create:            parseDuration("TENANTD_TIMEOUT_CREATE", 60*time.Second),
		Inspect:           parseDuration("TENANTD_TIMEOUT_INSPECT", 10*time.Second),
		Destroy:           parseDuration("TENANTD_TIMEOUT_DESTROY", 5*time.Minute),
		RetryMaxAttempts:  parseInt("TENANTD_RETRY_MAX_ATTEMPTS", 4),
		RetryInitialDelay: parseDuration("TENANTD_RETRY_INITIAL_DELAY", 500*time.Millisecond),
	}
}

func parseDuration(env string, fallback time.Duration) time.Duration {
	raw := os.Getenv(env)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(env string, fallback int) int {
	raw := os.Getenv(env)
	if raw == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil || n <= 0 {
		return fallback
	}
	return n
}
