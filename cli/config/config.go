package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/cicore/adapter"
	"github.com/pithecene-io/cicore/adapter/redis"
	"github.com/pithecene-io/cicore/adapter/webhook"
	"github.com/pithecene-io/cicore/admission"
	"github.com/pithecene-io/cicore/quota"
	"github.com/pithecene-io/cicore/types"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "cicore.yaml"

// Config represents a cicore.yaml configuration file.
// All values are optional. CLI flags always override config values.
type Config struct {
	Limits    LimitsConfig         `yaml:"limits"`
	Admission AdmissionConfig      `yaml:"admission"`
	Runners   []types.RunnerRecord `yaml:"runners"`
	Adapter   AdapterConfig        `yaml:"adapter"`
	Log       LogConfig            `yaml:"log"`
}

// LimitsConfig holds the namespace plan limits. Zero or negative values
// disable a limit.
type LimitsConfig struct {
	ActivePipelines quota.Limit `yaml:"ci_active_pipelines"`
	ActiveJobs      quota.Limit `yaml:"ci_active_jobs"`
	PipelineSize    quota.Limit `yaml:"ci_pipeline_size"`
}

// AdmissionConfig selects the admission policy.
type AdmissionConfig struct {
	Policy string `yaml:"policy"`
}

// AdapterConfig configures where rejection events are published.
type AdapterConfig struct {
	Type         string            `yaml:"type"`
	URL          string            `yaml:"url"`
	Channel      string            `yaml:"channel,omitempty"`
	PerNamespace bool              `yaml:"per_namespace,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	Timeout      Duration          `yaml:"timeout,omitempty"`
	Retries      *int              `yaml:"retries,omitempty"`
}

// LogConfig holds logging defaults.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks values that YAML decoding cannot: the policy name, the
// adapter type and every runner record.
func (c *Config) Validate() error {
	var errs []error

	switch c.Admission.Policy {
	case "", admission.PolicyStrict, admission.PolicyAdvisory, admission.PolicyNoop:
	default:
		errs = append(errs, fmt.Errorf("admission.policy: %w: %q", admission.ErrUnknownPolicy, c.Admission.Policy))
	}

	switch c.Adapter.Type {
	case "":
	case "webhook", "redis":
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter.url is required for %s adapter", c.Adapter.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("adapter.type: unknown adapter %q (want webhook or redis)", c.Adapter.Type))
	}

	for i, r := range c.Runners {
		if _, err := r.Capability(); err != nil {
			errs = append(errs, fmt.Errorf("runners[%d]: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

// LimitValues returns the configured limits as plain integers in the order
// active pipelines, active jobs, pipeline size.
func (c *Config) LimitValues() (pipelines, jobs, size int64) {
	return c.Limits.ActivePipelines.Value, c.Limits.ActiveJobs.Value, c.Limits.PipelineSize.Value
}

// BuildAdapter creates the configured rejection publisher. Returns nil
// without error when no adapter is configured.
func (c *Config) BuildAdapter() (adapter.Adapter, error) {
	retries := 0
	if c.Adapter.Retries != nil {
		retries = *c.Adapter.Retries
	}

	switch c.Adapter.Type {
	case "":
		return nil, nil
	case "webhook":
		if c.Adapter.Retries == nil {
			retries = webhook.DefaultRetries
		}
		return webhook.New(webhook.Config{
			URL:     c.Adapter.URL,
			Headers: c.Adapter.Headers,
			Timeout: c.Adapter.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		if c.Adapter.Retries == nil {
			retries = redis.DefaultRetries
		}
		return redis.New(redis.Config{
			URL:          c.Adapter.URL,
			Channel:      c.Adapter.Channel,
			PerNamespace: c.Adapter.PerNamespace,
			Timeout:      c.Adapter.Timeout.Duration,
			Retries:      retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q", c.Adapter.Type)
	}
}
