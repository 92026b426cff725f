// Package feature provides the feature toggle and instance options.
package feature

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Ensure states for the feature toggle.
const (
	EnsurePresent = "present"
	EnsureAbsent  = "absent"
)

// Options defines the feature registration and the optional instance, HA,
// cleanup, and category attributes of the rendered config. String fields
// left empty and zero durations are omitted from the render entirely.
type Options struct {
	Ensure string `json:"ensure" mapstructure:"ensure"`

	InstanceName string `json:"instance-name" mapstructure:"instance-name"`

	// EnableHA is tri-state: "" (omit), "true", or "false". The rendered
	// config only carries the attribute when it is explicitly set.
	EnableHA string `json:"enable-ha" mapstructure:"enable-ha"`

	FailoverTimeout time.Duration `json:"failover-timeout" mapstructure:"failover-timeout"`

	// Cleanup maps history table names to maximum ages, e.g.
	// acknowledgements_age -> 72h.
	Cleanup map[string]time.Duration `json:"cleanup" mapstructure:"cleanup"`

	// Categories restricts which data categories the feature persists.
	Categories []string `json:"categories" mapstructure:"categories"`

	// cleanupFlag stages the --feature.cleanup flag values; Complete parses
	// them into Cleanup.
	cleanupFlag map[string]string
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Ensure: EnsurePresent,
	}
}

// Enabled reports whether the feature is being enabled.
func (o *Options) Enabled() bool {
	return o.Ensure == EnsurePresent
}

// Complete parses staged flag values into their typed fields.
func (o *Options) Complete() error {
	for table, raw := range o.cleanupFlag {
		age, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("cleanup age for %s: %w", table, err)
		}
		if o.Cleanup == nil {
			o.Cleanup = make(map[string]time.Duration)
		}
		o.Cleanup[table] = age
	}
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	if o.Ensure != EnsurePresent && o.Ensure != EnsureAbsent {
		return fmt.Errorf("ensure must be %q or %q, got %q", EnsurePresent, EnsureAbsent, o.Ensure)
	}
	switch o.EnableHA {
	case "", "true", "false":
	default:
		return fmt.Errorf("enable-ha must be empty, \"true\", or \"false\", got %q", o.EnableHA)
	}
	if o.FailoverTimeout < 0 {
		return fmt.Errorf("failover-timeout must not be negative")
	}
	for table, age := range o.Cleanup {
		if age <= 0 {
			return fmt.Errorf("cleanup age for %s must be positive", table)
		}
	}
	return nil
}

// AddFlags adds flags for feature options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Ensure, "feature.ensure", o.Ensure, "Feature registration (present|absent)")
	fs.StringVar(&o.InstanceName, "feature.instance-name", o.InstanceName, "IDO instance name")
	fs.StringVar(&o.EnableHA, "feature.enable-ha", o.EnableHA, "Enable HA for the IDO connection (true|false, empty omits)")
	fs.DurationVar(&o.FailoverTimeout, "feature.failover-timeout", o.FailoverTimeout, "HA failover timeout (0 omits)")
	fs.StringToStringVar(&o.cleanupFlag, "feature.cleanup", nil, "Cleanup ages per history table, e.g. acknowledgements_age=72h")
	fs.StringSliceVar(&o.Categories, "feature.categories", o.Categories, "Data categories to persist")
}
