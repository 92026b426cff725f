// Package options defines the generic options interface shared by the
// per-concern option packages.
package options

import (
	"github.com/spf13/pflag"
)

// IOptions defines methods to implement a generic options package.
type IOptions interface {
	// Complete completes options that depend on the environment or on
	// other values (env fallbacks, OS detection, staged flag parsing).
	Complete() error

	// Validate validates all the required options.
	Validate() error

	// AddFlags adds flags related to given flagset.
	AddFlags(fs *pflag.FlagSet)
}
