// Package pkgmgr provides the package management policy options.
package pkgmgr

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// OS families with distinct package handling.
const (
	FamilyDebian = "debian"
	FamilyRedHat = "redhat"
)

// Options defines the client package policy. Manage false means packages are
// handled out-of-band and the installer contributes nothing to the catalog.
type Options struct {
	Manage   bool   `json:"manage" mapstructure:"manage"`
	Package  string `json:"package" mapstructure:"package"`
	OSFamily string `json:"os-family" mapstructure:"os-family"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Manage:  true,
		Package: "icinga2-ido-mysql",
	}
}

// Complete detects the OS family when it was not set explicitly.
func (o *Options) Complete() error {
	if o.OSFamily != "" {
		return nil
	}
	o.OSFamily = detectOSFamily()
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	if !o.Manage {
		return nil
	}
	if o.Package == "" {
		return fmt.Errorf("package name is required when package management is enabled")
	}
	if o.OSFamily != FamilyDebian && o.OSFamily != FamilyRedHat {
		return fmt.Errorf("os-family must be %q or %q, got %q", FamilyDebian, FamilyRedHat, o.OSFamily)
	}
	return nil
}

// AddFlags adds flags for package options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Manage, "package.manage", o.Manage, "Let the converger manage the client package")
	fs.StringVar(&o.Package, "package.name", o.Package, "Client package name")
	fs.StringVar(&o.OSFamily, "package.os-family", o.OSFamily, "OS family (debian|redhat, empty = autodetect)")
}

// detectOSFamily classifies the host from /etc/os-release. Defaults to the
// Debian family when the file is unreadable.
func detectOSFamily() string {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return FamilyDebian
	}
	content := strings.ToLower(string(data))
	for _, marker := range []string{"rhel", "centos", "fedora", "rocky", "alma"} {
		if strings.Contains(content, marker) {
			return FamilyRedHat
		}
	}
	return FamilyDebian
}
