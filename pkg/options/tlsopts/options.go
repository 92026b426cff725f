// Package tlsopts provides the TLS credential bundle options for the IDO
// client connection.
package tlsopts

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Options defines the TLS material for the IDO client connection. Each of
// key, cert, and CA may come from an existing filesystem path or from inline
// PEM content; giving both for the same slot is a configuration error.
type Options struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	Key    string `json:"key" mapstructure:"key"`
	Cert   string `json:"cert" mapstructure:"cert"`
	CACert string `json:"cacert" mapstructure:"cacert"`

	// Inline PEM material, written to the managed credential directory by
	// the provisioner. Excluded from JSON output: the key is a secret.
	KeyPEM    string `json:"-" mapstructure:"key-pem"`
	CertPEM   string `json:"-" mapstructure:"cert-pem"`
	CACertPEM string `json:"-" mapstructure:"cacert-pem"`

	// CAPath is an optional CA search directory, supplementary to CACert.
	CAPath string `json:"capath" mapstructure:"capath"`

	// Cipher is an optional cipher list for the client connection.
	Cipher string `json:"cipher" mapstructure:"cipher"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{}
}

// Complete is a no-op; all defaults are set in NewOptions.
func (o *Options) Complete() error {
	return nil
}

// Validate rejects slots given both as a path and as inline material.
// Completeness (every slot resolvable) is the provisioner's check; it needs
// the resolution policy and runs before any state is applied.
func (o *Options) Validate() error {
	if !o.Enabled {
		return nil
	}
	if o.Key != "" && o.KeyPEM != "" {
		return fmt.Errorf("tls key: both path and inline material given")
	}
	if o.Cert != "" && o.CertPEM != "" {
		return fmt.Errorf("tls cert: both path and inline material given")
	}
	if o.CACert != "" && o.CACertPEM != "" {
		return fmt.Errorf("tls cacert: both path and inline material given")
	}
	return nil
}

// AddFlags adds flags for TLS options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "tls.enabled", o.Enabled, "Enable TLS for the IDO client connection")
	fs.StringVar(&o.Key, "tls.key", o.Key, "Path to an existing TLS client key")
	fs.StringVar(&o.Cert, "tls.cert", o.Cert, "Path to an existing TLS client certificate")
	fs.StringVar(&o.CACert, "tls.cacert", o.CACert, "Path to an existing TLS CA certificate")
	fs.StringVar(&o.CAPath, "tls.capath", o.CAPath, "Optional CA certificate search directory")
	fs.StringVar(&o.Cipher, "tls.cipher", o.Cipher, "Optional cipher list for the client connection")
}
