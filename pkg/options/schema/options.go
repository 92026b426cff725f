// Package schema provides the schema import policy options.
package schema

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Supported client dialects.
const (
	DialectMySQL   = "mysql"
	DialectMariaDB = "mariadb"
)

// Options defines the one-time schema import policy. When Import is false
// the importer stays in its skipped state and Dialect is ignored.
type Options struct {
	Import  bool   `json:"import" mapstructure:"import"`
	Dialect string `json:"dialect" mapstructure:"dialect"`
	File    string `json:"file" mapstructure:"file"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Import:  false,
		Dialect: DialectMySQL,
		File:    "/usr/share/icinga2-ido-mysql/schema/mysql.sql",
	}
}

// Complete is a no-op; all defaults are set in NewOptions.
func (o *Options) Complete() error {
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	if !o.Import {
		return nil
	}
	if o.Dialect != DialectMySQL && o.Dialect != DialectMariaDB {
		return fmt.Errorf("dialect must be %q or %q, got %q", DialectMySQL, DialectMariaDB, o.Dialect)
	}
	if o.File == "" {
		return fmt.Errorf("schema file is required when import is enabled")
	}
	return nil
}

// AddFlags adds flags for schema import options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Import, "schema.import", o.Import, "Import the IDO schema once if not present")
	fs.StringVar(&o.Dialect, "schema.dialect", o.Dialect, "Database client dialect (mysql|mariadb)")
	fs.StringVar(&o.File, "schema.file", o.File, "Path to the IDO schema dump")
}
