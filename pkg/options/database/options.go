// Package database provides the IDO database connection options.
package database

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// redactedPassword is the placeholder used when serializing passwords.
const redactedPassword = "[REDACTED]"

// Options defines the connection parameters of the ido-mysql feature.
// Port 0 means "driver default"; the rendered config omits it. Socket and
// host/port may both be set: the client command prefers the socket, the
// rendered config carries whatever is set.
type Options struct {
	Host        string `json:"host" mapstructure:"host"`
	Port        int    `json:"port" mapstructure:"port"`
	Socket      string `json:"socket" mapstructure:"socket"`
	Username    string `json:"username" mapstructure:"username"`
	Password    string `json:"-" mapstructure:"password"` // Excluded from JSON serialization
	Database    string `json:"database" mapstructure:"database"`
	TablePrefix string `json:"table-prefix" mapstructure:"table-prefix"`
}

// optionsForJSON is used for JSON marshaling with password redacted.
type optionsForJSON struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Socket      string `json:"socket"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Database    string `json:"database"`
	TablePrefix string `json:"table-prefix"`
}

// MarshalJSON implements json.Marshaler with password redaction.
// This prevents accidental password exposure in logs or debug output.
func (o *Options) MarshalJSON() ([]byte, error) {
	password := redactedPassword
	if o.Password == "" {
		password = ""
	}

	return json.Marshal(optionsForJSON{
		Host:        o.Host,
		Port:        o.Port,
		Socket:      o.Socket,
		Username:    o.Username,
		Password:    password,
		Database:    o.Database,
		TablePrefix: o.TablePrefix,
	})
}

// String returns a string representation with password redacted.
// Safe for logging and debugging.
func (o *Options) String() string {
	password := redactedPassword
	if o.Password == "" {
		password = ""
	}
	return fmt.Sprintf("Database{host=%s, port=%d, socket=%s, user=%s, password=%s, database=%s}",
		o.Host, o.Port, o.Socket, o.Username, password, o.Database)
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Host:        "localhost",
		Port:        0,
		Username:    "icinga",
		Password:    "",
		Database:    "icinga",
		TablePrefix: "icinga_",
	}
}

// EffectivePort returns the configured port or the driver default.
func (o *Options) EffectivePort() int {
	if o.Port != 0 {
		return o.Port
	}
	return 3306
}

// Complete fills the password from the environment when it was not set
// through configuration.
func (o *Options) Complete() error {
	if o.Password == "" {
		o.Password = os.Getenv("IDO_MYSQL_PASSWORD")
	}
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	if o.Password != "" && os.Getenv("IDO_MYSQL_PASSWORD") == "" {
		fmt.Fprintf(os.Stderr, "WARNING: Passing the database password via CLI is insecure. Use the IDO_MYSQL_PASSWORD environment variable instead.\n")
	}

	if o.Host == "" && o.Socket == "" {
		return fmt.Errorf("either host or socket is required")
	}
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}
	if o.Username == "" {
		return fmt.Errorf("username is required")
	}
	if o.Database == "" {
		return fmt.Errorf("database is required")
	}
	return nil
}

// AddFlags adds flags for database options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Host, "database.host", o.Host, "IDO database host")
	fs.IntVar(&o.Port, "database.port", o.Port, "IDO database port (0 = driver default)")
	fs.StringVar(&o.Socket, "database.socket", o.Socket, "IDO database unix socket path")
	fs.StringVar(&o.Username, "database.username", o.Username, "IDO database username")
	fs.StringVar(&o.Password, "database.password", o.Password, "IDO database password (DEPRECATED: use IDO_MYSQL_PASSWORD env var instead)")
	fs.StringVar(&o.Database, "database.database", o.Database, "IDO database name")
	fs.StringVar(&o.TablePrefix, "database.table-prefix", o.TablePrefix, "IDO table prefix")
}
