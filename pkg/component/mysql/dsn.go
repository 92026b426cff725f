package mysql

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"

	gosql "github.com/go-sql-driver/mysql"

	"github.com/kart-io/ido-converge/pkg/options/database"
	"github.com/kart-io/ido-converge/pkg/options/tlsopts"
)

// tlsConfigName is the driver-level name the converger's TLS config is
// registered under.
const tlsConfigName = "ido-converge"

// BuildDSN creates a MySQL Data Source Name from the connection options.
// A socket path takes precedence over host/port for the wire connection.
//
// SECURITY NOTE: the password is escaped so special characters cannot break
// DSN parsing. The DSN carries the real password and must never be logged;
// use the options' String() for diagnostics.
func BuildDSN(opts *database.Options, tlsOpts *tlsopts.Options) string {
	escapedPassword := url.QueryEscape(opts.Password)

	var addr string
	if opts.Socket != "" {
		addr = fmt.Sprintf("unix(%s)", opts.Socket)
	} else {
		addr = fmt.Sprintf("tcp(%s:%d)", opts.Host, opts.EffectivePort())
	}

	dsn := fmt.Sprintf("%s:%s@%s/%s?charset=utf8mb4&parseTime=True&loc=Local",
		opts.Username,
		escapedPassword,
		addr,
		opts.Database,
	)
	if tlsOpts != nil && tlsOpts.Enabled {
		dsn += "&tls=" + tlsConfigName
	}
	return dsn
}

// RegisterTLS registers the resolved TLS material with the driver so DSNs
// referencing it can connect. Paths must already be resolved; inline
// material is the provisioner's job, not the driver's.
func RegisterTLS(tlsOpts *tlsopts.Options) error {
	if tlsOpts == nil || !tlsOpts.Enabled {
		return nil
	}

	cfg := &tls.Config{}

	if tlsOpts.CACert != "" {
		pem, err := os.ReadFile(tlsOpts.CACert)
		if err != nil {
			return fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return fmt.Errorf("failed to parse CA certificate %s", tlsOpts.CACert)
		}
		cfg.RootCAs = pool
	}

	if tlsOpts.Key != "" || tlsOpts.Cert != "" {
		pair, err := tls.LoadX509KeyPair(tlsOpts.Cert, tlsOpts.Key)
		if err != nil {
			return fmt.Errorf("failed to load client key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}

	if err := gosql.RegisterTLSConfig(tlsConfigName, cfg); err != nil {
		return fmt.Errorf("failed to register TLS config: %w", err)
	}
	return nil
}
