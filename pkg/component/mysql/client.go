// Package mysql provides a direct client for the IDO database, used to
// verify schema presence over the wire instead of through the CLI dialect.
package mysql

import (
	"context"
	"errors"
	"fmt"

	gosql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kart-io/ido-converge/pkg/options/database"
	"github.com/kart-io/ido-converge/pkg/options/tlsopts"
)

// Client wraps a gorm.DB connection to the IDO database.
type Client struct {
	db   *gorm.DB
	opts *database.Options
}

// New creates a client from the provided options and verifies connectivity.
func New(opts *database.Options, tlsOpts *tlsopts.Options) (*Client, error) {
	return NewWithContext(context.Background(), opts, tlsOpts)
}

// NewWithContext creates a client with context support for the connection
// establishment phase.
func NewWithContext(ctx context.Context, opts *database.Options, tlsOpts *tlsopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("database options cannot be nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database options: %w", err)
	}
	if err := RegisterTLS(tlsOpts); err != nil {
		return nil, err
	}

	dsn := BuildDSN(opts, tlsOpts)

	// Logging stays silent: GORM's trace output would echo SQL built from
	// connection parameters.
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db, opts: opts}, nil
}

// SchemaPresent reports whether the IDO schema's version marker table exists
// and carries a row. A missing table or database means "not present"; any
// other error (authentication, connectivity) is returned as-is so callers
// can treat it as fatal.
func (c *Client) SchemaPresent(ctx context.Context) (bool, error) {
	var version string
	table := c.opts.TablePrefix + "dbversion"

	err := c.db.WithContext(ctx).
		Table(table).
		Select("version").
		Limit(1).
		Scan(&version).Error
	if err != nil {
		if isMissingSchemaErr(err) {
			return false, nil
		}
		return false, fmt.Errorf("schema pre-check failed: %w", err)
	}
	return version != "", nil
}

// Close closes the connection. Safe to call multiple times.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// DB returns the underlying gorm.DB instance.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// MySQL server error numbers that mean the schema genuinely does not exist.
const (
	errNoSuchTable    = 1146
	errBadDB          = 1049
	errNoSuchTableMap = 1109
)

func isMissingSchemaErr(err error) bool {
	var myErr *gosql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	switch myErr.Number {
	case errNoSuchTable, errBadDB, errNoSuchTableMap:
		return true
	}
	return false
}
