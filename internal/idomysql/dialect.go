package idomysql

import (
	"strconv"
	"strings"

	"github.com/kart-io/ido-converge/pkg/catalog"
	"github.com/kart-io/ido-converge/pkg/errors"
	"github.com/kart-io/ido-converge/pkg/options/database"
	schemaopts "github.com/kart-io/ido-converge/pkg/options/schema"
)

// Dialect selects the database client used for the schema pre-check and
// import. The two dialects differ only in the client binary; connection
// flags are shared.
type Dialect int

const (
	DialectMySQL Dialect = iota
	DialectMariaDB
)

// ParseDialect maps the configured dialect name.
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case schemaopts.DialectMySQL:
		return DialectMySQL, nil
	case schemaopts.DialectMariaDB:
		return DialectMariaDB, nil
	default:
		return 0, errors.ErrDialect.WithMessagef("unsupported dialect %q", s)
	}
}

func (d Dialect) String() string {
	if d == DialectMariaDB {
		return schemaopts.DialectMariaDB
	}
	return schemaopts.DialectMySQL
}

func (d Dialect) clientBinary() string {
	if d == DialectMariaDB {
		return "mariadb"
	}
	return "mysql"
}

// connArgs builds the shared connection arguments. The password is never
// part of argv: it travels through MYSQL_PWD (see Env) so it cannot leak
// into process listings, logs, or error messages.
func (d Dialect) connArgs(conn *database.Options) []string {
	args := []string{d.clientBinary()}
	if conn.Socket != "" {
		args = append(args, "--socket", conn.Socket)
	} else {
		args = append(args, "-h", conn.Host, "-P", strconv.Itoa(conn.EffectivePort()))
	}
	return append(args, "-u", conn.Username)
}

// CheckArgs builds the schema presence pre-check command.
func (d Dialect) CheckArgs(conn *database.Options) []string {
	query := "SELECT version FROM " + conn.TablePrefix + "dbversion"
	return append(d.connArgs(conn), "-Ns", "-e", query, conn.Database)
}

// ImportArgs builds the one-time schema import command.
func (d Dialect) ImportArgs(conn *database.Options, schemaFile string) []string {
	return append(d.connArgs(conn), "-e", "SOURCE "+schemaFile, conn.Database)
}

// Env builds the client environment. Empty passwords produce no entry so the
// client falls back to its own defaults.
func (d Dialect) Env(conn *database.Options) map[string]string {
	if conn.Password == "" {
		return nil
	}
	return map[string]string{"MYSQL_PWD": conn.Password}
}

// Stderr markers distinguishing "schema absent" from real failures. Matched
// against the raw client output, so both the numeric error code and the
// textual message forms are covered.
var (
	absentMarkers = []string{
		"ERROR 1146", // table doesn't exist
		"ERROR 1049", // unknown database
		"ERROR 1109", // unknown table
		"doesn't exist",
		"Unknown database",
	}
	authMarkers = []string{
		"ERROR 1045",
		"Access denied",
	}
	connectMarkers = []string{
		"ERROR 2002",
		"ERROR 2003",
		"ERROR 2005",
		"Can't connect",
		"Unknown MySQL server host",
	}
)

// ClassifySchemaCheck decides what a pre-check outcome means. Exit 0 is
// "schema present". A missing table or database means the schema is absent
// and the import may proceed. Authentication and connectivity failures are
// fatal: they prove nothing about schema presence, and importing on top of
// them would risk a duplicate import later.
func ClassifySchemaCheck(res catalog.RunResult) (catalog.GuardStatus, error) {
	if res.ExitCode == 0 {
		return catalog.GuardSatisfied, nil
	}

	stderr := strings.TrimSpace(res.Stderr)
	if matchesAny(stderr, absentMarkers) {
		return catalog.GuardUnsatisfied, nil
	}
	if matchesAny(stderr, authMarkers) {
		return catalog.GuardUnsatisfied, errors.ErrSchemaCheck.WithMessage("schema pre-check: access denied")
	}
	if matchesAny(stderr, connectMarkers) {
		return catalog.GuardUnsatisfied, errors.ErrSchemaCheck.WithMessagef("schema pre-check: cannot reach database: %s", stderr)
	}
	return catalog.GuardUnsatisfied, errors.ErrSchemaCheck.WithMessagef("schema pre-check failed (exit %d): %s", res.ExitCode, stderr)
}

func matchesAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
