package idomysql

import (
	"github.com/kart-io/ido-converge/pkg/catalog"
	"github.com/kart-io/ido-converge/pkg/options/database"
	schemaopts "github.com/kart-io/ido-converge/pkg/options/schema"
)

// ImportState tracks the schema importer through one convergence pass.
type ImportState int

const (
	// StateSkipped means the import policy is off; no check, no import.
	StateSkipped ImportState = iota
	// StatePending means the pre-check has not run yet.
	StatePending
	// StateVerifiedPresent means the pre-check found the schema; the pass
	// ends without importing.
	StateVerifiedPresent
	// StateVerifiedAbsent means the pre-check proved the schema missing.
	StateVerifiedAbsent
	// StateImported means the import ran this pass. It runs at most once;
	// a failed import is fatal and is never retried within the pass.
	StateImported
)

func (s ImportState) String() string {
	switch s {
	case StateSkipped:
		return "skipped"
	case StatePending:
		return "pending"
	case StateVerifiedPresent:
		return "verified-present"
	case StateVerifiedAbsent:
		return "verified-absent"
	case StateImported:
		return "imported"
	default:
		return "unknown"
	}
}

// SchemaExecName is the catalog name of the guarded import exec.
const SchemaExecName = "ido-schema-import"

// Importer builds the guarded schema import for the catalog. The guard is
// the presence pre-check; it runs on every pass and the import only runs
// when the guard proves the schema absent.
type Importer struct {
	dialect Dialect
	conn    *database.Options
	file    string
}

// NewImporter builds an importer, or nil when the import policy is off.
func NewImporter(opts *schemaopts.Options, conn *database.Options) (*Importer, error) {
	if !opts.Import {
		return nil, nil
	}
	dialect, err := ParseDialect(opts.Dialect)
	if err != nil {
		return nil, err
	}
	return &Importer{dialect: dialect, conn: conn, file: opts.File}, nil
}

// Resource returns the guarded exec for the catalog.
func (i *Importer) Resource() *catalog.Exec {
	return &catalog.Exec{
		Name:          SchemaExecName,
		Argv:          i.dialect.ImportArgs(i.conn, i.file),
		Env:           i.dialect.Env(i.conn),
		GuardArgv:     i.dialect.CheckArgs(i.conn),
		GuardEnv:      i.dialect.Env(i.conn),
		GuardClassify: ClassifySchemaCheck,
	}
}

// StateFromOutcome maps the applied exec's outcome back to an ImportState.
// A skipped exec means the guard found the schema present; a changed exec
// means the import ran.
func StateFromOutcome(changed, skipped bool) ImportState {
	switch {
	case skipped:
		return StateVerifiedPresent
	case changed:
		return StateImported
	default:
		return StateVerifiedAbsent
	}
}
