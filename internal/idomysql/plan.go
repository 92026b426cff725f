package idomysql

import (
	"context"
	goerrors "errors"
	"os"
	"strings"

	"github.com/kart-io/logger"
	"github.com/oklog/ulid/v2"

	"github.com/kart-io/ido-converge/pkg/catalog"
	"github.com/kart-io/ido-converge/pkg/catalog/apply"
	"github.com/kart-io/ido-converge/pkg/credstore"
	"github.com/kart-io/ido-converge/pkg/errors"
	"github.com/kart-io/ido-converge/pkg/options/database"
	featureopts "github.com/kart-io/ido-converge/pkg/options/feature"
	pkgopts "github.com/kart-io/ido-converge/pkg/options/pkgmgr"
	schemaopts "github.com/kart-io/ido-converge/pkg/options/schema"
	"github.com/kart-io/ido-converge/pkg/options/tlsopts"
)

// Planner turns the validated options into a convergence plan.
type Planner struct {
	Config  CoreConfig
	Conn    *database.Options
	TLS     *tlsopts.Options
	Schema  *schemaopts.Options
	Feature *featureopts.Options
	Package *pkgopts.Options
	Store   credstore.Store
}

// Plan is one pass's worth of target state: the catalog with its ordering
// edges, plus what the pass needs afterwards (the credential bundle to
// register and the IDs it reports on).
type Plan struct {
	RunID   string
	Catalog *catalog.Catalog
	Bundle  *credstore.Bundle
	Enabled bool

	importID string
	fileID   string
	linkID   string
}

// PassResult summarizes one executed pass.
type PassResult struct {
	RunID       string
	Changed     bool
	Notified    bool
	ImportState ImportState
	Apply       *apply.Result
}

// Plan builds the catalog. Ordering: the package installs before the schema
// import and before the feature artifact; the import completes before the
// artifact is written; the artifact exists before the toggle link points at
// it. TLS material lands before the artifact that references it.
func (p *Planner) Plan() (*Plan, error) {
	plan := &Plan{
		RunID:   ulid.Make().String(),
		Catalog: catalog.New(),
		Enabled: p.Feature.Enabled(),
	}
	c := plan.Catalog

	pkg := NewInstaller(p.Config, p.Package).Contribute(c)

	tlsRes, err := NewTLSProvisioner(p.Config).Provision(p.TLS)
	if err != nil {
		return nil, err
	}
	var overlay *Attrs
	if tlsRes != nil {
		overlay = tlsRes.Overlay
		plan.Bundle = tlsRes.Bundle
	}

	importer, err := NewImporter(p.Schema, p.Conn)
	if err != nil {
		return nil, err
	}

	attrs := Assemble(p.Conn, p.Feature, overlay)
	file, link, err := NewConfigWriter(p.Config).Resources(attrs, plan.Enabled)
	if err != nil {
		return nil, err
	}
	plan.fileID = file.ID()
	plan.linkID = link.ID()

	var importExec *catalog.Exec
	if importer != nil {
		importExec = importer.Resource()
		c.Add(importExec)
		plan.importID = importExec.ID()
	}
	if tlsRes != nil {
		for _, f := range tlsRes.Files {
			c.Add(f)
			c.Before(f, file)
		}
	}
	c.Add(file)
	c.Add(link)

	if pkg != nil {
		if importExec != nil {
			c.Before(pkg, importExec)
		}
		c.Before(pkg, file)
	}
	if importExec != nil {
		c.Before(importExec, file)
	}
	c.Before(file, link)

	// Surface ordering problems at plan time, not halfway through a pass.
	if _, err := c.Sorted(); err != nil {
		return nil, err
	}
	return plan, nil
}

// Execute applies the plan and fires the reload when it is due. The reload
// runs at most once per pass. A successful pass with TLS registers the
// credential bundle; registration failure is logged but does not fail the
// pass.
func (p *Planner) Execute(ctx context.Context, plan *Plan, applier *apply.Applier, runner apply.CommandRunner) (*PassResult, error) {
	// The base icinga2 installation is not ours to create; without it the
	// pass stops before touching anything.
	if _, err := os.Stat(p.Config.ConfDir); err != nil {
		return nil, errors.ErrPrecondition.WithMessagef("icinga2 configuration root %s not present", p.Config.ConfDir)
	}

	prev := p.observeToggle()

	result, applyErr := applier.Apply(ctx, plan.Catalog)

	pass := &PassResult{
		RunID:       plan.RunID,
		Changed:     result.Changed(),
		ImportState: p.importState(plan, result),
		Apply:       result,
	}

	if applyErr != nil {
		if result.Failed == plan.importID && !goerrors.Is(applyErr, errors.ErrSchemaCheck) {
			return pass, errors.ErrSchemaImport.WithCause(applyErr)
		}
		return pass, applyErr
	}

	next := ToggleDisabled
	if plan.Enabled {
		next = ToggleEnabled
	}
	if ShouldNotify(prev, next, result.NotifyChanged(plan.Catalog)) {
		res, err := runner.Run(ctx, p.Config.ReloadArgv, nil)
		if err != nil {
			return pass, errors.ErrExternalCommand.WithCause(err)
		}
		if res.ExitCode != 0 {
			return pass, errors.ErrExternalCommand.WithMessagef("reload: exit status %d: %s",
				res.ExitCode, strings.TrimSpace(res.Stderr))
		}
		pass.Notified = true
		logger.Infow("feature reloaded", "run_id", pass.RunID)
	}

	if plan.Bundle != nil && p.Store != nil {
		if err := p.Store.Put(*plan.Bundle); err != nil {
			logger.Warnw("credential bundle registration failed", "run_id", pass.RunID, "error", err.Error())
		}
	}

	logger.Infow("convergence pass finished",
		"run_id", pass.RunID,
		"changed", pass.Changed,
		"notified", pass.Notified,
		"import_state", pass.ImportState.String(),
	)
	return pass, nil
}

func (p *Planner) importState(plan *Plan, result *apply.Result) ImportState {
	if plan.importID == "" {
		return StateSkipped
	}
	outcome, ok := result.Outcome(plan.importID)
	if !ok {
		return StatePending
	}
	return StateFromOutcome(outcome.Changed, outcome.Skipped)
}

// observeToggle reads the enablement state before the pass mutates it.
func (p *Planner) observeToggle() ToggleState {
	if _, err := os.Lstat(p.Config.ToggleLinkPath()); err == nil {
		return ToggleEnabled
	}
	return ToggleDisabled
}
