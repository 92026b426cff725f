// Package apply provides a reference applier for catalogs: atomic file
// writes, symlink management, package presence through a PackageTool, and
// guarded execs. Every external side effect goes through a CommandRunner so
// the whole applier is drivable from tests without touching the host.
package apply

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/ido-converge/pkg/catalog"
	"github.com/kart-io/ido-converge/pkg/errors"
)

// Outcome records what applying one resource did.
type Outcome struct {
	ID      string
	Changed bool
	Skipped bool
}

// Result collects the outcomes of one apply pass.
type Result struct {
	Outcomes []Outcome

	// Failed is the ID of the resource whose apply halted the pass, empty
	// when the pass completed.
	Failed string
}

// Changed reports whether any resource changed.
func (r *Result) Changed() bool {
	for _, o := range r.Outcomes {
		if o.Changed {
			return true
		}
	}
	return false
}

// Outcome returns the outcome for a resource ID.
func (r *Result) Outcome(id string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.ID == id {
			return o, true
		}
	}
	return Outcome{}, false
}

// NotifyChanged reports whether any reload-relevant resource changed.
func (r *Result) NotifyChanged(c *catalog.Catalog) bool {
	for _, o := range r.Outcomes {
		if !o.Changed {
			continue
		}
		res, ok := c.Get(o.ID)
		if !ok {
			continue
		}
		switch t := res.(type) {
		case *catalog.File:
			if t.Notify {
				return true
			}
		case *catalog.Link:
			if t.Notify {
				return true
			}
		}
	}
	return false
}

// Applier applies a catalog to the local host.
type Applier struct {
	runner  CommandRunner
	pkgTool PackageTool
}

// Option configures an Applier.
type Option func(*Applier)

// WithRunner sets the command runner.
func WithRunner(r CommandRunner) Option {
	return func(a *Applier) { a.runner = r }
}

// WithPackageTool sets the package tool.
func WithPackageTool(t PackageTool) Option {
	return func(a *Applier) { a.pkgTool = t }
}

// New creates an applier. Defaults: os/exec runner, apt-get package tool.
func New(opts ...Option) *Applier {
	a := &Applier{
		runner:  ExecRunner{},
		pkgTool: AptGet{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply applies the catalog in sorted order. The first fatal error halts the
// pass; resources after the failing one are not applied.
func (a *Applier) Apply(ctx context.Context, c *catalog.Catalog) (*Result, error) {
	sorted, err := c.Sorted()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, r := range sorted {
		outcome, err := a.applyOne(ctx, r)
		if err != nil {
			result.Failed = r.ID()
			return result, fmt.Errorf("applying %s: %w", r.ID(), err)
		}
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.Changed {
			logger.Infow("resource changed", "resource", r.ID())
		}
	}
	return result, nil
}

func (a *Applier) applyOne(ctx context.Context, r catalog.Resource) (Outcome, error) {
	outcome := Outcome{ID: r.ID()}
	var err error
	switch res := r.(type) {
	case *catalog.File:
		outcome.Changed, err = a.applyFile(res)
	case *catalog.Link:
		outcome.Changed, err = a.applyLink(res)
	case *catalog.Package:
		outcome.Changed, err = a.applyPackage(ctx, res)
	case *catalog.Exec:
		outcome.Changed, outcome.Skipped, err = a.applyExec(ctx, res)
	default:
		err = errors.ErrConfiguration.WithMessagef("unknown resource kind %s", r.Kind())
	}
	return outcome, err
}

func (a *Applier) applyFile(f *catalog.File) (bool, error) {
	if f.Ensure == catalog.Absent {
		if _, err := os.Lstat(f.Path); os.IsNotExist(err) {
			return false, nil
		}
		if err := os.Remove(f.Path); err != nil {
			return false, fmt.Errorf("failed to remove file: %w", err)
		}
		return true, nil
	}

	current, err := os.ReadFile(f.Path)
	if err == nil && string(current) == f.Content {
		if info, statErr := os.Stat(f.Path); statErr == nil && info.Mode().Perm() == f.Mode.Perm() {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create parent directory: %w", err)
	}

	// Write-then-rename keeps readers from ever seeing a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(f.Content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return false, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(f.Mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return false, fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return false, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := chownByName(tmpName, f.Owner, f.Group); err != nil {
		os.Remove(tmpName)
		return false, err
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		os.Remove(tmpName)
		return false, fmt.Errorf("failed to rename temp file: %w", err)
	}
	return true, nil
}

func (a *Applier) applyLink(l *catalog.Link) (bool, error) {
	current, err := os.Readlink(l.Path)
	exists := err == nil

	if l.Ensure == catalog.Absent {
		if !exists {
			return false, nil
		}
		if err := os.Remove(l.Path); err != nil {
			return false, fmt.Errorf("failed to remove link: %w", err)
		}
		return true, nil
	}

	if exists && current == l.Target {
		return false, nil
	}
	if exists {
		if err := os.Remove(l.Path); err != nil {
			return false, fmt.Errorf("failed to replace link: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := os.Symlink(l.Target, l.Path); err != nil {
		return false, fmt.Errorf("failed to create link: %w", err)
	}
	return true, nil
}

func (a *Applier) applyPackage(ctx context.Context, p *catalog.Package) (bool, error) {
	query, err := a.runner.Run(ctx, a.pkgTool.QueryArgs(p.Name), nil)
	if err != nil {
		return false, errors.ErrPackageInstall.WithCause(err)
	}
	installed := query.ExitCode == 0

	if p.Ensure == catalog.Absent {
		if !installed {
			return false, nil
		}
		res, err := a.runner.Run(ctx, a.pkgTool.RemoveArgs(p.Name), nil)
		if err != nil {
			return false, errors.ErrPackageInstall.WithCause(err)
		}
		if res.ExitCode != 0 {
			return false, errors.ErrPackageInstall.WithMessagef("package %s: remove exit status %d: %s",
				p.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
		}
		return true, nil
	}

	if installed {
		return false, nil
	}
	res, err := a.runner.Run(ctx, a.pkgTool.InstallArgs(p.Name), nil)
	if err != nil {
		return false, errors.ErrPackageInstall.WithCause(err)
	}
	if res.ExitCode != 0 {
		return false, errors.ErrPackageInstall.WithMessagef("package %s: install exit status %d: %s",
			p.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return true, nil
}

// applyExec runs the guard first. Only when the guard classifies as
// unsatisfied does the command itself run; a classification error is fatal
// and never triggers the command.
func (a *Applier) applyExec(ctx context.Context, e *catalog.Exec) (changed, skipped bool, err error) {
	if len(e.GuardArgv) > 0 {
		guardRes, err := a.runner.Run(ctx, e.GuardArgv, e.GuardEnv)
		if err != nil {
			return false, false, errors.ErrExternalCommand.WithCause(err)
		}
		classify := e.GuardClassify
		if classify == nil {
			classify = defaultClassifier
		}
		status, err := classify(guardRes)
		if err != nil {
			return false, false, err
		}
		if status == catalog.GuardSatisfied {
			logger.Debugw("exec guard satisfied", "exec", e.Name)
			return false, true, nil
		}
	}

	res, err := a.runner.Run(ctx, e.Argv, e.Env)
	if err != nil {
		return false, false, errors.ErrExternalCommand.WithCause(err)
	}
	if res.ExitCode != 0 {
		return false, false, errors.ErrExternalCommand.WithMessagef("exec %s: exit status %d: %s",
			e.Name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return true, false, nil
}

func defaultClassifier(res catalog.RunResult) (catalog.GuardStatus, error) {
	if res.ExitCode == 0 {
		return catalog.GuardSatisfied, nil
	}
	return catalog.GuardUnsatisfied, nil
}

// chownByName resolves user and group names and chowns the path. Empty names
// leave ownership untouched, which keeps tests runnable without root.
func chownByName(path, owner, group string) error {
	uid, gid := -1, -1
	if owner != "" {
		u, err := user.Lookup(owner)
		if err != nil {
			return fmt.Errorf("failed to look up owner %s: %w", owner, err)
		}
		uid, _ = strconv.Atoi(u.Uid)
	}
	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			return fmt.Errorf("failed to look up group %s: %w", group, err)
		}
		gid, _ = strconv.Atoi(g.Gid)
	}
	if uid == -1 && gid == -1 {
		return nil
	}
	if err := os.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("failed to chown: %w", err)
	}
	return nil
}
