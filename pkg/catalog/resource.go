// Package catalog provides the declarative resource model a convergence pass
// produces: files, symlinks, packages, and guarded commands, plus the ordering
// edges between them. A catalog describes target state; applying it is the
// job of an applier (see the apply subpackage).
package catalog

import (
	"fmt"
	"os"
)

// Ensure states whether a resource should exist on the target host.
type Ensure string

const (
	Present Ensure = "present"
	Absent  Ensure = "absent"
)

// Resource is a single declarative state description.
type Resource interface {
	// ID returns the unique identifier used for ordering edges, e.g.
	// "file:/etc/icinga2/features-available/ido-mysql.conf".
	ID() string

	// Kind returns the resource kind name.
	Kind() string
}

// File declares the full content, mode, and ownership of a file.
type File struct {
	Path    string
	Content string
	Mode    os.FileMode
	Owner   string
	Group   string
	Ensure  Ensure

	// Sensitive marks files whose content must never appear in plan output
	// or logs (rendered configs carrying credentials, TLS keys).
	Sensitive bool

	// Notify marks the resource as reload-relevant: a change to it counts
	// toward the pass's reload decision.
	Notify bool
}

func (f *File) ID() string   { return "file:" + f.Path }
func (f *File) Kind() string { return "file" }

// Link declares a symlink.
type Link struct {
	Path   string
	Target string
	Ensure Ensure
	Notify bool
}

func (l *Link) ID() string   { return "link:" + l.Path }
func (l *Link) Kind() string { return "link" }

// Package declares the presence of a system package.
type Package struct {
	Name   string
	Ensure Ensure
}

func (p *Package) ID() string   { return "package:" + p.Name }
func (p *Package) Kind() string { return "package" }

// GuardStatus is the result of evaluating an Exec's guard command.
type GuardStatus int

const (
	// GuardSatisfied means the exec's effect is already in place; skip it.
	GuardSatisfied GuardStatus = iota
	// GuardUnsatisfied means the exec must run.
	GuardUnsatisfied
)

// RunResult captures one external command invocation.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// GuardClassifier decides, from a guard command's outcome, whether the exec
// is already satisfied. A non-nil error is fatal and distinct from
// "unsatisfied": the guard failing for the wrong reason (e.g. authentication)
// must never silently trigger the exec.
type GuardClassifier func(RunResult) (GuardStatus, error)

// Exec declares a run-once command with an idempotency guard. The guard runs
// first on every pass; the command only runs when the guard reports
// unsatisfied. Env carries secrets and is excluded from all output.
type Exec struct {
	Name string
	Argv []string
	Env  map[string]string

	GuardArgv     []string
	GuardEnv      map[string]string
	GuardClassify GuardClassifier
}

func (e *Exec) ID() string   { return "exec:" + e.Name }
func (e *Exec) Kind() string { return "exec" }

// Summary returns a one-line description for plan output. Sensitive content
// and command environments are never included.
func Summary(r Resource) string {
	switch res := r.(type) {
	case *File:
		if res.Ensure == Absent {
			return fmt.Sprintf("file %s (absent)", res.Path)
		}
		return fmt.Sprintf("file %s mode=%04o bytes=%d", res.Path, res.Mode, len(res.Content))
	case *Link:
		if res.Ensure == Absent {
			return fmt.Sprintf("link %s (absent)", res.Path)
		}
		return fmt.Sprintf("link %s -> %s", res.Path, res.Target)
	case *Package:
		return fmt.Sprintf("package %s (%s)", res.Name, res.Ensure)
	case *Exec:
		return fmt.Sprintf("exec %s (guarded)", res.Name)
	default:
		return r.ID()
	}
}
