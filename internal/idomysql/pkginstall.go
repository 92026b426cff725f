package idomysql

import (
	"fmt"
	"path/filepath"

	"github.com/kart-io/ido-converge/pkg/catalog"
	pkgopts "github.com/kart-io/ido-converge/pkg/options/pkgmgr"
)

// Installer contributes the client package to the catalog. On the Debian
// family a debconf preseed answers the dbconfig-install prompt with "false"
// before the package is installed, so dbconfig never tries to manage the
// schema itself.
type Installer struct {
	cfg  CoreConfig
	opts *pkgopts.Options
}

// NewInstaller creates an installer.
func NewInstaller(cfg CoreConfig, opts *pkgopts.Options) *Installer {
	return &Installer{cfg: cfg, opts: opts}
}

// Contribute adds the package resources and their internal ordering to the
// catalog and returns the package resource, or nil when package management
// is off.
func (ins *Installer) Contribute(c *catalog.Catalog) catalog.Resource {
	if !ins.opts.Manage {
		return nil
	}

	pkg := &catalog.Package{Name: ins.opts.Package, Ensure: catalog.Present}
	c.Add(pkg)

	if ins.opts.OSFamily == pkgopts.FamilyDebian {
		preseedPath := filepath.Join(ins.cfg.CacheDir, ins.opts.Package+".preseed")
		preseed := &catalog.File{
			Path:    preseedPath,
			Content: fmt.Sprintf("%s %s/dbconfig-install boolean false\n", ins.opts.Package, ins.opts.Package),
			Mode:    0o644,
			Ensure:  catalog.Present,
		}
		// Seeding is only needed before the first install; an installed
		// package guards it off.
		seed := &catalog.Exec{
			Name:      ins.opts.Package + "-preseed",
			Argv:      []string{"sh", "-c", "debconf-set-selections < " + preseedPath},
			GuardArgv: []string{"dpkg-query", "-W", ins.opts.Package},
		}
		c.Add(preseed)
		c.Add(seed)
		c.Before(preseed, seed)
		c.Before(seed, pkg)
	}
	return pkg
}
