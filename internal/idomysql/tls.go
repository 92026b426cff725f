package idomysql

import (
	"os"
	"path/filepath"

	"github.com/kart-io/ido-converge/pkg/catalog"
	"github.com/kart-io/ido-converge/pkg/credstore"
	"github.com/kart-io/ido-converge/pkg/errors"
	"github.com/kart-io/ido-converge/pkg/options/tlsopts"
)

// TLSResult is a resolved TLS provisioning: the attribute overlay for the
// rendered config, the file resources carrying inline material, and the
// bundle registered with the credential store.
type TLSResult struct {
	Overlay *Attrs
	Files   []*catalog.File
	Bundle  *credstore.Bundle
}

// TLSProvisioner resolves the configured TLS material into concrete
// filesystem paths. Resolution is all-or-nothing: every error is raised
// before any file resource is handed to the catalog, so a misconfigured
// bundle never leaves partial credentials behind.
type TLSProvisioner struct {
	cfg CoreConfig
}

// NewTLSProvisioner creates a provisioner for the given layout.
func NewTLSProvisioner(cfg CoreConfig) *TLSProvisioner {
	return &TLSProvisioner{cfg: cfg}
}

// Provision resolves the TLS options. Returns nil when TLS is disabled.
func (p *TLSProvisioner) Provision(opts *tlsopts.Options) (*TLSResult, error) {
	if !opts.Enabled {
		return nil, nil
	}

	res := &TLSResult{Overlay: NewAttrs()}

	keyPath, err := p.resolveSlot("key", opts.Key, opts.KeyPEM, FeatureName+".key", 0o600, true, &res.Files)
	if err != nil {
		return nil, err
	}
	certPath, err := p.resolveSlot("cert", opts.Cert, opts.CertPEM, FeatureName+".crt", 0o644, false, &res.Files)
	if err != nil {
		return nil, err
	}
	caPath, err := p.resolveSlot("cacert", opts.CACert, opts.CACertPEM, FeatureName+"_ca.crt", 0o644, false, &res.Files)
	if err != nil {
		return nil, err
	}

	// A client certificate is unusable without its key and vice versa.
	if (keyPath == "") != (certPath == "") {
		return nil, errors.ErrTLSMaterial.WithMessage("tls key and cert must be given together")
	}

	res.Overlay.Set("enable_ssl", BoolVal(true))
	res.Overlay.Set("ssl_key", stringOrUnset(keyPath))
	res.Overlay.Set("ssl_cert", stringOrUnset(certPath))
	res.Overlay.Set("ssl_ca", stringOrUnset(caPath))
	res.Overlay.Set("ssl_capath", stringOrUnset(opts.CAPath))
	res.Overlay.Set("ssl_cipher", stringOrUnset(opts.Cipher))

	res.Bundle = &credstore.Bundle{
		Identity: FeatureName,
		KeyPath:  keyPath,
		CertPath: certPath,
		CAPath:   caPath,
	}
	return res, nil
}

// resolveSlot turns one credential slot into a concrete path. A path wins
// as-is; inline material becomes a managed file under the credential
// directory. Both at once is a configuration error; both empty leaves the
// slot unset.
func (p *TLSProvisioner) resolveSlot(slot, path, pem, filename string, mode os.FileMode, sensitive bool, files *[]*catalog.File) (string, error) {
	switch {
	case path != "" && pem != "":
		return "", errors.ErrTLSMaterial.WithMessagef("tls %s: both path and inline material given", slot)
	case path != "":
		return path, nil
	case pem != "":
		managed := filepath.Join(p.cfg.CertDir, filename)
		*files = append(*files, &catalog.File{
			Path:      managed,
			Content:   pem,
			Mode:      mode,
			Owner:     p.cfg.Owner,
			Group:     p.cfg.Group,
			Ensure:    catalog.Present,
			Sensitive: sensitive,
			Notify:    true,
		})
		return managed, nil
	default:
		return "", nil
	}
}
