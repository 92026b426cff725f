package idomysql

import (
	"strings"

	"github.com/kart-io/ido-converge/pkg/catalog"
	"github.com/kart-io/ido-converge/pkg/errors"
)

const renderedHeader = `/**
 * Managed by ido-converge. Manual edits will be overwritten.
 */
`

// Render produces the feature artifact: the library include first, then the
// connection object with the set attributes in assembly order. Identical
// inputs render byte-identical output.
func Render(attrs *Attrs) (string, error) {
	pairs := attrs.Pairs()
	seen := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		if _, dup := seen[p.Key]; dup {
			return "", errors.ErrRender.WithMessagef("duplicate attribute %q", p.Key)
		}
		seen[p.Key] = struct{}{}
	}

	var b strings.Builder
	b.WriteString(renderedHeader)
	b.WriteString("\nlibrary \"db_ido_mysql\"\n\n")
	b.WriteString("object IdoMysqlConnection \"" + FeatureName + "\" {\n")
	for _, p := range pairs {
		b.WriteString("  " + p.Key + " = " + p.Value.text + "\n")
	}
	b.WriteString("}\n")
	return b.String(), nil
}

// ConfigWriter contributes the rendered artifact and the enablement symlink
// to the catalog. The artifact is always rendered, even when the feature is
// being disabled: disable means "registered but off", not "unconfigured".
type ConfigWriter struct {
	cfg CoreConfig
}

// NewConfigWriter creates a writer for the given layout.
func NewConfigWriter(cfg CoreConfig) *ConfigWriter {
	return &ConfigWriter{cfg: cfg}
}

// Resources renders the attributes and returns the artifact file and the
// toggle link. The file is sensitive (it carries the database password) and
// both resources are reload-relevant.
func (w *ConfigWriter) Resources(attrs *Attrs, enabled bool) (*catalog.File, *catalog.Link, error) {
	content, err := Render(attrs)
	if err != nil {
		return nil, nil, err
	}

	file := &catalog.File{
		Path:      w.cfg.FeatureFilePath(),
		Content:   content,
		Mode:      0o640,
		Owner:     w.cfg.Owner,
		Group:     w.cfg.Group,
		Ensure:    catalog.Present,
		Sensitive: true,
		Notify:    true,
	}

	ensure := catalog.Absent
	if enabled {
		ensure = catalog.Present
	}
	link := &catalog.Link{
		Path:   w.cfg.ToggleLinkPath(),
		Target: w.cfg.ToggleLinkTarget(),
		Ensure: ensure,
		Notify: true,
	}
	return file, link, nil
}
