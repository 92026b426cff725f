package idomysql

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ido-converge/pkg/catalog"
	"github.com/kart-io/ido-converge/pkg/options/database"
	featureopts "github.com/kart-io/ido-converge/pkg/options/feature"
)

func testCoreConfig(root string) CoreConfig {
	return CoreConfig{
		ConfDir:    root + "/etc/icinga2",
		CacheDir:   root + "/cache",
		CertDir:    root + "/certs",
		ReloadArgv: []string{"systemctl", "reload", "icinga2"},
	}
}

func TestRenderMinimal(t *testing.T) {
	conn := database.NewOptions()
	conn.Password = "secret"
	attrs := Assemble(conn, featureopts.NewOptions(), nil)

	out, err := Render(attrs)
	require.NoError(t, err)

	want := renderedHeader + `
library "db_ido_mysql"

object IdoMysqlConnection "ido-mysql" {
  host = "localhost"
  user = "icinga"
  password = "secret"
  database = "icinga"
  table_prefix = "icinga_"
}
`
	assert.Equal(t, want, out)
}

func TestRenderOmitsUnsetAttributes(t *testing.T) {
	conn := database.NewOptions()
	attrs := Assemble(conn, featureopts.NewOptions(), nil)

	out, err := Render(attrs)
	require.NoError(t, err)

	// Port 0, empty socket, empty password, no HA block: none of these
	// render, not even as empty values.
	assert.NotContains(t, out, "port")
	assert.NotContains(t, out, "socket_path")
	assert.NotContains(t, out, "password")
	assert.NotContains(t, out, "enable_ha")
	assert.NotContains(t, out, "failover_timeout")
	assert.NotContains(t, out, "cleanup")
	assert.NotContains(t, out, "categories")
	assert.NotContains(t, out, "enable_ssl")
}

func TestRenderFullAttributes(t *testing.T) {
	conn := database.NewOptions()
	conn.Port = 3307
	conn.Password = "secret"
	feat := featureopts.NewOptions()
	feat.InstanceName = "master"
	feat.EnableHA = "false"
	feat.FailoverTimeout = 60 * time.Second
	feat.Cleanup = map[string]time.Duration{"acknowledgements_age": 72 * time.Hour}
	feat.Categories = []string{"DbCatConfig", "DbCatState"}

	out, err := Render(Assemble(conn, feat, nil))
	require.NoError(t, err)

	assert.Contains(t, out, "port = 3307")
	assert.Contains(t, out, `instance_name = "master"`)
	assert.Contains(t, out, "enable_ha = false")
	assert.Contains(t, out, "failover_timeout = 60s")
	assert.Contains(t, out, "acknowledgements_age = 259200s")
	assert.Contains(t, out, `categories = [ "DbCatConfig", "DbCatState" ]`)
}

func TestRenderDeterministic(t *testing.T) {
	conn := database.NewOptions()
	feat := featureopts.NewOptions()
	feat.Cleanup = map[string]time.Duration{
		"notifications_age":    24 * time.Hour,
		"acknowledgements_age": 72 * time.Hour,
		"downtimehistory_age":  48 * time.Hour,
	}

	first, err := Render(Assemble(conn, feat, nil))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Render(Assemble(conn, feat, nil))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRenderLibraryIncludeFirst(t *testing.T) {
	out, err := Render(Assemble(database.NewOptions(), featureopts.NewOptions(), nil))
	require.NoError(t, err)

	libIdx := strings.Index(out, `library "db_ido_mysql"`)
	objIdx := strings.Index(out, "object IdoMysqlConnection")
	require.GreaterOrEqual(t, libIdx, 0)
	require.Greater(t, objIdx, libIdx)
}

func TestConfigWriterResources(t *testing.T) {
	cfg := testCoreConfig("/tmp/ido-test")
	attrs := Assemble(database.NewOptions(), featureopts.NewOptions(), nil)

	file, link, err := NewConfigWriter(cfg).Resources(attrs, true)
	require.NoError(t, err)

	assert.Equal(t, cfg.FeatureFilePath(), file.Path)
	assert.True(t, file.Sensitive)
	assert.True(t, file.Notify)
	assert.Equal(t, catalog.Present, file.Ensure)

	assert.Equal(t, cfg.ToggleLinkPath(), link.Path)
	assert.Equal(t, "../features-available/ido-mysql.conf", link.Target)
	assert.Equal(t, catalog.Present, link.Ensure)
}

func TestConfigWriterDisabledStillRendersArtifact(t *testing.T) {
	cfg := testCoreConfig("/tmp/ido-test")
	attrs := Assemble(database.NewOptions(), featureopts.NewOptions(), nil)

	file, link, err := NewConfigWriter(cfg).Resources(attrs, false)
	require.NoError(t, err)

	assert.Equal(t, catalog.Present, file.Ensure)
	assert.Equal(t, catalog.Absent, link.Ensure)
}
