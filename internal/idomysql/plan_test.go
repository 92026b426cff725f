package idomysql

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

// scriptedRunner records every external command and answers from a prefix
// table. Unmatched commands succeed.
type scriptedRunner struct {
	responses map[string]catalog.RunResult
	calls     []string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{responses: make(map[string]catalog.RunResult)}
}

func (r *scriptedRunner) respond(prefix string, res catalog.RunResult) {
	r.responses[prefix] = res
}

func (r *scriptedRunner) Run(_ context.Context, argv []string, _ map[string]string) (catalog.RunResult, error) {
	joined := strings.Join(argv, " ")
	r.calls = append(r.calls, joined)
	for prefix, res := range r.responses {
		if strings.HasPrefix(joined, prefix) {
			return res, nil
		}
	}
	return catalog.RunResult{ExitCode: 0}, nil
}

func (r *scriptedRunner) callsMatching(substr string) []string {
	var out []string
	for _, c := range r.calls {
		if strings.Contains(c, substr) {
			out = append(out, c)
		}
	}
	return out
}

func testPlanner(t *testing.T, mutate func(*Planner)) (*Planner, *scriptedRunner, *apply.Applier) {
	t.Helper()
	cfg := testCoreConfig(t.TempDir())
	require.NoError(t, os.MkdirAll(cfg.ConfDir, 0o755))

	conn := database.NewOptions()
	conn.Password = "s3cr3t-hunter2"

	pkg := pkgopts.NewOptions()
	pkg.OSFamily = pkgopts.FamilyDebian

	p := &Planner{
		Config:  cfg,
		Conn:    conn,
		TLS:     tlsopts.NewOptions(),
		Schema:  schemaopts.NewOptions(),
		Feature: featureopts.NewOptions(),
		Package: pkg,
		Store:   credstore.NewMemoryStore(),
	}
	if mutate != nil {
		mutate(p)
	}

	runner := newScriptedRunner()
	applier := apply.New(apply.WithRunner(runner))
	return p, runner, applier
}

func TestPassFreshEnableWithImport(t *testing.T) {
	p, runner, applier := testPlanner(t, func(p *Planner) {
		p.Schema.Import = true
	})
	// Package absent, schema absent.
	runner.respond("dpkg-query", catalog.RunResult{ExitCode: 1})
	runner.respond("mysql -h localhost -P 3306 -u icinga -Ns", catalog.RunResult{ExitCode: 1, Stderr: "ERROR 1146 (42S02): Table 'icinga.icinga_dbversion' doesn't exist"})

	plan, err := p.Plan()
	require.NoError(t, err)

	pass, err := p.Execute(context.Background(), plan, applier, runner)
	require.NoError(t, err)

	assert.True(t, pass.Changed)
	assert.True(t, pass.Notified)
	assert.Equal(t, StateImported, pass.ImportState)

	// The whole flow ran in order: preseed, install, check, import, reload.
	assert.Len(t, runner.callsMatching("debconf-set-selections"), 1)
	assert.Len(t, runner.callsMatching("apt-get install"), 1)
	assert.Len(t, runner.callsMatching("SOURCE"), 1)
	assert.Len(t, runner.callsMatching("systemctl reload icinga2"), 1)

	// Artifact and toggle link are in place.
	content, err := os.ReadFile(p.Config.FeatureFilePath())
	require.NoError(t, err)
	assert.Contains(t, string(content), `object IdoMysqlConnection "ido-mysql"`)

	target, err := os.Readlink(p.Config.ToggleLinkPath())
	require.NoError(t, err)
	assert.Equal(t, "../features-available/ido-mysql.conf", target)
}

func TestPassSchemaPresentSkipsImport(t *testing.T) {
	p, runner, applier := testPlanner(t, func(p *Planner) {
		p.Schema.Import = true
		p.Package.Manage = false
	})
	runner.respond("mysql -h localhost", catalog.RunResult{ExitCode: 0, Stdout: "1.14.3"})

	plan, err := p.Plan()
	require.NoError(t, err)
	pass, err := p.Execute(context.Background(), plan, applier, runner)
	require.NoError(t, err)

	assert.Equal(t, StateVerifiedPresent, pass.ImportState)
	assert.Empty(t, runner.callsMatching("SOURCE"))
}

func TestPassImportSkippedByPolicy(t *testing.T) {
	p, runner, applier := testPlanner(t, func(p *Planner) {
		p.Package.Manage = false
	})

	plan, err := p.Plan()
	require.NoError(t, err)
	pass, err := p.Execute(context.Background(), plan, applier, runner)
	require.NoError(t, err)

	assert.Equal(t, StateSkipped, pass.ImportState)
	assert.Empty(t, runner.callsMatching("mysql"))
}

func TestPassMissingConfRootIsFatal(t *testing.T) {
	p, runner, applier := testPlanner(t, func(p *Planner) {
		p.Package.Manage = false
	})
	require.NoError(t, os.RemoveAll(p.Config.ConfDir))

	plan, err := p.Plan()
	require.NoError(t, err)
	_, err = p.Execute(context.Background(), plan, applier, runner)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPrecondition)
	assert.Empty(t, runner.calls)
}

func TestPassAccessDeniedIsFatal(t *testing.T) {
	p, runner, applier := testPlanner(t, func(p *Planner) {
		p.Schema.Import = true
		p.Package.Manage = false
	})
	runner.respond("mysql -h localhost", catalog.RunResult{ExitCode: 1, Stderr: "ERROR 1045 (28000): Access denied for user 'icinga'@'localhost'"})

	plan, err := p.Plan()
	require.NoError(t, err)
	_, err = p.Execute(context.Background(), plan, applier, runner)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSchemaCheck)

	// A failed pre-check never triggers the import, and the halt keeps the
	// artifact from being written.
	assert.Empty(t, runner.callsMatching("SOURCE"))
	_, statErr := os.Stat(p.Config.FeatureFilePath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestPassFailedImportIsFatal(t *testing.T) {
	p, runner, applier := testPlanner(t, func(p *Planner) {
		p.Schema.Import = true
		p.Package.Manage = false
	})
	runner.respond("mysql -h localhost -P 3306 -u icinga -Ns", catalog.RunResult{ExitCode: 1, Stderr: "ERROR 1049 (42000): Unknown database 'icinga'"})
	runner.respond("mysql -h localhost -P 3306 -u icinga -e", catalog.RunResult{ExitCode: 1, Stderr: "ERROR 1064 (42000): syntax error"})

	plan, err := p.Plan()
	require.NoError(t, err)
	_, err = p.Execute(context.Background(), plan, applier, runner)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSchemaImport)
}

func TestPassDisableRemovesLinkWithoutReload(t *testing.T) {
	p, runner, applier := testPlanner(t, func(p *Planner) {
		p.Package.Manage = false
		p.Feature.Ensure = featureopts.EnsureAbsent
	})
	// Feature was enabled before this pass.
	require.NoError(t, os.MkdirAll(p.Config.FeaturesEnabledDir(), 0o755))
	require.NoError(t, os.Symlink(p.Config.ToggleLinkTarget(), p.Config.ToggleLinkPath()))

	plan, err := p.Plan()
	require.NoError(t, err)
	pass, err := p.Execute(context.Background(), plan, applier, runner)
	require.NoError(t, err)

	assert.False(t, pass.Notified)
	assert.Empty(t, runner.callsMatching("systemctl"))

	// The artifact stays rendered; only the toggle goes away.
	_, err = os.Stat(p.Config.FeatureFilePath())
	assert.NoError(t, err)
	_, err = os.Lstat(p.Config.ToggleLinkPath())
	assert.True(t, os.IsNotExist(err))
}

func TestPassIdempotentSecondRun(t *testing.T) {
	p, runner, applier := testPlanner(t, func(p *Planner) {
		p.Package.Manage = false
	})

	plan, err := p.Plan()
	require.NoError(t, err)
	first, err := p.Execute(context.Background(), plan, applier, runner)
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.True(t, first.Notified)

	plan, err = p.Plan()
	require.NoError(t, err)
	second, err := p.Execute(context.Background(), plan, applier, runner)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.False(t, second.Notified)
	assert.Len(t, runner.callsMatching("systemctl reload"), 1)
}

func TestPassRegistersCredentialBundle(t *testing.T) {
	store := credstore.NewMemoryStore()
	p, runner, applier := testPlanner(t, func(p *Planner) {
		p.Package.Manage = false
		p.Store = store
		p.TLS.Enabled = true
		p.TLS.Key = "/etc/ssl/ido.key"
		p.TLS.Cert = "/etc/ssl/ido.crt"
	})

	plan, err := p.Plan()
	require.NoError(t, err)
	_, err = p.Execute(context.Background(), plan, applier, runner)
	require.NoError(t, err)

	bundle, ok, err := store.Get(FeatureName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/etc/ssl/ido.key", bundle.KeyPath)

	content, err := os.ReadFile(p.Config.FeatureFilePath())
	require.NoError(t, err)
	assert.Contains(t, string(content), "enable_ssl = true")
	assert.Contains(t, string(content), `ssl_key = "/etc/ssl/ido.key"`)
}

func TestPassSecretNeverInCommandsOrPlan(t *testing.T) {
	const password = "s3cr3t-hunter2"
	p, runner, applier := testPlanner(t, func(p *Planner) {
		p.Schema.Import = true
	})
	runner.respond("dpkg-query", catalog.RunResult{ExitCode: 1})
	runner.respond("mysql -h localhost -P 3306 -u icinga -Ns", catalog.RunResult{ExitCode: 1, Stderr: "ERROR 1146: Table 'icinga.icinga_dbversion' doesn't exist"})

	plan, err := p.Plan()
	require.NoError(t, err)

	planJSON, err := plan.Catalog.PlanJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(planJSON), password)

	planText, err := plan.Catalog.PlanText()
	require.NoError(t, err)
	assert.NotContains(t, planText, password)

	_, err = p.Execute(context.Background(), plan, applier, runner)
	require.NoError(t, err)
	for _, call := range runner.calls {
		assert.NotContains(t, call, password)
	}
}

func TestPlanOrderingEdges(t *testing.T) {
	p, _, _ := testPlanner(t, func(p *Planner) {
		p.Schema.Import = true
	})
	plan, err := p.Plan()
	require.NoError(t, err)

	sorted, err := plan.Catalog.Sorted()
	require.NoError(t, err)

	pos := make(map[string]int, len(sorted))
	for i, r := range sorted {
		pos[r.ID()] = i
	}
	pkgID := "package:icinga2-ido-mysql"
	fileID := "file:" + p.Config.FeatureFilePath()
	linkID := "link:" + p.Config.ToggleLinkPath()
	importID := "exec:" + SchemaExecName

	assert.Less(t, pos[pkgID], pos[importID])
	assert.Less(t, pos[pkgID], pos[fileID])
	assert.Less(t, pos[importID], pos[fileID])
	assert.Less(t, pos[fileID], pos[linkID])
}

func TestPlanRunIDsUnique(t *testing.T) {
	p, _, _ := testPlanner(t, nil)
	a, err := p.Plan()
	require.NoError(t, err)
	b, err := p.Plan()
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Len(t, a.RunID, 26)
}

func TestPlanImportPathsAreFiles(t *testing.T) {
	p, _, _ := testPlanner(t, func(p *Planner) {
		p.Schema.Import = true
	})
	plan, err := p.Plan()
	require.NoError(t, err)

	res, ok := plan.Catalog.Get("exec:" + SchemaExecName)
	require.True(t, ok)
	exec := res.(*catalog.Exec)
	assert.Contains(t, exec.Argv, "SOURCE /usr/share/icinga2-ido-mysql/schema/mysql.sql")
}
