package idomysql

import "path/filepath"

// FeatureName is the icinga2 feature this tool converges.
const FeatureName = "ido-mysql"

// CoreConfig names every filesystem location the convergence touches. All
// paths are explicit so tests can point the whole run at a temp directory.
type CoreConfig struct {
	// ConfDir is the icinga2 configuration root.
	ConfDir string
	// CacheDir holds preseed files and other convergence scratch state.
	CacheDir string
	// CertDir is where inline TLS material is written out.
	CertDir string
	// Owner and Group are applied to files the convergence writes. Empty
	// values skip ownership changes, which rootless test runs rely on.
	Owner string
	Group string
	// ReloadArgv is the command fired when the feature needs a reload.
	ReloadArgv []string
}

// DefaultCoreConfig returns the production layout.
func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		ConfDir:    "/etc/icinga2",
		CacheDir:   "/var/cache/ido-converge",
		CertDir:    "/var/lib/icinga2/certs/ido-mysql",
		Owner:      "icinga",
		Group:      "icinga",
		ReloadArgv: []string{"systemctl", "reload", "icinga2"},
	}
}

// FeaturesAvailableDir is where the feature artifact is rendered.
func (c CoreConfig) FeaturesAvailableDir() string {
	return filepath.Join(c.ConfDir, "features-available")
}

// FeaturesEnabledDir holds the enablement symlinks.
func (c CoreConfig) FeaturesEnabledDir() string {
	return filepath.Join(c.ConfDir, "features-enabled")
}

// FeatureFilePath is the rendered artifact location.
func (c CoreConfig) FeatureFilePath() string {
	return filepath.Join(c.FeaturesAvailableDir(), FeatureName+".conf")
}

// ToggleLinkPath is the enablement symlink location.
func (c CoreConfig) ToggleLinkPath() string {
	return filepath.Join(c.FeaturesEnabledDir(), FeatureName+".conf")
}

// ToggleLinkTarget is the relative symlink target, matching what
// icinga2's own enable-feature command creates.
func (c CoreConfig) ToggleLinkTarget() string {
	return filepath.Join("..", "features-available", FeatureName+".conf")
}
