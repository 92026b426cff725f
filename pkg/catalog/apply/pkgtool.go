package apply

// PackageTool builds the query and install command lines for a platform's
// package manager. The applier runs the query first; exit 0 means the
// package is already present.
type PackageTool interface {
	QueryArgs(name string) []string
	InstallArgs(name string) []string
	RemoveArgs(name string) []string
}

// AptGet is the Debian-family package tool.
type AptGet struct{}

func (AptGet) QueryArgs(name string) []string { return []string{"dpkg-query", "-W", name} }
func (AptGet) InstallArgs(name string) []string {
	return []string{"apt-get", "install", "-y", "--no-install-recommends", name}
}
func (AptGet) RemoveArgs(name string) []string { return []string{"apt-get", "remove", "-y", name} }

// Yum is the RedHat-family package tool.
type Yum struct{}

func (Yum) QueryArgs(name string) []string   { return []string{"rpm", "-q", name} }
func (Yum) InstallArgs(name string) []string { return []string{"yum", "install", "-y", name} }
func (Yum) RemoveArgs(name string) []string  { return []string{"yum", "remove", "-y", name} }
