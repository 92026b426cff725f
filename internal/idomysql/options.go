package idomysql

import (
	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/ido-converge/pkg/options/database"
	featureopts "github.com/kart-io/ido-converge/pkg/options/feature"
	logopts "github.com/kart-io/ido-converge/pkg/options/logger"
	pkgopts "github.com/kart-io/ido-converge/pkg/options/pkgmgr"
	schemaopts "github.com/kart-io/ido-converge/pkg/options/schema"
	"github.com/kart-io/ido-converge/pkg/options/tlsopts"
)

// Options aggregates every option group of the converger.
type Options struct {
	Log      *logopts.Options     `json:"log" mapstructure:"log"`
	Database *database.Options    `json:"database" mapstructure:"database"`
	TLS      *tlsopts.Options     `json:"tls" mapstructure:"tls"`
	Schema   *schemaopts.Options  `json:"schema" mapstructure:"schema"`
	Feature  *featureopts.Options `json:"feature" mapstructure:"feature"`
	Package  *pkgopts.Options     `json:"package" mapstructure:"package"`

	// JournalPath is the sqlite pass journal. Empty disables journaling.
	JournalPath string `json:"journal-path" mapstructure:"journal-path"`

	// Watch keeps the process running and re-converges when the managed
	// feature files drift.
	Watch bool `json:"watch" mapstructure:"watch"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Log:         logopts.NewOptions(),
		Database:    database.NewOptions(),
		TLS:         tlsopts.NewOptions(),
		Schema:      schemaopts.NewOptions(),
		Feature:     featureopts.NewOptions(),
		Package:     pkgopts.NewOptions(),
		JournalPath: "/var/lib/ido-converge/journal.db",
	}
}

// AddFlags adds all option group flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.Log.AddFlags(fs)
	o.Database.AddFlags(fs)
	o.TLS.AddFlags(fs)
	o.Schema.AddFlags(fs)
	o.Feature.AddFlags(fs)
	o.Package.AddFlags(fs)

	fs.StringVar(&o.JournalPath, "journal-path", o.JournalPath, "Path to the sqlite pass journal (empty disables)")
	fs.BoolVar(&o.Watch, "watch", o.Watch, "Keep running and re-converge on feature file drift")
}

// Complete completes all option groups.
func (o *Options) Complete() error {
	return utilerrors.NewAggregate([]error{
		o.Log.Complete(),
		o.Database.Complete(),
		o.TLS.Complete(),
		o.Schema.Complete(),
		o.Feature.Complete(),
		o.Package.Complete(),
	})
}

// Validate validates all option groups.
func (o *Options) Validate() error {
	return utilerrors.NewAggregate([]error{
		o.Log.Validate(),
		o.Database.Validate(),
		o.TLS.Validate(),
		o.Schema.Validate(),
		o.Feature.Validate(),
		o.Package.Validate(),
	})
}
