package idomysql

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"
	"github.com/spf13/cobra"

	"github.com/kart-io/ido-converge/internal/idomysql/journal"
	"github.com/kart-io/ido-converge/pkg/app"
	"github.com/kart-io/ido-converge/pkg/catalog/apply"
	"github.com/kart-io/ido-converge/pkg/component/mysql"
	"github.com/kart-io/ido-converge/pkg/credstore"
	pkgopts "github.com/kart-io/ido-converge/pkg/options/pkgmgr"
)

// NewApp creates the ido-converge application.
func NewApp() *app.App {
	opts := NewOptions()
	a := app.NewApp(
		app.WithName("ido-converge"),
		app.WithShortDescription("Converge the icinga2 ido-mysql feature"),
		app.WithDescription(`ido-converge brings a host's icinga2 ido-mysql feature to its configured
state: client package installed, IDO schema imported once, feature config
rendered, and the feature toggled on or off. Passes are idempotent; an
unchanged host produces no writes and no reload.`),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return run(opts)
		}),
	)

	a.Command().AddCommand(
		newPlanCommand(opts),
		newVerifyCommand(opts),
		newHistoryCommand(opts),
	)
	return a
}

func newPlanner(opts *Options) *Planner {
	return &Planner{
		Config:  DefaultCoreConfig(),
		Conn:    opts.Database,
		TLS:     opts.TLS,
		Schema:  opts.Schema,
		Feature: opts.Feature,
		Package: opts.Package,
		Store:   credstore.NewKeyringStore(),
	}
}

func newApplier(opts *Options) *apply.Applier {
	var tool apply.PackageTool = apply.AptGet{}
	if opts.Package.OSFamily == pkgopts.FamilyRedHat {
		tool = apply.Yum{}
	}
	return apply.New(apply.WithPackageTool(tool))
}

func run(opts *Options) error {
	if err := opts.Log.Init(); err != nil {
		return err
	}

	var store *journal.Store
	if opts.JournalPath != "" {
		var err error
		store, err = journal.Open(opts.JournalPath)
		if err != nil {
			return err
		}
	}

	planner := newPlanner(opts)
	applier := newApplier(opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := converge(ctx, planner, applier, store); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}
	return watch(ctx, planner, applier, store)
}

// converge runs one pass and journals the outcome.
func converge(ctx context.Context, planner *Planner, applier *apply.Applier, store *journal.Store) error {
	started := time.Now()

	plan, err := planner.Plan()
	if err != nil {
		return err
	}

	pass, err := planner.Execute(ctx, plan, applier, apply.ExecRunner{})

	if store != nil {
		rec := &journal.Record{
			RunID:       plan.RunID,
			StartedAt:   started,
			FinishedAt:  time.Now(),
			ImportState: StateSkipped.String(),
		}
		if pass != nil {
			rec.Changed = pass.Changed
			rec.Notified = pass.Notified
			rec.ImportState = pass.ImportState.String()
		}
		if err != nil {
			rec.Error = err.Error()
		}
		if jerr := store.Append(rec); jerr != nil {
			logger.Warnw("journal write failed", "run_id", plan.RunID, "error", jerr.Error())
		}
	}
	return err
}

// watch re-converges whenever the managed feature files drift. Events are
// coalesced so an editor's write burst triggers a single pass.
func watch(ctx context.Context, planner *Planner, applier *apply.Applier, store *journal.Store) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range []string{
		planner.Config.FeaturesAvailableDir(),
		planner.Config.FeaturesEnabledDir(),
	} {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	logger.Infow("watching for feature drift",
		"available", planner.Config.FeaturesAvailableDir(),
		"enabled", planner.Config.FeaturesEnabledDir(),
	)

	var debounce *time.Timer
	trigger := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debugw("feature file event", "path", event.Name, "op", event.Op.String())
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("watch error", "error", err.Error())
		case <-trigger:
			if err := converge(ctx, planner, applier, store); err != nil {
				logger.Errorw("re-convergence failed", "error", err.Error())
			}
		}
	}
}

// newPlanCommand prints the catalog a pass would apply, without applying it.
func newPlanCommand(opts *Options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the convergence plan without applying it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.Complete(); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			plan, err := newPlanner(opts).Plan()
			if err != nil {
				return err
			}
			if output == "json" {
				data, err := plan.Catalog.PlanJSON()
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}
			text, err := plan.Catalog.PlanText()
			if err != nil {
				return err
			}
			cmd.Print(text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text|json)")
	opts.AddFlags(cmd.Flags())
	return cmd
}

// newVerifyCommand checks schema presence over the wire, without the CLI
// client the converger itself uses.
func newVerifyCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify IDO schema presence over a direct database connection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.Complete(); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			client, err := mysql.NewWithContext(cmd.Context(), opts.Database, opts.TLS)
			if err != nil {
				return err
			}
			defer client.Close()

			present, err := client.SchemaPresent(cmd.Context())
			if err != nil {
				return err
			}
			if present {
				cmd.Println("schema: present")
			} else {
				cmd.Println("schema: absent")
			}
			return nil
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// newHistoryCommand prints the most recent journal records.
func newHistoryCommand(opts *Options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent convergence passes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.JournalPath == "" {
				return fmt.Errorf("journaling is disabled")
			}
			store, err := journal.Open(opts.JournalPath)
			if err != nil {
				return err
			}
			records, err := store.Recent(limit)
			if err != nil {
				return err
			}
			for _, rec := range records {
				status := "ok"
				if rec.Error != "" {
					status = "failed: " + rec.Error
				}
				cmd.Printf("%s  %s  changed=%-5t notified=%-5t import=%-16s %s\n",
					rec.RunID, rec.StartedAt.Format(time.RFC3339), rec.Changed, rec.Notified, rec.ImportState, status)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of passes to show")
	cmd.Flags().StringVar(&opts.JournalPath, "journal-path", opts.JournalPath, "Path to the sqlite pass journal")
	return cmd
}
