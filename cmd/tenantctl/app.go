package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/clouddesk/tenantctl/internal/config"
	"github.com/clouddesk/tenantctl/internal/driver"
	"github.com/clouddesk/tenantctl/internal/driver/graph"
	"github.com/clouddesk/tenantctl/internal/driver/memory"
	"github.com/clouddesk/tenantctl/internal/driver/sharepoint"
	"github.com/clouddesk/tenantctl/internal/engine"
	"github.com/clouddesk/tenantctl/internal/intent"
	"github.com/clouddesk/tenantctl/internal/logger"
	"github.com/clouddesk/tenantctl/internal/report"
	"github.com/clouddesk/tenantctl/internal/tabular"
)

type runOptions struct {
	ConfigPath string
	DryRun     bool
	Verbose    bool
	// Teardown forces every row's desired state to absent.
	Teardown bool
	// Offline targets the in-memory backend instead of the tenant; used for
	// rehearsing a batch without credentials.
	Offline bool

	Out io.Writer
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newRunLogger(verbose bool, styled bool) (*logger.Logger, error) {
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Options{Level: level, HumanReadable: true, NoColor: !styled})
}

// buildDrivers assembles the driver set for a run. Without usable
// credentials the run targets the in-memory backend.
func buildDrivers(cfg *config.Config, offline bool, log *logger.Logger) (*driver.Set, error) {
	set := driver.NewSet()

	if offline || !cfg.Auth.Configured() {
		if !offline {
			log.Warn("auth not configured; targeting the in-memory backend")
		}
		if err := memory.NewStore().RegisterAll(set); err != nil {
			return nil, err
		}
		return set, nil
	}

	secret := os.Getenv(cfg.Auth.SecretEnv)
	if secret == "" {
		return nil, fmt.Errorf("environment variable %s is empty", cfg.Auth.SecretEnv)
	}

	cred, err := graph.NewCredential(graph.Credentials{
		TenantID:     cfg.Auth.TenantID,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: secret,
	})
	if err != nil {
		return nil, err
	}

	client, err := graph.NewClient(cred)
	if err != nil {
		return nil, err
	}
	if err := graph.Register(set, client); err != nil {
		return nil, err
	}

	if cfg.Auth.SharePointHost != "" {
		if err := set.Register(intent.TypeSite, sharepoint.NewSiteDriver(cred, cfg.Auth.SharePointHost)); err != nil {
			return nil, err
		}
	}

	return set, nil
}

func loadIntents(cfg *config.Config, log *logger.Logger) ([]intent.Intent, error) {
	records, err := tabular.Load(cfg.Input.File, cfg.Input.Sheet)
	if err != nil {
		return nil, err
	}

	intents, issues := intent.Map(records, intent.Context{
		Domain:       cfg.Context.Domain,
		DefaultOwner: cfg.Context.DefaultOwner,
	})
	for _, issue := range issues {
		log.Warn(issue.String())
	}

	return intents, nil
}

func runReconcile(opts runOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	cfg, err := config.ParseConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	styled := isTerminal(opts.Out)
	log, err := newRunLogger(opts.Verbose || cfg.Settings.Verbose, styled)
	if err != nil {
		return err
	}

	intents, err := loadIntents(cfg, log)
	if err != nil {
		return err
	}
	if opts.Teardown {
		for i := range intents {
			intents[i].DesiredState = intent.StateAbsent
		}
	}

	drivers, err := buildDrivers(cfg, opts.Offline, log)
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.Options{
		Drivers: drivers,
		Poll: engine.PollPolicy{
			MaxAttempts: cfg.Settings.EffectivePollMaxAttempts(),
			Delay:       cfg.Settings.PollDelayDuration(),
		},
		DryRun:   opts.DryRun,
		Parallel: cfg.Settings.Parallel,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(map[string]any{"batch": cfg.Input.File, "intents": len(intents)}).Info("starting reconciliation")

	result, err := eng.Reconcile(ctx, intents)
	if err != nil {
		return err
	}

	report.Render(opts.Out, result, report.RenderOptions{Styled: styled})

	if failed := result.FailedCount(); failed > 0 {
		return fmt.Errorf("%d of %d resources failed", failed, len(result.Outcomes))
	}
	return nil
}
