package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mj1618/a11y-chain/internal/bus"
	"github.com/mj1618/a11y-chain/internal/config"
	"github.com/mj1618/a11y-chain/internal/interceptor"
	"github.com/mj1618/a11y-chain/internal/logging"
	"github.com/mj1618/a11y-chain/internal/observer"
	"github.com/mj1618/a11y-chain/internal/platform"
	"github.com/mj1618/a11y-chain/internal/store"
)

// loadConfig loads the --config file and applies --log-level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := rootCmd.PersistentFlags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
		if _, err := logging.ParseLevel(level); err != nil {
			return nil, err
		}
		cfg.Logging.Level = level
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the default.
func setupLogging(cfg *config.Config) (*logging.Logger, error) {
	lc, err := cfg.LogConfig()
	if err != nil {
		return nil, err
	}
	l, err := logging.New(lc)
	if err != nil {
		return nil, err
	}
	logging.SetDefault(l)
	return l, nil
}

// runtimeOptions selects what newRuntime wires up.
type runtimeOptions struct {
	Live     bool   // open the OS input backend instead of recording
	Features string // overrides the configured features when set
	Journal  string // overrides observer.journal_path when set
	DBus     bool   // emit events on the session bus in addition to the config
}

// runtime bundles the pieces long-running commands share.
type runtime struct {
	cfg       *config.Config
	log       *logging.Logger
	provider  *platform.Provider
	recording *platform.Recording
	hub       *observer.Hub
	journal   *store.Journal
	bus       *bus.Emitter
	ic        *interceptor.Interceptor
}

func newRuntime(cfg *config.Config, opts runtimeOptions) (rt *runtime, err error) {
	rt = &runtime{cfg: cfg}
	defer func() {
		if err != nil {
			rt.Close()
			rt = nil
		}
	}()

	if rt.log, err = setupLogging(cfg); err != nil {
		return rt, err
	}
	log := rt.log.Logger

	if opts.Features != "" {
		mask, err := interceptor.ParseFeatures(opts.Features)
		if err != nil {
			return rt, err
		}
		cfg.SetFeatureMask(mask)
	}

	if opts.Live {
		rt.provider, err = platform.NewProvider(platform.Options{Screen: cfg.Screen()})
		if err != nil {
			return rt, err
		}
	} else {
		rt.provider = platform.NewRecordingProvider()
		rt.recording, _ = rt.provider.Injector.(*platform.Recording)
	}
	log.Debug("platform ready", "provider", rt.provider.Name)

	rt.hub = observer.NewHub(cfg.Observer.Buffer, cfg.Observer.Recent, log)

	journalPath := cfg.Observer.JournalPath
	if opts.Journal != "" {
		journalPath = opts.Journal
	}
	if journalPath != "" {
		if rt.journal, err = store.Open(journalPath, log); err != nil {
			return rt, err
		}
		rt.hub.Subscribe(rt.journal)
	}

	if cfg.Observer.DBus || opts.DBus {
		if rt.bus, err = bus.ConnectSession(log); err != nil {
			return rt, err
		}
		rt.hub.Subscribe(rt.bus)
	}

	rt.ic, err = interceptor.New(rt.provider.Injector, rt.hub, cfg.Options(), log)
	if err != nil {
		return rt, err
	}
	if _, err = rt.ic.Configure(cfg.FeatureMask(), cfg.Options()); err != nil {
		return rt, err
	}
	return rt, nil
}

// Close tears everything down in dependency order: input first, then the
// observers once the hub has drained.
func (rt *runtime) Close() error {
	var errs []error
	if rt.ic != nil {
		errs = append(errs, rt.ic.Close())
	} else if rt.provider != nil {
		errs = append(errs, rt.provider.Injector.Close())
	}
	if rt.hub != nil {
		errs = append(errs, rt.hub.Close())
	}
	if rt.journal != nil {
		errs = append(errs, rt.journal.Close())
	}
	if rt.bus != nil {
		errs = append(errs, rt.bus.Close())
	}
	if rt.log != nil {
		errs = append(errs, rt.log.Close())
	}
	return errors.Join(errs...)
}

// logger returns the runtime's logger or the default.
func (rt *runtime) logger() *slog.Logger {
	if rt.log != nil {
		return rt.log.Logger
	}
	return slog.Default()
}
