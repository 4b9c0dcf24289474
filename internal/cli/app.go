package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/roach88/hashview/internal/config"
	"github.com/roach88/hashview/internal/hashstore"
	"github.com/roach88/hashview/internal/hashstore/boltstore"
	"github.com/roach88/hashview/internal/hashstore/sqlitestore"
	"github.com/roach88/hashview/internal/logging"
	"github.com/roach88/hashview/internal/selective"
	"github.com/roach88/hashview/internal/session"
)

// app is what a command runs against: the loaded config, the raw store
// and the selective view over it.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	raw    hashstore.Store
	view   *selective.Store
	out    *OutputFormatter
}

// withApp opens the store for one command and closes it afterwards.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(a *app) error) (err error) {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.raw.Close(); cerr != nil {
			err = multierr.Append(err, WrapExitError(ExitFailure, "failed to close store", cerr))
		}
	}()
	return fn(a)
}

func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(cmd.ErrOrStderr(), level)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create logger", err)
	}
	logger.Debug("Configuration loaded",
		zap.String("backend", cfg.Backend),
		zap.String("path", cfg.Path),
		zap.Strings("whitelist", cfg.Whitelist),
	)

	raw, err := openStore(cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		raw:    raw,
		view:   selective.NewStore(raw, cfg.Policy()),
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}, nil
}

// loadConfig loads the config file and environment, then applies flag
// overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Backend == "" && opts.Database == "" {
		return cfg, nil
	}

	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.Database != "" {
		cfg.Path = opts.Database
	}
	cfg.Normalize()
	if err := config.Validate(cfg); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid flags", err)
	}
	return cfg, nil
}

func openStore(cfg *config.Config, logger *zap.Logger) (hashstore.Store, error) {
	switch cfg.Backend {
	case config.BackendBolt:
		return boltstore.Open(cfg.Path, boltstore.WithLogger(logger))
	default:
		return sqlitestore.Open(cfg.Path, sqlitestore.WithLogger(logger))
	}
}

func (a *app) sessions() *session.Repository {
	return session.NewRepository(a.view,
		session.WithNamespace(a.cfg.Namespace),
		session.WithMaxInactiveInterval(a.cfg.MaxInactiveInterval),
		session.WithLogger(a.logger),
	)
}
