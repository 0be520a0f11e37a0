package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/contractsig/config"
	"github.com/jonwraymond/contractsig/internal/app"
	"github.com/jonwraymond/contractsig/observe"
)

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadConfig loads the configuration and routes service logs to stderr.
// One-shot commands only log warnings unless --verbose is set.
func loadConfig(opts *RootOptions, cmd *cobra.Command, f *OutputFormatter, oneShot bool) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, f.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	cfg.Observe.Logging.Output = cmd.ErrOrStderr()
	switch {
	case opts.Verbose:
		cfg.Observe.Logging.Level = observe.LevelDebug.String()
	case oneShot:
		cfg.Observe.Logging.Level = observe.LevelWarn.String()
	}
	return cfg, nil
}

// withApp builds the service for a one-shot command, runs fn and closes it.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, a *app.App, f *OutputFormatter) error) error {
	f := newFormatter(opts, cmd)
	cfg, err := loadConfig(opts, cmd, f, true)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	defer func() { _ = a.Close(context.WithoutCancel(ctx)) }()

	f.VerboseLog("remote=%s mirror=%s cache_ttl=%s", cfg.Remote.Driver, cfg.Mirror.Driver, cfg.Cache.TTL)
	return fn(ctx, a, f)
}
