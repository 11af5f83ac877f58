package cmd

import (
	"fmt"
	"io"

	"github.com/Digital-Shane/metahub/internal/config"
	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider/bootstrap"
	"github.com/Digital-Shane/metahub/internal/registry"
	"github.com/Digital-Shane/metahub/internal/theme"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// app bundles what a subcommand needs: configuration, a logger, a registry
// with the enabled providers loaded, and output styling.
type app struct {
	cfg      *config.Config
	logger   log.Logger
	registry *registry.Registry
	theme    theme.Theme
	out      io.Writer
	errOut   io.Writer
}

func (o *rootOptions) newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := o.newLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	r, err := bootstrap.NewRegistry(cfg, logger, bootstrap.Options{})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: r,
		theme:    theme.Default(),
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
	}, nil
}

// newLogger returns a no-op logger unless file or stderr logging was
// requested.
func (o *rootOptions) newLogger(cfg log.Config) (log.Logger, error) {
	switch {
	case o.logFile != "":
		path := o.logFile
		if path == "default" {
			var err error
			if path, err = log.DefaultLogPath(); err != nil {
				return nil, err
			}
		}
		cfg.OutputPaths = []string{path}
	case o.verbose:
		cfg.OutputPaths = []string{"stderr"}
	default:
		return log.Nop(), nil
	}
	if o.logLevel != "" {
		cfg.Level = o.logLevel
	}
	return log.NewZap(cfg)
}

func (a *app) close() {
	a.registry.Shutdown()
	if z, ok := a.logger.(*log.ZapLogger); ok {
		_ = z.Sync()
	}
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) header(text string) {
	fmt.Fprintln(a.out, a.theme.HeaderStyle().Render(text))
}

func (a *app) table(headers []string, rows [][]string) {
	styled := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = a.theme.ColumnStyle().Render(h)
	}
	t := table.New().
		Border(a.theme.Border()).
		BorderStyle(a.theme.BorderStyle()).
		Headers(styled...).
		Rows(rows...)
	fmt.Fprintln(a.out, t.String())
}
