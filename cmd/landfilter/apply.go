package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"landfilter/internal/config"
	"landfilter/internal/dom/htmldoc"
	"landfilter/internal/filter"
	"landfilter/internal/floor"
	"landfilter/internal/logging"
	"landfilter/internal/metrics"
	"landfilter/internal/service"
	"landfilter/internal/ui"
)

type applyOptions struct {
	output string
	enable []string
	save   bool
}

func newApplyCmd() *cobra.Command {
	var opts applyOptions
	cmd := &cobra.Command{
		Use:   "apply <page.html>",
		Short: "Filter a saved listing page offline",
		Long: `Apply the floor filters to a saved listing page and write the result.
Without --enable the saved filter state is used. With --enable the state
store is only opened when --save is given.

Examples:
  # Hide basement and high-floor listings
  landfilter apply page.html -o filtered.html --enable hide-basement --enable 고층

  # Use the saved state, write to stdout
  landfilter apply page.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return runApply(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().StringSliceVar(&opts.enable, "enable", nil, "filters to enable instead of the saved state (id, name or category)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "persist the --enable selection")
	return cmd
}

func runApply(ctx context.Context, stdout, stderr io.Writer, cfg *config.Config, input string, opts applyOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	doc, err := htmldoc.Parse(f)
	f.Close()
	if err != nil {
		return err
	}

	m := metrics.New(nil)
	// an explicit --enable selection needs no store unless it is saved
	var store service.StateStore
	if len(opts.enable) == 0 || opts.save {
		mgr, closeStore := openStore(cfg, logger, m)
		defer closeStore()
		store = mgr
	}

	registry := filter.NewDefaultRegistry(floor.NewExtractor(logger.Named("floor"), m.ExtractionMisses))
	engine := service.NewFilterEngine(doc, registry, store, service.EngineConfig{
		Locators: loadLocators(cfg, logger),
	}, logger.Named("engine"), m)

	storeCtx, cancel := context.WithTimeout(ctx, cfg.Filter.StorageTimeout)
	defer cancel()

	if len(opts.enable) > 0 {
		for _, term := range opts.enable {
			id, ok := registry.Resolve(term)
			if !ok {
				return fmt.Errorf("%w: %s", service.ErrUnknownFilter, term)
			}
			if err := engine.SetEnabled(id, true); err != nil {
				return err
			}
		}
		if opts.save {
			if err := engine.SaveFilters(storeCtx); err != nil {
				return fmt.Errorf("failed to save filters: %w", err)
			}
		}
	} else if _, err := engine.LoadFilters(storeCtx); err != nil {
		logger.Warn("load saved filters failed", zap.Error(err))
	}

	counts := engine.FilterAll()
	if err := ui.InjectStyles(doc); err != nil {
		logger.Warn("inject styles failed", zap.Error(err))
	}

	out := stdout
	if opts.output != "" && opts.output != "-" {
		file, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer file.Close()
		out = file
	}
	if err := doc.Render(out); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}

	fmt.Fprintf(stderr, "active: %v\nlistings: %d total, %d hidden, %d visible\n",
		engine.ActiveFilterNames(), counts.Total, counts.Hidden, counts.Visible)
	return nil
}
