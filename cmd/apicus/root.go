package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/apicus/apicus/internal/analyzer"
	"github.com/apicus/apicus/internal/catalog"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cli is the state shared by every command, set up in PersistentPreRunE.
type cli struct {
	catalogPath  string
	outputFormat string
	verbose      bool

	analyzer  *analyzer.Analyzer
	formatter Formatter
}

func newRootCmd() *cobra.Command {
	app := &cli{}

	root := &cobra.Command{
		Use:   "apicus",
		Short: "Estimate the monthly cost of a SaaS stack",
		Long: `Apicus reads a catalog of SaaS services and their plan tiers, turns plan
limits into usage metrics, and prices a selection of plans under simulated
usage, including the upgrade charge when a limit is exceeded.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&app.catalogPath, "catalog", "", "catalog file (.json or .yaml); the built-in sample when empty")
	root.PersistentFlags().StringVarP(&app.outputFormat, "output", "o", "table", "output format: table, json, yaml")
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "log calculations to stderr")

	root.AddCommand(
		newServicesCmd(app),
		newMetricsCmd(app),
		newCostCmd(app),
		newStackCmd(app),
		newSuggestCmd(app),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	level := zerolog.WarnLevel
	if c.verbose {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).
		Level(level).With().Timestamp().Logger()

	var store catalog.Store = catalog.EmbeddedStore{}
	if c.catalogPath != "" {
		if _, err := os.Stat(c.catalogPath); err != nil {
			return fmt.Errorf("catalog file: %w", err)
		}
		store = catalog.FileStore{Path: c.catalogPath}
	}

	cat, err := catalog.Open(cmd.Context(), store, logger)
	if err != nil {
		return err
	}

	formatter, err := NewFormatter(c.outputFormat)
	if err != nil {
		return err
	}

	c.analyzer = analyzer.New(cat, logger)
	c.formatter = formatter
	return nil
}

func (c *cli) print(cmd *cobra.Command, data any) error {
	out, err := c.formatter.Format(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

// parseSets turns repeated --set key=value flags into overrides for
// serviceID. Keys are metric slugs ("users") or metric IDs ("acme-users").
func parseSets(serviceID string, sets []string) (map[string]float64, error) {
	out := make(map[string]float64, len(sets))
	for _, s := range sets {
		key, raw, ok := strings.Cut(s, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected slug=value", s)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", s, err)
		}
		out[serviceID+"-"+key] = v
	}
	return out, nil
}
