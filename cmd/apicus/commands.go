package main

import (
	"fmt"
	"os"

	"github.com/apicus/apicus/internal/analyzer"
	"github.com/apicus/apicus/internal/stack"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newServicesCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List catalog services and their plan tiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.print(cmd, app.analyzer.Services(cmd.Context()))
		},
	}
}

func newMetricsCmd(app *cli) *cobra.Command {
	var (
		plan int
		sets []string
	)
	cmd := &cobra.Command{
		Use:   "metrics <service-id>",
		Short: "Show the usage metrics of a plan and their utilization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseSets(args[0], sets)
			if err != nil {
				return err
			}
			report, err := app.analyzer.ServiceMetrics(cmd.Context(), args[0], plan, overrides)
			if err != nil {
				return err
			}
			return app.print(cmd, report)
		},
	}
	cmd.Flags().IntVar(&plan, "plan", 0, "plan index, cheapest first")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "simulated usage as slug=value (repeatable)")
	return cmd
}

func newCostCmd(app *cli) *cobra.Command {
	var (
		plan int
		sets []string
	)
	cmd := &cobra.Command{
		Use:   "cost <service-id>",
		Short: "Price one service at a plan under simulated usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseSets(args[0], sets)
			if err != nil {
				return err
			}
			report, err := app.analyzer.ServiceCost(cmd.Context(), args[0], plan, overrides)
			if err != nil {
				return err
			}
			return app.print(cmd, report)
		},
	}
	cmd.Flags().IntVar(&plan, "plan", 0, "plan index, cheapest first")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "simulated usage as slug=value (repeatable)")
	return cmd
}

func newStackCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stack <stack.yaml>",
		Short: "Price a stack of services described in a YAML file",
		Long: `Price a stack of services. The file lists plan selections and
simulated usage keyed by metric ID:

  services:
    - id: acme
      plan: 0
    - id: mailflow
      plan: 1
  overrides:
    acme-users: 7
    mailflow-usage-dedicated-ip: 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadStackFile(args[0])
			if err != nil {
				return err
			}
			report, err := app.analyzer.StackCost(cmd.Context(), req)
			if err != nil {
				return err
			}
			return app.print(cmd, report)
		},
	}
}

func newSuggestCmd(app *cli) *cobra.Command {
	var req analyzer.SuggestRequest
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest a stack whose entry plans fit a monthly budget",
		Long: `Suggest services whose cheapest paid plan costs at most --budget per
month, cheapest first, and price them together as a stack.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Budget < 0 {
				return fmt.Errorf("invalid --budget %v: must not be negative", req.Budget)
			}
			return app.print(cmd, app.analyzer.Suggest(cmd.Context(), req))
		},
	}
	cmd.Flags().Float64Var(&req.Budget, "budget", 100, "monthly budget per service")
	cmd.Flags().IntVar(&req.Size, "size", stack.DefaultSuggestionSize, "maximum number of services")
	return cmd
}

func loadStackFile(path string) (analyzer.StackRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return analyzer.StackRequest{}, fmt.Errorf("read stack file: %w", err)
	}
	var req analyzer.StackRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return analyzer.StackRequest{}, fmt.Errorf("parse stack file %s: %w", path, err)
	}
	return req, nil
}
