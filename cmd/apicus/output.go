package main

import (
	"fmt"
	"strings"

	"github.com/apicus/apicus/internal/analyzer"
	"github.com/apicus/apicus/internal/cost"
	"github.com/apicus/apicus/internal/stack"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Formatter renders command results.
type Formatter interface {
	Format(data any) (string, error)
}

// NewFormatter returns a Formatter for "table", "json" or "yaml".
func NewFormatter(format string) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "table":
		return &TableFormatter{p: message.NewPrinter(language.English)}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "yaml":
		return &YAMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q: use table, json or yaml", format)
	}
}

// JSONFormatter formats data as indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data any) (string, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("format json: %w", err)
	}
	return string(b) + "\n", nil
}

// YAMLFormatter formats data as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(data any) (string, error) {
	b, err := yaml.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("format yaml: %w", err)
	}
	return string(b), nil
}

// TableFormatter renders known report types as bordered tables. Amounts are
// grouped and shown with two decimals; rounding happens only here.
type TableFormatter struct {
	p *message.Printer
}

var titleCase = cases.Title(language.English)

func (f *TableFormatter) Format(data any) (string, error) {
	var b strings.Builder
	switch v := data.(type) {
	case []analyzer.ServiceSummary:
		f.services(&b, v)
	case analyzer.MetricsReport:
		f.metrics(&b, v)
	case analyzer.CostReport:
		f.breakdown(&b, v.Breakdown)
	case analyzer.StackReport:
		f.stack(&b, v)
	case analyzer.SuggestReport:
		f.suggest(&b, v)
	default:
		return (&YAMLFormatter{}).Format(data)
	}
	return b.String(), nil
}

func (f *TableFormatter) services(b *strings.Builder, services []analyzer.ServiceSummary) {
	if len(services) == 0 {
		b.WriteString("No services found.\n")
		return
	}
	rows := make([][]string, 0, len(services))
	for _, s := range services {
		for _, p := range s.Plans {
			price := f.money(p.BasePrice)
			if p.CustomPricing && p.BasePrice == 0 {
				price = "custom"
			}
			rows = append(rows, []string{s.ID, s.Name, fmt.Sprint(p.Index), p.Name, price})
		}
	}
	writeTable(b, []string{"SERVICE", "NAME", "PLAN", "TIER", "BASE/MO"}, rows)
}

func (f *TableFormatter) metrics(b *strings.Builder, r analyzer.MetricsReport) {
	fmt.Fprintf(b, "%s · %s (plan %d)\n", r.ServiceName, r.PlanName, r.PlanIndex)
	if len(r.Metrics) == 0 {
		b.WriteString("No metrics.\n")
		return
	}
	rows := make([][]string, 0, len(r.Metrics))
	for _, m := range r.Metrics {
		limit := "unlimited"
		if m.CurrentPlanThreshold != nil {
			limit = f.p.Sprintf("%v", *m.CurrentPlanThreshold)
		}
		rows = append(rows, []string{
			m.ID,
			m.Name,
			f.p.Sprintf("%v", m.Value),
			limit,
			m.Unit,
			f.p.Sprintf("%.0f%%", m.Utilization.Percentage),
			titleCase.String(string(m.Utilization.Level)),
		})
	}
	writeTable(b, []string{"METRIC", "NAME", "VALUE", "LIMIT", "UNIT", "USED", "STATUS"}, rows)
	fmt.Fprintf(b, "%d metrics, %d critical, %d warning\n", r.Summary.Total, r.Summary.Critical, r.Summary.Warning)
	f.ignored(b, r.IgnoredOverrides)
}

func (f *TableFormatter) breakdown(b *strings.Builder, bd cost.Breakdown) {
	fmt.Fprintf(b, "%s · %s\n", bd.ServiceName, bd.PlanName)
	rows := [][]string{{"Base", f.money(bd.BaseCost)}}
	for _, item := range bd.UsageItems {
		rows = append(rows, []string{
			f.p.Sprintf("Usage: %s (%v %s × %s)", item.Name, item.Quantity, item.Unit, f.money(item.Rate)),
			f.money(item.Cost),
		})
	}
	for _, item := range bd.OverageItems {
		rows = append(rows, []string{
			f.p.Sprintf("Overage: %s (+%v %s over %v)", item.Name, item.Exceeded, item.Unit, item.Limit),
			f.money(item.Cost),
		})
	}
	rows = append(rows, []string{"Total", f.money(bd.Total)})
	writeTable(b, []string{"ITEM", "MONTHLY"}, rows)

	if bd.UpgradeRequired {
		if bd.NextPlanName != "" {
			fmt.Fprintf(b, "Upgrade required: limits exceeded, next tier is %s.\n", bd.NextPlanName)
		} else {
			b.WriteString("Limits exceeded on the top tier.\n")
		}
	}
}

func (f *TableFormatter) stack(b *strings.Builder, r analyzer.StackReport) {
	f.result(b, r.Result)
	f.ignored(b, r.IgnoredOverrides)
}

func (f *TableFormatter) result(b *strings.Builder, r stack.Result) {
	rows := make([][]string, 0, len(r.Services)+1)
	for _, s := range r.Services {
		upgrade := ""
		if s.UpgradeRequired {
			upgrade = "yes"
		}
		rows = append(rows, []string{
			s.ServiceName, s.PlanName,
			f.money(s.BaseCost), f.money(s.UsageCost), f.money(s.OverageCost), f.money(s.Total),
			f.p.Sprintf("%.1f%%", s.Share),
			upgrade,
		})
	}
	rows = append(rows, []string{
		"Total", "",
		f.money(r.Totals.Base), f.money(r.Totals.Usage), f.money(r.Totals.Overage), f.money(r.Totals.Total),
		"", "",
	})
	writeTable(b, []string{"SERVICE", "PLAN", "BASE", "USAGE", "OVERAGE", "TOTAL", "SHARE", "UPGRADE"}, rows)
}

func (f *TableFormatter) suggest(b *strings.Builder, r analyzer.SuggestReport) {
	if len(r.Suggestions) == 0 {
		fmt.Fprintf(b, "No service has a paid plan within %s.\n", f.money(r.Budget))
		return
	}
	fmt.Fprintf(b, "Suggested stack for a budget of %s per service\n", f.money(r.Budget))
	f.result(b, r.Stack)
}

func (f *TableFormatter) ignored(b *strings.Builder, keys []string) {
	if len(keys) > 0 {
		fmt.Fprintf(b, "Ignored overrides: %s\n", strings.Join(keys, ", "))
	}
}

func (f *TableFormatter) money(v float64) string {
	return f.p.Sprintf("$%.2f", v)
}

func writeTable(b *strings.Builder, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	b.WriteString(t.String())
	b.WriteString("\n")
}
