package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/apicus/apicus/internal/analyzer"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestServicesCmd(t *testing.T) {
	out, err := execute(t, "services")
	require.NoError(t, err)

	assert.Contains(t, out, "SERVICE")
	assert.Contains(t, out, "Acme CRM")
	assert.Contains(t, out, "$25.00")
	assert.Contains(t, out, "custom")
}

func TestServicesCmd_JSON(t *testing.T) {
	out, err := execute(t, "services", "-o", "json")
	require.NoError(t, err)

	var got []analyzer.ServiceSummary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got, 3)
}

func TestMetricsCmd(t *testing.T) {
	out, err := execute(t, "metrics", "acme", "--set", "users=7")
	require.NoError(t, err)

	assert.Contains(t, out, "Acme CRM · Starter (plan 0)")
	assert.Contains(t, out, "acme-users")
	assert.Contains(t, out, "Critical")
	assert.Contains(t, out, "2 metrics, 1 critical, 1 warning")
}

func TestCostCmd(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantTotal   float64
		wantUpgrade bool
	}{
		{name: "within limits", args: []string{"cost", "acme"}, wantTotal: 10},
		{name: "slug override", args: []string{"cost", "acme", "--set", "users=7"}, wantTotal: 25, wantUpgrade: true},
		{name: "metric id override", args: []string{"cost", "acme", "--set", "acme-users=7"}, wantTotal: 25, wantUpgrade: true},
		{name: "plan flag", args: []string{"cost", "acme", "--plan", "1", "--set", "users=7"}, wantTotal: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append(tt.args, "-o", "json")...)
			require.NoError(t, err)

			var report analyzer.CostReport
			require.NoError(t, json.Unmarshal([]byte(out), &report))
			assert.Equal(t, tt.wantTotal, report.Total)
			assert.Equal(t, tt.wantUpgrade, report.UpgradeRequired)
		})
	}
}

func TestCostCmd_Table(t *testing.T) {
	out, err := execute(t, "cost", "mailflow", "--plan", "1", "--set", "usage-dedicated-ip=2", "--set", "email-sends=150000")
	require.NoError(t, err)

	assert.Contains(t, out, "Mailflow · Growth")
	assert.Contains(t, out, "Usage: Dedicated IP")
	assert.Contains(t, out, "Overage: Email Sends")
	assert.Contains(t, out, "Usage: Dedicated IP (0 ip")
	assert.Contains(t, out, "$90.00")
	assert.Contains(t, out, "next tier is Scale")
}

func TestCostCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown service", args: []string{"cost", "ghost"}, wantErr: "service not found"},
		{name: "bad set", args: []string{"cost", "acme", "--set", "users"}, wantErr: "expected slug=value"},
		{name: "bad set value", args: []string{"cost", "acme", "--set", "users=many"}, wantErr: "invalid --set"},
		{name: "bad output", args: []string{"cost", "acme", "-o", "xml"}, wantErr: "unknown output format"},
		{name: "missing catalog", args: []string{"cost", "acme", "--catalog", "/does/not/exist.json"}, wantErr: "catalog file"},
		{name: "missing arg", args: []string{"cost"}, wantErr: "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStackCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
services:
  - id: acme
    plan: 0
  - id: mailflow
    plan: 1
overrides:
  acme-users: 7
  mailflow-usage-dedicated-ip: 2
`), 0o600))

	out, err := execute(t, "stack", path, "-o", "yaml")
	require.NoError(t, err)

	var report struct {
		Totals struct {
			Base    float64 `yaml:"base"`
			Usage   float64 `yaml:"usage"`
			Overage float64 `yaml:"overage"`
			Total   float64 `yaml:"total"`
		} `yaml:"totals"`
		Services []map[string]any `yaml:"services"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Len(t, report.Services, 2)
	assert.Equal(t, 45.0, report.Totals.Base)
	assert.Equal(t, 0.0, report.Totals.Usage)
	assert.Equal(t, 15.0, report.Totals.Overage)
	assert.Equal(t, 60.0, report.Totals.Total)
	assert.Equal(t, 41.67, report.Services[0]["share"])

	table, err := execute(t, "stack", path)
	require.NoError(t, err)
	assert.Contains(t, table, "OVERAGE")
	assert.Contains(t, table, "SHARE")
	assert.Contains(t, table, "58.3%")
	assert.Contains(t, table, "$60.00")
}

func TestSuggestCmd(t *testing.T) {
	out, err := execute(t, "suggest", "--budget", "20", "--size", "5", "-o", "json")
	require.NoError(t, err)

	var report analyzer.SuggestReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Suggestions, 2)
	assert.Equal(t, "acme", report.Suggestions[0].ServiceID)
	assert.Equal(t, "datavault", report.Suggestions[1].ServiceID)

	table, err := execute(t, "suggest", "--budget", "20")
	require.NoError(t, err)
	assert.Contains(t, table, "Suggested stack for a budget of $20.00")
	assert.Contains(t, table, "Acme CRM")
	assert.Contains(t, table, "$25.00")

	none, err := execute(t, "suggest", "--budget", "1")
	require.NoError(t, err)
	assert.Contains(t, none, "No service has a paid plan within $1.00")

	_, err = execute(t, "suggest", "--budget", "-5")
	require.ErrorContains(t, err, "invalid --budget")
}

func TestStackCmd_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services: {not: [a list"), 0o600))

	_, err := execute(t, "stack", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse stack file")

	_, err = execute(t, "stack", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read stack file")
}

func TestCatalogFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- _id: tiny
  metadata:
    service_name: Tiny
  enhanced_data:
    plans:
      - name: Paid
        pricing:
          monthly:
            base_price: 5
      - name: Free
        pricing:
          monthly:
            base_price: 0
`), 0o600))

	out, err := execute(t, "services", "--catalog", path, "-o", "json")
	require.NoError(t, err)

	var got []analyzer.ServiceSummary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Free", got[0].Plans[0].Name, "plans are sorted at ingestion")
}

func TestParseSets(t *testing.T) {
	got, err := parseSets("acme", []string{"users=7", " storage = 12.5 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"acme-users": 7, "acme-storage": 12.5}, got)
}
