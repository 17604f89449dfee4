package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/period-engine/factory"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeProfile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const consultantYAML = `
id: acme
vendor:
  name: Acme Consulting
client:
  name: Globex
information:
  offset: 100
  period: 2024-01
  periods_off: [2024-03, 2024-04]
service_fees:
  name: Consulting
  granularity: day
  unit_price: "650"
payment_terms: Net 30
currency: EUR
`

func TestPeriodCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"normalize bi-weekly", []string{"normalize", "2024-02-20", "-c", "biweekly"}, "2024-02-29 (2024-02-15 to 2024-02-29)\n"},
		{"elapsed", []string{"elapsed", "2025-12-31", "2026-02-28"}, "2\n"},
		{"shift back a fortnight", []string{"shift", "2025-03-15", "-u", "fortnight", "-n", "-1"}, "2025-02-28\n"},
		{"label", []string{"label", "2025-05-second", "-c", "biweekly"}, "2025-05-31\n"},
		{"relative", []string{"relative", "last", "--today", "2025-01-10"}, "2024-12-31\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestPeriodCommands_Errors(t *testing.T) {
	_, err := run(t, "label", "2025-05-first")
	assert.Error(t, err)

	_, err = run(t, "shift", "2025-03-15", "-u", "day")
	assert.Error(t, err)

	_, err = run(t, "relative", "next")
	assert.Error(t, err)
}

func TestNumberCommand(t *testing.T) {
	path := writeProfile(t, "acme.yaml", consultantYAML)

	out, err := run(t, "number", "-p", path, "-d", "2024-08-31")
	require.NoError(t, err)
	assert.Equal(t, "105\n", out)

	out, err = run(t, "number", "-p", path, "-t", "last", "-e", "--today", "2024-09-10")
	require.NoError(t, err)
	assert.Equal(t, "106\n", out)

	_, err = run(t, "number", "-d", "2024-08-31")
	assert.ErrorContains(t, err, "--profile is required")
}

func TestQuantityAndPrepareCommands(t *testing.T) {
	path := writeProfile(t, "acme.json", factory.MonthlyDailyRateJSON("acme", "Acme Consulting", "Globex", 100, "2024-01-31", "650"))

	out, err := run(t, "quantity", "-p", path, "-d", "2024-08-15")
	require.NoError(t, err)
	assert.Equal(t, "22 day\n", out)

	out, err = run(t, "prepare", "-p", path, "-d", "2024-08-15", "--time-off", "2 day")
	require.NoError(t, err)
	assert.Contains(t, out, "Invoice #107  2024-08-31_Acme_Consulting_invoice_107.pdf")
	assert.Contains(t, out, "Due:     2024-09-30")
	assert.Contains(t, out, "Total: 13000.00 EUR")

	_, err = run(t, "prepare", "-p", path, "-d", "2024-08-15", "--expenses")
	assert.ErrorContains(t, err, "has no expenses")
}

func TestRecordOffAndReanchor_RewriteProfile(t *testing.T) {
	// GIVEN: a profile file
	path := writeProfile(t, "acme.yaml", consultantYAML)

	// WHEN: July is recorded off
	out, err := run(t, "record-off", "-p", path, "2024-07")
	require.NoError(t, err)
	assert.Equal(t, "recorded 2024-07-31 as off\n", out)

	// THEN: the file holds it and later numbers shift
	out, err = run(t, "number", "-p", path, "-d", "2024-08-31")
	require.NoError(t, err)
	assert.Equal(t, "104\n", out)

	// WHEN: re-anchored in May
	out, err = run(t, "reanchor", "-p", path, "--offset", "300", "2024-05-31")
	require.NoError(t, err)
	assert.Equal(t, "anchored invoice 300 at 2024-05-31\n", out)

	// THEN: only July still counts
	out, err = run(t, "number", "-p", path, "-d", "2024-08-31")
	require.NoError(t, err)
	assert.Equal(t, "302\n", out)

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	p, err := factory.NewProfileFactory().ParseProfileYAML(saved)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Information.PeriodsOff.Len())
}

func TestRecordExpensesCommand(t *testing.T) {
	// GIVEN: a profile file without expenses
	path := writeProfile(t, "acme.yaml", consultantYAML)

	// WHEN: two items are recorded for August
	out, err := run(t, "record-expenses", "2024-08", "-p", path,
		"--item", "Train,95,2,EUR,2024-08-12",
		"--item", "Hotel, 129.50, 3, eur, 2024-08-13")
	require.NoError(t, err)
	assert.Equal(t, "recorded 2 expense item(s) for 2024-08-31\n", out)

	// THEN: an expense invoice can be prepared from the rewritten file
	out, err = run(t, "prepare", "-p", path, "-d", "2024-08-15", "--expenses")
	require.NoError(t, err)
	assert.Contains(t, out, "Invoice #106")
	assert.Contains(t, out, "Total: 578.50 EUR")

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	p, err := factory.NewProfileFactory().ParseProfileYAML(saved)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Expenses.Len())
}

func TestRecordExpensesCommand_Errors(t *testing.T) {
	path := writeProfile(t, "acme.yaml", consultantYAML)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = run(t, "record-expenses", "2024-08", "-p", path)
	assert.ErrorContains(t, err, "--item is required")

	_, err = run(t, "record-expenses", "2024-08", "-p", path, "--item", "Train,95,2,EUR")
	assert.ErrorContains(t, err, "expected name,unit price,quantity,currency,date")

	_, err = run(t, "record-expenses", "2024-08", "-p", path, "--item", "Train,lots,2,EUR,2024-08-12")
	assert.ErrorContains(t, err, "unit_price")

	_, err = run(t, "record-expenses", "2024-08-first", "-p", path, "--item", "Train,95,2,EUR,2024-08-12")
	assert.Error(t, err)

	// THEN: failed recordings leave the file alone
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestValidateCommand(t *testing.T) {
	path := writeProfile(t, "acme.yaml", consultantYAML)

	out, err := run(t, "validate", "-p", path)
	require.NoError(t, err)
	assert.Contains(t, out, path+" is valid\n")
	assert.Contains(t, out, "cadence:      monthly")
	assert.Contains(t, out, "anchor:       invoice 100 at 2024-01-31")
	assert.Contains(t, out, "periods off:  2")

	broken := writeProfile(t, "broken.yaml", strings.Replace(consultantYAML, "currency: EUR\n", "", 1))
	_, err = run(t, "validate", "-p", broken)
	assert.ErrorContains(t, err, "currency is required")

	_, err = run(t, "validate")
	assert.ErrorContains(t, err, "--profile is required")
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	got := truncate("Göteborg Hotel and Conference", 10)
	assert.Equal(t, "Götebor...", got)
	assert.True(t, utf8.ValidString(got))

	assert.Equal(t, "Malmö", truncate("Malmö", 5))
}
