package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/daiverp/daiverp/config"
	"github.com/daiverp/daiverp/internal/admin"
	"github.com/daiverp/daiverp/pkg/chart"
	"github.com/daiverp/daiverp/pkg/dashapi"
	"github.com/daiverp/daiverp/pkg/predict"
	"github.com/daiverp/daiverp/pkg/series"
	"github.com/daiverp/daiverp/pkg/severity"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ResolvePredictions prints the severity summary line and the predictions table
func ResolvePredictions(w io.Writer, rows []predict.Row, counts chart.Counts) error {
	fmt.Fprintf(w, "\nDetected %s predictions | %s\n\n",
		config.Yellow(len(rows)), summary(counts))

	if len(rows) == 0 {
		return nil
	}

	extra := extraColumns(rows)

	table := tablewriter.NewWriter(w)
	header := []string{"ID", "CVE ID", "System ID", "Product", "Risk Score", "Severity"}
	table.SetHeader(append(header, extra...))
	table.SetRowLine(true)

	for i, r := range rows {
		data := []string{
			strconv.Itoa(i + 1), r.CVEID, r.SystemID, r.Product,
			r.RiskScore, config.Severity(r.Severity()),
		}
		for _, k := range extra {
			data = append(data, r.Field(k))
		}
		table.Append(data)
	}

	table.Render()
	return nil
}

func summary(counts chart.Counts) string {
	return fmt.Sprintf("Critical: %s High: %s Medium: %s Low: %s Very Low: %s",
		config.Red(counts.Get(severity.Critical)),
		config.Pink(counts.Get(severity.High)),
		config.Yellow(counts.Get(severity.Medium)),
		config.Blue(counts.Get(severity.Low)),
		config.Green(counts.Get(severity.VeryLow)))
}

// extraColumns lists the columns beyond the known ones, sorted by name
func extraColumns(rows []predict.Row) []string {
	seen := map[string]bool{}
	cols := []string{}
	for _, r := range rows {
		for k := range r.Extra {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// ResolveCounts prints the CVE count by severity
func ResolveCounts(w io.Writer, counts chart.Counts) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Severity", "Count"})

	for _, tc := range counts {
		table.Append([]string{config.Severity(tc.Tier), strconv.Itoa(tc.Count)})
	}
	table.SetFooter([]string{"Total", strconv.Itoa(counts.Total())})

	table.Render()
	return nil
}

func ResolveMetrics(w io.Writer, m dashapi.Metrics) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Active Users", "Queue Length", "Daily Predictions", "Model Deployed"})
	table.Append([]string{
		strconv.FormatInt(m.ActiveUsers, 10),
		strconv.FormatInt(m.QueueLength, 10),
		strconv.FormatInt(m.DailyPredictions, 10),
		config.Yellow(m.ModelDeployed),
	})

	table.Render()
	return nil
}

func ResolveHistory(w io.Writer, records []dashapi.HistoryRecord) error {
	fmt.Fprintf(w, "\nFound %s prediction jobs\n\n", config.Yellow(len(records)))
	if len(records) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Timestamp", "Model", "Filename"})

	for i, r := range records {
		ts := r.Timestamp
		if t := r.Time(); !t.IsZero() {
			ts = t.Format("2006-01-02 15:04:05")
		}
		table.Append([]string{strconv.Itoa(i + 1), ts, r.Model, r.Filename})
	}

	table.Render()
	return nil
}

func ResolveProducts(w io.Writer, products []string) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Product"})

	for i, p := range products {
		table.Append([]string{strconv.Itoa(i + 1), p})
	}

	table.Render()
	return nil
}

// ResolvePair prints a V1/V2 series with per bucket totals
func ResolvePair(w io.Writer, p series.Pair) error {
	if p.Empty() {
		fmt.Fprintln(w, "No predictions in this range")
		return nil
	}

	labels := p.Labels()
	aligned := p.Align(labels)
	totals := p.Totals()

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Label", "V1", "V2", "Total"})

	for i, l := range labels {
		table.Append([]string{
			l,
			formatValue(aligned.V1[i].Value),
			formatValue(aligned.V2[i].Value),
			formatValue(totals[i].Value),
		})
	}
	table.SetFooter([]string{"Total",
		formatValue(aligned.V1.Total()),
		formatValue(aligned.V2.Total()),
		formatValue(totals.Total())})

	table.Render()
	return nil
}

func ResolveSeries(w io.Writer, s series.Series) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Label", "Value"})

	for _, p := range s {
		table.Append([]string{p.Label, formatValue(p.Value)})
	}

	table.Render()
	return nil
}

// ResolveSnapshot prints the admin panel: metric cards then the merged series
func ResolveSnapshot(w io.Writer, s admin.Snapshot) error {
	fmt.Fprintf(w, "\nAdmin panel | range: %s | updated: %s\n\n",
		config.Yellow(s.Range), s.UpdatedAt.Format("15:04:05"))

	if err := ResolveMetrics(w, s.Metrics); err != nil {
		return err
	}
	fmt.Fprintln(w)

	if err := ResolvePair(w, s.Series); err != nil {
		return err
	}

	if s.Status != "" {
		fmt.Fprintf(w, "\n%s\n", config.Red(s.Status))
	}
	return nil
}

func ResolveVulnerabilities(w io.Writer, vulns []dashapi.Vulnerability) error {
	fmt.Fprintf(w, "\nDetected %s vulnerabilities\n\n", config.Yellow(len(vulns)))
	if len(vulns) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"CVE ID", "Product", "DAIVERP Score", "CVSS Score", "CVSS Rating", "Severity"})
	table.SetRowLine(true)

	for _, v := range vulns {
		table.Append([]string{
			v.ID, v.Product,
			fmt.Sprintf("%.2f%%", v.DaiverpScore),
			fmt.Sprintf("%.1f", v.CVSSScore),
			severity.CVSSRating(v.CVSSScore),
			config.Severity(severity.ClassifyScore(v.DaiverpScore)),
		})
	}

	table.Render()
	return nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteStructured writes v as indented JSON or YAML
func WriteStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "could not encode json")
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "could not encode yaml")
		}
		return enc.Close()
	}
	return errors.Errorf("unsupported format %q", format)
}
