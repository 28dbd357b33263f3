package chart

import (
	"github.com/daiverp/daiverp/pkg/predict"
	"github.com/daiverp/daiverp/pkg/series"
	"github.com/daiverp/daiverp/pkg/severity"
)

// Model colours shared by the bar and pie charts
const (
	ColourV1     = "#0d6efd"
	ColourV2     = "#fd7e14"
	ColourTotals = "#20c997"
)

type Dataset struct {
	Label   string    `json:"label,omitempty" yaml:"label,omitempty"`
	Values  []float64 `json:"data" yaml:"data"`
	Colours []string  `json:"backgroundColor" yaml:"backgroundColor"`
}

// Data is a chart ready label/dataset structure
type Data struct {
	Title    string    `json:"title,omitempty" yaml:"title,omitempty"`
	Labels   []string  `json:"labels" yaml:"labels"`
	Datasets []Dataset `json:"datasets" yaml:"datasets"`
}

func (d Data) Empty() bool {
	return len(d.Labels) == 0
}

type TierCount struct {
	Tier  severity.Tier
	Count int
}

// Counts always holds the five tiers, Critical first
type Counts []TierCount

// CountSeverities buckets rows by severity tier
func CountSeverities(rows []predict.Row) Counts {
	index := map[severity.Tier]int{}
	counts := make(Counts, len(severity.Tiers))
	for i, t := range severity.Tiers {
		counts[i] = TierCount{Tier: t}
		index[t] = i
	}

	for _, r := range rows {
		if i, ok := index[r.Severity()]; ok {
			counts[i].Count++
		}
	}
	return counts
}

func (c Counts) Map() map[string]int {
	m := make(map[string]int, len(c))
	for _, tc := range c {
		m[tc.Tier.String()] = tc.Count
	}
	return m
}

func (c Counts) Get(t severity.Tier) int {
	for _, tc := range c {
		if tc.Tier == t {
			return tc.Count
		}
	}
	return 0
}

func (c Counts) Total() int {
	total := 0
	for _, tc := range c {
		total += tc.Count
	}
	return total
}

// SeverityBar is the "CVE Count by Severity" bar chart, one colour per tier
func SeverityBar(c Counts) Data {
	d := Data{Title: "CVE Count by Severity"}
	ds := Dataset{Label: "CVE Count by Severity"}

	for _, tc := range c {
		d.Labels = append(d.Labels, tc.Tier.String())
		ds.Values = append(ds.Values, float64(tc.Count))
		ds.Colours = append(ds.Colours, severity.Colour(tc.Tier))
	}

	d.Datasets = []Dataset{ds}
	return d
}

// ModelUsage turns a V1/V2 pair into the grouped bar data and the two slice
// pie of totals.
func ModelUsage(p series.Pair) (bars Data, pie Data) {
	labels := p.Labels()
	aligned := p.Align(labels)

	bars = Data{
		Title:  "Prediction Volume by Model",
		Labels: labels,
		Datasets: []Dataset{
			{Label: "V1", Values: aligned.V1.Values(), Colours: []string{ColourV1}},
			{Label: "V2", Values: aligned.V2.Values(), Colours: []string{ColourV2}},
		},
	}

	pie = Data{
		Title:  "Model Usage",
		Labels: []string{"V1", "V2"},
		Datasets: []Dataset{{
			Values:  []float64{aligned.V1.Total(), aligned.V2.Total()},
			Colours: []string{ColourV1, ColourV2},
		}},
	}

	return bars, pie
}

// HourlyTotals is the single series bar chart of V1+V2 per bucket
func HourlyTotals(p series.Pair) Data {
	totals := p.Totals()
	return Data{
		Title:  "Hourly Totals (UTC)",
		Labels: totals.Labels(),
		Datasets: []Dataset{{
			Values:  totals.Values(),
			Colours: []string{ColourTotals},
		}},
	}
}
