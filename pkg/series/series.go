package series

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const HoursPerDay = 24

var hourLabelRe = regexp.MustCompile(`^\d{2}:\d{2}$`)

type Point struct {
	Label string  `json:"label" yaml:"label"`
	Value float64 `json:"value" yaml:"value"`
}

// Series is an ordered list of labelled values, one per hour or day bucket.
// Labels are expected to be unique.
type Series []Point

// HourLabel formats an hour of the day as "HH:00"
func HourLabel(h int) string {
	return fmt.Sprintf("%02d:00", h)
}

// HourLabels returns "00:00" through "23:00"
func HourLabels() []string {
	labels := make([]string, HoursPerDay)
	for h := range labels {
		labels[h] = HourLabel(h)
	}
	return labels
}

// NormalizeLabel turns a bare hour such as "7" into "07:00". Labels already in
// "HH:MM" form and labels that are not hours are returned unchanged.
func NormalizeLabel(label string) string {
	if hourLabelRe.MatchString(label) {
		return label
	}

	trimmed := strings.TrimSpace(label)
	h, err := strconv.Atoi(trimmed)
	if err != nil || h < 0 || h >= HoursPerDay {
		return label
	}
	return HourLabel(h)
}

// ParseHour reads the hour of an "HH:MM" or bare hour label
func ParseHour(label string) (int, bool) {
	label = NormalizeLabel(label)
	if !hourLabelRe.MatchString(label) {
		return 0, false
	}

	h, err := strconv.Atoi(label[:2])
	if err != nil || h >= HoursPerDay {
		return 0, false
	}
	return h, true
}

// Sanitize maps NaN and infinities to zero
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FromValues zips labels with values. Missing values count as zero, surplus
// values are dropped.
func FromValues(labels []string, values []float64) Series {
	s := make(Series, len(labels))
	for i, l := range labels {
		v := 0.0
		if i < len(values) {
			v = Sanitize(values[i])
		}
		s[i] = Point{Label: l, Value: v}
	}
	return s
}

func FromInts(labels []string, values []int) Series {
	f := make([]float64, len(values))
	for i, v := range values {
		f[i] = float64(v)
	}
	return FromValues(labels, f)
}

func (s Series) Labels() []string {
	labels := make([]string, len(s))
	for i, p := range s {
		labels[i] = p.Label
	}
	return labels
}

func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = Sanitize(p.Value)
	}
	return values
}

// Map returns label -> value with normalised labels, summing duplicates
func (s Series) Map() map[string]float64 {
	m := make(map[string]float64, len(s))
	for _, p := range s {
		m[NormalizeLabel(p.Label)] += Sanitize(p.Value)
	}
	return m
}

func (s Series) Total() float64 {
	total := 0.0
	for _, p := range s {
		total += Sanitize(p.Value)
	}
	return total
}

// Head returns at most the first n points
func (s Series) Head(n int) Series {
	if n < 0 {
		n = 0
	}
	if n > len(s) {
		n = len(s)
	}
	out := make(Series, n)
	copy(out, s[:n])
	return out
}

// Merge sums series label by label. The result holds the union of all labels
// in order of first appearance, scanning the inputs left to right; a label
// missing from an input contributes zero. Inputs are not modified.
func Merge(a, b Series, more ...Series) Series {
	inputs := append([]Series{a, b}, more...)

	index := map[string]int{}
	out := Series{}
	for _, s := range inputs {
		for _, p := range s {
			label := NormalizeLabel(p.Label)
			i, ok := index[label]
			if !ok {
				i = len(out)
				index[label] = i
				out = append(out, Point{Label: label})
			}
			out[i].Value += Sanitize(p.Value)
		}
	}

	return out
}

// Align projects s onto labels: every label gets the value s holds for it, or
// zero. Points of s outside labels are dropped.
func Align(s Series, labels []string) Series {
	m := s.Map()
	out := make(Series, len(labels))
	for i, l := range labels {
		out[i] = Point{Label: l, Value: m[NormalizeLabel(l)]}
	}
	return out
}
