package dashapi

import (
	"fmt"
	"strings"
	"time"

	version "github.com/hashicorp/go-version"
	"github.com/pkg/errors"
)

// Model is the prediction model version an upload is scored with
type Model string

const (
	ModelV1 Model = "V1"
	ModelV2 Model = "V2"
)

var supportedModels = version.MustConstraints(version.NewConstraint(">= 1, < 3"))

// ParseModel accepts "V1", "v2", "1" or "2.0" and returns the canonical name.
// Models are whole major versions, "2.5" or "1.0.1" are rejected.
func ParseModel(s string) (Model, error) {
	raw := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "v")
	if raw == "" {
		return "", errors.Errorf("empty model version")
	}

	v, err := version.NewVersion(raw)
	if err != nil {
		return "", errors.Wrapf(err, "invalid model version %q", s)
	}

	if v.Prerelease() != "" || v.Metadata() != "" {
		return "", errors.Errorf("model version %q must be a plain major version", s)
	}
	for _, seg := range v.Segments()[1:] {
		if seg != 0 {
			return "", errors.Errorf("model version %q must be a whole major version, use V1 or V2", s)
		}
	}

	if !supportedModels.Check(v) {
		return "", errors.Errorf("model version %q is not supported, use V1 or V2", s)
	}

	return Model(fmt.Sprintf("V%d", v.Segments()[0])), nil
}

// Range is the time window of the admin prediction charts
type Range string

const (
	RangeDaily   Range = "daily"
	RangeWeekly  Range = "weekly"
	RangeMonthly Range = "monthly"
	RangeAll     Range = "all"
)

func ParseRange(s string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(s))); r {
	case RangeDaily, RangeWeekly, RangeMonthly, RangeAll:
		return r, nil
	}
	return "", errors.Errorf("unknown range %q, use daily, weekly, monthly or all", s)
}

// Days is the number of calendar buckets of the range, 0 when the range is
// hourly or unbounded.
func (r Range) Days() int {
	switch r {
	case RangeWeekly:
		return 7
	case RangeMonthly:
		return 30
	}
	return 0
}

// Metrics are the admin panel cards
type Metrics struct {
	ActiveUsers      int64  `json:"activeUsers" yaml:"activeUsers"`
	QueueLength      int64  `json:"queueLength" yaml:"queueLength"`
	DailyPredictions int64  `json:"dailyPredictions" yaml:"dailyPredictions"`
	ModelDeployed    string `json:"modelDeployed" yaml:"modelDeployed"`
}

// EmptyMetrics is what the panel shows before the first answer
func EmptyMetrics() Metrics {
	return Metrics{ModelDeployed: "N/A"}
}

type HistoryRecord struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Model     string `json:"model" yaml:"model"`
	Filename  string `json:"filename" yaml:"filename"`
}

// Time parses the record timestamp, zero when unparsable
func (h HistoryRecord) Time() time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, h.Timestamp); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Vulnerability is a row of the legacy vulnerabilities table
type Vulnerability struct {
	ID           string  `json:"id" yaml:"id"`
	DaiverpScore float64 `json:"daiverp_score" yaml:"daiverp_score"`
	CVSSScore    float64 `json:"cvss_score" yaml:"cvss_score"`
	Product      string  `json:"product" yaml:"product"`
}

type ModelCounts struct {
	V1 int64 `json:"v1Count" yaml:"v1Count"`
	V2 int64 `json:"v2Count" yaml:"v2Count"`
}
