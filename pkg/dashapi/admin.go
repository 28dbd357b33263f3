package dashapi

import (
	"context"
	"net/url"
	"strconv"

	"github.com/daiverp/daiverp/pkg/series"
	"github.com/daiverp/daiverp/pkg/severity"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

func parse(op string, body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &Error{Kind: KindPayload, Op: op, Err: errors.New("body is not valid JSON")}
	}
	return gjson.ParseBytes(body), nil
}

func parseObject(op string, body []byte) (gjson.Result, error) {
	root, err := parse(op, body)
	if err != nil {
		return root, err
	}
	if !root.IsObject() {
		return root, &Error{Kind: KindPayload, Op: op, Err: errors.New("expected a JSON object")}
	}
	return root, nil
}

func parseArray(op string, body []byte) ([]gjson.Result, error) {
	root, err := parse(op, body)
	if err != nil {
		return nil, err
	}
	if !root.IsArray() {
		return nil, &Error{Kind: KindPayload, Op: op, Err: errors.New("expected a JSON array")}
	}
	return root.Array(), nil
}

// number reads a numeric field, falling back to 0. Strings such as "12" or
// "82.5%" are read by their leading number.
func number(r gjson.Result) float64 {
	switch r.Type {
	case gjson.Number:
		return series.Sanitize(r.Num)
	case gjson.String:
		return series.Sanitize(severity.ParseScore(r.Str))
	case gjson.True:
		return 1
	}
	return 0
}

func numbers(r gjson.Result) []float64 {
	if !r.IsArray() {
		return nil
	}
	out := []float64{}
	for _, v := range r.Array() {
		out = append(out, number(v))
	}
	return out
}

func strs(r gjson.Result) []string {
	out := []string{}
	for _, v := range r.Array() {
		out = append(out, v.String())
	}
	return out
}

// parsePair reads {labels, v1, v2}. Missing or malformed values are zero.
func parsePair(op string, body []byte) (series.Pair, error) {
	root, err := parseObject(op, body)
	if err != nil {
		return series.Pair{}, err
	}

	labels := root.Get("labels")
	if !labels.IsArray() {
		return series.Pair{}, &Error{Kind: KindPayload, Op: op, Err: errors.New("labels missing")}
	}

	ls := strs(labels)
	return series.PairFromValues(ls, numbers(root.Get("v1")), numbers(root.Get("v2"))), nil
}

func (c *Client) Metrics(ctx context.Context) (Metrics, error) {
	const op = "admin metrics"

	body, err := c.get(ctx, op, "/api/admin/metrics", nil)
	if err != nil {
		return Metrics{}, err
	}

	root, err := parseObject(op, body)
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		ActiveUsers:      int64(number(root.Get("activeUsers"))),
		QueueLength:      int64(number(root.Get("queueLength"))),
		DailyPredictions: int64(number(root.Get("dailyPredictions"))),
		ModelDeployed:    root.Get("modelDeployed").String(),
	}, nil
}

// WeeklyPredictions returns per-model prediction counts for the range
func (c *Client) WeeklyPredictions(ctx context.Context, r Range) (series.Pair, error) {
	const op = "weekly predictions"

	body, err := c.get(ctx, op, "/api/admin/weekly-predictions", url.Values{"range": {string(r)}})
	if err != nil {
		return series.Pair{}, err
	}
	return parsePair(op, body)
}

// HourlyPredictions returns per-model counts for the last hours, labelled "HH:00"
func (c *Client) HourlyPredictions(ctx context.Context, hours int) (series.Pair, error) {
	const op = "hourly predictions"

	body, err := c.get(ctx, op, "/api/admin/hourly-predictions", url.Values{"hours": {strconv.Itoa(hours)}})
	if err != nil {
		return series.Pair{}, err
	}
	return parsePair(op, body)
}

func (c *Client) ModelUsage(ctx context.Context) (ModelCounts, error) {
	const op = "model usage"

	body, err := c.get(ctx, op, "/api/admin/model-usage", nil)
	if err != nil {
		return ModelCounts{}, err
	}

	root, err := parseObject(op, body)
	if err != nil {
		return ModelCounts{}, err
	}

	return ModelCounts{
		V1: int64(number(root.Get("v1Count"))),
		V2: int64(number(root.Get("v2Count"))),
	}, nil
}

// DailyTotals returns the number of predictions of each of the last 14 days
func (c *Client) DailyTotals(ctx context.Context) (series.Series, error) {
	const op = "daily totals"

	body, err := c.get(ctx, op, "/api/admin/daily-totals", nil)
	if err != nil {
		return nil, err
	}

	root, err := parseObject(op, body)
	if err != nil {
		return nil, err
	}

	return series.FromValues(strs(root.Get("labels")), numbers(root.Get("data"))), nil
}

// Ping marks this client as an active user
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "ping", "/api/ping", nil)
	return err
}
