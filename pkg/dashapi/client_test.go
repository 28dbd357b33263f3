package dashapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/daiverp/daiverp/pkg/predict"
	"github.com/daiverp/daiverp/pkg/series"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, Options{Timeout: 5 * time.Second})
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"trailing slash", "https://api.example.com/", "https://api.example.com"},
		{"no scheme", "localhost:8080", "https://localhost:8080"},
		{"http kept", "http://127.0.0.1:8080//", "http://127.0.0.1:8080"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeURL(tt.raw); got != tt.want {
				t.Errorf("SanitizeURL() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/metrics", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `{"activeUsers":3,"queueLength":"7","dailyPredictions":null,"modelDeployed":"V2"}`)
	})

	m, err := c.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Metrics{ActiveUsers: 3, QueueLength: 7, DailyPredictions: 0, ModelDeployed: "V2"}, m)
}

func TestErrorKinds(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		_, err := c.Metrics(context.Background())
		require.Error(t, err)
		assert.True(t, IsKind(err, KindStatus))

		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, http.StatusInternalServerError, e.Status)
	})

	t.Run("payload", func(t *testing.T) {
		c := newTestClient(t, jsonHandler(`<html>not json</html>`))
		_, err := c.Metrics(context.Background())
		assert.True(t, IsKind(err, KindPayload))
	})

	t.Run("wrong shape", func(t *testing.T) {
		c := newTestClient(t, jsonHandler(`{"labels":"x"}`))
		_, err := c.Products(context.Background())
		assert.True(t, IsKind(err, KindPayload))
	})

	t.Run("transport", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c := New(srv.URL, Options{Timeout: time.Second})
		_, err := c.Metrics(context.Background())
		assert.True(t, IsKind(err, KindTransport))
		assert.False(t, IsKind(err, KindStatus))
	})
}

func TestPredictionSeries(t *testing.T) {
	var gotRange, gotHours string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/weekly-predictions":
			gotRange = r.URL.Query().Get("range")
			_, _ = io.WriteString(w, `{"labels":["Mon","Tue"],"v1":[1,"2"],"v2":[4]}`)
		case "/api/admin/hourly-predictions":
			gotHours = r.URL.Query().Get("hours")
			_, _ = io.WriteString(w, `{"labels":["00:00","01:00"],"v1":[5,3],"v2":[3,4]}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	weekly, err := c.WeeklyPredictions(ctx, RangeWeekly)
	require.NoError(t, err)
	assert.Equal(t, "weekly", gotRange)
	assert.Equal(t, series.Series{{Label: "Mon", Value: 1}, {Label: "Tue", Value: 2}}, weekly.V1)
	assert.Equal(t, series.Series{{Label: "Mon", Value: 4}, {Label: "Tue", Value: 0}}, weekly.V2)

	hourly, err := c.HourlyPredictions(ctx, 24)
	require.NoError(t, err)
	assert.Equal(t, "24", gotHours)
	assert.Equal(t, series.Series{{Label: "00:00", Value: 8}, {Label: "01:00", Value: 7}}, hourly.Totals())
}

func TestPredictionSeriesMissingLabels(t *testing.T) {
	c := newTestClient(t, jsonHandler(`{"v1":[1]}`))
	_, err := c.WeeklyPredictions(context.Background(), RangeAll)
	assert.True(t, IsKind(err, KindPayload))
}

func TestModelUsageAndTotals(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/model-usage":
			_, _ = io.WriteString(w, `{"v1Count":12,"v2Count":30}`)
		case "/api/admin/daily-totals":
			_, _ = io.WriteString(w, `{"labels":["2024-01-01","2024-01-02"],"data":[3]}`)
		case "/api/ping":
			_, _ = io.WriteString(w, `{"status":"ok"}`)
		}
	})
	ctx := context.Background()

	mu, err := c.ModelUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModelCounts{V1: 12, V2: 30}, mu)

	totals, err := c.DailyTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0}, totals.Values())

	assert.NoError(t, c.Ping(ctx))
}

func TestProductsHistoryVulnerabilities(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/products":
			_, _ = io.WriteString(w, `["Apache","","Nginx"]`)
		case "/api/history":
			_, _ = io.WriteString(w, `[{"timestamp":"2024-05-01T10:00:00","model":"V1","filename":"a.csv"}]`)
		case "/api/vulnerabilities":
			_, _ = io.WriteString(w, `[{"id":"CVE-1","daiverp_score":"91.5","cvss_score":7.2,"product":"Apache"}]`)
		}
	})
	ctx := context.Background()

	products, err := c.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apache", "Nginx"}, products)

	history, err := c.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "a.csv", history[0].Filename)
	assert.Equal(t, 10, history[0].Time().Hour())

	vulns, err := c.Vulnerabilities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Vulnerability{{ID: "CVE-1", DaiverpScore: 91.5, CVSSScore: 7.2, Product: "Apache"}}, vulns)
}

func TestUpload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "V2", r.FormValue("model"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		content, _ := io.ReadAll(f)
		assert.Equal(t, "systems.csv", hdr.Filename)
		assert.Equal(t, "System_ID,Product\nS1,Apache\n", string(content))

		_, _ = io.WriteString(w, `{
			"message":"Predictions generated successfully",
			"download_url":"/download/predictions_x.csv",
			"predictions":[{"CVE_ID":"CVE-1","System_ID":"S1","Product":"Apache","DAIVERP_Risk_Score":85.5,"Notes":"n"}]
		}`)
	})

	res, err := c.Upload(context.Background(), "/tmp/systems.csv", strings.NewReader("System_ID,Product\nS1,Apache\n"), ModelV2)
	require.NoError(t, err)
	assert.Equal(t, "predictions_x.csv", res.Filename())
	assert.Equal(t, []predict.Row{{
		CVEID: "CVE-1", SystemID: "S1", Product: "Apache", RiskScore: "85.5",
		Extra: map[string]string{"Notes": "n"},
	}}, res.Predictions)
}

func TestUploadRejectsNonCSV(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.Upload(context.Background(), "systems.xlsx", strings.NewReader("x"), ModelV1)
	assert.True(t, IsKind(err, KindInput))
	assert.True(t, errors.Is(err, ErrInvalidFileType))
	assert.False(t, called)

	_, err = c.Download(context.Background(), "../etc/passwd", io.Discard)
	assert.True(t, IsKind(err, KindInput))
	assert.False(t, errors.Is(err, ErrInvalidFileType), "only uploads report an invalid file type")
}

func TestUploadWithoutDownloadURL(t *testing.T) {
	c := newTestClient(t, jsonHandler(`{"error":"Invalid model version"}`))

	_, err := c.Upload(context.Background(), "systems.CSV", strings.NewReader("x"), ModelV1)
	assert.True(t, IsKind(err, KindPayload))
}

func TestDownload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/download/predictions_x.csv", r.URL.Path)
		_, _ = io.WriteString(w, "CVE_ID\nCVE-1\n")
	})

	var buf bytes.Buffer
	n, err := c.Download(context.Background(), "/download/predictions_x.csv", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)
	assert.Equal(t, "CVE_ID\nCVE-1\n", buf.String())

	_, err = c.Download(context.Background(), "../etc/passwd", &buf)
	assert.True(t, IsKind(err, KindInput))
}

func TestParseModel(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Model
		wantErr bool
	}{
		{"upper", "V1", ModelV1, false},
		{"lower", "v2", ModelV2, false},
		{"bare", "2", ModelV2, false},
		{"dotted", "1.0", ModelV1, false},
		{"patch zero", "v2.0.0", ModelV2, false},
		{"minor", "2.5", "", true},
		{"almost two", "1.9", "", true},
		{"patch", "1.0.1", "", true},
		{"prerelease", "2.0-beta", "", true},
		{"too new", "V3", "", true},
		{"garbage", "latest", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseModel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseModel() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange(" Weekly ")
	require.NoError(t, err)
	assert.Equal(t, RangeWeekly, r)
	assert.Equal(t, 7, r.Days())
	assert.Equal(t, 30, RangeMonthly.Days())
	assert.Equal(t, 0, RangeDaily.Days())

	_, err = ParseRange("yearly")
	assert.Error(t, err)
}
