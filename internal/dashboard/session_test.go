package dashboard

import (
	"reflect"
	"testing"

	"github.com/daiverp/daiverp/pkg/dashapi"
	"github.com/daiverp/daiverp/pkg/predict"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploaded() dashapi.UploadResult {
	return dashapi.UploadResult{
		DownloadURL: "/download/predictions_1.csv",
		Predictions: []predict.Row{
			{CVEID: "CVE-1", SystemID: "SYS-A", Product: "Apache", RiskScore: "85%"},
			{CVEID: "CVE-2", SystemID: "SYS-B", Product: "Nginx", RiskScore: "45%"},
			{CVEID: "CVE-10", SystemID: "sys-c", Product: "Apache", RiskScore: "10%"},
		},
	}
}

func ids(rows []predict.Row) []string {
	out := []string{}
	for _, r := range rows {
		out = append(out, r.CVEID)
	}
	return out
}

func TestApplyUpload(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyUpload(uploaded(), nil))

	assert.Equal(t, StatusUploaded, s.Status())
	assert.Equal(t, "/download/predictions_1.csv", s.DownloadURL())
	assert.Len(t, s.Rows(), 3)

	failure := &dashapi.Error{Kind: dashapi.KindStatus, Op: "upload", Status: 500}
	err := s.ApplyUpload(dashapi.UploadResult{}, failure)
	assert.Equal(t, failure, err)
	assert.Equal(t, StatusUploadFailed, s.Status())
	assert.Len(t, s.Rows(), 3, "rows survive a failed upload")
	assert.Equal(t, "/download/predictions_1.csv", s.DownloadURL())

	bad := &dashapi.Error{Kind: dashapi.KindInput, Op: "upload", Err: errors.Wrap(dashapi.ErrInvalidFileType, `"a.txt"`)}
	_ = s.ApplyUpload(dashapi.UploadResult{}, bad)
	assert.Equal(t, StatusInvalidFile, s.Status())

	// other input errors mentioning .csv are plain failures
	other := &dashapi.Error{Kind: dashapi.KindInput, Op: "upload", Err: errors.New(`could not read "a.csv"`)}
	_ = s.ApplyUpload(dashapi.UploadResult{}, other)
	assert.Equal(t, StatusUploadFailed, s.Status())
	assert.Len(t, s.Rows(), 3)
}

func TestVisible(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyUpload(uploaded(), nil))

	tests := []struct {
		name    string
		search  string
		product string
		sort    []string
		want    []string
	}{
		{"everything", "", "", nil, []string{"CVE-1", "CVE-2", "CVE-10"}},
		{"product and search", "cve-1", "Apache", nil, []string{"CVE-1", "CVE-10"}},
		{"system id search", "SYS-C", "", nil, []string{"CVE-10"}},
		{"score ascending", "", "", []string{predict.ColumnRiskScore}, []string{"CVE-10", "CVE-2", "CVE-1"}},
		{"score descending", "", "", []string{predict.ColumnRiskScore, predict.ColumnRiskScore}, []string{"CVE-1", "CVE-2", "CVE-10"}},
		{"new column resets", "", "", []string{predict.ColumnRiskScore, predict.ColumnRiskScore, predict.ColumnProduct}, []string{"CVE-1", "CVE-10", "CVE-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.SetSort("", predict.Asc)
			s.Search(tt.search)
			s.SelectProduct(tt.product)
			for _, k := range tt.sort {
				s.RequestSort(k)
			}
			if got := ids(s.Visible()); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Visible() got = %v, want %v", got, tt.want)
			}
		})
	}

	assert.Equal(t, []string{"CVE-1", "CVE-2", "CVE-10"}, ids(s.Rows()), "rows keep their upload order")
}

func TestCountsAndProducts(t *testing.T) {
	s := New()
	assert.Empty(t, s.Products())
	assert.Equal(t, 0, s.Counts().Total())

	require.NoError(t, s.ApplyUpload(uploaded(), nil))
	s.SelectProduct("Nginx")

	assert.Equal(t, map[string]int{"Critical": 1, "High": 0, "Medium": 1, "Low": 0, "Very Low": 1}, s.Counts().Map())
	assert.Equal(t, []string{"Apache", "Nginx"}, s.Products())

	s.SetProducts([]string{"OpenSSL"})
	assert.Equal(t, []string{"OpenSSL"}, s.Products())

	d := s.Chart()
	assert.Equal(t, []string{"Critical", "High", "Medium", "Low", "Very Low"}, d.Labels)
}
