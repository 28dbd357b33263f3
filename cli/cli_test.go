package cli

import (
	"reflect"
	"testing"

	"github.com/daiverp/daiverp/internal/dashboard"
	"github.com/daiverp/daiverp/pkg/predict"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewFlagsApply(t *testing.T) {
	tests := []struct {
		name  string
		flags viewFlags
		want  predict.View
	}{
		{
			name:  "nothing",
			flags: viewFlags{},
			want:  predict.View{},
		},
		{
			name:  "alias ascending",
			flags: viewFlags{sortKey: "score", search: "cve", product: "Apache"},
			want: predict.View{
				Filter: predict.Filter{SearchQuery: "cve", Product: "Apache"},
				Sort:   predict.SortState{Key: predict.ColumnRiskScore, Direction: predict.Asc},
			},
		},
		{
			name:  "descending",
			flags: viewFlags{sortKey: "Severity", desc: true},
			want:  predict.View{Sort: predict.SortState{Key: predict.ColumnSeverity, Direction: predict.Desc}},
		},
		{
			name:  "raw column",
			flags: viewFlags{sortKey: "Notes"},
			want:  predict.View{Sort: predict.SortState{Key: "Notes", Direction: predict.Asc}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := dashboard.New()
			tt.flags.apply(s)
			if got := s.View(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("apply() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArgs(t *testing.T) {
	cmd := &cobra.Command{Use: "download FILENAME", Short: "Download"}

	assert.NoError(t, NoArgs(cmd, nil))
	assert.Error(t, NoArgs(cmd, []string{"x"}))

	assert.NoError(t, ExactArgs(1)(cmd, []string{"a.csv"}))
	err := ExactArgs(1)(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires exactly 1 argument(s)")
}

func TestBindFlags(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("apiUrl", "https://localhost:8080", "")
	cmd.Flags().Int("timeout", 30, "")
	require.NoError(t, cmd.Flags().Set("timeout", "5"))

	viper.Set("apiUrl", "https://daiverp.example.com")
	viper.Set("timeout", 60)
	bindFlags(cmd)

	apiURL, _ := cmd.Flags().GetString("apiUrl")
	timeout, _ := cmd.Flags().GetInt("timeout")
	assert.Equal(t, "https://daiverp.example.com", apiURL, "unset flags take the configured value")
	assert.Equal(t, 5, timeout, "flags given on the command line win")
}
