package config

import (
	"strings"
	"time"

	"github.com/daiverp/daiverp/pkg/dashapi"
	"github.com/daiverp/daiverp/pkg/severity"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Pink   = color.New(color.FgMagenta).SprintFunc()
	Blue   = color.New(color.FgCyan).SprintFunc()

	severityColours = map[severity.Tier]func(a ...interface{}) string{
		severity.Critical: Red,
		severity.High:     Pink,
		severity.Medium:   Yellow,
		severity.Low:      Blue,
		severity.VeryLow:  Green,
	}
)

// Severity renders the tier name in its terminal colour
func Severity(t severity.Tier) string {
	if f, ok := severityColours[t]; ok {
		return f(t.String())
	}
	return t.String()
}

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

type Config struct {
	APIURL       string        `json:"apiUrl" mapstructure:"apiUrl"`
	Timeout      int           `json:"timeout" mapstructure:"timeout"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
	PollInterval time.Duration `json:"pollInterval" mapstructure:"pollInterval"`
	Store        string        `json:"store" mapstructure:"store"`
	Seed         uint64        `json:"seed" mapstructure:"seed"`
	Model        string        `json:"model" mapstructure:"model"`
	Output       string        `json:"output" mapstructure:"output"`
	Format       string        `json:"format" mapstructure:"format"`
}

var Runtime Config

// SetDefaults registers the default of every key with viper
func SetDefaults() {
	viper.SetDefault("apiUrl", "https://localhost:8080")
	viper.SetDefault("timeout", 30)
	viper.SetDefault("insecure", false)
	viper.SetDefault("pollInterval", "15s")
	viper.SetDefault("seed", 1234)
	viper.SetDefault("model", "V1")
	viper.SetDefault("output", "output")
	viper.SetDefault("format", FormatTable)
}

// ParseConfig fills Runtime from viper
func ParseConfig() error {
	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return errors.Wrap(err, "could not read configuration")
	}

	c.APIURL = dashapi.SanitizeURL(c.APIURL)
	if c.APIURL == "" {
		return errors.New("apiUrl must not be empty")
	}

	if c.Timeout <= 0 {
		c.Timeout = 30
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 15 * time.Second
	}
	if c.Output == "" {
		c.Output = "output"
	}

	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	switch c.Format {
	case "":
		c.Format = FormatTable
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return errors.Errorf("unknown format %q, use table, json or yaml", c.Format)
	}

	Runtime = c
	return nil
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Client builds a backend client from the configuration
func (c Config) Client() *dashapi.Client {
	return dashapi.New(c.APIURL, dashapi.Options{
		Timeout:  c.RequestTimeout(),
		Insecure: c.Insecure,
	})
}
