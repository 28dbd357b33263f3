package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/daiverp/daiverp/config"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information, set via ldflags during build
var (
	version = "dev"
	commit  = "unknown"
)

const defaultConfigFilename = ".daiverp"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          "daiverp [OPTIONS]",
		Short:        "DAIVERP vulnerability risk dashboard",
		SilenceUsage: true,
		Long: `daiverp uploads CSV files of systems to the DAIVERP backend and shows the
predicted risk of every CVE/system pair, grouped by severity. The admin
commands show the prediction metrics and charts of the backend.

Configuration is read from flags, DAIVERP_ environment variables, a .env
file and a .daiverp.yaml config file.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := cmd.Flags().GetString("logLevel")
			if err != nil {
				return err
			}

			switch level {
			case "debug":
				initLogger(slog.LevelDebug)
			case "warn":
				initLogger(slog.LevelWarn)
			case "error":
				initLogger(slog.LevelError)
			default:
				initLogger(slog.LevelInfo)
			}

			if err := godotenv.Load(); err != nil {
				slog.Debug("no .env file loaded", "err", err)
			}

			return initializeConfig(cmd)
		},
	}
)

func Execute() error {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information and quit",
		Args:  NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("daiverp %s (%s)\n", version, commit)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./.daiverp.yaml)")
	flags.StringP("logLevel", "l", "info", "Set the log level. Options: debug, info, warn, error")
	flags.String("apiUrl", "https://localhost:8080", "base url of the DAIVERP backend")
	flags.Int("timeout", 30, "request timeout in seconds")
	flags.Bool("insecure", false, "skip TLS certificate verification")
	flags.String("store", "", "path of the local store (default is ~/.daiverp/daiverp.db)")
	flags.Uint64("seed", 1234, "seed of the demo chart data")
	flags.StringP("output", "o", "output", "output file location")
	flags.StringP("format", "F", config.FormatTable, "output format: table, json or yaml")

	rootCmd.AddCommand(
		versionCmd,
		newUploadCommand(),
		newViewCommand(),
		newDownloadCommand(),
		newProductsCommand(),
		newHistoryCommand(),
		newVulnsCommand(),
		newAdminCommand(),
		newSeedCommand(),
	)

	return rootCmd.Execute()
}

func initLogger(level slog.Leveler) {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	))
}

func initializeConfig(cmd *cobra.Command) error {
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(defaultConfigFilename)
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath("/etc/daiverp/")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		slog.Debug("no config file found")
	}

	viper.SetEnvPrefix("DAIVERP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	bindFlags(cmd)

	return config.ParseConfig()
}

// bindFlags lets config file and environment values fill unset flags and
// binds every flag to its viper key
func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed && viper.IsSet(f.Name) {
			val := viper.Get(f.Name)
			cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)) // nolint: errcheck
		}

		if err := viper.BindPFlag(f.Name, f); err != nil {
			slog.Error("could not bind flag to viper", "err", err)
		}
	})
}
