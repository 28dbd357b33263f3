package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/daiverp/daiverp/config"
	"github.com/daiverp/daiverp/internal/report"
	"github.com/daiverp/daiverp/pkg/kvstore"
	"github.com/daiverp/daiverp/pkg/seed"

	"github.com/spf13/cobra"
)

// openStore opens the configured store, ~/.daiverp/daiverp.db by default
func openStore() (*kvstore.SQLite, error) {
	return kvstore.Open(config.Runtime.Store)
}

// loadDemo returns the persisted demo seed. Without a usable store the seed
// is generated in memory and not kept.
func loadDemo(ctx context.Context) seed.Demo {
	store, err := openStore()
	if err != nil {
		slog.Warn("could not open store, demo data is not persisted", "err", err)
		return seed.Generate(config.Runtime.Seed)
	}
	defer store.Close()

	demo, err := seed.NewGenerator(store, config.Runtime.Seed).Load(ctx)
	if err != nil {
		slog.Warn("could not persist demo data", "err", err)
	}
	return demo
}

func newSeedCommand() *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Inspect or reset the persisted demo chart data",
		Args:  NoArgs,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the demo data, generating it on first use",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			demo := loadDemo(cmd.Context())
			pair := demo.Pair(len(demo.V1))

			return printOut(demo, func(w io.Writer) error {
				return report.ResolvePair(w, pair)
			})
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the demo data, the next use generates it again",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := seed.NewGenerator(store, config.Runtime.Seed).Reset(cmd.Context()); err != nil {
				return err
			}
			slog.Info("demo data removed", "store", store.Path)
			return nil
		},
	}

	seedCmd.AddCommand(showCmd, resetCmd)
	return seedCmd
}
