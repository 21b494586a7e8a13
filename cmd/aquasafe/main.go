package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aquasafe/aquasafe/pkg/config"
	"github.com/aquasafe/aquasafe/pkg/database"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "aquasafe",
	Short: "AquaSafe - Water Quality Monitoring",
	Long: `AquaSafe scores heavy metal concentrations in water samples with the
Heavy Metal Pollution Index and serves them to field and supervising officials.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		return config.InitLogger(cfg.Log)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore connects the configured backing and brings its schema up to date
func openStore(ctx context.Context) (database.Store, error) {
	store, err := database.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "failed to open store")
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "failed to migrate store")
	}
	return store, nil
}
