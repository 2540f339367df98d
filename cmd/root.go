package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terrastat/landcover-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "landcover",
	Short: "Per-region land-cover classification pipeline",
	Long:  "Builds cloud-masked spectral composites per region, samples training labels from a reference raster, trains a random-forest classifier, and produces classified land-cover rasters via a remote raster engine.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
