package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/terrastat/landcover-cli/internal/regions"
)

var fetchURL string

var fetchCmd = &cobra.Command{
	Use:   "fetch-boundaries",
	Short: "Download and extract the boundary shapefile archive",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		url := fetchURL
		if url == "" {
			url = cfg.Boundaries.URL
		}
		if url == "" {
			return eris.New("no boundary url configured (set boundaries.url or --url)")
		}

		shpPath, err := regions.DownloadBoundaries(ctx, url, cfg.Boundaries.DataDir)
		if err != nil {
			return err
		}

		fmt.Println(shpPath)
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "boundary archive URL (default from config)")
	rootCmd.AddCommand(fetchCmd)
}
