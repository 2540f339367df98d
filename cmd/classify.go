package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terrastat/landcover-cli/internal/model"
	"github.com/terrastat/landcover-cli/internal/pipeline"
	"github.com/terrastat/landcover-cli/internal/regions"
)

var (
	classifyOnly  []string
	classifyLimit int
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify land cover for every region in the boundary shapefile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		regionList, err := loadRegions()
		if err != nil {
			return err
		}

		orch := pipeline.NewOrchestrator(cfg.Batch.Concurrency, regionTimeout(),
			func(ctx context.Context, region model.Region) (*model.RunResult, error) {
				return env.Pipeline.Run(ctx, region)
			})

		outcomes := orch.Process(ctx, regionList)

		var failed int
		for _, oc := range outcomes {
			if oc.Err != nil {
				failed++
			}
		}
		if failed == len(outcomes) && failed > 0 {
			return eris.Errorf("all %d regions failed", failed)
		}
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringSliceVar(&classifyOnly, "region", nil, "process only the named regions (repeatable)")
	classifyCmd.Flags().IntVar(&classifyLimit, "limit", 0, "max number of regions to process (0 = all)")
	rootCmd.AddCommand(classifyCmd)
}

// loadRegions reads the boundary shapefile and applies the --region and
// --limit filters.
func loadRegions() ([]model.Region, error) {
	all, err := regions.LoadShapefile(cfg.Boundaries.Path, cfg.Boundaries.NameField)
	if err != nil {
		return nil, err
	}

	if len(classifyOnly) > 0 {
		wanted := make(map[string]bool, len(classifyOnly))
		for _, name := range classifyOnly {
			wanted[name] = true
		}
		var filtered []model.Region
		for _, r := range all {
			if wanted[r.Name] {
				filtered = append(filtered, r)
			}
		}
		if len(filtered) == 0 {
			return nil, eris.Errorf("none of the requested regions found in %s", cfg.Boundaries.Path)
		}
		all = filtered
	}

	if classifyLimit > 0 && len(all) > classifyLimit {
		all = all[:classifyLimit]
	}

	zap.L().Info("loaded regions",
		zap.String("path", cfg.Boundaries.Path),
		zap.Int("count", len(all)),
	)
	return all, nil
}
