package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/terrastat/landcover-cli/internal/report"
	"github.com/terrastat/landcover-cli/internal/store"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run results and class areas to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "export: list runs")
		}
		if len(runs) == 0 {
			return eris.New("export: no runs to export")
		}

		return report.WriteWorkbook(runs, cfg.Composite.Scale, exportOut)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "landcover.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
