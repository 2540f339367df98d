package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom"

	"github.com/terrastat/landcover-cli/internal/model"
	"github.com/terrastat/landcover-cli/internal/regions"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List regions found in the boundary shapefile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		list, err := regions.LoadShapefile(cfg.Boundaries.Path, cfg.Boundaries.NameField)
		if err != nil {
			return err
		}
		formatRegionsList(os.Stdout, list)
		return nil
	},
}

func init() { rootCmd.AddCommand(regionsCmd) }

func formatRegionsList(out io.Writer, list []model.Region) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tPARTS\tBOUNDS")
	_, _ = fmt.Fprintln(w, "----\t-----\t------")

	for _, r := range list {
		parts := 1
		if mp, ok := r.Boundary.(*geom.MultiPolygon); ok {
			parts = mp.NumPolygons()
		}
		b := r.Boundary.Bounds()
		_, _ = fmt.Fprintf(w, "%s\t%d\t[%.4f %.4f %.4f %.4f]\n",
			r.Name, parts, b.Min(0), b.Min(1), b.Max(0), b.Max(1))
	}
	_ = w.Flush()
}
