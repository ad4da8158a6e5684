package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RG-FIDES/square-one-coffee/internal/fetcher"
	"github.com/RG-FIDES/square-one-coffee/internal/opendata"
	"github.com/RG-FIDES/square-one-coffee/internal/report"
	"github.com/RG-FIDES/square-one-coffee/internal/spatial"
	"github.com/RG-FIDES/square-one-coffee/internal/stage"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Spatially enrich staged cafés",
	Long: `Assign each staged café to its neighbourhood polygon, join population
counts, compute area and café density, and derive market fields
(downtown distance, zone, price category, quality score). Writes the
enriched café table back to the staging directory.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "enrich"))
		dir := stage.Dir{Root: cfg.Staging.Dir}

		if boundaries, _ := cmd.Flags().GetString("boundaries"); boundaries != "" {
			if err := stageBoundaryFile(dir, boundaries); err != nil {
				return err
			}
		}

		summary, err := spatial.RunStage(dir)
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		run, err := report.Load(cfg.Staging.Dir)
		if err != nil {
			return err
		}
		run.AddCounters(stage.Enriched, summary.Points, summary.Points, map[string]int{
			"assigned":      summary.Assigned,
			"unassigned":    summary.Unassigned,
			"ambiguous":     summary.Ambiguous,
			"pop_matched":   summary.PopMatched,
			"pop_unmatched": summary.PopUnmatched,
			"bad_geometry":  summary.BadGeometry,
		})
		if err := run.Save(cfg.Staging.Dir); err != nil {
			return err
		}

		log.Info("enrichment complete",
			zap.Int("cafes", summary.Points),
			zap.Int("assigned", summary.Assigned),
			zap.Int("unassigned", summary.Unassigned),
		)
		return nil
	},
}

func init() {
	enrichCmd.Flags().String("boundaries", "", "load neighbourhood boundaries from a local shapefile (.shp or zipped set) instead of the fetched artifact")
	rootCmd.AddCommand(enrichCmd)
}

// stageBoundaryFile replaces the staged boundary artifact with one loaded
// from a local shapefile, the fallback when the GeoJSON endpoint is down.
func stageBoundaryFile(dir stage.Dir, path string) error {
	shpPath := path
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		tmp, err := os.MkdirTemp("", "boundaries-")
		if err != nil {
			return eris.Wrap(err, "enrich: create extract dir")
		}
		defer os.RemoveAll(tmp) //nolint:errcheck

		extracted, err := fetcher.ExtractZIP(path, tmp)
		if err != nil {
			return eris.Wrapf(err, "enrich: extract %s", path)
		}
		shpPath = fetcher.FindBySuffix(extracted, ".shp")
		if shpPath == "" {
			return eris.Errorf("enrich: no .shp entry in %s", path)
		}
	}

	hoods, err := spatial.LoadShapefile(shpPath, spatial.ShapefileOptions{})
	if err != nil {
		return err
	}
	return dir.Write(stage.Neighbourhoods, opendata.TableFromNeighbourhoods(hoods))
}
