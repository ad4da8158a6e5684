package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RG-FIDES/square-one-coffee/internal/discovery"
	"github.com/RG-FIDES/square-one-coffee/internal/report"
	"github.com/RG-FIDES/square-one-coffee/internal/stage"
	"github.com/RG-FIDES/square-one-coffee/pkg/places"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Sweep the city grid for cafés",
	Long: `Divide the city bounding box into grid cells and run a nearby search in
each, deduplicating across cells, filtering non-café results, fetching
place details, and staging the validated café table.

Interrupted sweeps resume from the checkpoint file; completed cells are
never re-queried.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("discover"); err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "discover"))

		client := places.NewClient(cfg.Places.Key, places.WithBaseURL(cfg.Places.BaseURL))
		coord := discovery.NewCoordinator(client, sweepConfig())

		log.Info("starting grid sweep",
			zap.Float64("spacing_deg", cfg.Discovery.SpacingDeg),
			zap.Strings("types", cfg.Discovery.Types),
			zap.Strings("keywords", cfg.Discovery.Keywords),
		)

		cafes, res, err := coord.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "discover: sweep")
		}

		dir := stage.Dir{Root: cfg.Staging.Dir}
		rep, err := discovery.StageCafes(dir, cafes)
		if err != nil {
			return eris.Wrap(err, "discover: stage cafes")
		}

		run, err := report.Load(cfg.Staging.Dir)
		if err != nil {
			return err
		}
		run.AddValidation(stage.Cafes, rep)
		run.AddCounters("discovery_sweep", res.RawResults, res.Unique, map[string]int{
			"cells_searched": res.CellsSearched,
			"cells_resumed":  res.CellsResumed,
			"requests":       res.Requests,
			"duplicates":     res.Duplicates,
			"filtered":       res.Filtered,
			"out_of_bounds":  res.OutOfBounds,
			"failed_queries": res.FailedQueries,
			"quota_events":   res.QuotaEvents,
			"details_ok":     res.DetailsOK,
			"details_failed": res.DetailsFailed,
		})
		if err := run.Save(cfg.Staging.Dir); err != nil {
			return err
		}

		log.Info("discovery complete",
			zap.Int("unique", res.Unique),
			zap.Int("requests", res.Requests),
			zap.Int("details_failed", res.DetailsFailed),
		)
		return nil
	},
}

func init() { rootCmd.AddCommand(discoverCmd) }

func sweepConfig() discovery.Config {
	d := cfg.Discovery
	return discovery.Config{
		Region: discovery.Region{
			LatMin: d.LatMin,
			LatMax: d.LatMax,
			LngMin: d.LngMin,
			LngMax: d.LngMax,
		},
		SpacingDeg:       d.SpacingDeg,
		Types:            d.Types,
		Keywords:         d.Keywords,
		RequestDelay:     time.Duration(d.RequestDelayMS) * time.Millisecond,
		PageTokenDelay:   time.Duration(d.PageTokenDelayMS) * time.Millisecond,
		QuotaCooldown:    time.Duration(d.QuotaCooldownSecs) * time.Second,
		MaxPagesPerQuery: d.MaxPagesPerQuery,
		CheckpointPath:   d.CheckpointPath,
	}
}
