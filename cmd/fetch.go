package main

import (
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RG-FIDES/square-one-coffee/internal/fetcher"
	"github.com/RG-FIDES/square-one-coffee/internal/opendata"
	"github.com/RG-FIDES/square-one-coffee/internal/report"
	"github.com/RG-FIDES/square-one-coffee/internal/stage"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [dataset...]",
	Short: "Ingest civic open-data sets",
	Long: `Fetch, validate, standardize, and stage Edmonton open-data sets.

Pass dataset names to ingest a subset, or --all for every registered
dataset. Datasets run concurrently and independently; one failing does
not stop the others. Known datasets: ` + strings.Join(datasetNames(), ", ") + `.

When exactly one dataset is named, --endpoint and --format override its
registry entry, for mirror URLs (https or ftp) and alternate extract
forms (csv, geojson, xlsx).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		all, _ := cmd.Flags().GetBool("all")
		specs, err := selectDatasets(args, all)
		if err != nil {
			return err
		}

		endpoint, _ := cmd.Flags().GetString("endpoint")
		format, _ := cmd.Flags().GetString("format")
		if specs, err = applyOverrides(specs, endpoint, format); err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "fetch"))
		log.Info("starting ingestion", zap.Int("datasets", len(specs)))

		f := fetcher.NewRouter(
			fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
				MaxRetries: 3,
				Timeout:    10 * time.Minute,
			}),
			fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: 10 * time.Minute}),
		)
		dir := stage.Dir{Root: cfg.Staging.Dir}
		in := opendata.NewIngestor(f, dir, opendata.WithRecordLimit(cfg.OpenData.RecordLimit))

		reports, runErr := in.RunAll(ctx, specs)

		run, err := report.Load(cfg.Staging.Dir)
		if err != nil {
			return err
		}
		for name, rep := range reports {
			run.AddValidation(name, rep)
		}
		if err := run.Save(cfg.Staging.Dir); err != nil {
			return err
		}

		if runErr != nil {
			return eris.Wrap(runErr, "fetch: ingestion")
		}
		log.Info("ingestion complete", zap.Int("staged", len(reports)))
		return nil
	},
}

func init() {
	fetchCmd.Flags().Bool("all", false, "ingest every registered dataset")
	fetchCmd.Flags().String("endpoint", "", "override the dataset's extract URL (single dataset only)")
	fetchCmd.Flags().String("format", "", "override the dataset's payload format: csv, geojson, xlsx (single dataset only)")
	rootCmd.AddCommand(fetchCmd)
}

func applyOverrides(specs []opendata.DatasetSpec, endpoint, format string) ([]opendata.DatasetSpec, error) {
	if endpoint == "" && format == "" {
		return specs, nil
	}
	if len(specs) != 1 {
		return nil, eris.New("fetch: --endpoint and --format apply to exactly one dataset")
	}

	spec := specs[0]
	if endpoint != "" {
		spec.Endpoint = endpoint
		spec.LimitParam = ""
	}
	if format != "" {
		switch opendata.PayloadFormat(format) {
		case opendata.FormatCSV, opendata.FormatGeoJSON, opendata.FormatXLSX:
			spec.Format = opendata.PayloadFormat(format)
		default:
			return nil, eris.Errorf("fetch: unknown format %q", format)
		}
	}
	return []opendata.DatasetSpec{spec}, nil
}

func datasetNames() []string {
	specs := opendata.Registry()
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

func selectDatasets(args []string, all bool) ([]opendata.DatasetSpec, error) {
	if all {
		return opendata.Registry(), nil
	}
	if len(args) == 0 {
		return nil, eris.New("fetch: name at least one dataset or pass --all")
	}

	specs := make([]opendata.DatasetSpec, 0, len(args))
	for _, name := range args {
		spec, err := opendata.Lookup(name)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
