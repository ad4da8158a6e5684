package opendata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
	geojson "github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RG-FIDES/square-one-coffee/internal/fetcher"
	"github.com/RG-FIDES/square-one-coffee/internal/stage"
	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
	"github.com/RG-FIDES/square-one-coffee/internal/validate"
)

// FetchError marks a dataset retrieval failure: a transport error, a non-2xx
// response, or an empty payload. Validation failures are not FetchErrors.
type FetchError struct {
	Dataset string
	URL     string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("opendata: fetch %s from %s: %v", e.Dataset, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Ingestor runs the generic fetch, validate, standardize, stage pipeline.
type Ingestor struct {
	fetcher fetcher.Fetcher
	dir     stage.Dir
	limit   int
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithRecordLimit bounds the extract size requested from the endpoint.
func WithRecordLimit(n int) Option {
	return func(in *Ingestor) { in.limit = n }
}

// NewIngestor creates the shared ingestion pipeline.
func NewIngestor(f fetcher.Fetcher, dir stage.Dir, opts ...Option) *Ingestor {
	in := &Ingestor{fetcher: f, dir: dir, limit: 10_000}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Run ingests one dataset: fetch, parse, validate, standardize, stage.
// Validation errors abort the dataset before anything is staged; the report
// is returned either way.
func (in *Ingestor) Run(ctx context.Context, spec DatasetSpec) (*validate.Report, error) {
	endpoint := in.endpointURL(spec)
	log := zap.L().With(zap.String("dataset", spec.Name))
	log.Info("fetching dataset", zap.String("url", endpoint))

	t, err := in.fetchTable(ctx, spec, endpoint)
	if err != nil {
		return nil, err
	}
	if t.NumRows() == 0 {
		return nil, &FetchError{Dataset: spec.Name, URL: endpoint, Err: eris.New("empty payload")}
	}

	renameColumns(t, spec.Columns)

	report := validate.Apply(spec.Name, t, spec.Rules)
	if report.HasErrors() {
		return report, eris.Errorf("opendata: %s failed validation with %d errors, nothing staged", spec.Name, report.Errors)
	}

	ApplyStandardizers(t, spec.Standardize)

	if err := in.dir.Write(spec.Name, t); err != nil {
		return report, err
	}
	log.Info("dataset staged",
		zap.Int("rows", t.NumRows()),
		zap.Int("warnings", report.Warnings),
		zap.Float64("avg_completeness_pct", report.AvgCompleteness()),
	)
	return report, nil
}

// RunAll ingests every spec concurrently. The fetchers share no state, so
// independent datasets proceed even when one fails; the first error is
// returned after all finish.
func (in *Ingestor) RunAll(ctx context.Context, specs []DatasetSpec) (map[string]*validate.Report, error) {
	var (
		mu      sync.Mutex
		reports = make(map[string]*validate.Report, len(specs))
	)

	// No errgroup.WithContext here: one dataset failing must not cancel its
	// independent siblings.
	var g errgroup.Group
	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			report, err := in.Run(ctx, spec)
			mu.Lock()
			if report != nil {
				reports[spec.Name] = report
			}
			mu.Unlock()
			return err
		})
	}
	return reports, g.Wait()
}

func (in *Ingestor) endpointURL(spec DatasetSpec) string {
	if spec.LimitParam == "" || in.limit <= 0 {
		return spec.Endpoint
	}
	u, err := url.Parse(spec.Endpoint)
	if err != nil {
		return spec.Endpoint
	}
	q := u.Query()
	q.Set(spec.LimitParam, strconv.Itoa(in.limit))
	u.RawQuery = q.Encode()
	return u.String()
}

func (in *Ingestor) fetchTable(ctx context.Context, spec DatasetSpec, endpoint string) (*tabular.Table, error) {
	switch spec.Format {
	case FormatXLSX:
		return in.fetchXLSX(ctx, spec, endpoint)
	default:
	}

	body, err := in.fetcher.Download(ctx, endpoint)
	if err != nil {
		return nil, &FetchError{Dataset: spec.Name, URL: endpoint, Err: err}
	}
	defer body.Close() //nolint:errcheck

	switch spec.Format {
	case FormatGeoJSON:
		return parseGeoJSON(body)
	default:
		return parseCSV(ctx, body)
	}
}

func (in *Ingestor) fetchXLSX(ctx context.Context, spec DatasetSpec, endpoint string) (*tabular.Table, error) {
	tmp := filepath.Join(os.TempDir(), spec.Name+".xlsx")
	defer os.Remove(tmp) //nolint:errcheck

	if _, err := in.fetcher.DownloadToFile(ctx, endpoint, tmp); err != nil {
		return nil, &FetchError{Dataset: spec.Name, URL: endpoint, Err: err}
	}

	rows, err := fetcher.ReadXLSX(tmp, fetcher.XLSXOptions{SkipRows: spec.SkipRows})
	if err != nil {
		return nil, eris.Wrapf(err, "opendata: parse %s workbook", spec.Name)
	}
	if len(rows) == 0 {
		return nil, &FetchError{Dataset: spec.Name, URL: endpoint, Err: eris.New("empty workbook")}
	}

	t := tabular.New(rows[0])
	for _, row := range rows[1:] {
		t.AppendRow(row)
	}
	return t, nil
}

// parseCSV builds a table from the streaming CSV reader.
func parseCSV(ctx context.Context, r io.Reader) (*tabular.Table, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var t *tabular.Table
	for row := range rowCh {
		if t == nil {
			t = tabular.New(<-headerCh)
		}
		t.AppendRow(row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if t == nil {
		select {
		case header := <-headerCh:
			return tabular.New(header), nil
		default:
			return tabular.New(nil), nil
		}
	}
	return t, nil
}

// parseGeoJSON flattens a feature collection into a table: one row per
// feature, property keys as columns, plus a geometry column carrying the
// re-encoded GeoJSON geometry for the enrichment stage.
func parseGeoJSON(r io.Reader) (*tabular.Table, error) {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, eris.Wrap(err, "opendata: decode feature collection")
	}

	keys := make(map[string]struct{})
	for _, f := range fc.Features {
		for k := range f.Properties {
			keys[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(keys)+1)
	for k := range keys {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	columns = append(columns, "geometry")

	t := tabular.New(columns)
	for _, f := range fc.Features {
		row := make([]string, 0, len(columns))
		for _, col := range columns[:len(columns)-1] {
			row = append(row, propString(f.Properties[col]))
		}

		geomCell := ""
		if f.Geometry != nil {
			encoded, err := geojson.Marshal(f.Geometry)
			if err != nil {
				return nil, eris.Wrap(err, "opendata: encode feature geometry")
			}
			geomCell = string(encoded)
		}
		row = append(row, geomCell)
		t.AppendRow(row)
	}
	return t, nil
}

func propString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func renameColumns(t *tabular.Table, renames map[string]string) {
	if len(renames) == 0 {
		return
	}
	for src, dst := range renames {
		if idx := t.ColIndex(src); idx >= 0 && t.ColIndex(dst) < 0 {
			t.Columns[idx] = dst
		}
	}
}
