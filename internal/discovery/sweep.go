package discovery

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/RG-FIDES/square-one-coffee/internal/model"
	"github.com/RG-FIDES/square-one-coffee/internal/resilience"
	"github.com/RG-FIDES/square-one-coffee/pkg/places"
)

// Config controls one discovery sweep.
type Config struct {
	Region     Region
	SpacingDeg float64

	// Types and Keywords each produce one query per cell; multiple passes
	// compensate for any single query's incompleteness.
	Types    []string
	Keywords []string

	// RequestDelay is the mandatory pause between consecutive API requests.
	// The provider enforces per-key rate limits; the sweep is deliberately
	// single-threaded.
	RequestDelay time.Duration

	// PageTokenDelay is the pause before fetching a continuation page. The
	// API's tokens are eventually consistent and reject immediate reuse.
	PageTokenDelay time.Duration

	// QuotaCooldown is the fixed backoff after a quota-exceeded response,
	// before the single retry of the same query.
	QuotaCooldown time.Duration

	MaxPagesPerQuery int
	Filter           FilterConfig
	CheckpointPath   string
}

func (c Config) withDefaults() Config {
	if c.SpacingDeg == 0 {
		c.SpacingDeg = 0.05
	}
	if c.RequestDelay == 0 {
		c.RequestDelay = 200 * time.Millisecond
	}
	if c.PageTokenDelay == 0 {
		c.PageTokenDelay = 2 * time.Second
	}
	if c.QuotaCooldown == 0 {
		c.QuotaCooldown = 30 * time.Second
	}
	if c.MaxPagesPerQuery == 0 {
		c.MaxPagesPerQuery = 3
	}
	if len(c.Types) == 0 && len(c.Keywords) == 0 {
		c.Types = []string{"cafe"}
		c.Keywords = []string{"coffee", "espresso"}
	}
	if c.Filter.AllowTypes == nil && c.Filter.DenyTypes == nil && c.Filter.NameKeywords == nil {
		c.Filter = DefaultFilterConfig()
	}
	return c
}

// Result is the sweep's end-of-run accounting.
type Result struct {
	CellsTotal    int `json:"cells_total" yaml:"cells_total"`
	CellsSearched int `json:"cells_searched" yaml:"cells_searched"`
	CellsResumed  int `json:"cells_resumed" yaml:"cells_resumed"`
	Requests      int `json:"requests" yaml:"requests"`
	RawResults    int `json:"raw_results" yaml:"raw_results"`
	Duplicates    int `json:"duplicates" yaml:"duplicates"`
	Filtered      int `json:"filtered" yaml:"filtered"`
	OutOfBounds   int `json:"out_of_bounds" yaml:"out_of_bounds"`
	Unique        int `json:"unique" yaml:"unique"`
	FailedQueries int `json:"failed_queries" yaml:"failed_queries"`
	QuotaEvents   int `json:"quota_events" yaml:"quota_events"`
	DetailsOK     int `json:"details_ok" yaml:"details_ok"`
	DetailsFailed int `json:"details_failed" yaml:"details_failed"`
}

// Coordinator drives the grid sweep against the places API.
type Coordinator struct {
	client  places.Client
	cfg     Config
	limiter *rate.Limiter
}

// NewCoordinator creates a sweep coordinator.
func NewCoordinator(client places.Client, cfg Config) *Coordinator {
	cfg = cfg.withDefaults()
	return &Coordinator{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
	}
}

// errMissingIdentity marks an upstream data contract violation: every search
// result must carry a stable identifier and a name.
var errMissingIdentity = eris.New("discovery: result missing identifier or name")

type query struct {
	kind  string // "type" or "keyword"
	value string
}

func (c *Coordinator) queries() []query {
	var qs []query
	for _, t := range c.cfg.Types {
		qs = append(qs, query{kind: "type", value: t})
	}
	for _, k := range c.cfg.Keywords {
		qs = append(qs, query{kind: "keyword", value: k})
	}
	return qs
}

// Run executes the sweep. Partial progress survives interruption: the
// checkpoint records completed cells, the seen set, and collected records,
// and a subsequent run resumes at the next uncompleted cell.
func (c *Coordinator) Run(ctx context.Context) ([]model.Cafe, *Result, error) {
	log := zap.L().With(zap.String("stage", "discovery"))

	cells, err := GenerateCells(c.cfg.Region, c.cfg.SpacingDeg)
	if err != nil {
		return nil, nil, err
	}
	radius := SearchRadiusMeters(c.cfg.SpacingDeg)

	cp, err := LoadCheckpoint(c.cfg.CheckpointPath)
	if err != nil {
		return nil, nil, err
	}
	seen := NewSeenSet(cp.Seen...)
	cafes := make(map[string]model.Cafe, len(cp.Cafes))
	for _, cafe := range cp.Cafes {
		cafes[cafe.PlaceID] = cafe
	}

	res := &Result{CellsTotal: len(cells), CellsResumed: len(cp.Completed)}
	log.Info("starting grid sweep",
		zap.Int("cells", len(cells)),
		zap.Int("resumed_cells", len(cp.Completed)),
		zap.Float64("radius_m", radius),
	)

	for _, cell := range cells {
		if ctx.Err() != nil {
			log.Warn("sweep interrupted, progress checkpointed",
				zap.Int("cells_searched", res.CellsSearched))
			break
		}
		if cp.Done(cell.Key()) {
			continue
		}

		for _, q := range c.queries() {
			if err := c.runQuery(ctx, cell, radius, q, seen, cafes, res); err != nil {
				if abortErr := c.handleQueryFailure(ctx, cell, radius, q, seen, cafes, res, err); abortErr != nil {
					return nil, res, abortErr
				}
			}
		}

		res.CellsSearched++
		cp.MarkDone(cell.Key(), seen, cafes)
		if err := cp.Save(c.cfg.CheckpointPath); err != nil {
			log.Warn("checkpoint save failed", zap.Error(err))
		}
	}

	c.fetchDetails(ctx, cafes, cp, res)

	out := make([]model.Cafe, 0, len(cafes))
	for _, cafe := range cafes {
		out = append(out, cafe)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlaceID < out[j].PlaceID })
	res.Unique = len(out)

	log.Info("grid sweep complete",
		zap.Int("unique", res.Unique),
		zap.Int("requests", res.Requests),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("filtered", res.Filtered),
		zap.Int("failed_queries", res.FailedQueries),
	)
	return out, res, nil
}

// handleQueryFailure implements the sweep failure policy: quota errors get
// one retry after a fixed cooldown; any other failure is logged and skipped
// unless nothing at all has been collected, which aborts the run.
func (c *Coordinator) handleQueryFailure(ctx context.Context, cell Cell, radius float64, q query, seen SeenSet, cafes map[string]model.Cafe, res *Result, err error) error {
	log := zap.L().With(zap.String("stage", "discovery"), zap.String("cell", cell.Key()), zap.String(q.kind, q.value))

	if errors.Is(err, errMissingIdentity) {
		return err
	}

	if resilience.IsQuota(err) {
		res.QuotaEvents++
		log.Warn("quota exceeded, cooling down", zap.Duration("cooldown", c.cfg.QuotaCooldown))
		if !resilience.Cooldown(ctx, c.cfg.QuotaCooldown) {
			return eris.Wrap(err, "discovery: interrupted during quota cooldown")
		}
		if retryErr := c.runQuery(ctx, cell, radius, q, seen, cafes, res); retryErr == nil {
			return nil
		} else {
			err = retryErr
		}
	}

	res.FailedQueries++
	if len(cafes) == 0 && !resilience.IsQuota(err) {
		// Nothing collected and the API is unreachable: surface loudly
		// rather than sweeping an empty grid.
		return eris.Wrap(err, "discovery: aborting, no results collected")
	}

	log.Warn("query failed, skipping", zap.Error(err))
	return nil
}

func (c *Coordinator) runQuery(ctx context.Context, cell Cell, radius float64, q query, seen SeenSet, cafes map[string]model.Cafe, res *Result) error {
	token := ""
	for page := 0; page < c.cfg.MaxPagesPerQuery; page++ {
		if token != "" {
			// Continuation tokens are not immediately valid server-side.
			if !resilience.Cooldown(ctx, c.cfg.PageTokenDelay) {
				return eris.New("discovery: interrupted waiting for page token")
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "discovery: rate limiter wait")
		}

		req := places.NearbySearchRequest{
			Latitude:     cell.Lat,
			Longitude:    cell.Lng,
			RadiusMeters: radius,
			PageToken:    token,
		}
		if token == "" {
			switch q.kind {
			case "type":
				req.Type = q.value
			case "keyword":
				req.Keyword = q.value
			}
		}

		resp, err := c.client.NearbySearch(ctx, req)
		res.Requests++
		if err != nil {
			return err
		}

		for _, p := range resp.Results {
			res.RawResults++
			if p.PlaceID == "" || p.Name == "" {
				return eris.Wrapf(errMissingIdentity, "cell %s", cell.Key())
			}
			if !seen.Add(p.PlaceID) {
				res.Duplicates++
				continue
			}
			if !c.cfg.Filter.Relevant(p) {
				res.Filtered++
				continue
			}

			cafe := summaryRecord(p, cell)
			if !c.cfg.Region.Contains(cafe.Latitude, cafe.Longitude) {
				res.OutOfBounds++
				zap.L().Debug("result outside region envelope, keeping flagged",
					zap.String("place_id", cafe.PlaceID),
					zap.Float64("lat", cafe.Latitude),
					zap.Float64("lng", cafe.Longitude),
				)
			}
			cafes[cafe.PlaceID] = cafe
		}

		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}
	return nil
}

// fetchDetails issues one details request per unique place that does not yet
// carry enrichment fields. Individual failures keep the summary record.
func (c *Coordinator) fetchDetails(ctx context.Context, cafes map[string]model.Cafe, cp *Checkpoint, res *Result) {
	log := zap.L().With(zap.String("stage", "discovery"))

	ids := make([]string, 0, len(cafes))
	for id, cafe := range cafes {
		if !cafe.DetailFetched {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for i, id := range ids {
		if ctx.Err() != nil {
			log.Warn("detail fetch interrupted", zap.Int("fetched", i))
			return
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		detail, err := c.client.Details(ctx, id)
		res.Requests++
		if err != nil {
			res.DetailsFailed++
			log.Warn("detail fetch failed, keeping summary fields",
				zap.String("place_id", id), zap.Error(err))
			continue
		}

		cafe := cafes[id]
		cafe.Address = detail.FormattedAddress
		cafe.Phone = detail.Phone
		cafe.Website = detail.Website
		cafe.Hours = detail.HoursText()
		cafe.Description = detail.EditorialSummary.Overview
		cafe.DetailFetched = true
		cafes[id] = cafe
		res.DetailsOK++

		if (i+1)%25 == 0 {
			cp.UpdateCafes(cafes)
			if err := cp.Save(c.cfg.CheckpointPath); err != nil {
				log.Warn("checkpoint save failed", zap.Error(err))
			}
		}
	}

	cp.UpdateCafes(cafes)
	if err := cp.Save(c.cfg.CheckpointPath); err != nil {
		log.Warn("checkpoint save failed", zap.Error(err))
	}
}

func summaryRecord(p places.Place, cell Cell) model.Cafe {
	return model.Cafe{
		PlaceID:          p.PlaceID,
		Name:             p.Name,
		Address:          p.Vicinity,
		Latitude:         p.Geometry.Location.Lat,
		Longitude:        p.Geometry.Location.Lng,
		Types:            p.Types,
		Rating:           p.Rating,
		RatingCount:      p.UserRatingsTotal,
		Status:           mapStatus(p.BusinessStatus),
		PriceTier:        priceTier(p.PriceLevel),
		DiscoveredAt:     time.Now().UTC(),
		DiscoveryCellRow: cell.Row,
		DiscoveryCellCol: cell.Col,
	}
}

func mapStatus(s string) model.OperatingStatus {
	switch s {
	case "CLOSED_TEMPORARILY":
		return model.StatusTemporarilyClosed
	case "CLOSED_PERMANENTLY":
		return model.StatusPermanentlyClosed
	default:
		return model.StatusOperational
	}
}

// priceTier maps the API's 0-4 price level onto the 1-4 tier scale; level 0
// (free) does not apply to cafés and is treated as unknown.
func priceTier(level *int) *int {
	if level == nil || *level < 1 || *level > 4 {
		return nil
	}
	tier := *level
	return &tier
}
