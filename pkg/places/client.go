// Package places is a thin client for a Places-style nearby-search API:
// paginated nearby search plus a per-place details endpoint. The pipeline
// depends only on stable IDs, names, coordinates, type tags, and the
// continuation token; everything else is optional enrichment.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/RG-FIDES/square-one-coffee/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// API status strings the client reacts to.
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
	statusOverLimit   = "OVER_QUERY_LIMIT"
)

// Client performs nearby-search and details operations.
type Client interface {
	NearbySearch(ctx context.Context, req NearbySearchRequest) (*SearchResponse, error)
	Details(ctx context.Context, placeID string) (*PlaceDetail, error)
}

// NearbySearchRequest describes one search query. Exactly one of Type or
// Keyword is normally set per query; PageToken continues a prior result set.
type NearbySearchRequest struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	Type         string
	Keyword      string
	PageToken    string
}

// Place is a summary result from nearby search.
type Place struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	Types            []string `json:"types"`
	Rating           *float64 `json:"rating"`
	UserRatingsTotal *int     `json:"user_ratings_total"`
	BusinessStatus   string   `json:"business_status"`
	PriceLevel       *int     `json:"price_level"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

// SearchResponse is one page of nearby-search results.
type SearchResponse struct {
	Results       []Place `json:"results"`
	NextPageToken string  `json:"next_page_token"`
	Status        string  `json:"status"`
	ErrorMessage  string  `json:"error_message"`
}

// PlaceDetail carries the enrichment fields fetched per unique place.
type PlaceDetail struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Phone            string   `json:"formatted_phone_number"`
	Website          string   `json:"website"`
	OpeningHours     struct {
		WeekdayText []string `json:"weekday_text"`
	} `json:"opening_hours"`
	EditorialSummary struct {
		Overview string `json:"overview"`
	} `json:"editorial_summary"`
	Types []string `json:"types"`
}

// HoursText flattens opening hours into one display string.
func (d *PlaceDetail) HoursText() string {
	return strings.Join(d.OpeningHours.WeekdayText, "; ")
}

type detailsResponse struct {
	Result       PlaceDetail `json:"result"`
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) NearbySearch(ctx context.Context, req NearbySearchRequest) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	if req.PageToken != "" {
		// A continuation carries the full query context server-side.
		q.Set("pagetoken", req.PageToken)
	} else {
		q.Set("location", fmt.Sprintf("%f,%f", req.Latitude, req.Longitude))
		q.Set("radius", fmt.Sprintf("%.0f", req.RadiusMeters))
		if req.Type != "" {
			q.Set("type", req.Type)
		}
		if req.Keyword != "" {
			q.Set("keyword", req.Keyword)
		}
	}

	var result SearchResponse
	if err := c.get(ctx, "/nearbysearch/json", q, &result); err != nil {
		return nil, err
	}

	switch result.Status {
	case statusOK:
		return &result, nil
	case statusZeroResults:
		result.NextPageToken = ""
		return &result, nil
	case statusOverLimit:
		return nil, resilience.NewQuotaError(eris.Errorf("places: quota exceeded: %s", result.ErrorMessage))
	default:
		return nil, eris.Errorf("places: nearby search status %s: %s", result.Status, result.ErrorMessage)
	}
}

func (c *httpClient) Details(ctx context.Context, placeID string) (*PlaceDetail, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("place_id", placeID)
	q.Set("fields", "place_id,name,formatted_address,formatted_phone_number,website,opening_hours,editorial_summary,types")

	var result detailsResponse
	if err := c.get(ctx, "/details/json", q, &result); err != nil {
		return nil, err
	}

	switch result.Status {
	case statusOK:
		return &result.Result, nil
	case statusOverLimit:
		return nil, resilience.NewQuotaError(eris.Errorf("places: quota exceeded: %s", result.ErrorMessage))
	default:
		return nil, eris.Errorf("places: details status %s for %s: %s", result.Status, placeID, result.ErrorMessage)
	}
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "places: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "places: send request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "places: unmarshal response")
	}
	return nil
}
