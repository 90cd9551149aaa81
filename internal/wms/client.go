// Package wms queries the national cadastral WMS for the parcel under a map click.
package wms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/stwalsh4118/parcelpicker/internal/geo"
	"github.com/stwalsh4118/parcelpicker/internal/metrics"
	"github.com/stwalsh4118/parcelpicker/internal/models"
)

// Fixed protocol parameters of the feature query.
const (
	ServiceName = "WMS"
	Version     = "1.3.0"
	InfoFormat  = "application/vnd.ogc.gml"
	CRS         = "EPSG:4326"

	DefaultURL   = "https://integracja.gugik.gov.pl/cgi-bin/KrajowaIntegracjaEwidencjiGruntow"
	DefaultLayer = "dzialki"
)

// maxResponseBytes caps how much of a feature info response is read.
const maxResponseBytes = 1 << 20

// ErrQueryFailed wraps every transport, status and decoding failure of a feature query.
var ErrQueryFailed = errors.New("parcel query failed")

// Config describes the feature service endpoint.
type Config struct {
	URL     string
	Layer   string
	Schema  models.Schema
	Timeout time.Duration
}

// Client sends GetFeatureInfo requests and turns the answer into a parcel record.
type Client struct {
	http    *http.Client
	baseURL string
	layer   string
	schema  models.Schema
	metrics *metrics.Metrics
}

// NewClient creates a Client. A nil httpClient gets a default client using cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, m *metrics.Metrics) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = DefaultURL
	}
	layer := cfg.Layer
	if layer == "" {
		layer = DefaultLayer
	}
	schema := cfg.Schema
	if schema == "" {
		schema = models.DefaultSchema
	}

	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		layer:   layer,
		schema:  schema,
		metrics: m,
	}
}

// BuildQuery returns the GetFeatureInfo parameters for a click at point.
// BBOX follows the EPSG:4326 axis order of WMS 1.3.0: south,west,north,east.
func (c *Client) BuildQuery(point models.Coordinates, viewport models.Viewport) url.Values {
	px := geo.ToPixel(point, viewport)
	b := viewport.Bounds

	q := url.Values{}
	q.Set("SERVICE", ServiceName)
	q.Set("VERSION", Version)
	q.Set("REQUEST", "GetFeatureInfo")
	q.Set("LAYERS", c.layer)
	q.Set("QUERY_LAYERS", c.layer)
	q.Set("STYLES", "")
	q.Set("INFO_FORMAT", InfoFormat)
	q.Set("FEATURE_COUNT", "1")
	q.Set("I", strconv.Itoa(px.I))
	q.Set("J", strconv.Itoa(px.J))
	q.Set("WIDTH", strconv.Itoa(viewport.Size.Width))
	q.Set("HEIGHT", strconv.Itoa(viewport.Size.Height))
	q.Set("CRS", CRS)
	q.Set("BBOX", fmt.Sprintf("%s,%s,%s,%s",
		formatDegrees(b.South), formatDegrees(b.West), formatDegrees(b.North), formatDegrees(b.East)))
	return q
}

// Query resolves the parcel under point. The viewport must already be validated.
// Every failure wraps ErrQueryFailed; a response without attributes still yields a parcel.
func (c *Client) Query(ctx context.Context, point models.Coordinates, viewport models.Viewport) (*models.Parcel, error) {
	start := time.Now()

	parcel, err := c.query(ctx, point, viewport)
	if err != nil {
		c.metrics.ObserveQuery(metrics.OutcomeFailed, time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	c.metrics.ObserveQuery(metrics.OutcomeFound, time.Since(start))
	return parcel, nil
}

func (c *Client) query(ctx context.Context, point models.Coordinates, viewport models.Viewport) (*models.Parcel, error) {
	body, err := c.get(ctx, c.BuildQuery(point, viewport))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	info, err := ParseFeatureInfo(io.LimitReader(body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	parcel := info.Parcel(point, c.schema)
	return &parcel, nil
}

// Ping requests the service capabilities document to check the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("SERVICE", ServiceName)
	q.Set("VERSION", Version)
	q.Set("REQUEST", "GetCapabilities")

	body, err := c.get(ctx, q)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxResponseBytes))
	return body.Close()
}

func (c *Client) get(ctx context.Context, q url.Values) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, c.baseURL)
	}

	return resp.Body, nil
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
