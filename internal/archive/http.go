package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mokala/veldscan/internal/httputil"
	"github.com/mokala/veldscan/internal/metrics"
	"github.com/mokala/veldscan/internal/region"
)

// HTTPArchive queries a scene-index service: GET /scenes returns matching
// scene metadata, each scene is then fetched as JSON. Transient failures are
// retried with bounded exponential backoff.
type HTTPArchive struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPArchive builds a client for the given index service base URL.
func NewHTTPArchive(baseURL, apiKey string) *HTTPArchive {
	return &HTTPArchive{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  httputil.NewClient(),
	}
}

type sceneMeta struct {
	ID         string    `json:"id"`
	AcquiredAt time.Time `json:"acquired_at"`
	CloudPct   float64   `json:"cloud_pct"`
	Path       string    `json:"path"`
}

// Query lists matching scenes from the index, then fetches each scene body.
func (a *HTTPArchive) Query(ctx context.Context, geom *region.Geometry, start, end time.Time, maxCloudPct float64) ([]Scene, error) {
	minLat, minLon, maxLat, maxLon := geom.Bound()

	q := url.Values{}
	q.Set("min_lat", fmt.Sprintf("%f", minLat))
	q.Set("min_lon", fmt.Sprintf("%f", minLon))
	q.Set("max_lat", fmt.Sprintf("%f", maxLat))
	q.Set("max_lon", fmt.Sprintf("%f", maxLon))
	q.Set("from", start.Format(time.RFC3339))
	q.Set("to", end.Format(time.RFC3339))
	q.Set("max_cloud", fmt.Sprintf("%f", maxCloudPct))

	body, err := a.get(ctx, a.baseURL+"/scenes?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("query scene index: %w", err)
	}

	var metas []sceneMeta
	if err := json.Unmarshal(body, &metas); err != nil {
		return nil, fmt.Errorf("parse scene index: %w", err)
	}

	scenes := make([]Scene, 0, len(metas))
	for _, m := range metas {
		sceneBody, err := a.get(ctx, a.baseURL+m.Path)
		if err != nil {
			return nil, fmt.Errorf("fetch scene %s: %w", m.ID, err)
		}
		var s Scene
		if err := json.Unmarshal(sceneBody, &s); err != nil {
			return nil, fmt.Errorf("parse scene %s: %w", m.ID, err)
		}
		if Matches(&s, geom, start, end, maxCloudPct) {
			scenes = append(scenes, s)
		}
	}
	return scenes, nil
}

func (a *HTTPArchive) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	operation := func() error {
		timer := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if a.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+a.apiKey)
		}

		resp, err := a.client.Do(req)
		if err != nil {
			metrics.ArchiveCallsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("archive get: %w", err)
		}
		defer resp.Body.Close()
		metrics.ArchiveCallLatency.Observe(time.Since(timer).Seconds())

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			metrics.ArchiveCallsTotal.WithLabelValues("retry").Inc()
			return fmt.Errorf("archive get: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			metrics.ArchiveCallsTotal.WithLabelValues("error").Inc()
			return backoff.Permanent(fmt.Errorf("archive get: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		metrics.ArchiveCallsTotal.WithLabelValues("ok").Inc()
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
