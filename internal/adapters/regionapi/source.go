package regionapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/villagemap/internal/adapters/httpclient"
	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/pkg/telemetry"
)

// HTTPSource fetches GET {baseURL}/regions from the region service.
type HTTPSource struct {
	baseURL string
	client  *httpclient.Client
}

// NewHTTPSource creates a source. Boundary loads have their own fallback
// chain, so a single attempt is made.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpclient.New(timeout, httpclient.WithRetry(1, 0)),
	}
}

func (s *HTTPSource) Name() string { return "region-service" }

// Fetch returns the stored regions as a FeatureCollection.
func (s *HTTPSource) Fetch(ctx context.Context) (*geojson.FeatureCollection, error) {
	ctx, span := telemetry.Tracer("boundary").Start(ctx, "regions.Fetch")
	defer span.End()

	resp, err := s.client.Get(ctx, s.baseURL+"/regions")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read regions: %v", domain.ErrNetworkUnavailable, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}
	return fc, nil
}

// FileSource reads a bundled GeoJSON document from disk or, when location
// is an http(s) URL, from a static asset server. The document may be a
// FeatureCollection, a Feature or a bare geometry.
type FileSource struct {
	location string
	client   *http.Client
}

// NewFileSource creates a FileSource.
func NewFileSource(location string, timeout time.Duration) *FileSource {
	return &FileSource{location: location, client: &http.Client{Timeout: timeout}}
}

func (s *FileSource) Name() string { return "local-file" }

// Fetch reads and normalises the document into a FeatureCollection.
func (s *FileSource) Fetch(ctx context.Context) (*geojson.FeatureCollection, error) {
	if s.location == "" {
		return nil, fmt.Errorf("%w: no fallback file configured", domain.ErrNotFound)
	}
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return ParseDocument(data)
}

func (s *FileSource) read(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(s.location, "http://") && !strings.HasPrefix(s.location, "https://") {
		data, err := os.ReadFile(s.location)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.location, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: static asset returned %d", domain.ErrNetworkUnavailable, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 32<<20))
}

// ParseDocument accepts a FeatureCollection, Feature or geometry and wraps
// it into a FeatureCollection.
func ParseDocument(data []byte) (*geojson.FeatureCollection, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	switch probe.Type {
	case "FeatureCollection":
		return geojson.UnmarshalFeatureCollection(data)
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(f)
		return fc, nil
	case "":
		return nil, fmt.Errorf("decode geojson: missing type")
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, err
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(geojson.NewFeature(g.Geometry()))
		return fc, nil
	}
}
