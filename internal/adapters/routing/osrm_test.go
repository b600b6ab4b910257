package routing_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/samirrijal/villagemap/internal/adapters/httpclient"
	"github.com/samirrijal/villagemap/internal/adapters/routing"
	"github.com/samirrijal/villagemap/internal/core/domain"
)

func newProvider(url string) *routing.OSRMProvider {
	return routing.NewOSRMProvider(url, "", time.Second, nil, httpclient.WithRetry(2, time.Millisecond))
}

func TestOSRM_Route(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/route/v1/driving/98.610000,2.940000;98.650000,2.950000") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("geometries") != "geojson" {
			t.Errorf("expected geojson geometries, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"code":"Ok","routes":[{"distance":5230.4,"duration":610.2,
			"geometry":{"type":"LineString","coordinates":[[98.61,2.94],[98.63,2.945],[98.65,2.95]]}}]}`))
	}))
	defer srv.Close()

	route, err := newProvider(srv.URL).Route(context.Background(), orb.Point{98.61, 2.94}, orb.Point{98.65, 2.95})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.DistanceMeters != 5230.4 {
		t.Errorf("expected 5230.4 m, got %v", route.DistanceMeters)
	}
	if len(route.Geometry) != 3 || route.Geometry[2] != (orb.Point{98.65, 2.95}) {
		t.Errorf("unexpected geometry %v", route.Geometry)
	}
}

func TestOSRM_NoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"NoRoute","message":"Impossible route between points","routes":[]}`))
	}))
	defer srv.Close()

	_, err := newProvider(srv.URL).Route(context.Background(), orb.Point{98.61, 2.94}, orb.Point{0, 0})
	if !errors.Is(err, domain.ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestOSRM_NoSegmentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"NoSegment","message":"Could not find a matching segment"}`))
	}))
	defer srv.Close()

	_, err := newProvider(srv.URL).Route(context.Background(), orb.Point{1, 1}, orb.Point{2, 2})
	if !errors.Is(err, domain.ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestOSRM_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newProvider(srv.URL).Route(context.Background(), orb.Point{1, 1}, orb.Point{2, 2})
	if !errors.Is(err, domain.ErrNetworkUnavailable) {
		t.Fatalf("expected ErrNetworkUnavailable, got %v", err)
	}
}
