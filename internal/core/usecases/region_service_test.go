package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/core/usecases"
)

// --- Mock RegionRepository ---

type mockRegionRepo struct {
	createFn      func(ctx context.Context, r *domain.NewRegion) (int64, error)
	createBatchFn func(ctx context.Context, rs []domain.NewRegion) (int64, error)
	listFn        func(ctx context.Context) ([]domain.Region, error)
	getByCodeFn   func(ctx context.Context, code string) (*domain.Region, error)
	listCalls     int
}

func (m *mockRegionRepo) Create(ctx context.Context, r *domain.NewRegion) (int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, r)
	}
	return 1, nil
}

func (m *mockRegionRepo) CreateBatch(ctx context.Context, rs []domain.NewRegion) (int64, error) {
	if m.createBatchFn != nil {
		return m.createBatchFn(ctx, rs)
	}
	return int64(len(rs)), nil
}

func (m *mockRegionRepo) List(ctx context.Context) ([]domain.Region, error) {
	m.listCalls++
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockRegionRepo) GetByCode(ctx context.Context, code string) (*domain.Region, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, nil
}

// --- Mock CacheService ---

type memCache struct {
	data    map[string][]byte
	deletes []string
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.deletes = append(c.deletes, key)
	delete(c.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	events []*domain.RegionsUpdated
	err    error
}

func (m *mockPublisher) PublishRegionsUpdated(_ context.Context, ev *domain.RegionsUpdated) error {
	m.events = append(m.events, ev)
	return m.err
}

const squareGeoJSON = `{"type":"Polygon","coordinates":[[[98.60,2.99],[98.61,2.99],[98.61,3.00],[98.60,3.00],[98.60,2.99]]]}`

func saribudolok() *domain.NewRegion {
	return &domain.NewRegion{
		Name:     "Saribudolok",
		Code:     "12.08.25.1012",
		Level:    "Desa (Village)",
		Geometry: json.RawMessage(squareGeoJSON),
	}
}

// --- Tests ---

func TestRegionService_Create(t *testing.T) {
	var got *domain.NewRegion
	repo := &mockRegionRepo{createFn: func(_ context.Context, r *domain.NewRegion) (int64, error) {
		got = r
		return 1, nil
	}}
	cache := newMemCache()
	pub := &mockPublisher{}
	svc := usecases.NewRegionService(repo, cache, pub)

	n, err := svc.Create(context.Background(), saribudolok())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
	if got == nil || got.Code != "12.08.25.1012" {
		t.Errorf("repo received %+v", got)
	}
	if len(pub.events) != 1 || pub.events[0].Codes[0] != "12.08.25.1012" || pub.events[0].Source != "api" {
		t.Errorf("events = %+v", pub.events)
	}
	if len(cache.deletes) != 1 {
		t.Errorf("expected cache invalidation, got %v", cache.deletes)
	}
}

func TestRegionService_Create_DuplicateIsQuiet(t *testing.T) {
	repo := &mockRegionRepo{createFn: func(context.Context, *domain.NewRegion) (int64, error) { return 0, nil }}
	pub := &mockPublisher{}
	svc := usecases.NewRegionService(repo, nil, pub)

	n, err := svc.Create(context.Background(), saribudolok())
	if err != nil || n != 0 {
		t.Fatalf("Create = %d, %v", n, err)
	}
	if len(pub.events) != 0 {
		t.Error("no event expected when nothing was inserted")
	}
}

func TestRegionService_Create_PublishFailureIsNotFatal(t *testing.T) {
	svc := usecases.NewRegionService(&mockRegionRepo{}, nil, &mockPublisher{err: errors.New("nats down")})
	if _, err := svc.Create(context.Background(), saribudolok()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegionService_Create_RepoError(t *testing.T) {
	repo := &mockRegionRepo{createFn: func(context.Context, *domain.NewRegion) (int64, error) {
		return 0, errors.New("relation does not exist")
	}}
	svc := usecases.NewRegionService(repo, nil, nil)
	if _, err := svc.Create(context.Background(), saribudolok()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRegionService_Create_Validation(t *testing.T) {
	tests := map[string]func(r *domain.NewRegion){
		"no name":      func(r *domain.NewRegion) { r.Name = " " },
		"no code":      func(r *domain.NewRegion) { r.Code = "" },
		"no geometry":  func(r *domain.NewRegion) { r.Geometry = nil },
		"bad json":     func(r *domain.NewRegion) { r.Geometry = json.RawMessage(`{"type":`) },
		"point":        func(r *domain.NewRegion) { r.Geometry = json.RawMessage(`{"type":"Point","coordinates":[98.6,2.99]}`) },
		"short ring":   func(r *domain.NewRegion) { r.Geometry = json.RawMessage(`{"type":"Polygon","coordinates":[[[98.6,2.99],[98.61,2.99],[98.6,2.99]]]}`) },
		"out of range": func(r *domain.NewRegion) { r.Geometry = json.RawMessage(`{"type":"Polygon","coordinates":[[[198.6,2.99],[98.61,2.99],[98.61,3],[198.6,2.99]]]}`) },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			called := false
			repo := &mockRegionRepo{createFn: func(context.Context, *domain.NewRegion) (int64, error) {
				called = true
				return 1, nil
			}}
			r := saribudolok()
			mutate(r)
			_, err := usecases.NewRegionService(repo, nil, nil).Create(context.Background(), r)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
			if called {
				t.Error("repository should not be called")
			}
		})
	}
}

func TestRegionService_List_Cached(t *testing.T) {
	repo := &mockRegionRepo{listFn: func(context.Context) ([]domain.Region, error) {
		return []domain.Region{{ID: 1, Name: "Saribudolok", Code: "12.08.25.1012", Geometry: json.RawMessage(squareGeoJSON)}}, nil
	}}
	svc := usecases.NewRegionService(repo, newMemCache(), nil)

	for i := 0; i < 3; i++ {
		regions, err := svc.List(context.Background())
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(regions) != 1 || regions[0].Code != "12.08.25.1012" {
			t.Fatalf("regions = %+v", regions)
		}
	}
	if repo.listCalls != 1 {
		t.Errorf("repository hit %d times, want 1", repo.listCalls)
	}

	if _, err := svc.Create(context.Background(), saribudolok()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.List(context.Background()); err != nil {
		t.Fatal(err)
	}
	if repo.listCalls != 2 {
		t.Errorf("create should invalidate the list cache, repo hits = %d", repo.listCalls)
	}
}

func TestRegionService_FeatureCollection(t *testing.T) {
	repo := &mockRegionRepo{listFn: func(context.Context) ([]domain.Region, error) {
		return []domain.Region{{ID: 7, Name: "Saribudolok", Code: "12.08.25.1012", Level: "Desa (Village)", AreaKm2: 1.23, Geometry: json.RawMessage(squareGeoJSON)}}, nil
	}}
	fc, err := usecases.NewRegionService(repo, nil, nil).FeatureCollection(context.Background())
	if err != nil {
		t.Fatalf("FeatureCollection: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("features = %d", len(fc.Features))
	}
	f := fc.Features[0]
	if _, ok := f.Geometry.(orb.Polygon); !ok {
		t.Errorf("geometry = %T", f.Geometry)
	}
	for _, key := range []string{"id", "name", "code", "level", "area_km2"} {
		if _, ok := f.Properties[key]; !ok {
			t.Errorf("missing property %q", key)
		}
	}
}

func TestRegionService_GetByCode(t *testing.T) {
	repo := &mockRegionRepo{getByCodeFn: func(_ context.Context, code string) (*domain.Region, error) {
		if code == "12.08.25.1012" {
			return &domain.Region{ID: 1, Code: code}, nil
		}
		return nil, nil
	}}
	svc := usecases.NewRegionService(repo, nil, nil)

	r, err := svc.GetByCode(context.Background(), "12.08.25.1012")
	if err != nil || r == nil {
		t.Fatalf("GetByCode = %v, %v", r, err)
	}
	r, err = svc.GetByCode(context.Background(), "nope")
	if err != nil || r != nil {
		t.Errorf("unknown code = %v, %v", r, err)
	}
	if _, err := svc.GetByCode(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty code err = %v", err)
	}
}

func TestRegionService_Import(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	a := geojson.NewFeature(orb.Polygon{{{98.60, 2.99}, {98.61, 2.99}, {98.61, 3.00}, {98.60, 2.99}}})
	a.Properties = geojson.Properties{"name": "Saribudolok", "code": "12.08.25.1012"}
	nocode := geojson.NewFeature(orb.Polygon{{{98.60, 2.99}, {98.61, 2.99}, {98.61, 3.00}, {98.60, 2.99}}})
	fc.Append(a)
	fc.Append(nocode)

	regs, err := usecases.RegionsFromFeatures(fc, "Desa (Village)")
	if err != nil {
		t.Fatalf("RegionsFromFeatures: %v", err)
	}
	if len(regs) != 1 || regs[0].Level != "Desa (Village)" {
		t.Fatalf("regions = %+v", regs)
	}

	pub := &mockPublisher{}
	svc := usecases.NewRegionService(&mockRegionRepo{}, nil, pub)
	n, err := svc.Import(context.Background(), regs, "seed")
	if err != nil || n != 1 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	if len(pub.events) != 1 || pub.events[0].Source != "seed" {
		t.Errorf("events = %+v", pub.events)
	}
}
