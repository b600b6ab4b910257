package workflows_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/core/usecases"
	"github.com/samirrijal/villagemap/internal/workflows"
)

type mockRegionRepo struct {
	mu      sync.Mutex
	batches [][]domain.NewRegion
}

func (m *mockRegionRepo) Create(ctx context.Context, r *domain.NewRegion) (int64, error) { return 1, nil }
func (m *mockRegionRepo) CreateBatch(ctx context.Context, rs []domain.NewRegion) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, rs)
	return int64(len(rs)), nil
}
func (m *mockRegionRepo) List(ctx context.Context) ([]domain.Region, error) { return nil, nil }
func (m *mockRegionRepo) GetByCode(ctx context.Context, code string) (*domain.Region, error) {
	return nil, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.RegionsUpdated
}

func (m *mockPublisher) PublishRegionsUpdated(ctx context.Context, ev *domain.RegionsUpdated) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return nil
}

const twoVillages = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"name":"Saribudolok","code":"12.08.25.1012"},
  "geometry":{"type":"Polygon","coordinates":[[[98.600,2.990],[98.618,2.990],[98.618,3.004],[98.600,3.004],[98.600,2.990]]]}},
 {"type":"Feature","properties":{"name":"Tanpa Kode"},
  "geometry":{"type":"Polygon","coordinates":[[[98.62,2.99],[98.63,2.99],[98.63,3.0],[98.62,2.99]]]}},
 {"type":"Feature","properties":{"name":"Silimakuta","code":"12.08.25.1013","level":"Desa (Village)"},
  "geometry":{"type":"Polygon","coordinates":[[[98.600,3.004],[98.618,3.004],[98.618,3.012],[98.600,3.012],[98.600,3.004]]]}}
]}`

func writeDoc(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regions.geojson")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestRegionImportWorkflow_InsertsAndPublishes(t *testing.T) {
	repo := &mockRegionRepo{}
	pub := &mockPublisher{}
	acts := &workflows.ImportActivities{Regions: usecases.NewRegionService(repo, nil, pub)}

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(workflows.RegionImportWorkflow, workflows.RegionImportInput{
		Location: writeDoc(t, twoVillages),
		Level:    "village",
		Origin:   "seed",
	})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow failed: %v", err)
	}

	var res workflows.RegionImportResult
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Parsed != 2 || res.Inserted != 2 {
		t.Errorf("expected 2 parsed and 2 inserted, got %+v", res)
	}

	if len(repo.batches) != 1 || len(repo.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2, got %v", repo.batches)
	}
	if lvl := repo.batches[0][0].Level; lvl != "village" {
		t.Errorf("expected default level on the first region, got %q", lvl)
	}
	if lvl := repo.batches[0][1].Level; lvl != "Desa (Village)" {
		t.Errorf("expected feature level kept, got %q", lvl)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 regions.updated event, got %d", len(pub.events))
	}
	if pub.events[0].Source != "seed" || len(pub.events[0].Codes) != 2 {
		t.Errorf("unexpected event %+v", pub.events[0])
	}
}

func TestRegionImportWorkflow_NothingToImport(t *testing.T) {
	repo := &mockRegionRepo{}
	acts := &workflows.ImportActivities{Regions: usecases.NewRegionService(repo, nil, nil)}

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivity(acts)

	doc := `{"type":"Feature","properties":{"name":"Tanpa Kode"},"geometry":{"type":"Polygon","coordinates":[[[98.62,2.99],[98.63,2.99],[98.63,3.0],[98.62,2.99]]]}}`
	env.ExecuteWorkflow(workflows.RegionImportWorkflow, workflows.RegionImportInput{Location: writeDoc(t, doc)})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if env.GetWorkflowError() == nil {
		t.Fatal("expected an error for a document without codes")
	}
	if len(repo.batches) != 0 {
		t.Errorf("expected no inserts, got %d batches", len(repo.batches))
	}
}
