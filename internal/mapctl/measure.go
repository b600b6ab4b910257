package mapctl

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/pkg/geospatial"
)

// MeasurementSession computes area and perimeter of the polygon drawn
// while in measuring mode.
type MeasurementSession struct {
	r      Renderer
	logger *slog.Logger

	active  bool
	polygon orb.Polygon
	result  *domain.MeasurementResult
}

func newMeasurementSession(r Renderer, logger *slog.Logger) *MeasurementSession {
	return &MeasurementSession{r: r, logger: logger.With("tool", "measure")}
}

func (m *MeasurementSession) Enter() {
	m.active = true
	if err := m.r.SetDrawMode(DrawPolygon); err != nil {
		m.logger.Warn("set draw mode failed", "error", err)
	}
}

func (m *MeasurementSession) Leave() {
	wasActive := m.active
	m.active = false
	m.polygon = nil
	m.result = nil
	if !wasActive {
		return
	}
	if err := m.r.ClearDrawing(); err != nil {
		m.logger.Warn("clear drawing failed", "error", err)
	}
	if err := m.r.SetDrawMode(DrawSelect); err != nil {
		m.logger.Warn("set draw mode failed", "error", err)
	}
}

// Edited handles a draw create/update (non-nil) or delete (nil) event.
// An invalid polygon leaves the previous result in place.
func (m *MeasurementSession) Edited(p *orb.Polygon) error {
	if !m.active {
		m.logger.Debug("polygon edit outside measuring mode ignored")
		return nil
	}
	if p == nil {
		m.polygon = nil
		m.result = nil
		return nil
	}

	closed := geospatial.ClosePolygon(*p)
	area, err := geospatial.Area(closed)
	if err != nil {
		m.logger.Warn("measurement rejected", "error", err)
		return err
	}
	perimeter, err := geospatial.Length(closed[0], geospatial.Meters)
	if err != nil {
		m.logger.Warn("measurement rejected", "error", err)
		return err
	}

	m.polygon = closed
	m.result = &domain.MeasurementResult{AreaSquareMeters: area, PerimeterMeters: perimeter}
	m.logger.Debug("measurement updated", "area_m2", area, "perimeter_m", perimeter)
	return nil
}

// Result returns the current measurement, or nil.
func (m *MeasurementSession) Result() *domain.MeasurementResult {
	if m.result == nil {
		return nil
	}
	r := *m.result
	return &r
}

// Polygon returns the measured polygon, or nil.
func (m *MeasurementSession) Polygon() orb.Polygon {
	if m.polygon == nil {
		return nil
	}
	return m.polygon.Clone()
}

// Export renders the current measurement as a report.
func (m *MeasurementSession) Export(label string, now time.Time) (*Report, error) {
	if m.result == nil {
		return nil, fmt.Errorf("export: %w", domain.ErrNoActiveMeasurement)
	}
	return BuildReport(label, m.polygon, *m.result, now), nil
}
