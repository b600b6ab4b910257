package mapctl

import (
	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/pkg/metrics"
)

// Tool is an interactive mode that can be switched on and off.
// Leave must be safe to call on an inactive tool.
type Tool interface {
	Enter()
	Leave()
}

// ToolModes is the none/measuring/routing state machine. At most one tool
// is active at a time.
type ToolModes struct {
	current domain.ToolMode
	tools   map[domain.ToolMode]Tool
}

// NewToolModes starts in ModeNone.
func NewToolModes(measure, route Tool) *ToolModes {
	return &ToolModes{
		current: domain.ModeNone,
		tools: map[domain.ToolMode]Tool{
			domain.ModeMeasuring: measure,
			domain.ModeRouting:   route,
		},
	}
}

// Current returns the active mode.
func (t *ToolModes) Current() domain.ToolMode { return t.current }

// Set switches to next and reports whether anything changed. Switching
// to the current mode does nothing. Every tool other than next is left
// first, so entering None tears both tools down.
func (t *ToolModes) Set(next domain.ToolMode) bool {
	if next == t.current {
		return false
	}
	prev := t.current
	for _, m := range []domain.ToolMode{domain.ModeMeasuring, domain.ModeRouting} {
		if m != next {
			t.tools[m].Leave()
		}
	}
	t.current = next
	if tool, ok := t.tools[next]; ok {
		tool.Enter()
	}
	metrics.ModeTransitions.WithLabelValues(prev.String(), next.String()).Inc()
	return true
}
