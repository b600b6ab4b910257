package mapctl_test

import (
	"slices"
	"testing"

	"github.com/samirrijal/villagemap/internal/core/domain"
	"github.com/samirrijal/villagemap/internal/mapctl"
)

type recordingTool struct {
	name string
	log  *[]string
}

func (r recordingTool) Enter() { *r.log = append(*r.log, "enter "+r.name) }
func (r recordingTool) Leave() { *r.log = append(*r.log, "leave "+r.name) }

func TestToolModes_Transitions(t *testing.T) {
	var log []string
	modes := mapctl.NewToolModes(recordingTool{"measure", &log}, recordingTool{"route", &log})

	if modes.Current() != domain.ModeNone {
		t.Fatalf("initial mode = %s", modes.Current())
	}
	if modes.Set(domain.ModeNone) {
		t.Error("None→None reported a change")
	}
	if len(log) != 0 {
		t.Errorf("None→None touched tools: %v", log)
	}

	modes.Set(domain.ModeMeasuring)
	modes.Set(domain.ModeMeasuring)
	modes.Set(domain.ModeRouting)
	modes.Set(domain.ModeNone)

	want := []string{
		"leave route", "enter measure",
		"leave measure", "enter route",
		"leave measure", "leave route",
	}
	if !slices.Equal(log, want) {
		t.Errorf("calls = %v\nwant   %v", log, want)
	}
	if modes.Current() != domain.ModeNone {
		t.Errorf("final mode = %s", modes.Current())
	}
}
