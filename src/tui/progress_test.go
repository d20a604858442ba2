package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestProgressModel_InitialState(t *testing.T) {
	model := NewProgressModel("GPU Operator Dashboard")

	if model.stage != "" {
		t.Errorf("expected empty stage, got %s", model.stage)
	}
	if model.done {
		t.Error("expected not done initially")
	}
	if !strings.Contains(model.View(), "GPU Operator Dashboard") {
		t.Error("expected banner in view")
	}
}

func TestProgressModel_UpdateWithStage(t *testing.T) {
	model := NewProgressModel("dashboard")

	model, _ = model.Update(ProgressMsg{Stage: "Loading dashboard data"})

	if model.stage != "Loading dashboard data" {
		t.Errorf("expected stage 'Loading dashboard data', got %s", model.stage)
	}
	if view := model.View(); !strings.Contains(view, "Loading dashboard data") {
		t.Errorf("expected view to contain stage, got: %s", view)
	}
}

func TestProgressModel_UpdateWithProgress(t *testing.T) {
	model := NewProgressModel("dashboard")

	model, _ = model.Update(ProgressMsg{Stage: "Reading buckets", Current: 3, Total: 5})

	view := model.View()
	if !strings.Contains(view, "3/5") {
		t.Errorf("expected view to contain '3/5', got: %s", view)
	}
	if !strings.Contains(view, "60%") {
		t.Errorf("expected view to contain '60%%', got: %s", view)
	}
}

func TestProgressModel_Complete(t *testing.T) {
	model := NewProgressModel("dashboard")

	model, _ = model.Update(ProgressMsg{Stage: "complete"})

	if !model.done {
		t.Error("expected model to be done after 'complete' stage")
	}
	if view := model.View(); !strings.Contains(view, "Complete") {
		t.Errorf("expected view to contain 'Complete', got: %s", view)
	}

	model, cmd := model.Update(SpinnerTickMsg{})
	if cmd != nil {
		t.Error("expected spinner to stop once complete")
	}

	model = model.Reset()
	if model.done {
		t.Error("expected Reset to clear done")
	}
}

func TestProgressModel_SpinnerAdvances(t *testing.T) {
	model := NewProgressModel("dashboard")

	model, cmd := model.Update(SpinnerTickMsg{})
	if model.spinnerFrame != 1 {
		t.Errorf("spinnerFrame = %d, want 1", model.spinnerFrame)
	}
	if cmd == nil {
		t.Error("expected another tick while loading")
	}
}

func TestProgressModel_ImplementsUpdate(t *testing.T) {
	var _ interface {
		Update(tea.Msg) (ProgressModel, tea.Cmd)
	} = ProgressModel{}
}
