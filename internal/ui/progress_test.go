package ui

import (
	"errors"
	"strings"
	"testing"

	"suppressible/internal/driver"
)

func TestApplyEventTracksFiles(t *testing.T) {
	m := NewProgressModel("coalesce", nil).(*progressModel)
	m.applyEvent(driver.Event{File: "a/A.java", Step: driver.StepParse, Status: driver.StatusQueued})
	m.applyEvent(driver.Event{File: "a/B.java", Step: driver.StepParse, Status: driver.StatusQueued})
	m.applyEvent(driver.Event{File: "a/A.java", Step: driver.StepRewrite, Status: driver.StatusWorking})
	m.applyEvent(driver.Event{File: "a/B.java", Step: driver.StepParse, Status: driver.StatusError, Err: errors.New("boom")})
	m.applyEvent(driver.Event{File: "a/B.java", Step: driver.StepParse, Status: driver.StatusError})
	m.applyEvent(driver.Event{Step: driver.StepApply, Status: driver.StatusWorking})

	if len(m.items) != 2 {
		t.Fatalf("items = %d, want 2", len(m.items))
	}
	if got := m.items[0].status; got != "rewriting" {
		t.Errorf("A status = %q, want rewriting", got)
	}
	if got := m.items[1].status; got != "error" {
		t.Errorf("B status = %q, want error", got)
	}
	if m.failed != 1 {
		t.Errorf("failed = %d, want 1", m.failed)
	}
	if got, want := m.fraction(), (0.6+1.0)/2; got != want {
		t.Errorf("fraction = %v, want %v", got, want)
	}
}

func TestViewListsRecentRows(t *testing.T) {
	m := NewProgressModel("intercept", nil).(*progressModel)
	for i := 0; i < maxRows+3; i++ {
		m.applyEvent(driver.Event{File: string(rune('a'+i)) + ".java", Step: driver.StepApply, Status: driver.StatusDone})
	}
	m.done = true
	view := m.View()
	if !strings.Contains(view, "done: intercept (15 files)") {
		t.Errorf("header missing:\n%s", view)
	}
	if !strings.Contains(view, "3 more") {
		t.Errorf("overflow line missing:\n%s", view)
	}
	if strings.Contains(view, " a.java") {
		t.Errorf("oldest row should scroll off:\n%s", view)
	}
}

func TestTruncateKeepsTail(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.java", 20, "short.java"},
		{"src/main/java/com/example/Foo.java", 15, "...ple/Foo.java"},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
