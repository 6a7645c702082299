package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeArchive, true},
		{LevelPhase, ScopeArchive, true},
		{LevelPhase, ScopeUnit, false},
		{LevelDetail, ScopeUnit, true},
		{LevelDetail, ScopeEntry, false},
		{LevelDebug, ScopeEntry, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Errorf("%v.ShouldEmit(%v) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDetail, Mode: ModeStream, Format: FormatNDJSON, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	root := Begin(tr, ScopeDriver, "coalesce", 0)
	Begin(tr, ScopeEntry, "hidden", root.ID()).End("")
	Begin(tr, ScopeUnit, "unit:A.java", root.ID()).WithExtra("findings", "2").End("ok")
	root.End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 events, got %d:\n%s", len(lines), buf.String())
	}
	var ev jsonEvent
	if err := json.Unmarshal([]byte(lines[2]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != "end" || ev.Scope != "unit" || ev.Extra["findings"] != "2" || ev.ParentID != root.ID() {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestRingDumpAtErrorLevel(t *testing.T) {
	tr, err := New(Config{Level: LevelError, Mode: ModeStream, RingSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	ring, ok := Ring(tr)
	if !ok {
		t.Fatal("error level should use a ring")
	}
	for _, name := range []string{"a", "b", "c"} {
		Point(tr, ScopePhase, name, "", 0)
	}
	Point(tr, ScopeUnit, "skipped", "", 0)

	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "• a") || !strings.Contains(out, "• b") || !strings.Contains(out, "• c") {
		t.Errorf("ring should keep the last two events:\n%s", out)
	}
}

func TestContextDefaultsToNop(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatal("expected Nop")
	}
	tr := NewRingTracer(4, LevelPhase)
	if FromContext(WithTracer(context.Background(), tr)) != Tracer(tr) {
		t.Fatal("tracer not propagated")
	}
	if Begin(Nop, ScopeDriver, "x", 0).End("") != 0 {
		t.Fatal("nop span should not measure")
	}
}

func TestHeartbeat(t *testing.T) {
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatal("nop tracer should not start a heartbeat")
	}
	tr := NewRingTracer(16, LevelPhase)
	h := StartHeartbeat(tr, time.Millisecond)
	deadline := time.Now().Add(5 * time.Second)
	for len(tr.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	events := tr.Snapshot()
	if len(events) == 0 || events[0].Kind != KindHeartbeat {
		t.Fatalf("expected heartbeat events, got %+v", events)
	}
}

func TestStartNestsSpans(t *testing.T) {
	ring := NewRingTracer(16, LevelDetail)
	ctx := WithTracer(context.Background(), ring)
	if ParentID(ctx) != 0 {
		t.Fatal("fresh context has a parent")
	}

	cmdCtx, cmd := Start(ctx, ScopeDriver, "intercept")
	phaseCtx, phase := Start(cmdCtx, ScopePhase, "parse")
	if ParentID(cmdCtx) != cmd.ID() || ParentID(phaseCtx) != phase.ID() {
		t.Fatalf("parents = %d, %d", ParentID(cmdCtx), ParentID(phaseCtx))
	}
	// entries are below the level: the phase stays the parent
	entryCtx, entry := Start(phaseCtx, ScopeEntry, "A.class")
	if entry.ID() != 0 || ParentID(entryCtx) != phase.ID() {
		t.Fatalf("filtered span changed the parent to %d", ParentID(entryCtx))
	}
	Begin(ring, ScopeUnit, "unit:A.java", ParentID(phaseCtx)).End("")
	phase.End("")
	cmd.End("")

	parents := map[string]uint64{}
	for _, ev := range ring.Snapshot() {
		if ev.Kind == KindSpanBegin {
			parents[ev.Name] = ev.ParentID
		}
	}
	want := map[string]uint64{"intercept": 0, "parse": cmd.ID(), "unit:A.java": phase.ID()}
	for name, p := range want {
		if got, ok := parents[name]; !ok || got != p {
			t.Errorf("%s parent = %d (%v), want %d", name, got, ok, p)
		}
	}
}

func TestTeeKeepsRingForFailureDump(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf, RingSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*TeeTracer); !ok {
		t.Fatalf("both mode built %T", tr)
	}
	Point(tr, ScopePhase, "load", "3 files", 0)
	ring, ok := Ring(tr)
	if !ok || len(ring.Snapshot()) != 1 {
		t.Fatal("tee should expose its ring")
	}
	if !strings.Contains(buf.String(), "load") {
		t.Errorf("stream missed the event: %q", buf.String())
	}
}
