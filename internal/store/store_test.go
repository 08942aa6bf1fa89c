package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aide-dev/aide/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func sampleSession(id, project string, startedAt time.Time) model.Session {
	return model.Session{
		SessionID:        id,
		ProjectName:      project,
		ProjectPath:      "-home-u-projects-" + project,
		SourceFile:       "/logs/" + id + ".jsonl",
		Title:            "sample",
		GitBranch:        "main",
		StartedAt:        startedAt,
		EndedAt:          startedAt.Add(10 * time.Minute),
		DurationSecs:     600,
		ActiveSecs:       600,
		InputTokens:      1000,
		OutputTokens:     500,
		CacheReadTokens:  8000,
		EstimatedCostUSD: 0.0129,
		TurnCount:        2,
		UserTurns:        1,
		AssistantTurns:   1,
		ToolCalls:        2,
		FileReads:        1,
		FileEdits:        1,
		PermissionMode:   "acceptEdits",
		Turns: []model.Turn{
			{Role: "user", Timestamp: startedAt, PromptLength: 5},
			{
				Role: "assistant", Timestamp: startedAt.Add(time.Minute),
				InputTokens: 1000, OutputTokens: 500, CacheReadTokens: 8000,
				Model: "claude-sonnet-4-5",
				Tools: []model.ToolInvocation{
					{ToolName: "Read", FilePath: "/src/a.go", Timestamp: startedAt.Add(time.Minute)},
					{ToolName: "Edit", FilePath: "/src/a.go", OldLength: 3, NewLength: 9, IsError: true, Timestamp: startedAt.Add(time.Minute)},
				},
			},
		},
		Blocks: []model.WorkBlock{
			{Index: 0, StartedAt: startedAt, EndedAt: startedAt.Add(10 * time.Minute), DurationSecs: 600, TurnCount: 2},
		},
	}
}

func TestReplaceSession_RoundTrip(t *testing.T) {
	st := openTestStore(t)
	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := st.ReplaceSession(sampleSession("s1", "demo", started)); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetSession("s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ProjectName != "demo" || got.Title != "sample" || got.GitBranch != "main" {
		t.Errorf("session = %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.CacheReadTokens != 8000 || got.EstimatedCostUSD != 0.0129 {
		t.Errorf("tokens/cost = %d/%f", got.CacheReadTokens, got.EstimatedCostUSD)
	}
	if got.PermissionMode != "acceptEdits" {
		t.Errorf("PermissionMode = %q", got.PermissionMode)
	}

	turns, err := st.SessionTurns("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(turns))
	}
	if len(turns[1].Tools) != 2 {
		t.Fatalf("tools = %d, want 2", len(turns[1].Tools))
	}
	edit := turns[1].Tools[1]
	if edit.ToolName != "Edit" || !edit.IsError || edit.NewLength != 9 {
		t.Errorf("edit = %+v", edit)
	}

	blocks, err := st.SessionWorkBlocks("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 || blocks[0].DurationSecs != 600 {
		t.Errorf("blocks = %+v", blocks)
	}
}

func TestReplaceSession_ReingestDoesNotDouble(t *testing.T) {
	st := openTestStore(t)
	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	sess := sampleSession("s1", "demo", started)
	if err := st.ReplaceSession(sess); err != nil {
		t.Fatal(err)
	}
	// Second ingest of the same session with fewer turns and new totals.
	sess.Turns = sess.Turns[:1]
	sess.TurnCount = 1
	sess.ToolCalls = 0
	sess.InputTokens = 1234
	if err := st.ReplaceSession(sess); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetSession("s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.InputTokens != 1234 || got.TurnCount != 1 {
		t.Errorf("replace did not win: %+v", got)
	}

	n, err := st.SessionCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("sessions = %d, want 1", n)
	}

	turns, err := st.SessionTurns("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 1 {
		t.Errorf("turns = %d, want 1 (children replaced, not appended)", len(turns))
	}
	tools, err := st.SessionToolUsage("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tools) != 0 {
		t.Errorf("tool usage = %v, want none after replace", tools)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	st := openTestStore(t)
	_, err := st.GetSession("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListSessions_FilterAndOrder(t *testing.T) {
	st := openTestStore(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for _, s := range []model.Session{
		sampleSession("s1", "alpha", base),
		sampleSession("s2", "beta", base.Add(24*time.Hour)),
		sampleSession("s3", "alpha", base.Add(48*time.Hour)),
	} {
		if err := st.ReplaceSession(s); err != nil {
			t.Fatal(err)
		}
	}

	all, err := st.ListSessions("", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].SessionID != "s3" {
		t.Errorf("order wrong: %v", sessionIDs(all))
	}

	alpha, err := st.ListSessions("alpha", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(alpha) != 2 {
		t.Errorf("alpha sessions = %d, want 2", len(alpha))
	}

	limited, err := st.ListSessions("", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limited = %d, want 1", len(limited))
	}
}

func sessionIDs(sessions []model.Session) []string {
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.SessionID)
	}
	return ids
}

func TestRollups(t *testing.T) {
	st := openTestStore(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for _, s := range []model.Session{
		sampleSession("s1", "alpha", base),
		sampleSession("s2", "alpha", base.Add(2*time.Hour)),
		sampleSession("s3", "beta", base.Add(24*time.Hour)),
	} {
		if err := st.ReplaceSession(s); err != nil {
			t.Fatal(err)
		}
	}

	summary, err := st.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalSessions != 3 || summary.TotalProjects != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.ByProject) != 2 {
		t.Fatalf("ByProject = %d, want 2", len(summary.ByProject))
	}

	daily, err := st.Daily(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(daily) != 2 {
		t.Fatalf("daily rows = %d, want 2", len(daily))
	}
	// Most recent day first.
	if daily[0].Date != "2025-06-02" || daily[0].Sessions != 1 {
		t.Errorf("daily[0] = %+v", daily[0])
	}
	if daily[1].Date != "2025-06-01" || daily[1].Sessions != 2 {
		t.Errorf("daily[1] = %+v", daily[1])
	}
	if daily[1].InputTokens != 2000 {
		t.Errorf("daily input = %d, want 2000", daily[1].InputTokens)
	}

	files, err := st.TopFiles(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("top files = %d, want 1", len(files))
	}
	f := files[0]
	if f.FilePath != "/src/a.go" || f.ReadCount != 3 || f.EditCount != 3 || f.Total != 6 {
		t.Errorf("file = %+v", f)
	}
}

func TestEffectiveness(t *testing.T) {
	st := openTestStore(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	sess := sampleSession("s1", "demo", base)
	sess.CompactionCount = 1
	if err := st.ReplaceSession(sess); err != nil {
		t.Fatal(err)
	}

	e, err := st.Effectiveness()
	if err != nil {
		t.Fatal(err)
	}
	if e.SessionCount != 1 {
		t.Fatalf("SessionCount = %d", e.SessionCount)
	}
	// 8000 cached of 9000 total input-side tokens.
	want := 8000.0 / 9000.0
	if diff := e.CacheHitRate - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CacheHitRate = %f, want %f", e.CacheHitRate, want)
	}
	if e.EditRatio != 0.5 {
		t.Errorf("EditRatio = %f, want 0.5 (1 edit of 2 tool calls)", e.EditRatio)
	}
	if e.CompactionRate != 1.0 {
		t.Errorf("CompactionRate = %f, want 1.0", e.CompactionRate)
	}
	if e.TurnsPerUserTurn != 1.0 {
		t.Errorf("TurnsPerUserTurn = %f, want 1.0", e.TurnsPerUserTurn)
	}
}

func TestEffectiveness_EmptyStore(t *testing.T) {
	st := openTestStore(t)
	e, err := st.Effectiveness()
	if err != nil {
		t.Fatal(err)
	}
	if e.SessionCount != 0 || e.CacheHitRate != 0 || e.TurnsPerUserTurn != 0 {
		t.Errorf("empty store should yield zeros: %+v", e)
	}
}

func TestIngestLog(t *testing.T) {
	st := openTestStore(t)

	if err := st.LogIngest("/logs/a.jsonl", 1024, 111, 2); err != nil {
		t.Fatal(err)
	}
	if err := st.LogIngest("/logs/a.jsonl", 2048, 222, 3); err != nil {
		t.Fatal(err)
	}

	files, err := st.IngestedFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("files = %d, want 1", len(files))
	}
	f := files["/logs/a.jsonl"]
	if f.SizeBytes != 2048 || f.MtimeNs != 222 {
		t.Errorf("entry = %+v, want latest values", f)
	}
}
