package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeLog creates a temp JSONL file from raw lines and returns its path.
func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseFile_UserAndAssistantTurns(t *testing.T) {
	path := writeLog(t,
		`{"type":"user","sessionId":"s1","timestamp":"2025-06-01T10:00:00Z","gitBranch":"main","permissionMode":"acceptEdits","message":{"role":"user","content":"fix the bug"}}`,
		`{"type":"assistant","sessionId":"s1","timestamp":"2025-06-01T10:00:05Z","message":{"role":"assistant","model":"claude-sonnet-4-5","stop_reason":"end_turn","usage":{"input_tokens":100,"output_tokens":50,"cache_read_input_tokens":500,"cache_creation_input_tokens":200},"content":[{"type":"text","text":"done"}]}}`,
	)

	fe, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	se, ok := fe.Sessions["s1"]
	if !ok {
		t.Fatal("session s1 not found")
	}
	if len(se.Turns) != 2 {
		t.Fatalf("Turns = %d, want 2", len(se.Turns))
	}

	user := se.Turns[0]
	if user.Role != "user" {
		t.Errorf("Role = %q, want user", user.Role)
	}
	if user.PromptLength != len("fix the bug") {
		t.Errorf("PromptLength = %d, want %d", user.PromptLength, len("fix the bug"))
	}
	if se.GitBranch != "main" {
		t.Errorf("GitBranch = %q, want main", se.GitBranch)
	}
	if len(se.PermissionModes) != 1 || se.PermissionModes[0] != "acceptEdits" {
		t.Errorf("PermissionModes = %v, want [acceptEdits]", se.PermissionModes)
	}

	asst := se.Turns[1]
	if asst.InputTokens != 100 || asst.OutputTokens != 50 {
		t.Errorf("tokens = %d/%d, want 100/50", asst.InputTokens, asst.OutputTokens)
	}
	if asst.CacheReadTokens != 500 || asst.CacheCreationTokens != 200 {
		t.Errorf("cache tokens = %d/%d, want 500/200", asst.CacheReadTokens, asst.CacheCreationTokens)
	}
	if asst.Model != "claude-sonnet-4-5" {
		t.Errorf("Model = %q", asst.Model)
	}
	if asst.StopReason != "end_turn" {
		t.Errorf("StopReason = %q, want end_turn", asst.StopReason)
	}
	if got := asst.ContextTokens(); got != 800 {
		t.Errorf("ContextTokens = %d, want 800", got)
	}
}

func TestParseFile_MalformedLines(t *testing.T) {
	path := writeLog(t,
		`not json at all`,
		`{"type":"user","sessionId":"s1","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"hi"}}`,
		`{"type":"assistant","broken json`,
		`{"type":"user","message":{"role":"user","content":"no session id"}}`,
	)

	fe, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fe.LinesSkipped != 3 {
		t.Errorf("LinesSkipped = %d, want 3", fe.LinesSkipped)
	}
	if len(fe.Sessions["s1"].Turns) != 1 {
		t.Errorf("Turns = %d, want 1", len(fe.Sessions["s1"].Turns))
	}
}

func TestParseFile_AllLinesMalformed(t *testing.T) {
	path := writeLog(t, `garbage`, `{{{{`, `]`)

	fe, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fe.Sessions) != 0 {
		t.Errorf("Sessions = %d, want 0", len(fe.Sessions))
	}
	if fe.LinesSkipped != 3 {
		t.Errorf("LinesSkipped = %d, want 3", fe.LinesSkipped)
	}
}

func TestParseFile_SnapshotAndTitle(t *testing.T) {
	path := writeLog(t,
		`{"type":"file-history-snapshot","messageId":"x"}`,
		`{"type":"custom-title","sessionId":"s1","customTitle":"Fix login flow"}`,
		`{"type":"user","sessionId":"s1","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"go"}}`,
	)

	fe, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fe.LinesSkipped != 0 {
		t.Errorf("LinesSkipped = %d, want 0 (snapshot is not an error)", fe.LinesSkipped)
	}
	se := fe.Sessions["s1"]
	if se.Title != "Fix login flow" {
		t.Errorf("Title = %q, want Fix login flow", se.Title)
	}
	if len(se.Turns) != 1 {
		t.Errorf("Turns = %d, want 1 (title line is not a turn)", len(se.Turns))
	}
}

func TestParseFile_TurnDurations(t *testing.T) {
	path := writeLog(t,
		`{"type":"system","subtype":"turn_duration","sessionId":"s1","timestamp":"2025-06-01T10:00:00Z","durationMs":5000}`,
		`{"type":"system","subtype":"turn_duration","sessionId":"s1","timestamp":"2025-06-01T10:01:00Z","durationMs":3000}`,
		`{"type":"system","subtype":"turn_duration","sessionId":"s1","timestamp":"2025-06-01T10:02:00Z","durationMs":0}`,
	)

	fe, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	se := fe.Sessions["s1"]
	if len(se.TurnDurationsMs) != 2 {
		t.Fatalf("TurnDurationsMs = %v, want two samples", se.TurnDurationsMs)
	}
	if se.TurnDurationsMs[0] != 5000 || se.TurnDurationsMs[1] != 3000 {
		t.Errorf("TurnDurationsMs = %v, want [5000 3000]", se.TurnDurationsMs)
	}
}

func TestParseFile_CompactBoundary(t *testing.T) {
	path := writeLog(t,
		`{"type":"system","subtype":"compact_boundary","sessionId":"s1","timestamp":"2025-06-01T10:00:00Z","compactMetadata":{"trigger":"auto","preTokens":155000}}`,
	)

	fe, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	se := fe.Sessions["s1"]
	if len(se.PreCompactTokens) != 1 || se.PreCompactTokens[0] != 155000 {
		t.Errorf("PreCompactTokens = %v, want [155000]", se.PreCompactTokens)
	}
	if len(se.Turns) != 1 || se.Turns[0].Role != "system" {
		t.Errorf("expected one system turn for the boundary, got %+v", se.Turns)
	}
}

func TestParseFile_ToolUseAndErrorCorrelation(t *testing.T) {
	path := writeLog(t,
		`{"type":"assistant","sessionId":"s1","timestamp":"2025-06-01T10:00:00Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu1","name":"Edit","input":{"file_path":"/src/main.go","old_string":"abc","new_string":"abcdef"}},{"type":"tool_use","id":"tu2","name":"Bash","input":{"command":"go test ./...","description":"Run tests"}}]}}`,
		`{"type":"user","sessionId":"s1","timestamp":"2025-06-01T10:00:10Z","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu2","is_error":true}]}}`,
	)

	fe, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	se := fe.Sessions["s1"]
	tools := se.Turns[0].Tools
	if len(tools) != 2 {
		t.Fatalf("Tools = %d, want 2", len(tools))
	}

	edit := tools[0]
	if edit.ToolName != "Edit" || edit.FilePath != "/src/main.go" {
		t.Errorf("edit = %+v", edit)
	}
	if edit.OldLength != 3 || edit.NewLength != 6 {
		t.Errorf("Edit lengths = %d/%d, want 3/6", edit.OldLength, edit.NewLength)
	}
	if edit.IsError {
		t.Error("edit marked as error, only tu2 failed")
	}

	bash := tools[1]
	if bash.Command != "go test ./..." || bash.Description != "Run tests" {
		t.Errorf("bash = %+v", bash)
	}
	if !bash.IsError {
		t.Error("bash not marked as error despite failed tool_result")
	}
}

func TestParseFile_ThinkingBlocks(t *testing.T) {
	path := writeLog(t,
		`{"type":"assistant","sessionId":"s1","timestamp":"2025-06-01T10:00:00Z","message":{"role":"assistant","content":[{"type":"thinking","thinking":"hmmmm"},{"type":"text","text":"answer"}]}}`,
	)

	fe, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	turn := fe.Sessions["s1"].Turns[0]
	if turn.ThinkingChars != 6 {
		t.Errorf("ThinkingChars = %d, want 6", turn.ThinkingChars)
	}
	if turn.ContentLength != 6 {
		t.Errorf("ContentLength = %d, want 6 (thinking excluded)", turn.ContentLength)
	}
}

func TestParseFile_MultipleSessions(t *testing.T) {
	path := writeLog(t,
		`{"type":"user","sessionId":"s1","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"a"}}`,
		`{"type":"user","sessionId":"s2","timestamp":"2025-06-01T11:00:00Z","message":{"role":"user","content":"b"}}`,
		`{"type":"user","sessionId":"s1","timestamp":"2025-06-01T10:05:00Z","message":{"role":"user","content":"c"}}`,
	)

	fe, err := ParseFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fe.Sessions) != 2 {
		t.Fatalf("Sessions = %d, want 2", len(fe.Sessions))
	}
	if len(fe.Sessions["s1"].Turns) != 2 || len(fe.Sessions["s2"].Turns) != 1 {
		t.Errorf("turn split = %d/%d, want 2/1",
			len(fe.Sessions["s1"].Turns), len(fe.Sessions["s2"].Turns))
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", "2025-06-01T10:00:00Z", time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		{"fractional", "2025-06-01T10:00:00.500Z", time.Date(2025, 6, 1, 10, 0, 0, 500_000_000, time.UTC)},
		{"unparsable", "yesterday", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTimestamp(tt.input)
			if !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTimestamp_EmptyFallsBackToNow(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	got := parseTimestamp("")
	after := time.Now().UTC().Add(time.Second)
	if got.Before(before) || got.After(after) {
		t.Errorf("parseTimestamp(\"\") = %v, want roughly now", got)
	}
}
