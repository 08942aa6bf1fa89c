package autopsy

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aide-dev/aide/internal/model"
)

func TestSuggest_RepeatedReads(t *testing.T) {
	files := []model.FileAccess{
		{FilePath: "/pkg/sub.go", ReadCount: 3, Total: 3},
		{FilePath: "/pkg/core.go", ReadCount: 5, Total: 5},
		{FilePath: "/pkg/util.go", ReadCount: 2, Total: 2},
	}

	// One suggestion per repeatedly read file, hottest first.
	out := Suggest(model.Session{}, files, 0.9, 0)
	if len(out) != 2 {
		t.Fatalf("suggestions = %d, want 2", len(out))
	}
	for _, s := range out {
		if s.Severity != SeverityHigh {
			t.Errorf("severity = %q, want high", s.Severity)
		}
		if s.Category != "context" {
			t.Errorf("category = %q, want context", s.Category)
		}
		if strings.Contains(s.Evidence, "/pkg/util.go") {
			t.Errorf("file under the threshold listed: %q", s.Evidence)
		}
	}
	if !strings.Contains(out[0].Evidence, "/pkg/core.go (5x)") {
		t.Errorf("first evidence = %q, want /pkg/core.go (5x)", out[0].Evidence)
	}
	if !strings.Contains(out[1].Evidence, "/pkg/sub.go (3x)") {
		t.Errorf("second evidence = %q, want /pkg/sub.go (3x)", out[1].Evidence)
	}
}

func TestSuggest_RepeatedReadsCappedAtTen(t *testing.T) {
	var files []model.FileAccess
	for i := 0; i < 12; i++ {
		files = append(files, model.FileAccess{
			FilePath:  fmt.Sprintf("/f%02d.go", i),
			ReadCount: 3 + i,
			Total:     3 + i,
		})
	}

	out := Suggest(model.Session{}, files, 0.9, 0)
	if len(out) != 10 {
		t.Fatalf("suggestions = %d, want 10", len(out))
	}
	if !strings.Contains(out[0].Evidence, "/f11.go (14x)") {
		t.Errorf("first evidence = %q, want the hottest file", out[0].Evidence)
	}
}

func TestSuggest_TwoReadsIsFine(t *testing.T) {
	files := []model.FileAccess{
		{FilePath: "/a.go", ReadCount: 2, Total: 2},
	}
	if out := Suggest(model.Session{}, files, 0.9, 0); len(out) != 0 {
		t.Errorf("suggestions = %v, want none", out)
	}
}

func TestSuggest_LowCacheHitRate(t *testing.T) {
	out := Suggest(model.Session{}, nil, 0.3, 0)
	if len(out) != 1 || out[0].Severity != SeverityMedium {
		t.Fatalf("suggestions = %v, want one medium", out)
	}

	// A session that never hit the cache is the worst case, not a pass.
	if out := Suggest(model.Session{}, nil, 0, 0); len(out) != 1 {
		t.Errorf("suggestions = %v, want one for zero rate", out)
	}

	if out := Suggest(model.Session{}, nil, 0.5, 0); len(out) != 0 {
		t.Errorf("suggestions = %v, exactly 0.50 should not fire", out)
	}
}

func TestSuggest_Compactions(t *testing.T) {
	if out := Suggest(model.Session{}, nil, 0.9, 1); len(out) != 0 {
		t.Errorf("one compaction should not fire: %v", out)
	}
	out := Suggest(model.Session{}, nil, 0.9, 2)
	if len(out) != 1 || out[0].Severity != SeverityMedium {
		t.Fatalf("suggestions = %v, want one medium", out)
	}
}

func TestSuggest_HeavyToolUse(t *testing.T) {
	out := Suggest(model.Session{ToolCalls: 50}, nil, 0.9, 0)
	if len(out) != 1 || out[0].Severity != SeverityLow {
		t.Fatalf("suggestions = %v, want one low", out)
	}
	if out := Suggest(model.Session{ToolCalls: 49}, nil, 0.9, 0); len(out) != 0 {
		t.Errorf("49 calls should not fire: %v", out)
	}
}

func TestSuggest_RulesAreIndependent(t *testing.T) {
	files := []model.FileAccess{
		{FilePath: "/a.go", ReadCount: 3, Total: 3},
	}
	out := Suggest(model.Session{ToolCalls: 80}, files, 0.2, 3)
	if len(out) != 4 {
		t.Fatalf("suggestions = %d, want all four rules fired", len(out))
	}
}
