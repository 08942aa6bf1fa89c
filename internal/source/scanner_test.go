package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDeriveProjectName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"marker", "-Users-brian-projects-slopfarm", "slopfarm"},
		{"last marker wins", "-home-a-projects-x-projects-y", "y"},
		{"no marker", "-home-brian-work-api", "api"},
		{"no hyphen", "scratch", "scratch"},
		{"trailing marker", "-Users-brian-projects-", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveProjectName(tt.input)
			if got != tt.want {
				t.Errorf("DeriveProjectName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	projDir := filepath.Join(dir, "-Users-brian-projects-slopfarm")
	subDir := filepath.Join(projDir, "subagents")
	for _, d := range []string{projDir, subDir} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			t.Fatal(err)
		}
	}

	for _, f := range []string{
		filepath.Join(projDir, "abc.jsonl"),
		filepath.Join(projDir, "notes.txt"),
		filepath.Join(subDir, "agent.jsonl"),
	} {
		if err := os.WriteFile(f, []byte("{}\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("files = %d, want 1 (txt and subagent logs excluded)", len(files))
	}
	if files[0].ProjectName != "slopfarm" {
		t.Errorf("ProjectName = %q, want slopfarm", files[0].ProjectName)
	}
	if files[0].ProjectDir != "-Users-brian-projects-slopfarm" {
		t.Errorf("ProjectDir = %q", files[0].ProjectDir)
	}
}

func TestScanDir_Missing(t *testing.T) {
	files, err := ScanDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if files != nil {
		t.Errorf("files = %v, want nil", files)
	}
}

func TestCountProjects(t *testing.T) {
	files := []DiscoveredFile{
		{ProjectName: "a"},
		{ProjectName: "b"},
		{ProjectName: "a"},
	}
	if got := CountProjects(files); got != 2 {
		t.Errorf("CountProjects = %d, want 2", got)
	}
}
