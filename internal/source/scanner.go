package source

import (
	"os"
	"path/filepath"
	"strings"
)

// projectMarker is the path component that precedes the project name in
// Claude's encoded project directory names.
const projectMarker = "-projects-"

// ScanDir walks the log directory and discovers all JSONL session files.
// Subagent logs (under a subagents/ directory) are excluded.
func ScanDir(logDir string) ([]DiscoveredFile, error) {
	info, err := os.Stat(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []DiscoveredFile

	err = filepath.WalkDir(logDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // skip unreadable entries
		}
		if d.IsDir() || filepath.Ext(path) != ".jsonl" {
			return nil
		}

		rel, _ := filepath.Rel(logDir, path)
		parts := strings.Split(rel, string(filepath.Separator))
		for _, p := range parts {
			if p == "subagents" {
				return nil
			}
		}

		projectDir := filepath.Base(filepath.Dir(path))
		files = append(files, DiscoveredFile{
			Path:        path,
			ProjectDir:  projectDir,
			ProjectName: DeriveProjectName(projectDir),
		})
		return nil
	})

	return files, err
}

// DeriveProjectName extracts a human project name from an encoded
// directory name. Claude encodes absolute paths by replacing "/" with
// "-", so "-Users-brian-projects-slopfarm" -> "slopfarm". The last
// occurrence of the projects marker wins; without one, fall back to the
// segment after the last hyphen, or the whole string.
func DeriveProjectName(dirName string) string {
	if idx := strings.LastIndex(dirName, projectMarker); idx != -1 {
		return dirName[idx+len(projectMarker):]
	}
	if idx := strings.LastIndex(dirName, "-"); idx != -1 {
		return dirName[idx+1:]
	}
	return dirName
}

// CountProjects returns the number of unique projects among files.
func CountProjects(files []DiscoveredFile) int {
	seen := make(map[string]struct{})
	for _, f := range files {
		seen[f.ProjectName] = struct{}{}
	}
	return len(seen)
}
