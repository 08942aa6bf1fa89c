package pipeline

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/aide-dev/aide/internal/model"
	"github.com/aide-dev/aide/internal/source"
	"github.com/aide-dev/aide/internal/store"
)

// IngestResult summarizes one ingest run.
type IngestResult struct {
	TotalFiles   int
	ParsedFiles  int
	SkippedFiles int // unchanged since last ingest
	FileErrors   int
	LinesSkipped int
	Sessions     int
	ProjectCount int
}

// ProgressFunc is called as files are parsed. current counts processed
// files, total is the number scheduled.
type ProgressFunc func(current, total int)

// fileResult pairs a parsed file with its origin for persistence.
type fileResult struct {
	df       source.DiscoveredFile
	events   *source.FileEvents
	err      error
	size     int64
	mtimeNs  int64
	sessions []model.Session
}

// Ingest discovers JSONL files under logDir, parses the new or changed
// ones on a bounded worker pool, and persists every session through the
// store's replace-on-reingest path. With full set, the ingest log is
// ignored and everything is reparsed.
func Ingest(logDir string, st *store.Store, full bool, progressFn ProgressFunc) (*IngestResult, error) {
	files, err := source.ScanDir(logDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", logDir, err)
	}

	result := &IngestResult{
		TotalFiles:   len(files),
		ProjectCount: source.CountProjects(files),
	}
	if len(files) == 0 {
		return result, nil
	}

	tracked := map[string]store.IngestedFile{}
	if !full {
		tracked, err = st.IngestedFiles()
		if err != nil {
			return nil, fmt.Errorf("reading ingest log: %w", err)
		}
	}

	var toParse []fileResult
	for _, f := range files {
		info, err := os.Stat(f.Path)
		if err != nil {
			result.FileErrors++
			continue
		}
		if prev, ok := tracked[f.Path]; ok &&
			prev.SizeBytes == info.Size() && prev.MtimeNs == info.ModTime().UnixNano() {
			result.SkippedFiles++
			continue
		}
		toParse = append(toParse, fileResult{
			df:      f,
			size:    info.Size(),
			mtimeNs: info.ModTime().UnixNano(),
		})
	}

	if len(toParse) == 0 {
		return result, nil
	}

	parseAll(toParse, progressFn)

	// Persistence is serialized: sqlite is a single writer, and a session
	// id seen in two files must not be replaced concurrently.
	for i := range toParse {
		fr := &toParse[i]
		if fr.err != nil {
			result.FileErrors++
			continue
		}
		result.ParsedFiles++
		result.LinesSkipped += fr.events.LinesSkipped

		for _, s := range fr.sessions {
			if err := st.ReplaceSession(s); err != nil {
				return result, fmt.Errorf("persisting session %s: %w", s.SessionID, err)
			}
			result.Sessions++
		}
		if err := st.LogIngest(fr.df.Path, fr.size, fr.mtimeNs, len(fr.sessions)); err != nil {
			return result, fmt.Errorf("logging ingest of %s: %w", fr.df.Path, err)
		}
	}

	return result, nil
}

// parseAll runs ParseFile + BuildSession over the work list with a
// bounded worker pool, filling each fileResult in place.
func parseAll(work []fileResult, progressFn ProgressFunc) {
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(work) {
		numWorkers = len(work)
	}

	jobs := make(chan int, len(work))
	for i := range work {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	var processed atomic.Int64

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				fr := &work[idx]
				fr.events, fr.err = source.ParseFile(fr.df.Path)
				if fr.err == nil {
					for id, ev := range fr.events.Sessions {
						if len(ev.Turns) == 0 {
							continue
						}
						fr.sessions = append(fr.sessions, BuildSession(id, ev, fr.df))
					}
				}
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(work))
				}
			}
		}()
	}
	wg.Wait()
}
