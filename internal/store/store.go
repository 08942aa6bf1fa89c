// Package store persists session records in SQLite and serves the
// rollup queries the commands and the API read from.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/aide-dev/aide/internal/model"
)

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceSession writes a session and its children in one transaction.
// Re-ingesting a session id replaces everything previously stored for
// it; counts never double.
func (s *Store) ReplaceSession(sess model.Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)

	_, err = tx.Exec(`INSERT OR REPLACE INTO sessions (
		session_id, project_name, project_path, source_file, title, git_branch,
		started_at, ended_at, duration_secs, active_secs,
		input_tokens, output_tokens, cache_read_tokens, cache_creation_tokens,
		estimated_cost_usd, turn_count, user_turns, assistant_turns,
		tool_calls, file_reads, file_writes, file_edits, bash_calls, tool_errors,
		compaction_count, peak_context_tokens, rework_files, test_after_edit_rate,
		thinking_chars, thinking_turns, permission_mode,
		turn_duration_total_ms, turn_duration_count, turn_duration_max_ms, ingested_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.SessionID, sess.ProjectName, sess.ProjectPath, sess.SourceFile, sess.Title, sess.GitBranch,
		formatTime(sess.StartedAt), formatTime(sess.EndedAt), sess.DurationSecs, sess.ActiveSecs,
		sess.InputTokens, sess.OutputTokens, sess.CacheReadTokens, sess.CacheCreationTokens,
		sess.EstimatedCostUSD, sess.TurnCount, sess.UserTurns, sess.AssistantTurns,
		sess.ToolCalls, sess.FileReads, sess.FileWrites, sess.FileEdits, sess.BashCalls, sess.ToolErrors,
		sess.CompactionCount, sess.PeakContextTokens, sess.ReworkFiles, sess.TestAfterEditRate,
		sess.ThinkingChars, sess.ThinkingTurns, sess.PermissionMode,
		sess.TurnDurationTotalMs, sess.TurnDurationCount, sess.TurnDurationMaxMs, now,
	)
	if err != nil {
		return err
	}

	for _, table := range []string{"turns", "tool_calls", "work_blocks"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE session_id = ?", sess.SessionID); err != nil {
			return err
		}
	}

	for i, t := range sess.Turns {
		_, err = tx.Exec(`INSERT INTO turns (
			session_id, idx, uuid, parent_uuid, role, type, timestamp,
			input_tokens, output_tokens, cache_read_tokens, cache_creation_tokens,
			content_length, prompt_length, thinking_chars, model, stop_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.SessionID, i, t.UUID, t.ParentUUID, t.Role, t.Type, formatTime(t.Timestamp),
			t.InputTokens, t.OutputTokens, t.CacheReadTokens, t.CacheCreationTokens,
			t.ContentLength, t.PromptLength, t.ThinkingChars, t.Model, t.StopReason,
		)
		if err != nil {
			return err
		}

		for j, inv := range t.Tools {
			isError := 0
			if inv.IsError {
				isError = 1
			}
			_, err = tx.Exec(`INSERT INTO tool_calls (
				session_id, turn_idx, seq, tool_name, file_path, command,
				description, is_error, old_length, new_length, timestamp
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				sess.SessionID, i, j, inv.ToolName, inv.FilePath, inv.Command,
				inv.Description, isError, inv.OldLength, inv.NewLength, formatTime(inv.Timestamp),
			)
			if err != nil {
				return err
			}
		}
	}

	for _, b := range sess.Blocks {
		_, err = tx.Exec(`INSERT INTO work_blocks (
			session_id, idx, started_at, ended_at, duration_secs, turn_count
		) VALUES (?, ?, ?, ?, ?, ?)`,
			sess.SessionID, b.Index, formatTime(b.StartedAt), formatTime(b.EndedAt),
			b.DurationSecs, b.TurnCount,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// IngestedFile holds the tracked size and mtime for a source file.
type IngestedFile struct {
	SizeBytes int64
	MtimeNs   int64
}

// IngestedFiles returns the ingest log keyed by source file path.
func (s *Store) IngestedFiles() (map[string]IngestedFile, error) {
	rows, err := s.db.Query("SELECT source_file, size_bytes, mtime_ns FROM ingest_log")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]IngestedFile)
	for rows.Next() {
		var path string
		var f IngestedFile
		if err := rows.Scan(&path, &f.SizeBytes, &f.MtimeNs); err != nil {
			return nil, err
		}
		result[path] = f
	}
	return result, rows.Err()
}

// LogIngest records a processed source file in the ingest log.
func (s *Store) LogIngest(sourceFile string, sizeBytes, mtimeNs int64, sessionCount int) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO ingest_log
		(source_file, size_bytes, mtime_ns, session_count, ingested_at)
		VALUES (?, ?, ?, ?, ?)`,
		sourceFile, sizeBytes, mtimeNs, sessionCount, time.Now().UTC().Format(time.RFC3339))
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
