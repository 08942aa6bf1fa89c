package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/aide-dev/aide/internal/model"
)

// ErrNotFound is returned for point lookups on unknown session ids.
var ErrNotFound = errors.New("session not found")

const sessionColumns = `session_id, project_name, project_path, source_file, title, git_branch,
	started_at, ended_at, duration_secs, active_secs,
	input_tokens, output_tokens, cache_read_tokens, cache_creation_tokens,
	estimated_cost_usd, turn_count, user_turns, assistant_turns,
	tool_calls, file_reads, file_writes, file_edits, bash_calls, tool_errors,
	compaction_count, peak_context_tokens, rework_files, test_after_edit_rate,
	thinking_chars, thinking_turns, permission_mode,
	turn_duration_total_ms, turn_duration_count, turn_duration_max_ms`

func scanSession(row interface{ Scan(dest ...any) error }) (model.Session, error) {
	var s model.Session
	var startedAt, endedAt string
	var title, gitBranch, permissionMode sql.NullString

	err := row.Scan(
		&s.SessionID, &s.ProjectName, &s.ProjectPath, &s.SourceFile, &title, &gitBranch,
		&startedAt, &endedAt, &s.DurationSecs, &s.ActiveSecs,
		&s.InputTokens, &s.OutputTokens, &s.CacheReadTokens, &s.CacheCreationTokens,
		&s.EstimatedCostUSD, &s.TurnCount, &s.UserTurns, &s.AssistantTurns,
		&s.ToolCalls, &s.FileReads, &s.FileWrites, &s.FileEdits, &s.BashCalls, &s.ToolErrors,
		&s.CompactionCount, &s.PeakContextTokens, &s.ReworkFiles, &s.TestAfterEditRate,
		&s.ThinkingChars, &s.ThinkingTurns, &permissionMode,
		&s.TurnDurationTotalMs, &s.TurnDurationCount, &s.TurnDurationMaxMs,
	)
	if err != nil {
		return s, err
	}

	s.Title = title.String
	s.GitBranch = gitBranch.String
	s.PermissionMode = permissionMode.String
	s.StartedAt = parseTime(startedAt)
	s.EndedAt = parseTime(endedAt)
	return s, nil
}

// GetSession fetches one session record (without turns or blocks).
// Returns ErrNotFound for an unknown id.
func (s *Store) GetSession(sessionID string) (model.Session, error) {
	row := s.db.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE session_id = ?", sessionID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, ErrNotFound
	}
	return sess, err
}

// SessionTurns fetches a session's turns in chronological order, with
// each turn's tool invocations attached.
func (s *Store) SessionTurns(sessionID string) ([]model.Turn, error) {
	rows, err := s.db.Query(`SELECT idx, uuid, parent_uuid, role, type, timestamp,
		input_tokens, output_tokens, cache_read_tokens, cache_creation_tokens,
		content_length, prompt_length, thinking_chars, model, stop_reason
		FROM turns WHERE session_id = ? ORDER BY idx`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var turns []model.Turn
	idxOf := make(map[int]int)
	for rows.Next() {
		var t model.Turn
		var idx int
		var ts string
		var uuid, parentUUID, mdl, stopReason sql.NullString
		err := rows.Scan(&idx, &uuid, &parentUUID, &t.Role, &t.Type, &ts,
			&t.InputTokens, &t.OutputTokens, &t.CacheReadTokens, &t.CacheCreationTokens,
			&t.ContentLength, &t.PromptLength, &t.ThinkingChars, &mdl, &stopReason)
		if err != nil {
			return nil, err
		}
		t.SessionID = sessionID
		t.UUID = uuid.String
		t.ParentUUID = parentUUID.String
		t.Model = mdl.String
		t.StopReason = stopReason.String
		t.Timestamp = parseTime(ts)
		idxOf[idx] = len(turns)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	toolRows, err := s.db.Query(`SELECT turn_idx, tool_name, file_path, command,
		description, is_error, old_length, new_length, timestamp
		FROM tool_calls WHERE session_id = ? ORDER BY turn_idx, seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = toolRows.Close() }()

	for toolRows.Next() {
		var turnIdx, isError int
		var inv model.ToolInvocation
		var filePath, command, description sql.NullString
		var ts string
		err := toolRows.Scan(&turnIdx, &inv.ToolName, &filePath, &command,
			&description, &isError, &inv.OldLength, &inv.NewLength, &ts)
		if err != nil {
			return nil, err
		}
		inv.FilePath = filePath.String
		inv.Command = command.String
		inv.Description = description.String
		inv.IsError = isError != 0
		inv.Timestamp = parseTime(ts)
		if i, ok := idxOf[turnIdx]; ok {
			turns[i].Tools = append(turns[i].Tools, inv)
		}
	}
	return turns, toolRows.Err()
}

// SessionWorkBlocks fetches a session's work blocks in order.
func (s *Store) SessionWorkBlocks(sessionID string) ([]model.WorkBlock, error) {
	rows, err := s.db.Query(`SELECT idx, started_at, ended_at, duration_secs, turn_count
		FROM work_blocks WHERE session_id = ? ORDER BY idx`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var blocks []model.WorkBlock
	for rows.Next() {
		var b model.WorkBlock
		var started, ended string
		if err := rows.Scan(&b.Index, &started, &ended, &b.DurationSecs, &b.TurnCount); err != nil {
			return nil, err
		}
		b.StartedAt = parseTime(started)
		b.EndedAt = parseTime(ended)
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// SessionToolUsage aggregates per-tool call counts for one session,
// sorted by count descending.
func (s *Store) SessionToolUsage(sessionID string) ([]model.ToolCount, error) {
	rows, err := s.db.Query(`SELECT tool_name, COUNT(*) FROM tool_calls
		WHERE session_id = ? GROUP BY tool_name ORDER BY COUNT(*) DESC, tool_name`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var counts []model.ToolCount
	for rows.Next() {
		var tc model.ToolCount
		if err := rows.Scan(&tc.ToolName, &tc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, tc)
	}
	return counts, rows.Err()
}

const fileAccessSQL = `SELECT
	file_path,
	SUM(CASE WHEN tool_name IN ('Read', 'Glob', 'Grep') THEN 1 ELSE 0 END) AS read_count,
	SUM(CASE WHEN tool_name = 'Edit' THEN 1 ELSE 0 END) AS edit_count,
	SUM(CASE WHEN tool_name = 'Write' THEN 1 ELSE 0 END) AS write_count,
	COUNT(*) AS total
FROM tool_calls
WHERE file_path IS NOT NULL AND file_path != ''`

// SessionFilesTouched aggregates file access patterns for one session,
// sorted by total accesses descending.
func (s *Store) SessionFilesTouched(sessionID string) ([]model.FileAccess, error) {
	return s.queryFileAccess(fileAccessSQL+
		" AND session_id = ? GROUP BY file_path ORDER BY total DESC, file_path", sessionID)
}

// TopFiles returns the most-accessed files across all sessions.
func (s *Store) TopFiles(limit int) ([]model.FileAccess, error) {
	return s.queryFileAccess(fileAccessSQL+
		" GROUP BY file_path ORDER BY total DESC, file_path LIMIT ?", limit)
}

func (s *Store) queryFileAccess(query string, args ...any) ([]model.FileAccess, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var files []model.FileAccess
	for rows.Next() {
		var f model.FileAccess
		if err := rows.Scan(&f.FilePath, &f.ReadCount, &f.EditCount, &f.WriteCount, &f.Total); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// ListSessions returns session records sorted most recent first,
// optionally filtered to a project (exact match) and limited.
func (s *Store) ListSessions(project string, limit int) ([]model.Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions"
	var args []any
	if project != "" {
		query += " WHERE project_name = ?"
		args = append(args, project)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Summary returns corpus-wide totals plus the per-project breakdown.
func (s *Store) Summary() (model.SummaryStats, error) {
	var stats model.SummaryStats
	var minDate, maxDate sql.NullString

	err := s.db.QueryRow(`SELECT
		COUNT(*),
		COUNT(DISTINCT project_name),
		COALESCE(SUM(estimated_cost_usd), 0),
		MIN(started_at), MAX(started_at)
		FROM sessions`).Scan(
		&stats.TotalSessions, &stats.TotalProjects, &stats.TotalCostUSD, &minDate, &maxDate)
	if err != nil {
		return stats, fmt.Errorf("summary totals: %w", err)
	}
	stats.FirstSession = parseTime(minDate.String)
	stats.LastSession = parseTime(maxDate.String)

	stats.ByProject, err = s.Projects()
	return stats, err
}

// Projects returns per-project rollups sorted by cost descending.
func (s *Store) Projects() ([]model.ProjectStats, error) {
	rows, err := s.db.Query(`SELECT
		project_name,
		COUNT(*),
		COALESCE(SUM(input_tokens + output_tokens + cache_read_tokens + cache_creation_tokens), 0),
		COALESCE(SUM(estimated_cost_usd), 0),
		COALESCE(SUM(active_secs), 0),
		COALESCE(SUM(tool_calls), 0)
		FROM sessions GROUP BY project_name ORDER BY SUM(estimated_cost_usd) DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var projects []model.ProjectStats
	for rows.Next() {
		var p model.ProjectStats
		err := rows.Scan(&p.Project, &p.Sessions, &p.TotalTokens,
			&p.EstimatedCostUSD, &p.ActiveSecs, &p.ToolCalls)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Daily returns per-calendar-date rollups across all projects, most
// recent first, limited to the given number of days (0 = all).
func (s *Store) Daily(days int) ([]model.DailyStats, error) {
	query := `SELECT
		date(started_at),
		COUNT(*),
		COALESCE(SUM(input_tokens), 0),
		COALESCE(SUM(output_tokens), 0),
		COALESCE(SUM(cache_read_tokens), 0),
		COALESCE(SUM(estimated_cost_usd), 0),
		COALESCE(SUM(duration_secs), 0),
		COALESCE(SUM(tool_calls), 0)
		FROM sessions
		GROUP BY date(started_at)
		ORDER BY date(started_at) DESC`
	var args []any
	if days > 0 {
		query += " LIMIT ?"
		args = append(args, days)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var daily []model.DailyStats
	for rows.Next() {
		var d model.DailyStats
		err := rows.Scan(&d.Date, &d.Sessions, &d.InputTokens, &d.OutputTokens,
			&d.CacheReadTokens, &d.EstimatedCostUSD, &d.DurationSecs, &d.ToolCalls)
		if err != nil {
			return nil, err
		}
		daily = append(daily, d)
	}
	return daily, rows.Err()
}

// Effectiveness computes corpus-wide derived ratios from stored
// session counters. Zero denominators yield 0.
func (s *Store) Effectiveness() (model.EffectivenessStats, error) {
	var e model.EffectivenessStats
	var input, output, cacheRead, cacheCreation int64
	var tools, edits, writes, reads, userTurns, assistantTurns, compacted int64

	err := s.db.QueryRow(`SELECT
		COUNT(*),
		COALESCE(SUM(input_tokens), 0),
		COALESCE(SUM(output_tokens), 0),
		COALESCE(SUM(cache_read_tokens), 0),
		COALESCE(SUM(cache_creation_tokens), 0),
		COALESCE(SUM(tool_calls), 0),
		COALESCE(SUM(file_edits), 0),
		COALESCE(SUM(file_writes), 0),
		COALESCE(SUM(file_reads), 0),
		COALESCE(SUM(user_turns), 0),
		COALESCE(SUM(assistant_turns), 0),
		COALESCE(SUM(CASE WHEN compaction_count > 0 THEN 1 ELSE 0 END), 0)
		FROM sessions`).Scan(
		&e.SessionCount, &input, &output, &cacheRead, &cacheCreation,
		&tools, &edits, &writes, &reads, &userTurns, &assistantTurns, &compacted)
	if err != nil {
		return e, fmt.Errorf("effectiveness totals: %w", err)
	}

	inputDenom := input + cacheRead + cacheCreation
	editWrite := edits + writes
	ioTotal := input + output
	allTokens := inputDenom + output

	if inputDenom > 0 {
		e.CacheHitRate = float64(cacheRead) / float64(inputDenom)
	}
	if tools > 0 {
		e.EditRatio = float64(editWrite) / float64(tools)
	}
	if e.SessionCount > 0 {
		e.CompactionRate = float64(compacted) / float64(e.SessionCount)
	}
	if editWrite > 0 {
		e.ReadToEditRatio = float64(reads) / float64(editWrite)
	} else {
		e.ReadToEditRatio = float64(reads)
	}
	if ioTotal > 0 {
		e.OutputRatio = float64(output) / float64(ioTotal)
	}
	if userTurns > 0 {
		e.TokensPerUserTurn = allTokens / userTurns
		e.TurnsPerUserTurn = float64(assistantTurns) / float64(userTurns)
	}
	return e, nil
}

// SessionCount returns the number of stored sessions.
func (s *Store) SessionCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n)
	return n, err
}
