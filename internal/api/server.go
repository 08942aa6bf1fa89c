// Package api serves stored session analytics as a local JSON API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aide-dev/aide/internal/autopsy"
	"github.com/aide-dev/aide/internal/model"
	"github.com/aide-dev/aide/internal/store"
)

const defaultAddr = "127.0.0.1:8787"

// Server exposes read-only endpoints over an opened store.
type Server struct {
	st   *store.Store
	addr string
}

// New returns a server bound to addr (default 127.0.0.1:8787).
func New(st *store.Store, addr string) *Server {
	if addr == "" {
		addr = defaultAddr
	}
	return &Server{st: st, addr: addr}
}

// Addr returns the listen address.
func (s *Server) Addr() string { return s.addr }

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("api http server: %w", err)
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/overview", s.handleOverview)
	mux.HandleFunc("GET /api/daily", s.handleDaily)
	mux.HandleFunc("GET /api/projects", s.handleProjects)
	mux.HandleFunc("GET /api/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSession)
	mux.HandleFunc("GET /api/sessions/{id}/autopsy", s.handleAutopsy)
	mux.HandleFunc("GET /api/effectiveness", s.handleEffectiveness)
	mux.HandleFunc("GET /api/files/top", s.handleTopFiles)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

type overviewJSON struct {
	TotalSessions int            `json:"total_sessions"`
	TotalProjects int            `json:"total_projects"`
	TotalCostUSD  float64        `json:"total_cost_usd"`
	FirstSession  string         `json:"first_session,omitempty"`
	LastSession   string         `json:"last_session,omitempty"`
	Projects      []projectJSON  `json:"projects"`
}

type projectJSON struct {
	Project          string  `json:"project"`
	Sessions         int     `json:"sessions"`
	TotalTokens      int64   `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	ActiveSecs       int64   `json:"active_secs"`
	ToolCalls        int     `json:"tool_calls"`
}

func timeJSON(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toProjectJSON(ps []model.ProjectStats) []projectJSON {
	out := make([]projectJSON, 0, len(ps))
	for _, p := range ps {
		out = append(out, projectJSON{
			Project:          p.Project,
			Sessions:         p.Sessions,
			TotalTokens:      p.TotalTokens,
			EstimatedCostUSD: p.EstimatedCostUSD,
			ActiveSecs:       p.ActiveSecs,
			ToolCalls:        p.ToolCalls,
		})
	}
	return out
}

func (s *Server) handleOverview(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.st.Summary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, overviewJSON{
		TotalSessions: stats.TotalSessions,
		TotalProjects: stats.TotalProjects,
		TotalCostUSD:  stats.TotalCostUSD,
		FirstSession:  timeJSON(stats.FirstSession),
		LastSession:   timeJSON(stats.LastSession),
		Projects:      toProjectJSON(stats.ByProject),
	})
}

type dailyJSON struct {
	Date             string  `json:"date"`
	Sessions         int     `json:"sessions"`
	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	CacheReadTokens  int64   `json:"cache_read_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	DurationSecs     int64   `json:"duration_secs"`
	ToolCalls        int     `json:"tool_calls"`
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	rows, err := s.st.Daily(days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]dailyJSON, 0, len(rows))
	for _, d := range rows {
		out = append(out, dailyJSON{
			Date:             d.Date,
			Sessions:         d.Sessions,
			InputTokens:      d.InputTokens,
			OutputTokens:     d.OutputTokens,
			CacheReadTokens:  d.CacheReadTokens,
			EstimatedCostUSD: d.EstimatedCostUSD,
			DurationSecs:     d.DurationSecs,
			ToolCalls:        d.ToolCalls,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProjects(w http.ResponseWriter, _ *http.Request) {
	projects, err := s.st.Projects()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toProjectJSON(projects))
}

type sessionJSON struct {
	SessionID           string  `json:"session_id"`
	Project             string  `json:"project"`
	Title               string  `json:"title,omitempty"`
	GitBranch           string  `json:"git_branch,omitempty"`
	StartedAt           string  `json:"started_at"`
	EndedAt             string  `json:"ended_at"`
	DurationSecs        int64   `json:"duration_secs"`
	ActiveSecs          int64   `json:"active_secs"`
	InputTokens         int64   `json:"input_tokens"`
	OutputTokens        int64   `json:"output_tokens"`
	CacheReadTokens     int64   `json:"cache_read_tokens"`
	CacheCreationTokens int64   `json:"cache_creation_tokens"`
	EstimatedCostUSD    float64 `json:"estimated_cost_usd"`
	TurnCount           int     `json:"turn_count"`
	UserTurns           int     `json:"user_turns"`
	AssistantTurns      int     `json:"assistant_turns"`
	ToolCalls           int     `json:"tool_calls"`
	ToolErrors          int     `json:"tool_errors"`
	CompactionCount     int     `json:"compaction_count"`
	PeakContextTokens   int64   `json:"peak_context_tokens"`
	ReworkFiles         int     `json:"rework_files"`
	TestAfterEditRate   float64 `json:"test_after_edit_rate"`
	PermissionMode      string  `json:"permission_mode,omitempty"`
}

func toSessionJSON(sess model.Session) sessionJSON {
	return sessionJSON{
		SessionID:           sess.SessionID,
		Project:             sess.ProjectName,
		Title:               sess.Title,
		GitBranch:           sess.GitBranch,
		StartedAt:           timeJSON(sess.StartedAt),
		EndedAt:             timeJSON(sess.EndedAt),
		DurationSecs:        sess.DurationSecs,
		ActiveSecs:          sess.ActiveSecs,
		InputTokens:         sess.InputTokens,
		OutputTokens:        sess.OutputTokens,
		CacheReadTokens:     sess.CacheReadTokens,
		CacheCreationTokens: sess.CacheCreationTokens,
		EstimatedCostUSD:    sess.EstimatedCostUSD,
		TurnCount:           sess.TurnCount,
		UserTurns:           sess.UserTurns,
		AssistantTurns:      sess.AssistantTurns,
		ToolCalls:           sess.ToolCalls,
		ToolErrors:          sess.ToolErrors,
		CompactionCount:     sess.CompactionCount,
		PeakContextTokens:   sess.PeakContextTokens,
		ReworkFiles:         sess.ReworkFiles,
		TestAfterEditRate:   sess.TestAfterEditRate,
		PermissionMode:      sess.PermissionMode,
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	limit := queryInt(r, "limit", 50)
	sessions, err := s.st.ListSessions(project, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]sessionJSON, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionJSON(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

type workBlockJSON struct {
	StartedAt    string `json:"started_at"`
	EndedAt      string `json:"ended_at"`
	DurationSecs int64  `json:"duration_secs"`
	TurnCount    int    `json:"turn_count"`
}

type fileAccessJSON struct {
	FilePath   string `json:"file_path"`
	ReadCount  int    `json:"read_count"`
	EditCount  int    `json:"edit_count"`
	WriteCount int    `json:"write_count"`
	Total      int    `json:"total"`
}

type toolCountJSON struct {
	Tool  string `json:"tool"`
	Count int    `json:"count"`
}

type sessionDetailJSON struct {
	sessionJSON
	WorkBlocks []workBlockJSON  `json:"work_blocks"`
	ToolUsage  []toolCountJSON  `json:"tool_usage"`
	Files      []fileAccessJSON `json:"files"`
}

func toFileAccessJSON(files []model.FileAccess) []fileAccessJSON {
	out := make([]fileAccessJSON, 0, len(files))
	for _, f := range files {
		out = append(out, fileAccessJSON{
			FilePath:   f.FilePath,
			ReadCount:  f.ReadCount,
			EditCount:  f.EditCount,
			WriteCount: f.WriteCount,
			Total:      f.Total,
		})
	}
	return out
}

func toToolCountJSON(tools []model.ToolCount) []toolCountJSON {
	out := make([]toolCountJSON, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolCountJSON{Tool: t.ToolName, Count: t.Count})
	}
	return out
}

// lookupSession resolves the path id, writing a JSON 404 on miss.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (model.Session, bool) {
	id := r.PathValue("id")
	sess, err := s.st.GetSession(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found: "+id)
		return sess, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return sess, false
	}
	return sess, true
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	blocks, err := s.st.SessionWorkBlocks(sess.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	tools, err := s.st.SessionToolUsage(sess.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	files, err := s.st.SessionFilesTouched(sess.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	detail := sessionDetailJSON{
		sessionJSON: toSessionJSON(sess),
		WorkBlocks:  make([]workBlockJSON, 0, len(blocks)),
		ToolUsage:   toToolCountJSON(tools),
		Files:       toFileAccessJSON(files),
	}
	for _, b := range blocks {
		detail.WorkBlocks = append(detail.WorkBlocks, workBlockJSON{
			StartedAt:    timeJSON(b.StartedAt),
			EndedAt:      timeJSON(b.EndedAt),
			DurationSecs: b.DurationSecs,
			TurnCount:    b.TurnCount,
		})
	}
	writeJSON(w, http.StatusOK, detail)
}

type categoryCostJSON struct {
	Category string  `json:"category"`
	CostUSD  float64 `json:"cost_usd"`
	Percent  float64 `json:"percent"`
	Turns    int     `json:"turns"`
}

type turnCostJSON struct {
	Index    int      `json:"index"`
	Category string   `json:"category"`
	CostUSD  float64  `json:"cost_usd"`
	Tokens   int64    `json:"tokens"`
	Tools    []string `json:"tools,omitempty"`
}

type suggestionJSON struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Evidence string `json:"evidence,omitempty"`
}

type autopsyJSON struct {
	Session       sessionJSON        `json:"session"`
	FilesRead     int                `json:"files_read"`
	FilesModified int                `json:"files_modified"`
	ToolUsage     []toolCountJSON    `json:"tool_usage"`
	Files         []fileAccessJSON   `json:"files"`
	TotalCostUSD  float64            `json:"total_cost_usd"`
	ByCategory    []categoryCostJSON `json:"by_category"`
	TopTurns      []turnCostJSON     `json:"top_turns"`
	CacheHitRate  float64            `json:"cache_hit_rate"`
	CacheSavings  float64            `json:"cache_savings_usd"`
	PeakTokens    int64              `json:"peak_context_tokens"`
	AvgTokens     int64              `json:"avg_context_tokens"`
	Utilization   float64            `json:"peak_utilization"`
	Compactions   int                `json:"compactions"`
	Suggestions   []suggestionJSON   `json:"suggestions"`
}

func (s *Server) handleAutopsy(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	turns, err := s.st.SessionTurns(sess.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	files, err := s.st.SessionFilesTouched(sess.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	tools, err := s.st.SessionToolUsage(sess.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rep := autopsy.Analyze(sess, turns, files, tools)

	out := autopsyJSON{
		Session:       toSessionJSON(rep.Session),
		FilesRead:     rep.Summary.FilesRead,
		FilesModified: rep.Summary.FilesModified,
		ToolUsage:     toToolCountJSON(rep.Summary.ToolUsage),
		Files:         toFileAccessJSON(rep.Summary.Files),
		TotalCostUSD:  rep.Cost.TotalUSD,
		CacheHitRate:  rep.Cost.CacheHitRate,
		CacheSavings:  rep.Cost.CacheSavings,
		PeakTokens:    rep.Context.PeakTokens,
		AvgTokens:     rep.Context.AvgTokens,
		Utilization:   rep.Context.PeakUtilization,
		Compactions:   rep.Context.CompactionCount,
	}
	for _, c := range rep.Cost.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryCostJSON{
			Category: c.Category,
			CostUSD:  c.CostUSD,
			Percent:  c.Percent,
			Turns:    c.Turns,
		})
	}
	for _, t := range rep.Cost.TopTurns {
		out.TopTurns = append(out.TopTurns, turnCostJSON{
			Index:    t.Index,
			Category: t.Category,
			CostUSD:  t.CostUSD,
			Tokens:   t.Tokens,
			Tools:    t.ToolNames,
		})
	}
	for _, sug := range rep.Suggestions {
		out.Suggestions = append(out.Suggestions, suggestionJSON{
			Category: sug.Category,
			Severity: sug.Severity,
			Title:    sug.Title,
			Detail:   sug.Detail,
			Evidence: sug.Evidence,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type effectivenessJSON struct {
	SessionCount      int     `json:"session_count"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	EditRatio         float64 `json:"edit_ratio"`
	CompactionRate    float64 `json:"compaction_rate"`
	ReadToEditRatio   float64 `json:"read_to_edit_ratio"`
	OutputRatio       float64 `json:"output_ratio"`
	TokensPerUserTurn int64   `json:"tokens_per_user_turn"`
	TurnsPerUserTurn  float64 `json:"turns_per_user_turn"`
}

func (s *Server) handleEffectiveness(w http.ResponseWriter, _ *http.Request) {
	e, err := s.st.Effectiveness()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, effectivenessJSON{
		SessionCount:      e.SessionCount,
		CacheHitRate:      e.CacheHitRate,
		EditRatio:         e.EditRatio,
		CompactionRate:    e.CompactionRate,
		ReadToEditRatio:   e.ReadToEditRatio,
		OutputRatio:       e.OutputRatio,
		TokensPerUserTurn: e.TokensPerUserTurn,
		TurnsPerUserTurn:  e.TurnsPerUserTurn,
	})
}

func (s *Server) handleTopFiles(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	files, err := s.st.TopFiles(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toFileAccessJSON(files))
}
