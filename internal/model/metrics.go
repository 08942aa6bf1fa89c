package model

import "time"

// SummaryStats holds the top-level aggregate across all stored sessions.
type SummaryStats struct {
	TotalSessions int
	TotalProjects int
	TotalCostUSD  float64
	FirstSession  time.Time
	LastSession   time.Time
	ByProject     []ProjectStats
}

// DailyStats holds rollup metrics for one calendar date.
// Project is empty for the all-projects row.
type DailyStats struct {
	Date             string // YYYY-MM-DD
	Project          string
	Sessions         int
	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	EstimatedCostUSD float64
	DurationSecs     int64
	ToolCalls        int
}

// ProjectStats holds rollup metrics for one project.
type ProjectStats struct {
	Project          string
	Sessions         int
	TotalTokens      int64
	EstimatedCostUSD float64
	ActiveSecs       int64
	ToolCalls        int
}

// EffectivenessStats holds corpus-wide derived ratios.
type EffectivenessStats struct {
	SessionCount      int
	CacheHitRate      float64 // cache reads / (input + cache reads + cache writes)
	EditRatio         float64 // edits+writes / all tool calls
	CompactionRate    float64 // share of sessions with >=1 compaction
	ReadToEditRatio   float64
	OutputRatio       float64 // output / (input + output)
	TokensPerUserTurn int64
	TurnsPerUserTurn  float64 // assistant turns per user turn
}

// ToolCount is a per-tool invocation tally.
type ToolCount struct {
	ToolName string
	Count    int
}

// FileAccess aggregates access patterns for a single file path.
// Read/Glob/Grep count as reads, Edit as edits, Write as writes.
type FileAccess struct {
	FilePath   string
	ReadCount  int
	EditCount  int
	WriteCount int
	Total      int
}
