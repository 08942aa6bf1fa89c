// Package model defines domain types for aide sessions and metrics.
package model

import "time"

// ToolInvocation is a single tool call issued by an assistant turn.
// IsError is flipped after the fact when a correlated tool_result
// reports failure.
type ToolInvocation struct {
	ToolName    string
	FilePath    string
	Timestamp   time.Time
	ToolUseID   string
	Command     string // Bash-shaped tools
	Description string // Bash-shaped tools
	IsError     bool
	OldLength   int // Edit: length of the replaced text
	NewLength   int // Edit/Write: length of the new text
}

// Turn is one event within a session, attributed to a role.
// Token counts and the invocation list are always present, defaulting
// to zero/empty for non-assistant turns.
type Turn struct {
	UUID       string
	ParentUUID string
	SessionID  string
	Timestamp  time.Time
	Role       string // user, assistant, system
	Type       string // outer event type tag

	InputTokens         int64
	OutputTokens        int64
	CacheReadTokens     int64
	CacheCreationTokens int64

	ContentLength int
	PromptLength  int // user-role text blocks only
	ThinkingChars int

	Tools []ToolInvocation

	// Assistant-only fields.
	Model      string
	StopReason string
}

// ContextTokens approximates the model's effective context load for
// this turn: fresh input plus everything served from or written to cache.
func (t Turn) ContextTokens() int64 {
	return t.InputTokens + t.CacheReadTokens + t.CacheCreationTokens
}

// WorkBlock is a contiguous span of session activity bounded by idle
// gaps. Blocks partition a session's turns: time-ordered, non-overlapping,
// and their turn counts sum to the session's total.
type WorkBlock struct {
	Index        int
	StartedAt    time.Time
	EndedAt      time.Time
	DurationSecs int64
	TurnCount    int
}

// Session is the top-level aggregate built from one log file's events.
// Re-ingesting the same session id replaces the stored record entirely.
type Session struct {
	SessionID   string
	ProjectName string // decoded display name (e.g. "slopfarm")
	ProjectPath string // raw encoded directory name
	SourceFile  string
	Title       string // from a custom-title event, if any
	GitBranch   string // first user event that carried one

	StartedAt    time.Time
	EndedAt      time.Time
	DurationSecs int64
	ActiveSecs   int64 // sum of work block durations, <= DurationSecs

	InputTokens         int64
	OutputTokens        int64
	CacheReadTokens     int64
	CacheCreationTokens int64
	EstimatedCostUSD    float64

	TurnCount      int
	UserTurns      int
	AssistantTurns int

	ToolCalls  int
	FileReads  int
	FileWrites int
	FileEdits  int
	BashCalls  int
	ToolErrors int

	CompactionCount   int
	PeakContextTokens int64

	ReworkFiles       int     // distinct paths edited/written 3+ times
	TestAfterEditRate float64 // 0.0-1.0, same-turn Edit/Write -> Bash

	ThinkingChars int64
	ThinkingTurns int

	PermissionMode string // dominant sampled mode, "" if never sampled

	TurnDurationTotalMs int64 // externally reported turn_duration samples
	TurnDurationCount   int
	TurnDurationMaxMs   int64

	Turns  []Turn
	Blocks []WorkBlock
}

// TotalTokens is the sum of all four token categories.
func (s Session) TotalTokens() int64 {
	return s.InputTokens + s.OutputTokens + s.CacheReadTokens + s.CacheCreationTokens
}
