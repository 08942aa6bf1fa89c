package source

import "encoding/json"

// rawEvent is one decoded JSONL line. Only the fields aide projects out
// are declared; everything else in the line is ignored.
type rawEvent struct {
	Type       string `json:"type"`
	Subtype    string `json:"subtype,omitempty"`
	UUID       string `json:"uuid,omitempty"`
	ParentUUID string `json:"parentUuid,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`

	// Bare system events carry their text here.
	Content string `json:"content,omitempty"`

	// For custom-title entries.
	CustomTitle string `json:"customTitle,omitempty"`

	// For system entries with subtype "turn_duration".
	DurationMs int64 `json:"durationMs,omitempty"`

	// User-event extras.
	GitBranch      string `json:"gitBranch,omitempty"`
	PermissionMode string `json:"permissionMode,omitempty"`

	// For system entries with subtype "compact_boundary".
	CompactMetadata *rawCompactMetadata `json:"compactMetadata,omitempty"`

	Message *rawMessage `json:"message,omitempty"`
}

// rawCompactMetadata holds compaction boundary details.
type rawCompactMetadata struct {
	Trigger   string `json:"trigger"`
	PreTokens int64  `json:"preTokens"`
}

// rawMessage is the nested message envelope.
// Content is either a plain string or a list of typed blocks, so it is
// kept raw and decoded by parseContent.
type rawMessage struct {
	Role       string          `json:"role"`
	Model      string          `json:"model"`
	StopReason string          `json:"stop_reason"`
	Usage      *rawUsage       `json:"usage,omitempty"`
	Content    json.RawMessage `json:"content,omitempty"`
}

// rawUsage holds token counts from the API response. Each field
// independently defaults to zero when missing.
type rawUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

// rawBlock is one typed content block inside a message.
type rawBlock struct {
	Type string `json:"type"`

	Text     string `json:"text,omitempty"`     // text blocks
	Thinking string `json:"thinking,omitempty"` // thinking blocks

	// tool_use blocks.
	ID    string        `json:"id,omitempty"`
	Name  string        `json:"name,omitempty"`
	Input *rawToolInput `json:"input,omitempty"`

	// tool_result blocks.
	ToolUseID string `json:"tool_use_id,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// rawToolInput holds the tool argument fields aide extracts. Unknown
// tools simply leave these empty.
type rawToolInput struct {
	FilePath    string `json:"file_path,omitempty"`
	Command     string `json:"command,omitempty"`     // Bash
	Description string `json:"description,omitempty"` // Bash
	OldString   string `json:"old_string,omitempty"`  // Edit
	NewString   string `json:"new_string,omitempty"`  // Edit
	Content     string `json:"content,omitempty"`     // Write
}

// DiscoveredFile is a JSONL log file found during directory scanning.
type DiscoveredFile struct {
	Path        string
	ProjectDir  string // raw encoded directory name
	ProjectName string // decoded display name
}
