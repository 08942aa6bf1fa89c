// Package source discovers and parses Claude Code JSONL session logs.
package source

import (
	"bufio"
	"encoding/json"
	"os"
	"time"

	"github.com/aide-dev/aide/internal/model"
)

// SessionEvents is one session's extracted events plus the side-channel
// data the aggregator consumes alongside the turns.
type SessionEvents struct {
	Turns []model.Turn

	Title            string
	GitBranch        string // first user event that carried one wins
	TurnDurationsMs  []int64
	PreCompactTokens []int64
	PermissionModes  []string
}

// FileEvents is the output of parsing one JSONL file: events bucketed
// by session id.
type FileEvents struct {
	Sessions     map[string]*SessionEvents
	LinesSkipped int // malformed or session-less lines dropped
}

// ParseFile reads a JSONL log file and buckets its events by session id.
// Individual bad lines are skipped, never fatal; the only errors returned
// are file-level I/O failures.
func ParseFile(path string) (*FileEvents, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	p := newFileParser()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)
	for scanner.Scan() {
		p.consumeLine(scanner.Bytes())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	p.correlateErrors()

	return &FileEvents{
		Sessions:     p.sessions,
		LinesSkipped: p.skipped,
	}, nil
}

// fileParser holds the state for one file's scan. The tool-use index
// and error-id sets are discarded after the post-scan correlation pass.
type fileParser struct {
	sessions  map[string]*SessionEvents
	byToolUse map[string]*model.ToolInvocation
	errorIDs  map[string]map[string]struct{} // session id -> tool_use_id set
	skipped   int
}

func newFileParser() *fileParser {
	return &fileParser{
		sessions:  make(map[string]*SessionEvents),
		byToolUse: make(map[string]*model.ToolInvocation),
		errorIDs:  make(map[string]map[string]struct{}),
	}
}

func (p *fileParser) session(id string) *SessionEvents {
	se, ok := p.sessions[id]
	if !ok {
		se = &SessionEvents{}
		p.sessions[id] = se
	}
	return se
}

// consumeLine classifies and routes a single JSONL line.
func (p *fileParser) consumeLine(line []byte) {
	if len(line) == 0 {
		return
	}

	var ev rawEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		p.skipped++
		return
	}

	// File snapshots belong to no session.
	if ev.Type == "file-history-snapshot" {
		return
	}

	if ev.SessionID == "" {
		p.skipped++
		return
	}

	switch {
	case ev.Type == "custom-title":
		p.session(ev.SessionID).Title = ev.CustomTitle

	case ev.Type == "system" && ev.Subtype == "turn_duration":
		if ev.DurationMs > 0 {
			se := p.session(ev.SessionID)
			se.TurnDurationsMs = append(se.TurnDurationsMs, ev.DurationMs)
		}

	case ev.Message == nil:
		p.addBareTurn(&ev)

	default:
		p.addMessageTurn(&ev)
	}
}

// addBareTurn records a message-less event (e.g. a compaction boundary)
// as a zero-token system turn.
func (p *fileParser) addBareTurn(ev *rawEvent) {
	se := p.session(ev.SessionID)

	if ev.Subtype == "compact_boundary" && ev.CompactMetadata != nil && ev.CompactMetadata.PreTokens > 0 {
		se.PreCompactTokens = append(se.PreCompactTokens, ev.CompactMetadata.PreTokens)
	}

	se.Turns = append(se.Turns, model.Turn{
		UUID:          ev.UUID,
		ParentUUID:    ev.ParentUUID,
		SessionID:     ev.SessionID,
		Timestamp:     parseTimestamp(ev.Timestamp),
		Role:          "system",
		Type:          ev.Type,
		ContentLength: len(ev.Content),
	})
}

// addMessageTurn builds a full turn from an event with a message payload.
func (p *fileParser) addMessageTurn(ev *rawEvent) {
	se := p.session(ev.SessionID)
	msg := ev.Message
	ts := parseTimestamp(ev.Timestamp)

	role := msg.Role
	if role == "" {
		role = ev.Type
	}

	turn := model.Turn{
		UUID:       ev.UUID,
		ParentUUID: ev.ParentUUID,
		SessionID:  ev.SessionID,
		Timestamp:  ts,
		Role:       role,
		Type:       ev.Type,
	}

	if u := msg.Usage; u != nil {
		turn.InputTokens = u.InputTokens
		turn.OutputTokens = u.OutputTokens
		turn.CacheReadTokens = u.CacheReadInputTokens
		turn.CacheCreationTokens = u.CacheCreationInputTokens
	}

	c := parseContent(msg.Content, role, ts)
	turn.ContentLength = c.contentLength
	turn.PromptLength = c.promptLength
	turn.ThinkingChars = c.thinkingChars
	turn.Tools = c.tools

	if role == "assistant" {
		turn.Model = msg.Model
		turn.StopReason = msg.StopReason
	}

	if role == "user" {
		if se.GitBranch == "" && ev.GitBranch != "" {
			se.GitBranch = ev.GitBranch
		}
		if ev.PermissionMode != "" {
			se.PermissionModes = append(se.PermissionModes, ev.PermissionMode)
		}
	}

	se.Turns = append(se.Turns, turn)

	// Index invocations for the post-scan error correlation pass. The
	// turn was appended by value but shares the tools backing array, so
	// flipping IsError through these pointers is visible on the stored turn.
	stored := &se.Turns[len(se.Turns)-1]
	for i := range stored.Tools {
		if id := stored.Tools[i].ToolUseID; id != "" {
			p.byToolUse[id] = &stored.Tools[i]
		}
	}

	for _, id := range c.errorIDs {
		set, ok := p.errorIDs[ev.SessionID]
		if !ok {
			set = make(map[string]struct{})
			p.errorIDs[ev.SessionID] = set
		}
		set[id] = struct{}{}
	}
}

// correlateErrors flips the error flag on every indexed invocation whose
// id appears in an error set. Unmatched ids are dropped; the invocation
// may live in another file or was never captured.
func (p *fileParser) correlateErrors() {
	for _, set := range p.errorIDs {
		for id := range set {
			if inv, ok := p.byToolUse[id]; ok {
				inv.IsError = true
			}
		}
	}
}

// contentSummary is what parseContent extracts from a message body.
type contentSummary struct {
	contentLength int
	promptLength  int
	thinkingChars int
	tools         []model.ToolInvocation
	errorIDs      []string
}

// parseContent handles the two message content shapes: a plain string,
// or a list of typed blocks.
func parseContent(raw json.RawMessage, role string, ts time.Time) contentSummary {
	var c contentSummary
	if len(raw) == 0 {
		return c
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		c.contentLength = len(s)
		if role == "user" {
			c.promptLength = len(s)
		}
		return c
	}

	var blocks []rawBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return c
	}

	for _, b := range blocks {
		switch b.Type {
		case "text":
			c.contentLength += len(b.Text)
			if role == "user" {
				c.promptLength += len(b.Text)
			}
		case "thinking":
			c.thinkingChars += len(b.Thinking)
		case "tool_use":
			c.tools = append(c.tools, decodeToolUse(b, ts))
		case "tool_result":
			if b.IsError && b.ToolUseID != "" {
				c.errorIDs = append(c.errorIDs, b.ToolUseID)
			}
		}
	}
	return c
}

// decodeToolUse projects a tool_use block into a ToolInvocation.
func decodeToolUse(b rawBlock, ts time.Time) model.ToolInvocation {
	inv := model.ToolInvocation{
		ToolName:  b.Name,
		ToolUseID: b.ID,
		Timestamp: ts,
	}

	in := b.Input
	if in == nil {
		return inv
	}

	inv.FilePath = in.FilePath
	switch b.Name {
	case "Bash":
		inv.Command = in.Command
		inv.Description = in.Description
	case "Edit":
		inv.OldLength = len(in.OldString)
		inv.NewLength = len(in.NewString)
	case "Write":
		inv.NewLength = len(in.Content)
	}
	return inv
}

// Timestamp layouts seen in the wild: RFC3339 with Z or a numeric zone,
// with or without fractional seconds, and occasionally zone-less.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// parseTimestamp parses an ISO-8601 timestamp. An absent timestamp maps
// to the current time; an unparsable one to the zero time (the line it
// came from still parses).
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}
