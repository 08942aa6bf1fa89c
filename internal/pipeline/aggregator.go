// Package pipeline turns parsed events into session records and moves
// them through discovery, aggregation, and persistence.
package pipeline

import (
	"sort"

	"github.com/aide-dev/aide/internal/config"
	"github.com/aide-dev/aide/internal/model"
	"github.com/aide-dev/aide/internal/source"
)

// compactionFloor and compactionDropRatio define the heuristic tier of
// compaction detection: a context size above the floor followed by a
// reading below half of it counts as one compaction.
const (
	compactionFloor     = 100_000
	compactionDropRatio = 0.5
)

// BuildSession aggregates one session's events into a Session record.
// Turns are sorted chronologically (stable, ties keep encounter order);
// every derived metric is computed here, in one pass over the sorted list.
func BuildSession(sessionID string, ev *source.SessionEvents, df source.DiscoveredFile) model.Session {
	turns := ev.Turns
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].Timestamp.Before(turns[j].Timestamp)
	})

	s := model.Session{
		SessionID:   sessionID,
		ProjectName: df.ProjectName,
		ProjectPath: df.ProjectDir,
		SourceFile:  df.Path,
		Title:       ev.Title,
		GitBranch:   ev.GitBranch,
		TurnCount:   len(turns),
		Turns:       turns,
	}

	if len(turns) > 0 {
		s.StartedAt = turns[0].Timestamp
		s.EndedAt = turns[len(turns)-1].Timestamp
		s.DurationSecs = int64(s.EndedAt.Sub(s.StartedAt).Seconds())
	}

	var invocations []model.ToolInvocation
	for _, t := range turns {
		s.InputTokens += t.InputTokens
		s.OutputTokens += t.OutputTokens
		s.CacheReadTokens += t.CacheReadTokens
		s.CacheCreationTokens += t.CacheCreationTokens

		switch t.Role {
		case "user":
			s.UserTurns++
		case "assistant":
			s.AssistantTurns++
		}

		if t.ThinkingChars > 0 {
			s.ThinkingChars += int64(t.ThinkingChars)
			s.ThinkingTurns++
		}

		invocations = append(invocations, t.Tools...)
	}

	s.ToolCalls = len(invocations)
	for _, inv := range invocations {
		switch inv.ToolName {
		case "Read":
			s.FileReads++
		case "Write":
			s.FileWrites++
		case "Edit":
			s.FileEdits++
		case "Bash":
			s.BashCalls++
		}
		if inv.IsError {
			s.ToolErrors++
		}
	}

	s.CompactionCount, s.PeakContextTokens = detectCompactions(turns, ev.PreCompactTokens)

	for _, ms := range ev.TurnDurationsMs {
		s.TurnDurationTotalMs += ms
		s.TurnDurationCount++
		if ms > s.TurnDurationMaxMs {
			s.TurnDurationMaxMs = ms
		}
	}

	s.ReworkFiles = countReworkFiles(invocations)
	s.TestAfterEditRate = testAfterEditRate(turns)
	s.PermissionMode = dominantMode(ev.PermissionModes)

	if len(turns) > 0 {
		s.Blocks = Segment(turns)
		for _, b := range s.Blocks {
			s.ActiveSecs += b.DurationSecs
		}
	}

	s.EstimatedCostUSD = config.EstimateCost(
		s.InputTokens, s.OutputTokens, s.CacheReadTokens, s.CacheCreationTokens)

	return s
}

// detectCompactions applies the two-tier compaction policy: explicit
// pre-compaction token samples win when present; otherwise compactions
// are inferred from sharp drops in the assistant context-size sequence.
func detectCompactions(turns []model.Turn, preCompact []int64) (count int, peak int64) {
	var maxCtx int64
	var sizes []int64
	for _, t := range turns {
		if t.Role != "assistant" {
			continue
		}
		ctx := t.ContextTokens()
		sizes = append(sizes, ctx)
		if ctx > maxCtx {
			maxCtx = ctx
		}
	}

	if len(preCompact) > 0 {
		peak = maxCtx
		for _, pre := range preCompact {
			if pre > peak {
				peak = pre
			}
		}
		return len(preCompact), peak
	}

	for i := 1; i < len(sizes); i++ {
		prev := sizes[i-1]
		if prev > compactionFloor && float64(sizes[i]) < float64(prev)*compactionDropRatio {
			count++
		}
	}
	return count, maxCtx
}

// countReworkFiles counts distinct paths edited or written 3+ times.
func countReworkFiles(invocations []model.ToolInvocation) int {
	touches := make(map[string]int)
	for _, inv := range invocations {
		if inv.FilePath == "" {
			continue
		}
		if inv.ToolName == "Edit" || inv.ToolName == "Write" {
			touches[inv.FilePath]++
		}
	}

	n := 0
	for _, c := range touches {
		if c >= 3 {
			n++
		}
	}
	return n
}

// testAfterEditRate is the share of Edit/Write invocations followed by a
// Bash call later in the same turn's own invocation list. The scope is
// deliberately same-turn only; an Edit answered by a Bash in the next
// turn does not count.
func testAfterEditRate(turns []model.Turn) float64 {
	edits, tested := 0, 0
	for _, t := range turns {
		for i, inv := range t.Tools {
			if inv.ToolName != "Edit" && inv.ToolName != "Write" {
				continue
			}
			edits++
			for _, later := range t.Tools[i+1:] {
				if later.ToolName == "Bash" {
					tested++
					break
				}
			}
		}
	}
	if edits == 0 {
		return 0.0
	}
	return float64(tested) / float64(edits)
}

// dominantMode returns the most frequent sample, first-seen order
// breaking ties. Empty when nothing was sampled.
func dominantMode(samples []string) string {
	if len(samples) == 0 {
		return ""
	}

	counts := make(map[string]int)
	var order []string
	for _, m := range samples {
		if counts[m] == 0 {
			order = append(order, m)
		}
		counts[m]++
	}

	best := order[0]
	for _, m := range order[1:] {
		if counts[m] > counts[best] {
			best = m
		}
	}
	return best
}
