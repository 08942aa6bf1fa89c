package autopsy

import (
	"fmt"
	"sort"

	"github.com/aide-dev/aide/internal/model"
)

const (
	repeatedReadThreshold = 3
	lowCacheHitRate       = 0.50
	compactionWarnCount   = 2
	heavyToolCallCount    = 50
)

// Suggest derives actionable findings from a session's access
// patterns. Each rule fires independently.
func Suggest(sess model.Session, files []model.FileAccess, cacheHitRate float64, compactions int) []Suggestion {
	var out []Suggestion

	var repeated []model.FileAccess
	for _, f := range files {
		if f.ReadCount >= repeatedReadThreshold {
			repeated = append(repeated, f)
		}
	}
	sort.SliceStable(repeated, func(a, b int) bool {
		return repeated[a].ReadCount > repeated[b].ReadCount
	})
	if len(repeated) > 10 {
		repeated = repeated[:10]
	}
	for _, f := range repeated {
		out = append(out, Suggestion{
			Category: "context",
			Severity: SeverityHigh,
			Title:    fmt.Sprintf("Repeated reads of %s", f.FilePath),
			Detail: "Consider adding the file's key contents to CLAUDE.md so " +
				"they stay in context.",
			Evidence: fmt.Sprintf("%s (%dx)", f.FilePath, f.ReadCount),
		})
	}

	if cacheHitRate < lowCacheHitRate {
		out = append(out, Suggestion{
			Category: "caching",
			Severity: SeverityMedium,
			Title:    "Low cache hit rate",
			Detail: "Long gaps between turns let the prompt cache expire; keeping " +
				"sessions focused improves reuse.",
			Evidence: fmt.Sprintf("%.0f%% of input tokens came from cache", cacheHitRate*100),
		})
	}

	if compactions >= compactionWarnCount {
		out = append(out, Suggestion{
			Category: "context",
			Severity: SeverityMedium,
			Title:    "Multiple context compactions",
			Detail: "Each compaction loses conversation detail. Splitting the work " +
				"into smaller sessions avoids this.",
			Evidence: fmt.Sprintf("%d compactions", compactions),
		})
	}

	if sess.ToolCalls >= heavyToolCallCount {
		out = append(out, Suggestion{
			Category: "workflow",
			Severity: SeverityLow,
			Title:    "High tool call volume",
			Detail: "Broad exploratory work may be cheaper as separate scoped " +
				"sessions.",
			Evidence: fmt.Sprintf("%d tool calls", sess.ToolCalls),
		})
	}

	return out
}
