package autopsy

import (
	"sort"

	"github.com/aide-dev/aide/internal/config"
	"github.com/aide-dev/aide/internal/model"
)

// contextWindow is the assumed model context window size in tokens.
const contextWindow = 200_000

// Heuristic compaction detection thresholds: a drop is only counted
// when the context was already large and then more than halved.
const (
	compactionFloor     = 100_000
	compactionDropRatio = 0.5
)

// Analyze builds a full report for one session from its stored turns
// and per-file access rollup.
func Analyze(sess model.Session, turns []model.Turn, files []model.FileAccess, tools []model.ToolCount) Report {
	rep := Report{
		Session: sess,
		Summary: analyzeSummary(files, tools),
		Cost:    analyzeCost(turns),
		Context: analyzeContext(turns),
	}
	rep.Suggestions = Suggest(sess, files, rep.Cost.CacheHitRate, rep.Context.CompactionCount)
	return rep
}

func analyzeSummary(files []model.FileAccess, tools []model.ToolCount) Summary {
	s := Summary{ToolUsage: tools, Files: files}
	for _, f := range files {
		if f.ReadCount > 0 {
			s.FilesRead++
		}
		if f.EditCount > 0 || f.WriteCount > 0 {
			s.FilesModified++
		}
	}
	return s
}

// categorize assigns a turn to a cost category. Only assistant turns
// that called tools carry an attributable category; the first
// recognized tool decides, and a turn whose tools are all outside the
// known set counts as orchestration.
func categorize(t model.Turn) string {
	if t.Role != "assistant" || len(t.Tools) == 0 {
		return CategorySystemOverhead
	}
	for _, inv := range t.Tools {
		if cat, ok := toolCategories[inv.ToolName]; ok {
			return cat
		}
	}
	return CategoryOrchestration
}

// categoryTokens accumulates raw token counts for one cost category.
// Cost is estimated once on the sums to avoid compounding per-turn
// rounding.
type categoryTokens struct {
	input         int64
	output        int64
	cacheRead     int64
	cacheCreation int64
}

func analyzeCost(turns []model.Turn) CostBreakdown {
	tokens := make(map[string]*categoryTokens)
	turnsPer := make(map[string]int)
	var topTurns []TurnCost
	var cacheRead, freshInput, cacheCreation int64

	for i, t := range turns {
		cacheRead += t.CacheReadTokens
		freshInput += t.InputTokens
		cacheCreation += t.CacheCreationTokens

		cat := categorize(t)
		ct := tokens[cat]
		if ct == nil {
			ct = &categoryTokens{}
			tokens[cat] = ct
		}
		ct.input += t.InputTokens
		ct.output += t.OutputTokens
		ct.cacheRead += t.CacheReadTokens
		ct.cacheCreation += t.CacheCreationTokens
		turnsPer[cat]++

		cost := config.EstimateCost(t.InputTokens, t.OutputTokens, t.CacheReadTokens, t.CacheCreationTokens)
		if cost == 0 {
			continue
		}
		var names []string
		for _, inv := range t.Tools {
			names = append(names, inv.ToolName)
		}
		topTurns = append(topTurns, TurnCost{
			Index:      i,
			Category:   cat,
			CostUSD:    cost,
			Tokens:     t.ContextTokens() + t.OutputTokens,
			ToolNames:  names,
			StopReason: t.StopReason,
		})
	}

	costs := make(map[string]float64, len(tokens))
	var total float64
	for cat, ct := range tokens {
		c := config.EstimateCost(ct.input, ct.output, ct.cacheRead, ct.cacheCreation)
		costs[cat] = c
		total += c
	}

	bd := CostBreakdown{TotalUSD: total}
	for _, cat := range categoryOrder {
		c := costs[cat]
		pct := 0.0
		if total > 0 {
			pct = c / total * 100
		}
		bd.ByCategory = append(bd.ByCategory, CategoryCost{
			Category: cat,
			CostUSD:  c,
			Percent:  pct,
			Turns:    turnsPer[cat],
		})
	}

	sort.SliceStable(topTurns, func(a, b int) bool {
		return topTurns[a].CostUSD > topTurns[b].CostUSD
	})
	if len(topTurns) > 5 {
		topTurns = topTurns[:5]
	}
	bd.TopTurns = topTurns

	inputTotal := cacheRead + freshInput + cacheCreation
	if inputTotal > 0 {
		bd.CacheHitRate = float64(cacheRead) / float64(inputTotal)
	}
	bd.CacheSavings = config.CacheSavings(cacheRead)
	return bd
}

func analyzeContext(turns []model.Turn) ContextReport {
	rep := ContextReport{WindowTokens: contextWindow}
	var sum int64
	var samples int64
	var prev int64

	for _, t := range turns {
		if t.Role != "assistant" {
			continue
		}
		// Every assistant turn is a curve point, zero-context ones
		// included, matching the drop detection in the aggregator.
		size := t.ContextTokens()
		if size > rep.PeakTokens {
			rep.PeakTokens = size
		}
		sum += size
		samples++
		if prev > compactionFloor && float64(size) < float64(prev)*compactionDropRatio {
			rep.CompactionCount++
		}
		prev = size
	}

	if samples > 0 {
		rep.AvgTokens = sum / samples
	}
	rep.PeakUtilization = float64(rep.PeakTokens) / float64(contextWindow)
	return rep
}
