package autopsy

import "github.com/aide-dev/aide/internal/model"

// Cost categories a turn can be attributed to.
const (
	CategoryFileReads      = "file_reads"
	CategoryCodeGeneration = "code_generation"
	CategoryExecution      = "execution"
	CategoryOrchestration  = "orchestration"
	CategorySystemOverhead = "system_overhead"
)

// toolCategories maps tool names to their cost category. Tools not
// listed here count as orchestration when called by the assistant.
var toolCategories = map[string]string{
	"Read": CategoryFileReads,
	"Glob": CategoryFileReads,
	"Grep": CategoryFileReads,

	"Write": CategoryCodeGeneration,
	"Edit":  CategoryCodeGeneration,

	"Bash": CategoryExecution,

	"Task":        CategoryOrchestration,
	"TaskCreate":  CategoryOrchestration,
	"TaskUpdate":  CategoryOrchestration,
	"TaskList":    CategoryOrchestration,
	"SendMessage": CategoryOrchestration,
	"WebFetch":    CategoryOrchestration,
	"WebSearch":   CategoryOrchestration,
}

// categoryOrder fixes the display order of cost categories.
var categoryOrder = []string{
	CategoryFileReads,
	CategoryCodeGeneration,
	CategoryExecution,
	CategoryOrchestration,
	CategorySystemOverhead,
}

// Report is a full post-hoc analysis of one session.
type Report struct {
	Session     model.Session
	Summary     Summary
	Cost        CostBreakdown
	Context     ContextReport
	Suggestions []Suggestion
}

// Summary covers what the session touched and how much work it did.
type Summary struct {
	FilesRead     int
	FilesModified int
	ToolUsage     []model.ToolCount
	Files         []model.FileAccess
}

// CategoryCost is the spend attributed to one cost category.
type CategoryCost struct {
	Category string
	CostUSD  float64
	Percent  float64
	Turns    int
}

// TurnCost identifies one turn and what it cost.
type TurnCost struct {
	Index      int
	Category   string
	CostUSD    float64
	Tokens     int64
	ToolNames  []string
	StopReason string
}

// CostBreakdown attributes session spend to categories and surfaces
// the most expensive turns.
type CostBreakdown struct {
	TotalUSD      float64
	ByCategory    []CategoryCost
	TopTurns      []TurnCost
	CacheHitRate  float64
	CacheSavings  float64
}

// ContextReport describes context window pressure over the session.
type ContextReport struct {
	PeakTokens       int64
	AvgTokens        int64
	WindowTokens     int64
	PeakUtilization  float64
	CompactionCount  int
}

// Severity levels for suggestions, most urgent first.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Suggestion is one actionable finding about the session. Evidence
// carries the numbers that triggered the rule.
type Suggestion struct {
	Category string // caching, context, workflow
	Severity string
	Title    string
	Detail   string
	Evidence string
}
