package pipeline

import (
	"time"

	"github.com/aide-dev/aide/internal/model"
)

// IdleThreshold is the gap beyond which a session's activity is split
// into separate work blocks. The threshold is exclusive: a gap of
// exactly 30 minutes does not split. Overridable from config at
// startup.
var IdleThreshold = 1800 * time.Second

// Segment splits chronologically ordered turns into contiguous work
// blocks separated by idle gaps. Every turn lands in exactly one block;
// a single-turn session yields one zero-duration block.
func Segment(turns []model.Turn) []model.WorkBlock {
	if len(turns) == 0 {
		return nil
	}

	var blocks []model.WorkBlock
	start := turns[0].Timestamp
	prev := turns[0].Timestamp
	count := 1

	close := func(end time.Time) {
		blocks = append(blocks, model.WorkBlock{
			Index:        len(blocks),
			StartedAt:    start,
			EndedAt:      end,
			DurationSecs: int64(end.Sub(start).Seconds()),
			TurnCount:    count,
		})
	}

	for _, t := range turns[1:] {
		if t.Timestamp.Sub(prev) > IdleThreshold {
			close(prev)
			start = t.Timestamp
			count = 0
		}
		prev = t.Timestamp
		count++
	}
	close(prev)

	return blocks
}
