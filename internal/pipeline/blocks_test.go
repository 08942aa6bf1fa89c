package pipeline

import (
	"testing"
	"time"

	"github.com/aide-dev/aide/internal/model"
)

func turnAt(ts time.Time) model.Turn {
	return model.Turn{Role: "user", Timestamp: ts}
}

func TestSegment_SplitsOnIdleGap(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	turns := []model.Turn{
		turnAt(base),
		turnAt(base.Add(5 * time.Minute)),
		turnAt(base.Add(50 * time.Minute)), // 45m gap
		turnAt(base.Add(55 * time.Minute)),
	}

	blocks := Segment(turns)
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}
	for i, b := range blocks {
		if b.DurationSecs != 300 {
			t.Errorf("block %d duration = %d, want 300", i, b.DurationSecs)
		}
		if b.TurnCount != 2 {
			t.Errorf("block %d turns = %d, want 2", i, b.TurnCount)
		}
	}
	if blocks[1].StartedAt != base.Add(50*time.Minute) {
		t.Errorf("block 1 start = %v", blocks[1].StartedAt)
	}
}

func TestSegment_ExactThresholdDoesNotSplit(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	turns := []model.Turn{
		turnAt(base),
		turnAt(base.Add(30 * time.Minute)), // exactly at the threshold
	}

	blocks := Segment(turns)
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1 (threshold is exclusive)", len(blocks))
	}
	if blocks[0].DurationSecs != 1800 {
		t.Errorf("duration = %d, want 1800", blocks[0].DurationSecs)
	}
	if blocks[0].TurnCount != 2 {
		t.Errorf("turns = %d, want 2", blocks[0].TurnCount)
	}
}

func TestSegment_JustOverThresholdSplits(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	turns := []model.Turn{
		turnAt(base),
		turnAt(base.Add(30*time.Minute + time.Second)),
	}

	blocks := Segment(turns)
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}
}

func TestSegment_SingleTurn(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	blocks := Segment([]model.Turn{turnAt(base)})
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(blocks))
	}
	if blocks[0].DurationSecs != 0 || blocks[0].TurnCount != 1 {
		t.Errorf("block = %+v, want zero duration and one turn", blocks[0])
	}
}

func TestSegment_Empty(t *testing.T) {
	if blocks := Segment(nil); blocks != nil {
		t.Errorf("blocks = %v, want nil", blocks)
	}
}

func TestSegment_DurationTruncatesSubSecond(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	turns := []model.Turn{
		turnAt(base),
		turnAt(base.Add(90*time.Second + 900*time.Millisecond)),
	}
	blocks := Segment(turns)
	if blocks[0].DurationSecs != 90 {
		t.Errorf("duration = %d, want 90 (truncated)", blocks[0].DurationSecs)
	}
}
