package daemon

import (
	"testing"
	"time"

	"github.com/wqlog/wqlog/pkg/types"
)

func result(outcome types.Outcome, finished time.Time) types.CycleResult {
	return types.CycleResult{
		Outcome:    outcome,
		StartedAt:  finished.Add(-time.Second),
		FinishedAt: finished,
	}
}

func TestCycleRecorder_ConsecutiveSkipped(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		outcomes []types.Outcome
		want     int
	}{
		{
			name: "no records",
			want: 0,
		},
		{
			name:     "last delivered",
			outcomes: []types.Outcome{types.OutcomeSkipped, types.OutcomeDelivered},
			want:     0,
		},
		{
			name:     "skipped after delivered",
			outcomes: []types.Outcome{types.OutcomeDelivered, types.OutcomeSkipped, types.OutcomeSkipped},
			want:     2,
		},
		{
			name:     "never delivered",
			outcomes: []types.Outcome{types.OutcomeSkipped, types.OutcomeSkipped, types.OutcomeFailed},
			want:     3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCycleRecorder(10)
			for i, o := range tt.outcomes {
				r.AddRecord(result(o, now.Add(time.Duration(i)*time.Minute)))
			}
			if got := r.ConsecutiveSkipped(); got != tt.want {
				t.Errorf("ConsecutiveSkipped() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCycleRecorder_MaxRecordCount(t *testing.T) {
	now := time.Now()
	r := NewCycleRecorder(3)
	for i := 0; i < 5; i++ {
		r.AddRecord(result(types.OutcomeDelivered, now.Add(time.Duration(i)*time.Minute)))
	}

	records := r.GetRecords()
	if len(records) != 3 {
		t.Fatalf("GetRecords() returned %d records, want 3", len(records))
	}
	if !records[0].FinishedAt.Equal(now.Add(2 * time.Minute)) {
		t.Errorf("oldest record finished at %v, want %v", records[0].FinishedAt, now.Add(2*time.Minute))
	}

	last, ok := r.LastDelivered()
	if !ok || !last.Equal(now.Add(4*time.Minute-time.Second)) {
		t.Errorf("LastDelivered() = %v, %v", last, ok)
	}

	r.ClearRecords()
	if _, ok := r.GetLastRecord(); ok {
		t.Errorf("GetLastRecord() after ClearRecords() should report no record")
	}
}

func TestCycleRecorder_MissedCycles(t *testing.T) {
	last := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	interval := 15 * time.Minute
	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{
			name: "on schedule",
			now:  last.Add(interval),
			want: 0,
		},
		{
			name: "within slack",
			now:  last.Add(interval + 500*time.Millisecond),
			want: 0,
		},
		{
			name: "one missed",
			now:  last.Add(2*interval + 2*time.Second),
			want: 1,
		},
		{
			name: "suspended for an hour",
			now:  last.Add(time.Hour + interval + 2*time.Second),
			want: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCycleRecorder(10)
			r.AddRecord(result(types.OutcomeDelivered, last))
			if got := r.MissedCycles(tt.now, interval); got != tt.want {
				t.Errorf("MissedCycles() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := NewCycleRecorder(1).MissedCycles(last, interval); got != 0 {
		t.Errorf("MissedCycles() without records = %v, want 0", got)
	}
}
