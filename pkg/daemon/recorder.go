package daemon

import (
	"math"
	"sync"
	"time"

	"github.com/wqlog/wqlog/pkg/types"
)

// CycleRecorder records the last N cycle results.
type CycleRecorder struct {
	MaxRecordCount int
	Records        []types.CycleResult
	mu             *sync.Mutex
}

// NewCycleRecorder returns a new CycleRecorder.
func NewCycleRecorder(maxRecordCount int) *CycleRecorder {
	if maxRecordCount <= 0 {
		maxRecordCount = 1
	}
	return &CycleRecorder{
		MaxRecordCount: maxRecordCount,
		Records:        make([]types.CycleResult, 0),
		mu:             &sync.Mutex{},
	}
}

// AddRecord adds a new record, dropping the oldest when full.
func (r *CycleRecorder) AddRecord(res types.CycleResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strip monotonic clock readings so durations survive host suspend.
	res.StartedAt = res.StartedAt.Round(0)
	res.FinishedAt = res.FinishedAt.Round(0)

	if len(r.Records) >= r.MaxRecordCount {
		r.Records = r.Records[1:]
	}
	r.Records = append(r.Records, res)
}

// ClearRecords clears all records.
func (r *CycleRecorder) ClearRecords() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Records = make([]types.CycleResult, 0)
}

// GetRecords returns a copy of the records, oldest first.
func (r *CycleRecorder) GetRecords() []types.CycleResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]types.CycleResult, len(r.Records))
	copy(out, r.Records)
	return out
}

// GetLastRecord returns the most recent record.
func (r *CycleRecorder) GetLastRecord() (types.CycleResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Records) == 0 {
		return types.CycleResult{}, false
	}
	return r.Records[len(r.Records)-1], true
}

// ConsecutiveSkipped returns how many of the latest cycles in a row did not
// deliver their row.
func (r *CycleRecorder) ConsecutiveSkipped() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for i := len(r.Records) - 1; i >= 0; i-- {
		if r.Records[i].Outcome == types.OutcomeDelivered {
			break
		}
		count++
	}
	return count
}

// LastDelivered returns the start of the latest delivered cycle.
func (r *CycleRecorder) LastDelivered() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.Records) - 1; i >= 0; i-- {
		if r.Records[i].Outcome == types.OutcomeDelivered {
			return r.Records[i].StartedAt, true
		}
	}
	return time.Time{}, false
}

// MissedCycles estimates how many cycles did not run between the last record
// and now, given the loop interval. Gaps up to one second past the interval
// are not counted.
func (r *CycleRecorder) MissedCycles(now time.Time, interval time.Duration) int {
	last, ok := r.GetLastRecord()
	if !ok || interval <= 0 {
		return 0
	}
	gap := now.Sub(last.FinishedAt)
	if gap <= interval+time.Second {
		return 0
	}
	return int(math.Round(float64(gap)/float64(interval))) - 1
}
