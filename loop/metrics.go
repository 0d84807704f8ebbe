package loop

import "sync/atomic"

// Metrics holds opt-in runtime counters, updated only when WithMetrics(true)
// is set so the hot path pays nothing when they're disabled. The Loop
// updates TasksRun and PollsDone; no component in this module updates
// TimersFired, BytesRead or BytesWritten, so those stay zero.
type Metrics struct {
	TasksRun     atomic.Uint64
	PollsDone    atomic.Uint64
	TimersFired  atomic.Uint64
	BytesRead    atomic.Uint64
	BytesWritten atomic.Uint64
}

func (m *Metrics) recordPoll() {
	if m == nil {
		return
	}
	m.PollsDone.Add(1)
}

func (m *Metrics) recordTaskRun() {
	if m == nil {
		return
	}
	m.TasksRun.Add(1)
}
