package app

import (
	"sync/atomic"
	"time"

	"github.com/ItvordRE/MacroRecorder/internal/input/macro"
)

// Metrics tracks session counters for one controller.
type Metrics struct {
	// Capture
	captures       atomic.Uint64
	capturedEvents atomic.Uint64

	// Playback
	playbacks  atomic.Uint64
	cancelled  atomic.Uint64
	failures   atomic.Uint64
	iterations atomic.Uint64
	executed   atomic.Uint64
	playTotal  atomic.Int64
	lastPlayNs atomic.Int64

	// Gaps between executed events
	stepCount   atomic.Uint64
	stepTotalNs atomic.Int64
	stepMinNs   atomic.Int64
	stepMaxNs   atomic.Int64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
	}
	// Initialize min to max int64 so the first gap will be smaller
	m.stepMinNs.Store(1<<63 - 1)
	return m
}

// RecordCapture records a finished capture session.
func (m *Metrics) RecordCapture(events int) {
	m.captures.Add(1)
	m.capturedEvents.Add(uint64(events))
}

// RecordPlayback records a finished playback session.
func (m *Metrics) RecordPlayback(res macro.Result, err error, elapsed time.Duration) {
	m.playbacks.Add(1)
	m.iterations.Add(uint64(res.Iterations))
	m.executed.Add(uint64(res.Executed))
	m.playTotal.Add(elapsed.Nanoseconds())
	m.lastPlayNs.Store(elapsed.Nanoseconds())

	switch {
	case err != nil:
		m.failures.Add(1)
	case res.Cancelled:
		m.cancelled.Add(1)
	}
}

// RecordStep records the gap between two consecutive executed events.
func (m *Metrics) RecordStep(gap time.Duration) {
	ns := gap.Nanoseconds()

	m.stepCount.Add(1)
	m.stepTotalNs.Add(ns)

	for {
		old := m.stepMinNs.Load()
		if ns >= old {
			break
		}
		if m.stepMinNs.CompareAndSwap(old, ns) {
			break
		}
	}

	for {
		old := m.stepMaxNs.Load()
		if ns <= old {
			break
		}
		if m.stepMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	steps := m.stepCount.Load()

	var avgStep time.Duration
	if steps > 0 {
		avgStep = time.Duration(m.stepTotalNs.Load() / int64(steps))
	}

	minStep := m.stepMinNs.Load()
	if minStep == 1<<63-1 {
		minStep = 0
	}

	return MetricsSnapshot{
		Uptime:         time.Since(m.startTime),
		Captures:       m.captures.Load(),
		CapturedEvents: m.capturedEvents.Load(),
		Playbacks:      m.playbacks.Load(),
		Cancelled:      m.cancelled.Load(),
		Failures:       m.failures.Load(),
		Iterations:     m.iterations.Load(),
		Executed:       m.executed.Load(),
		PlayTime:       time.Duration(m.playTotal.Load()),
		LastPlayTime:   time.Duration(m.lastPlayNs.Load()),
		Steps:          steps,
		AvgStep:        avgStep,
		MinStep:        time.Duration(minStep),
		MaxStep:        time.Duration(m.stepMaxNs.Load()),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.captures.Store(0)
	m.capturedEvents.Store(0)
	m.playbacks.Store(0)
	m.cancelled.Store(0)
	m.failures.Store(0)
	m.iterations.Store(0)
	m.executed.Store(0)
	m.playTotal.Store(0)
	m.lastPlayNs.Store(0)
	m.stepCount.Store(0)
	m.stepTotalNs.Store(0)
	m.stepMinNs.Store(1<<63 - 1)
	m.stepMaxNs.Store(0)
	m.startTime = time.Now()
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime         time.Duration `json:"uptime"`
	Captures       uint64        `json:"captures"`
	CapturedEvents uint64        `json:"captured_events"`
	Playbacks      uint64        `json:"playbacks"`
	Cancelled      uint64        `json:"cancelled"`
	Failures       uint64        `json:"failures"`
	Iterations     uint64        `json:"iterations"`
	Executed       uint64        `json:"executed"`
	PlayTime       time.Duration `json:"play_time"`
	LastPlayTime   time.Duration `json:"last_play_time"`
	Steps          uint64        `json:"steps"`
	AvgStep        time.Duration `json:"avg_step"`
	MinStep        time.Duration `json:"min_step"`
	MaxStep        time.Duration `json:"max_step"`
}

// EventsPerSecond returns the average playback rate.
func (s MetricsSnapshot) EventsPerSecond() float64 {
	if s.PlayTime <= 0 {
		return 0
	}
	return float64(s.Executed) / s.PlayTime.Seconds()
}

// FailureRate returns the percentage of playbacks that failed.
func (s MetricsSnapshot) FailureRate() float64 {
	if s.Playbacks == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Playbacks) * 100
}

// Timer provides a simple way to measure elapsed time.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Lap returns the elapsed time and restarts the timer.
func (t *Timer) Lap() time.Duration {
	elapsed := t.Elapsed()
	t.start = time.Now()
	return elapsed
}
