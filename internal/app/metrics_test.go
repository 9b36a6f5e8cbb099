package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ItvordRE/MacroRecorder/internal/input/macro"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics() returned nil")
	}

	snapshot := m.Snapshot()
	if snapshot.Playbacks != 0 {
		t.Errorf("expected 0 playbacks, got %d", snapshot.Playbacks)
	}
	if snapshot.MinStep != 0 {
		t.Errorf("expected 0 min step (sentinel handled), got %v", snapshot.MinStep)
	}
}

func TestMetrics_RecordCapture(t *testing.T) {
	m := NewMetrics()

	m.RecordCapture(3)
	m.RecordCapture(0)

	snapshot := m.Snapshot()
	if snapshot.Captures != 2 {
		t.Errorf("expected 2 captures, got %d", snapshot.Captures)
	}
	if snapshot.CapturedEvents != 3 {
		t.Errorf("expected 3 captured events, got %d", snapshot.CapturedEvents)
	}
}

func TestMetrics_RecordPlayback(t *testing.T) {
	m := NewMetrics()

	m.RecordPlayback(macro.Result{Iterations: 1, Executed: 4}, nil, time.Second)
	m.RecordPlayback(macro.Result{Iterations: 3, Executed: 10, Cancelled: true}, nil, 2*time.Second)
	m.RecordPlayback(macro.Result{Iterations: 1, Executed: 2}, errors.New("boom"), time.Second)

	snapshot := m.Snapshot()
	if snapshot.Playbacks != 3 {
		t.Errorf("expected 3 playbacks, got %d", snapshot.Playbacks)
	}
	if snapshot.Iterations != 5 {
		t.Errorf("expected 5 iterations, got %d", snapshot.Iterations)
	}
	if snapshot.Executed != 16 {
		t.Errorf("expected 16 executed, got %d", snapshot.Executed)
	}
	if snapshot.Cancelled != 1 {
		t.Errorf("expected 1 cancelled, got %d", snapshot.Cancelled)
	}
	if snapshot.Failures != 1 {
		t.Errorf("expected 1 failure, got %d", snapshot.Failures)
	}
	if snapshot.PlayTime != 4*time.Second {
		t.Errorf("expected 4s play time, got %v", snapshot.PlayTime)
	}
	if snapshot.LastPlayTime != time.Second {
		t.Errorf("expected 1s last play time, got %v", snapshot.LastPlayTime)
	}
	if rate := snapshot.EventsPerSecond(); rate != 4 {
		t.Errorf("expected 4 events/s, got %f", rate)
	}
}

func TestMetrics_RecordStep(t *testing.T) {
	m := NewMetrics()

	m.RecordStep(10 * time.Millisecond)
	m.RecordStep(20 * time.Millisecond)
	m.RecordStep(30 * time.Millisecond)

	snapshot := m.Snapshot()
	if snapshot.Steps != 3 {
		t.Errorf("expected 3 steps, got %d", snapshot.Steps)
	}
	if snapshot.MinStep != 10*time.Millisecond {
		t.Errorf("expected min 10ms, got %v", snapshot.MinStep)
	}
	if snapshot.MaxStep != 30*time.Millisecond {
		t.Errorf("expected max 30ms, got %v", snapshot.MaxStep)
	}
	if snapshot.AvgStep != 20*time.Millisecond {
		t.Errorf("expected avg 20ms, got %v", snapshot.AvgStep)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()

	m.RecordCapture(5)
	m.RecordStep(time.Millisecond)
	m.RecordPlayback(macro.Result{Iterations: 1, Executed: 5}, nil, time.Second)

	m.Reset()

	snapshot := m.Snapshot()
	if snapshot.Captures != 0 || snapshot.Playbacks != 0 || snapshot.Steps != 0 {
		t.Errorf("expected all counters reset, got %+v", snapshot)
	}
	if snapshot.MinStep != 0 {
		t.Errorf("expected min step reset, got %v", snapshot.MinStep)
	}
}

func TestMetricsSnapshot_FailureRate(t *testing.T) {
	tests := []struct {
		playbacks uint64
		failures  uint64
		expected  float64
	}{
		{0, 0, 0},
		{4, 1, 25},
		{2, 2, 100},
	}

	for _, tt := range tests {
		s := MetricsSnapshot{Playbacks: tt.playbacks, Failures: tt.failures}
		if rate := s.FailureRate(); rate != tt.expected {
			t.Errorf("FailureRate() with %d/%d = %f, want %f", tt.failures, tt.playbacks, rate, tt.expected)
		}
	}
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordStep(time.Duration(n*100+j) * time.Microsecond)
			}
		}(i)
	}
	wg.Wait()

	snapshot := m.Snapshot()
	if snapshot.Steps != 1000 {
		t.Errorf("expected 1000 steps, got %d", snapshot.Steps)
	}
	if snapshot.MinStep != 0 {
		t.Errorf("expected min 0, got %v", snapshot.MinStep)
	}
	if snapshot.MaxStep != 999*time.Microsecond {
		t.Errorf("expected max 999us, got %v", snapshot.MaxStep)
	}
}

func TestTimer(t *testing.T) {
	timer := StartTimer()
	time.Sleep(5 * time.Millisecond)

	if elapsed := timer.Elapsed(); elapsed < 5*time.Millisecond {
		t.Errorf("expected at least 5ms elapsed, got %v", elapsed)
	}

	lap := timer.Lap()
	if lap < 5*time.Millisecond {
		t.Errorf("expected lap of at least 5ms, got %v", lap)
	}
	if timer.Elapsed() >= lap {
		t.Errorf("expected timer restarted after Lap")
	}
}
