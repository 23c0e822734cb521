// Package monitor runs the trigger and gain control loops over live or
// recorded audio and keeps a snapshot of what they observed.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/yok-tottii/micwatch/internal/agc"
	"github.com/yok-tottii/micwatch/internal/logger"
	"github.com/yok-tottii/micwatch/internal/metrics"
	"github.com/yok-tottii/micwatch/internal/trigger"
	"github.com/yok-tottii/micwatch/internal/wakeword"
)

// State represents the current monitoring state
type State int

const (
	// Idle means no loop is running
	Idle State = iota
	// Listening means at least one loop is consuming audio
	Listening
	// Paused means loops drain audio without acting on it
	Paused
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Listening:
		return "Listening"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FrameSource supplies audio frames. audio.Source satisfies it.
type FrameSource interface {
	ReadFrame(ctx context.Context) ([]int16, error)
}

// Detector turns frames into detections. wakeword.Backend satisfies it.
type Detector interface {
	Name() string
	Process(frame []int16) (wakeword.Detection, bool, error)
}

// Event is one detection with its context
type Event struct {
	Detection wakeword.Detection `json:"detection"`
	Frame     int64              `json:"frame"`  // Index of the triggering frame
	Offset    time.Duration      `json:"offset"` // Audio time from loop start to the frame
	RMS       float64            `json:"rms"`
	At        time.Time          `json:"at"`
}

// Handler reacts to a detection. Handlers run on the loop goroutine.
type Handler func(ctx context.Context, event Event)

// Status is a point-in-time snapshot of the monitor
type Status struct {
	State         State         `json:"state"`
	Backend       string        `json:"backend,omitempty"`
	Frames        int64         `json:"frames"`
	LastLoudness  float64       `json:"last_loudness"`
	Detections    int64         `json:"detections"`
	LastDetection *Event        `json:"last_detection,omitempty"`
	Volume        int           `json:"volume"` // -1 until the first successful read
	LastDecision  *agc.Decision `json:"last_decision,omitempty"`
	ReadFailures  int64         `json:"read_failures"`
	WriteFailures int64         `json:"write_failures"`
}

// Options configures a Monitor
type Options struct {
	Logger  *logger.Logger   // Defaults to a discarding logger
	Metrics *metrics.Metrics // Defaults to metrics.Default()
	Clock   trigger.Clock    // Defaults to trigger.SystemClock
}

// Monitor coordinates the loops and owns the shared status
type Monitor struct {
	log     *logger.Logger
	metrics *metrics.Metrics
	clock   trigger.Clock

	mu      sync.RWMutex
	running int
	paused  bool
	status  Status
}

// New creates a new monitor
func New(opts Options) *Monitor {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default()
	}
	if opts.Clock == nil {
		opts.Clock = trigger.SystemClock
	}

	return &Monitor{
		log:     opts.Logger,
		metrics: opts.Metrics,
		clock:   opts.Clock,
		status:  Status{Volume: -1},
	}
}

// Pause stops the loops from acting on audio until Resume
func (m *Monitor) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.paused {
		m.paused = true
		m.log.Info("Monitoring paused")
	}
}

// Resume undoes Pause
func (m *Monitor) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.paused {
		m.paused = false
		m.log.Info("Monitoring resumed")
	}
}

// State returns the current state
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked()
}

func (m *Monitor) stateLocked() State {
	switch {
	case m.running == 0:
		return Idle
	case m.paused:
		return Paused
	default:
		return Listening
	}
}

// Status returns a copy of the current status
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := m.status
	status.State = m.stateLocked()
	if m.status.LastDetection != nil {
		event := *m.status.LastDetection
		status.LastDetection = &event
	}
	if m.status.LastDecision != nil {
		decision := *m.status.LastDecision
		status.LastDecision = &decision
	}
	return status
}

// Paused reports whether Pause is in effect, whether or not a loop is running
func (m *Monitor) Paused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// enter marks a loop as running and returns the function that unmarks it
func (m *Monitor) enter() func() {
	m.mu.Lock()
	m.running++
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		m.running--
		m.mu.Unlock()
	}
}

func (m *Monitor) recordFrame(rms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status.Frames++
	m.status.LastLoudness = rms
}

func (m *Monitor) recordDetection(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status.Detections++
	m.status.LastDetection = &event
}
