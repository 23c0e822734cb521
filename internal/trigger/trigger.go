// Package trigger implements a loudness threshold detector with a cooldown.
//
// The detector fires when a frame is louder than a fixed threshold and then
// ignores every frame until the cooldown has elapsed. Each trigger returns the
// next slot index in round-robin order. The slot does not reflect what was
// heard: a loudness detector cannot tell keywords apart, it only emulates a
// multi-keyword interface.
package trigger

import (
	"errors"
	"fmt"
	"time"

	"github.com/yok-tottii/micwatch/internal/loudness"
)

// ErrInvalidConfig is returned by New for unusable settings.
var ErrInvalidConfig = errors.New("invalid trigger config")

// Clock supplies the current time. It must never go backwards.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock. time.Now carries a monotonic reading,
// so differences between two values are safe against clock adjustments.
var SystemClock Clock = ClockFunc(time.Now)

// Config holds detector settings
type Config struct {
	Threshold float64       // RMS a frame must exceed
	Cooldown  time.Duration // Quiet period after a trigger
	Slots     int           // Number of trigger slots, at least 1
	Clock     Clock         // Defaults to SystemClock
}

// DefaultConfig returns the default detector settings
// Threshold: 10000 (requires a very loud sound)
// Cooldown: 2s
// Slots: 1
func DefaultConfig() Config {
	return Config{
		Threshold: 10000,
		Cooldown:  2 * time.Second,
		Slots:     1,
	}
}

// Detector decides once per frame whether a trigger fires.
// A Detector is not safe for concurrent use.
type Detector struct {
	threshold float64
	cooldown  time.Duration
	slots     int
	clock     Clock

	next        int
	fired       bool
	lastTrigger time.Time
}

// New creates a detector. Slots below 1, a negative threshold or a negative
// cooldown are rejected.
func New(config Config) (*Detector, error) {
	if config.Slots < 1 {
		return nil, fmt.Errorf("%w: slot count must be at least 1, got %d", ErrInvalidConfig, config.Slots)
	}
	if config.Threshold < 0 {
		return nil, fmt.Errorf("%w: threshold must not be negative, got %v", ErrInvalidConfig, config.Threshold)
	}
	if config.Cooldown < 0 {
		return nil, fmt.Errorf("%w: cooldown must not be negative, got %v", ErrInvalidConfig, config.Cooldown)
	}

	clock := config.Clock
	if clock == nil {
		clock = SystemClock
	}

	return &Detector{
		threshold: config.Threshold,
		cooldown:  config.Cooldown,
		slots:     config.Slots,
		clock:     clock,
	}, nil
}

// Process inspects one frame. It returns the slot index and true when the
// frame triggers, or false when it does not.
//
// The cooldown is checked before the frame is measured, so nothing can fire
// inside the cooldown window however loud it is. The comparison against the
// threshold is strict.
func (d *Detector) Process(frame []int16) (int, bool) {
	now := d.clock.Now()

	if d.InCooldown(now) {
		return 0, false
	}

	if loudness.RMS(frame) <= d.threshold {
		return 0, false
	}

	d.fired = true
	d.lastTrigger = now

	slot := d.next
	d.next = (d.next + 1) % d.slots
	return slot, true
}

// InCooldown reports whether now falls inside the window after the last trigger.
func (d *Detector) InCooldown(now time.Time) bool {
	return d.fired && now.Sub(d.lastTrigger) < d.cooldown
}

// NextSlot returns the slot the next trigger will report.
func (d *Detector) NextSlot() int {
	return d.next
}

// Slots returns the configured slot count.
func (d *Detector) Slots() int {
	return d.slots
}

// Threshold returns the configured threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Cooldown returns the configured cooldown period.
func (d *Detector) Cooldown() time.Duration {
	return d.cooldown
}

// LastTrigger returns the time of the most recent trigger and whether one has happened.
func (d *Detector) LastTrigger() (time.Time, bool) {
	return d.lastTrigger, d.fired
}
