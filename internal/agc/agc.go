// Package agc decides microphone capture volume adjustments from loudness.
//
// The Controller keeps loudness inside a target band by moving the volume one
// fixed step at a time. It never caches the volume: the host reads it from the
// system on every cycle and passes it in, so changes made by another process
// or by the user are respected. The Controller never touches the mixer itself.
package agc

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned by New for unusable settings.
	ErrInvalidConfig = errors.New("invalid gain control config")

	// ErrVolumeUnavailable reports that the current volume could not be read.
	// It is transient: the host should skip this cycle and try again.
	ErrVolumeUnavailable = errors.New("current volume unavailable")
)

// Action is the direction a step moves the volume
type Action int

const (
	// Hold leaves the volume alone (loudness is inside the band)
	Hold Action = iota
	// Raise increases the volume (loudness below the band)
	Raise
	// Lower decreases the volume (loudness above the band)
	Lower
)

// String returns the string representation of the action
func (a Action) String() string {
	switch a {
	case Hold:
		return "hold"
	case Raise:
		return "raise"
	case Lower:
		return "lower"
	default:
		return "unknown"
	}
}

// MarshalText encodes the action by name
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Reading is the result of reading the system volume.
// A non-nil Err means Percent is meaningless.
type Reading struct {
	Percent int
	Err     error
}

// Decision is the outcome of one control step
type Decision struct {
	Action Action `json:"action"`
	From   int    `json:"from"` // volume read from the system
	To     int    `json:"to"`   // clamped volume to apply
}

// Changed reports whether the host needs to write To.
func (d Decision) Changed() bool {
	return d.To != d.From
}

// Config holds controller settings
type Config struct {
	TargetLow   float64 // Raise the volume below this RMS
	TargetHigh  float64 // Lower the volume above this RMS
	StepPercent int     // Volume change per step
	VolumeMin   int     // Lowest volume ever proposed
	VolumeMax   int     // Highest volume ever proposed
}

// DefaultConfig returns the default controller settings
// Target band: 8000-12000 RMS
// Step: 5%
// Bounds: 0-100%
func DefaultConfig() Config {
	return Config{
		TargetLow:   8000,
		TargetHigh:  12000,
		StepPercent: 5,
		VolumeMin:   0,
		VolumeMax:   100,
	}
}

// Controller computes bounded step adjustments.
// It holds only its configuration and is safe to share.
type Controller struct {
	config Config
}

// New creates a controller after validating the configuration.
func New(config Config) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Controller{config: config}, nil
}

// Validate checks that the band, step and bounds are coherent.
func (c Config) Validate() error {
	if c.TargetLow < 0 {
		return fmt.Errorf("%w: target_low must not be negative, got %v", ErrInvalidConfig, c.TargetLow)
	}
	if c.TargetLow > c.TargetHigh {
		return fmt.Errorf("%w: target_low %v is above target_high %v", ErrInvalidConfig, c.TargetLow, c.TargetHigh)
	}
	if c.StepPercent <= 0 {
		return fmt.Errorf("%w: step_percent must be positive, got %d", ErrInvalidConfig, c.StepPercent)
	}
	if c.VolumeMin < 0 || c.VolumeMax > 100 {
		return fmt.Errorf("%w: volume bounds [%d, %d] must lie within [0, 100]", ErrInvalidConfig, c.VolumeMin, c.VolumeMax)
	}
	if c.VolumeMin > c.VolumeMax {
		return fmt.Errorf("%w: volume_min %d is above volume_max %d", ErrInvalidConfig, c.VolumeMin, c.VolumeMax)
	}
	return nil
}

// Config returns a copy of the controller settings.
func (c *Controller) Config() Config {
	return c.config
}

// Step decides the next volume from the loudness of the current cycle and the
// volume just read from the system.
//
// A failed read yields ErrVolumeUnavailable and no decision. Otherwise the
// proposal is always clamped to [VolumeMin, VolumeMax]; the host writes it
// only when Decision.Changed reports true.
func (c *Controller) Step(loudness float64, current Reading) (Decision, error) {
	if current.Err != nil {
		return Decision{}, fmt.Errorf("%w: %w", ErrVolumeUnavailable, current.Err)
	}

	d := Decision{Action: Hold, From: current.Percent}
	proposed := current.Percent

	switch {
	case loudness < c.config.TargetLow:
		d.Action = Raise
		proposed += c.config.StepPercent
	case loudness > c.config.TargetHigh:
		d.Action = Lower
		proposed -= c.config.StepPercent
	}

	d.To = c.clamp(proposed)
	return d, nil
}

func (c *Controller) clamp(v int) int {
	if v < c.config.VolumeMin {
		return c.config.VolumeMin
	}
	if v > c.config.VolumeMax {
		return c.config.VolumeMax
	}
	return v
}
