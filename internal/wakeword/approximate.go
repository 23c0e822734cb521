package wakeword

import (
	"fmt"

	"github.com/yok-tottii/micwatch/internal/trigger"
)

// Approximate emulates a multi-keyword recognizer with a loudness trigger
type Approximate struct {
	detector    *trigger.Detector
	keywords    []string
	frameLength int
	sampleRate  int
}

// NewApproximate creates a loudness-based backend. When keywords is not
// empty it decides the slot count, otherwise config.Slots does.
func NewApproximate(config trigger.Config, keywords []string, frameLength, sampleRate int) (*Approximate, error) {
	if len(keywords) > 0 {
		config.Slots = len(keywords)
	}

	detector, err := trigger.New(config)
	if err != nil {
		return nil, err
	}

	names := make([]string, detector.Slots())
	for i := range names {
		if i < len(keywords) && keywords[i] != "" {
			names[i] = keywords[i]
		} else {
			names[i] = fmt.Sprintf("slot%d", i)
		}
	}

	return &Approximate{
		detector:    detector,
		keywords:    names,
		frameLength: frameLength,
		sampleRate:  sampleRate,
	}, nil
}

// Name returns "approximate"
func (a *Approximate) Name() string { return KindApproximate }

// Keywords returns the slot names
func (a *Approximate) Keywords() []string {
	out := make([]string, len(a.keywords))
	copy(out, a.keywords)
	return out
}

// FrameLength returns the configured frame length
func (a *Approximate) FrameLength() int { return a.frameLength }

// SampleRate returns the configured sample rate
func (a *Approximate) SampleRate() int { return a.sampleRate }

// Detector exposes the underlying trigger detector
func (a *Approximate) Detector() *trigger.Detector { return a.detector }

// Process accepts frames of any length, including empty ones
func (a *Approximate) Process(frame []int16) (Detection, bool, error) {
	slot, ok := a.detector.Process(frame)
	if !ok {
		return Detection{}, false, nil
	}

	return Detection{
		Slot:        slot,
		Keyword:     a.keywords[slot],
		Approximate: true,
	}, true, nil
}

// Close is a no-op
func (a *Approximate) Close() error { return nil }
