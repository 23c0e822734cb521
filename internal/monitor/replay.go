package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/yok-tottii/micwatch/internal/loudness"
)

// FrameClock is a clock driven by audio position instead of wall time.
// Detectors built on it see cooldowns in audio time, so a recording replayed
// faster than real time triggers exactly as it would live.
type FrameClock struct {
	mu      sync.Mutex
	start   time.Time
	elapsed time.Duration
}

// NewFrameClock returns a clock reading start until advanced
func NewFrameClock(start time.Time) *FrameClock {
	return &FrameClock{start: start}
}

// Now returns start plus the audio time advanced so far
func (c *FrameClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(c.elapsed)
}

// Set moves the clock to the given audio offset
func (c *FrameClock) Set(offset time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed = offset
}

// FrameReport describes one replayed frame
type FrameReport struct {
	Frame    int64         `json:"frame"`
	Offset   time.Duration `json:"offset"`
	RMS      float64       `json:"rms"`
	Detected bool          `json:"detected"`
}

// ReplayResult summarizes a replay
type ReplayResult struct {
	Frames   []FrameReport `json:"frames"`
	Events   []Event       `json:"events"`
	Peak     float64       `json:"peak"`     // Highest frame RMS
	Duration time.Duration `json:"duration"` // Audio time consumed
}

// Replay runs a finite source through a detector to the end and reports
// every frame and detection. When clock is not nil it is set to each frame's
// audio offset before the frame is processed.
func Replay(ctx context.Context, source FrameSource, detector Detector, sampleRate int, clock *FrameClock) (ReplayResult, error) {
	var result ReplayResult
	var samples int64

	for index := int64(0); ; index++ {
		frame, err := source.ReadFrame(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("failed to read frame %d: %w", index, err)
		}

		offset := sampleOffset(samples, sampleRate)
		samples += int64(len(frame))
		if clock != nil {
			clock.Set(offset)
		}

		rms := loudness.RMS(frame)
		if rms > result.Peak {
			result.Peak = rms
		}

		detection, ok, err := detector.Process(frame)
		if err != nil {
			return result, fmt.Errorf("failed to process frame %d: %w", index, err)
		}

		result.Frames = append(result.Frames, FrameReport{Frame: index, Offset: offset, RMS: rms, Detected: ok})
		if ok {
			at := time.Time{}
			if clock != nil {
				at = clock.Now()
			}
			result.Events = append(result.Events, Event{
				Detection: detection,
				Frame:     index,
				Offset:    offset,
				RMS:       rms,
				At:        at,
			})
		}
	}

	result.Duration = sampleOffset(samples, sampleRate)
	return result, nil
}
