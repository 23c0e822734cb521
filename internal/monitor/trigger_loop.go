package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/yok-tottii/micwatch/internal/loudness"
)

// TriggerLoop feeds a source through a detector and dispatches detections
type TriggerLoop struct {
	Source     FrameSource
	Detector   Detector
	SampleRate int // Used to convert frame positions to audio time
	Handlers   []Handler
}

// RunTrigger runs the loop until the context is canceled or the source is
// exhausted. A source or detector error stops the loop and is returned.
// While paused, frames are still read so the capture buffer cannot overflow.
func (m *Monitor) RunTrigger(ctx context.Context, loop TriggerLoop) error {
	if loop.Source == nil || loop.Detector == nil {
		return fmt.Errorf("trigger loop needs a source and a detector")
	}

	leave := m.enter()
	defer leave()

	m.mu.Lock()
	m.status.Backend = loop.Detector.Name()
	m.mu.Unlock()

	m.log.Info("Trigger loop started (backend: %s)", loop.Detector.Name())
	defer m.log.Info("Trigger loop stopped")

	var frameIndex int64
	var samples int64

	for {
		frame, err := loop.Source.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}

		offset := sampleOffset(samples, loop.SampleRate)
		index := frameIndex
		frameIndex++
		samples += int64(len(frame))

		if m.Paused() {
			continue
		}

		rms := loudness.RMS(frame)
		m.recordFrame(rms)
		m.metrics.RecordFrame(ctx, "trigger", rms)

		detection, ok, err := loop.Detector.Process(frame)
		if err != nil {
			return fmt.Errorf("failed to process frame: %w", err)
		}
		if !ok {
			continue
		}

		event := Event{
			Detection: detection,
			Frame:     index,
			Offset:    offset,
			RMS:       rms,
			At:        m.clock.Now(),
		}

		m.recordDetection(event)
		m.metrics.RecordTrigger(ctx, loop.Detector.Name(), detection.Keyword, detection.Approximate)
		if detection.Approximate {
			m.log.Info("Trigger slot=%d keyword=%s rms=%.0f (approximate)", detection.Slot, detection.Keyword, rms)
		} else {
			m.log.Info("Trigger slot=%d keyword=%s", detection.Slot, detection.Keyword)
		}

		for _, handle := range loop.Handlers {
			handle(ctx, event)
		}
	}
}

// sampleOffset converts a sample count to audio time
func sampleOffset(samples int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
