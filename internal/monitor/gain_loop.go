package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/yok-tottii/micwatch/internal/agc"
	"github.com/yok-tottii/micwatch/internal/loudness"
	"github.com/yok-tottii/micwatch/internal/volume"
)

// GainLoop adjusts the capture volume from measured loudness
type GainLoop struct {
	Source     FrameSource
	Controller *agc.Controller
	Store      volume.Store
	Interval   time.Duration // Minimum time between adjustments

	// OnDecision, when set, sees every applied or held decision
	OnDecision func(rms float64, decision agc.Decision)
}

// RunGain drains frames continuously and, at most once per Interval, steps
// the controller with the loudness of the latest frame. The first frame is
// acted on immediately. Volume read and write failures are transient: they
// are logged and counted and the loop carries on.
func (m *Monitor) RunGain(ctx context.Context, loop GainLoop) error {
	if loop.Source == nil || loop.Controller == nil || loop.Store == nil {
		return fmt.Errorf("gain loop needs a source, a controller and a volume store")
	}

	leave := m.enter()
	defer leave()

	m.log.Info("Gain loop started (interval: %v)", loop.Interval)
	defer m.log.Info("Gain loop stopped")

	var lastStep time.Time
	stepped := false

	for {
		frame, err := loop.Source.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}

		if m.Paused() {
			continue
		}

		rms := loudness.RMS(frame)
		m.recordFrame(rms)
		m.metrics.RecordFrame(ctx, "agc", rms)

		now := m.clock.Now()
		if stepped && now.Sub(lastStep) < loop.Interval {
			continue
		}
		stepped = true
		lastStep = now

		m.adjust(ctx, loop, rms)
	}
}

// adjust performs one read, decide, write cycle
func (m *Monitor) adjust(ctx context.Context, loop GainLoop, rms float64) {
	percent, readErr := loop.Store.Get(ctx)

	decision, err := loop.Controller.Step(rms, agc.Reading{Percent: percent, Err: readErr})
	if err != nil {
		m.mu.Lock()
		m.status.ReadFailures++
		m.mu.Unlock()
		m.metrics.RecordVolumeError(ctx, "read")
		m.log.Warn("Skipping volume adjustment: %v", err)
		return
	}

	if decision.Changed() {
		if err := loop.Store.Set(ctx, decision.To); err != nil {
			m.mu.Lock()
			m.status.WriteFailures++
			m.status.Volume = decision.From
			m.mu.Unlock()
			m.metrics.RecordVolumeError(ctx, "write")
			m.log.Warn("Failed to set volume to %d%%: %v", decision.To, err)
			return
		}
		m.log.Info("Volume %d%% -> %d%% (%s, rms=%.0f)", decision.From, decision.To, decision.Action, rms)
	} else {
		m.log.Debug("Volume %d%% held (%s, rms=%.0f)", decision.From, decision.Action, rms)
	}

	m.mu.Lock()
	m.status.Volume = decision.To
	m.status.LastDecision = &decision
	m.mu.Unlock()

	m.metrics.RecordAdjustment(ctx, decision.Action.String(), decision.To)

	if loop.OnDecision != nil {
		loop.OnDecision(rms, decision)
	}
}
