// Package recording captures microphone frames into WAV files for later replay.
package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"github.com/yok-tottii/micwatch/internal/audio"
	"github.com/yok-tottii/micwatch/internal/logger"
)

// State represents the current recording state
type State int

const (
	// Idle means not recording
	Idle State = iota
	// Recording means frames are being captured
	Recording
	// Finishing means the WAV header is being written
	Finishing
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Recording:
		return "Recording"
	case Finishing:
		return "Finishing"
	default:
		return "Unknown"
	}
}

// Config holds configuration for the recorder
type Config struct {
	SampleRate  int
	MaxDuration time.Duration // Zero records until the context ends
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		SampleRate:  16000,
		MaxDuration: 60 * time.Second,
	}
}

// Result summarizes a finished recording
type Result struct {
	Frames   int
	Samples  int64
	Duration time.Duration
}

// Recorder writes 16-bit mono PCM from a source into a WAV stream
type Recorder struct {
	config Config
	log    *logger.Logger
	mu     sync.Mutex
	state  State
}

// New creates a recorder. A nil logger discards output.
func New(config Config, log *logger.Logger) (*Recorder, error) {
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", config.SampleRate)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Recorder{config: config, log: log}, nil
}

// GetState returns the current recording state
func (r *Recorder) GetState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Record captures frames until MaxDuration of audio has been written, the
// source ends or the context is canceled. The WAV header is finalized in
// every case, so a canceled recording is still playable.
func (r *Recorder) Record(ctx context.Context, src audio.Source, dst io.WriteSeeker) (Result, error) {
	r.mu.Lock()
	if r.state != Idle {
		r.mu.Unlock()
		return Result{}, fmt.Errorf("already recording (current state: %s)", r.state)
	}
	r.state = Recording
	r.mu.Unlock()
	defer r.setState(Idle)

	enc := wav.NewEncoder(dst, r.config.SampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: r.config.SampleRate},
		SourceBitDepth: 16,
	}

	var maxSamples int64
	if r.config.MaxDuration > 0 {
		maxSamples = int64(r.config.MaxDuration.Seconds() * float64(r.config.SampleRate))
	}

	var result Result
	captureErr := func() error {
		for maxSamples == 0 || result.Samples < maxSamples {
			frame, err := src.ReadFrame(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return nil
				}
				return fmt.Errorf("failed to read frame: %w", err)
			}

			if maxSamples > 0 && result.Samples+int64(len(frame)) > maxSamples {
				frame = frame[:maxSamples-result.Samples]
			}

			buf.Data = buf.Data[:0]
			for _, s := range frame {
				buf.Data = append(buf.Data, int(s))
			}
			if err := enc.Write(buf); err != nil {
				return fmt.Errorf("failed to write samples: %w", err)
			}

			result.Frames++
			result.Samples += int64(len(frame))
		}
		return nil
	}()

	r.setState(Finishing)
	closeErr := enc.Close()
	result.Duration = time.Duration(result.Samples) * time.Second / time.Duration(r.config.SampleRate)

	if captureErr != nil {
		return result, captureErr
	}
	if closeErr != nil {
		return result, fmt.Errorf("failed to finalize WAV: %w", closeErr)
	}

	r.log.Info("Recorded %d frames (%v)", result.Frames, result.Duration)
	return result, nil
}

// RecordFile records into a new file at path on fs
func (r *Recorder) RecordFile(ctx context.Context, fs afero.Fs, path string, src audio.Source) (Result, error) {
	f, err := fs.Create(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create %s: %w", path, err)
	}

	result, err := r.Record(ctx, src, f)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close %s: %w", path, cerr)
	}
	return result, err
}
