package wakeword

import (
	"fmt"
	"sync"

	porcupine "github.com/Picovoice/porcupine/binding/go/v2"
)

// defaultSensitivity is used for keywords configured without one
const defaultSensitivity = 0.5

// Porcupine recognizes keywords with the Picovoice Porcupine engine
type Porcupine struct {
	engine   porcupine.Porcupine
	keywords []string
	mu       sync.Mutex
	closed   bool
}

// NewPorcupine initializes the engine with one keyword file per slot
func NewPorcupine(accessKey, modelPath string, keywords []Keyword) (*Porcupine, error) {
	if accessKey == "" {
		return nil, fmt.Errorf("%w: access key is empty", ErrUnavailable)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%w: no keyword files", ErrUnavailable)
	}

	paths := make([]string, len(keywords))
	sensitivities := make([]float32, len(keywords))
	names := make([]string, len(keywords))
	for i, k := range keywords {
		if k.Path == "" {
			return nil, fmt.Errorf("%w: keyword %d has no file", ErrUnavailable, i)
		}
		if k.Sensitivity < 0 || k.Sensitivity > 1 {
			return nil, fmt.Errorf("%w: keyword %d sensitivity %v outside [0, 1]", ErrUnavailable, i, k.Sensitivity)
		}

		paths[i] = k.Path
		sensitivities[i] = float32(k.Sensitivity)
		if sensitivities[i] == 0 {
			sensitivities[i] = defaultSensitivity
		}
		names[i] = keywordLabel(k)
	}

	p := &Porcupine{
		engine: porcupine.Porcupine{
			AccessKey:     accessKey,
			ModelPath:     modelPath,
			KeywordPaths:  paths,
			Sensitivities: sensitivities,
		},
		keywords: names,
	}

	if err := p.engine.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return p, nil
}

// Name returns "porcupine"
func (p *Porcupine) Name() string { return KindPorcupine }

// Keywords returns the keyword names in slot order
func (p *Porcupine) Keywords() []string {
	out := make([]string, len(p.keywords))
	copy(out, p.keywords)
	return out
}

// FrameLength returns the engine's required frame length
func (p *Porcupine) FrameLength() int { return porcupine.FrameLength }

// SampleRate returns the engine's required sample rate
func (p *Porcupine) SampleRate() int { return porcupine.SampleRate }

// Process runs the engine on one frame
func (p *Porcupine) Process(frame []int16) (Detection, bool, error) {
	if len(frame) != porcupine.FrameLength {
		return Detection{}, false, fmt.Errorf("%w: got %d samples, want %d", ErrFrameLength, len(frame), porcupine.FrameLength)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Detection{}, false, fmt.Errorf("porcupine closed")
	}

	index, err := p.engine.Process(frame)
	if err != nil {
		return Detection{}, false, fmt.Errorf("porcupine process failed: %w", err)
	}
	if index < 0 || index >= len(p.keywords) {
		return Detection{}, false, nil
	}

	return Detection{Slot: index, Keyword: p.keywords[index]}, true, nil
}

// Close releases the engine
func (p *Porcupine) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.engine.Delete()
}
