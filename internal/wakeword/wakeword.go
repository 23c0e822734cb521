// Package wakeword turns audio frames into keyword detections.
//
// Two backends exist. Porcupine runs the Picovoice engine and reports which
// keyword was spoken. Approximate fires on loudness alone and cycles through
// the keyword slots, so its detections say nothing about what was said; every
// Detection it produces has Approximate set.
package wakeword

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yok-tottii/micwatch/internal/logger"
	"github.com/yok-tottii/micwatch/internal/trigger"
)

// Backend names accepted by New
const (
	KindAuto        = "auto"
	KindPorcupine   = "porcupine"
	KindApproximate = "approximate"
)

var (
	// ErrUnknownBackend is returned for a backend name New does not recognize
	ErrUnknownBackend = errors.New("unknown wake word backend")
	// ErrUnavailable is returned when the real recognizer cannot be started
	ErrUnavailable = errors.New("wake word engine unavailable")
	// ErrFrameLength is returned when a frame does not match the backend frame length
	ErrFrameLength = errors.New("unexpected frame length")
)

// Detection describes one fired keyword slot
type Detection struct {
	Slot        int
	Keyword     string
	Approximate bool // true when the slot was chosen round-robin, not recognized
}

// Backend consumes frames and reports detections
type Backend interface {
	// Name returns the backend kind
	Name() string
	// Keywords returns the keyword name of every slot, in slot order
	Keywords() []string
	// FrameLength returns the number of samples Process expects
	FrameLength() int
	// SampleRate returns the sample rate the backend expects
	SampleRate() int
	// Process inspects one frame
	Process(frame []int16) (Detection, bool, error)
	// Close releases resources
	Close() error
}

// Keyword is one configured wake word
type Keyword struct {
	Name        string
	Path        string  // Porcupine .ppn file
	Sensitivity float64 // 0..1, 0 selects the default
}

// Config holds backend selection and settings
type Config struct {
	Backend     string // auto, porcupine or approximate
	AccessKey   string
	ModelPath   string // Empty uses the model bundled with the binding
	Keywords    []Keyword
	Trigger     trigger.Config // Approximate backend settings
	FrameLength int            // Approximate backend frame length
	SampleRate  int            // Approximate backend sample rate
}

// DefaultConfig returns the default backend configuration
func DefaultConfig() Config {
	return Config{
		Backend:     KindAuto,
		Trigger:     trigger.DefaultConfig(),
		FrameLength: 512,
		SampleRate:  16000,
	}
}

// New builds the configured backend.
//
// "porcupine" fails when the engine cannot start. "auto" tries Porcupine when
// an access key and keyword files are configured and otherwise falls back to
// the approximate backend, warning that keyword discrimination is lost.
// "approximate" always warns for the same reason.
func New(config Config, log *logger.Logger) (Backend, error) {
	switch strings.ToLower(config.Backend) {
	case KindPorcupine:
		return NewPorcupine(config.AccessKey, config.ModelPath, config.Keywords)

	case KindApproximate:
		log.Warn("Using approximate wake word backend: detections fire on loudness only and cycle through keyword slots")
		return newApproximateFromConfig(config)

	case KindAuto, "":
		reason := ""
		switch {
		case config.AccessKey == "":
			reason = "no access key configured"
		case len(config.Keywords) == 0:
			reason = "no keyword files configured"
		default:
			backend, err := NewPorcupine(config.AccessKey, config.ModelPath, config.Keywords)
			if err == nil {
				return backend, nil
			}
			reason = err.Error()
		}

		log.Warn("Porcupine unavailable (%s), falling back to approximate loudness trigger", reason)
		log.Warn("Approximate detections do not identify the spoken keyword; slots are assigned round-robin")
		return newApproximateFromConfig(config)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, config.Backend)
	}
}

func newApproximateFromConfig(config Config) (*Approximate, error) {
	names := make([]string, len(config.Keywords))
	for i, k := range config.Keywords {
		names[i] = keywordLabel(k)
	}
	return NewApproximate(config.Trigger, names, config.FrameLength, config.SampleRate)
}

// KeywordName derives a keyword name from a model file name: the basename up
// to the first underscore, without extension.
// "computer_en_linux_v3_0_0.ppn" becomes "computer".
func KeywordName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.Index(base, "_"); i >= 0 {
		base = base[:i]
	}
	return base
}

func keywordLabel(k Keyword) string {
	if k.Name != "" {
		return k.Name
	}
	if k.Path != "" {
		return KeywordName(k.Path)
	}
	return ""
}
