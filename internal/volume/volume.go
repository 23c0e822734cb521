// Package volume reads and writes the system microphone capture volume.
package volume

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrReadFailed wraps failures reading the capture volume
	ErrReadFailed = errors.New("volume read failed")
	// ErrWriteFailed wraps failures writing the capture volume
	ErrWriteFailed = errors.New("volume write failed")
)

// Store exposes the capture volume as an integer percentage.
// Implementations do not retry; callers decide what to do on failure.
type Store interface {
	// Get returns the current capture volume
	Get(ctx context.Context) (int, error)

	// Set changes the capture volume
	Set(ctx context.Context, percent int) error
}

// Runner executes an external command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return string(out), nil
}

// New returns the store for the named mixer.
// Supported: "amixer" (ALSA) and "osascript" (macOS).
func New(mixer, control string) (Store, error) {
	switch mixer {
	case "amixer", "":
		return NewAmixer(control, ExecRunner), nil
	case "osascript":
		return NewOsascript(ExecRunner), nil
	default:
		return nil, fmt.Errorf("unknown mixer: %s", mixer)
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
