package volume

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Osascript controls the macOS input volume through AppleScript
type Osascript struct {
	run Runner
}

// NewOsascript creates a macOS input volume store.
func NewOsascript(run Runner) *Osascript {
	if run == nil {
		run = ExecRunner
	}
	return &Osascript{run: run}
}

// Get returns the input volume reported by the volume settings.
func (o *Osascript) Get(ctx context.Context) (int, error) {
	out, err := o.run(ctx, "osascript", "-e", "input volume of (get volume settings)")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	// "missing value" is returned when the device has no input gain
	v, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected osascript output %q", ErrReadFailed, strings.TrimSpace(out))
	}
	return v, nil
}

// Set changes the input volume. Values are clamped to 0-100.
func (o *Osascript) Set(ctx context.Context, percent int) error {
	percent = clampPercent(percent)
	script := fmt.Sprintf("set volume input volume %d", percent)
	if _, err := o.run(ctx, "osascript", "-e", script); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}
