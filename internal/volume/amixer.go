package volume

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// percentPattern matches the "[50%]" fields amixer prints per channel
var percentPattern = regexp.MustCompile(`\[(\d+)%\]`)

// Amixer controls an ALSA simple mixer control through the amixer utility
type Amixer struct {
	control string
	run     Runner
}

// NewAmixer creates a store for the given control (default "Capture").
func NewAmixer(control string, run Runner) *Amixer {
	if control == "" {
		control = "Capture"
	}
	if run == nil {
		run = ExecRunner
	}
	return &Amixer{control: control, run: run}
}

// Get returns the first channel percentage reported by `amixer get`.
func (a *Amixer) Get(ctx context.Context) (int, error) {
	out, err := a.run(ctx, "amixer", "get", a.control)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	return parseAmixerPercent(out)
}

// Set writes the volume with `amixer sset`. Values are clamped to 0-100.
func (a *Amixer) Set(ctx context.Context, percent int) error {
	percent = clampPercent(percent)
	if _, err := a.run(ctx, "amixer", "sset", a.control, fmt.Sprintf("%d%%", percent)); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

func parseAmixerPercent(out string) (int, error) {
	m := percentPattern.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("%w: no percentage in amixer output", ErrReadFailed)
	}

	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return v, nil
}
