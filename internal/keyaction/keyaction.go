// Package keyaction taps a configured key when a keyword slot fires.
package keyaction

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/yok-tottii/micwatch/internal/logger"
	"github.com/yok-tottii/micwatch/internal/monitor"
)

// Binding is the key tapped for one keyword slot
type Binding struct {
	Key       string   // robotgo key name, e.g. "space", "f5", "a"; empty disables the slot
	Modifiers []string // cmd, alt, ctrl or shift
}

// String formats the binding as mod+mod+key
func (b Binding) String() string {
	if b.Key == "" {
		return "none"
	}
	parts := append(append([]string(nil), b.Modifiers...), b.Key)
	return strings.Join(parts, "+")
}

// Tapper presses and releases a key with modifiers held
type Tapper func(key string, modifiers ...string) error

// RobotgoTap taps through robotgo
func RobotgoTap(key string, modifiers ...string) error {
	args := make([]interface{}, len(modifiers))
	for i, m := range modifiers {
		args[i] = m
	}
	return robotgo.KeyTap(key, args...)
}

// Dispatcher maps detections to key taps
type Dispatcher struct {
	bindings []Binding
	tap      Tapper
	log      *logger.Logger
	mu       sync.Mutex
	taps     int
}

// NewDispatcher validates the bindings. A nil tap uses RobotgoTap.
func NewDispatcher(bindings []Binding, tap Tapper, log *logger.Logger) (*Dispatcher, error) {
	if tap == nil {
		tap = RobotgoTap
	}
	if log == nil {
		log = logger.Nop()
	}

	normalized := make([]Binding, len(bindings))
	for i, b := range bindings {
		mods := make([]string, 0, len(b.Modifiers))
		for _, m := range b.Modifiers {
			mod, err := normalizeModifier(m)
			if err != nil {
				return nil, fmt.Errorf("slot %d: %w", i, err)
			}
			mods = append(mods, mod)
		}
		normalized[i] = Binding{Key: strings.ToLower(strings.TrimSpace(b.Key)), Modifiers: mods}
	}

	return &Dispatcher{bindings: normalized, tap: tap, log: log}, nil
}

// normalizeModifier maps common aliases onto robotgo modifier names
func normalizeModifier(m string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "cmd", "command", "super", "win":
		return "cmd", nil
	case "alt", "option":
		return "alt", nil
	case "ctrl", "control":
		return "ctrl", nil
	case "shift":
		return "shift", nil
	default:
		return "", fmt.Errorf("unknown modifier: %q", m)
	}
}

// Bindings returns a copy of the normalized bindings
func (d *Dispatcher) Bindings() []Binding {
	out := make([]Binding, len(d.bindings))
	copy(out, d.bindings)
	return out
}

// Taps returns the number of successful taps
func (d *Dispatcher) Taps() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.taps
}

// Handle taps the binding of the detected slot. It has the monitor.Handler
// signature. Slots without a binding are ignored; tap failures are logged.
func (d *Dispatcher) Handle(ctx context.Context, event monitor.Event) {
	slot := event.Detection.Slot
	if slot < 0 || slot >= len(d.bindings) || d.bindings[slot].Key == "" {
		return
	}
	binding := d.bindings[slot]

	if event.Detection.Approximate {
		d.log.Debug("Tapping %s for slot %d; slot was assigned round-robin, not recognized", binding, slot)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.tap(binding.Key, binding.Modifiers...); err != nil {
		d.log.Error("Failed to tap %s for %s: %v", binding, event.Detection.Keyword, err)
		return
	}
	d.taps++
	d.log.Info("Tapped %s for %s", binding, event.Detection.Keyword)
}
