package trigger

import (
	"errors"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(0, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Set(offset time.Duration) {
	c.now = time.Unix(0, 0).Add(offset)
}

func constantFrame(v int16, n int) []int16 {
	frame := make([]int16, n)
	for i := range frame {
		frame[i] = v
	}
	return frame
}

func newDetector(t *testing.T, threshold float64, cooldown time.Duration, slots int, clock Clock) *Detector {
	t.Helper()
	d, err := New(Config{
		Threshold: threshold,
		Cooldown:  cooldown,
		Slots:     slots,
		Clock:     clock,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Threshold != 10000 {
		t.Errorf("Expected threshold 10000, got %v", config.Threshold)
	}

	if config.Cooldown != 2*time.Second {
		t.Errorf("Expected cooldown 2s, got %v", config.Cooldown)
	}

	if config.Slots != 1 {
		t.Errorf("Expected 1 slot, got %d", config.Slots)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"zero slots", Config{Threshold: 1, Cooldown: time.Second, Slots: 0}},
		{"negative slots", Config{Threshold: 1, Cooldown: time.Second, Slots: -2}},
		{"negative threshold", Config{Threshold: -1, Cooldown: time.Second, Slots: 1}},
		{"negative cooldown", Config{Threshold: 1, Cooldown: -time.Second, Slots: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.config)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			if d != nil {
				t.Error("Expected nil detector on error")
			}
		})
	}
}

func TestNew_DefaultsToSystemClock(t *testing.T) {
	d, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if d.clock == nil {
		t.Error("Expected a clock to be set")
	}
}

func TestProcess_QuietFramesNeverTrigger(t *testing.T) {
	clock := newFakeClock()
	d := newDetector(t, 10000, 2*time.Second, 3, clock)

	frames := [][]int16{
		nil,
		{},
		constantFrame(0, 512),
		constantFrame(9999, 512),
		constantFrame(-9999, 512),
	}

	for i, frame := range frames {
		clock.Set(time.Duration(i) * 10 * time.Second)
		if _, ok := d.Process(frame); ok {
			t.Errorf("Frame %d should not trigger", i)
		}
	}

	if d.NextSlot() != 0 {
		t.Errorf("Quiet frames must not advance the slot, got %d", d.NextSlot())
	}
}

func TestProcess_ExactlyAtThresholdDoesNotTrigger(t *testing.T) {
	d := newDetector(t, 10000, 0, 1, newFakeClock())

	if _, ok := d.Process(constantFrame(10000, 512)); ok {
		t.Error("A frame exactly at threshold must not trigger")
	}

	if _, ok := d.Process(constantFrame(10001, 512)); !ok {
		t.Error("A frame above threshold should trigger")
	}
}

func TestProcess_CooldownSuppressesImmediateRetrigger(t *testing.T) {
	clock := newFakeClock()
	d := newDetector(t, 10000, 2*time.Second, 2, clock)
	loud := constantFrame(15000, 512)

	slot, ok := d.Process(loud)
	if !ok || slot != 0 {
		t.Fatalf("Expected trigger on slot 0, got slot=%d ok=%v", slot, ok)
	}

	if _, ok := d.Process(loud); ok {
		t.Error("Second loud frame at the same instant must not trigger")
	}

	clock.Set(1999 * time.Millisecond)
	if _, ok := d.Process(loud); ok {
		t.Error("Loud frame inside cooldown must not trigger")
	}

	clock.Set(2 * time.Second)
	slot, ok = d.Process(loud)
	if !ok || slot != 1 {
		t.Errorf("Expected trigger on slot 1 once cooldown elapsed, got slot=%d ok=%v", slot, ok)
	}
}

func TestProcess_CooldownIsCheckedBeforeLoudness(t *testing.T) {
	clock := newFakeClock()
	d := newDetector(t, 10000, 2*time.Second, 1, clock)

	d.Process(constantFrame(15000, 512))

	clock.Set(time.Second)
	if !d.InCooldown(clock.Now()) {
		t.Fatal("Expected detector to be in cooldown")
	}

	// Silent frames inside the window do not extend or reset it.
	d.Process(constantFrame(0, 512))

	clock.Set(2 * time.Second)
	if d.InCooldown(clock.Now()) {
		t.Error("Cooldown should have elapsed")
	}
}

func TestProcess_SlotsCycleRoundRobin(t *testing.T) {
	clock := newFakeClock()
	d := newDetector(t, 100, time.Second, 3, clock)

	// Loudness magnitude must not influence the slot.
	amplitudes := []int16{200, 32767, -500, 102, -32768, 1000, 150}
	expected := []int{0, 1, 2, 0, 1, 2, 0}

	for i, amp := range amplitudes {
		clock.Set(time.Duration(i) * time.Second)
		slot, ok := d.Process(constantFrame(amp, 64))
		if !ok {
			t.Fatalf("Trigger %d did not fire", i)
		}
		if slot != expected[i] {
			t.Errorf("Trigger %d: expected slot %d, got %d", i, expected[i], slot)
		}
	}
}

func TestProcess_SingleSlotAlwaysZero(t *testing.T) {
	clock := newFakeClock()
	d := newDetector(t, 100, time.Second, 1, clock)

	for i := 0; i < 5; i++ {
		clock.Set(time.Duration(i) * time.Second)
		slot, ok := d.Process(constantFrame(1000, 16))
		if !ok || slot != 0 {
			t.Errorf("Trigger %d: expected slot 0, got slot=%d ok=%v", i, slot, ok)
		}
	}
}

func TestProcess_EndToEndScenario(t *testing.T) {
	clock := newFakeClock()
	d := newDetector(t, 10000, 2*time.Second, 2, clock)
	loud := constantFrame(15000, 512)

	steps := []struct {
		at       time.Duration
		wantOK   bool
		wantSlot int
	}{
		{0, true, 0},
		{500 * time.Millisecond, false, 0},
		{2100 * time.Millisecond, true, 1},
	}

	for _, step := range steps {
		clock.Set(step.at)
		slot, ok := d.Process(loud)
		if ok != step.wantOK {
			t.Fatalf("At %v: expected ok=%v, got %v", step.at, step.wantOK, ok)
		}
		if ok && slot != step.wantSlot {
			t.Errorf("At %v: expected slot %d, got %d", step.at, step.wantSlot, slot)
		}
	}
}

func TestLastTrigger(t *testing.T) {
	clock := newFakeClock()
	d := newDetector(t, 10, time.Second, 1, clock)

	if _, fired := d.LastTrigger(); fired {
		t.Error("Expected no trigger recorded initially")
	}

	clock.Set(3 * time.Second)
	d.Process(constantFrame(100, 8))

	at, fired := d.LastTrigger()
	if !fired {
		t.Fatal("Expected a trigger to be recorded")
	}
	if !at.Equal(clock.Now()) {
		t.Errorf("Expected last trigger at %v, got %v", clock.Now(), at)
	}
}
