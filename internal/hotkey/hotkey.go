package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

// Modifier is a platform-independent modifier key
type Modifier int

const (
	// Ctrl is Control on every platform
	Ctrl Modifier = iota
	// Shift is Shift on every platform
	Shift
	// Alt is Option on macOS and Alt elsewhere
	Alt
	// Cmd is Command on macOS, Super on Linux and Win on Windows
	Cmd
)

// EventType represents the type of hotkey event
type EventType int

const (
	// Paused indicates monitoring should pause
	Paused EventType = iota
	// Resumed indicates monitoring should resume
	Resumed
)

// String returns the event name
func (e EventType) String() string {
	switch e {
	case Paused:
		return "Paused"
	case Resumed:
		return "Resumed"
	default:
		return "Unknown"
	}
}

// Event represents a hotkey event
type Event struct {
	Type EventType
}

// Config holds hotkey configuration
type Config struct {
	Modifiers []Modifier
	Key       string // e.g. "M", "Space", "F5"
}

// DefaultConfig returns Ctrl+Alt+M
func DefaultConfig() Config {
	return Config{
		Modifiers: []Modifier{Ctrl, Alt},
		Key:       "M",
	}
}

// Manager registers a global pause toggle and reports its presses.
// The first press reports Paused, the next Resumed, and so on.
type Manager struct {
	hk        *hotkey.Hotkey
	config    Config
	paused    bool
	eventChan chan Event
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// New creates a new hotkey manager with default configuration
func New() *Manager {
	return &Manager{
		config:    DefaultConfig(),
		eventChan: make(chan Event, 10),
		stopChan:  make(chan struct{}),
	}
}

// Register registers the hotkey with the system
func (m *Manager) Register(config Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("hotkey is already running, call Close() first")
	}

	key, err := ParseKey(config.Key)
	if err != nil {
		return err
	}

	mods := make([]hotkey.Modifier, 0, len(config.Modifiers))
	for _, mod := range config.Modifiers {
		native, ok := nativeModifier(mod)
		if !ok {
			return fmt.Errorf("unsupported modifier: %d", mod)
		}
		mods = append(mods, native)
	}

	m.config = config
	m.paused = false

	// Recreate channels (they may have been closed by a previous Close())
	m.stopChan = make(chan struct{})
	m.eventChan = make(chan Event, 10)

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey: %w", err)
	}

	m.hk = hk
	m.running = true

	// Start listening in a goroutine
	m.wg.Add(1)
	go m.listen(m.hk, m.eventChan, m.stopChan)

	return nil
}

// RegisterDefault registers the default hotkey
func (m *Manager) RegisterDefault() error {
	return m.Register(DefaultConfig())
}

// listen forwards key presses as pause toggles
func (m *Manager) listen(hk *hotkey.Hotkey, events chan<- Event, stop <-chan struct{}) {
	defer m.wg.Done()

	for {
		select {
		case <-hk.Keydown():
			event := m.toggle()
			select {
			case events <- event:
			default:
				// Consumer is not keeping up; drop the press
			}

		case <-hk.Keyup():

		case <-stop:
			return
		}
	}
}

// toggle flips the pause state and returns the matching event
func (m *Manager) toggle() Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paused = !m.paused
	if m.paused {
		return Event{Type: Paused}
	}
	return Event{Type: Resumed}
}

// Events returns the event channel for receiving hotkey events
func (m *Manager) Events() <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventChan
}

// Close unregisters the hotkey and stops listening
func (m *Manager) Close() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}

	// Signal the listener to stop
	close(m.stopChan)
	m.mu.Unlock()

	// The listener takes mu in toggle, so wait without holding it
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	var unregisterErr error
	if m.hk != nil {
		if err := m.hk.Unregister(); err != nil {
			unregisterErr = fmt.Errorf("failed to unregister hotkey: %w", err)
		}
		m.hk = nil
	}

	// Close event channel to notify consumers of shutdown
	if m.eventChan != nil {
		close(m.eventChan)
	}

	// Cleared even when Unregister fails so Register can be retried
	m.running = false

	return unregisterErr
}

// IsRunning returns whether the hotkey is currently registered and running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// GetConfig returns a deep copy of the current hotkey configuration
func (m *Manager) GetConfig() Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	configCopy := m.config
	if m.config.Modifiers != nil {
		configCopy.Modifiers = make([]Modifier, len(m.config.Modifiers))
		copy(configCopy.Modifiers, m.config.Modifiers)
	}

	return configCopy
}
