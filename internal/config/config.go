package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yok-tottii/micwatch/internal/agc"
	"github.com/yok-tottii/micwatch/internal/audio"
	"github.com/yok-tottii/micwatch/internal/hotkey"
	"github.com/yok-tottii/micwatch/internal/keyaction"
	"github.com/yok-tottii/micwatch/internal/logger"
	"github.com/yok-tottii/micwatch/internal/trigger"
	"github.com/yok-tottii/micwatch/internal/volume"
	"github.com/yok-tottii/micwatch/internal/wakeword"
)

// Config holds application configuration
type Config struct {
	Audio      AudioConfig   `json:"audio" yaml:"audio"`
	Trigger    TriggerConfig `json:"trigger" yaml:"trigger"`
	AGC        AGCConfig     `json:"agc" yaml:"agc"`
	Hotkey     HotkeyConfig  `json:"hotkey" yaml:"hotkey"`
	Server     ServerConfig  `json:"server" yaml:"server"`
	LogLevel   string        `json:"log_level" yaml:"log_level"`
	DotenvPath string        `json:"dotenv_path" yaml:"dotenv_path"` // Empty means ".env" in the working directory
	mu         sync.RWMutex
}

// AudioConfig holds capture settings
type AudioConfig struct {
	DeviceID    int    `json:"device_id" yaml:"device_id"` // -1 means system default
	SampleRate  int    `json:"sample_rate" yaml:"sample_rate"`
	FrameLength int    `json:"frame_length" yaml:"frame_length"`
	Latency     string `json:"latency" yaml:"latency"` // "low" or "high"
}

// TriggerConfig holds wake word settings
type TriggerConfig struct {
	Backend      string          `json:"backend" yaml:"backend"` // "auto", "porcupine" or "approximate"
	Threshold    float64         `json:"threshold" yaml:"threshold"`
	CooldownMS   int             `json:"cooldown_ms" yaml:"cooldown_ms"`
	Keywords     []KeywordConfig `json:"keywords" yaml:"keywords"`
	ModelPath    string          `json:"model_path" yaml:"model_path"`
	AccessKeyEnv string          `json:"access_key_env" yaml:"access_key_env"`
	Notify       bool            `json:"notify" yaml:"notify"` // Desktop notification per detection
}

// KeywordConfig describes one wake word slot
type KeywordConfig struct {
	Name        string   `json:"name" yaml:"name"`
	Path        string   `json:"path" yaml:"path"`
	Sensitivity float64  `json:"sensitivity" yaml:"sensitivity"`
	Key         string   `json:"key" yaml:"key"`             // Key to tap when the slot fires
	Modifiers   []string `json:"modifiers" yaml:"modifiers"` // e.g. ["cmd", "shift"]
}

// AGCConfig holds gain control settings
type AGCConfig struct {
	TargetLow   float64 `json:"target_low" yaml:"target_low"`
	TargetHigh  float64 `json:"target_high" yaml:"target_high"`
	StepPercent int     `json:"step_percent" yaml:"step_percent"`
	VolumeMin   int     `json:"volume_min" yaml:"volume_min"`
	VolumeMax   int     `json:"volume_max" yaml:"volume_max"`
	IntervalMS  int     `json:"interval_ms" yaml:"interval_ms"`
	Mixer       string  `json:"mixer" yaml:"mixer"`     // "amixer" or "osascript"
	Control     string  `json:"control" yaml:"control"` // amixer simple control
}

// HotkeyConfig holds the pause toggle hotkey
type HotkeyConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Ctrl    bool   `json:"ctrl" yaml:"ctrl"`
	Shift   bool   `json:"shift" yaml:"shift"`
	Alt     bool   `json:"alt" yaml:"alt"`
	Cmd     bool   `json:"cmd" yaml:"cmd"`
	Key     string `json:"key" yaml:"key"` // e.g., "M"
}

// ServerConfig holds the status server settings
type ServerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

// DefaultAccessKeyEnv names the variable holding the Picovoice access key
const DefaultAccessKeyEnv = "PICOVOICE_ACCESS_KEY"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			DeviceID:    -1, // -1 means use system default device
			SampleRate:  16000,
			FrameLength: 512,
			Latency:     "high",
		},
		Trigger: TriggerConfig{
			Backend:      wakeword.KindAuto,
			Threshold:    10000,
			CooldownMS:   2000,
			AccessKeyEnv: DefaultAccessKeyEnv,
		},
		AGC: AGCConfig{
			TargetLow:   8000,
			TargetHigh:  12000,
			StepPercent: 5,
			VolumeMin:   0,
			VolumeMax:   100,
			IntervalMS:  1000,
			Mixer:       "amixer",
			Control:     "Capture",
		},
		Hotkey: HotkeyConfig{
			Ctrl: true,
			Alt:  true,
			Key:  "M",
		},
		Server: ServerConfig{
			Enabled: false,
			Port:    18765,
		},
		LogLevel: "info",
	}
}

// isYAML reports whether path should be read and written as YAML
func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load loads configuration from the specified path.
// Fields missing from the file keep their default values.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Trigger.AccessKeyEnv == "" {
		config.Trigger.AccessKeyEnv = DefaultAccessKeyEnv
	}

	return config, nil
}

// LoadEnv loads environment variables from a .env file.
// A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}

	return nil
}

// Save saves configuration to the specified path
func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.encodeLocked(path)
	if err != nil {
		return err
	}

	// Write to file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Encode renders the configuration in the format implied by path's extension
func (c *Config) Encode(path string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.encodeLocked(path)
}

func (c *Config) encodeLocked(path string) ([]byte, error) {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}
	return filepath.Join(configDir, "micwatch", "config.yaml")
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	trig := c.Trigger
	trig.Keywords = make([]KeywordConfig, len(c.Trigger.Keywords))
	for i, k := range c.Trigger.Keywords {
		k.Modifiers = append([]string(nil), k.Modifiers...)
		trig.Keywords[i] = k
	}

	return &Config{
		Audio:      c.Audio,
		Trigger:    trig,
		AGC:        c.AGC,
		Hotkey:     c.Hotkey,
		Server:     c.Server,
		LogLevel:   c.LogLevel,
		DotenvPath: c.DotenvPath,
	}
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, path[2:]), nil
	}

	// Return absolute path
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}

// AccessKey returns the Picovoice access key from the environment
func (c *Config) AccessKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return os.Getenv(c.Trigger.AccessKeyEnv)
}

// AudioSettings converts the audio section for the capture source
func (c *Config) AudioSettings() audio.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return audio.Config{
		DeviceID:    c.Audio.DeviceID,
		SampleRate:  c.Audio.SampleRate,
		Channels:    1,
		FrameLength: c.Audio.FrameLength,
		Latency:     audio.ParseLatency(c.Audio.Latency),
	}
}

// WakewordSettings converts the trigger section for wakeword.New.
// Keyword paths are expanded; the access key is read from the environment.
func (c *Config) WakewordSettings() (wakeword.Config, error) {
	accessKey := c.AccessKey()

	c.mu.RLock()
	defer c.mu.RUnlock()

	modelPath, err := ExpandPath(c.Trigger.ModelPath)
	if err != nil {
		return wakeword.Config{}, fmt.Errorf("failed to expand model path: %w", err)
	}

	keywords := make([]wakeword.Keyword, len(c.Trigger.Keywords))
	for i, k := range c.Trigger.Keywords {
		path, err := ExpandPath(k.Path)
		if err != nil {
			return wakeword.Config{}, fmt.Errorf("failed to expand keyword path: %w", err)
		}
		keywords[i] = wakeword.Keyword{Name: k.Name, Path: path, Sensitivity: k.Sensitivity}
	}

	return wakeword.Config{
		Backend:   c.Trigger.Backend,
		AccessKey: accessKey,
		ModelPath: modelPath,
		Keywords:  keywords,
		Trigger: trigger.Config{
			Threshold: c.Trigger.Threshold,
			Cooldown:  time.Duration(c.Trigger.CooldownMS) * time.Millisecond,
			Slots:     1,
		},
		FrameLength: c.Audio.FrameLength,
		SampleRate:  c.Audio.SampleRate,
	}, nil
}

// AGCSettings converts the agc section for agc.New
func (c *Config) AGCSettings() agc.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.agcConfigLocked()
}

// Interval returns the gain control period
func (c *Config) Interval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return time.Duration(c.AGC.IntervalMS) * time.Millisecond
}

// HotkeySettings converts the hotkey section for hotkey.Manager
func (c *Config) HotkeySettings() hotkey.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.Hotkey.Settings()
}

// Settings converts the section to abstract modifiers
func (h HotkeyConfig) Settings() hotkey.Config {
	var mods []hotkey.Modifier
	if h.Ctrl {
		mods = append(mods, hotkey.Ctrl)
	}
	if h.Shift {
		mods = append(mods, hotkey.Shift)
	}
	if h.Alt {
		mods = append(mods, hotkey.Alt)
	}
	if h.Cmd {
		mods = append(mods, hotkey.Cmd)
	}
	return hotkey.Config{Modifiers: mods, Key: h.Key}
}

// Conflicts lists known shortcuts that the hotkey would shadow
func (h HotkeyConfig) Conflicts() []hotkey.ConflictInfo {
	hk := h.Settings()
	return hotkey.CheckConflicts(hk.Modifiers, hk.Key)
}

// KeyBindings returns one binding per keyword slot, in slot order
func (c *Config) KeyBindings() []keyaction.Binding {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bindings := make([]keyaction.Binding, len(c.Trigger.Keywords))
	for i, k := range c.Trigger.Keywords {
		bindings[i] = keyaction.Binding{
			Key:       k.Key,
			Modifiers: append([]string(nil), k.Modifiers...),
		}
	}
	return bindings
}

// Validate validates all configuration fields and reports every problem found
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error

	// Audio
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("invalid audio.sample_rate: %d (must be positive)", c.Audio.SampleRate))
	}
	if c.Audio.FrameLength <= 0 {
		errs = append(errs, fmt.Errorf("invalid audio.frame_length: %d (must be positive)", c.Audio.FrameLength))
	}
	if c.Audio.DeviceID < -1 {
		errs = append(errs, fmt.Errorf("invalid audio.device_id: %d (must be -1 or a device index)", c.Audio.DeviceID))
	}
	if c.Audio.Latency != "low" && c.Audio.Latency != "high" {
		errs = append(errs, fmt.Errorf("invalid audio.latency: %q (must be 'low' or 'high')", c.Audio.Latency))
	}

	// Trigger
	switch c.Trigger.Backend {
	case wakeword.KindAuto, wakeword.KindPorcupine, wakeword.KindApproximate:
	default:
		errs = append(errs, fmt.Errorf("invalid trigger.backend: %q (must be 'auto', 'porcupine' or 'approximate')", c.Trigger.Backend))
	}
	if c.Trigger.Threshold < 0 {
		errs = append(errs, fmt.Errorf("invalid trigger.threshold: %v (must not be negative)", c.Trigger.Threshold))
	}
	if c.Trigger.CooldownMS < 0 {
		errs = append(errs, fmt.Errorf("invalid trigger.cooldown_ms: %d (must not be negative)", c.Trigger.CooldownMS))
	}
	for i, k := range c.Trigger.Keywords {
		if c.Trigger.Backend == wakeword.KindPorcupine && k.Path == "" {
			errs = append(errs, fmt.Errorf("trigger.keywords[%d]: path is required for the porcupine backend", i))
		}
		if k.Sensitivity < 0 || k.Sensitivity > 1 {
			errs = append(errs, fmt.Errorf("trigger.keywords[%d]: invalid sensitivity %v (must be between 0 and 1)", i, k.Sensitivity))
		}
	}
	if c.Trigger.Backend == wakeword.KindPorcupine && len(c.Trigger.Keywords) == 0 {
		errs = append(errs, fmt.Errorf("trigger.keywords: at least one keyword is required for the porcupine backend"))
	}

	// AGC
	if err := c.agcConfigLocked().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.AGC.IntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("invalid agc.interval_ms: %d (must be positive)", c.AGC.IntervalMS))
	}
	if _, err := volume.New(c.AGC.Mixer, c.AGC.Control); err != nil {
		errs = append(errs, fmt.Errorf("invalid agc.mixer: %w", err))
	}

	// Hotkey
	if c.Hotkey.Enabled {
		if c.Hotkey.Key == "" {
			errs = append(errs, fmt.Errorf("hotkey.key cannot be empty when the hotkey is enabled"))
		} else if _, err := hotkey.ParseKey(c.Hotkey.Key); err != nil {
			errs = append(errs, fmt.Errorf("invalid hotkey.key: %w", err))
		}
	}

	// Server
	if c.Server.Enabled && (c.Server.Port < 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Errorf("invalid server.port: %d (must be between 0 and 65535)", c.Server.Port))
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log_level: %w", err))
	}

	return errors.Join(errs...)
}

func (c *Config) agcConfigLocked() agc.Config {
	return agc.Config{
		TargetLow:   c.AGC.TargetLow,
		TargetHigh:  c.AGC.TargetHigh,
		StepPercent: c.AGC.StepPercent,
		VolumeMin:   c.AGC.VolumeMin,
		VolumeMax:   c.AGC.VolumeMax,
	}
}
