package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yok-tottii/micwatch/internal/audio"
	"github.com/yok-tottii/micwatch/internal/hotkey"
	"github.com/yok-tottii/micwatch/internal/wakeword"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("Expected default config to be created")
	}

	if config.Audio.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", config.Audio.SampleRate)
	}

	if config.Audio.FrameLength != 512 {
		t.Errorf("Expected frame length 512, got %d", config.Audio.FrameLength)
	}

	if config.Audio.DeviceID != -1 {
		t.Errorf("Expected device ID -1, got %d", config.Audio.DeviceID)
	}

	if config.Trigger.Backend != "auto" {
		t.Errorf("Expected backend 'auto', got '%s'", config.Trigger.Backend)
	}

	if config.Trigger.Threshold != 10000 {
		t.Errorf("Expected threshold 10000, got %v", config.Trigger.Threshold)
	}

	if config.Trigger.CooldownMS != 2000 {
		t.Errorf("Expected cooldown 2000ms, got %d", config.Trigger.CooldownMS)
	}

	if config.AGC.TargetLow != 8000 || config.AGC.TargetHigh != 12000 {
		t.Errorf("Expected target band [8000, 12000], got [%v, %v]", config.AGC.TargetLow, config.AGC.TargetHigh)
	}

	if config.AGC.StepPercent != 5 {
		t.Errorf("Expected step 5, got %d", config.AGC.StepPercent)
	}

	if config.AGC.VolumeMin != 0 || config.AGC.VolumeMax != 100 {
		t.Errorf("Expected volume bounds [0, 100], got [%d, %d]", config.AGC.VolumeMin, config.AGC.VolumeMax)
	}

	if config.AGC.Mixer != "amixer" || config.AGC.Control != "Capture" {
		t.Errorf("Expected amixer Capture, got %s %s", config.AGC.Mixer, config.AGC.Control)
	}

	if config.Trigger.AccessKeyEnv != DefaultAccessKeyEnv {
		t.Errorf("Expected access key env %s, got %s", DefaultAccessKeyEnv, config.Trigger.AccessKeyEnv)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "nested", name)

			config := DefaultConfig()
			config.Trigger.Backend = "approximate"
			config.Trigger.Keywords = []KeywordConfig{
				{Name: "computer", Path: "~/keywords/computer_en_linux_v3_0_0.ppn", Sensitivity: 0.6, Key: "space", Modifiers: []string{"cmd"}},
			}
			config.AGC.StepPercent = 10
			config.LogLevel = "debug"

			if err := config.Save(configPath); err != nil {
				t.Fatalf("Failed to save config: %v", err)
			}

			loaded, err := Load(configPath)
			if err != nil {
				t.Fatalf("Failed to load config: %v", err)
			}

			if loaded.Trigger.Backend != "approximate" {
				t.Errorf("Expected backend 'approximate', got '%s'", loaded.Trigger.Backend)
			}
			if len(loaded.Trigger.Keywords) != 1 || loaded.Trigger.Keywords[0].Key != "space" {
				t.Errorf("Expected one keyword with key 'space', got %+v", loaded.Trigger.Keywords)
			}
			if loaded.AGC.StepPercent != 10 {
				t.Errorf("Expected step 10, got %d", loaded.AGC.StepPercent)
			}
			if loaded.LogLevel != "debug" {
				t.Errorf("Expected log level 'debug', got '%s'", loaded.LogLevel)
			}
		})
	}
}

func TestLoadNonExistent(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}

	if config.Trigger.Threshold != 10000 {
		t.Error("Expected default config for missing file")
	}
}

func TestLoadPartialYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")
	content := `
trigger:
  backend: approximate
  threshold: 4000
agc:
  target_low: 5000
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Trigger.Threshold != 4000 {
		t.Errorf("Expected threshold 4000, got %v", config.Trigger.Threshold)
	}
	if config.AGC.TargetLow != 5000 {
		t.Errorf("Expected target_low 5000, got %v", config.AGC.TargetLow)
	}
	// Untouched fields keep defaults
	if config.Trigger.CooldownMS != 2000 {
		t.Errorf("Expected default cooldown 2000, got %d", config.Trigger.CooldownMS)
	}
	if config.AGC.TargetHigh != 12000 {
		t.Errorf("Expected default target_high 12000, got %v", config.AGC.TargetHigh)
	}
}

func TestLoadEmptyYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Expected empty file to load, got %v", err)
	}
	if config.Audio.FrameLength != 512 {
		t.Errorf("Expected default frame length, got %d", config.Audio.FrameLength)
	}
}

func TestLoadRejectsUnknownYAMLFields(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("trigger:\n  treshold: 1\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected error for misspelled field")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(configPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid default", func(c *Config) {}, ""},
		{"bad backend", func(c *Config) { c.Trigger.Backend = "vosk" }, "trigger.backend"},
		{"negative threshold", func(c *Config) { c.Trigger.Threshold = -1 }, "trigger.threshold"},
		{"negative cooldown", func(c *Config) { c.Trigger.CooldownMS = -5 }, "trigger.cooldown_ms"},
		{"porcupine without keywords", func(c *Config) { c.Trigger.Backend = "porcupine" }, "at least one keyword"},
		{"porcupine keyword without path", func(c *Config) {
			c.Trigger.Backend = "porcupine"
			c.Trigger.Keywords = []KeywordConfig{{Name: "x"}}
		}, "path is required"},
		{"bad sensitivity", func(c *Config) {
			c.Trigger.Keywords = []KeywordConfig{{Path: "a.ppn", Sensitivity: 2}}
		}, "sensitivity"},
		{"inverted band", func(c *Config) { c.AGC.TargetLow = 20000 }, "invalid gain control config"},
		{"zero step", func(c *Config) { c.AGC.StepPercent = 0 }, "invalid gain control config"},
		{"zero interval", func(c *Config) { c.AGC.IntervalMS = 0 }, "agc.interval_ms"},
		{"bad mixer", func(c *Config) { c.AGC.Mixer = "pulse" }, "agc.mixer"},
		{"bad sample rate", func(c *Config) { c.Audio.SampleRate = 0 }, "audio.sample_rate"},
		{"bad frame length", func(c *Config) { c.Audio.FrameLength = -1 }, "audio.frame_length"},
		{"bad device", func(c *Config) { c.Audio.DeviceID = -2 }, "audio.device_id"},
		{"bad latency", func(c *Config) { c.Audio.Latency = "medium" }, "audio.latency"},
		{"empty hotkey", func(c *Config) {
			c.Hotkey.Enabled = true
			c.Hotkey.Key = ""
		}, "hotkey.key"},
		{"unknown hotkey", func(c *Config) {
			c.Hotkey.Enabled = true
			c.Hotkey.Key = "Hyper"
		}, "invalid hotkey.key"},
		{"bad port", func(c *Config) {
			c.Server.Enabled = true
			c.Server.Port = 70000
		}, "server.port"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	config := DefaultConfig()
	config.Trigger.Threshold = -1
	config.AGC.IntervalMS = 0
	config.LogLevel = "loud"

	err := config.Validate()
	if err == nil {
		t.Fatal("Expected validation errors")
	}

	for _, want := range []string{"trigger.threshold", "agc.interval_ms", "log_level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}
}

func TestClone(t *testing.T) {
	original := DefaultConfig()
	original.Trigger.Keywords = []KeywordConfig{{Name: "computer", Modifiers: []string{"cmd"}}}

	clone := original.Clone()

	clone.Trigger.Keywords[0].Name = "jarvis"
	clone.Trigger.Keywords[0].Modifiers[0] = "ctrl"
	clone.AGC.StepPercent = 50

	if original.Trigger.Keywords[0].Name != "computer" {
		t.Error("Clone shares keyword slice with original")
	}
	if original.Trigger.Keywords[0].Modifiers[0] != "cmd" {
		t.Error("Clone shares modifier slice with original")
	}
	if original.AGC.StepPercent != 5 {
		t.Error("Clone shares AGC section with original")
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("No home directory: %v", err)
	}

	expanded, err := ExpandPath("~/keywords/a.ppn")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if expanded != filepath.Join(homeDir, "keywords", "a.ppn") {
		t.Errorf("Unexpected expansion: %s", expanded)
	}

	empty, err := ExpandPath("")
	if err != nil || empty != "" {
		t.Errorf("Expected empty path to stay empty, got %q, %v", empty, err)
	}

	abs, err := ExpandPath("relative.ppn")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if !filepath.IsAbs(abs) {
		t.Errorf("Expected absolute path, got %s", abs)
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected config.yaml, got %s", path)
	}
	if filepath.Base(filepath.Dir(path)) != "micwatch" {
		t.Errorf("Expected micwatch directory, got %s", path)
	}
}

func TestLoadEnv(t *testing.T) {
	const name = "MICWATCH_TEST_ACCESS_KEY"
	os.Unsetenv(name)
	t.Cleanup(func() { os.Unsetenv(name) })

	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte(name+"=secret\n"), 0600); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	if err := LoadEnv(envPath); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}

	config := DefaultConfig()
	config.Trigger.AccessKeyEnv = name
	if config.AccessKey() != "secret" {
		t.Errorf("Expected access key 'secret', got %q", config.AccessKey())
	}

	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Expected missing env file to be ignored, got %v", err)
	}
}

func TestSettingsConversion(t *testing.T) {
	config := DefaultConfig()
	config.Audio.Latency = "low"
	config.Trigger.Backend = "approximate"
	config.Trigger.CooldownMS = 1500
	config.Trigger.Keywords = []KeywordConfig{{Name: "computer", Path: "/k/computer.ppn", Sensitivity: 0.7}}
	config.Trigger.AccessKeyEnv = "MICWATCH_TEST_UNSET_KEY"
	config.AGC.IntervalMS = 250

	audioConfig := config.AudioSettings()
	if audioConfig.Latency != audio.LowLatency || audioConfig.FrameLength != 512 || audioConfig.Channels != 1 {
		t.Errorf("Unexpected audio settings: %+v", audioConfig)
	}

	wake, err := config.WakewordSettings()
	if err != nil {
		t.Fatalf("WakewordSettings failed: %v", err)
	}
	if wake.Backend != wakeword.KindApproximate {
		t.Errorf("Expected approximate backend, got %s", wake.Backend)
	}
	if wake.Trigger.Cooldown != 1500*time.Millisecond {
		t.Errorf("Expected cooldown 1.5s, got %v", wake.Trigger.Cooldown)
	}
	if wake.Trigger.Threshold != 10000 {
		t.Errorf("Expected threshold 10000, got %v", wake.Trigger.Threshold)
	}
	if len(wake.Keywords) != 1 || wake.Keywords[0].Path != "/k/computer.ppn" || wake.Keywords[0].Sensitivity != 0.7 {
		t.Errorf("Unexpected keywords: %+v", wake.Keywords)
	}
	if wake.AccessKey != "" {
		t.Errorf("Expected empty access key, got %q", wake.AccessKey)
	}

	agcConfig := config.AGCSettings()
	if agcConfig.TargetLow != 8000 || agcConfig.StepPercent != 5 {
		t.Errorf("Unexpected agc settings: %+v", agcConfig)
	}

	if config.Interval() != 250*time.Millisecond {
		t.Errorf("Expected interval 250ms, got %v", config.Interval())
	}
}

func TestHotkeySettings(t *testing.T) {
	config := DefaultConfig()
	config.Hotkey.Shift = true

	hk := config.HotkeySettings()
	want := []hotkey.Modifier{hotkey.Ctrl, hotkey.Shift, hotkey.Alt}
	if len(hk.Modifiers) != len(want) {
		t.Fatalf("Expected %d modifiers, got %d", len(want), len(hk.Modifiers))
	}
	for i, m := range want {
		if hk.Modifiers[i] != m {
			t.Errorf("Expected modifier %d to be %v, got %v", i, m, hk.Modifiers[i])
		}
	}
	if hk.Key != "M" {
		t.Errorf("Expected key M, got %s", hk.Key)
	}

	if conflicts := DefaultConfig().Hotkey.Conflicts(); len(conflicts) != 0 {
		t.Errorf("Expected default hotkey to be conflict-free, got %+v", conflicts)
	}

	lock := HotkeyConfig{Ctrl: true, Alt: true, Key: "L"}
	if conflicts := lock.Conflicts(); len(conflicts) != 1 {
		t.Errorf("Expected one conflict for Ctrl+Alt+L, got %d", len(conflicts))
	}
}

func TestKeyBindings(t *testing.T) {
	config := DefaultConfig()
	config.Trigger.Keywords = []KeywordConfig{
		{Name: "computer", Key: "f5", Modifiers: []string{"cmd"}},
		{Name: "jarvis"},
	}

	bindings := config.KeyBindings()
	if len(bindings) != 2 {
		t.Fatalf("Expected 2 bindings, got %d", len(bindings))
	}
	if bindings[0].String() != "cmd+f5" {
		t.Errorf("Expected cmd+f5, got %s", bindings[0])
	}
	if bindings[1].String() != "none" {
		t.Errorf("Expected none, got %s", bindings[1])
	}

	bindings[0].Modifiers[0] = "ctrl"
	if config.Trigger.Keywords[0].Modifiers[0] != "cmd" {
		t.Error("KeyBindings shares modifier slice with config")
	}
}
