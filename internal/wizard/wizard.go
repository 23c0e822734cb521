package wizard

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/yok-tottii/micwatch/internal/config"
	"github.com/yok-tottii/micwatch/internal/hotkey"
	"github.com/yok-tottii/micwatch/internal/permissions"
)

// ErrConfigExists is returned by WriteDefaults when a config file is already present
var ErrConfigExists = errors.New("config file already exists")

// SetupWizard manages the first-run setup flow: writing a starter config
// and checking which setup steps are still open. Progress is derived from
// the config and the platform each time; nothing else is stored.
type SetupWizard struct {
	fs         afero.Fs
	configDir  string
	configPath string
	mu         sync.RWMutex
}

// NewSetupWizard creates a wizard for the config file at configPath
func NewSetupWizard(fs afero.Fs, configPath string) *SetupWizard {
	return &SetupWizard{
		fs:         fs,
		configDir:  filepath.Dir(configPath),
		configPath: configPath,
	}
}

// IsFirstRun reports whether the config file is missing
func (w *SetupWizard) IsFirstRun() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	exists, err := afero.Exists(w.fs, w.configPath)
	return err == nil && !exists
}

// WriteDefaults writes cfg to the config path. An existing file is kept
// unless force is set.
func (w *SetupWizard) WriteDefaults(cfg *config.Config, force bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	exists, err := afero.Exists(w.fs, w.configPath)
	if err != nil {
		return fmt.Errorf("failed to check config file: %w", err)
	}
	if exists && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, w.configPath)
	}

	data, err := cfg.Encode(w.configPath)
	if err != nil {
		return err
	}
	if err := w.fs.MkdirAll(w.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := afero.WriteFile(w.fs, w.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigPath returns the configuration file path
func (w *SetupWizard) GetConfigPath() string {
	return w.configPath
}

// SetupProgress is the completion status of each setup step
type SetupProgress struct {
	ConfigWritten      bool `json:"config_written"`
	KeywordsConfigured bool `json:"keywords_configured"`
	AccessKeySet       bool `json:"access_key_set"`
	HotkeyValid        bool `json:"hotkey_valid"`
	PermissionsGranted bool `json:"permissions_granted"`
}

// Complete reports whether every step is done. The access key only
// matters when the porcupine backend can be selected.
func (p SetupProgress) Complete() bool {
	return p.ConfigWritten && p.KeywordsConfigured && p.HotkeyValid && p.PermissionsGranted
}

// ShouldShowWizard returns true on first run or while a setup step is open
func (w *SetupWizard) ShouldShowWizard(cfg *config.Config, perms *permissions.PermissionChecker) bool {
	return w.IsFirstRun() || !w.GetProgress(cfg, perms).Complete()
}

// GetProgress inspects cfg and the platform permissions
func (w *SetupWizard) GetProgress(cfg *config.Config, perms *permissions.PermissionChecker) SetupProgress {
	progress := SetupProgress{
		ConfigWritten:      !w.IsFirstRun(),
		KeywordsConfigured: len(cfg.Trigger.Keywords) > 0,
		AccessKeySet:       cfg.AccessKey() != "",
		HotkeyValid:        true,
		PermissionsGranted: true,
	}

	if cfg.Hotkey.Enabled {
		_, err := hotkey.ParseKey(cfg.Hotkey.Key)
		progress.HotkeyValid = err == nil && len(cfg.Hotkey.Conflicts()) == 0
	}
	if perms != nil {
		progress.PermissionsGranted = perms.AreAllPermissionsGranted()
	}
	return progress
}
