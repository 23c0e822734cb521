//go:build !darwin

package permissions

import (
	"errors"
	"fmt"
)

// Other platforms have no per-app privacy prompts; access failures surface when the device opens.

func microphoneStatus() PermissionStatus {
	return PermissionAuthorized
}

func accessibilityStatus() PermissionStatus {
	return PermissionAuthorized
}

func openSettings(pane string) error {
	return fmt.Errorf("open %s settings: %w", pane, errors.ErrUnsupported)
}
