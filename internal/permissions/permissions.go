package permissions

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingPermissions is returned by Require when a needed permission is not granted
var ErrMissingPermissions = errors.New("missing permissions")

// PermissionStatus represents the status of a system permission
type PermissionStatus int

const (
	// PermissionNotDetermined means the user hasn't been asked yet
	PermissionNotDetermined PermissionStatus = 0
	// PermissionRestricted means the permission is restricted by parental controls
	PermissionRestricted PermissionStatus = 1
	// PermissionDenied means the user has explicitly denied the permission
	PermissionDenied PermissionStatus = 2
	// PermissionAuthorized means the user has authorized the permission
	PermissionAuthorized PermissionStatus = 3
)

// String returns the string representation of the status
func (ps PermissionStatus) String() string {
	switch ps {
	case PermissionNotDetermined:
		return "NotDetermined"
	case PermissionRestricted:
		return "Restricted"
	case PermissionDenied:
		return "Denied"
	case PermissionAuthorized:
		return "Authorized"
	default:
		return "Unknown"
	}
}

// GetPermissionStatusMessage returns a human-readable message for a permission status
func GetPermissionStatusMessage(status PermissionStatus) string {
	switch status {
	case PermissionNotDetermined:
		return "Permission not yet determined"
	case PermissionRestricted:
		return "Permission restricted by parental controls"
	case PermissionDenied:
		return "Permission denied"
	case PermissionAuthorized:
		return "Permission authorized"
	default:
		return "Unknown permission status"
	}
}

// PermissionChecker reports the privacy permissions capture and key taps depend on.
// On macOS these are the TCC microphone and accessibility grants; elsewhere both report authorized.
type PermissionChecker struct {
	microphone    func() PermissionStatus
	accessibility func() PermissionStatus
	open          func(pane string) error
}

// NewPermissionChecker creates a checker for the current platform
func NewPermissionChecker() *PermissionChecker {
	return &PermissionChecker{
		microphone:    microphoneStatus,
		accessibility: accessibilityStatus,
		open:          openSettings,
	}
}

// CheckMicrophonePermission checks if the process may capture audio
func (pc *PermissionChecker) CheckMicrophonePermission() PermissionStatus {
	return pc.microphone()
}

// CheckAccessibilityPermission checks if the process may synthesize key presses
func (pc *PermissionChecker) CheckAccessibilityPermission() PermissionStatus {
	return pc.accessibility()
}

// IsMicrophoneAuthorized returns whether microphone permission is granted
func (pc *PermissionChecker) IsMicrophoneAuthorized() bool {
	return pc.CheckMicrophonePermission() == PermissionAuthorized
}

// IsAccessibilityAuthorized returns whether accessibility permission is granted
func (pc *PermissionChecker) IsAccessibilityAuthorized() bool {
	return pc.CheckAccessibilityPermission() == PermissionAuthorized
}

// RequestMicrophonePermission opens system settings for microphone permission
func (pc *PermissionChecker) RequestMicrophonePermission() error {
	return pc.open("Microphone")
}

// RequestAccessibilityPermission opens system settings for accessibility permission
func (pc *PermissionChecker) RequestAccessibilityPermission() error {
	return pc.open("Accessibility")
}

// CheckAllPermissions checks both microphone and accessibility permissions
func (pc *PermissionChecker) CheckAllPermissions() map[string]bool {
	return map[string]bool{
		"microphone":    pc.IsMicrophoneAuthorized(),
		"accessibility": pc.IsAccessibilityAuthorized(),
	}
}

// AreAllPermissionsGranted returns whether all permissions are granted
func (pc *PermissionChecker) AreAllPermissionsGranted() bool {
	for _, granted := range pc.CheckAllPermissions() {
		if !granted {
			return false
		}
	}
	return true
}

// Missing lists the permissions that are not granted. Accessibility is only
// considered when keyTaps is set.
func (pc *PermissionChecker) Missing(keyTaps bool) []string {
	var missing []string
	if !pc.IsMicrophoneAuthorized() {
		missing = append(missing, fmt.Sprintf("microphone (%s)", pc.CheckMicrophonePermission()))
	}
	if keyTaps && !pc.IsAccessibilityAuthorized() {
		missing = append(missing, fmt.Sprintf("accessibility (%s)", pc.CheckAccessibilityPermission()))
	}
	return missing
}

// Require returns an error wrapping ErrMissingPermissions when Missing is non-empty
func (pc *PermissionChecker) Require(keyTaps bool) error {
	missing := pc.Missing(keyTaps)
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingPermissions, strings.Join(missing, ", "))
}

// GetMissingPermissionsMessage returns a message listing missing permissions
func (pc *PermissionChecker) GetMissingPermissionsMessage() string {
	missing := pc.Missing(true)
	if len(missing) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("The following permissions are required:\n")
	for _, perm := range missing {
		b.WriteString("  • " + perm + "\n")
	}
	return b.String()
}
