package permissions

import (
	"errors"
	"strings"
	"testing"
)

func fakeChecker(mic, acc PermissionStatus) (*PermissionChecker, *[]string) {
	var opened []string
	return &PermissionChecker{
		microphone:    func() PermissionStatus { return mic },
		accessibility: func() PermissionStatus { return acc },
		open: func(pane string) error {
			opened = append(opened, pane)
			return nil
		},
	}, &opened
}

func TestNewPermissionChecker(t *testing.T) {
	pc := NewPermissionChecker()

	if pc == nil {
		t.Fatal("Expected PermissionChecker to be created")
	}
}

func TestCheckMicrophonePermission(t *testing.T) {
	pc := NewPermissionChecker()

	status := pc.CheckMicrophonePermission()

	// Status should be one of the valid values
	if status < PermissionNotDetermined || status > PermissionAuthorized {
		t.Errorf("Expected valid permission status, got %d", status)
	}
}

func TestCheckAccessibilityPermission(t *testing.T) {
	pc := NewPermissionChecker()

	status := pc.CheckAccessibilityPermission()

	// Status should be either Authorized or Denied
	if status != PermissionAuthorized && status != PermissionDenied {
		t.Errorf("Expected Authorized or Denied, got %v", status)
	}
}

func TestIsMicrophoneAuthorized(t *testing.T) {
	pc := NewPermissionChecker()

	// Should return a boolean without crashing
	result := pc.IsMicrophoneAuthorized()

	if result != true && result != false {
		t.Error("Expected boolean result")
	}
}

func TestIsAccessibilityAuthorized(t *testing.T) {
	pc := NewPermissionChecker()

	// Should return a boolean without crashing
	result := pc.IsAccessibilityAuthorized()

	if result != true && result != false {
		t.Error("Expected boolean result")
	}
}

func TestCheckAllPermissions(t *testing.T) {
	pc := NewPermissionChecker()

	perms := pc.CheckAllPermissions()

	// Should return a map with the expected keys
	if _, ok := perms["microphone"]; !ok {
		t.Error("Expected 'microphone' key in permissions map")
	}

	if _, ok := perms["accessibility"]; !ok {
		t.Error("Expected 'accessibility' key in permissions map")
	}

	// Values are already booleans in the map
	micValue := perms["microphone"]
	if micValue != true && micValue != false {
		t.Error("Expected boolean value for 'microphone'")
	}

	accValue := perms["accessibility"]
	if accValue != true && accValue != false {
		t.Error("Expected boolean value for 'accessibility'")
	}
}

func TestAreAllPermissionsGranted(t *testing.T) {
	pc := NewPermissionChecker()

	result := pc.AreAllPermissionsGranted()

	// Should return a boolean without crashing
	if result != true && result != false {
		t.Error("Expected boolean result")
	}
}

func TestPermissionStatusString(t *testing.T) {
	tests := []struct {
		status   PermissionStatus
		expected string
	}{
		{PermissionNotDetermined, "NotDetermined"},
		{PermissionRestricted, "Restricted"},
		{PermissionDenied, "Denied"},
		{PermissionAuthorized, "Authorized"},
		{PermissionStatus(99), "Unknown"},
	}

	for _, test := range tests {
		result := test.status.String()
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

func TestGetPermissionStatusMessage(t *testing.T) {
	tests := []struct {
		status   PermissionStatus
		expected string
	}{
		{PermissionNotDetermined, "Permission not yet determined"},
		{PermissionRestricted, "Permission restricted by parental controls"},
		{PermissionDenied, "Permission denied"},
		{PermissionAuthorized, "Permission authorized"},
	}

	for _, test := range tests {
		result := GetPermissionStatusMessage(test.status)
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

func TestMissing(t *testing.T) {
	tests := []struct {
		name    string
		mic     PermissionStatus
		acc     PermissionStatus
		keyTaps bool
		want    []string
	}{
		{"all granted", PermissionAuthorized, PermissionAuthorized, true, nil},
		{"mic denied", PermissionDenied, PermissionAuthorized, false, []string{"microphone (Denied)"}},
		{"accessibility ignored without key taps", PermissionAuthorized, PermissionDenied, false, nil},
		{"accessibility needed for key taps", PermissionAuthorized, PermissionDenied, true, []string{"accessibility (Denied)"}},
		{"both missing", PermissionNotDetermined, PermissionDenied, true, []string{"microphone (NotDetermined)", "accessibility (Denied)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc, _ := fakeChecker(tt.mic, tt.acc)

			got := pc.Missing(tt.keyTaps)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %q, got %q", tt.want[i], got[i])
				}
			}

			err := pc.Require(tt.keyTaps)
			if len(tt.want) == 0 {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrMissingPermissions) {
				t.Errorf("Expected ErrMissingPermissions, got %v", err)
			}
		})
	}
}

func TestGetMissingPermissionsMessage(t *testing.T) {
	pc, _ := fakeChecker(PermissionAuthorized, PermissionAuthorized)
	if msg := pc.GetMissingPermissionsMessage(); msg != "" {
		t.Errorf("Expected empty message, got %q", msg)
	}
	if !pc.AreAllPermissionsGranted() {
		t.Error("Expected all permissions granted")
	}

	pc, _ = fakeChecker(PermissionDenied, PermissionDenied)
	msg := pc.GetMissingPermissionsMessage()
	if !strings.Contains(msg, "microphone") || !strings.Contains(msg, "accessibility") {
		t.Errorf("Expected both permissions listed, got %q", msg)
	}
	if pc.AreAllPermissionsGranted() {
		t.Error("Expected missing permissions")
	}
}

func TestRequestPermissionsOpensPanes(t *testing.T) {
	pc, opened := fakeChecker(PermissionDenied, PermissionDenied)

	if err := pc.RequestMicrophonePermission(); err != nil {
		t.Fatalf("RequestMicrophonePermission failed: %v", err)
	}
	if err := pc.RequestAccessibilityPermission(); err != nil {
		t.Fatalf("RequestAccessibilityPermission failed: %v", err)
	}

	if len(*opened) != 2 || (*opened)[0] != "Microphone" || (*opened)[1] != "Accessibility" {
		t.Errorf("Expected Microphone then Accessibility, got %v", *opened)
	}
}
