package notification

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/yok-tottii/micwatch/internal/logger"
	"github.com/yok-tottii/micwatch/internal/monitor"
	"github.com/yok-tottii/micwatch/internal/volume"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	// TypeInfo is an informational notification
	TypeInfo NotificationType = "info"
	// TypeWarning is a warning notification
	TypeWarning NotificationType = "warning"
	// TypeError is an error notification
	TypeError NotificationType = "error"
)

// Notification is one desktop notification
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
}

// NotificationManager sends desktop notifications through the platform CLI:
// osascript on macOS, notify-send elsewhere.
type NotificationManager struct {
	appName string
	goos    string
	run     volume.Runner
	log     *logger.Logger
}

// NewNotificationManager creates a new notification manager.
// A nil runner uses os/exec and a nil logger discards output.
func NewNotificationManager(appName string, run volume.Runner, log *logger.Logger) *NotificationManager {
	if run == nil {
		run = volume.ExecRunner
	}
	if log == nil {
		log = logger.Nop()
	}
	return &NotificationManager{
		appName: appName,
		goos:    runtime.GOOS,
		run:     run,
		log:     log,
	}
}

// Send delivers a notification
func (nm *NotificationManager) Send(ctx context.Context, n *Notification) error {
	if n == nil {
		return fmt.Errorf("notification cannot be nil")
	}

	var err error
	if nm.goos == "darwin" {
		script := fmt.Sprintf(
			`display notification %s with title %s`,
			quoteAppleScript(n.Message),
			quoteAppleScript(n.Title),
		)
		_, err = nm.run(ctx, "osascript", "-e", script)
	} else {
		_, err = nm.run(ctx, "notify-send", "--urgency", urgency(n.Type), "--app-name", nm.appName, n.Title, n.Message)
	}
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// SendInfo sends an informational notification
func (nm *NotificationManager) SendInfo(ctx context.Context, title, message string) error {
	return nm.Send(ctx, &Notification{Title: title, Message: message, Type: TypeInfo})
}

// SendWarning sends a warning notification
func (nm *NotificationManager) SendWarning(ctx context.Context, title, message string) error {
	return nm.Send(ctx, &Notification{Title: title, Message: message, Type: TypeWarning})
}

// SendError sends an error notification
func (nm *NotificationManager) SendError(ctx context.Context, title, message string) error {
	return nm.Send(ctx, &Notification{Title: title, Message: message, Type: TypeError})
}

// Detection announces a fired trigger
func (nm *NotificationManager) Detection(ctx context.Context, event monitor.Event) error {
	return nm.SendInfo(ctx, nm.appName, DetectionMessage(event))
}

// DeviceLost reports that capture stopped with an error
func (nm *NotificationManager) DeviceLost(ctx context.Context, reason error) error {
	message := "Microphone capture stopped"
	if reason != nil {
		message += ": " + reason.Error()
	}
	return nm.SendError(ctx, nm.appName, message)
}

// Handle is a monitor.Handler. Delivery failures are logged, not returned.
func (nm *NotificationManager) Handle(ctx context.Context, event monitor.Event) {
	if err := nm.Detection(ctx, event); err != nil {
		nm.log.Warn("Notification failed: %v", err)
	}
}

// DetectionMessage renders the body of a detection notification
func DetectionMessage(event monitor.Event) string {
	name := event.Detection.Keyword
	if name == "" {
		name = fmt.Sprintf("slot %d", event.Detection.Slot)
	}
	return fmt.Sprintf("Heard %s at %.1fs", name, event.Offset.Seconds())
}

func urgency(t NotificationType) string {
	switch t {
	case TypeError:
		return "critical"
	case TypeInfo:
		return "low"
	default:
		return "normal"
	}
}

// quoteAppleScript returns s as an AppleScript string literal
func quoteAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
