package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/yok-tottii/micwatch/internal/agc"
	"github.com/yok-tottii/micwatch/internal/monitor"
	"github.com/yok-tottii/micwatch/internal/wizard"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#2E86DE") // Micwatch blue
	accentColor  = lipgloss.Color("#F39C12") // Orange
	mutedColor   = lipgloss.Color("#888888") // Gray
	textColor    = lipgloss.Color("#FFFFFF") // White
	errorColor   = lipgloss.Color("#C0392B") // Red
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	WarnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	// Key-value pair styles
	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	TriggerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)
)

// PrintVersion prints version information
func PrintVersion(w io.Writer, version string) {
	fmt.Fprintln(w, TitleStyle.Render("micwatch 🎙"))
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
}

// PrintError prints an error message to stderr
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintWarning prints a warning to stderr
func PrintWarning(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", WarnStyle.Render("Warning:"), message)
}

// PrintDetection prints one trigger line, e.g. "TRIGGER computer  slot 0  at 0.512s  rms 12000.0"
func PrintDetection(w io.Writer, event monitor.Event) {
	name := event.Detection.Keyword
	if event.Detection.Approximate {
		name += " (approx)"
	}
	fmt.Fprintf(w, "%s %s  %s %d  %s %s  %s %.1f\n",
		TriggerStyle.Render("TRIGGER"),
		ValueStyle.Render(name),
		KeyStyle.Render("slot"), event.Detection.Slot,
		KeyStyle.Render("at"), formatOffset(event.Offset),
		KeyStyle.Render("rms"), event.RMS,
	)
}

// PrintDecision prints one gain control step
func PrintDecision(w io.Writer, rms float64, decision agc.Decision) {
	change := fmt.Sprintf("%d%%", decision.From)
	if decision.Changed() {
		change = fmt.Sprintf("%d%% → %d%%", decision.From, decision.To)
	}
	fmt.Fprintf(w, "%s %s  %s %.1f  %s %s\n",
		KeyStyle.Render("AGC"),
		ValueStyle.Render(decision.Action.String()),
		KeyStyle.Render("rms"), rms,
		KeyStyle.Render("volume"), change,
	)
}

// PrintReplay prints the detections of a replay followed by a summary
func PrintReplay(w io.Writer, path string, result monitor.ReplayResult) {
	fmt.Fprintln(w, TitleStyle.Render("Replay: "+path))
	for _, event := range result.Events {
		PrintDetection(w, event)
	}
	if len(result.Events) > 0 {
		fmt.Fprintln(w)
	}

	printField(w, "Frames:", fmt.Sprintf("%d", len(result.Frames)))
	printField(w, "Duration:", formatOffset(result.Duration))
	printField(w, "Peak RMS:", fmt.Sprintf("%.1f", result.Peak))
	printField(w, "Triggers:", fmt.Sprintf("%d", len(result.Events)))
}

// PrintRecording prints the summary of a finished recording
func PrintRecording(w io.Writer, path string, frames int, duration time.Duration) {
	printField(w, "Saved:", path)
	printField(w, "Frames:", fmt.Sprintf("%d", frames))
	printField(w, "Duration:", formatOffset(duration))
}

// PrintSetup prints the setup checklist
func PrintSetup(w io.Writer, path string, progress wizard.SetupProgress) {
	fmt.Fprintln(w, TitleStyle.Render("Setup: "+path))
	steps := []struct {
		done  bool
		label string
	}{
		{progress.ConfigWritten, "config file written"},
		{progress.KeywordsConfigured, "trigger keywords configured"},
		{progress.AccessKeySet, "Picovoice access key set (porcupine backend only)"},
		{progress.HotkeyValid, "pause hotkey free of conflicts"},
		{progress.PermissionsGranted, "microphone and accessibility granted"},
	}
	for _, step := range steps {
		mark := WarnStyle.Render("[ ]")
		if step.done {
			mark = ValueStyle.Render("[x]")
		}
		fmt.Fprintf(w, "%s %s\n", mark, step.label)
	}
}

// PrintStatus prints a monitor snapshot
func PrintStatus(w io.Writer, status monitor.Status) {
	printField(w, "State:", status.State.String())
	if status.Backend != "" {
		printField(w, "Backend:", status.Backend)
	}
	printField(w, "Frames:", fmt.Sprintf("%d", status.Frames))
	printField(w, "Triggers:", fmt.Sprintf("%d", status.Detections))
	if status.Volume >= 0 {
		printField(w, "Volume:", fmt.Sprintf("%d%%", status.Volume))
	}
	if status.ReadFailures > 0 || status.WriteFailures > 0 {
		printField(w, "Volume errors:", fmt.Sprintf("%d read, %d write", status.ReadFailures, status.WriteFailures))
	}
}

func printField(w io.Writer, key, value string) {
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render(key), ValueStyle.Render(value))
}

func formatOffset(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}
