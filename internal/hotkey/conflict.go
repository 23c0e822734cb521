package hotkey

import "strings"

// ConflictInfo represents information about a known shortcut conflict
type ConflictInfo struct {
	Name        string
	Description string
	Modifiers   []Modifier
	Key         string
}

// knownConflicts contains common system and launcher shortcuts
var knownConflicts = []ConflictInfo{
	{
		Name:        "Spotlight",
		Description: "macOS Spotlight search",
		Modifiers:   []Modifier{Cmd},
		Key:         "Space",
	},
	{
		Name:        "Input Source",
		Description: "Input method switch",
		Modifiers:   []Modifier{Ctrl},
		Key:         "Space",
	},
	{
		Name:        "Force Quit",
		Description: "macOS Force Quit",
		Modifiers:   []Modifier{Cmd, Alt},
		Key:         "Escape",
	},
	{
		Name:        "Mute Microphone",
		Description: "Common conferencing mute shortcut",
		Modifiers:   []Modifier{Cmd, Shift},
		Key:         "M",
	},
	{
		Name:        "Lock Screen",
		Description: "Desktop lock shortcut",
		Modifiers:   []Modifier{Ctrl, Alt},
		Key:         "L",
	},
}

// CheckConflicts checks if the given hotkey conflicts with known shortcuts
func CheckConflicts(modifiers []Modifier, key string) []ConflictInfo {
	var conflicts []ConflictInfo

	for _, known := range knownConflicts {
		if hotkeyMatches(modifiers, key, known.Modifiers, known.Key) {
			conflicts = append(conflicts, known)
		}
	}

	return conflicts
}

// hotkeyMatches checks if two hotkey combinations are identical
func hotkeyMatches(mods1 []Modifier, key1 string, mods2 []Modifier, key2 string) bool {
	if !strings.EqualFold(key1, key2) {
		return false
	}

	set1 := make(map[Modifier]bool)
	set2 := make(map[Modifier]bool)
	for _, mod := range mods1 {
		set1[mod] = true
	}
	for _, mod := range mods2 {
		set2[mod] = true
	}

	if len(set1) != len(set2) {
		return false
	}
	for mod := range set1 {
		if !set2[mod] {
			return false
		}
	}

	return true
}

// FormatHotkey returns a human-readable string representation of the hotkey
func FormatHotkey(modifiers []Modifier, key string) string {
	var b strings.Builder

	for _, mod := range modifiers {
		switch mod {
		case Ctrl:
			b.WriteString("⌃")
		case Shift:
			b.WriteString("⇧")
		case Alt:
			b.WriteString("⌥")
		case Cmd:
			b.WriteString("⌘")
		}
	}

	b.WriteString(displayKey(key))
	return b.String()
}

// displayKey normalizes the case of a key name for display
func displayKey(key string) string {
	switch upper := strings.ToUpper(key); upper {
	case "SPACE":
		return "Space"
	case "ESCAPE":
		return "Esc"
	case "RETURN":
		return "Return"
	case "TAB":
		return "Tab"
	case "DELETE":
		return "Delete"
	case "":
		return "Unknown"
	default:
		return upper
	}
}
