package hotkey

import (
	"fmt"
	"strings"

	"golang.design/x/hotkey"
)

var keyNames = map[string]hotkey.Key{
	"SPACE": hotkey.KeySpace,
	"A":     hotkey.KeyA,
	"B":     hotkey.KeyB,
	"C":     hotkey.KeyC,
	"D":     hotkey.KeyD,
	"E":     hotkey.KeyE,
	"F":     hotkey.KeyF,
	"G":     hotkey.KeyG,
	"H":     hotkey.KeyH,
	"I":     hotkey.KeyI,
	"J":     hotkey.KeyJ,
	"K":     hotkey.KeyK,
	"L":     hotkey.KeyL,
	"M":     hotkey.KeyM,
	"N":     hotkey.KeyN,
	"O":     hotkey.KeyO,
	"P":     hotkey.KeyP,
	"Q":     hotkey.KeyQ,
	"R":     hotkey.KeyR,
	"S":     hotkey.KeyS,
	"T":     hotkey.KeyT,
	"U":     hotkey.KeyU,
	"V":     hotkey.KeyV,
	"W":     hotkey.KeyW,
	"X":     hotkey.KeyX,
	"Y":     hotkey.KeyY,
	"Z":     hotkey.KeyZ,
	"0":     hotkey.Key0,
	"1":     hotkey.Key1,
	"2":     hotkey.Key2,
	"3":     hotkey.Key3,
	"4":     hotkey.Key4,
	"5":     hotkey.Key5,
	"6":     hotkey.Key6,
	"7":     hotkey.Key7,
	"8":     hotkey.Key8,
	"9":     hotkey.Key9,

	"ESCAPE": hotkey.KeyEscape,
	"RETURN": hotkey.KeyReturn,
	"TAB":    hotkey.KeyTab,
	"DELETE": hotkey.KeyDelete,
	"F1":     hotkey.KeyF1,
	"F2":     hotkey.KeyF2,
	"F3":     hotkey.KeyF3,
	"F4":     hotkey.KeyF4,
	"F5":     hotkey.KeyF5,
	"F6":     hotkey.KeyF6,
	"F7":     hotkey.KeyF7,
	"F8":     hotkey.KeyF8,
	"F9":     hotkey.KeyF9,
	"F10":    hotkey.KeyF10,
	"F11":    hotkey.KeyF11,
	"F12":    hotkey.KeyF12,
}

// ParseKey converts a case-insensitive key name to a key code
func ParseKey(name string) (hotkey.Key, error) {
	key, ok := keyNames[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown hotkey key: %q", name)
	}
	return key, nil
}

// ParseModifier converts a case-insensitive modifier name to a Modifier.
// Accepts ctrl/control, shift, alt/option and cmd/command/super/win.
func ParseModifier(name string) (Modifier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ctrl", "control":
		return Ctrl, nil
	case "shift":
		return Shift, nil
	case "alt", "option":
		return Alt, nil
	case "cmd", "command", "super", "win":
		return Cmd, nil
	default:
		return 0, fmt.Errorf("unknown modifier: %q", name)
	}
}
