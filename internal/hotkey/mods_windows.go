//go:build windows

package hotkey

import "golang.design/x/hotkey"

func nativeModifier(m Modifier) (hotkey.Modifier, bool) {
	switch m {
	case Ctrl:
		return hotkey.ModCtrl, true
	case Shift:
		return hotkey.ModShift, true
	case Alt:
		return hotkey.ModAlt, true
	case Cmd:
		return hotkey.ModWin, true
	}
	return 0, false
}
