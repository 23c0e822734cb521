//go:build darwin

package hotkey

import "golang.design/x/hotkey"

func nativeModifier(m Modifier) (hotkey.Modifier, bool) {
	switch m {
	case Ctrl:
		return hotkey.ModCtrl, true
	case Shift:
		return hotkey.ModShift, true
	case Alt:
		return hotkey.ModOption, true
	case Cmd:
		return hotkey.ModCmd, true
	}
	return 0, false
}
