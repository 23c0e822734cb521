//go:build linux

package hotkey

import "golang.design/x/hotkey"

// X11 maps Alt to Mod1 and Super to Mod4 on common keyboard layouts
func nativeModifier(m Modifier) (hotkey.Modifier, bool) {
	switch m {
	case Ctrl:
		return hotkey.ModCtrl, true
	case Shift:
		return hotkey.ModShift, true
	case Alt:
		return hotkey.Mod1, true
	case Cmd:
		return hotkey.Mod4, true
	}
	return 0, false
}
