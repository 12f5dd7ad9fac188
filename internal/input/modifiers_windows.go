//go:build windows

package input

import "golang.design/x/hotkey"

var (
	altModifier   = hotkey.ModAlt
	superModifier = hotkey.ModWin
)
