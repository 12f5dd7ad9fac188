//go:build linux

package input

import "golang.design/x/hotkey"

// X11 has no dedicated Alt or Super bits; Mod1 and Mod4 are the usual mappings
var (
	altModifier   = hotkey.Mod1
	superModifier = hotkey.Mod4
)
