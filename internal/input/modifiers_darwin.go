//go:build darwin

package input

import "golang.design/x/hotkey"

var (
	altModifier   = hotkey.ModOption
	superModifier = hotkey.ModCmd
)
