package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// OvercamTheme darkens the chrome around the viewfinder so the live preview
// reads like a camera instead of a form.
type OvercamTheme struct{}

var _ fyne.Theme = (*OvercamTheme)(nil)

func (t *OvercamTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return color.NRGBA{R: 0x12, G: 0x12, B: 0x14, A: 0xFF}
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0xFF, G: 0x8F, B: 0x00, A: 0xFF} // Shutter orange
	case theme.ColorNameButton:
		return color.NRGBA{R: 0x22, G: 0x22, B: 0x26, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, theme.VariantDark)
	}
}

func (t *OvercamTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *OvercamTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *OvercamTheme) Size(name fyne.ThemeSizeName) float32 {
	return theme.DefaultTheme().Size(name)
}
