package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/musyoka101/sliver-tui/pkg/classify"
)

// Palette is the set of colors a theme is built from.
type Palette struct {
	Title      lipgloss.Color
	Session    lipgloss.Color
	Beacon     lipgloss.Color
	Dead       lipgloss.Color
	Privileged lipgloss.Color
	Normal     lipgloss.Color
	Protocols  map[classify.ProtocolClass]lipgloss.Color
	NewBadge   lipgloss.Color
	PrivBadge  lipgloss.Color
	Border     lipgloss.Color
	Muted      lipgloss.Color
	Stats      lipgloss.Color
	Separator  lipgloss.Color
	Critical   lipgloss.Color
	Warning    lipgloss.Color
}

type namedPalette struct {
	name    string
	palette Palette
}

var themes = []namedPalette{
	{
		name: "default",
		palette: Palette{
			Title:      "#00d7ff",
			Session:    "#00ff00",
			Beacon:     "#ffff00",
			Dead:       "#626262",
			Privileged: "#ff5555",
			Normal:     "#50fa7b",
			Protocols: map[classify.ProtocolClass]lipgloss.Color{
				classify.ProtocolHTTP:  "#8be9fd",
				classify.ProtocolTLS:   "#8be9fd",
				classify.ProtocolDNS:   "#8be9fd",
				classify.ProtocolTCP:   "#8be9fd",
				classify.ProtocolOther: "#8be9fd",
			},
			NewBadge:  "#f1fa8c",
			PrivBadge: "#ff79c6",
			Border:    "#00d7ff",
			Muted:     "#6272a4",
			Stats:     "#00d7ff",
			Separator: "#444444",
			Critical:  "#ff5555",
			Warning:   "#ffb86c",
		},
	},
	{
		name: "dracula",
		palette: Palette{
			Title:      "#bd93f9",
			Session:    "#50fa7b",
			Beacon:     "#f1fa8c",
			Dead:       "#6272a4",
			Privileged: "#ff5555",
			Normal:     "#f8f8f2",
			Protocols: map[classify.ProtocolClass]lipgloss.Color{
				classify.ProtocolHTTP:  "#ffb86c",
				classify.ProtocolTLS:   "#50fa7b",
				classify.ProtocolDNS:   "#8be9fd",
				classify.ProtocolTCP:   "#ff79c6",
				classify.ProtocolOther: "#f8f8f2",
			},
			NewBadge:  "#f1fa8c",
			PrivBadge: "#ff79c6",
			Border:    "#bd93f9",
			Muted:     "#6272a4",
			Stats:     "#8be9fd",
			Separator: "#44475a",
			Critical:  "#ff5555",
			Warning:   "#ffb86c",
		},
	},
}

// ThemeNames lists the available themes in cycling order.
func ThemeNames() []string {
	names := make([]string, len(themes))
	for i := range themes {
		names[i] = themes[i].name
	}

	return names
}

// PaletteByName returns the palette for name.
func PaletteByName(name string) (Palette, bool) {
	for i := range themes {
		if themes[i].name == name {
			return themes[i].palette, true
		}
	}

	return Palette{}, false
}

// NextTheme returns the theme after name, wrapping around. Unknown names
// yield the first theme.
func NextTheme(name string) string {
	for i := range themes {
		if themes[i].name == name {
			return themes[(i+1)%len(themes)].name
		}
	}

	return themes[0].name
}
