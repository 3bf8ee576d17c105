package render

import (
	"sort"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// TUITheme defines the color scheme for the TUI interface
type TUITheme struct {
	Name        string
	Description string

	Surface lipgloss.Color
	Border  lipgloss.Color

	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color

	Text     lipgloss.Color
	TextDim  lipgloss.Color
	TextMute lipgloss.Color
}

var (
	// ZegaTheme is the default: black surface with the ZEGA green.
	ZegaTheme = TUITheme{
		Name:        "zega",
		Description: "ZEGA - black with neon green accents",

		Surface: lipgloss.Color("#0b0f0a"),
		Border:  lipgloss.Color("#1f3d14"),

		Primary:   lipgloss.Color("#58f01b"),
		Secondary: lipgloss.Color("#c6f7b0"),
		Accent:    lipgloss.Color("#3fb812"),
		Warning:   lipgloss.Color("#f0c419"),
		Error:     lipgloss.Color("#ff4d4d"),

		Text:     lipgloss.Color("#e8f5e1"),
		TextDim:  lipgloss.Color("#7a9a6c"),
		TextMute: lipgloss.Color("#3f5236"),
	}

	TokyoNightTheme = TUITheme{
		Name:        "tokyonight",
		Description: "Tokyo Night - dark theme with blue accents",

		Surface: lipgloss.Color("#24283b"),
		Border:  lipgloss.Color("#414868"),

		Primary:   lipgloss.Color("#7aa2f7"),
		Secondary: lipgloss.Color("#9ece6a"),
		Accent:    lipgloss.Color("#bb9af7"),
		Warning:   lipgloss.Color("#e0af68"),
		Error:     lipgloss.Color("#f7768e"),

		Text:     lipgloss.Color("#c0caf5"),
		TextDim:  lipgloss.Color("#565f89"),
		TextMute: lipgloss.Color("#3b4261"),
	}

	DraculaTheme = TUITheme{
		Name:        "dracula",
		Description: "Dracula - dark theme with vibrant colors",

		Surface: lipgloss.Color("#44475a"),
		Border:  lipgloss.Color("#6272a4"),

		Primary:   lipgloss.Color("#8be9fd"),
		Secondary: lipgloss.Color("#50fa7b"),
		Accent:    lipgloss.Color("#ff79c6"),
		Warning:   lipgloss.Color("#f1fa8c"),
		Error:     lipgloss.Color("#ff5555"),

		Text:     lipgloss.Color("#f8f8f2"),
		TextDim:  lipgloss.Color("#6272a4"),
		TextMute: lipgloss.Color("#44475a"),
	}
)

var tuiThemes = map[string]TUITheme{
	ZegaTheme.Name:       ZegaTheme,
	TokyoNightTheme.Name: TokyoNightTheme,
	DraculaTheme.Name:    DraculaTheme,
}

var (
	themeMu         sync.RWMutex
	currentTUITheme = ZegaTheme
)

// GetTUITheme returns the active TUI theme
func GetTUITheme() TUITheme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTUITheme
}

// SetTUITheme activates the named theme. Unknown names are ignored.
func SetTUITheme(name string) bool {
	theme, ok := GetTUIThemeByName(name)
	if !ok {
		return false
	}
	themeMu.Lock()
	currentTUITheme = theme
	themeMu.Unlock()
	return true
}

// GetTUIThemeByName returns a TUI theme by its name
func GetTUIThemeByName(name string) (TUITheme, bool) {
	t, ok := tuiThemes[name]
	return t, ok
}

// TUIThemeNames returns the theme names in alphabetical order
func TUIThemeNames() []string {
	names := make([]string, 0, len(tuiThemes))
	for name := range tuiThemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
