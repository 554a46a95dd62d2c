package lookup

import "strings"

const (
	// Placeholder is the quick-select entry meaning "nothing chosen"
	Placeholder = "選択してください"

	// DefaultCity pre-fills the text input
	DefaultCity = "Tokyo"
)

var quickCities = []string{"Tokyo", "Osaka", "Nagoya", "Fukuoka", "Sapporo", "Yokohama", "Kyoto"}

// QuickCities returns the quick-select cities in display order
func QuickCities() []string {
	out := make([]string, len(quickCities))
	copy(out, quickCities)
	return out
}

// CanonicalQuickCity returns the quick-select spelling of name, matched
// case-insensitively, and whether it is in the list at all.
func CanonicalQuickCity(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range quickCities {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// IsQuickCity reports whether name is one of the quick-select cities
func IsQuickCity(name string) bool {
	_, ok := CanonicalQuickCity(name)
	return ok
}

// EffectiveCity applies the input precedence rule: a quick selection other
// than the placeholder overrides the typed text.
func EffectiveCity(quickSelect, textInput string) string {
	if quickSelect != Placeholder && strings.TrimSpace(quickSelect) != "" {
		return quickSelect
	}
	return textInput
}
