package prompt

import (
	"fmt"
	"strings"

	"threadcast/internal/services"
)

// Style selects the narration voice of a generated script.
type Style string

const (
	StyleEngaging     Style = "engaging"
	StyleEducational  Style = "educational"
	StyleViral        Style = "viral"
	StyleProfessional Style = "professional"
)

var styleOrder = []Style{StyleEngaging, StyleEducational, StyleViral, StyleProfessional}

var styleTones = map[Style]string{
	StyleEngaging:     "Conversational and relatable tone that connects with viewers",
	StyleEducational:  "Informative and clear explanations focused on learning",
	StyleViral:        "High-energy, trend-focused content designed for maximum reach",
	StyleProfessional: "Polished and authoritative tone for business/tech content",
}

// Styles returns every supported style in display order.
func Styles() []Style {
	return append([]Style(nil), styleOrder...)
}

// ParseStyle resolves a user-supplied style name. Unknown names are
// configuration errors.
func ParseStyle(value string) (Style, error) {
	style := Style(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := styleTones[style]; ok {
		return style, nil
	}
	names := make([]string, 0, len(styleOrder))
	for _, s := range styleOrder {
		names = append(names, string(s))
	}
	return "", services.Wrap(
		services.ErrConfiguration,
		"prompt",
		"parse style",
		fmt.Sprintf("unknown style %q (available: %s)", value, strings.Join(names, ", ")),
		nil,
	)
}

// Tone returns the fixed tone description for the style, or "" when unknown.
func (s Style) Tone() string {
	return styleTones[s]
}

// Valid reports whether s is one of the supported styles.
func (s Style) Valid() bool {
	_, ok := styleTones[s]
	return ok
}

func (s Style) String() string {
	return string(s)
}
