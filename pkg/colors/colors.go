// Package colors holds the display color lookup tables for teams and
// tyre compounds. Values match the frontend palette.
package colors

const fallback = "#888888"

var teamColors = map[string]string{
	"Red Bull Racing":  "#3671C6",
	"Ferrari":          "#E8002D",
	"Mercedes":         "#27F4D2",
	"McLaren":          "#FF8000",
	"Aston Martin":     "#229971",
	"Alpine":           "#0093CC",
	"Williams":         "#64C4FF",
	"Haas F1 Team":     "#B6BABD",
	"Haas":             "#B6BABD",
	"Sauber":           "#52E252",
	"Kick Sauber":      "#52E252",
	"Racing Bulls":     "#6692FF",
	"RB":               "#6692FF",
	"Visa Cash App RB": "#6692FF",
}

var tyreColors = map[string]string{
	"SOFT":         "#E8002D",
	"MEDIUM":       "#FFF200",
	"HARD":         "#FFFFFF",
	"INTERMEDIATE": "#39B54A",
	"WET":          "#0067FF",
	"UNKNOWN":      fallback,
}

// Team returns the display color for a team name. When the team is not in
// the table the raw color reported upstream is used (prefixed with '#'),
// then the neutral fallback.
func Team(name, rawColor string) string {
	if c, ok := teamColors[name]; ok {
		return c
	}
	if rawColor != "" {
		return "#" + rawColor
	}
	return fallback
}

// Tyre returns the display color for a tyre compound.
func Tyre(compound string) string {
	if c, ok := tyreColors[compound]; ok {
		return c
	}
	return fallback
}
