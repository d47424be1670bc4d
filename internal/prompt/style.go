package prompt

import (
	"fmt"
	"strings"
)

// Style selects the visual register the ETR instruction asks for.
// The zero value means no explicit style and renders as Photographic.
type Style string

const (
	StyleNone         Style = ""
	StylePhotographic Style = "photographic"
	StyleLineArt      Style = "line_art"
	StyleComic        Style = "comic"
)

// Styles lists the selectable styles in display order.
var Styles = []Style{StylePhotographic, StyleLineArt, StyleComic}

// styleSpec is the per-style substitution table.
type styleSpec struct {
	Label      string
	Rule       string
	Lead       string
	Descriptor string
}

var styleSpecs = map[Style]styleSpec{
	StylePhotographic: {
		Label:      "Photographic",
		Rule:       `REALIZM: Styl fotorealistyczny ("photorealistic photo of...")`,
		Lead:       "A photorealistic photo of",
		Descriptor: "photorealistic",
	},
	StyleLineArt: {
		Label:      "Line art",
		Rule:       `KONTUR: Prosty czarny rysunek konturowy na białym tle, bez cieniowania ("simple black line art drawing of...")`,
		Lead:       "A simple black line art drawing of",
		Descriptor: "simple black line art",
	},
	StyleComic: {
		Label:      "Comic",
		Rule:       `KOMIKS: Prosta płaska ilustracja komiksowa z wyraźnymi konturami ("simple flat comic-style illustration of...")`,
		Lead:       "A simple flat comic-style illustration of",
		Descriptor: "simple flat comic-style",
	},
}

func (s Style) spec() styleSpec {
	if spec, ok := styleSpecs[s]; ok {
		return spec
	}
	return styleSpecs[StylePhotographic]
}

// Label returns the human readable style name.
func (s Style) Label() string {
	return s.spec().Label
}

// Valid reports whether s is a known style or StyleNone.
func (s Style) Valid() bool {
	if s == StyleNone {
		return true
	}
	_, ok := styleSpecs[s]
	return ok
}

// ParseStyle accepts the canonical names and the display labels, case-insensitively.
func ParseStyle(s string) (Style, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)

	switch norm {
	case "", "none":
		return StyleNone, nil
	case "photographic", "photo", "photorealistic":
		return StylePhotographic, nil
	case "line_art", "lineart":
		return StyleLineArt, nil
	case "comic":
		return StyleComic, nil
	}
	return StyleNone, fmt.Errorf("unknown style %q (must be photographic, line_art or comic)", s)
}
