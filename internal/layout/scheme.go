package layout

import "strings"

// Scheme identifies a page layout.
type Scheme string

const (
	ThreeGrid     Scheme = "three-grid"
	FourGrid      Scheme = "four-grid"
	Splash        Scheme = "splash"
	VerticalStack Scheme = "vertical-stack"
)

// DefaultScheme is used when a breakdown names a layout nobody recognizes.
const DefaultScheme = ThreeGrid

// schemeAliases accepts both the canonical identifiers and the names older
// breakdowns emit for the same layouts.
var schemeAliases = map[string]Scheme{
	"three-grid":     ThreeGrid,
	"3-panel-grid":   ThreeGrid,
	"four-grid":      FourGrid,
	"4-panel-grid":   FourGrid,
	"splash":         Splash,
	"full-page":      Splash,
	"vertical-stack": VerticalStack,
	"webtoon":        VerticalStack,
}

// ParseScheme canonicalizes a layout identifier. ok is false when the name is
// not recognized; callers fall back to DefaultScheme.
func ParseScheme(name string) (Scheme, bool) {
	scheme, ok := schemeAliases[strings.ToLower(strings.TrimSpace(name))]
	return scheme, ok
}

// SchemeFor picks the layout for a page that does not name a usable one,
// based on how many panels the page carries.
func SchemeFor(panelCount int) Scheme {
	switch {
	case panelCount <= 1:
		return Splash
	case panelCount <= 3:
		return ThreeGrid
	case panelCount == 4:
		return FourGrid
	default:
		return VerticalStack
	}
}

// Capacity reports how many panels a scheme holds on one page. Panels beyond
// capacity are dropped by Positions.
func Capacity(scheme Scheme) int {
	switch scheme {
	case Splash:
		return 1
	case FourGrid:
		return 4
	case VerticalStack:
		return 6
	case ThreeGrid:
		return 3
	default:
		return Capacity(DefaultScheme)
	}
}
