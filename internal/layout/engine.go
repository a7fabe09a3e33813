package layout

import (
	"log/slog"

	"panelsmith/internal/config"
	"panelsmith/internal/logging"
)

// Placement is an axis-aligned panel rectangle in page pixels.
type Placement struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Geometry describes the page canvas the engine places panels on.
type Geometry struct {
	Width  int
	Height int
	Margin int
	Gutter int
}

func (g Geometry) usableWidth() int  { return g.Width - 2*g.Margin }
func (g Geometry) usableHeight() int { return g.Height - 2*g.Margin }

// Engine computes placements for a fixed page geometry.
type Engine struct {
	geom   Geometry
	logger *slog.Logger
}

// New creates an engine for the given geometry.
func New(geom Geometry, logger *slog.Logger) *Engine {
	return &Engine{
		geom:   geom,
		logger: logging.NewComponentLogger(logger, "layout"),
	}
}

// FromConfig builds an engine from the configured canvas.
func FromConfig(cfg *config.Config, logger *slog.Logger) *Engine {
	return New(Geometry{
		Width:  cfg.Canvas.Width,
		Height: cfg.Canvas.Height,
		Margin: cfg.Canvas.Margin,
		Gutter: cfg.Canvas.Gutter,
	}, logger)
}

// Geometry returns the engine's page geometry.
func (e *Engine) Geometry() Geometry { return e.geom }

// Positions returns one placement per panel that fits the named layout.
// Unknown layout names fall back to DefaultScheme with a warning. Panels
// beyond the scheme's capacity get no placement.
func (e *Engine) Positions(layoutID string, panelCount int) []Placement {
	scheme, ok := ParseScheme(layoutID)
	if !ok {
		e.logger.Warn("unknown layout, using default",
			logging.String("layout", layoutID),
			logging.String("fallback", string(DefaultScheme)))
		scheme = DefaultScheme
	}
	return e.PositionsFor(scheme, panelCount)
}

// PositionsFor is Positions for an already-parsed scheme.
func (e *Engine) PositionsFor(scheme Scheme, panelCount int) []Placement {
	if panelCount <= 0 {
		return nil
	}
	switch scheme {
	case Splash:
		return e.splash()
	case FourGrid:
		return e.fourGrid(panelCount)
	case VerticalStack:
		return e.verticalStack(panelCount)
	default:
		return e.threeGrid(panelCount)
	}
}

// threeGrid stacks up to three full-width rows separated by gutters.
func (e *Engine) threeGrid(panelCount int) []Placement {
	g := e.geom
	rowHeight := (g.usableHeight() - 2*g.Gutter) / 3

	rows := min(3, panelCount)
	placements := make([]Placement, 0, rows)
	for i := range rows {
		placements = append(placements, Placement{
			X:      g.Margin,
			Y:      g.Margin + i*(rowHeight+g.Gutter),
			Width:  g.usableWidth(),
			Height: rowHeight,
		})
	}
	return placements
}

// fourGrid fills a 2x2 grid row-major.
func (e *Engine) fourGrid(panelCount int) []Placement {
	g := e.geom
	cellWidth := (g.usableWidth() - g.Gutter) / 2
	cellHeight := (g.usableHeight() - g.Gutter) / 2

	cells := min(4, panelCount)
	placements := make([]Placement, 0, cells)
	for i := range cells {
		row, col := i/2, i%2
		placements = append(placements, Placement{
			X:      g.Margin + col*(cellWidth+g.Gutter),
			Y:      g.Margin + row*(cellHeight+g.Gutter),
			Width:  cellWidth,
			Height: cellHeight,
		})
	}
	return placements
}

// splash gives one panel the whole usable area.
func (e *Engine) splash() []Placement {
	g := e.geom
	return []Placement{{
		X:      g.Margin,
		Y:      g.Margin,
		Width:  g.usableWidth(),
		Height: g.usableHeight(),
	}}
}

// verticalStack divides the usable height evenly among up to six rows with
// no gutters, webtoon style.
func (e *Engine) verticalStack(panelCount int) []Placement {
	g := e.geom
	rows := min(6, panelCount)
	rowHeight := g.usableHeight() / rows

	placements := make([]Placement, 0, rows)
	for i := range rows {
		placements = append(placements, Placement{
			X:      g.Margin,
			Y:      g.Margin + i*rowHeight,
			Width:  g.usableWidth(),
			Height: rowHeight,
		})
	}
	return placements
}
