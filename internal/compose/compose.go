package compose

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"

	"panelsmith/internal/config"
	"panelsmith/internal/layout"
	"panelsmith/internal/logging"
	"panelsmith/internal/story"
)

// Compositor renders panel images onto page canvases.
type Compositor struct {
	engine *layout.Engine
	border int
	logger *slog.Logger
}

// New creates a compositor that places panels with the given engine and
// strokes borderWidth-pixel frames around placements.
func New(engine *layout.Engine, borderWidth int, logger *slog.Logger) *Compositor {
	return &Compositor{
		engine: engine,
		border: borderWidth,
		logger: logging.NewComponentLogger(logger, "compose"),
	}
}

// FromConfig builds a compositor over the configured canvas.
func FromConfig(cfg *config.Config, logger *slog.Logger) *Compositor {
	return New(layout.FromConfig(cfg, logger), cfg.Canvas.BorderWidth, logger)
}

// ComposePage renders one page from panel image files and writes it as a PNG
// at outputPath. Panel files pair with the page's placements in order; files
// beyond the layout's capacity get no placement and are skipped.
func (c *Compositor) ComposePage(page story.PageBreakdown, panelFiles []string, outputPath string) error {
	placements := c.engine.Positions(page.Layout, len(panelFiles))
	geom := c.engine.Geometry()

	canvas := image.NewRGBA(image.Rect(0, 0, geom.Width, geom.Height))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)

	for i, placement := range placements {
		panel, err := loadImage(panelFiles[i])
		if err != nil {
			return fmt.Errorf("load panel %d for page %d: %w", i+1, page.PageNumber, err)
		}
		letterbox(canvas, panel, placement)
	}

	for _, placement := range placements {
		strokeFrame(canvas, placement, c.border)
	}

	if err := writePNG(outputPath, canvas); err != nil {
		return fmt.Errorf("write page %d: %w", page.PageNumber, err)
	}

	c.logger.Debug("page composed",
		logging.Int("page", page.PageNumber),
		logging.String("layout", page.Layout),
		logging.Int("panels", len(placements)),
		logging.String("path", outputPath))
	return nil
}

// letterbox scales src to fit entirely inside the placement, preserving
// aspect ratio, and centers it on both axes. Uncovered placement area keeps
// the page background.
func letterbox(dst *image.RGBA, src image.Image, p layout.Placement) {
	sb := src.Bounds()
	if sb.Dx() <= 0 || sb.Dy() <= 0 || p.Width <= 0 || p.Height <= 0 {
		return
	}

	scale := math.Min(float64(p.Width)/float64(sb.Dx()), float64(p.Height)/float64(sb.Dy()))
	w := max(1, int(math.Round(float64(sb.Dx())*scale)))
	h := max(1, int(math.Round(float64(sb.Dy())*scale)))

	x := p.X + (p.Width-w)/2
	y := p.Y + (p.Height-h)/2

	xdraw.CatmullRom.Scale(dst, image.Rect(x, y, x+w, y+h), src, sb, xdraw.Over, nil)
}

// strokeFrame draws the panel border inward from the placement edge so frames
// never spill into gutters.
func strokeFrame(dst *image.RGBA, p layout.Placement, width int) {
	if width <= 0 {
		return
	}

	black := image.NewUniform(color.Black)
	edges := []image.Rectangle{
		image.Rect(p.X, p.Y, p.X+p.Width, p.Y+width),
		image.Rect(p.X, p.Y+p.Height-width, p.X+p.Width, p.Y+p.Height),
		image.Rect(p.X, p.Y, p.X+width, p.Y+p.Height),
		image.Rect(p.X+p.Width-width, p.Y, p.X+p.Width, p.Y+p.Height),
	}
	for _, edge := range edges {
		xdraw.Draw(dst, edge, black, image.Point{}, xdraw.Src)
	}
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
