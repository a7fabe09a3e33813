// Package export encodes composed pages into a distributable artifact:
// a paged PDF, a directory of PNG pages, or a CBZ archive.
package export

import (
	"archive/zip"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "image/png"

	"github.com/go-pdf/fpdf"

	"panelsmith/internal/logging"
)

// Format identifies an artifact encoding.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatPNG Format = "png"
	FormatCBZ Format = "cbz"
)

// Artifact file names inside the job's output directory.
const (
	pdfFileName  = "comic.pdf"
	cbzFileName  = "comic.cbz"
	pagesDirName = "pages"
)

// Formats returns the supported artifact formats in display order.
func Formats() []Format {
	return []Format{FormatPDF, FormatPNG, FormatCBZ}
}

// ParseFormat converts a string into a known Format.
func ParseFormat(value string) (Format, error) {
	normalized := Format(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case FormatPDF, FormatPNG, FormatCBZ:
		return normalized, nil
	case "":
		return "", fmt.Errorf("output format is empty")
	default:
		return "", fmt.Errorf("output format %q is not supported (pdf, png, cbz)", value)
	}
}

// Encoder writes artifact files from composed page images.
type Encoder struct {
	logger *slog.Logger
}

// NewEncoder constructs an encoder.
func NewEncoder(logger *slog.Logger) *Encoder {
	return &Encoder{logger: logging.NewComponentLogger(logger, "export")}
}

// Encode writes the artifact for the requested format into outputDir and
// returns the artifact path: the PDF or CBZ file, or the page image
// directory for the png format. Page files must be PNG images in reading
// order.
func (e *Encoder) Encode(ctx context.Context, pages []string, format Format, outputDir string) (string, error) {
	if len(pages) == 0 {
		return "", fmt.Errorf("encode %s: no pages to encode", format)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("encode %s: create output directory: %w", format, err)
	}

	var (
		path string
		err  error
	)
	switch format {
	case FormatPDF:
		path = filepath.Join(outputDir, pdfFileName)
		err = e.encodePDF(ctx, pages, path)
	case FormatPNG:
		path = filepath.Join(outputDir, pagesDirName)
		err = e.encodePageSet(ctx, pages, path)
	case FormatCBZ:
		path = filepath.Join(outputDir, cbzFileName)
		err = e.encodeCBZ(ctx, pages, path)
	default:
		return "", fmt.Errorf("encode: output format %q is not supported", format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("artifact encoded",
		logging.String("format", string(format)),
		logging.Int("pages", len(pages)),
		logging.String("path", path))
	return path, nil
}

// encodePDF renders one letter-sized PDF page per image, scaled to fit and
// centered on both axes.
func (e *Encoder) encodePDF(ctx context.Context, pages []string, outputPath string) error {
	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetTitle("Comic", true)
	doc.SetAuthor("panelsmith", true)

	pageWidth, pageHeight := doc.GetPageSize()

	for i, pagePath := range pages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("encode pdf: %w", err)
		}
		imgWidth, imgHeight, err := imageDimensions(pagePath)
		if err != nil {
			return fmt.Errorf("encode pdf: page %d: %w", i+1, err)
		}

		scale := pageWidth / float64(imgWidth)
		if vertical := pageHeight / float64(imgHeight); vertical < scale {
			scale = vertical
		}
		scaledWidth := float64(imgWidth) * scale
		scaledHeight := float64(imgHeight) * scale
		x := (pageWidth - scaledWidth) / 2
		y := (pageHeight - scaledHeight) / 2

		doc.AddPage()
		doc.ImageOptions(pagePath, x, y, scaledWidth, scaledHeight, false,
			fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		if doc.Err() {
			return fmt.Errorf("encode pdf: page %d: %w", i+1, doc.Error())
		}
	}

	if err := doc.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("encode pdf: write %s: %w", outputPath, err)
	}
	return nil
}

// encodePageSet copies the page images into a directory as a numbered set.
func (e *Encoder) encodePageSet(ctx context.Context, pages []string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("encode png: create page directory: %w", err)
	}
	for i, pagePath := range pages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
		target := filepath.Join(outputDir, pageFileName(i+1))
		if err := copyFile(pagePath, target); err != nil {
			return fmt.Errorf("encode png: page %d: %w", i+1, err)
		}
	}
	return nil
}

// encodeCBZ zips the page images with sequential names readers sort
// correctly.
func (e *Encoder) encodeCBZ(ctx context.Context, pages []string, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("encode cbz: create %s: %w", outputPath, err)
	}
	defer file.Close()

	archive := zip.NewWriter(file)
	for i, pagePath := range pages {
		if err := ctx.Err(); err != nil {
			archive.Close()
			return fmt.Errorf("encode cbz: %w", err)
		}
		source, err := os.Open(pagePath)
		if err != nil {
			archive.Close()
			return fmt.Errorf("encode cbz: page %d: %w", i+1, err)
		}
		entry, err := archive.Create(pageFileName(i + 1))
		if err != nil {
			source.Close()
			archive.Close()
			return fmt.Errorf("encode cbz: add page %d: %w", i+1, err)
		}
		if _, err := io.Copy(entry, source); err != nil {
			source.Close()
			archive.Close()
			return fmt.Errorf("encode cbz: write page %d: %w", i+1, err)
		}
		source.Close()
	}
	if err := archive.Close(); err != nil {
		return fmt.Errorf("encode cbz: finalize archive: %w", err)
	}
	return nil
}

func pageFileName(number int) string {
	return fmt.Sprintf("page_%03d.png", number)
}

func imageDimensions(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()
	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, fmt.Errorf("read image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
