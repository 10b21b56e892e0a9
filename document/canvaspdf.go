package document

import (
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
)

// CanvasPDF writes the surface through github.com/tdewolff/canvas's PDF renderer.
type CanvasPDF struct{}

func (CanvasPDF) Name() string { return "canvas" }

// Encode places the surface at the page origin with a matrix that maps its
// pixel grid onto exactly page.Width × page.Height points.
func (CanvasPDF) Encode(w io.Writer, surface image.Image, page Page) error {
	if err := checkPage(surface, page); err != nil {
		return err
	}

	widthMM := page.Width * ptToMm
	heightMM := page.Height * ptToMm
	writer := pdf.New(w, widthMM, heightMM, nil)
	applyMeta(writer, page.Meta)

	size := surface.Bounds().Size()
	m := canvas.Identity.Scale(widthMM/float64(size.X), heightMM/float64(size.Y))
	writer.RenderImage(surface, m)

	if err := writer.Close(); err != nil {
		return fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return nil
}

func applyMeta(writer *pdf.PDF, meta Meta) {
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

const ptToMm = 25.4 / 72.0
