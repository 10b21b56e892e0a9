package document

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// FPDF writes the surface with github.com/jung-kurt/gofpdf. The surface is
// embedded as a lossless PNG image XObject; output bytes are deterministic
// for a given surface and Meta.
type FPDF struct{}

func (FPDF) Name() string { return "fpdf" }

const surfaceImageName = "surface"

func (FPDF) Encode(w io.Writer, surface image.Image, page Page) error {
	if err := checkPage(surface, page); err != nil {
		return err
	}

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, surface); err != nil {
		return fmt.Errorf("画布 PNG 编码失败: %w", err)
	}

	size := gofpdf.SizeType{Wd: page.Width, Ht: page.Height}
	doc := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", Size: size})
	doc.SetCompression(true)
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCreationDate(page.Meta.creationDate())
	doc.SetModificationDate(page.Meta.creationDate())
	doc.SetTitle(page.Meta.Title, true)
	doc.SetAuthor(page.Meta.Author, true)
	doc.SetSubject(page.Meta.Subject, true)
	doc.SetKeywords(strings.Join(page.Meta.Keywords, ", "), true)
	if page.Meta.Creator != "" {
		doc.SetCreator(page.Meta.Creator, true)
	}
	doc.AddPageFormat("P", size)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader(surfaceImageName, opts, &encoded)
	doc.ImageOptions(surfaceImageName, 0, 0, page.Width, page.Height, false, opts, 0, "")

	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return fmt.Errorf("gofpdf 输出失败: %w", err)
	}
	if _, err := w.Write(out.Bytes()); err != nil {
		return fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return nil
}
