package canvasrenderer

import (
	"context"
	"image"
	"math"

	"github.com/tdewolff/canvas"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ByLCY/easel/imagesource"
	"github.com/ByLCY/easel/renderer"
	"github.com/ByLCY/easel/scene"
)

// 下划线位于基线下方 underlineOffset 处，粗细 underlineThickness。
const (
	underlineOffset    = 2.0
	underlineThickness = 1.0
)

// 图片放置的像素坐标绝对值上限，超出后 float64 到 int 的转换不再可靠。
const maxImageCoord = 1 << 52

// kernelSupport 是 CatmullRom 插值在源图上向外读取的像素数。
const kernelSupport = 2

// painter composites one element at a time. It is created per render and
// never shared.
//
// The canvas context keeps its default y-up coordinate system; scene
// coordinates (y down, origin top-left) are flipped against height here.
type painter struct {
	r       *Renderer
	ctx     context.Context
	c       *canvas.Context
	surface *image.RGBA
	batch   *imagesource.Batch
	height  float64

	index   int
	skipped *renderer.ResourceError
}

var _ scene.Visitor = (*painter)(nil)

func (p *painter) VisitRectangle(rc *scene.Rectangle) error {
	if rc.Width <= 0 || rc.Height <= 0 {
		return nil
	}
	p.c.SetFillColor(fillColor(rc.Fill))
	p.c.DrawPath(rc.X, p.flip(rc.Y+rc.Height), canvas.Rectangle(rc.Width, rc.Height))
	return nil
}

func (p *painter) VisitCircle(ci *scene.Circle) error {
	if ci.Radius <= 0 {
		return nil
	}
	p.c.SetFillColor(fillColor(ci.Fill))
	p.c.DrawPath(ci.CX, p.flip(ci.CY), canvas.Circle(ci.Radius))
	return nil
}

func (p *painter) VisitText(t *scene.Text) error {
	if t.Content == "" {
		return nil
	}
	face, err := p.r.fontFace(t, fillColor(t.Fill))
	if err != nil {
		return err
	}
	lines := layoutLines(t, face)
	advance := lineAdvance(t, face)

	p.c.SetFillColor(fillColor(t.Fill))
	baseline := t.Y + t.Size()
	for i, line := range lines {
		if i > 0 {
			baseline += advance
		}
		if line.Content != "" {
			x := lineOrigin(t, line.Width)
			p.c.DrawText(x, p.flip(baseline), canvas.NewTextLine(face, line.Content, canvas.Left))
			if t.Underline {
				bottom := baseline + underlineOffset + underlineThickness
				p.c.DrawPath(x, p.flip(bottom), canvas.Rectangle(line.Width, underlineThickness))
			}
		}
	}
	return nil
}

// flip 将自上而下的 y 坐标转换为画布坐标。
func (p *painter) flip(y float64) float64 { return p.height - y }

// lineOrigin 返回一行文本左端的 x 坐标。
func lineOrigin(t *scene.Text, width float64) float64 {
	if t.MaxWidth <= 0 {
		return t.X
	}
	switch t.Align {
	case scene.AlignCenter:
		return t.X + (t.MaxWidth-width)/2
	case scene.AlignRight:
		return t.X + t.MaxWidth - width
	default:
		return t.X
	}
}

func (p *painter) VisitImage(el *scene.Image) error {
	img, err := p.resolve(el)
	if err != nil {
		if p.ctx.Err() != nil {
			return err
		}
		p.skipped = &renderer.ResourceError{Index: p.index, Source: describe(el.Source), Err: err}
		p.r.logger.Warn("图片无法解析，跳过该元素", "index", p.index, "source", describe(el.Source), "error", err)
		return nil
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil
	}
	w, h := el.Size(bounds.Dx(), bounds.Dy())
	if !(w > 0 && h > 0) {
		return nil
	}
	scale := p.r.scale
	s2d, sr, ok := placeImage(el.X*scale, el.Y*scale, (el.X+w)*scale, (el.Y+h)*scale, bounds, p.surface.Bounds())
	if !ok {
		return nil
	}
	draw.CatmullRom.Transform(p.surface, s2d, img, sr, draw.Over, nil)
	return nil
}

// placeImage 计算把 src 铺满像素框 [x0,x1)×[y0,y1) 的仿射变换，并返回框与 clip
// 相交部分对应的源区域。框完全落在 clip 之外或坐标无法表示时 ok 为 false。
func placeImage(x0, y0, x1, y1 float64, src, clip image.Rectangle) (s2d f64.Aff3, sr image.Rectangle, ok bool) {
	for _, v := range [...]float64{x0, y0, x1, y1} {
		if math.IsNaN(v) || math.Abs(v) > maxImageCoord {
			return s2d, sr, false
		}
	}
	cx0 := math.Max(x0, float64(clip.Min.X))
	cy0 := math.Max(y0, float64(clip.Min.Y))
	cx1 := math.Min(x1, float64(clip.Max.X))
	cy1 := math.Min(y1, float64(clip.Max.Y))
	if !(cx0 < cx1 && cy0 < cy1) {
		return s2d, sr, false
	}

	sx := (x1 - x0) / float64(src.Dx())
	sy := (y1 - y0) / float64(src.Dy())
	s2d = f64.Aff3{
		sx, 0, x0 - float64(src.Min.X)*sx,
		0, sy, y0 - float64(src.Min.Y)*sy,
	}
	sr = image.Rect(
		src.Min.X+int(math.Floor((cx0-x0)/sx))-kernelSupport,
		src.Min.Y+int(math.Floor((cy0-y0)/sy))-kernelSupport,
		src.Min.X+int(math.Ceil((cx1-x0)/sx))+kernelSupport,
		src.Min.Y+int(math.Ceil((cy1-y0)/sy))+kernelSupport,
	).Intersect(src)
	return s2d, sr, !sr.Empty()
}

func (p *painter) resolve(el *scene.Image) (image.Image, error) {
	if p.batch.Has(p.index) {
		return p.batch.Wait(p.ctx, p.index)
	}
	return p.r.resolver.Resolve(p.ctx, el.Source)
}

func describe(src scene.Source) string {
	if src == nil {
		return "none"
	}
	return src.Describe()
}
