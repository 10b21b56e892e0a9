package canvasrenderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/easel/document"
	"github.com/ByLCY/easel/imagesource"
	"github.com/ByLCY/easel/renderer"
	"github.com/ByLCY/easel/scene"
)

// Defaults applied by NewRenderer.
const (
	DefaultScale     = 1.0
	DefaultPrefetch  = 4
	DefaultMaxPixels = 1 << 26
)

// ErrSurfaceTooLarge 表示页面在当前分辨率下超过 MaxPixels。
var ErrSurfaceTooLarge = errors.New("画布像素数超过上限")

// Renderer draws scenes onto a raster surface via github.com/tdewolff/canvas
// and hands the surface to a document encoder.
type Renderer struct {
	scale       float64
	maxPixels   int64
	prefetch    int
	systemFonts bool
	encoder     document.Encoder
	meta        document.Meta
	resolver    *imagesource.Resolver
	logger      hclog.Logger

	// injected resources
	fontBlobs map[string][]byte // by family name, optionally suffixed with -Bold/-Italic/-BoldItalic

	// font families hold parsed font data only and are never mutated after
	// loading, so concurrent renders may share them.
	fontMu       sync.Mutex
	fontFamilies map[string]*fontFamilyEntry
}

var _ renderer.Renderer = (*Renderer)(nil)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options configures the canvas renderer.
type Options struct {
	// Scale is the raster resolution in pixels per point.
	Scale float64
	// MaxPixels bounds the raster surface (width × height in pixels); larger
	// pages fail before allocation.
	MaxPixels int64
	// FetchTimeout bounds each remote image fetch.
	FetchTimeout time.Duration
	// Prefetch is the number of remote images fetched concurrently ahead of
	// their paint step. Negative disables prefetching.
	Prefetch   int
	HTTPClient *http.Client
	// Fonts maps a family name (optionally with a -Bold, -Italic or
	// -BoldItalic suffix) to font data.
	Fonts map[string]Resource
	// SystemFonts enables lookup of unresolved families among installed fonts.
	SystemFonts bool
	Encoder     document.Encoder
	Meta        document.Meta
	Logger      hclog.Logger
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a renderer with defaults filled in.
func NewRenderer(opts Options) *Renderer {
	if !(opts.Scale > 0) {
		opts.Scale = DefaultScale
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	if opts.Prefetch == 0 {
		opts.Prefetch = DefaultPrefetch
	}
	if opts.Encoder == nil {
		opts.Encoder = document.Default()
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	r := &Renderer{
		scale:        opts.Scale,
		maxPixels:    opts.MaxPixels,
		prefetch:     opts.Prefetch,
		systemFonts:  opts.SystemFonts,
		encoder:      opts.Encoder,
		meta:         opts.Meta,
		logger:       opts.Logger.Named("renderer"),
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*fontFamilyEntry{},
	}
	r.resolver = imagesource.New(imagesource.Options{
		Client:  opts.HTTPClient,
		Timeout: opts.FetchTimeout,
		Logger:  opts.Logger,
	})
	// ingest fonts
	for name, res := range opts.Fonts {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, err := os.ReadFile(res.Path)
			if err != nil {
				r.logger.Warn("读取字体失败，将使用回退字体", "family", name, "path", res.Path, "error", err)
				continue
			}
			r.fontBlobs[name] = data
		}
	}
	return r
}

// Encoder reports the document encoder in use.
func (r *Renderer) Encoder() document.Encoder { return r.encoder }

// Render composites the scene and encodes it as a single page whose size
// equals the scene's page size. Image failures skip the element and are
// listed in the returned Document's Report; any other failure returns a
// *renderer.RenderError and no bytes.
func (r *Renderer) Render(ctx context.Context, s *scene.Scene) (*renderer.Document, error) {
	surface, report, err := r.Composite(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, renderer.NewError(renderer.KindCanceled, renderer.StageEncoding, err)
	}

	var buf bytes.Buffer
	page := document.Page{Width: s.Width, Height: s.Height, Meta: r.meta}
	if err := r.encoder.Encode(&buf, surface, page); err != nil {
		return nil, renderer.NewError(renderer.KindEncoding, renderer.StageEncoding, err)
	}
	r.logger.Debug("渲染完成", "encoder", r.encoder.Name(), "bytes", buf.Len(),
		"painted", report.Painted, "skipped", report.SkippedCount())
	return &renderer.Document{
		Bytes:     buf.Bytes(),
		MediaType: document.MediaTypePDF,
		Width:     s.Width,
		Height:    s.Height,
		Report:    report,
	}, nil
}

// Composite paints the scene onto a fresh white surface and returns it
// without encoding.
func (r *Renderer) Composite(ctx context.Context, s *scene.Scene) (*image.RGBA, renderer.Report, error) {
	var report renderer.Report
	if s == nil {
		return nil, report, renderer.NewError(renderer.KindConfiguration, renderer.StageUnstarted, fmt.Errorf("场景为空"))
	}
	if err := scene.ValidatePage(s.Width, s.Height); err != nil {
		return nil, report, renderer.NewError(renderer.KindConfiguration, renderer.StageUnstarted, err)
	}

	surface, err := r.newSurface(s.Width, s.Height)
	if err != nil {
		return nil, report, renderer.NewError(renderer.KindConfiguration, renderer.StageSurface, err)
	}
	ras := rasterizer.FromImage(surface, canvas.DPMM(r.scale), canvas.DefaultColorSpace)
	c := canvas.NewContext(ras)
	c.SetStrokeColor(canvas.Transparent)

	var batch *imagesource.Batch
	if r.prefetch > 0 {
		batch = r.resolver.Prefetch(ctx, s.Elements, r.prefetch)
		defer batch.Close()
	}

	p := &painter{
		r:       r,
		ctx:     ctx,
		c:       c,
		surface: surface,
		batch:   batch,
		height:  float64(surface.Bounds().Dy()) / r.scale,
	}
	for i, el := range s.Elements {
		if err := ctx.Err(); err != nil {
			return nil, report, renderer.NewError(renderer.KindCanceled, renderer.StageCompositing, err)
		}
		if el == nil {
			continue
		}
		p.index = i
		p.skipped = nil
		if err := el.Accept(p); err != nil {
			if ctx.Err() != nil {
				return nil, report, renderer.NewError(renderer.KindCanceled, renderer.StageCompositing, ctx.Err())
			}
			return nil, report, renderer.NewError(renderer.KindEncoding, renderer.StageCompositing,
				fmt.Errorf("绘制元素 %d（%s）失败: %w", i, el.Kind(), err))
		}
		if p.skipped != nil {
			report.Skipped = append(report.Skipped, p.skipped)
			continue
		}
		report.Painted++
	}
	return surface, report, nil
}

// newSurface allocates a white raster covering the page at the configured
// scale, refusing surfaces above maxPixels.
func (r *Renderer) newSurface(width, height float64) (*image.RGBA, error) {
	w := math.Ceil(width * r.scale)
	h := math.Ceil(height * r.scale)
	if !(w*h <= float64(r.maxPixels)) {
		return nil, fmt.Errorf("%w: %.0fx%.0f 像素，上限 %d", ErrSurfaceTooLarge, w, h, r.maxPixels)
	}
	surface := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for i := range surface.Pix {
		surface.Pix[i] = 0xff
	}
	return surface, nil
}

func fillColor(c scene.Color) color.Color {
	return c.Resolve().NRGBA()
}
