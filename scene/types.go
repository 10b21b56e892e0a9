package scene

// 该文件定义场景模型：页面尺寸与按绘制顺序排列的元素。
// 坐标与尺寸统一以 pt（1/72 英寸）为单位，原点位于页面左上角，y 轴向下。

// Scene 是一次渲染的完整输入。Elements 的顺序即绘制顺序，后绘制的元素覆盖先绘制的元素。
type Scene struct {
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Elements []Element `json:"elements"`
}

// Len 返回元素数量。
func (s *Scene) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Elements)
}

// Clone 返回场景的深拷贝，内联图片数据也会被复制。
func (s *Scene) Clone() *Scene {
	if s == nil {
		return nil
	}
	out := &Scene{Width: s.Width, Height: s.Height, Elements: make([]Element, len(s.Elements))}
	for i, el := range s.Elements {
		out.Elements[i] = CloneElement(el)
	}
	return out
}

// Kind 标识元素类型，同时是 JSON 中 "type" 字段的取值。
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindText      Kind = "text"
	KindImage     Kind = "image"
)

// Element 是封闭的元素变体，只有本包中的四种类型实现它。
type Element interface {
	Kind() Kind
	// Accept 将元素分派给 Visitor 上对应的方法。
	Accept(v Visitor) error
	sealed()
}

// Visitor 为每种元素提供一个方法。新增元素类型时，所有 Visitor 实现都会编译失败，
// 从而保证绘制逻辑覆盖全部类型。
type Visitor interface {
	VisitRectangle(r *Rectangle) error
	VisitCircle(c *Circle) error
	VisitText(t *Text) error
	VisitImage(img *Image) error
}

// Rectangle 是以 (X, Y) 为左上角的填充矩形。
type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Fill   Color   `json:"color"`
}

func (*Rectangle) Kind() Kind { return KindRectangle }
func (r *Rectangle) Accept(v Visitor) error { return v.VisitRectangle(r) }
func (*Rectangle) sealed() {}

// Circle 是以 (CX, CY) 为圆心的填充圆。
type Circle struct {
	CX     float64 `json:"x"`
	CY     float64 `json:"y"`
	Radius float64 `json:"radius"`
	Fill   Color   `json:"color"`
}

func (*Circle) Kind() Kind { return KindCircle }
func (c *Circle) Accept(v Visitor) error { return v.VisitCircle(c) }
func (*Circle) sealed() {}

// DefaultFontFamily 与 DefaultFontSize 是文本未指定字体/字号时的取值。
const (
	DefaultFontFamily = "Helvetica"
	DefaultFontSize   = 12.0
)

// Text 是一段文本，(X, Y) 为字形框左上角附近，首行基线位于 Y + FontSize。
// 内容中的换行符会开始新的一行；MaxWidth > 0 时超出宽度的内容自动折行。
type Text struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Content    string  `json:"text"`
	FontFamily string  `json:"font,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"` // pt，<=0 时使用 DefaultFontSize
	Fill       Color   `json:"color"`
	Bold       bool    `json:"bold,omitempty"`
	Italic     bool    `json:"italic,omitempty"`
	Underline  bool    `json:"underline,omitempty"`
	MaxWidth   float64 `json:"width,omitempty"`
	Align      Align   `json:"align,omitempty"`
}

// Align 是多行文本在 MaxWidth 内的水平对齐方式，未设置 MaxWidth 时忽略。
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

func (*Text) Kind() Kind { return KindText }
func (t *Text) Accept(v Visitor) error { return v.VisitText(t) }
func (*Text) sealed() {}

// Size 返回生效的字号。
func (t *Text) Size() float64 {
	if t.FontSize <= 0 {
		return DefaultFontSize
	}
	return t.FontSize
}

// Family 返回生效的字体族名称。
func (t *Text) Family() string {
	if t.FontFamily == "" {
		return DefaultFontFamily
	}
	return t.FontFamily
}

// Image 以 (X, Y) 为左上角绘制图片。Width/Height 为 0 表示未指定：
// 两者都未指定时使用图片原始像素尺寸，只指定其一时另一边按原始宽高比计算。
type Image struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Source Source  `json:"-"`
}

func (*Image) Kind() Kind { return KindImage }
func (img *Image) Accept(v Visitor) error { return v.VisitImage(img) }
func (*Image) sealed() {}

// Size 根据图片的原始像素尺寸计算最终绘制尺寸。
func (img *Image) Size(naturalW, naturalH int) (float64, float64) {
	w, h := img.Width, img.Height
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	nw, nh := float64(naturalW), float64(naturalH)
	switch {
	case w > 0 && h > 0:
		return w, h
	case w > 0 && nw > 0:
		return w, w * nh / nw
	case h > 0 && nh > 0:
		return h * nw / nh, h
	default:
		return nw, nh
	}
}

// Source 是图片来源变体：InlineSource 或 RemoteSource。
type Source interface {
	// Describe 返回便于日志输出的简短描述。
	Describe() string
	isSource()
}

// InlineSource 携带已经解码出信封（例如 base64）的图片字节。
type InlineSource struct {
	Data      []byte
	MediaType string
}

func (s *InlineSource) Describe() string {
	if s.MediaType == "" {
		return "inline"
	}
	return "inline:" + s.MediaType
}
func (*InlineSource) isSource() {}

// RemoteSource 指向需要通过网络获取的图片。
type RemoteSource struct {
	URL string
}

func (s *RemoteSource) Describe() string { return s.URL }
func (*RemoteSource) isSource() {}

// CloneElement 返回元素的深拷贝。
func CloneElement(el Element) Element {
	switch e := el.(type) {
	case *Rectangle:
		c := *e
		return &c
	case *Circle:
		c := *e
		return &c
	case *Text:
		c := *e
		return &c
	case *Image:
		c := *e
		if in, ok := e.Source.(*InlineSource); ok {
			c.Source = &InlineSource{Data: append([]byte(nil), in.Data...), MediaType: in.MediaType}
		} else if rs, ok := e.Source.(*RemoteSource); ok {
			c.Source = &RemoteSource{URL: rs.URL}
		}
		return &c
	default:
		return el
	}
}
