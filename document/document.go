// Package document 将渲染完成的栅格画布封装为单页文档。
// 页面尺寸与场景尺寸（pt）严格一致，画布从原点开始铺满整页，没有边距。
package document

import (
	"fmt"
	"image"
	"io"
	"sort"
	"strings"
	"time"
)

// MediaTypePDF 是所有内置编码器的输出类型。
const MediaTypePDF = "application/pdf"

// Meta 保存 PDF 元信息。
type Meta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
	// CreationDate 为零值时使用固定时间，保证同一输入得到相同的字节。
	CreationDate time.Time `json:"-"`
}

// Page 描述目标页面。
type Page struct {
	Width  float64 // pt
	Height float64 // pt
	Meta   Meta
}

// Encoder 将画布写成一页文档。实现必须把完整文档写入 w，失败时返回错误。
type Encoder interface {
	Name() string
	Encode(w io.Writer, surface image.Image, page Page) error
}

var encoders = map[string]func() Encoder{
	"canvas": func() Encoder { return CanvasPDF{} },
	"fpdf":   func() Encoder { return FPDF{} },
}

// Default 返回默认编码器。
func Default() Encoder { return CanvasPDF{} }

// ByName 按名称选择编码器。
func ByName(name string) (Encoder, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Default(), nil
	}
	if ctor, ok := encoders[name]; ok {
		return ctor(), nil
	}
	return nil, fmt.Errorf("未知的文档编码器 %q（可选：%s）", name, strings.Join(Names(), ", "))
}

// Names 列出所有编码器名称。
func Names() []string {
	names := make([]string, 0, len(encoders))
	for name := range encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// epoch 是未指定创建时间时写入文档的时间。
var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func (m Meta) creationDate() time.Time {
	if m.CreationDate.IsZero() {
		return epoch
	}
	return m.CreationDate
}

func checkPage(surface image.Image, page Page) error {
	if surface == nil || surface.Bounds().Empty() {
		return fmt.Errorf("画布为空")
	}
	if !(page.Width > 0) || !(page.Height > 0) {
		return fmt.Errorf("页面尺寸无效: %gx%g", page.Width, page.Height)
	}
	return nil
}
