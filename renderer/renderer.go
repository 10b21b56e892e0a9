package renderer

import (
	"context"

	"github.com/ByLCY/easel/scene"
)

// Renderer 将场景输出为最终文件，例如单页 PDF。
// Render 要么返回完整的文档，要么返回 *RenderError，不会返回部分写出的数据。
type Renderer interface {
	Render(ctx context.Context, s *scene.Scene) (*Document, error)
}

// Document 是一次成功渲染的结果。
type Document struct {
	Bytes     []byte
	MediaType string
	// Width/Height 为页面尺寸（pt），与场景一致。
	Width  float64
	Height float64
	Report Report
}

// Len 返回文档字节数。
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Bytes)
}

// Report 记录渲染过程中被跳过的元素，供调用方诊断。
type Report struct {
	Painted int
	Skipped []*ResourceError
}

// SkippedCount 返回被跳过的元素数量。
func (r Report) SkippedCount() int { return len(r.Skipped) }
