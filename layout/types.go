package layout

import (
	"github.com/ByLCY/easel/document"
	"github.com/ByLCY/easel/scene"
)

// 该文件定义编译结果与资源描述，供 CLI、渲染与调试 JSON 共用。

// Result 保存编译出的场景以及渲染时需要的资源。
type Result struct {
	Scene *scene.Scene            `json:"scene"`
	Meta  document.Meta           `json:"meta"`
	Fonts map[string]FontResource `json:"fonts"`
}

// FontResource 描述一个字体文件。Key 是渲染器使用的资源名：
// 字体族名，带字形时追加 -Bold/-Italic/-BoldItalic 后缀。
type FontResource struct {
	Name  string `json:"name"`
	Src   string `json:"src"`
	Style string `json:"style,omitempty"`
	Path  string `json:"path"` // 基于 BaseDir 解析后的路径
}

// Key 返回字体在渲染器中注册的名称。
func (f FontResource) Key() string {
	switch parseFontStyle(f.Style) {
	case styleBold:
		return f.Name + "-Bold"
	case styleItalic:
		return f.Name + "-Italic"
	case styleBold | styleItalic:
		return f.Name + "-BoldItalic"
	default:
		return f.Name
	}
}

// FontPaths 返回资源名到字体文件路径的映射。
func (r *Result) FontPaths() map[string]string {
	out := make(map[string]string, len(r.Fonts))
	for key, font := range r.Fonts {
		out[key] = font.Path
	}
	return out
}

// Style 是命名的属性集合，元素可以引用它并用内联属性覆盖。
type Style struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props"`
}

// resources 是编译期的命名资源表。
type resources struct {
	fonts  map[string]FontResource
	colors map[string]scene.Color
	styles map[string]Style
}
