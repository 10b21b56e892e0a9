package canvasrenderer

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/easel/fonts"
	"github.com/ByLCY/easel/scene"
)

func (r *Renderer) fontFace(t *scene.Text, col color.Color) (*canvas.FontFace, error) {
	style := textStyle(t)
	family, cstyle, err := r.ensureFontFamily(t.Family(), style)
	if err != nil {
		return nil, err
	}
	// canvas 以 pt 为字号单位并换算为画布单位，这里让 1 个画布单位对应 1pt
	return family.Face(t.Size()*scene.MmToPt, col, cstyle, canvas.FontNormal), nil
}

// textStyle 合并显式的粗体/斜体标记与字体名中隐含的字形（如 Helvetica-Bold）。
func textStyle(t *scene.Text) fonts.Style {
	implied := fonts.ImpliedStyle(t.Family())
	bold := t.Bold || implied == fonts.Bold || implied == fonts.BoldItalic
	italic := t.Italic || implied == fonts.Italic || implied == fonts.BoldItalic
	return fonts.StyleOf(bold, italic)
}

// ensureFontFamily 依次尝试：注入的字体资源、内置字体别名、系统字体，
// 全部失败时使用内置默认字体，因此对任意名称都能返回字体。
func (r *Renderer) ensureFontFamily(name string, style fonts.Style) (*canvas.FontFamily, canvas.FontStyle, error) {
	cstyle := canvasStyle(style)
	key := fontCacheKey(name, style)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	family, err := r.loadFamily(name, style, cstyle)
	if err != nil {
		r.logger.Debug("字体未解析，使用回退字体", "family", name, "style", styleSuffix(style), "error", err)
		family, err = r.fallback(style, cstyle)
		if err != nil {
			return nil, canvas.FontRegular, err
		}
	}
	r.fontFamilies[key] = &fontFamilyEntry{family: family, style: cstyle}
	return family, cstyle, nil
}

func (r *Renderer) loadFamily(name string, style fonts.Style, cstyle canvas.FontStyle) (*canvas.FontFamily, error) {
	if data, ok := r.fontBlob(name, style); ok {
		family := canvas.NewFontFamily(name)
		if err := family.LoadFont(data, 0, cstyle); err != nil {
			return nil, fmt.Errorf("加载字体 %s 失败: %w", name, err)
		}
		return family, nil
	}
	if data, err := fonts.Load(name, style); err == nil {
		family := canvas.NewFontFamily(name)
		if err := family.LoadFont(data, 0, cstyle); err != nil {
			return nil, fmt.Errorf("加载内置字体 %s 失败: %w", name, err)
		}
		return family, nil
	}
	if r.systemFonts {
		family := canvas.NewFontFamily(name)
		if err := family.LoadSystemFont(name, cstyle); err == nil {
			return family, nil
		}
	}
	return nil, fmt.Errorf("找不到字体 %s", name)
}

// fontBlob 优先匹配带字形后缀的资源名（Family-Bold），其次是字体族本身。
func (r *Renderer) fontBlob(name string, style fonts.Style) ([]byte, bool) {
	if suffix := styleSuffix(style); suffix != "" {
		if data, ok := r.fontBlobs[name+"-"+suffix]; ok {
			return data, true
		}
	}
	data, ok := r.fontBlobs[name]
	return data, ok
}

func (r *Renderer) fallback(style fonts.Style, cstyle canvas.FontStyle) (*canvas.FontFamily, error) {
	key := fontCacheKey(fonts.Default, style)
	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, nil
	}
	data, err := fonts.Load(fonts.Default, style)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("easel-fallback")
	if err := family.LoadFont(data, 0, cstyle); err != nil {
		return nil, err
	}
	r.fontFamilies[key] = &fontFamilyEntry{family: family, style: cstyle}
	return family, nil
}

func canvasStyle(style fonts.Style) canvas.FontStyle {
	switch style {
	case fonts.Bold:
		return canvas.FontBold
	case fonts.Italic:
		return canvas.FontRegular | canvas.FontItalic
	case fonts.BoldItalic:
		return canvas.FontBold | canvas.FontItalic
	default:
		return canvas.FontRegular
	}
}

func styleSuffix(style fonts.Style) string {
	switch style {
	case fonts.Bold:
		return "Bold"
	case fonts.Italic:
		return "Italic"
	case fonts.BoldItalic:
		return "BoldItalic"
	default:
		return ""
	}
}

func fontCacheKey(name string, style fonts.Style) string {
	return fmt.Sprintf("%s|%d", strings.ToLower(name), style)
}
