// Package fonts 提供内置字体。内置字体来自 Go 字体族（golang.org/x/image/font/gofont），
// 标准 PDF 字体名（Helvetica、Times、Courier 等）会映射到最接近的内置字体。
package fonts

import (
	"fmt"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// 内置字体族名称。
const (
	Sans = "Go"
	Mono = "Go Mono"
)

// Default 是无法解析字体族时使用的回退字体族。
const Default = Sans

// Style 选择字体族中的具体字形。
type Style int

const (
	Regular Style = iota
	Bold
	Italic
	BoldItalic
)

// StyleOf 由粗体/斜体标记组合出 Style。
func StyleOf(bold, italic bool) Style {
	switch {
	case bold && italic:
		return BoldItalic
	case bold:
		return Bold
	case italic:
		return Italic
	default:
		return Regular
	}
}

var faces = map[string][4][]byte{
	Sans: {goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF},
	Mono: {gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF},
}

// aliases 以小写、去掉空白与连字符后的名称为键。
var aliases = map[string]string{
	"go":            Sans,
	"gomono":        Mono,
	"helvetica":     Sans,
	"arial":         Sans,
	"sans":          Sans,
	"sansserif":     Sans,
	"times":         Sans,
	"timesroman":    Sans,
	"timesnewroman": Sans,
	"serif":         Sans,
	"courier":       Mono,
	"couriernew":    Mono,
	"monospace":     Mono,
	"mono":          Mono,
}

// Lookup 将字体族名称映射为内置字体族，名称不区分大小写，忽略空格与连字符。
func Lookup(family string) (string, bool) {
	key := normalize(family)
	if key == "" {
		return "", false
	}
	name, ok := aliases[key]
	return name, ok
}

// Load 返回内置字体族中指定字形的 TTF 数据。
func Load(family string, style Style) ([]byte, error) {
	name, ok := Lookup(family)
	if !ok {
		return nil, fmt.Errorf("未找到内置字体 %s", family)
	}
	if style < Regular || style > BoldItalic {
		return nil, fmt.Errorf("无效的字形 %d", style)
	}
	return faces[name][style], nil
}

// ImpliedStyle 识别 "Helvetica-Bold"、"Times-BoldItalic" 这类名称中携带的字形。
func ImpliedStyle(family string) Style {
	s := strings.ToLower(family)
	bold := strings.Contains(s, "bold")
	italic := strings.Contains(s, "italic") || strings.Contains(s, "oblique")
	return StyleOf(bold, italic)
}

func normalize(family string) string {
	s := strings.ToLower(strings.TrimSpace(family))
	s = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
	for _, suffix := range []string{"bolditalic", "boldoblique", "bold", "italic", "oblique"} {
		if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
			if _, ok := aliases[strings.TrimSuffix(s, suffix)]; ok {
				return strings.TrimSuffix(s, suffix)
			}
		}
	}
	return s
}
