package scene

import (
	"encoding/json"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Color 采用 0-255 的 RGBA 数值。零值表示“未指定”，渲染时按黑色处理。
type Color struct {
	R uint8
	G uint8
	B uint8
	A uint8
}

// 常用颜色。
var (
	Black = Color{A: 255}
	White = Color{R: 255, G: 255, B: 255, A: 255}
)

// RGB 返回不透明颜色。
func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b, A: 255} }

// IsZero 判断颜色是否未指定。
func (c Color) IsZero() bool { return c == Color{} }

// Resolve 返回实际用于填充的颜色：未指定时为黑色。
func (c Color) Resolve() Color {
	if c.IsZero() {
		return Black
	}
	return c
}

// NRGBA 转换为标准库颜色（非预乘）。
func (c Color) NRGBA() color.NRGBA {
	r := c.Resolve()
	return color.NRGBA{R: r.R, G: r.G, B: r.B, A: r.A}
}

// Hex 返回 #rrggbb 或 #rrggbbaa 形式。
func (c Color) Hex() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func (c Color) String() string { return c.Hex() }

// MarshalJSON 以十六进制字符串输出。
func (c Color) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(c.Hex())
}

// UnmarshalJSON 接受 ParseColor 支持的所有写法，空字符串表示未指定。
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("颜色必须是字符串: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		*c = Color{}
		return nil
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor 解析 #rgb、#rrggbb、#rrggbbaa、rgb(r,g,b)、rgba(r,g,b,a) 以及 SVG/CSS 颜色名。
func ParseColor(value string) (Color, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Color{}, fmt.Errorf("颜色值为空")
	}
	if strings.HasPrefix(v, "#") {
		return parseHex(v)
	}
	if strings.HasPrefix(v, "rgb") {
		return parseFunctional(v)
	}
	if named, ok := colornames.Map[v]; ok {
		return Color{R: named.R, G: named.G, B: named.B, A: named.A}, nil
	}
	return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
}

// MustColor 与 ParseColor 相同，但解析失败时 panic，供测试与常量初始化使用。
func MustColor(value string) Color {
	c, err := ParseColor(value)
	if err != nil {
		panic(err)
	}
	return c
}

func parseHex(v string) (Color, error) {
	hex := strings.TrimPrefix(v, "#")
	if len(hex) == 3 || len(hex) == 4 {
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	}
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", v)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", v, err)
	}
	if len(hex) == 6 {
		return Color{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}, nil
	}
	return Color{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

func parseFunctional(v string) (Color, error) {
	open := strings.IndexByte(v, '(')
	if open < 0 || !strings.HasSuffix(v, ")") {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", v)
	}
	name := strings.TrimSpace(v[:open])
	parts := strings.Split(v[open+1:len(v)-1], ",")
	want := 3
	if name == "rgba" {
		want = 4
	} else if name != "rgb" {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", v)
	}
	if len(parts) != want {
		return Color{}, fmt.Errorf("颜色值 %s 需要 %d 个分量", v, want)
	}
	var out [4]uint8
	out[3] = 255
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == 3 {
			// alpha 取 0-1 的小数
			f, err := strconv.ParseFloat(p, 64)
			if err != nil || f < 0 || f > 1 {
				return Color{}, fmt.Errorf("颜色值 %s 的透明度无效", v)
			}
			out[3] = uint8(f*255 + 0.5)
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return Color{}, fmt.Errorf("颜色值 %s 的分量 %q 无效", v, p)
		}
		out[i] = uint8(n)
	}
	return Color{R: out[0], G: out[1], B: out[2], A: out[3]}, nil
}
