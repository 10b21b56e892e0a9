package canvasrenderer

import (
	"math"
	"strings"
	"unicode"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/easel/scene"
)

// textLine 是折行后的一行文本，宽度以画布单位（pt）计。
type textLine struct {
	Content string
	Width   float64
}

// MeasureText 返回文本最宽一行的宽度（pt），即下划线覆盖的长度。
func (r *Renderer) MeasureText(t scene.Text) (float64, error) {
	if t.Content == "" {
		return 0, nil
	}
	face, err := r.fontFace(&t, canvas.Black)
	if err != nil {
		return 0, err
	}
	width := 0.0
	for _, line := range layoutLines(&t, face) {
		width = math.Max(width, line.Width)
	}
	return width, nil
}

// layoutLines 按显式换行拆分，MaxWidth > 0 时再使用贪心算法折行。
func layoutLines(t *scene.Text, face *canvas.FontFace) []textLine {
	lines := greedyWrapTokens(t.Content, t.MaxWidth, face)
	if len(lines) == 0 {
		lines = []textLine{{Content: "", Width: 0}}
	}
	return lines
}

// lineAdvance 返回相邻两行基线之间的距离。
func lineAdvance(t *scene.Text, face *canvas.FontFace) float64 {
	if h := face.Metrics().LineHeight; h > 0 {
		return h
	}
	return t.Size() * 1.2
}

// greedyWrapTokens 优先在空白处分割，单个词超过限制时在词内拆分。
func greedyWrapTokens(content string, width float64, face *canvas.FontFace) []textLine {
	limit := width
	wrapping := limit > 0
	if !wrapping {
		limit = math.MaxFloat64
	}

	tokens := tokenizeContent(content)
	var lines []textLine
	var builder strings.Builder
	currentWidth := 0.0
	softBreak := false

	emit := func(force bool) {
		softBreak = !force
		if builder.Len() == 0 {
			if force {
				lines = append(lines, textLine{Content: "", Width: 0})
			}
			return
		}
		lineStr := builder.String()
		if wrapping {
			// 折行产生的行尾空白不参与宽度与下划线
			lineStr = strings.TrimRightFunc(lineStr, unicode.IsSpace)
		}
		lines = append(lines, textLine{
			Content: lineStr,
			Width:   face.TextWidth(lineStr),
		})
		builder.Reset()
		currentWidth = 0
	}

	appendToken := func(token string) {
		builder.WriteString(token)
		currentWidth += face.TextWidth(token)
	}

	for _, token := range tokens {
		if token == "\n" {
			emit(true)
			continue
		}
		// 折行后的行首空白直接丢弃
		if softBreak && builder.Len() == 0 && isBlank(token) {
			continue
		}

		tokenWidth := face.TextWidth(token)
		if currentWidth > 0 && currentWidth+tokenWidth > limit {
			emit(false)
			if isBlank(token) {
				continue
			}
		}
		if tokenWidth <= limit {
			appendToken(token)
			continue
		}

		for _, chunk := range splitTokenByWidth(token, limit, face) {
			chunkWidth := face.TextWidth(chunk)
			if currentWidth > 0 && currentWidth+chunkWidth > limit {
				emit(false)
			}
			appendToken(chunk)
		}
	}

	emit(true)
	return lines
}

func isBlank(token string) bool {
	return strings.TrimSpace(token) == ""
}

func tokenizeContent(s string) []string {
	var tokens []string
	var builder strings.Builder
	lastWasSpace := false
	flush := func() {
		if builder.Len() == 0 {
			return
		}
		tokens = append(tokens, builder.String())
		builder.Reset()
	}

	for _, r := range s {
		if r == '\r' {
			continue
		}
		if r == '\n' {
			flush()
			tokens = append(tokens, "\n")
			lastWasSpace = false
			continue
		}
		isSpace := unicode.IsSpace(r)
		if builder.Len() == 0 {
			lastWasSpace = isSpace
		} else if lastWasSpace != isSpace {
			flush()
			lastWasSpace = isSpace
		}
		builder.WriteRune(r)
	}
	flush()
	return tokens
}

func splitTokenByWidth(token string, limit float64, face *canvas.FontFace) []string {
	if limit <= 0 || limit == math.MaxFloat64 {
		return []string{token}
	}
	var parts []string
	var builder strings.Builder
	for _, r := range token {
		builder.WriteRune(r)
		if face.TextWidth(builder.String()) > limit && builder.Len() > 1 {
			runes := []rune(builder.String())
			parts = append(parts, string(runes[:len(runes)-1]))
			builder.Reset()
			builder.WriteRune(r)
		}
	}
	if builder.Len() > 0 {
		parts = append(parts, builder.String())
	}
	return parts
}
