package layout

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ByLCY/easel/binding"
	"github.com/ByLCY/easel/document"
	"github.com/ByLCY/easel/dsl"
	"github.com/ByLCY/easel/scene"
)

const defaultCreator = "Easel"

// Build 将 DSL AST 编译为场景。元素按出现顺序排列，即绘制顺序；
// 文本内容与图片地址中的 ${path} 会用 data 插值。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	if doc.Block == nil {
		return nil, fmt.Errorf("scene 段落缺少内容")
	}

	width, height, err := resolvePageSize(doc.Params)
	if err != nil {
		return nil, err
	}

	res, err := collectResources(doc.Block, opts)
	if err != nil {
		return nil, err
	}
	meta := collectMeta(doc.Block, opts)

	s := &scene.Scene{Width: width, Height: height}
	b := &sceneBuilder{res: res, data: data, opts: opts}
	for _, stmt := range doc.Block.Statements {
		if stmt.Command == nil {
			continue
		}
		el, err := b.element(stmt.Command)
		if err != nil {
			return nil, fmt.Errorf("第 %d 行 %s: %w", stmt.Command.Pos.Line, stmt.Command.Name, err)
		}
		if el != nil {
			s.Elements = append(s.Elements, el)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &Result{
		Scene: s,
		Meta:  meta,
		Fonts: res.fonts,
	}, nil
}

type sceneBuilder struct {
	res  resources
	data any
	opts BuildOptions
}

// element 返回命令对应的元素；资源类命令返回 nil。
func (b *sceneBuilder) element(cmd *dsl.Command) (scene.Element, error) {
	switch cmd.Name {
	case "meta", "font", "color", "style":
		return nil, nil
	case "rect", "rectangle":
		return b.rectangle(cmd)
	case "circle":
		return b.circle(cmd)
	case "text":
		return b.text(cmd)
	case "image":
		return b.image(cmd)
	default:
		return nil, fmt.Errorf("未知的命令")
	}
}

func (b *sceneBuilder) attrs(cmd *dsl.Command) (map[string]string, error) {
	style, inline, err := parseArgs(cmd.Args, true)
	if err != nil {
		return nil, err
	}
	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			if stmt.Assignment != nil {
				inline[stmt.Assignment.Key] = valueToString(stmt.Assignment.Value)
			}
		}
	}
	return mergeStyleAttributes(style, inline, b.res.styles)
}

func (b *sceneBuilder) rectangle(cmd *dsl.Command) (scene.Element, error) {
	attrs, err := b.attrs(cmd)
	if err != nil {
		return nil, err
	}
	var rc scene.Rectangle
	p := attrParser{attrs: attrs, res: b.res}
	rc.X = p.length("x")
	rc.Y = p.length("y")
	rc.Width = p.length("width", "w")
	rc.Height = p.length("height", "h")
	rc.Fill = p.color("color", "fill")
	return &rc, p.err
}

func (b *sceneBuilder) circle(cmd *dsl.Command) (scene.Element, error) {
	attrs, err := b.attrs(cmd)
	if err != nil {
		return nil, err
	}
	var c scene.Circle
	p := attrParser{attrs: attrs, res: b.res}
	c.CX = p.length("x", "cx")
	c.CY = p.length("y", "cy")
	c.Radius = p.length("radius", "r")
	c.Fill = p.color("color", "fill")
	return &c, p.err
}

func (b *sceneBuilder) text(cmd *dsl.Command) (scene.Element, error) {
	attrs, err := b.attrs(cmd)
	if err != nil {
		return nil, err
	}
	var t scene.Text
	p := attrParser{attrs: attrs, res: b.res}
	t.X = p.length("x")
	t.Y = p.length("y")
	t.FontSize = p.length("size", "font-size")
	t.FontFamily = p.str("font", "family")
	t.Fill = p.color("color", "fill")
	t.Bold = p.flag("bold")
	t.Italic = p.flag("italic")
	t.Underline = p.flag("underline")
	t.MaxWidth = p.length("width")
	t.Align = scene.Align(strings.ToLower(p.str("align")))
	if p.err != nil {
		return nil, p.err
	}

	content := extractText(cmd.Block)
	if content == "" {
		content = p.str("content", "text")
	}
	t.Content = binding.Interpolate(content, b.data)
	return &t, nil
}

func (b *sceneBuilder) image(cmd *dsl.Command) (scene.Element, error) {
	attrs, err := b.attrs(cmd)
	if err != nil {
		return nil, err
	}
	var img scene.Image
	p := attrParser{attrs: attrs, res: b.res}
	img.X = p.length("x")
	img.Y = p.length("y")
	img.Width = p.length("width", "w")
	img.Height = p.length("height", "h")
	src := binding.Interpolate(p.str("src", "url"), b.data)
	if p.err != nil {
		return nil, p.err
	}
	if src == "" {
		return nil, fmt.Errorf("image 缺少 src")
	}
	img.Source, err = resolveImageSource(src, b.opts.BaseDir)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// resolveImageSource 将 src 归类：http(s) 地址为远程图片，data: URI 与本地文件读取为内联图片。
func resolveImageSource(src, baseDir string) (scene.Source, error) {
	switch {
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return &scene.RemoteSource{URL: src}, nil
	case strings.HasPrefix(src, "data:"):
		return scene.ParseInline(src, "")
	}
	path, err := resolvePath(src, baseDir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取图片 %s 失败: %w", src, err)
	}
	return &scene.InlineSource{Data: data, MediaType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))}, nil
}

func resolvePath(src, baseDir string) (string, error) {
	if filepath.IsAbs(src) {
		return src, nil
	}
	if baseDir == "" {
		return "", fmt.Errorf("未指定资源目录时不允许直接使用相对路径：%s", src)
	}
	return filepath.Join(baseDir, src), nil
}

func collectResources(block *dsl.Block, opts BuildOptions) (resources, error) {
	res := resources{
		fonts:  map[string]FontResource{},
		colors: map[string]scene.Color{},
		styles: map[string]Style{},
	}
	rawStyles := map[string]Style{}

	for _, stmt := range block.Statements {
		if stmt.Command == nil {
			continue
		}
		switch stmt.Command.Name {
		case "font":
			font, err := parseFontResource(stmt.Command, opts.BaseDir)
			if err != nil {
				return res, err
			}
			res.fonts[font.Key()] = font
		case "color":
			name, value := parseColorResource(stmt.Command)
			if name == "" || value == "" {
				return res, fmt.Errorf("第 %d 行 color 需要名称与取值", stmt.Command.Pos.Line)
			}
			c, err := scene.ParseColor(value)
			if err != nil {
				return res, fmt.Errorf("第 %d 行 color %s: %w", stmt.Command.Pos.Line, name, err)
			}
			res.colors[name] = c
		case "style":
			style := parseStyleResource(stmt.Command)
			if style.Name == "" {
				return res, fmt.Errorf("第 %d 行 style 缺少名称", stmt.Command.Pos.Line)
			}
			rawStyles[style.Name] = style
		}
	}

	resolvedStyles, err := resolveStyles(rawStyles)
	if err != nil {
		return res, err
	}
	res.styles = resolvedStyles
	return res, nil
}

func collectMeta(block *dsl.Block, opts BuildOptions) document.Meta {
	meta := document.Meta{Creator: opts.Creator}
	if meta.Creator == "" {
		meta.Creator = defaultCreator
	}
	for _, stmt := range block.Statements {
		if stmt.Command == nil || stmt.Command.Name != "meta" || stmt.Command.Block == nil {
			continue
		}
		for _, inner := range stmt.Command.Block.Statements {
			if inner.Assignment == nil {
				continue
			}
			key := strings.ToLower(inner.Assignment.Key)
			switch key {
			case "title":
				meta.Title = valueToString(inner.Assignment.Value)
			case "author":
				meta.Author = valueToString(inner.Assignment.Value)
			case "subject":
				meta.Subject = valueToString(inner.Assignment.Value)
			case "creator":
				meta.Creator = valueToString(inner.Assignment.Value)
			case "keywords":
				meta.Keywords = valueToStringSlice(inner.Assignment.Value)
			}
		}
	}
	return meta
}

// parseFontResource 支持 `font Name src "file.ttf" style bold` 与块写法
// `font Name { src: "file.ttf"; style: "bold" }`。
func parseFontResource(cmd *dsl.Command, baseDir string) (FontResource, error) {
	if len(cmd.Args) == 0 {
		return FontResource{}, fmt.Errorf("第 %d 行 font 缺少名称", cmd.Pos.Line)
	}
	font := FontResource{Name: cmd.Args[0].Value}
	_, attrs, err := parseArgs(cmd.Args[1:], false)
	if err != nil {
		return font, fmt.Errorf("第 %d 行 font %s: %w", cmd.Pos.Line, font.Name, err)
	}
	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			if stmt.Assignment != nil {
				attrs[stmt.Assignment.Key] = valueToString(stmt.Assignment.Value)
			}
		}
	}
	font.Src = attrs["src"]
	font.Style = attrs["style"]
	if font.Src == "" {
		return font, fmt.Errorf("字体 %s 缺少 src", font.Name)
	}
	font.Path, err = resolvePath(font.Src, baseDir)
	if err != nil {
		return font, err
	}
	return font, nil
}

func parseStyleResource(cmd *dsl.Command) Style {
	if len(cmd.Args) == 0 {
		return Style{}
	}
	style := Style{
		Name:  cmd.Args[0].Value,
		Props: map[string]string{},
	}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		style.Extends = cmd.Args[2].Value
	}

	if cmd.Block == nil {
		return style
	}

	for _, stmt := range cmd.Block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		val := valueToString(stmt.Assignment.Value)
		if val == "" {
			continue
		}
		style.Props[stmt.Assignment.Key] = val
	}
	return style
}

func resolveStyles(styles map[string]Style) (map[string]Style, error) {
	resolved := map[string]Style{}
	visiting := map[string]bool{}

	var dfs func(name string) (Style, error)
	dfs = func(name string) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return Style{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return Style{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := dfs(style.Extends)
			if err != nil {
				return Style{}, err
			}
			for k, v := range parent.Props {
				props[k] = v
			}
		}
		for k, v := range style.Props {
			props[k] = v
		}
		style.Props = props
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for name := range styles {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func parseColorResource(cmd *dsl.Command) (string, string) {
	if len(cmd.Args) == 0 {
		return "", ""
	}
	name := cmd.Args[0].Value
	value := ""
	if len(cmd.Args) > 1 {
		value = cmd.Args[len(cmd.Args)-1].Value
	}
	return name, value
}

// pagePresets 以 pt 为单位。
var pagePresets = map[string][2]float64{
	"A3":     {841.89, 1190.55},
	"A4":     {595.28, 841.89},
	"A5":     {419.53, 595.28},
	"LETTER": {612, 792},
	"LEGAL":  {612, 1008},
}

// resolvePageSize 接受 `scene 400 300`、`scene 210mm 297mm` 或 `scene A4 landscape`。
func resolvePageSize(params []*dsl.Lexeme) (float64, float64, error) {
	if len(params) == 0 {
		return 0, 0, fmt.Errorf("scene 缺少页面尺寸")
	}
	var width, height float64
	rest := params
	if base, ok := pagePresets[strings.ToUpper(params[0].Value)]; ok {
		width, height = base[0], base[1]
		rest = params[1:]
	} else {
		if len(params) < 2 {
			return 0, 0, fmt.Errorf("scene 需要宽度与高度")
		}
		w, err := scene.ParseLength(params[0].Value)
		if err != nil {
			return 0, 0, err
		}
		h, err := scene.ParseLength(params[1].Value)
		if err != nil {
			return 0, 0, err
		}
		width, height = w.Points(), h.Points()
		rest = params[2:]
	}
	for _, token := range rest {
		switch strings.ToLower(token.Value) {
		case "landscape":
			if height > width {
				width, height = height, width
			}
		case "portrait":
			if width > height {
				width, height = height, width
			}
		default:
			return 0, 0, fmt.Errorf("无法识别的页面参数 %q", token.Value)
		}
	}
	if err := scene.ValidatePage(width, height); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

// flagAttrs 可以不带取值出现，例如 `text bold underline`。
var flagAttrs = map[string]bool{"bold": true, "italic": true, "underline": true}

// attrNames 中的名称不会被误认为 style 引用。
var attrNames = map[string]bool{
	"x": true, "y": true, "cx": true, "cy": true, "w": true, "h": true, "r": true,
	"width": true, "height": true, "radius": true, "color": true, "fill": true,
	"size": true, "font-size": true, "font": true, "family": true, "align": true,
	"content": true, "text": true, "src": true, "url": true,
	"bold": true, "italic": true, "underline": true,
}

func parseArgs(args []*dsl.Lexeme, allowStyle bool) (string, map[string]string, error) {
	result := map[string]string{}
	if len(args) == 0 {
		return "", result, nil
	}

	cursor := 0
	var style string
	if allowStyle && args[0].IsIdent() && !attrNames[args[0].Value] {
		style = args[0].Value
		cursor = 1
	}

	for cursor < len(args) {
		key := args[cursor].Value
		if flagAttrs[key] {
			if cursor+1 < len(args) {
				if _, err := strconv.ParseBool(args[cursor+1].Value); err == nil {
					result[key] = args[cursor+1].Value
					cursor += 2
					continue
				}
			}
			result[key] = "true"
			cursor++
			continue
		}
		if cursor+1 >= len(args) {
			return style, result, fmt.Errorf("属性 %s 缺少取值", key)
		}
		result[key] = args[cursor+1].Value
		cursor += 2
	}

	return style, result, nil
}

func mergeStyleAttributes(style string, inline map[string]string, styles map[string]Style) (map[string]string, error) {
	out := make(map[string]string)
	if style != "" {
		s, ok := styles[style]
		if !ok {
			return nil, fmt.Errorf("style %s 未定义", style)
		}
		for k, v := range s.Props {
			out[k] = v
		}
	}
	for k, v := range inline {
		out[k] = v
	}
	return out, nil
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var parts []string
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			parts = append(parts, string(stmt.Text.Value))
		}
	}
	return strings.Join(parts, "\n")
}

// attrParser 读取属性并记录第一个错误。
type attrParser struct {
	attrs map[string]string
	res   resources
	err   error
}

func (p *attrParser) lookup(keys ...string) (string, string, bool) {
	for _, k := range keys {
		if v, ok := p.attrs[k]; ok {
			return k, v, true
		}
	}
	return "", "", false
}

func (p *attrParser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("属性 %s: %w", key, err)
	}
}

func (p *attrParser) str(keys ...string) string {
	_, v, _ := p.lookup(keys...)
	return v
}

func (p *attrParser) length(keys ...string) float64 {
	key, v, ok := p.lookup(keys...)
	if !ok {
		return 0
	}
	l, err := scene.ParseLength(v)
	if err != nil {
		p.fail(key, err)
		return 0
	}
	return l.Points()
}

func (p *attrParser) flag(key string) bool {
	v, ok := p.attrs[key]
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return false
	}
	return b
}

func (p *attrParser) color(keys ...string) scene.Color {
	key, v, ok := p.lookup(keys...)
	if !ok {
		return scene.Black
	}
	c, err := resolveColor(v, p.res)
	if err != nil {
		p.fail(key, err)
	}
	return c
}

func resolveColor(value string, res resources) (scene.Color, error) {
	if c, ok := res.colors[value]; ok {
		return c, nil
	}
	return scene.ParseColor(value)
}

type fontStyle int

const (
	styleBold fontStyle = 1 << iota
	styleItalic
)

func parseFontStyle(style string) fontStyle {
	s := strings.ToLower(style)
	var result fontStyle
	if strings.Contains(s, "bold") || style == "B" || style == "BI" {
		result |= styleBold
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") || style == "I" || style == "BI" {
		result |= styleItalic
	}
	return result
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Ident != nil:
		return *val.Ident
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}
