package layout

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/easel/dsl"
	"github.com/ByLCY/easel/scene"
)

// buildScene 是测试辅助：用给定 DSL 文本编译场景。
func buildScene(t *testing.T, dslText string, data any, opts BuildOptions) *Result {
	t.Helper()
	doc, err := dsl.Parse(strings.NewReader(dslText))
	if err != nil {
		t.Fatalf("解析 DSL 失败: %v", err)
	}
	res, err := Build(doc, data, opts)
	if err != nil {
		t.Fatalf("编译失败: %v", err)
	}
	return res
}

func buildError(t *testing.T, dslText string) error {
	t.Helper()
	doc, err := dsl.Parse(strings.NewReader(dslText))
	if err != nil {
		t.Fatalf("解析 DSL 失败: %v", err)
	}
	_, err = Build(doc, nil, BuildOptions{})
	if err == nil {
		t.Fatalf("期望编译失败")
	}
	return err
}

func eq(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestBuildElementsInOrder(t *testing.T) {
	res := buildScene(t, `scene 400 300 {
  rect x 10 y 20 width 100 height 50 color #ff0000
  circle x 200 y 150 radius 1in color teal
  text x 5 y 6 size 14 font Courier bold underline { "Hi" }
  image x 1 y 2 width 30 src "https://example.com/a.png"
}`, nil, BuildOptions{})

	s := res.Scene
	if !eq(s.Width, 400) || !eq(s.Height, 300) {
		t.Fatalf("页面尺寸错误: %gx%g", s.Width, s.Height)
	}
	want := []scene.Element{
		&scene.Rectangle{X: 10, Y: 20, Width: 100, Height: 50, Fill: scene.RGB(255, 0, 0)},
		&scene.Circle{CX: 200, CY: 150, Radius: 72, Fill: scene.RGB(0, 128, 128)},
		&scene.Text{X: 5, Y: 6, Content: "Hi", FontFamily: "Courier", FontSize: 14, Fill: scene.Black, Bold: true, Underline: true},
		&scene.Image{X: 1, Y: 2, Width: 30, Source: &scene.RemoteSource{URL: "https://example.com/a.png"}},
	}
	if diff := cmp.Diff(want, s.Elements); diff != "" {
		t.Fatalf("元素不一致 (-want +got):\n%s", diff)
	}
}

func TestBuildPagePresetsAndUnits(t *testing.T) {
	cases := map[string][2]float64{
		"A4":                {595.28, 841.89},
		"A4 landscape":      {841.89, 595.28},
		"Letter":            {612, 792},
		"210mm 297mm":       {210 * scene.MmToPt, 297 * scene.MmToPt},
		"8.5in 11in":        {612, 792},
		"600 400 portrait":  {400, 600},
		"400 600 landscape": {600, 400},
	}
	for page, want := range cases {
		res := buildScene(t, "scene "+page+" {\n}", nil, BuildOptions{})
		if !eq(res.Scene.Width, want[0]) || !eq(res.Scene.Height, want[1]) {
			t.Fatalf("%s: 页面尺寸 %gx%g，期望 %gx%g", page, res.Scene.Width, res.Scene.Height, want[0], want[1])
		}
	}
}

func TestBuildRejectsInvalidPage(t *testing.T) {
	for _, page := range []string{"-10 100", "100 0", "A4 sideways", "100"} {
		buildError(t, "scene "+page+" {\n}")
	}
}

func TestBuildInterpolatesText(t *testing.T) {
	data := map[string]any{
		"user":  map[string]any{"name": "Ada"},
		"items": []any{map[string]any{"img": "https://example.com/x.png"}},
	}
	res := buildScene(t, `scene 100 100 {
  text x 0 y 0 { "Hello, ${user.name}!" "Missing: ${user.age|n/a}" }
  image x 0 y 0 src "${items[0].img}"
}`, data, BuildOptions{})

	text := res.Scene.Elements[0].(*scene.Text)
	if text.Content != "Hello, Ada!\nMissing: n/a" {
		t.Fatalf("插值结果错误: %q", text.Content)
	}
	img := res.Scene.Elements[1].(*scene.Image)
	if diff := cmp.Diff(&scene.RemoteSource{URL: "https://example.com/x.png"}, img.Source); diff != "" {
		t.Fatalf("图片地址错误 (-want +got):\n%s", diff)
	}
}

func TestBuildStylesAndColors(t *testing.T) {
	res := buildScene(t, `scene 200 200 {
  color brand #0F62FE
  style base { size: 10; color: brand }
  style heading extends base { size: 18; bold: true }
  text heading x 10 y 10 content "Title"
  text heading x 10 y 40 size 9 italic content "Small"
  rect x 0 y 0 width 10 height 10 color brand
}`, nil, BuildOptions{})

	brand := scene.RGB(0x0f, 0x62, 0xfe)
	title := res.Scene.Elements[0].(*scene.Text)
	if !eq(title.FontSize, 18) || !title.Bold || title.Fill != brand || title.Content != "Title" {
		t.Fatalf("heading 样式未生效: %+v", title)
	}
	small := res.Scene.Elements[1].(*scene.Text)
	if !eq(small.FontSize, 9) || !small.Italic || !small.Bold {
		t.Fatalf("内联属性应覆盖样式: %+v", small)
	}
	if rect := res.Scene.Elements[2].(*scene.Rectangle); rect.Fill != brand {
		t.Fatalf("命名颜色未生效: %+v", rect)
	}
}

func TestBuildStyleCycle(t *testing.T) {
	err := buildError(t, `scene 100 100 {
  style a extends b { size: 1 }
  style b extends a { size: 2 }
}`)
	if !strings.Contains(err.Error(), "循环") {
		t.Fatalf("期望循环继承错误，实际: %v", err)
	}
}

func TestBuildReportsBadAttributes(t *testing.T) {
	cases := []string{
		`scene 100 100 { rect x ten y 0 width 1 height 1 }`,
		`scene 100 100 { rect x 0 y 0 width 1 height 1 color notacolor }`,
		`scene 100 100 { rect x 0 y 0 width -1 height 1 }`,
		`scene 100 100 { text x 0 y 0 align middle content "a" }`,
		`scene 100 100 { image x 0 y 0 }`,
		`scene 100 100 { polygon x 0 }`,
		`scene 100 100 { rect x }`,
		`scene 100 100 { text missing x 0 y 0 }`,
	}
	for _, src := range cases {
		buildError(t, src)
	}
}

func TestBuildMetaAndFonts(t *testing.T) {
	dir := t.TempDir()
	res := buildScene(t, `scene A4 {
  meta {
    title: "Poster"
    author: "Ada"
    keywords: ["a", "b"]
  }
  font Brand src "fonts/Brand.ttf"
  font Brand src "fonts/Brand-Bold.ttf" style bold
  font Serif { src: "/abs/Serif.ttf"; style: "bold italic" }
}`, nil, BuildOptions{BaseDir: dir})

	if res.Meta.Title != "Poster" || res.Meta.Author != "Ada" || res.Meta.Creator != "Easel" {
		t.Fatalf("meta 错误: %+v", res.Meta)
	}
	if diff := cmp.Diff([]string{"a", "b"}, res.Meta.Keywords); diff != "" {
		t.Fatalf("keywords 错误 (-want +got):\n%s", diff)
	}
	want := map[string]string{
		"Brand":            filepath.Join(dir, "fonts/Brand.ttf"),
		"Brand-Bold":       filepath.Join(dir, "fonts/Brand-Bold.ttf"),
		"Serif-BoldItalic": "/abs/Serif.ttf",
	}
	if diff := cmp.Diff(want, res.FontPaths()); diff != "" {
		t.Fatalf("字体资源错误 (-want +got):\n%s", diff)
	}
}

func TestBuildLocalImageIsInline(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("\x89PNG\r\n\x1a\nfake")
	if err := os.WriteFile(filepath.Join(dir, "logo.png"), payload, 0o644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}
	res := buildScene(t, `scene 100 100 {
  image x 0 y 0 src "logo.png"
}`, nil, BuildOptions{BaseDir: dir})

	img := res.Scene.Elements[0].(*scene.Image)
	want := &scene.InlineSource{Data: payload, MediaType: "image/png"}
	if diff := cmp.Diff(want, img.Source); diff != "" {
		t.Fatalf("内联图片错误 (-want +got):\n%s", diff)
	}
}

func TestBuildRelativePathNeedsBaseDir(t *testing.T) {
	err := buildError(t, `scene 100 100 {
  image x 0 y 0 src "logo.png"
}`)
	if !strings.Contains(err.Error(), "资源目录") {
		t.Fatalf("期望资源目录错误，实际: %v", err)
	}
}

func TestBuildDataURIImage(t *testing.T) {
	res := buildScene(t, `scene 100 100 {
  image x 0 y 0 src "data:image/png;base64,aGVsbG8="
}`, nil, BuildOptions{})
	img := res.Scene.Elements[0].(*scene.Image)
	want := &scene.InlineSource{Data: []byte("hello"), MediaType: "image/png"}
	if diff := cmp.Diff(want, img.Source); diff != "" {
		t.Fatalf("data URI 图片错误 (-want +got):\n%s", diff)
	}
}

func TestParseArgsFlags(t *testing.T) {
	doc, err := dsl.ParseString("scene 1 1 {\n text emphasis bold x 1 italic false underline\n}")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	style, attrs, err := parseArgs(doc.Block.Statements[0].Command.Args, true)
	if err != nil {
		t.Fatalf("parseArgs 失败: %v", err)
	}
	if style != "emphasis" {
		t.Fatalf("style = %q", style)
	}
	want := map[string]string{"bold": "true", "x": "1", "italic": "false", "underline": "true"}
	if diff := cmp.Diff(want, attrs); diff != "" {
		t.Fatalf("属性错误 (-want +got):\n%s", diff)
	}
}
