package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/ByLCY/easel/document"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入 %s 失败: %v", name, err)
	}
	return path
}

func TestRunSceneDSL(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "poster.scene", `scene 200 100 {
  meta { title: "Poster" }
  rect x 0 y 0 width 50 height 50 color red
  text x 10 y 60 { "Hi ${name}" }
}`)
	cfg := config{
		input:   in,
		output:  filepath.Join(dir, "out", "poster.pdf"),
		debug:   filepath.Join(dir, "debug", "poster.json"),
		data:    map[string]any{"name": "Ada"},
		encoder: document.FPDF{},
	}
	if err := run(context.Background(), cfg, hclog.NewNullLogger()); err != nil {
		t.Fatalf("run 失败: %v", err)
	}

	pdf, err := os.ReadFile(cfg.output)
	if err != nil {
		t.Fatalf("读取输出失败: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) || !bytes.Contains(pdf, []byte("/MediaBox [0 0 200.00 100.00]")) {
		t.Fatalf("输出不是预期尺寸的 PDF")
	}
	debug, err := os.ReadFile(cfg.debug)
	if err != nil {
		t.Fatalf("读取调试 JSON 失败: %v", err)
	}
	if !strings.Contains(string(debug), `"Hi Ada"`) || !strings.Contains(string(debug), `"Poster"`) {
		t.Fatalf("调试 JSON 内容错误: %s", debug)
	}
}

func TestRunSceneJSON(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "scene.json", `{"width":300,"height":150,"elements":[
  {"type":"rectangle","x":0,"y":0,"width":10,"height":10,"color":"#00ff00"},
  {"type":"circle","x":50,"y":50,"radius":20,"color":"blue"}
]}`)
	cfg := config{input: in, output: filepath.Join(dir, "scene.pdf"), encoder: document.FPDF{}}
	if err := run(context.Background(), cfg, hclog.NewNullLogger()); err != nil {
		t.Fatalf("run 失败: %v", err)
	}
	pdf, err := os.ReadFile(cfg.output)
	if err != nil {
		t.Fatalf("读取输出失败: %v", err)
	}
	if !bytes.Contains(pdf, []byte("/MediaBox [0 0 300.00 150.00]")) {
		t.Fatalf("页面尺寸错误")
	}
}

func TestRunRejectsInvalidInput(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad.json":  `{"width":0,"height":10,"elements":[]}`,
		"bad.scene": `scene 100 100 { polygon x 0 }`,
	}
	for name, content := range cases {
		in := writeFile(t, dir, name, content)
		cfg := config{input: in, output: filepath.Join(dir, name+".pdf"), encoder: document.Default()}
		if err := run(context.Background(), cfg, hclog.NewNullLogger()); err == nil {
			t.Fatalf("%s: 期望失败", name)
		}
		if _, err := os.Stat(cfg.output); !os.IsNotExist(err) {
			t.Fatalf("%s: 失败时不应写出 PDF", name)
		}
	}
	if err := run(context.Background(), config{input: filepath.Join(dir, "missing.scene")}, hclog.NewNullLogger()); err == nil {
		t.Fatalf("缺失的输入文件应返回错误")
	}
}
