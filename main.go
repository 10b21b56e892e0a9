package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ByLCY/easel/document"
	"github.com/ByLCY/easel/dsl"
	"github.com/ByLCY/easel/layout"
	canvasrenderer "github.com/ByLCY/easel/renderer/canvas"
	"github.com/ByLCY/easel/scene"
	"github.com/ByLCY/easel/server"
)

// config 汇总命令行参数。
type config struct {
	input       string
	output      string
	debug       string
	data        any
	encoder     document.Encoder
	scale       float64
	timeout     time.Duration
	systemFonts bool
}

func main() {
	input := flag.String("in", "examples/demo.scene", "场景文件路径（.scene DSL 或 .json）")
	output := flag.String("out", "output/demo.pdf", "PDF 输出路径")
	debug := flag.String("debug", "", "编译结果调试 JSON 输出路径")
	dataJSON := flag.String("data", "", "绑定到 DSL 的 JSON 数据")
	encoderName := flag.String("encoder", "", "PDF 编码器: "+strings.Join(document.Names(), ", "))
	scale := flag.Float64("scale", canvasrenderer.DefaultScale, "栅格分辨率（像素/pt）")
	timeout := flag.Duration("timeout", 10*time.Second, "远程图片获取超时")
	systemFonts := flag.Bool("system-fonts", false, "在系统已安装字体中查找未注册的字体族")
	serve := flag.String("serve", "", "以 HTTP 服务方式运行并监听该地址，例如 :5000")
	logLevel := flag.String("log-level", "info", "日志级别: trace, debug, info, warn, error")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "easel",
		Level:  hclog.LevelFromString(*logLevel),
		Output: os.Stderr,
	})

	enc, err := document.ByName(*encoderName)
	if err != nil {
		log.Fatalf("选择编码器失败: %v", err)
	}

	if *serve != "" {
		r := canvasrenderer.NewRenderer(canvasrenderer.Options{
			Scale:        *scale,
			FetchTimeout: *timeout,
			SystemFonts:  *systemFonts,
			Encoder:      enc,
			Logger:       logger,
		})
		srv, err := server.New(server.Options{Renderer: r, Logger: logger})
		if err != nil {
			log.Fatalf("创建服务失败: %v", err)
		}
		log.Fatal(srv.ListenAndServe(*serve))
	}

	var inputData any
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &inputData); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	cfg := config{
		input:       *input,
		output:      *output,
		debug:       *debug,
		data:        inputData,
		encoder:     enc,
		scale:       *scale,
		timeout:     *timeout,
		systemFonts: *systemFonts,
	}
	if err := run(context.Background(), cfg, logger); err != nil {
		log.Fatalf("生成 PDF 失败: %v", err)
	}
	fmt.Printf("已生成 PDF：%s\n", *output)
}

// run 串联加载、渲染与写出。
func run(ctx context.Context, cfg config, logger hclog.Logger) error {
	res, err := load(cfg.input, cfg.data)
	if err != nil {
		return err
	}

	if cfg.debug != "" {
		if err := writeDebug(res, cfg.debug); err != nil {
			return err
		}
	}

	fonts := make(map[string]canvasrenderer.Resource, len(res.Fonts))
	for key, path := range res.FontPaths() {
		fonts[key] = canvasrenderer.Resource{Path: path}
	}
	r := canvasrenderer.NewRenderer(canvasrenderer.Options{
		Scale:        cfg.scale,
		FetchTimeout: cfg.timeout,
		Fonts:        fonts,
		SystemFonts:  cfg.systemFonts,
		Encoder:      cfg.encoder,
		Meta:         res.Meta,
		Logger:       logger,
	})

	doc, err := r.Render(ctx, res.Scene)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	for _, skipped := range doc.Report.Skipped {
		logger.Warn("元素已跳过", "index", skipped.Index, "source", skipped.Source, "error", skipped.Err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.output), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(cfg.output, doc.Bytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}

// load 读取场景文件。.json 为场景 JSON，其余按 DSL 编译。
func load(inputPath string, data any) (*layout.Result, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("无法打开场景文件 %s: %w", inputPath, err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(inputPath), ".json") {
		s, err := scene.Decode(file)
		if err != nil {
			return nil, err
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("场景无效: %w", err)
		}
		return &layout.Result{Scene: s}, nil
	}

	doc, err := dsl.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("解析 DSL 失败: %w", err)
	}
	res, err := layout.Build(doc, data, layout.BuildOptions{BaseDir: filepath.Dir(inputPath)})
	if err != nil {
		return nil, fmt.Errorf("编译场景失败: %w", err)
	}
	return res, nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
