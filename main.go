package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/ByLCY/boleta58/config"
	"github.com/ByLCY/boleta58/convert"
	"github.com/ByLCY/boleta58/layout"
	"github.com/ByLCY/boleta58/metrics"
	"github.com/ByLCY/boleta58/pdftext"
	"github.com/ByLCY/boleta58/server"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		if err := serve(os.Args[2:]); err != nil {
			log.Fatalf("服务启动失败: %v", err)
		}
		return
	}

	fs := flag.NewFlagSet("boleta58", flag.ExitOnError)
	input := fs.String("in", "", "输入 PDF 路径（-text 时为提取好的文本）")
	output := fs.String("out", "output/boleta_58mm.pdf", "58mm PDF 输出路径")
	debug := fs.String("debug", "", "布局调试 JSON 输出路径")
	receiptOut := fs.String("receipt", "", "解析出的 Receipt JSON 输出路径")
	textMode := fs.Bool("text", false, "输入为已提取的文本而非 PDF")
	configPath := fs.String("config", "", "配置文件路径")
	_ = fs.Parse(os.Args[1:])

	if *input == "" {
		fs.Usage()
		os.Exit(2)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	conv, err := newConverter(cfg, logger, nil)
	if err != nil {
		log.Fatalf("初始化转换器失败: %v", err)
	}
	opts := runOptions{
		input:       *input,
		output:      *output,
		debugPath:   *debug,
		receiptPath: *receiptOut,
		textMode:    *textMode,
	}
	if err := run(context.Background(), conv, opts); err != nil {
		log.Fatalf("转换失败: %v", err)
	}
	fmt.Printf("已生成 PDF：%s\n", *output)
}

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "配置文件路径")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	m := metrics.New()
	conv, err := newConverter(cfg, logger, m)
	if err != nil {
		return err
	}
	srv := server.New(conv, server.Options{
		Logger:         logger,
		Metrics:        m,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, cfg.Addr())
}

func newConverter(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*convert.Converter, error) {
	buildOpts, err := cfg.BuildOptions()
	if err != nil {
		return nil, err
	}
	return convert.New(pdftext.New(logger),
		convert.WithLogger(logger),
		convert.WithMetrics(m),
		convert.WithTimeout(cfg.Conversion.Timeout),
		convert.WithLayout(buildOpts),
	), nil
}

type runOptions struct {
	input       string
	output      string
	debugPath   string
	receiptPath string
	textMode    bool
}

// run 串联提取、解析、布局与渲染，并按需写出调试文件。
func run(ctx context.Context, conv *convert.Converter, opts runOptions) error {
	data, err := os.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("无法读取输入文件 %s: %w", opts.input, err)
	}

	var res convert.Result
	if opts.textMode {
		res = conv.ConvertText(ctx, string(data))
	} else {
		res = conv.Convert(ctx, bytes.NewReader(data), int64(len(data)))
	}

	// 即使渲染失败，也尽量写出已得到的中间结果
	if opts.receiptPath != "" && res.Receipt != nil {
		if err := writeJSON(opts.receiptPath, res.Receipt); err != nil {
			return err
		}
	}
	if opts.debugPath != "" && res.Layout != nil {
		if err := layout.WriteDebugJSON(res.Layout, opts.debugPath); err != nil {
			return fmt.Errorf("输出调试 JSON 失败: %w", err)
		}
	}
	if !res.Success() {
		return res.Err
	}

	if err := os.MkdirAll(filepath.Dir(opts.output), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(opts.output, res.Document, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建 %s 失败: %w", path, err)
	}
	defer f.Close()
	return encodeJSON(f, v)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
