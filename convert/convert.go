// Package convert 串联整条流水线：PDF 文本、Receipt、58mm 布局、PDF 字节。
package convert

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ByLCY/boleta58/extract"
	"github.com/ByLCY/boleta58/layout"
	"github.com/ByLCY/boleta58/metrics"
	"github.com/ByLCY/boleta58/receipt"
	"github.com/ByLCY/boleta58/renderer"
	canvasrenderer "github.com/ByLCY/boleta58/renderer/canvas"
)

// TextExtractor 读取文档的文本层。
type TextExtractor interface {
	ExtractText(ctx context.Context, src io.ReaderAt, size int64) (string, error)
}

// Result 为一次转换的结果。只要提取成功就会带上 Receipt，
// 即使之后渲染失败。
type Result struct {
	Document []byte
	Receipt  *receipt.Receipt
	Layout   *layout.Result
	Err      error
}

// Success 表示是否生成了文档。
func (r Result) Success() bool { return r.Err == nil && len(r.Document) > 0 }

// Converter 可并发使用；每次转换使用独立的渲染面。
type Converter struct {
	extractor  TextExtractor
	newSurface func() renderer.Surface
	opts       layout.BuildOptions
	timeout    time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

type Option func(*Converter)

func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Converter) { c.metrics = m }
}

// WithTimeout 限制单次转换的时长；0 表示只受调用方 context 约束。
func WithTimeout(d time.Duration) Option {
	return func(c *Converter) { c.timeout = d }
}

// WithLayout 设置最小页高、文案与元信息。
func WithLayout(opts layout.BuildOptions) Option {
	return func(c *Converter) { c.opts = opts }
}

// WithSurface 替换 canvas 渲染器的构造函数。
func WithSurface(f func() renderer.Surface) Option {
	return func(c *Converter) {
		if f != nil {
			c.newSurface = f
		}
	}
}

func New(extractor TextExtractor, opts ...Option) *Converter {
	c := &Converter{
		extractor:  extractor,
		newSurface: func() renderer.Surface { return canvasrenderer.NewRenderer() },
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert 提取 src 中 PDF 的文本，并渲染为 58mm 小票。
func (c *Converter) Convert(ctx context.Context, src io.ReaderAt, size int64) Result {
	start := time.Now()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if src == nil || size <= 0 {
		return c.finish(start, Result{Err: NewError(PhaseInput, CodeUnreadable, "documento vacío")})
	}
	if c.extractor == nil {
		return c.finish(start, Result{Err: NewError(PhaseExtraction, CodeExtract, "no text extractor configured")})
	}

	text, err := c.extractor.ExtractText(ctx, src, size)
	if err != nil {
		return c.finish(start, Result{Err: NewError(PhaseExtraction, CodeExtract, "text extraction failed", err)})
	}
	return c.finish(start, c.fromText(ctx, text))
}

// ConvertText 对已提取的文本执行后续流程。
func (c *Converter) ConvertText(ctx context.Context, text string) Result {
	return c.finish(time.Now(), c.fromText(ctx, text))
}

func (c *Converter) fromText(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Err: NewError(PhaseExtraction, CodeNoText, "el documento no contiene texto extraíble")}
	}
	rec := extract.Extract(text)
	res := Result{Receipt: &rec}
	c.logger.Debug("receipt extracted",
		zap.String("document_number", rec.DocumentNumber),
		zap.Int("items", len(rec.Items)),
	)
	if err := checkReceipt(rec); err != nil {
		res.Err = err
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Err = NewError(PhaseExtraction, CodeExtract, "conversion cancelled", err)
		return res
	}
	res.Layout, res.Document, res.Err = c.render(rec)
	return res
}

// checkReceipt 把条目约束的违反转换为提取阶段错误。
func checkReceipt(rec receipt.Receipt) error {
	if err := rec.Validate(); err != nil {
		return NewError(PhaseExtraction, CodeInvalid, "receipt inválido", err)
	}
	return nil
}

// render 在新的渲染面上排版并绘制；任一步骤的 panic 都转为渲染阶段错误。
func (c *Converter) render(rec receipt.Receipt) (lay *layout.Result, doc []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			lay, doc = nil, nil
			err = NewError(PhaseRender, CodePanic, "render panicked", fmt.Errorf("%v", p))
		}
	}()
	surface := c.newSurface()
	opts := c.opts
	opts.Measurer = surface
	lay, err = layout.Build(rec, opts)
	if err != nil {
		return nil, nil, NewError(PhaseRender, CodeLayout, "layout failed", err)
	}
	doc, err = surface.Render(lay)
	if err != nil {
		return lay, nil, NewError(PhaseRender, CodeRender, "rendering failed", err)
	}
	return lay, doc, nil
}

func (c *Converter) finish(start time.Time, res Result) Result {
	elapsed := time.Since(start)
	items := 0
	if res.Receipt != nil {
		items = len(res.Receipt.Items)
	}
	if res.Err != nil {
		phase := PhaseOf(res.Err)
		c.metrics.RecordConversion(string(phase), elapsed, items)
		c.logger.Warn("conversion failed",
			zap.String("phase", string(phase)),
			zap.Duration("duration", elapsed),
			zap.Error(res.Err),
		)
		return res
	}
	c.metrics.RecordConversion(metrics.OutcomeSuccess, elapsed, items)
	c.logger.Info("conversion finished",
		zap.Int("items", items),
		zap.Int("bytes", len(res.Document)),
		zap.Duration("duration", elapsed),
	)
	return res
}
