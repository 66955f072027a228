// Package pdftext 使用 github.com/ledongthuc/pdf 读取 PDF 的文本层。
package pdftext

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

var spaces = regexp.MustCompile(`[\s\p{Z}]+`)

// Extractor 将每页的文本行转为字符串行；各页以 "\n" 拼接。
type Extractor struct {
	logger *zap.Logger
}

// New 返回 Extractor；logger 为 nil 时不输出日志。
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// ExtractText 读取 src 中文档的所有页。解析在独立的 goroutine 中进行，
// 即使输入异常，调用时长也受 ctx 的截止时间约束。
func (e *Extractor) ExtractText(ctx context.Context, src io.ReaderAt, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("pdftext: %w", err)
	}
	type result struct {
		text string
		err  error
	}
	// ledongthuc/pdf 不接受 context：取消后本函数立即返回，后台 goroutine 仍会做完手头的
	// 打开或单页解析，然后在 extract 的逐页检查处退出。done 带缓冲，发送不会阻塞。
	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("pdftext: reader panic: %v", p)}
			}
		}()
		text, err := e.extract(ctx, src, size)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("pdftext: %w", ctx.Err())
	case res := <-done:
		return res.text, res.err
	}
}

func (e *Extractor) extract(ctx context.Context, src io.ReaderAt, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("pdftext: %w", err)
	}
	r, err := pdf.NewReader(src, size)
	if err != nil {
		return "", fmt.Errorf("pdftext: open document: %w", err)
	}
	total := r.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("pdftext: %w", err)
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("pdftext: page %d: %w", i, err)
		}
		pages = append(pages, strings.Join(RowLines(rows), "\n"))
	}
	e.logger.Debug("pdf text extracted", zap.Int("pages", total), zap.Int("non_empty_pages", len(pages)))
	return strings.Join(pages, "\n"), nil
}

// RowLines 自上而下输出各行：有明显间隔的片段之间补一个空格，
// 连续空白（含不换行空格）合并为一个空格，空行丢弃。
func RowLines(rows pdf.Rows) []string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		var b strings.Builder
		var prev *pdf.Text
		for i := range row.Content {
			t := row.Content[i]
			if prev != nil && separated(*prev, t) {
				b.WriteByte(' ')
			}
			b.WriteString(t.S)
			prev = &row.Content[i]
		}
		if line := strings.TrimSpace(spaces.ReplaceAllString(b.String(), " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// separated 判断两个片段之间的水平间隔是否构成词间断开。
func separated(prev, next pdf.Text) bool {
	if prev.W <= 0 {
		return true
	}
	gap := next.X - (prev.X + prev.W)
	threshold := 0.15 * next.FontSize
	if threshold <= 0 {
		threshold = 1
	}
	return gap > threshold
}
