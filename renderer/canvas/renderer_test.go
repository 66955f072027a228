package canvasrenderer

import (
	"bytes"
	"testing"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/boleta58/layout"
	"github.com/ByLCY/boleta58/receipt"
)

func TestTextWidthGrowsWithTextAndSize(t *testing.T) {
	r := NewRenderer()

	short, err := r.TextWidth("Pan", layout.FontRegular, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	long, err := r.TextWidth("Pan francés con mantequilla", layout.FontRegular, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if short <= 0 || long <= short {
		t.Fatalf("宽度应随文本增长: short=%g long=%g", short, long)
	}
	bigger, err := r.TextWidth("Pan", layout.FontRegular, 14)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bigger <= short {
		t.Fatalf("宽度应随字号增长: 7pt=%g 14pt=%g", short, bigger)
	}
	bold, err := r.TextWidth("Pan", layout.FontBold, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bold <= 0 {
		t.Fatalf("粗体宽度无效: %g", bold)
	}
	// 返回值为 mm：7pt 下三个字符远小于一张 58mm 小票的宽度
	if short > 10 {
		t.Fatalf("宽度单位疑似不是 mm: %g", short)
	}
}

func TestTextWidthRejectsInvalidSize(t *testing.T) {
	if _, err := NewRenderer().TextWidth("x", layout.FontRegular, 0); err == nil {
		t.Fatalf("字号为 0 时应报错")
	}
}

func TestUnknownFontFallsBackToBody(t *testing.T) {
	r := NewRenderer()
	body, _ := r.TextWidth("Gracias", layout.FontRegular, 8)
	other, err := r.TextWidth("Gracias", "Mono", 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != other {
		t.Fatalf("未知字体应回退到正文字体: %g vs %g", body, other)
	}
}

func TestInvalidInjectedFontFails(t *testing.T) {
	r := NewRendererWithOptions(Options{Fonts: map[string]Resource{
		layout.FontBold: {Bytes: []byte("not a font")},
	}})
	if _, err := r.TextWidth("Total", layout.FontBold, 8); err == nil {
		t.Fatalf("损坏的字体应返回错误")
	}
	if _, err := r.TextWidth("Total", layout.FontRegular, 8); err != nil {
		t.Fatalf("未覆盖的字体应继续可用: %v", err)
	}

	missing := NewRendererWithOptions(Options{Fonts: map[string]Resource{
		layout.FontRegular: {Path: "/nonexistent/font.ttf"},
	}})
	if _, err := missing.TextWidth("Total", layout.FontRegular, 8); err == nil {
		t.Fatalf("不存在的字体路径应返回错误")
	}
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer()
	rec := receipt.New()
	rec.BusinessName = "Panadería El Trigo"
	rec.TaxID = "20123456789"
	rec.Items = []receipt.Item{{Quantity: "2.00", UnitPrice: "0.50", Description: "E001 Pan francés"}}
	rec.Subtotal, rec.Total = "1.00", "1.00"

	res, err := layout.Build(rec, layout.BuildOptions{Measurer: r})
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	out, err := r.Render(res)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("输出不是 PDF")
	}
}

func TestRenderRejectsEmptyResult(t *testing.T) {
	r := NewRenderer()
	if _, err := r.Render(nil); err == nil {
		t.Fatalf("nil 结果应报错")
	}
	if _, err := r.Render(&layout.Result{}); err == nil {
		t.Fatalf("无页面时应报错")
	}
}

func TestParseFontStyle(t *testing.T) {
	cases := map[string]canvas.FontStyle{
		"bold":        canvas.FontBold,
		"Bold Italic": canvas.FontBold | canvas.FontItalic,
		"semibold":    canvas.FontSemiBold,
		"regular":     canvas.FontRegular,
		"":            canvas.FontRegular,
	}
	for in, want := range cases {
		if got := parseFontStyle(in); got != want {
			t.Fatalf("parseFontStyle(%q) = %v，期望 %v", in, got, want)
		}
	}
}
