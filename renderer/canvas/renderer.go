package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/boleta58/fonts"
	"github.com/ByLCY/boleta58/layout"
	"github.com/ByLCY/boleta58/renderer"
)

const defaultStrokeWidth = 0.2

// Renderer 通过 github.com/tdewolff/canvas 绘制布局结果，并为布局测量文本宽度。
// Renderer 会缓存字体，每次转换使用一个实例。
type Renderer struct {
	resources layout.ResourceSet

	// 注入的字体，按布局字体名（layout.FontRegular / layout.FontBold）索引
	fontBlobs map[string][]byte
	overrides map[string]bool

	fontMu       sync.Mutex
	fontFamilies map[string]*fontFamilyEntry
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ renderer.Surface  = (*Renderer)(nil)
	_ layout.Measurer   = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options 配置 canvas 渲染器。
type Options struct {
	// Fonts 按布局字体名覆盖内置字体。
	Fonts map[string]Resource
}

// Resource 可以通过 Bytes 或 Path 提供。
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer 创建使用内置 Go 字体的渲染器。
func NewRenderer() *Renderer { return NewRendererWithOptions(Options{}) }

// NewRendererWithOptions 创建带注入字体的渲染器。
// 以路径给出的字体在首次使用时读取，路径错误表现为渲染错误。
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		resources:    layout.DefaultResources(),
		fontBlobs:    map[string][]byte{},
		overrides:    map[string]bool{},
		fontFamilies: map[string]*fontFamilyEntry{},
	}
	for name, res := range opts.Fonts {
		if name == "" {
			continue
		}
		font := r.resources.Fonts[name]
		font.Name = name
		if font.Style == "" {
			font.Style = "regular"
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[name] = res.Bytes
			font.Src = "built-in:" + name
		} else if res.Path != "" {
			font.Src = res.Path
		} else {
			continue
		}
		r.overrides[name] = true
		r.resources.Fonts[name] = font
	}
	return r
}

// TextWidth 实现 layout.Measurer：返回文本在给定字号（pt）下的宽度（mm）。
func (r *Renderer) TextWidth(text, font string, sizePt float64) (float64, error) {
	face, err := r.fontFace(r.resolveFontResource(font, r.resources.Fonts), sizePt, layout.Color{})
	if err != nil {
		return 0, err
	}
	return face.TextWidth(text), nil
}

// Render 将布局结果渲染为 PDF 字节。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	fontsByName := r.resources.Fonts
	if len(result.Resources.Fonts) > 0 {
		fontsByName = r.mergeFonts(result.Resources.Fonts)
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, result.Pages[0].Width, result.Pages[0].Height, nil)
	applyMeta(writer, result.Meta)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c := canvas.New(page.Width, page.Height)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		if err := r.drawPage(ctx, page, fontsByName); err != nil {
			return nil, err
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// mergeFonts 以布局给出的字体为准，注入的字体覆盖同名项。
func (r *Renderer) mergeFonts(fromLayout map[string]layout.FontResource) map[string]layout.FontResource {
	out := make(map[string]layout.FontResource, len(fromLayout))
	for name, f := range fromLayout {
		out[name] = f
	}
	for name := range r.overrides {
		out[name] = r.resources.Fonts[name]
	}
	return out
}

func applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page, fontsByName map[string]layout.FontResource) error {
	// 分隔线先于文本绘制
	drawLines(ctx, page.Lines)
	for _, tb := range page.Texts {
		if err := r.drawTextBox(ctx, tb, r.resolveFontResource(tb.Font, fontsByName)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox, fontRes layout.FontResource) error {
	face, err := r.fontFace(fontRes, tb.FontSize, tb.Color)
	if err != nil {
		return err
	}

	// 处理水平对齐：left（默认）/center/right。
	var textAlign canvas.TextAlign
	var anchorX float64
	switch strings.ToLower(tb.Align) {
	case "center":
		textAlign = canvas.Center
		anchorX = tb.X + tb.Width/2
	case "right", "end":
		textAlign = canvas.Right
		anchorX = tb.X + tb.Width
	default:
		textAlign = canvas.Left
		anchorX = tb.X
	}

	// TextBox.Y 即基线位置
	ctx.DrawText(anchorX, tb.Y, canvas.NewTextLine(face, tb.Content, textAlign))
	return nil
}

// drawLines 绘制直线列表（毫米单位）
func drawLines(ctx *canvas.Context, lines []layout.Line) {
	for _, ln := range lines {
		w := ln.Width
		if w <= 0 {
			w = defaultStrokeWidth
		}
		ctx.SetStrokeColor(colorFromLayout(ln.Color))
		ctx.SetStrokeWidth(w)
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(ln.X2-ln.X1, ln.Y2-ln.Y1)
		ctx.DrawPath(ln.X1, ln.Y1, p)
	}
}

func (r *Renderer) fontFace(font layout.FontResource, sizePt float64, col layout.Color) (*canvas.FontFace, error) {
	if sizePt <= 0 {
		return nil, fmt.Errorf("字体 %s 的字号无效: %g", font.Name, sizePt)
	}
	family, style, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	return family.Face(sizePt, colorFromLayout(col), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(font layout.FontResource) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := fontCacheKey(font)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	style := parseFontStyle(font.Style)
	familyName := font.Name
	if familyName == "" {
		familyName = layout.FontRegular
	}
	family := canvas.NewFontFamily(familyName)

	data, err := r.loadFontBytes(font)
	if err != nil {
		return nil, canvas.FontRegular, err
	}
	if err := family.LoadFont(data, 0, style); err != nil {
		return nil, canvas.FontRegular, fmt.Errorf("加载字体 %s 失败: %w", familyName, err)
	}

	r.fontFamilies[key] = &fontFamilyEntry{family: family, style: style}
	return family, style, nil
}

func (r *Renderer) loadFontBytes(font layout.FontResource) ([]byte, error) {
	if font.Src == "" {
		return nil, fmt.Errorf("字体 %s 缺少 src", font.Name)
	}
	src := font.Src
	if strings.HasPrefix(src, "built-in:") {
		name := strings.TrimPrefix(src, "built-in:")
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("找不到注入的字体资源 built-in:%s", name)
	}
	if strings.HasPrefix(src, "embed:") {
		return fonts.Load(src)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", src, err)
	}
	return data, nil
}

// resolveFontResource 找不到时回退到正文字体。
func (r *Renderer) resolveFontResource(name string, fontsByName map[string]layout.FontResource) layout.FontResource {
	if font, ok := fontsByName[name]; ok {
		return font
	}
	if font, ok := fontsByName[layout.FontRegular]; ok {
		return font
	}
	return r.resources.Fonts[layout.FontRegular]
}

func parseFontStyle(style string) canvas.FontStyle {
	s := strings.ToLower(style)
	result := canvas.FontRegular
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func fontCacheKey(font layout.FontResource) string {
	return fmt.Sprintf("%s|%s|%s", font.Name, font.Src, font.Style)
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}
