package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/boleta58/binding"
	"github.com/ByLCY/boleta58/receipt"
)

// 页面几何（mm）。
const (
	PageWidth         = 58.0
	DefaultPageHeight = 300.0

	sideMargin   = 3.0
	topBaseline  = 5.0
	bottomMargin = 5.0
	dividerWidth = 0.2

	quantityColumn = 8.0
	valueColumn    = 8.0
)

// 字号与行进（pt）。
const (
	merchantBaseSize = 20.0
	merchantMinSize  = 12.0
	merchantLeading  = 2.0

	smallSize   = 7.0
	titleSize   = 10.0
	idSize      = 8.0
	idAdvance   = 9.0
	headerGap   = 4.0
	sectionGap  = 10.0
	tableGap    = 5.0
	columnSize  = 8.0
	columnAdv   = 12.0
	itemSize    = 7.0
	itemLine    = 8.0
	itemRowGap  = 2.0
	totalsSize  = 8.0
	subtotalAdv = 12.0
	totalAdv    = 14.0
	closingAdv  = 10.0
	padQuantity = 1.0
	padDesc     = 2.0
	padValue    = 1.0
)

var ink = Color{R: 0, G: 0, B: 0}

// Build 根据 Receipt 生成单页 58mm 布局：先用 PageHeight 预估页面高度，再正式摆放。
// 任何测量错误都会中止布局，不返回部分页面。
func Build(r receipt.Receipt, opts BuildOptions) (*Result, error) {
	if opts.Measurer == nil {
		return nil, fmt.Errorf("layout: 缺少测量后端 Measurer")
	}
	height, err := PageHeight(r, opts)
	if err != nil {
		return nil, err
	}
	c := newComposer(opts)
	if err := c.compose(r); err != nil {
		return nil, err
	}

	page := Page{
		Width:  PageWidth,
		Height: height,
		Margin: Margin{Top: topBaseline, Right: sideMargin, Bottom: bottomMargin, Left: sideMargin},
		Texts:  c.acc.texts,
		Lines:  c.acc.lines,
	}
	return &Result{
		Pages:     []Page{page},
		Resources: DefaultResources(),
		Meta:      documentMeta(r, opts.Meta),
	}, nil
}

func documentMeta(r receipt.Receipt, meta DocumentMeta) DocumentMeta {
	if meta.Title == "" {
		meta.Title = strings.TrimSpace("Boleta " + r.DocumentNumber)
	}
	if meta.Author == "" {
		meta.Author = r.BusinessName
	}
	if meta.Creator == "" {
		meta.Creator = "boleta58"
	}
	return meta
}

type pageAccumulator struct {
	texts []TextBox
	lines []Line
}

func (p *pageAccumulator) appendText(tb TextBox) {
	p.texts = append(p.texts, tb)
}

func (p *pageAccumulator) appendLine(ln Line) {
	p.lines = append(p.lines, ln)
}

// composer 自上而下排版，y 为当前基线（mm）。
// Estimate 与 Build 共用同一个 compose，两者的行进规则因此始终一致。
type composer struct {
	m      Measurer
	labels Labels
	acc    *pageAccumulator
	y      float64
}

func newComposer(opts BuildOptions) *composer {
	return &composer{
		m:      opts.Measurer,
		labels: opts.Labels.WithDefaults(),
		acc:    &pageAccumulator{},
		y:      topBaseline,
	}
}

func (c *composer) advance(pt float64) { c.y += Pt(pt) }

func (c *composer) compose(r receipt.Receipt) error {
	if err := c.header(r); err != nil {
		return err
	}
	if err := c.identification(r); err != nil {
		return err
	}
	c.advance(sectionGap)
	c.divider()
	c.advance(sectionGap)
	if err := c.items(r.Items); err != nil {
		return err
	}
	c.advance(tableGap)
	c.divider()
	c.advance(sectionGap)
	return c.totals(r)
}

// centered 折行并逐行居中绘制，每行行进 advance（pt）。
func (c *composer) centered(role, text, font string, size, advance float64) error {
	lines, err := Wrap(text, PageWidth-2*sideMargin, font, size, c.m)
	if err != nil {
		return fmt.Errorf("排版 %s 失败: %w", role, err)
	}
	for _, l := range lines {
		c.acc.appendText(TextBox{
			Content:  l,
			Role:     role,
			X:        sideMargin,
			Y:        c.y,
			Width:    PageWidth - 2*sideMargin,
			Font:     font,
			FontSize: size,
			Color:    ink,
			Align:    "center",
		})
		c.advance(advance)
	}
	return nil
}

func (c *composer) header(r receipt.Receipt) error {
	if r.BusinessName != "" {
		size, err := c.merchantSize(r.BusinessName)
		if err != nil {
			return err
		}
		if err := c.centered("merchant", r.BusinessName, FontBold, size, size+merchantLeading); err != nil {
			return err
		}
	}
	if r.LegalName != "" {
		if err := c.centered("legal", r.LegalName, FontRegular, smallSize, smallSize); err != nil {
			return err
		}
	}
	c.advance(headerGap)
	if addr := cleanAddress(r.AddressLines()); addr != "" {
		if err := c.centered("address", addr, FontRegular, smallSize, smallSize); err != nil {
			return err
		}
	}
	c.advance(sectionGap)
	return nil
}

// merchantSize 从基准字号开始逐点缩小，直到整串不折行也放得下或到达下限。
func (c *composer) merchantSize(name string) (float64, error) {
	size := merchantBaseSize
	for size > merchantMinSize {
		w, err := c.m.TextWidth(name, FontBold, size)
		if err != nil {
			return 0, fmt.Errorf("测量商户名称失败: %w", err)
		}
		if w <= PageWidth-2*sideMargin {
			break
		}
		size--
	}
	return size, nil
}

// cleanAddress 去掉重复的地址行，并合并行内连续重复的 " - " 片段。
func cleanAddress(lines []string) string {
	seen := map[string]bool{}
	var out []string
	for _, l := range lines {
		if seen[l] {
			continue
		}
		seen[l] = true
		parts := strings.Split(l, " - ")
		kept := parts[:0]
		for _, p := range parts {
			if len(kept) == 0 || kept[len(kept)-1] != p {
				kept = append(kept, p)
			}
		}
		out = append(out, strings.Join(kept, " - "))
	}
	return strings.Join(out, " ")
}

func (c *composer) identification(r receipt.Receipt) error {
	if err := c.centered("title", c.labels.Title, FontBold, titleSize, titleSize); err != nil {
		return err
	}
	fields := []struct {
		role     string
		template string
		present  bool
	}{
		{"id.tax_id", c.labels.TaxID, r.TaxID != ""},
		{"id.document_number", c.labels.DocumentNumber, r.DocumentNumber != ""},
		{"id.issue_date", c.labels.IssueDate, r.IssueDate != ""},
		{"id.customer_name", c.labels.Customer, true},
		{"id.customer_id", c.labels.CustomerID, r.CustomerID != ""},
		{"id.currency", c.labels.Currency, r.CurrencyCode != ""},
	}
	for _, f := range fields {
		if !f.present {
			continue
		}
		if err := c.centered(f.role, binding.Interpolate(f.template, r), FontRegular, idSize, idAdvance); err != nil {
			return err
		}
	}
	return nil
}

func (c *composer) divider() {
	c.acc.appendLine(Line{
		X1:    sideMargin,
		Y1:    c.y,
		X2:    PageWidth - sideMargin,
		Y2:    c.y,
		Color: ink,
		Width: dividerWidth,
	})
}

// columns 返回三列的左边界与宽度：数量 | 描述 | 单价。
func columns() (qtyX, descX, valX, descW float64) {
	qtyX = sideMargin
	descX = qtyX + quantityColumn
	descW = PageWidth - 2*sideMargin - quantityColumn - valueColumn
	valX = descX + descW
	return qtyX, descX, valX, descW
}

func (c *composer) items(items []receipt.Item) error {
	qtyX, descX, valX, descW := columns()

	cell := func(role, text, font string, size, x, width float64, align string, y float64) {
		c.acc.appendText(TextBox{
			Content:  text,
			Role:     role,
			X:        x,
			Y:        y,
			Width:    width,
			Font:     font,
			FontSize: size,
			Color:    ink,
			Align:    align,
		})
	}

	cell("table.header", c.labels.QuantityHeader, FontBold, columnSize, qtyX+Pt(padQuantity), quantityColumn-Pt(padQuantity), "left", c.y)
	cell("table.header", c.labels.DescriptionHeader, FontBold, columnSize, descX+Pt(padDesc), descW-Pt(padDesc), "left", c.y)
	cell("table.header", c.labels.ValueHeader, FontBold, columnSize, valX, valueColumn-Pt(padValue), "right", c.y)
	c.advance(columnAdv)

	descInner := descW - 2*Pt(padDesc)
	for i, it := range items {
		lines, err := Wrap(it.Description, descInner, FontRegular, itemSize, c.m)
		if err != nil {
			return fmt.Errorf("排版第 %d 项描述失败: %w", i+1, err)
		}
		top := c.y
		cell("item.quantity", it.Quantity, FontRegular, itemSize, qtyX+Pt(padQuantity), quantityColumn-Pt(padQuantity), "left", top)
		for j, l := range lines {
			cell("item.description", l, FontRegular, itemSize, descX+Pt(padDesc), descInner, "left", top+Pt(float64(j)*itemLine))
		}
		cell("item.price", binding.Interpolate(c.labels.UnitPrice, it), FontRegular, itemSize, valX, valueColumn-Pt(padValue), "right", top)
		c.advance(float64(len(lines))*itemLine + itemRowGap)
	}
	return nil
}

func (c *composer) totals(r receipt.Receipt) error {
	for _, t := range []struct {
		role     string
		template string
		advance  float64
	}{
		{"subtotal", c.labels.Subtotal, subtotalAdv},
		{"total", c.labels.Total, totalAdv},
	} {
		c.acc.appendText(TextBox{
			Content:  binding.Interpolate(t.template, r),
			Role:     t.role,
			X:        sideMargin,
			Y:        c.y,
			Width:    PageWidth - 2*sideMargin,
			Font:     FontBold,
			FontSize: totalsSize,
			Color:    ink,
			Align:    "left",
		})
		c.advance(t.advance)
	}
	return c.centered("closing", c.labels.Closing, FontRegular, smallSize, closingAdv)
}
