package extract

import (
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/boleta58/receipt"
)

var (
	rowLexer = lexer.MustSimple([]lexer.SimpleRule{
		// \s 只匹配 ASCII 空白，PDF 文本层里常见的不换行空格（U+00A0）要靠 \p{Z}
		{Name: "Field", Pattern: `[^\s\p{Z}]+`},
		{Name: "Whitespace", Pattern: `[\s\p{Z}]+`},
	})

	rowParser = participle.MustBuild[itemRow](
		participle.Lexer(rowLexer),
		participle.Elide("Whitespace"),
	)

	leadingDecimal = regexp.MustCompile(`^(\d+\.\d+)`)
	bareDecimal    = regexp.MustCompile(`^\d+\.\d+$`)
)

// itemRow 为数量行：数量、计量单位、编码，之后至少还有一个字段。
type itemRow struct {
	Quantity string   `parser:"@Field"`
	Unit     string   `parser:"@Field"`
	Code     string   `parser:"@Field"`
	Rest     []string `parser:"@Field+"`
}

type itemState int

const (
	noCurrentItem itemState = iota
	accumulatingItem
)

// itemMachine 由数量行及其折行续行重建商品条目。
type itemMachine struct {
	state   itemState
	current receipt.Item
	items   []receipt.Item
}

func (m *itemMachine) flush() {
	if m.state == accumulatingItem && m.current.Description != "" {
		m.items = append(m.items, m.current)
	}
	m.state = noCurrentItem
	m.current = receipt.Item{}
}

func (m *itemMachine) start(line string) {
	m.flush()
	row, err := rowParser.ParseString("", strings.Join(strings.Fields(line), " "))
	if err != nil || !bareDecimal.MatchString(row.Quantity) {
		// 不足四个字段或数量不是小数：格式错误，丢弃
		return
	}
	item := receipt.Item{Quantity: row.Quantity}
	desc := row.Rest
	if match := leadingDecimal.FindStringSubmatch(row.Code); match != nil {
		item.UnitPrice = match[1]
	} else {
		desc = append([]string{row.Code}, row.Rest...)
	}
	if price, rest, ok := popTrailingPrice(desc); ok {
		item.UnitPrice = price
		desc = rest
	}
	item.Description = strings.Join(desc, " ")
	m.current = item
	m.state = accumulatingItem
}

func (m *itemMachine) continueWith(line string) {
	if m.state != accumulatingItem {
		return
	}
	fields := strings.Fields(line)
	if price, rest, ok := popTrailingPrice(fields); ok {
		m.current.UnitPrice = price
		fields = rest
	}
	if len(fields) == 0 {
		return
	}
	if m.current.Description != "" {
		m.current.Description += " "
	}
	m.current.Description += strings.Join(fields, " ")
}

func popTrailingPrice(fields []string) (string, []string, bool) {
	if len(fields) == 0 {
		return "", fields, false
	}
	last := fields[len(fields)-1]
	if !bareDecimal.MatchString(last) {
		return "", fields, false
	}
	return last, fields[:len(fields)-1], true
}

func parseTokens(tokens []Token) []receipt.Item {
	m := &itemMachine{items: []receipt.Item{}}
	for _, tok := range tokens {
		switch tok.Kind {
		case KindItemStart:
			m.start(tok.Line)
		case KindItemContinuation:
			m.continueWith(tok.Line)
		}
	}
	m.flush()
	return m.items
}

// ParseItems 由表头与合计之间的各行重建有序的商品列表。
// 行尾的纯小数是单价；同一条目以最后出现的为准。
func ParseItems(lines []string) []receipt.Item {
	tokens := make([]Token, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kind := KindItemContinuation
		if quantityPrefix.MatchString(line) {
			kind = KindItemStart
		}
		tokens = append(tokens, Token{Kind: kind, Line: line, Index: i})
	}
	return parseTokens(tokens)
}
