package extract

import (
	"regexp"
	"strings"
)

// headerLineCount 为可能承载商户抬头的前几行数。
const headerLineCount = 6

// Kind 表示一行文本在 boleta 版面中的角色。
type Kind int

const (
	KindOther Kind = iota
	KindHeaderLine
	KindLabeledField
	KindTableHeader
	KindItemStart
	KindItemContinuation
	KindTotalsMarker
)

func (k Kind) String() string {
	switch k {
	case KindHeaderLine:
		return "HeaderLine"
	case KindLabeledField:
		return "LabeledField"
	case KindTableHeader:
		return "TableHeader"
	case KindItemStart:
		return "ItemStart"
	case KindItemContinuation:
		return "ItemContinuation"
	case KindTotalsMarker:
		return "TotalsMarker"
	default:
		return "Other"
	}
}

// Token 为一行已分类的文本。
type Token struct {
	Kind  Kind
	Line  string
	Index int
}

var (
	tableHeaderKeywords = []string{"Cantidad", "Unidad Medida", "Código", "Valor Unitario", "Descripción"}

	quantityPrefix = regexp.MustCompile(`^\d+\.\d+`)
	totalsMarker   = regexp.MustCompile(`(?i)(Sub\s*Total|Importe Total)`)
	labeledField   = regexp.MustCompile(`(?i)(RUC|Fecha\s*de\s*Emisi[oó]n|Señor\s*\(es\)|DNI|SIN DOCUMENTO|Tipo\s*de\s*Moneda)\s*:`)
)

// SplitLines 返回去除首尾空白后的非空行。
func SplitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func isTableHeader(line string) bool {
	for _, kw := range tableHeaderKeywords {
		if !strings.Contains(line, kw) {
			return false
		}
	}
	return true
}

// Classify 为每一行打标签。只有第一个表头会打开商品表，
// 其后第一条合计行关闭该表。
func Classify(lines []string) []Token {
	tokens := make([]Token, 0, len(lines))
	inTable, seenTable := false, false
	for i, line := range lines {
		tok := Token{Kind: KindOther, Line: line, Index: i}
		switch {
		case !seenTable && isTableHeader(line):
			tok.Kind = KindTableHeader
			inTable, seenTable = true, true
		case inTable && totalsMarker.MatchString(line):
			tok.Kind = KindTotalsMarker
			inTable = false
		case inTable && quantityPrefix.MatchString(line):
			tok.Kind = KindItemStart
		case inTable:
			tok.Kind = KindItemContinuation
		case i < headerLineCount:
			tok.Kind = KindHeaderLine
		case totalsMarker.MatchString(line):
			tok.Kind = KindTotalsMarker
		case labeledField.MatchString(line):
			tok.Kind = KindLabeledField
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// tableTokens 返回商品表内的 token；没有表头时返回 nil。
func tableTokens(tokens []Token) []Token {
	var out []Token
	in := false
	for _, tok := range tokens {
		switch tok.Kind {
		case KindTableHeader:
			in = true
		case KindItemStart, KindItemContinuation:
			if in {
				out = append(out, tok)
			}
		case KindTotalsMarker:
			if in {
				return out
			}
		}
	}
	return out
}
