// Package extract 从 boleta electrónica 的纯文本中还原 Receipt。
//
// 所有字段都是可选的：模式匹配不到时字段保持默认值，不会让转换失败。
package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/boleta58/receipt"
)

var (
	taxIDPattern      = regexp.MustCompile(`(?i)RUC\s*:\s*(\d+)`)
	issueDatePattern  = regexp.MustCompile(`(?i)Fecha\s*de\s*Emisi[oó]n\s*:\s*([\d/]+)`)
	documentPattern   = regexp.MustCompile(`(?i)([A-Z]+\d+\s*[-–]\s*\d+)`)
	customerPattern   = regexp.MustCompile(`(?i)Señor\s*\(es\)\s*:\s*(.+)`)
	customerIDPattern = regexp.MustCompile(`(?i)(DNI|SIN DOCUMENTO)\s*:\s*([\w-]+)`)
	currencyPattern   = regexp.MustCompile(`(?i)Tipo\s*de\s*Moneda\s*:\s*(\S+)`)
	subtotalPattern   = regexp.MustCompile(`(?i)Sub\s*Total\s*Ventas?\s*:\s*([\d.]+)`)
	totalPattern      = regexp.MustCompile(`(?i)Importe\s*Total\s*:\s*([\d.]+)`)
)

func group(re *regexp.Regexp, text string, n int) string {
	m := re.FindStringSubmatch(text)
	if len(m) <= n {
		return ""
	}
	return strings.TrimSpace(m[n])
}

// Extract 由整份文档文本（各页已用 "\n" 拼接）构建 Receipt。
func Extract(text string) receipt.Receipt {
	text = norm.NFC.String(text)
	lines := SplitLines(text)
	r := receipt.New()

	header := headerSlots(lines)
	if len(header) > 0 {
		r.BusinessName = header[0]
	}
	if len(header) > 1 {
		r.LegalName = header[1]
	}
	if len(header) > 2 {
		r.Address = strings.Join(header[2:], "\n")
	}

	r.TaxID = group(taxIDPattern, text, 1)
	r.IssueDate = group(issueDatePattern, text, 1)
	r.DocumentNumber = group(documentPattern, text, 1)
	if name := group(customerPattern, text, 1); name != "" && !strings.EqualFold(name, "null") {
		r.CustomerName = name
	}
	r.CustomerID = group(customerIDPattern, text, 2)
	r.CurrencyCode = group(currencyPattern, text, 1)
	r.Subtotal = group(subtotalPattern, text, 1)
	r.Total = group(totalPattern, text, 1)

	r.Items = parseTokens(tableTokens(Classify(lines)))
	return r
}

func headerSlots(lines []string) []string {
	n := min(len(lines), headerLineCount)
	var out []string
	for _, l := range lines[:n] {
		if cleaned := CleanHeaderLine(l); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
