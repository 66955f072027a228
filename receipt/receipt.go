// Package receipt 定义从 boleta 文本中还原出的结构化记录。
package receipt

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultCustomerName 在文档未写明客户或客户为 "null" 时使用。
const DefaultCustomerName = "Clientes Varios"

var decimalToken = regexp.MustCompile(`^\d+\.\d+$`)

// Item 为销售表中的一行。
type Item struct {
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Description string `json:"description"`
}

// Fields 供文案模板插值使用。
func (it Item) Fields() map[string]any {
	return map[string]any{
		"quantity":    it.Quantity,
		"unit_price":  it.UnitPrice,
		"description": it.Description,
	}
}

// Receipt 每次转换构建一次，之后只读。
type Receipt struct {
	BusinessName   string `json:"business_name"`
	LegalName      string `json:"legal_name"`
	Address        string `json:"address"` // 清理后的抬头行，以 "\n" 拼接
	TaxID          string `json:"tax_id"`
	IssueDate      string `json:"issue_date"`
	DocumentNumber string `json:"document_number"`
	CustomerName   string `json:"customer_name"`
	CustomerID     string `json:"customer_id"`
	CurrencyCode   string `json:"currency_code"`
	Items          []Item `json:"items"`
	Subtotal       string `json:"subtotal"`
	Total          string `json:"total"`
}

// New 返回带默认值的空 Receipt。
func New() Receipt {
	return Receipt{CustomerName: DefaultCustomerName, Items: []Item{}}
}

// AddressLines 将 Address 拆回原始各行。
func (r Receipt) AddressLines() []string {
	if r.Address == "" {
		return nil
	}
	return strings.Split(r.Address, "\n")
}

// Customer 返回客户名，缺省时回退到占位名。
func (r Receipt) Customer() string {
	if strings.TrimSpace(r.CustomerName) == "" {
		return DefaultCustomerName
	}
	return r.CustomerName
}

// Fields 供文案模板插值使用；条目可通过 items[i] 访问。
func (r Receipt) Fields() map[string]any {
	items := make([]map[string]any, len(r.Items))
	for i, it := range r.Items {
		items[i] = it.Fields()
	}
	return map[string]any{
		"business_name":   r.BusinessName,
		"legal_name":      r.LegalName,
		"address":         r.Address,
		"tax_id":          r.TaxID,
		"issue_date":      r.IssueDate,
		"document_number": r.DocumentNumber,
		"customer_name":   r.Customer(),
		"customer_id":     r.CustomerID,
		"currency_code":   r.CurrencyCode,
		"subtotal":        r.Subtotal,
		"total":           r.Total,
		"item_count":      len(r.Items),
		"items":           items,
	}
}

// Validate 校验条目约束。
func (r Receipt) Validate() error {
	for i, it := range r.Items {
		if strings.TrimSpace(it.Description) == "" {
			return fmt.Errorf("item %d: empty description", i)
		}
		if !decimalToken.MatchString(it.Quantity) {
			return fmt.Errorf("item %d: quantity %q is not a decimal token", i, it.Quantity)
		}
		if it.UnitPrice != "" && !decimalToken.MatchString(it.UnitPrice) {
			return fmt.Errorf("item %d: unit price %q is not a decimal token", i, it.UnitPrice)
		}
	}
	return nil
}
