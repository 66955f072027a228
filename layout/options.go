package layout

// 字体名称，对应 ResourceSet.Fonts 的键。
const (
	FontRegular = "Body"
	FontBold    = "Bold"
)

// Measurer 由渲染器实现，返回文本在给定字体与字号（pt）下的宽度（mm）。
type Measurer interface {
	TextWidth(text, font string, sizePt float64) (float64, error)
}

// BuildOptions 配置布局阶段所需的依赖。
type BuildOptions struct {
	Measurer Measurer
	// MinPageHeight 为页面最小高度（mm），<=0 时使用 DefaultPageHeight。
	MinPageHeight float64
	Labels        Labels
	Meta          DocumentMeta
}

// Labels 是输出中的固定文案，${field} 占位符由 receipt 字段填充。
type Labels struct {
	Title             string `mapstructure:"title" json:"title"`
	TaxID             string `mapstructure:"tax_id" json:"tax_id"`
	DocumentNumber    string `mapstructure:"document_number" json:"document_number"`
	IssueDate         string `mapstructure:"issue_date" json:"issue_date"`
	Customer          string `mapstructure:"customer" json:"customer"`
	CustomerID        string `mapstructure:"customer_id" json:"customer_id"`
	Currency          string `mapstructure:"currency" json:"currency"`
	QuantityHeader    string `mapstructure:"quantity_header" json:"quantity_header"`
	DescriptionHeader string `mapstructure:"description_header" json:"description_header"`
	ValueHeader       string `mapstructure:"value_header" json:"value_header"`
	UnitPrice         string `mapstructure:"unit_price" json:"unit_price"`
	Subtotal          string `mapstructure:"subtotal" json:"subtotal"`
	Total             string `mapstructure:"total" json:"total"`
	Closing           string `mapstructure:"closing" json:"closing"`
}

// DefaultLabels 返回默认（西班牙语）文案。
func DefaultLabels() Labels {
	return Labels{
		Title:             "BOLETA ELECTRÓNICA",
		TaxID:             "RUC: ${tax_id}",
		DocumentNumber:    "${document_number}",
		IssueDate:         "Fecha de Emisión: ${issue_date}",
		Customer:          "Señor (es): ${customer_name}",
		CustomerID:        "DNI: ${customer_id}",
		Currency:          "Tipo de Moneda: ${currency_code}",
		QuantityHeader:    "Cant",
		DescriptionHeader: "Descripción",
		ValueHeader:       "Valor",
		UnitPrice:         "S/ ${unit_price}",
		Subtotal:          "Subtotal: S/ ${subtotal}",
		Total:             "Total: S/ ${total}",
		Closing:           "Gracias por su compra",
	}
}

// WithDefaults 用默认值补齐空文案。
func (l Labels) WithDefaults() Labels {
	d := DefaultLabels()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&l.Title, d.Title)
	fill(&l.TaxID, d.TaxID)
	fill(&l.DocumentNumber, d.DocumentNumber)
	fill(&l.IssueDate, d.IssueDate)
	fill(&l.Customer, d.Customer)
	fill(&l.CustomerID, d.CustomerID)
	fill(&l.Currency, d.Currency)
	fill(&l.QuantityHeader, d.QuantityHeader)
	fill(&l.DescriptionHeader, d.DescriptionHeader)
	fill(&l.ValueHeader, d.ValueHeader)
	fill(&l.UnitPrice, d.UnitPrice)
	fill(&l.Subtotal, d.Subtotal)
	fill(&l.Total, d.Total)
	fill(&l.Closing, d.Closing)
	return l
}

// Templates 返回所有文案，键为配置项名称，供配置校验使用。
func (l Labels) Templates() map[string]string {
	return map[string]string{
		"title":              l.Title,
		"tax_id":             l.TaxID,
		"document_number":    l.DocumentNumber,
		"issue_date":         l.IssueDate,
		"customer":           l.Customer,
		"customer_id":        l.CustomerID,
		"currency":           l.Currency,
		"quantity_header":    l.QuantityHeader,
		"description_header": l.DescriptionHeader,
		"value_header":       l.ValueHeader,
		"unit_price":         l.UnitPrice,
		"subtotal":           l.Subtotal,
		"total":              l.Total,
		"closing":            l.Closing,
	}
}

// DefaultResources 返回布局使用的内置字体。
func DefaultResources() ResourceSet {
	return ResourceSet{Fonts: map[string]FontResource{
		FontRegular: {Name: FontRegular, Src: "embed:GoRegular", Style: "regular"},
		FontBold:    {Name: FontBold, Src: "embed:GoBold", Style: "bold"},
	}}
}
