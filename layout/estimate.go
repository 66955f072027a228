package layout

import (
	"fmt"

	"github.com/ByLCY/boleta58/receipt"
)

// Estimate 空跑一遍与 Build 相同的排版流程，返回内容的纵向高度（mm，不含下边距）。
// 两者共用 compose，所以预估值与最终游标一致。
func Estimate(r receipt.Receipt, opts BuildOptions) (float64, error) {
	if opts.Measurer == nil {
		return 0, fmt.Errorf("layout: 缺少测量后端 Measurer")
	}
	c := newComposer(opts)
	if err := c.compose(r); err != nil {
		return 0, err
	}
	return c.y, nil
}

// PageHeight 返回页面高度（mm）：max(最小高度, 预估高度+下边距)。Build 在正式摆放前调用它。
func PageHeight(r receipt.Receipt, opts BuildOptions) (float64, error) {
	h, err := Estimate(r, opts)
	if err != nil {
		return 0, err
	}
	minH := opts.MinPageHeight
	if minH <= 0 {
		minH = DefaultPageHeight
	}
	return max(minH, h+bottomMargin), nil
}
