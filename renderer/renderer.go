package renderer

import "github.com/ByLCY/boleta58/layout"

// Renderer 将布局结果输出为最终文件，例如 PDF。
// Render 返回生成的二进制数据（例如 PDF 字节切片）以及可能的错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}

// Surface 同时提供测量与绘制，每次转换使用一个独立实例。
type Surface interface {
	Renderer
	layout.Measurer
}
