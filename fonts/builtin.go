// Package fonts 提供内置字体（Go Regular / Go Bold），无需随程序分发字体文件。
package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// 内置字体名称，可写为 "embed:GoRegular" 或 "GoRegular"。
const (
	Regular = "GoRegular"
	Bold    = "GoBold"
)

var builtin = map[string][]byte{
	Regular: goregular.TTF,
	Bold:    gobold.TTF,
}

// Load 返回内置字体的字节数据。
func Load(name string) ([]byte, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(name), "embed:")
	data, ok := builtin[clean]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 不存在（可用: %s）", clean, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Names 返回所有内置字体名称。
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
