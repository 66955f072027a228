package extract

import (
	"regexp"
	"strings"
)

var (
	documentMarker = regexp.MustCompile(`(?i)BOLETA`)
	// 系列号 + 流水号，例如 "EB01 - 123" 或 "B001–00004567"
	documentNumberPattern = regexp.MustCompile(`(?i)[A-Z]+\d+\s*[-–]\s*\d+`)
)

// CleanHeaderLine 去掉与商户抬头同行的固定文字。
// 返回空串表示该行没有需要保留的内容。
func CleanHeaderLine(line string) string {
	line = strings.TrimSpace(line)
	if loc := documentMarker.FindStringIndex(line); loc != nil {
		return strings.TrimSpace(line[:loc[0]])
	}
	if strings.HasPrefix(strings.ToUpper(line), "RUC") {
		return ""
	}
	if loc := documentNumberPattern.FindStringIndex(line); loc != nil {
		return strings.TrimSpace(line[:loc[0]])
	}
	return line
}
