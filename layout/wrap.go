package layout

import "strings"

// Wrap 按空白贪心折行：在不超过 maxWidth（mm）的前提下尽量多放单词。
// 超宽的单个单词独占一行且不拆分；空文本返回一个空行。
func Wrap(text string, maxWidth float64, font string, sizePt float64, m Measurer) ([]string, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}, nil
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		w, err := m.TextWidth(candidate, font, sizePt)
		if err != nil {
			return nil, err
		}
		if w <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current), nil
}
