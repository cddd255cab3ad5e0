package render

import (
	"github.com/mattn/go-runewidth"
)

// wrapWidth 按显示宽度硬换行；日志里的路径与网表行不适合按词折行。
func wrapWidth(line string, width int) []string {
	if width <= 0 || runewidth.StringWidth(line) <= width {
		return []string{line}
	}
	out := []string{}
	current := make([]rune, 0, width)
	w := 0
	for _, r := range line {
		rw := runewidth.RuneWidth(r)
		if w+rw > width && len(current) > 0 {
			out = append(out, string(current))
			current = current[:0]
			w = 0
		}
		current = append(current, r)
		w += rw
	}
	if len(current) > 0 {
		out = append(out, string(current))
	}
	return out
}

// TruncateToWidth 截断到 width 个显示列。
func TruncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	w := 0
	out := make([]rune, 0, len(text))
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if w+rw > width {
			break
		}
		out = append(out, r)
		w += rw
	}
	return string(out)
}
