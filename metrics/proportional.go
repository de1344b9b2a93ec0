package metrics

// 比例字体宽度，单位 1/360 英寸。未列出的字符取 defaultProportional。
const defaultProportional = 36

var proportionalWidths = buildProportional()

func buildProportional() map[rune]int {
	groups := []struct {
		chars string
		width int
	}{
		{"il.,:;'!|`", 14},
		{"jI()[]{}", 16},
		{"ftr\"-/\\ ", 20},
		{"abcdeghknopqsuvxyz?$*+<=>^_~#0123456789", 30},
		{"ABCDEFGHJKLNOPQRSTUVXYZ&", 38},
		{"mwMW@%", 46},
	}
	out := make(map[rune]int, 128)
	for _, g := range groups {
		for _, r := range g.chars {
			out[r] = g.width
		}
	}
	return out
}
