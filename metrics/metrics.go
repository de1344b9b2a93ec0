// Package metrics provides character advance widths for ESC/P fonts.
package metrics

import "github.com/ByLCY/stylus/node"

// Metrics 返回单个字符的步进宽度（点）。Measurer、截断与 Renderer 必须共用同一实现。
type Metrics interface {
	Width(r rune, pitch int, proportional, condensed, doubleWidth bool) int
}

// Table 是基于 ESC/P 规格的宽度表。
type Table struct {
	dpi int
}

// New 返回给定分辨率下的宽度表，dpi<=0 时取 360。
func New(dpi int) *Table {
	if dpi <= 0 {
		dpi = 360
	}
	return &Table{dpi: dpi}
}

// DPI 返回分辨率。
func (t *Table) DPI() int { return t.dpi }

// Width implements Metrics.
func (t *Table) Width(r rune, pitch int, proportional, condensed, doubleWidth bool) int {
	var w int
	if proportional {
		w = t.proportional(r)
		if condensed {
			w /= 2
		}
	} else {
		w = t.fixed(pitch, condensed)
	}
	if doubleWidth {
		w *= 2
	}
	return w
}

// fixed：10 cpi 压缩为 17.14 cpi，12 cpi 压缩为 20 cpi，15 cpi 不受压缩影响。
func (t *Table) fixed(pitch int, condensed bool) int {
	switch pitch {
	case 12:
		if condensed {
			return t.dpi / 20
		}
		return t.dpi / 12
	case 15:
		return t.dpi / 15
	default:
		if condensed {
			return t.dpi * 100 / 1714
		}
		return t.dpi / 10
	}
}

func (t *Table) proportional(r rune) int {
	w, ok := proportionalWidths[r]
	if !ok {
		w = defaultProportional
	}
	return w * t.dpi / 360
}

// TextWidth 累加 s 中每个字符的宽度。
func TextWidth(m Metrics, s string, st node.ResolvedStyle) int {
	total := 0
	for _, r := range s {
		total += RuneWidth(m, r, st)
	}
	return total
}

// RuneWidth 以 ResolvedStyle 调用 m.Width。
func RuneWidth(m Metrics, r rune, st node.ResolvedStyle) int {
	return m.Width(r, st.Pitch, st.Proportional, st.Condensed, st.DoubleWidth)
}

// DefaultLineSpacing 是 1/6 英寸行距。
func DefaultLineSpacing(dpi int) int {
	if dpi <= 0 {
		dpi = 360
	}
	return dpi / 6
}

// LineHeight 返回一行的高度；倍高时翻倍。
func LineHeight(st node.ResolvedStyle, spacing int) int {
	if spacing <= 0 {
		spacing = DefaultLineSpacing(360)
	}
	if st.DoubleHeight {
		return spacing * 2
	}
	return spacing
}
