package renderer

import (
	"sort"
	"strings"

	"github.com/ByLCY/stylus/layout"
	"github.com/ByLCY/stylus/metrics"
	"github.com/ByLCY/stylus/node"
)

// ItemKind 区分可绘制图元。
type ItemKind uint8

const (
	ItemText ItemKind = iota + 1
	ItemRule
)

// Item 是展平后的可绘制图元：一行文本或一条横线。坐标已包含所有祖先偏移，
// Text 已截断，Width 是最终绘制宽度。
type Item struct {
	Kind       ItemKind
	X          int
	Y          int
	Width      int
	LineHeight int
	Text       string
	Style      node.ResolvedStyle
	Bound      layout.Span
	Vertical   bool
}

// Right 返回图元右边界。
func (it Item) Right() int { return it.X + it.Width }

// Flatten 把布局结果展平为图元，跳过 Spacer，按树的先序返回。
// 文本在此完成截断与对齐：对齐按截断后的宽度重新计算，最后把右边界夹到边界内。
func Flatten(items []*layout.Result, m metrics.Metrics) []Item {
	if m == nil {
		m = metrics.New(0)
	}
	var out []Item
	for _, r := range items {
		out = flatten(out, r, layout.Point{}, m)
	}
	return out
}

func flatten(out []Item, r *layout.Result, off layout.Point, m metrics.Metrics) []Item {
	if r == nil {
		return out
	}
	if r.Offset != nil {
		off.X += r.Offset.X
		off.Y += r.Offset.Y
	}
	switch {
	case r.Kind == layout.KindText && r.Text != nil:
		return append(out, textItems(r, off, m)...)
	case r.Kind == layout.KindRule && r.Rule != nil:
		if it, ok := ruleItem(r, off, m); ok {
			out = append(out, it)
		}
		return out
	case r.Kind == layout.KindSpacer:
		return out
	}
	for _, c := range r.Children {
		out = flatten(out, c, off, m)
	}
	return out
}

// bound 返回平移后的约束区间；没有记录时退回自身内容区。
func bound(r *layout.Result, off layout.Point) layout.Span {
	b := r.ContentSpan()
	if r.Bound != nil {
		b = *r.Bound
	}
	b.Left += off.X
	b.Right += off.X
	return b
}

func textItems(r *layout.Result, off layout.Point, m metrics.Metrics) []Item {
	run := r.Text
	b := bound(r, off)
	x0 := r.ContentX() + off.X
	y0 := r.ContentY() + off.Y

	if run.Vertical {
		s := strings.Join(run.Lines, "")
		w := 0
		for _, ch := range s {
			w = max(w, metrics.RuneWidth(m, ch, r.Style))
		}
		return []Item{{
			Kind: ItemText, X: x0, Y: y0, Width: w, LineHeight: run.LineHeight,
			Text: s, Style: r.Style, Bound: b, Vertical: true,
		}}
	}

	align := run.Align
	if align == node.AlignUnset {
		align = r.CellAlign
	}
	// 对齐区域：显式宽度或单元格内为自身内容区，否则延伸到约束区间右缘；
	// 两者都与约束区间取交集。
	areaL := max(x0, b.Left)
	areaR := min(x0+r.ContentWidth(), b.Right)
	if !r.Constrained && run.Align != node.AlignUnset {
		areaR = b.Right
	}
	if areaR < areaL {
		areaR = areaL
	}

	out := make([]Item, 0, len(run.Lines))
	for i, line := range run.Lines {
		s := line
		if run.Overflow != node.OverflowVisible {
			s = Truncate(s, b.Right-areaL, run.Overflow, run.Ellipsis, r.Style, m)
		}
		w := metrics.TextWidth(m, s, r.Style)

		x := x0
		if align != node.AlignUnset {
			x = areaL + alignOffset(align, areaR-areaL, w)
		}
		if run.Overflow != node.OverflowVisible && x+w > b.Right+1 {
			x = max(b.Left, b.Right-w)
		}
		out = append(out, Item{
			Kind:       ItemText,
			X:          x,
			Y:          y0 + i*run.LineHeight,
			Width:      w,
			LineHeight: run.LineHeight,
			Text:       s,
			Style:      r.Style,
			Bound:      b,
		})
	}
	return out
}

func alignOffset(align node.Align, area, w int) int {
	free := area - w
	if free <= 0 {
		return 0
	}
	switch align {
	case node.AlignCenter:
		return free / 2
	case node.AlignRight:
		return free
	default:
		return 0
	}
}

// ruleItem 用整数个字符填满横线长度，且不越过约束边界。
func ruleItem(r *layout.Result, off layout.Point, m metrics.Metrics) (Item, bool) {
	cw := metrics.RuneWidth(m, r.Rule.Char, r.Style)
	if cw <= 0 {
		return Item{}, false
	}
	b := bound(r, off)
	x := r.ContentX() + off.X
	length := min(r.Rule.Length, b.Right-x)
	n := length / cw
	if n <= 0 {
		return Item{}, false
	}
	return Item{
		Kind:       ItemRule,
		X:          x,
		Y:          r.ContentY() + off.Y,
		Width:      n * cw,
		LineHeight: r.ContentHeight(),
		Text:       strings.Repeat(string(r.Rule.Char), n),
		Style:      r.Style,
		Bound:      b,
	}, true
}

// Truncate 把 s 截断到不超过 limit 点。visible 不截断；clip 在最后一个完整字符处截断；
// ellipsis 保证内容加后缀不超过 limit。未设置策略时按 clip 处理。
func Truncate(s string, limit int, overflow node.Overflow, suffix string, st node.ResolvedStyle, m metrics.Metrics) string {
	if overflow == node.OverflowVisible || metrics.TextWidth(m, s, st) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	if overflow == node.OverflowEllipsis {
		if suffix == "" {
			suffix = node.DefaultEllipsis
		}
		sw := metrics.TextWidth(m, suffix, st)
		if sw > limit {
			return clip(suffix, limit, st, m)
		}
		return clip(s, limit-sw, st, m) + suffix
	}
	return clip(s, limit, st, m)
}

func clip(s string, limit int, st node.ResolvedStyle, m metrics.Metrics) string {
	w := 0
	for i, r := range s {
		w += metrics.RuneWidth(m, r, st)
		if w > limit {
			return s[:i]
		}
	}
	return s
}

// sortItems 按阅读顺序（Y 再 X）排序，减少打印头往返。
func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Y != items[j].Y {
			return items[i].Y < items[j].Y
		}
		return items[i].X < items[j].X
	})
}
