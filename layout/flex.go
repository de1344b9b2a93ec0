package layout

import (
	"github.com/ByLCY/stylus/measure"
	"github.com/ByLCY/stylus/node"
)

// layoutFlex 逐行分配剩余空间：可伸缩 Spacer（及 fill 宽度子项）均分剩余空间，
// 否则按 grow/shrink 比例伸缩，最后按 justify 放置。换行时每行独立计算。
func layoutFlex(r *Result, m *measure.Node, f *node.Flex, fr frame) error {
	var flow []*measure.Node
	for _, child := range m.Children {
		if !child.InFlow() {
			res, err := placeAbsolute(child, fr)
			if err != nil {
				return err
			}
			r.Children = append(r.Children, res)
			continue
		}
		flow = append(flow, child)
	}
	if len(flow) == 0 {
		return nil
	}

	gap := max(0, f.Gap)
	lines := m.FlexLines
	if !f.Wrap || len(lines) == 0 {
		lines = []measure.FlexLine{{Start: 0, End: len(flow), Height: r.ContentHeight()}}
	}

	lineY := r.ContentY()
	for i, ln := range lines {
		if i > 0 {
			lineY += max(0, f.RowGap)
		}
		items := flow[ln.Start:ln.End]
		height := ln.Height
		if height <= 0 {
			for _, it := range items {
				height = max(height, it.OuterHeight())
			}
		}
		placed, err := layoutFlexLine(items, r.ContentX(), lineY, r.ContentWidth(), height, gap, f, fr)
		if err != nil {
			return err
		}
		r.Children = append(r.Children, placed...)
		lineY += height
	}
	return nil
}

func layoutFlexLine(items []*measure.Node, x, y, width, height, gap int, f *node.Flex, fr frame) ([]*Result, error) {
	widths := make([]int, len(items))
	used := gap * (len(items) - 1)
	for i, it := range items {
		widths[i] = it.Width
		used += it.OuterWidth()
	}
	remaining := width - used
	remaining = distribute(items, widths, remaining)

	offsets := justifyOffsets(f.Justify, remaining, len(items))
	out := make([]*Result, 0, len(items))
	cursor := x
	for i, it := range items {
		if i > 0 {
			cursor += gap
		}
		cx := cursor + offsets[i] + it.Margin.Left
		ch := fillHeight(it, height)
		cy := crossOffset(f.AlignItems, y, height, ch, it.Margin)
		res, err := place(it, cx, cy, widths[i], ch, fr, false)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
		cursor += it.Margin.Left + widths[i] + it.Margin.Right
	}
	return out, nil
}

// distribute 调整 widths 并返回分配后仍剩余的空间。
func distribute(items []*measure.Node, widths []int, remaining int) int {
	if remaining > 0 {
		var flexible []int
		for i, it := range items {
			if it.Flexible {
				flexible = append(flexible, i)
			}
		}
		if len(flexible) > 0 {
			each := remaining / len(flexible)
			for n, i := range flexible {
				add := each
				if n == len(flexible)-1 {
					add = remaining - each*(len(flexible)-1)
				}
				widths[i] += add
			}
			return 0
		}

		weights := make([]float64, len(items))
		for i, it := range items {
			weights[i] = it.Base().FlexItem.Grow
		}
		return remaining - share(widths, weights, remaining, 1, items)
	}

	if remaining < 0 {
		weights := make([]float64, len(items))
		for i, it := range items {
			weights[i] = it.Base().FlexItem.Shrink * float64(it.Width)
		}
		return remaining + share(widths, weights, -remaining, -1, items)
	}
	return remaining
}

// share 按权重把 amount 分给各项（sign 为 -1 时收缩），最后一个有权重的项拿余数。
// 返回实际分出的量。
func share(widths []int, weights []float64, amount, sign int, items []*measure.Node) int {
	total := 0.0
	last := -1
	for i, w := range weights {
		if w > 0 {
			total += w
			last = i
		}
	}
	if total <= 0 {
		return 0
	}
	given := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		part := int(float64(amount) * w / total)
		if i == last {
			part = amount - given
		}
		before := widths[i]
		widths[i] = items[i].Base().ClampWidth(widths[i] + sign*part)
		given += sign * (widths[i] - before)
	}
	return given
}

// justifyOffsets 返回每个子项相对起始位置的额外偏移（已累计）。
// 剩余空间不足时一律从起点排列。
func justifyOffsets(j node.Justify, remaining, n int) []int {
	out := make([]int, n)
	if remaining <= 0 || n == 0 {
		return out
	}
	for i := range out {
		switch j {
		case node.JustifyCenter:
			out[i] = remaining / 2
		case node.JustifyEnd:
			out[i] = remaining
		case node.JustifySpaceBetween:
			if n > 1 {
				out[i] = remaining * i / (n - 1)
			}
		case node.JustifySpaceAround:
			out[i] = remaining * (2*i + 1) / (2 * n)
		case node.JustifySpaceEvenly:
			out[i] = remaining * (i + 1) / (n + 1)
		}
	}
	return out
}
