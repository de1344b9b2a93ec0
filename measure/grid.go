package measure

import "github.com/ByLCY/stylus/node"

// measureGrid 先确定列宽（固定、百分比、最宽单元格、fill 均分剩余），
// 再以列宽重新测量单元格并求出行高。
func (ms *measurer) measureGrid(g *node.Grid, b box) (*Node, error) {
	cols := len(g.Columns)
	for _, row := range g.Rows {
		if row.Each != "" {
			return nil, node.Unresolved(g)
		}
		cols = max(cols, len(row.Cells))
	}
	specs := make([]node.Column, cols)
	copy(specs, g.Columns)

	colGap := max(0, g.ColumnGap)
	rowGap := max(0, g.RowGap)
	gaps := 0
	if cols > 1 {
		gaps = colGap * (cols - 1)
	}

	widths := make([]int, cols)
	used := gaps
	var fills []int
	for c, spec := range specs {
		switch {
		case spec.Width.IsFixed():
			widths[c], _ = spec.Width.Resolve(b.contentW)
		case spec.Width.IsFill():
			fills = append(fills, c)
			continue
		default:
			w, err := ms.widestCell(g, c, b)
			if err != nil {
				return nil, err
			}
			widths[c] = w
		}
		used += widths[c]
	}
	if len(fills) > 0 {
		remaining := max(0, b.contentW-used)
		share := remaining / len(fills)
		for i, c := range fills {
			widths[c] = share
			if i == len(fills)-1 {
				widths[c] = remaining - share*(len(fills)-1)
			}
		}
	}

	rows := make([]GridRow, len(g.Rows))
	contentH := 0
	for r, row := range g.Rows {
		cells := make([]*Node, len(row.Cells))
		height := 0
		for c, cell := range row.Cells {
			if cell == nil {
				cell = &node.Spacer{}
			}
			m, err := ms.measure(cell, Size{Width: widths[c], Height: b.contentH}, b.style, false)
			if err != nil {
				return nil, err
			}
			cells[c] = m
			height = max(height, m.OuterHeight())
		}
		if fixed, ok := row.Height.Resolve(b.contentH); ok {
			height = fixed
		}
		rows[r] = GridRow{Height: height, Cells: cells, KeepWithNext: row.KeepWithNext, BreakBefore: row.BreakBefore}
		if r > 0 {
			contentH += rowGap
		}
		contentH += height
	}

	contentW := gaps
	for _, w := range widths {
		contentW += w
	}
	out := b.finish(g, contentW, contentH)
	out.Columns = widths
	out.Rows = rows
	return out, nil
}

func (ms *measurer) widestCell(g *node.Grid, col int, b box) (int, error) {
	widest := 0
	for _, row := range g.Rows {
		if col >= len(row.Cells) || row.Cells[col] == nil {
			continue
		}
		m, err := ms.measure(row.Cells[col], Size{Width: b.contentW, Height: b.contentH}, b.style, false)
		if err != nil {
			return 0, err
		}
		widest = max(widest, m.OuterWidth())
	}
	return widest, nil
}
