package layout

import (
	"github.com/ByLCY/stylus/measure"
	"github.com/ByLCY/stylus/node"
)

// layoutGrid 把每一行展开为 GridRow 结果。单元格占满列宽，
// 列对齐只记录在 CellAlign 上，由渲染阶段在截断后统一应用。
func layoutGrid(r *Result, m *measure.Node, g *node.Grid, fr frame) error {
	colGap := max(0, g.ColumnGap)
	rowGap := max(0, g.RowGap)

	colX := make([]int, len(m.Columns))
	x := r.ContentX()
	for c, w := range m.Columns {
		colX[c] = x
		x += w + colGap
	}

	y := r.ContentY()
	for i, row := range m.Rows {
		if i > 0 {
			y += rowGap
		}
		rowRes := &Result{
			Kind:         KindGridRow,
			X:            r.ContentX(),
			Y:            y,
			Width:        r.ContentWidth(),
			Height:       row.Height,
			Style:        r.Style,
			Bound:        fr.bound,
			Constrained:  true,
			KeepWithNext: row.KeepWithNext,
			Break:        node.Break{Before: row.BreakBefore},
		}
		for c, cell := range row.Cells {
			if cell == nil || c >= len(m.Columns) {
				continue
			}
			span := Span{Left: colX[c], Right: colX[c] + m.Columns[c]}
			cellFrame := fr
			cellFrame.bound = &span
			w := max(0, m.Columns[c]-cell.Margin.Horizontal())
			h := max(0, row.Height-cell.Margin.Vertical())
			res, err := place(cell, colX[c]+cell.Margin.Left, y+cell.Margin.Top, w, h, cellFrame, true)
			if err != nil {
				return err
			}
			if c < len(g.Columns) {
				res.CellAlign = g.Columns[c].Align
			}
			rowRes.Children = append(rowRes.Children, res)
		}
		r.Children = append(r.Children, rowRes)
		y += row.Height
	}
	return nil
}
