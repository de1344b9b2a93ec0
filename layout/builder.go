package layout

import (
	"errors"
	"fmt"

	"github.com/ByLCY/stylus/measure"
	"github.com/ByLCY/stylus/node"
)

// ErrNilNode 表示传入的测量树为空。
var ErrNilNode = errors.New("layout: nil measured node")

// frame 是自顶向下传递的父级上下文，子节点不保存对父节点的引用。
type frame struct {
	bound      *Span
	containing Box
}

// Layout 为测量树分配绝对坐标。box 是根节点的起点与可用宽度；
// 根节点宽度为 auto 时撑满 box.Width，并作为后代的约束边界。
func Layout(m *measure.Node, box Box) (*Result, error) {
	if m == nil {
		return nil, ErrNilNode
	}
	w := m.Width
	if m.Base().Width.IsAuto() && box.Width > 0 {
		w = max(0, box.Width-m.Margin.Horizontal())
	}
	page := Span{Left: box.X, Right: box.X + box.Width}
	if box.Width <= 0 {
		page.Right = box.X + w
	}
	fr := frame{bound: &page, containing: box}
	return place(m, box.X+m.Margin.Left, box.Y+m.Margin.Top, w, m.Height, fr, true)
}

func kindOf(m *measure.Node) (Kind, error) {
	switch m.Kind {
	case node.KindStack:
		return KindStack, nil
	case node.KindFlex:
		return KindFlex, nil
	case node.KindGrid:
		return KindGrid, nil
	case node.KindText:
		return KindText, nil
	case node.KindSpacer:
		return KindSpacer, nil
	case node.KindLine:
		return KindRule, nil
	}
	if node.Resolvable(m.Kind) {
		return 0, fmt.Errorf("layout: %w: %s", node.ErrUnresolved, m.Kind)
	}
	return 0, fmt.Errorf("layout: %w: %s", node.ErrUnknownKind, m.Kind)
}

// place 在 (x, y) 放置边框盒为 w×h 的节点并递归布局子节点。
// constrain 为 true 时本节点的内容区成为后代的约束边界。
func place(m *measure.Node, x, y, w, h int, fr frame, constrain bool) (*Result, error) {
	kind, err := kindOf(m)
	if err != nil {
		return nil, err
	}
	base := m.Base()
	bound := *fr.bound
	r := &Result{
		Kind:        kind,
		X:           x,
		Y:           y,
		Width:       max(0, w),
		Height:      max(0, h),
		Padding:     m.Padding,
		Style:       m.Style,
		Bound:       &bound,
		Constrained: m.WidthSet || constrain,
		Break:       base.Break,
		Position:    base.Position.Mode,
	}
	if base.Position.Mode == node.Relative && (base.Position.X != 0 || base.Position.Y != 0) {
		r.Offset = &Point{X: base.Position.X, Y: base.Position.Y}
	}

	inner := fr
	if r.Constrained {
		span := r.ContentSpan()
		inner.bound = &span
	}
	if base.Position.Boundary {
		inner.containing = Box{X: r.ContentX(), Y: r.ContentY(), Width: r.ContentWidth(), Height: r.ContentHeight()}
	}

	switch src := m.Source.(type) {
	case *node.Text:
		r.Text = textRun(src, m)
	case *node.Line:
		ch := src.Char
		if ch == 0 {
			ch = '-'
		}
		r.Rule = &Rule{Length: r.ContentWidth(), Char: ch}
	case *node.Spacer:
	case *node.Stack:
		if src.Direction == node.DirRow {
			err = layoutRow(r, m, src, inner)
		} else {
			err = layoutColumn(r, m, src, inner)
		}
	case *node.Flex:
		err = layoutFlex(r, m, src, inner)
	case *node.Grid:
		err = layoutGrid(r, m, src, inner)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func textRun(t *node.Text, m *measure.Node) *TextRun {
	run := &TextRun{
		LineHeight: m.LineHeight,
		Align:      t.Align,
		Overflow:   t.Overflow,
		Ellipsis:   t.Ellipsis,
		Vertical:   t.Orientation == node.Vertical,
	}
	if run.Overflow == node.OverflowEllipsis && run.Ellipsis == "" {
		run.Ellipsis = node.DefaultEllipsis
	}
	for _, ln := range m.Lines {
		run.Lines = append(run.Lines, ln.Text)
	}
	return run
}

// placeAbsolute 以最近的 Boundary 祖先（或根）内容区为原点放置节点，不参与常规流。
func placeAbsolute(child *measure.Node, fr frame) (*Result, error) {
	pos := child.Base().Position
	x := fr.containing.X + pos.X + child.Margin.Left
	y := fr.containing.Y + pos.Y + child.Margin.Top
	return place(child, x, y, child.Width, child.Height, fr, false)
}

// fillWidth 在父容器最终宽度已知后重新计算 fill 宽度。
func fillWidth(child *measure.Node, avail int) int {
	if child.Base().Width.IsFill() {
		return child.Base().ClampWidth(avail - child.Margin.Horizontal())
	}
	return child.Width
}

// columnWidth 是子项在纵向 Stack 中的宽度：auto 宽度的 Flex 像块级元素一样撑满，
// 可伸缩子项才有剩余空间可分。
func columnWidth(child *measure.Node, avail int) int {
	if _, ok := child.Source.(*node.Flex); ok && child.Base().Width.IsAuto() && !child.Margin.AutoX {
		return child.Base().ClampWidth(avail - child.Margin.Horizontal())
	}
	return fillWidth(child, avail)
}

func fillHeight(child *measure.Node, avail int) int {
	if child.Base().Height.IsFill() && avail > 0 {
		return child.Base().ClampHeight(avail - child.Margin.Vertical())
	}
	return child.Height
}

func layoutColumn(r *Result, m *measure.Node, s *node.Stack, fr frame) error {
	contentX, contentW := r.ContentX(), r.ContentWidth()
	gap := max(0, s.Gap)

	total, flowed := 0, 0
	for _, child := range m.Children {
		if !child.InFlow() {
			continue
		}
		if flowed > 0 {
			total += gap
		}
		total += child.OuterHeight()
		flowed++
	}
	cursor := r.ContentY()
	if free := r.ContentHeight() - total; free > 0 {
		switch s.VAlign {
		case node.VAlignMiddle:
			cursor += free / 2
		case node.VAlignBottom:
			cursor += free
		}
	}

	first := true
	for _, child := range m.Children {
		if !child.InFlow() {
			res, err := placeAbsolute(child, fr)
			if err != nil {
				return err
			}
			r.Children = append(r.Children, res)
			continue
		}
		if !first {
			cursor += gap
		}
		first = false

		cw := columnWidth(child, contentW)
		var x int
		switch {
		case child.Margin.AutoX:
			x = contentX + max(0, (contentW-cw)/2)
		case s.Align == node.AlignCenter:
			x = contentX + child.Margin.Left + (contentW-cw-child.Margin.Horizontal())/2
		case s.Align == node.AlignRight:
			x = contentX + contentW - child.Margin.Right - cw
		default:
			x = contentX + child.Margin.Left
		}
		y := cursor + child.Margin.Top
		res, err := place(child, x, y, cw, child.Height, fr, false)
		if err != nil {
			return err
		}
		r.Children = append(r.Children, res)
		cursor = y + child.Height + child.Margin.Bottom
	}
	return nil
}

func layoutRow(r *Result, m *measure.Node, s *node.Stack, fr frame) error {
	contentY, contentH := r.ContentY(), r.ContentHeight()
	gap := max(0, s.Gap)

	total, flowed := 0, 0
	for _, child := range m.Children {
		if !child.InFlow() {
			continue
		}
		if flowed > 0 {
			total += gap
		}
		total += child.OuterWidth()
		flowed++
	}
	cursor := r.ContentX()
	if free := r.ContentWidth() - total; free > 0 {
		switch s.Align {
		case node.AlignCenter:
			cursor += free / 2
		case node.AlignRight:
			cursor += free
		}
	}

	first := true
	for _, child := range m.Children {
		if !child.InFlow() {
			res, err := placeAbsolute(child, fr)
			if err != nil {
				return err
			}
			r.Children = append(r.Children, res)
			continue
		}
		if !first {
			cursor += gap
		}
		first = false

		ch := fillHeight(child, contentH)
		x := cursor + child.Margin.Left
		y := crossOffset(s.VAlign, contentY, contentH, ch, child.Margin)
		res, err := place(child, x, y, child.Width, ch, fr, false)
		if err != nil {
			return err
		}
		r.Children = append(r.Children, res)
		cursor = x + child.Width + child.Margin.Right
	}
	return nil
}

// crossOffset 计算交叉轴（垂直）位置。
func crossOffset(align node.VAlign, start, extent, h int, margin node.Margin) int {
	free := extent - h - margin.Vertical()
	switch {
	case free <= 0:
		return start + margin.Top
	case align == node.VAlignMiddle:
		return start + margin.Top + free/2
	case align == node.VAlignBottom:
		return start + margin.Top + free
	default:
		return start + margin.Top
	}
}
