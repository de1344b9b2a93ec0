package layout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/stylus/measure"
	"github.com/ByLCY/stylus/metrics"
	"github.com/ByLCY/stylus/node"
)

// build 是测试辅助：测量并布局 n，根节点可用宽度为 width。
func build(t *testing.T, n node.Node, width, dpi int) *Result {
	t.Helper()
	opts := measure.Options{Metrics: metrics.New(dpi), LineSpacing: 60}
	m, err := measure.Measure(n, measure.Size{Width: width}, node.DefaultStyle(), opts)
	if err != nil {
		t.Fatalf("测量失败: %v", err)
	}
	res, err := Layout(m, Box{Width: width})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	return res
}

func TestFlexSpacerPushesToEdge(t *testing.T) {
	f := &node.Flex{Children: []node.Node{
		&node.Text{Content: "Left"},
		&node.Spacer{Flexible: true},
		&node.Text{Content: "Right"},
	}}
	res := build(t, f, 300, 120)
	require.Len(t, res.Children, 3)
	assert.Equal(t, 300, res.Width)
	assert.Equal(t, 0, res.Children[0].X)
	assert.Equal(t, 48, res.Children[0].Width)
	assert.Equal(t, 192, res.Children[1].Width)
	assert.Equal(t, 240, res.Children[2].X)
	assert.Equal(t, 300, res.Children[2].X+res.Children[2].Width)
}

func TestNestedFlexFillsColumn(t *testing.T) {
	header := func() *node.Flex {
		return &node.Flex{Children: []node.Node{
			&node.Text{Content: "Left"},
			&node.Spacer{Flexible: true},
			&node.Text{Content: "Right"},
		}}
	}
	s := &node.Stack{Base: node.Base{Width: node.Dots(600)}, Children: []node.Node{header()}}
	res := build(t, s, 720, 360)
	row := res.Children[0]
	assert.Equal(t, 600, row.Width)
	require.Len(t, row.Children, 3)
	assert.Equal(t, 600-180, row.Children[2].X)

	// 显式宽度与 auto 外边距保持原样
	fixed := header()
	fixed.Width = node.Dots(400)
	centered := header()
	centered.Margin = node.Margin{AutoX: true}
	res = build(t, &node.Stack{Children: []node.Node{fixed, centered}}, 720, 360)
	assert.Equal(t, 400, res.Children[0].Width)
	assert.Equal(t, 400-180, res.Children[0].Children[2].X)
	assert.Equal(t, 144+180, res.Children[1].Width)
	assert.Equal(t, (720-324)/2, res.Children[1].X)
}

func TestFlexSpacersShareEvenly(t *testing.T) {
	f := &node.Flex{Children: []node.Node{
		&node.Spacer{Flexible: true},
		&node.Text{Content: "ab"},
		&node.Spacer{Flexible: true},
	}}
	res := build(t, f, 361, 360)
	require.Len(t, res.Children, 3)
	assert.Equal(t, 144, res.Children[0].Width)
	assert.Equal(t, 144, res.Children[1].X)
	assert.Equal(t, 145, res.Children[2].Width, "last spacer takes the remainder")
}

func TestFlexJustify(t *testing.T) {
	cases := []struct {
		justify node.Justify
		want    [2]int
	}{
		{node.JustifyStart, [2]int{0, 36}},
		{node.JustifyCenter, [2]int{114, 150}},
		{node.JustifyEnd, [2]int{228, 264}},
		{node.JustifySpaceBetween, [2]int{0, 264}},
		{node.JustifySpaceAround, [2]int{57, 207}},
		{node.JustifySpaceEvenly, [2]int{76, 188}},
	}
	for _, tc := range cases {
		f := &node.Flex{Justify: tc.justify, Children: []node.Node{
			&node.Text{Content: "a"},
			&node.Text{Content: "b"},
		}}
		res := build(t, f, 300, 360)
		got := [2]int{res.Children[0].X, res.Children[1].X}
		if got != tc.want {
			t.Fatalf("justify %d: 期望 %v，实际 %v", tc.justify, tc.want, got)
		}
	}

	single := build(t, &node.Flex{Justify: node.JustifySpaceBetween, Children: []node.Node{&node.Text{Content: "a"}}}, 300, 360)
	assert.Equal(t, 0, single.Children[0].X, "a single item stays at the start")
}

func TestFlexGrowAndShrink(t *testing.T) {
	grow := &node.Flex{Children: []node.Node{
		&node.Text{Content: "a", Base: node.Base{FlexItem: node.FlexItem{Grow: 1}}},
		&node.Text{Content: "b", Base: node.Base{FlexItem: node.FlexItem{Grow: 3}}},
	}}
	res := build(t, grow, 300, 360)
	assert.Equal(t, 93, res.Children[0].Width)
	assert.Equal(t, 93, res.Children[1].X)
	assert.Equal(t, 207, res.Children[1].Width)

	shrink := &node.Flex{Base: node.Base{Width: node.Dots(100)}, Children: []node.Node{
		&node.Text{Content: "aa", Base: node.Base{FlexItem: node.FlexItem{Shrink: 1}}},
		&node.Text{Content: "bb"},
	}}
	res = build(t, shrink, 300, 360)
	assert.Equal(t, 28, res.Children[0].Width)
	assert.Equal(t, 28, res.Children[1].X)
}

func TestFlexWrapStacksLines(t *testing.T) {
	wrap := func(third string) *node.Flex {
		return &node.Flex{Wrap: true, Gap: 10, RowGap: 5, AlignItems: node.VAlignBottom, Children: []node.Node{
			&node.Text{Content: "aaaa"},
			&node.Text{Content: "bbbb"},
			&node.Text{Content: third},
			&node.Text{Content: "dddddd", Base: node.Base{Style: node.Style{DoubleHeight: node.Ptr(true)}}},
		}}
	}

	res := build(t, wrap("cc"), 300, 360)
	require.Len(t, res.Children, 4)
	assert.Equal(t, 0, res.Children[0].Y)
	assert.Equal(t, 154, res.Children[1].X)
	// 第二行高 120，cc 贴底
	assert.Equal(t, 0, res.Children[2].X)
	assert.Equal(t, 125, res.Children[2].Y)
	assert.Equal(t, 82, res.Children[3].X)
	assert.Equal(t, 65, res.Children[3].Y)
	assert.Equal(t, 185, res.Height)

	res = build(t, wrap("ccccc"), 300, 360)
	require.Len(t, res.Children, 4)
	assert.Equal(t, 65, res.Children[2].Y)
	assert.Equal(t, 0, res.Children[2].X)
	assert.Equal(t, 0, res.Children[3].X)
	assert.Equal(t, 130, res.Children[3].Y)
	assert.Equal(t, 250, res.Height)
}

func TestColumnAlignAndAutoMargin(t *testing.T) {
	s := &node.Stack{Align: node.AlignCenter, Children: []node.Node{
		&node.Text{Content: "ab"},
		&node.Stack{Base: node.Base{Width: node.Dots(100), Margin: node.Margin{AutoX: true}}},
	}}
	res := build(t, s, 360, 360)
	assert.Equal(t, 144, res.Children[0].X)
	assert.Equal(t, 130, res.Children[1].X)
	assert.Equal(t, 60, res.Children[1].Y)

	right := build(t, &node.Stack{Align: node.AlignRight, Children: []node.Node{
		&node.Text{Content: "ab", Base: node.Base{Margin: node.Margin{Edges: node.Edges{Right: 8}}}},
	}}, 360, 360)
	assert.Equal(t, 360-8-72, right.Children[0].X)
}

func TestRowStackVAlign(t *testing.T) {
	s := &node.Stack{Direction: node.DirRow, Gap: 12, VAlign: node.VAlignMiddle, Children: []node.Node{
		&node.Text{Content: "a\nb\nc"},
		&node.Text{Content: "x"},
	}}
	res := build(t, s, 360, 360)
	assert.Equal(t, 48, res.Children[1].X)
	assert.Equal(t, 60, res.Children[1].Y)
}

func TestGridRowsAndCellAlign(t *testing.T) {
	g := &node.Grid{
		ColumnGap: 20,
		Columns: []node.Column{
			{Width: node.Dots(100), Align: node.AlignRight},
			{Width: node.Fill()},
		},
		Rows: []node.Row{
			{Cells: []node.Node{&node.Text{Content: "1"}, &node.Text{Content: "Widget"}}},
			{Cells: []node.Node{&node.Text{Content: "2"}, &node.Text{Content: "Gadget"}}, KeepWithNext: true, BreakBefore: true},
		},
	}
	res := build(t, g, 300, 360)
	require.Len(t, res.Children, 2)
	row := res.Children[1]
	assert.Equal(t, KindGridRow, row.Kind)
	assert.Equal(t, 60, row.Y)
	assert.True(t, row.KeepWithNext)
	assert.True(t, row.Break.Before)

	require.Len(t, row.Children, 2)
	first, second := row.Children[0], row.Children[1]
	assert.Equal(t, node.AlignRight, first.CellAlign)
	assert.Equal(t, 100, first.Width, "cells fill the column")
	assert.Equal(t, 120, second.X)
	assert.Equal(t, Span{Left: 120, Right: 300}, *second.Bound)
	assert.Equal(t, []string{"Gadget"}, second.Text.Lines)
}

func TestBoundFollowsConstrainedAncestor(t *testing.T) {
	s := &node.Stack{Children: []node.Node{
		&node.Stack{
			Base:     node.Base{Width: node.Dots(200), Padding: node.Uniform(10)},
			Children: []node.Node{&node.Stack{Children: []node.Node{&node.Text{Content: "abc"}}}},
		},
		&node.Stack{Children: []node.Node{&node.Text{Content: "abc"}}},
	}}
	res := build(t, s, 300, 360)
	inner := res.Children[0].Children[0].Children[0]
	assert.Equal(t, Span{Left: 10, Right: 190}, *inner.Bound)
	free := res.Children[1].Children[0]
	assert.Equal(t, Span{Left: 0, Right: 300}, *free.Bound)
}

func TestAbsoluteAndRelative(t *testing.T) {
	s := &node.Stack{Children: []node.Node{
		&node.Text{Content: "head"},
		&node.Stack{
			Base: node.Base{Padding: node.Uniform(10), Position: node.Position{Boundary: true}},
			Children: []node.Node{
				&node.Text{Content: "body"},
				&node.Text{Content: "stamp", Base: node.Base{Position: node.Position{Mode: node.Absolute, X: 5, Y: 7}}},
			},
		},
		&node.Text{Content: "nudged", Base: node.Base{Position: node.Position{Mode: node.Relative, X: 3, Y: -4}}},
		&node.Text{Content: "tail"},
	}}
	res := build(t, s, 600, 360)
	box := res.Children[1]
	stamp := box.Children[1]
	assert.Equal(t, node.Absolute, stamp.Position)
	assert.Equal(t, 15, stamp.X)
	assert.Equal(t, 60+10+7, stamp.Y)

	nudged := res.Children[2]
	require.NotNil(t, nudged.Offset)
	assert.Equal(t, Point{X: 3, Y: -4}, *nudged.Offset)
	assert.Equal(t, box.Bottom(), nudged.Y, "relative offset does not move the flow")
	assert.Equal(t, nudged.Bottom(), res.Children[3].Y)
}

func TestRuleAndText(t *testing.T) {
	s := &node.Stack{Children: []node.Node{
		&node.Line{Base: node.Base{Padding: node.Edges{Left: 12}}},
		&node.Text{Content: "long text", Overflow: node.OverflowEllipsis},
	}}
	res := build(t, s, 300, 360)
	rule := res.Children[0]
	require.NotNil(t, rule.Rule)
	assert.Equal(t, KindRule, rule.Kind)
	assert.Equal(t, '-', rule.Rule.Char)
	assert.Equal(t, 288, rule.Rule.Length)

	txt := res.Children[1]
	require.NotNil(t, txt.Text)
	assert.Equal(t, node.DefaultEllipsis, txt.Text.Ellipsis)
	assert.Equal(t, 60, txt.Text.LineHeight)
}

func TestLayoutFailsOnUnresolved(t *testing.T) {
	m := &measure.Node{Source: &node.Each{Path: "items"}, Kind: node.KindEach}
	_, err := Layout(m, Box{Width: 100})
	if !errors.Is(err, node.ErrUnresolved) {
		t.Fatalf("期望 ErrUnresolved，实际 %v", err)
	}
	if _, err := Layout(nil, Box{}); !errors.Is(err, ErrNilNode) {
		t.Fatalf("期望 ErrNilNode，实际 %v", err)
	}
}

func TestCloneAndTranslate(t *testing.T) {
	res := build(t, &node.Stack{Children: []node.Node{&node.Text{Content: "a"}, &node.Text{Content: "b"}}}, 300, 360)
	cp := res.Clone()
	cp.Translate(100)
	assert.Equal(t, 0, res.Y)
	assert.Equal(t, 60, res.Children[1].Y)
	assert.Equal(t, 160, cp.Children[1].Y)
	cp.Children[0].Text.Lines[0] = "z"
	assert.Equal(t, "a", res.Children[0].Text.Lines[0])
}
