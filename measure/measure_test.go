package measure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/stylus/metrics"
	"github.com/ByLCY/stylus/node"
)

var opts = Options{Metrics: metrics.New(360), LineSpacing: 60}

func measure(t *testing.T, n node.Node, width int) *Node {
	t.Helper()
	m, err := Measure(n, Size{Width: width}, node.DefaultStyle(), opts)
	if err != nil {
		t.Fatalf("measure failed: %v", err)
	}
	return m
}

func TestTextWidthFollowsPitch(t *testing.T) {
	m := measure(t, &node.Text{Content: "Hello"}, 1000)
	assert.Equal(t, 180, m.Width)
	assert.Equal(t, 60, m.Height)

	cond := measure(t, &node.Text{Content: "Hello", Base: node.Base{Style: node.Style{Condensed: node.Ptr(true)}}}, 1000)
	assert.Equal(t, 105, cond.Width)

	dbl := measure(t, &node.Text{Content: "a\nbb", Base: node.Base{Style: node.Style{DoubleHeight: node.Ptr(true), DoubleWidth: node.Ptr(true)}}}, 1000)
	assert.Equal(t, 144, dbl.Width)
	assert.Equal(t, 240, dbl.Height, "two lines at double height")
	require.Len(t, dbl.Lines, 2)
}

func TestTextWrapAndVertical(t *testing.T) {
	m := measure(t, &node.Text{Content: "aaa bbb ccc", Wrap: true}, 300)
	// 每行最多 8 个字符
	require.Len(t, m.Lines, 2)
	assert.Equal(t, "aaa bbb", m.Lines[0].Text)
	assert.Equal(t, "ccc", m.Lines[1].Text)
	assert.Equal(t, 120, m.Height)

	v := measure(t, &node.Text{Content: "ABC", Orientation: node.Vertical}, 300)
	assert.Equal(t, 36, v.Width)
	assert.Equal(t, 180, v.Height)
}

func TestStackAggregation(t *testing.T) {
	col := &node.Stack{
		Gap: 10,
		Base: node.Base{Padding: node.Uniform(5), Margin: node.Margin{Edges: node.Edges{Top: 7}}},
		Children: []node.Node{
			&node.Text{Content: "ab"},
			&node.Text{Content: "abcd"},
			&node.Text{Content: "zzzzzzzzzz", Base: node.Base{Position: node.Position{Mode: node.Absolute}}},
		},
	}
	m := measure(t, col, 1000)
	assert.Equal(t, 144+10, m.Width, "absolute children do not widen the flow")
	assert.Equal(t, 60+10+60+10, m.Height)
	assert.Equal(t, m.Height+7, m.OuterHeight())
	require.Len(t, m.Children, 3)

	row := &node.Stack{Direction: node.DirRow, Gap: 4, Children: []node.Node{
		&node.Text{Content: "ab"},
		&node.Text{Content: "abc", Base: node.Base{Margin: node.Margin{Edges: node.Edges{Left: 2, Right: 2}}}},
	}}
	m = measure(t, row, 1000)
	assert.Equal(t, 72+4+108+4, m.Width)
	assert.Equal(t, 60, m.Height)
}

func TestExplicitDimensions(t *testing.T) {
	m := measure(t, &node.Stack{Base: node.Base{Width: node.Percent(50), MinHeight: 90}}, 400)
	assert.Equal(t, 200, m.Width)
	assert.Equal(t, 90, m.Height)
	assert.True(t, m.WidthSet)

	fill := measure(t, &node.Stack{Base: node.Base{Width: node.Fill(), Margin: node.Margin{Edges: node.Edges{Left: 20, Right: 30}}}}, 400)
	assert.Equal(t, 350, fill.Width)

	clamped := measure(t, &node.Text{Content: "abcdef", Base: node.Base{MaxWidth: 100}}, 400)
	assert.Equal(t, 100, clamped.Width)
}

func TestFlexMarksFlexibleChildren(t *testing.T) {
	f := &node.Flex{Gap: 6, Children: []node.Node{
		&node.Text{Content: "Left"},
		&node.Spacer{Flexible: true},
		&node.Stack{Base: node.Base{Width: node.Fill()}},
		&node.Text{Content: "Right"},
	}}
	m := measure(t, f, 600)
	require.Len(t, m.Children, 4)
	assert.True(t, m.Children[1].Flexible)
	assert.True(t, m.Children[2].Flexible)
	assert.Equal(t, 0, m.Children[2].Width, "fill width inside flex is distributed at layout time")
	assert.Equal(t, 144+6+0+6+0+6+180, m.Width)
}

func TestFlexWrapLines(t *testing.T) {
	tall := node.Base{Style: node.Style{DoubleHeight: node.Ptr(true)}}
	wrap := func(third string) *node.Flex {
		return &node.Flex{Wrap: true, Gap: 10, RowGap: 5, Children: []node.Node{
			&node.Text{Content: "aaaa"},
			&node.Text{Content: "bbbb"},
			&node.Text{Content: third},
			&node.Text{Content: "dddddd", Base: tall},
		}}
	}

	// 72 + 10 + 216 = 298，恰好放进第二行
	m := measure(t, wrap("cc"), 300)
	require.Len(t, m.FlexLines, 2)
	assert.Equal(t, FlexLine{Start: 0, End: 2, Width: 298, Height: 60}, m.FlexLines[0])
	assert.Equal(t, FlexLine{Start: 2, End: 4, Width: 298, Height: 120}, m.FlexLines[1])
	assert.Equal(t, 60+5+120, m.Height)
	assert.Equal(t, 298, m.Width)

	// 180 + 10 + 216 > 300
	m = measure(t, wrap("ccccc"), 300)
	require.Len(t, m.FlexLines, 3)
	assert.Equal(t, FlexLine{Start: 0, End: 2, Width: 298, Height: 60}, m.FlexLines[0])
	assert.Equal(t, FlexLine{Start: 2, End: 3, Width: 180, Height: 60}, m.FlexLines[1])
	assert.Equal(t, FlexLine{Start: 3, End: 4, Width: 216, Height: 120}, m.FlexLines[2])
	assert.Equal(t, 60+5+60+5+120, m.Height)
	assert.Equal(t, 298, m.Width)
}

func TestGridColumns(t *testing.T) {
	g := &node.Grid{
		ColumnGap: 10,
		RowGap:    2,
		Columns: []node.Column{
			{Width: node.Dots(100)},
			{Width: node.Auto()},
			{Width: node.Fill()},
			{Width: node.Fill()},
		},
		Rows: []node.Row{
			{Cells: []node.Node{&node.Text{Content: "a"}, &node.Text{Content: "abc"}, &node.Text{Content: "x", Base: node.Base{Width: node.Fill()}}, &node.Text{Content: "y"}}},
			{Cells: []node.Node{&node.Text{Content: "a"}, &node.Text{Content: "a"}}, Height: node.Dots(90)},
		},
	}
	m := measure(t, g, 500)
	// 500 - 100 - 108 - 30 = 262 -> 131/131
	assert.Equal(t, []int{100, 108, 131, 131}, m.Columns)
	require.Len(t, m.Rows, 2)
	assert.Equal(t, 60, m.Rows[0].Height)
	assert.Equal(t, 90, m.Rows[1].Height)
	assert.Equal(t, 60+2+90, m.Height)
	assert.Equal(t, 500, m.Width)
	assert.Equal(t, 131, m.Rows[0].Cells[2].Width, "fill cells take the column width")
}

func TestUnresolvedNodesFailFast(t *testing.T) {
	_, err := Measure(&node.Stack{Children: []node.Node{&node.Each{Path: "x"}}}, Size{Width: 100}, node.DefaultStyle(), opts)
	if !errors.Is(err, node.ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
}
