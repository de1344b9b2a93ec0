package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/stylus/node"
)

const sample = "# Packing List\n\n" +
	"Shipped **today** via ground.\n\n" +
	"**All items inspected.**\n\n" +
	"## Items\n\n" +
	"1. Widget\n2. Gadget\n\n" +
	"- loose\n- parts\n\n" +
	"| Qty | Item | Price |\n|---:|:-----|:----:|\n| 2 | Widget | 9.50 |\n\n" +
	"---\n\n" +
	"```\ncode\tline\n```\n\n" +
	"> quoted\n\n" +
	"<div>ignored</div>\n"

func convert(t *testing.T) (*Document, []node.Node) {
	t.Helper()
	doc, err := Convert(strings.NewReader(sample), Options{})
	require.NoError(t, err)
	root, ok := doc.Root.(*node.Stack)
	require.True(t, ok)
	return doc, root.Children
}

func TestConvertBlocks(t *testing.T) {
	doc, children := convert(t)
	assert.Equal(t, "Packing List", doc.Title)
	assert.Equal(t, 60, doc.Root.(*node.Stack).Gap)

	kinds := make([]node.Kind, 0, len(children))
	for _, ch := range children {
		kinds = append(kinds, ch.Kind())
	}
	assert.Equal(t, []node.Kind{
		node.KindText, node.KindText, node.KindText, node.KindText,
		node.KindGrid, node.KindGrid, node.KindGrid,
		node.KindLine, node.KindText, node.KindStack,
	}, kinds)

	h1 := children[0].(*node.Text)
	require.NotNil(t, h1.Style.DoubleWidth)
	assert.True(t, h1.Break.KeepTogether)

	para := children[1].(*node.Text)
	assert.Equal(t, "Shipped today via ground.", para.Content)
	assert.Nil(t, para.Style.Bold, "partial emphasis does not style the paragraph")
	strong := children[2].(*node.Text)
	require.NotNil(t, strong.Style.Bold)

	h2 := children[3].(*node.Text)
	require.NotNil(t, h2.Style.Underline)
}

func TestConvertLists(t *testing.T) {
	_, children := convert(t)
	ordered := children[4].(*node.Grid)
	require.Len(t, ordered.Rows, 2)
	assert.Equal(t, "1.", ordered.Rows[0].Cells[0].(*node.Text).Content)
	assert.Equal(t, "Gadget", ordered.Rows[1].Cells[1].(*node.Text).Content)
	assert.True(t, ordered.Columns[1].Width.IsFill())

	bullets := children[5].(*node.Grid)
	assert.Equal(t, "-", bullets.Rows[0].Cells[0].(*node.Text).Content)
}

func TestConvertTable(t *testing.T) {
	_, children := convert(t)
	table := children[6].(*node.Grid)
	require.Len(t, table.Columns, 3)
	assert.Equal(t, []node.Align{node.AlignRight, node.AlignLeft, node.AlignCenter},
		[]node.Align{table.Columns[0].Align, table.Columns[1].Align, table.Columns[2].Align})
	require.Len(t, table.Rows, 2)
	assert.True(t, table.Rows[0].KeepWithNext)
	head := table.Rows[0].Cells[0].(*node.Text)
	require.NotNil(t, head.Style.Bold)
	assert.Equal(t, "Qty", head.Content)
	assert.Equal(t, "9.50", table.Rows[1].Cells[2].(*node.Text).Content)
}

func TestConvertCodeAndQuote(t *testing.T) {
	_, children := convert(t)
	code := children[8].(*node.Text)
	assert.Equal(t, "code    line", code.Content)
	assert.Equal(t, 108, code.Padding.Left)
	assert.Equal(t, node.OverflowClip, code.Overflow)

	quote := children[9].(*node.Stack)
	require.Len(t, quote.Children, 1)
	assert.Equal(t, "quoted", quote.Children[0].(*node.Text).Content)
}

func TestConvertResultValidatesAfterResolve(t *testing.T) {
	doc := ConvertBytes([]byte("plain"), Options{DPI: 120})
	assert.NoError(t, node.Validate(doc.Root))
	assert.Equal(t, 20, doc.Root.(*node.Stack).Gap)
}
