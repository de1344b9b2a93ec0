package dsl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/stylus/binding"
	"github.com/ByLCY/stylus/escp"
	"github.com/ByLCY/stylus/node"
)

const invoiceDSL = `
doc Invoice v1 {
  meta {
    title: "Invoice"
    author: "ACME"
    keywords: ["a", "b"]
  }

  resources {
    style Base { pitch: 12 }
    style Heading extends Base {
      bold: true
      double-width: true
    }
  }

  page letter margin 0.5in 0.25in {
    typeface: courier

    text Heading align center { "ACME SUPPLY" }
    line char "=" length 50%
    flex justify between gap 36 {
      text { "Invoice {{ number }}" }
      spacer flex
      text overflow ellipsis ellipsis "~" { "right" }
    }
    grid column-gap 36 {
      columns {
        column 1in align right
        column fill
      }
      row Heading keep-with-next {
        text { "Qty" }
        text { "Item" }
      }
      row each items as it index i {
        text { "{{ it.qty }}" }
        text { "{{ it.name }}" }
      }
    }
    if total gt 100 {
      text { "Free shipping" }
    } elif total gt 50 {
      text { "Almost there" }
    } else {
      text { "Standard" }
    }
    switch status {
      case "paid" { text { "PAID" } }
      case "void" "cancelled" { text { "VOID" } }
      default { text { "DUE" } }
    }
    each notes as note {
      text wrap { "{{ note }}" }
      separator { line }
      empty { text { "no notes" } }
    }
    text position absolute x 1in y 2in boundary { "stamp" }
    text margin "0 auto" width 2in visible status visible-op eq visible-value paid { "thanks" }
    break
  }
}
`

func compileInvoice(t *testing.T) *Compiled {
	t.Helper()
	c, err := CompileString(invoiceDSL, Options{DPI: 360})
	require.NoError(t, err)
	return c
}

func TestCompileMetaAndPage(t *testing.T) {
	c := compileInvoice(t)
	want := Meta{Title: "Invoice", Author: "ACME", Creator: "stylus", Keywords: []string{"a", "b"}}
	if diff := cmp.Diff(want, c.Meta); diff != "" {
		t.Fatalf("meta mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3060, c.Page.Width)
	assert.Equal(t, 3960, c.Page.Height)
	assert.Equal(t, node.Edges{Top: 180, Right: 90, Bottom: 180, Left: 90}, c.Page.Margin)
	assert.Equal(t, 90, c.Page.Box().X)
	assert.Equal(t, 2880, c.Page.Box().Width)
	assert.Equal(t, 180, c.Page.PageConfig().TopMargin)
	assert.Equal(t, "Invoice v1 (letter 3060x3960)", c.String())
}

func TestCompileTree(t *testing.T) {
	c := compileInvoice(t)
	root, ok := c.Root.(*node.Stack)
	require.True(t, ok)
	require.NotNil(t, root.Style.Typeface)
	assert.Equal(t, escp.Courier, *root.Style.Typeface)

	kinds := make([]node.Kind, 0, len(root.Children))
	for _, ch := range root.Children {
		kinds = append(kinds, ch.Kind())
	}
	assert.Equal(t, []node.Kind{
		node.KindText, node.KindLine, node.KindFlex, node.KindGrid,
		node.KindConditional, node.KindSwitch, node.KindEach,
		node.KindText, node.KindText, node.KindSpacer,
	}, kinds)

	heading := root.Children[0].(*node.Text)
	assert.Equal(t, node.AlignCenter, heading.Align)
	require.NotNil(t, heading.Style.Bold)
	assert.True(t, *heading.Style.Bold)
	require.NotNil(t, heading.Style.Pitch, "extends pulls in the parent style")
	assert.Equal(t, 12, *heading.Style.Pitch)

	rule := root.Children[1].(*node.Line)
	assert.Equal(t, '=', rule.Char)
	assert.Equal(t, node.Percent(50), rule.Length)

	flex := root.Children[2].(*node.Flex)
	assert.Equal(t, node.JustifySpaceBetween, flex.Justify)
	assert.Equal(t, 36, flex.Gap)
	require.Len(t, flex.Children, 3)
	assert.Equal(t, node.KindTemplate, flex.Children[0].Kind())
	assert.True(t, flex.Children[1].(*node.Spacer).Flexible)
	right := flex.Children[2].(*node.Text)
	assert.Equal(t, node.OverflowEllipsis, right.Overflow)
	assert.Equal(t, "~", right.Ellipsis)

	grid := root.Children[3].(*node.Grid)
	assert.Equal(t, []node.Column{{Width: node.Dots(360), Align: node.AlignRight}, {Width: node.Fill()}}, grid.Columns)
	require.Len(t, grid.Rows, 2)
	assert.True(t, grid.Rows[0].KeepWithNext)
	require.NotNil(t, grid.Rows[0].Cells[0].Props().Style.Bold, "row style applies to cells")
	assert.Equal(t, "items", grid.Rows[1].Each)
	assert.Equal(t, "it", grid.Rows[1].As)
	assert.Equal(t, "i", grid.Rows[1].IndexAs)

	cond := root.Children[4].(*node.Conditional)
	assert.Equal(t, binding.OpGt, cond.If.Op)
	assert.Equal(t, float64(100), cond.If.Value)
	require.Len(t, cond.ElseIf, 1)
	assert.NotNil(t, cond.Else)

	sw := root.Children[5].(*node.Switch)
	require.Len(t, sw.Cases, 2)
	assert.Equal(t, "paid", sw.Cases[0].Value)
	assert.Equal(t, []any{"void", "cancelled"}, sw.Cases[1].Values)
	assert.NotNil(t, sw.Default)

	each := root.Children[6].(*node.Each)
	assert.Equal(t, "note", each.As)
	assert.NotNil(t, each.Separator)
	assert.NotNil(t, each.Empty)
	assert.True(t, each.Template.(*node.Template).Wrap)

	stamp := root.Children[7].(*node.Text)
	assert.Equal(t, node.Position{Mode: node.Absolute, X: 360, Y: 720, Boundary: true}, stamp.Position)

	thanks := root.Children[8].(*node.Text)
	assert.True(t, thanks.Margin.AutoX)
	require.NotNil(t, thanks.Visible)
	assert.Equal(t, binding.OpEq, thanks.Visible.Op)

	assert.True(t, root.Children[9].Props().Break.Before)
}

func TestCompileErrors(t *testing.T) {
	cases := map[string]string{
		"no page":       `doc A v1 { meta { title: "x" } }`,
		"unknown size":  `doc A v1 { page tabloid { } }`,
		"unknown cmd":   `doc A v1 { page letter { image { } } }`,
		"bad pitch":     `doc A v1 { page letter { text pitch 11 { "x" } } }`,
		"style cycle":   `doc A v1 { resources { style A extends B { } ; style B extends A { } } page letter { } }`,
		"missing style": `doc A v1 { resources { style A extends Nope { } } page letter { } }`,
		"dangling else": `doc A v1 { page letter { else { text { "x" } } } }`,
		"bad operator":  `doc A v1 { page letter { if total approx 3 { text { "x" } } } }`,
		"grid no cols":  `doc A v1 { page letter { grid { row { text { "x" } } } } }`,
		"missing value": `doc A v1 { page letter { text align { "x" } } }`,
		"wide margins":  `doc A v1 { page receipt margin 2in { } }`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := CompileString(src, Options{})
			assert.Error(t, err)
		})
	}
}

func TestPagePresets(t *testing.T) {
	cases := []struct {
		src  string
		want Page
	}{
		{`letter`, Page{Size: "letter", Width: 3060, Height: 3960, Margin: node.Uniform(90)}},
		{`letter landscape`, Page{Size: "letter", Width: 3960, Height: 3060, Margin: node.Uniform(90), Landscape: true}},
		{`receipt`, Page{Size: "receipt", Width: 1134}},
		{`custom width 8in height 6in margin 0`, Page{Size: "custom", Width: 2880, Height: 2160}},
		{`a4 margin 10 20 30`, Page{Size: "a4", Width: 2976, Height: 4209, Margin: node.Edges{Top: 10, Right: 20, Bottom: 30, Left: 20}}},
	}
	for _, tc := range cases {
		c, err := CompileString("doc A v1 { page "+tc.src+" { } }", Options{DPI: 360})
		require.NoError(t, err, tc.src)
		assert.Equal(t, tc.want, c.Page, tc.src)
		assert.Equal(t, 0, c.Page.Box().Y)
	}
}

func TestVerticalTemplateUsesDynamicText(t *testing.T) {
	c, err := CompileString(`doc A v1 { page letter { text vertical { "{{ code }}" } } }`, Options{})
	require.NoError(t, err)
	txt := c.Root.(*node.Stack).Children[0].(*node.Text)
	assert.Equal(t, node.Vertical, txt.Orientation)
	require.NotNil(t, txt.Dynamic)
	got, err := txt.Dynamic(binding.NewContext(map[string]any{"code": "AB"}))
	require.NoError(t, err)
	assert.Equal(t, "AB", got)
}

func TestResolvePageSpec(t *testing.T) {
	p, err := ResolvePage("a4 landscape margin 10mm", 180)
	require.NoError(t, err)
	assert.Equal(t, 2105, p.Width)
	assert.Equal(t, 1488, p.Height)
	assert.Equal(t, node.Uniform(71), p.Margin)

	_, err = ResolvePage("  ", 180)
	assert.Error(t, err)
}
