// Package markdown converts Markdown documents into printable node trees.
package markdown

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ByLCY/stylus/metrics"
	"github.com/ByLCY/stylus/node"
)

// Options 控制转换。零值按 360 dpi 处理。
type Options struct {
	DPI int
	// Gap 是块之间的空白（点），默认一行。
	Gap int
	// Indent 是代码块、引用与嵌套列表的缩进（点），默认 0.3 英寸。
	Indent int
	// Bullet 是无序列表的项目符号，默认 "-"。
	Bullet string
}

func (o Options) withDefaults() Options {
	if o.DPI <= 0 {
		o.DPI = 360
	}
	if o.Gap <= 0 {
		o.Gap = metrics.DefaultLineSpacing(o.DPI)
	}
	if o.Indent <= 0 {
		o.Indent = o.DPI * 3 / 10
	}
	if o.Bullet == "" {
		o.Bullet = "-"
	}
	return o
}

// Document 是转换结果。Title 取第一个一级标题。
type Document struct {
	Title string
	Root  node.Node
}

// Convert 读取 Markdown 并生成纵向 Stack。
func Convert(r io.Reader, opts Options) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取 Markdown 失败: %w", err)
	}
	return ConvertBytes(src, opts), nil
}

// ConvertBytes 同 Convert。
func ConvertBytes(src []byte, opts Options) *Document {
	opts = opts.withDefaults()
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	c := &converter{src: src, opts: opts}
	root := &node.Stack{Direction: node.DirColumn, Gap: opts.Gap, Children: c.blocks(doc)}
	return &Document{Title: c.title, Root: root}
}

type converter struct {
	src   []byte
	opts  Options
	title string
}

func (c *converter) blocks(parent ast.Node) []node.Node {
	var out []node.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if res := c.block(n); res != nil {
			out = append(out, res)
		}
	}
	return out
}

func (c *converter) block(n ast.Node) node.Node {
	switch v := n.(type) {
	case *ast.Heading:
		content := extractText(v, c.src)
		if v.Level == 1 && c.title == "" {
			c.title = content
		}
		return heading(content, v.Level)
	case *ast.Paragraph, *ast.TextBlock:
		return c.paragraph(n)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return c.code(n)
	case *ast.ThematicBreak:
		return &node.Line{Char: '-'}
	case *ast.Blockquote:
		return &node.Stack{
			Base:      node.Base{Padding: node.Edges{Left: c.opts.Indent}, Style: node.Style{Italic: node.Ptr(true)}},
			Direction: node.DirColumn,
			Gap:       c.opts.Gap,
			Children:  c.blocks(v),
		}
	case *ast.List:
		return c.list(v)
	case *east.Table:
		return c.table(v)
	}
	// HTML 块等无法打印的内容忽略
	return nil
}

func heading(content string, level int) node.Node {
	st := node.Style{Bold: node.Ptr(true)}
	switch level {
	case 1:
		st.DoubleWidth = node.Ptr(true)
	case 2:
		st.Underline = node.Ptr(true)
	}
	return &node.Text{
		Base:     node.Base{Style: st, Break: node.Break{KeepTogether: true}},
		Content:  content,
		Wrap:     true,
		Overflow: node.OverflowEllipsis,
	}
}

// paragraph 只有一个强调子节点时整段套用强调样式。
func (c *converter) paragraph(n ast.Node) node.Node {
	content := extractText(n, c.src)
	if content == "" {
		return nil
	}
	t := &node.Text{Content: content, Wrap: true}
	if only := n.FirstChild(); only != nil && only.NextSibling() == nil {
		if em, ok := only.(*ast.Emphasis); ok {
			if em.Level >= 2 {
				t.Style.Bold = node.Ptr(true)
			} else {
				t.Style.Italic = node.Ptr(true)
			}
		}
	}
	return t
}

func (c *converter) code(n ast.Node) node.Node {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(c.src))
	}
	content := strings.TrimRight(buf.String(), "\n")
	return &node.Text{
		Base:     node.Base{Padding: node.Edges{Left: c.opts.Indent}, Break: node.Break{KeepTogether: true}},
		Content:  strings.ReplaceAll(content, "\t", "    "),
		Overflow: node.OverflowClip,
	}
}

// list 用两列 Grid 排版：标记列按最宽标记取宽，内容列占满剩余宽度。
func (c *converter) list(l *ast.List) node.Node {
	g := &node.Grid{
		Columns:   []node.Column{{Align: node.AlignRight}, {Width: node.Fill()}},
		ColumnGap: c.opts.DPI / 10,
	}
	index := l.Start
	if index == 0 {
		index = 1
	}
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := c.opts.Bullet
		if l.IsOrdered() {
			marker = fmt.Sprintf("%d%c", index, l.Marker)
			index++
		}
		children := c.blocks(item)
		var body node.Node = &node.Spacer{}
		switch len(children) {
		case 0:
		case 1:
			body = children[0]
		default:
			body = &node.Stack{Direction: node.DirColumn, Children: children}
		}
		g.Rows = append(g.Rows, node.Row{Cells: []node.Node{&node.Text{Content: marker}, body}})
	}
	return g
}

// table 的列宽均分，表头加粗并与第一行同页。
func (c *converter) table(t *east.Table) node.Node {
	g := &node.Grid{ColumnGap: c.opts.DPI / 10}
	for _, a := range t.Alignments {
		g.Columns = append(g.Columns, node.Column{Width: node.Fill(), Align: cellAlign(a)})
	}
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		_, header := row.(*east.TableHeader)
		var cells []node.Node
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			txt := &node.Text{Content: extractText(cell, c.src), Overflow: node.OverflowEllipsis}
			if header {
				txt.Style = node.Style{Bold: node.Ptr(true), Underline: node.Ptr(true)}
			}
			cells = append(cells, txt)
		}
		g.Rows = append(g.Rows, node.Row{Cells: cells, KeepWithNext: header})
	}
	return g
}

func cellAlign(a east.Alignment) node.Align {
	switch a {
	case east.AlignLeft:
		return node.AlignLeft
	case east.AlignCenter:
		return node.AlignCenter
	case east.AlignRight:
		return node.AlignRight
	}
	return node.AlignUnset
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			buf.Write(v.Value(src))
			if v.HardLineBreak() {
				buf.WriteByte('\n')
			} else if v.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(v.Value)
		case *ast.AutoLink:
			buf.Write(v.URL(src))
		default:
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
