package dsl

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/ByLCY/stylus/binding"
	"github.com/ByLCY/stylus/node"
)

// ErrNoPage 表示文档中没有 page 段。
var ErrNoPage = errors.New("文档缺少 page 段")

// Options 配置编译。DPI 用于把物理单位换算为点。
type Options struct {
	DPI     int
	Filters binding.Filters
}

// Compiled 是编译结果：元数据、纸张与待 resolve 的节点树。
type Compiled struct {
	Name    string    `json:"name"`
	Version string    `json:"version"`
	Meta    Meta      `json:"meta"`
	Page    Page      `json:"page"`
	Root    node.Node `json:"-"`
}

// CompileString 解析并编译文档源码。
func CompileString(src string, opts Options) (*Compiled, error) {
	doc, err := ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("解析文档失败: %w", err)
	}
	return Compile(doc, opts)
}

// CompileReader 同 CompileString。
func CompileReader(r io.Reader, opts Options) (*Compiled, error) {
	doc, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析文档失败: %w", err)
	}
	return Compile(doc, opts)
}

// Compile 把 AST 编译为节点树。只编译第一个 page 段，其内容作为纵向根 Stack 的子节点。
func Compile(doc *Document, opts Options) (*Compiled, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	if opts.DPI <= 0 {
		opts.DPI = 360
	}
	styles, err := collectStyles(doc)
	if err != nil {
		return nil, err
	}
	section := firstPage(doc)
	if section == nil {
		return nil, ErrNoPage
	}
	page, err := resolvePage(section.Spec, opts.DPI)
	if err != nil {
		return nil, err
	}

	c := &compiler{dpi: opts.DPI, styles: styles, filters: opts.Filters}
	children, err := c.block(section.Block)
	if err != nil {
		return nil, err
	}
	root := &node.Stack{Direction: node.DirColumn, Children: children}
	if err := applyBase(&root.Base, blockAssignments(section.Block), opts.DPI); err != nil {
		return nil, fmt.Errorf("page: %w", err)
	}
	return &Compiled{
		Name:    doc.Name,
		Version: doc.Version,
		Meta:    collectMeta(doc),
		Page:    page,
		Root:    root,
	}, nil
}

func firstPage(doc *Document) *PageSection {
	for _, section := range doc.Sections {
		if section.Page != nil {
			return section.Page
		}
	}
	return nil
}

type compiler struct {
	dpi     int
	styles  map[string]styleDef
	filters binding.Filters
}

// block 编译块内语句；elif/else 挂到紧邻的 if 上。
func (c *compiler) block(b *Block) ([]node.Node, error) {
	if b == nil {
		return nil, nil
	}
	var (
		out  []node.Node
		last *node.Conditional
	)
	for _, stmt := range b.Statements {
		switch {
		case stmt.Text != nil:
			out = append(out, c.textNode(string(*stmt.Text), attrs{}))
			last = nil
		case stmt.Command != nil:
			cmd := stmt.Command
			switch cmd.Name {
			case "elif", "else":
				if last == nil {
					return nil, fmt.Errorf("第 %d 行：%s 之前缺少 if", cmd.Pos.Line, cmd.Name)
				}
				done, err := c.branch(last, cmd)
				if err != nil {
					return nil, err
				}
				if done {
					last = nil
				}
				continue
			}
			n, err := c.command(cmd)
			if err != nil {
				return nil, err
			}
			last, _ = n.(*node.Conditional)
			if n != nil {
				out = append(out, n)
			}
		}
	}
	return out, nil
}

func (c *compiler) branch(cond *node.Conditional, cmd *Command) (bool, error) {
	body, err := c.body(cmd.Block)
	if err != nil {
		return false, err
	}
	if cmd.Name == "else" {
		cond.Else = body
		return true, nil
	}
	when, err := conditionArgs(cmd.Args)
	if err != nil {
		return false, fmt.Errorf("第 %d 行：%w", cmd.Pos.Line, err)
	}
	cond.ElseIf = append(cond.ElseIf, node.Branch{When: when, Node: body})
	return false, nil
}

// body 把块编译为单个节点：一个子节点时直接返回，多个时包一层纵向 Stack。
func (c *compiler) body(b *Block) (node.Node, error) {
	children, err := c.block(b)
	if err != nil {
		return nil, err
	}
	switch len(children) {
	case 0:
		return nil, nil
	case 1:
		return children[0], nil
	}
	return &node.Stack{Direction: node.DirColumn, Children: children}, nil
}

func (c *compiler) command(cmd *Command) (node.Node, error) {
	var (
		n   node.Node
		err error
	)
	switch cmd.Name {
	case "stack":
		n, err = c.stack(cmd, "")
	case "row", "column":
		n, err = c.stack(cmd, cmd.Name)
	case "flex":
		n, err = c.flex(cmd)
	case "grid":
		n, err = c.grid(cmd)
	case "text", "template":
		n, err = c.text(cmd)
	case "spacer":
		n, err = c.spacer(cmd)
	case "break":
		n = &node.Spacer{Base: node.Base{Break: node.Break{Before: true}}}
	case "line":
		n, err = c.line(cmd)
	case "if":
		n, err = c.conditional(cmd)
	case "switch":
		n, err = c.switchNode(cmd)
	case "each":
		n, err = c.each(cmd)
	default:
		return nil, fmt.Errorf("第 %d 行：未知的命令 %s", cmd.Pos.Line, cmd.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("第 %d 行 %s: %w", cmd.Pos.Line, cmd.Name, err)
	}
	return n, nil
}

// attrs 合并命名样式、命令参数与块内赋值。
func (c *compiler) attrs(args []*Lexeme, block *Block) (attrs, error) {
	style, inline, err := parseArgs(args, c.styles)
	if err != nil {
		return nil, err
	}
	return mergeStyleAttributes(style, c.styles, inline, blockAssignments(block)), nil
}

func (c *compiler) stack(cmd *Command, direction string) (node.Node, error) {
	a, err := c.attrs(cmd.Args, cmd.Block)
	if err != nil {
		return nil, err
	}
	if direction != "" {
		a["direction"] = direction
	}
	s := &node.Stack{}
	if err := applyBase(&s.Base, a, c.dpi); err != nil {
		return nil, err
	}
	if a["direction"] == "row" {
		s.Direction = node.DirRow
	}
	if s.Gap, err = a.dots("gap", c.dpi); err != nil {
		return nil, err
	}
	if s.Align, err = parseAlign(a["align"]); err != nil {
		return nil, err
	}
	if s.VAlign, err = parseVAlign(a["valign"]); err != nil {
		return nil, err
	}
	s.Children, err = c.block(cmd.Block)
	return s, err
}

func (c *compiler) flex(cmd *Command) (node.Node, error) {
	a, err := c.attrs(cmd.Args, cmd.Block)
	if err != nil {
		return nil, err
	}
	f := &node.Flex{}
	if err := applyBase(&f.Base, a, c.dpi); err != nil {
		return nil, err
	}
	if f.Justify, err = parseJustify(a["justify"]); err != nil {
		return nil, err
	}
	if f.AlignItems, err = parseVAlign(a["align-items"]); err != nil {
		return nil, err
	}
	if f.Gap, err = a.dots("gap", c.dpi); err != nil {
		return nil, err
	}
	if f.RowGap, err = a.dots("row-gap", c.dpi); err != nil {
		return nil, err
	}
	if f.Wrap, err = a.boolean("wrap"); err != nil {
		return nil, err
	}
	f.Children, err = c.block(cmd.Block)
	return f, err
}

// grid 的块中只允许 columns 与 row；row 可以用 each 声明为模板行。
func (c *compiler) grid(cmd *Command) (node.Node, error) {
	a, err := c.attrs(cmd.Args, cmd.Block)
	if err != nil {
		return nil, err
	}
	g := &node.Grid{}
	if err := applyBase(&g.Base, a, c.dpi); err != nil {
		return nil, err
	}
	if g.ColumnGap, err = a.dots("column-gap", c.dpi); err != nil {
		return nil, err
	}
	if g.RowGap, err = a.dots("row-gap", c.dpi); err != nil {
		return nil, err
	}
	if cmd.Block == nil {
		return g, nil
	}
	for _, stmt := range cmd.Block.Statements {
		sub := stmt.Command
		if sub == nil {
			continue
		}
		switch sub.Name {
		case "columns":
			cols, err := c.columns(sub)
			if err != nil {
				return nil, err
			}
			g.Columns = append(g.Columns, cols...)
		case "row":
			row, err := c.gridRow(sub)
			if err != nil {
				return nil, err
			}
			g.Rows = append(g.Rows, row)
		default:
			return nil, fmt.Errorf("第 %d 行：grid 中不支持 %s", sub.Pos.Line, sub.Name)
		}
	}
	if len(g.Columns) == 0 {
		return nil, fmt.Errorf("grid 缺少 columns")
	}
	return g, nil
}

// columns 中每条 column 的第一个参数是宽度，其后是 key value。
func (c *compiler) columns(cmd *Command) ([]node.Column, error) {
	if cmd.Block == nil {
		return nil, nil
	}
	var out []node.Column
	for _, stmt := range cmd.Block.Statements {
		sub := stmt.Command
		if sub == nil {
			continue
		}
		if sub.Name != "column" {
			return nil, fmt.Errorf("第 %d 行：columns 中不支持 %s", sub.Pos.Line, sub.Name)
		}
		args := sub.Args
		var col node.Column
		if len(args) > 0 && (args[0].Type == tokNumber || args[0].Value == "fill" || args[0].Value == "auto") {
			d, err := ParseDimension(args[0].Value, c.dpi)
			if err != nil {
				return nil, err
			}
			col.Width = d
			args = args[1:]
		}
		a, err := c.attrs(args, sub.Block)
		if err != nil {
			return nil, err
		}
		if a.has("width") {
			if col.Width, err = a.dimension("width", c.dpi); err != nil {
				return nil, err
			}
		}
		if col.Align, err = parseAlign(a["align"]); err != nil {
			return nil, err
		}
		out = append(out, col)
	}
	return out, nil
}

func (c *compiler) gridRow(cmd *Command) (node.Row, error) {
	style, inline, err := parseArgs(cmd.Args, c.styles)
	if err != nil {
		return node.Row{}, err
	}
	a := inline
	row := node.Row{Each: a["each"], As: a["as"], IndexAs: a["index"]}
	if row.Height, err = a.dimension("height", c.dpi); err != nil {
		return node.Row{}, err
	}
	if row.KeepWithNext, err = a.boolean("keep-with-next"); err != nil {
		return node.Row{}, err
	}
	if row.BreakBefore, err = a.boolean("break-before"); err != nil {
		return node.Row{}, err
	}
	cells, err := c.block(cmd.Block)
	if err != nil {
		return node.Row{}, err
	}
	// 行上的样式作用于每个单元格
	if style != "" {
		for _, cell := range cells {
			merged := mergeStyleAttributes(style, c.styles)
			st, err := parseStyle(merged)
			if err != nil {
				return node.Row{}, err
			}
			cell.Props().Style = st.Merge(cell.Props().Style)
		}
	}
	row.Cells = cells
	return row, nil
}

func (c *compiler) text(cmd *Command) (node.Node, error) {
	a, err := c.attrs(cmd.Args, cmd.Block)
	if err != nil {
		return nil, err
	}
	content := extractText(cmd.Block)
	if v, ok := a["content"]; ok && content == "" {
		content = v
	}
	if cmd.Name == "template" {
		a["template"] = "true"
	}
	n := c.textNode(content, a)
	if err := c.textAttrs(n, a); err != nil {
		return nil, err
	}
	return n, nil
}

// textNode 含 {{ }} 占位符的内容编译为 Template，竖排文本改用 Dynamic 求值。
func (c *compiler) textNode(content string, a attrs) node.Node {
	dynamic := a["template"] == "true" || binding.HasExpressions(content)
	if !dynamic {
		return &node.Text{Content: content}
	}
	if a["vertical"] == "true" {
		filters := c.filters
		return &node.Text{
			Content: content,
			Dynamic: func(dc binding.Context) (string, error) {
				return binding.Interpolate(content, dc, filters), nil
			},
		}
	}
	return &node.Template{Format: content}
}

func (c *compiler) textAttrs(n node.Node, a attrs) error {
	if err := applyBase(n.Props(), a, c.dpi); err != nil {
		return err
	}
	align, err := parseAlign(a["align"])
	if err != nil {
		return err
	}
	overflow, err := parseOverflow(a["overflow"])
	if err != nil {
		return err
	}
	wrap, err := a.boolean("wrap")
	if err != nil {
		return err
	}
	ellipsis := a["ellipsis"]
	switch v := n.(type) {
	case *node.Text:
		v.Align, v.Overflow, v.Ellipsis, v.Wrap = align, overflow, ellipsis, wrap
		if a["vertical"] == "true" {
			v.Orientation = node.Vertical
		}
	case *node.Template:
		v.Align, v.Overflow, v.Ellipsis, v.Wrap = align, overflow, ellipsis, wrap
	}
	return nil
}

func (c *compiler) spacer(cmd *Command) (node.Node, error) {
	a, err := c.attrs(cmd.Args, cmd.Block)
	if err != nil {
		return nil, err
	}
	s := &node.Spacer{}
	if err := applyBase(&s.Base, a, c.dpi); err != nil {
		return nil, err
	}
	s.Flexible, err = a.boolean("flex")
	return s, err
}

func (c *compiler) line(cmd *Command) (node.Node, error) {
	a, err := c.attrs(cmd.Args, cmd.Block)
	if err != nil {
		return nil, err
	}
	l := &node.Line{Char: '-'}
	if err := applyBase(&l.Base, a, c.dpi); err != nil {
		return nil, err
	}
	if l.Length, err = a.dimension("length", c.dpi); err != nil {
		return nil, err
	}
	if ch, ok := a["char"]; ok {
		if utf8.RuneCountInString(ch) != 1 {
			return nil, fmt.Errorf("char 必须是单个字符，实际为 %q", ch)
		}
		l.Char, _ = utf8.DecodeRuneInString(ch)
	}
	return l, nil
}

func (c *compiler) conditional(cmd *Command) (node.Node, error) {
	when, err := conditionArgs(cmd.Args)
	if err != nil {
		return nil, err
	}
	then, err := c.body(cmd.Block)
	if err != nil {
		return nil, err
	}
	return &node.Conditional{If: when, Then: then}, nil
}

// switchNode 的块中只允许 case 与 default；case 有多个取值时任一匹配即可。
func (c *compiler) switchNode(cmd *Command) (node.Node, error) {
	if len(cmd.Args) != 1 {
		return nil, fmt.Errorf("switch 需要一个路径")
	}
	s := &node.Switch{Path: cmd.Args[0].Value}
	if cmd.Block == nil {
		return s, nil
	}
	for _, stmt := range cmd.Block.Statements {
		sub := stmt.Command
		if sub == nil {
			continue
		}
		body, err := c.body(sub.Block)
		if err != nil {
			return nil, err
		}
		switch sub.Name {
		case "case":
			if len(sub.Args) == 0 {
				return nil, fmt.Errorf("第 %d 行：case 缺少取值", sub.Pos.Line)
			}
			cs := node.Case{Node: body}
			if len(sub.Args) == 1 {
				cs.Value = literal(sub.Args[0])
			} else {
				for _, l := range sub.Args {
					cs.Values = append(cs.Values, literal(l))
				}
			}
			s.Cases = append(s.Cases, cs)
		case "default":
			s.Default = body
		default:
			return nil, fmt.Errorf("第 %d 行：switch 中不支持 %s", sub.Pos.Line, sub.Name)
		}
	}
	return s, nil
}

// each 的块中 separator 与 empty 是特殊子块，其余语句构成模板。
func (c *compiler) each(cmd *Command) (node.Node, error) {
	if len(cmd.Args) == 0 {
		return nil, fmt.Errorf("each 缺少路径")
	}
	_, a, err := parseArgs(cmd.Args[1:], nil)
	if err != nil {
		return nil, err
	}
	e := &node.Each{Path: cmd.Args[0].Value, As: a["as"], IndexAs: a["index"]}
	delete(a, "as")
	delete(a, "index")
	if err := applyBase(&e.Base, a, c.dpi); err != nil {
		return nil, err
	}

	tmpl := &Block{}
	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			sub := stmt.Command
			if sub != nil && (sub.Name == "separator" || sub.Name == "empty") {
				body, err := c.body(sub.Block)
				if err != nil {
					return nil, err
				}
				if sub.Name == "separator" {
					e.Separator = body
				} else {
					e.Empty = body
				}
				continue
			}
			tmpl.Statements = append(tmpl.Statements, stmt)
		}
	}
	if e.Template, err = c.body(tmpl); err != nil {
		return nil, err
	}
	if e.Template == nil {
		return nil, fmt.Errorf("each 缺少模板内容")
	}
	return e, nil
}

func (c *Compiled) String() string {
	return fmt.Sprintf("%s %s (%s %dx%d)", c.Name, c.Version, c.Page.Size, c.Page.Width, c.Page.Height)
}
