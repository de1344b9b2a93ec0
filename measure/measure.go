// Package measure computes intrinsic sizes for a static node tree.
package measure

import (
	"fmt"
	"strings"

	"github.com/ByLCY/stylus/metrics"
	"github.com/ByLCY/stylus/node"
)

// Size 是可用空间（点）。Height<=0 表示不限高。
type Size struct {
	Width  int
	Height int
}

// Options 配置测量所需的协作者。
type Options struct {
	Metrics     metrics.Metrics
	LineSpacing int
}

// TextLine 是一行已测量的文本。
type TextLine struct {
	Text  string `json:"text"`
	Width int    `json:"width"`
}

// FlexLine 是换行 Flex 的一行：子节点区间 [Start, End)。
type FlexLine struct {
	Start  int `json:"start"`
	End    int `json:"end"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GridRow 是测量后的表格行。
type GridRow struct {
	Height       int     `json:"height"`
	Cells        []*Node `json:"cells"`
	KeepWithNext bool    `json:"keepWithNext,omitempty"`
	BreakBefore  bool    `json:"breakBefore,omitempty"`
}

// Node 是测量结果。Width/Height 是边框盒（内容 + padding），
// OuterWidth/OuterHeight 再加上 margin。
type Node struct {
	Source  node.Node          `json:"-"`
	Kind    node.Kind          `json:"kind"`
	Width   int                `json:"width"`
	Height  int                `json:"height"`
	Padding node.Edges         `json:"padding"`
	Margin  node.Margin        `json:"margin"`
	Style   node.ResolvedStyle `json:"style"`

	// WidthSet 表示宽度由声明决定（固定、百分比或 fill），而不是内容。
	WidthSet bool `json:"widthSet,omitempty"`
	// Flexible 表示在 Flex 中参与剩余空间均分（可伸缩 Spacer 或 fill 宽度）。
	Flexible bool `json:"flexible,omitempty"`

	Children   []*Node    `json:"children,omitempty"`
	Lines      []TextLine `json:"lines,omitempty"`
	LineHeight int        `json:"lineHeight,omitempty"`
	FlexLines  []FlexLine `json:"flexLines,omitempty"`
	Columns    []int      `json:"columns,omitempty"`
	Rows       []GridRow  `json:"rows,omitempty"`
}

// OuterWidth 是含 margin 的宽度。
func (m *Node) OuterWidth() int { return m.Width + m.Margin.Horizontal() }

// OuterHeight 是含 margin 的高度。
func (m *Node) OuterHeight() int { return m.Height + m.Margin.Vertical() }

// ContentWidth 是去掉 padding 后的宽度。
func (m *Node) ContentWidth() int { return max(0, m.Width-m.Padding.Horizontal()) }

// ContentHeight 是去掉 padding 后的高度。
func (m *Node) ContentHeight() int { return max(0, m.Height-m.Padding.Vertical()) }

// Base 返回源节点的共有字段。
func (m *Node) Base() *node.Base { return m.Source.Props() }

// InFlow 报告节点是否参与父容器的常规流。
func (m *Node) InFlow() bool { return m.Base().Position.Mode != node.Absolute }

// Measure 自底向上测量 n。avail 是 n 可占用的外部空间（含 margin）。
func Measure(n node.Node, avail Size, parent node.ResolvedStyle, opts Options) (*Node, error) {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(360)
	}
	if opts.LineSpacing <= 0 {
		opts.LineSpacing = metrics.DefaultLineSpacing(360)
	}
	ms := &measurer{opts: opts}
	return ms.measure(n, avail, parent, false)
}

type measurer struct {
	opts Options
}

// box 是单个节点在测量时的约束上下文。
type box struct {
	base     *node.Base
	style    node.ResolvedStyle
	padding  node.Edges
	margin   node.Margin
	width    int  // 已确定的边框盒宽度
	widthSet bool // width 是否来自声明
	contentW int  // 子节点可用宽度
	height   int
	heightOK bool
	contentH int
}

func (ms *measurer) prepare(n node.Node, avail Size, parent node.ResolvedStyle, inFlex bool) box {
	base := n.Props()
	b := box{
		base:    base,
		style:   base.Style.Resolve(parent),
		padding: base.Padding.Clamp(),
		margin:  node.Margin{Edges: base.Margin.Edges.Clamp(), AutoX: base.Margin.AutoX},
	}
	outerW := max(0, avail.Width-b.margin.Horizontal())
	switch {
	case base.Width.IsFixed():
		b.width, _ = base.Width.Resolve(avail.Width)
		b.widthSet = true
	case base.Width.IsFill() && !inFlex:
		b.width = outerW
		b.widthSet = true
	}
	if b.widthSet {
		b.width = base.ClampWidth(b.width)
		b.contentW = max(0, b.width-b.padding.Horizontal())
	} else {
		limit := outerW
		if base.MaxWidth > 0 && base.MaxWidth < limit {
			limit = base.MaxWidth
		}
		b.contentW = max(0, limit-b.padding.Horizontal())
	}

	outerH := max(0, avail.Height-b.margin.Vertical())
	switch {
	case base.Height.IsFixed():
		b.height, _ = base.Height.Resolve(avail.Height)
		b.heightOK = true
	case base.Height.IsFill() && avail.Height > 0:
		b.height = outerH
		b.heightOK = true
	}
	if b.heightOK {
		b.height = base.ClampHeight(b.height)
		b.contentH = max(0, b.height-b.padding.Vertical())
	} else if avail.Height > 0 {
		b.contentH = max(0, outerH-b.padding.Vertical())
	}
	return b
}

// finish 由内容尺寸得出最终边框盒。
func (b box) finish(n node.Node, contentW, contentH int) *Node {
	w := b.width
	if !b.widthSet {
		w = b.base.ClampWidth(contentW + b.padding.Horizontal())
	}
	h := b.height
	if !b.heightOK {
		h = b.base.ClampHeight(contentH + b.padding.Vertical())
	}
	return &Node{
		Source:   n,
		Kind:     n.Kind(),
		Width:    max(0, w),
		Height:   max(0, h),
		Padding:  b.padding,
		Margin:   b.margin,
		Style:    b.style,
		WidthSet: b.widthSet,
	}
}

func (ms *measurer) measure(n node.Node, avail Size, parent node.ResolvedStyle, inFlex bool) (*Node, error) {
	if n == nil {
		return nil, fmt.Errorf("measure: nil node")
	}
	if node.Resolvable(n.Kind()) {
		return nil, node.Unresolved(n)
	}
	b := ms.prepare(n, avail, parent, inFlex)
	var (
		out *Node
		err error
	)
	switch v := n.(type) {
	case *node.Text:
		out = ms.measureText(v, b)
	case *node.Spacer:
		out = b.finish(n, 0, 0)
		out.Flexible = v.Flexible
	case *node.Line:
		out = ms.measureLine(v, b)
	case *node.Stack:
		out, err = ms.measureStack(v, b)
	case *node.Flex:
		out, err = ms.measureFlex(v, b)
	case *node.Grid:
		out, err = ms.measureGrid(v, b)
	default:
		return nil, fmt.Errorf("%w: %T", node.ErrUnknownKind, n)
	}
	if err != nil {
		return nil, err
	}
	if inFlex && n.Props().Width.IsFill() {
		out.Flexible = true
	}
	return out, nil
}

func (ms *measurer) lineHeight(st node.ResolvedStyle) int {
	return metrics.LineHeight(st, ms.opts.LineSpacing)
}

func (ms *measurer) measureText(t *node.Text, b box) *Node {
	lh := ms.lineHeight(b.style)
	if t.Orientation == node.Vertical {
		widest, count := 0, 0
		for _, r := range t.Content {
			if r == '\n' {
				continue
			}
			widest = max(widest, metrics.RuneWidth(ms.opts.Metrics, r, b.style))
			count++
		}
		out := b.finish(t, widest, count*lh)
		out.LineHeight = lh
		out.Lines = []TextLine{{Text: strings.ReplaceAll(t.Content, "\n", ""), Width: widest}}
		return out
	}

	var lines []TextLine
	for _, raw := range strings.Split(t.Content, "\n") {
		if t.Wrap {
			lines = append(lines, ms.wrap(raw, b.contentW, b.style)...)
			continue
		}
		lines = append(lines, TextLine{Text: raw, Width: metrics.TextWidth(ms.opts.Metrics, raw, b.style)})
	}
	widest := 0
	for _, ln := range lines {
		widest = max(widest, ln.Width)
	}
	out := b.finish(t, widest, len(lines)*lh)
	out.Lines = lines
	out.LineHeight = lh
	return out
}

// wrap 按空格断行；单词本身超宽时独占一行，交由渲染阶段截断。
func (ms *measurer) wrap(s string, width int, st node.ResolvedStyle) []TextLine {
	words := strings.Fields(s)
	if len(words) == 0 || width <= 0 {
		return []TextLine{{Text: s, Width: metrics.TextWidth(ms.opts.Metrics, s, st)}}
	}
	space := metrics.RuneWidth(ms.opts.Metrics, ' ', st)
	var (
		lines []TextLine
		cur   strings.Builder
		curW  int
	)
	for _, word := range words {
		ww := metrics.TextWidth(ms.opts.Metrics, word, st)
		if cur.Len() > 0 && curW+space+ww > width {
			lines = append(lines, TextLine{Text: cur.String(), Width: curW})
			cur.Reset()
			curW = 0
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
			curW += space
		}
		cur.WriteString(word)
		curW += ww
	}
	lines = append(lines, TextLine{Text: cur.String(), Width: curW})
	return lines
}

func (ms *measurer) measureLine(l *node.Line, b box) *Node {
	w := b.contentW
	if length, ok := l.Length.Resolve(b.contentW); ok {
		w = length
	}
	out := b.finish(l, w, ms.lineHeight(b.style))
	out.LineHeight = ms.lineHeight(b.style)
	return out
}

func (ms *measurer) measureStack(s *node.Stack, b box) (*Node, error) {
	var (
		children []*Node
		contentW int
		contentH int
		flowed   int
	)
	remaining := b.contentW
	for _, child := range s.Children {
		if child == nil {
			continue
		}
		avail := Size{Width: b.contentW, Height: b.contentH}
		if s.Direction == node.DirRow && child.Props().Position.Mode != node.Absolute {
			avail.Width = max(0, remaining)
		}
		m, err := ms.measure(child, avail, b.style, false)
		if err != nil {
			return nil, err
		}
		children = append(children, m)
		if !m.InFlow() {
			continue
		}
		gap := 0
		if flowed > 0 {
			gap = max(0, s.Gap)
		}
		flowed++
		if s.Direction == node.DirRow {
			contentW += gap + m.OuterWidth()
			contentH = max(contentH, m.OuterHeight())
			remaining -= gap + m.OuterWidth()
		} else {
			contentH += gap + m.OuterHeight()
			contentW = max(contentW, m.OuterWidth())
		}
	}
	out := b.finish(s, contentW, contentH)
	out.Children = children
	return out, nil
}

func (ms *measurer) measureFlex(f *node.Flex, b box) (*Node, error) {
	var (
		children []*Node
		flow     []*Node
	)
	for _, child := range f.Children {
		if child == nil {
			continue
		}
		m, err := ms.measure(child, Size{Width: b.contentW, Height: b.contentH}, b.style, true)
		if err != nil {
			return nil, err
		}
		children = append(children, m)
		if m.InFlow() {
			flow = append(flow, m)
		}
	}
	gap := max(0, f.Gap)

	if !f.Wrap {
		contentW, contentH := 0, 0
		for i, m := range flow {
			if i > 0 {
				contentW += gap
			}
			contentW += m.OuterWidth()
			contentH = max(contentH, m.OuterHeight())
		}
		out := b.finish(f, contentW, contentH)
		out.Children = children
		return out, nil
	}

	lines := BreakLines(flow, b.contentW, gap)
	contentW, contentH := 0, 0
	for i, ln := range lines {
		if i > 0 {
			contentH += max(0, f.RowGap)
		}
		contentH += ln.Height
		contentW = max(contentW, ln.Width)
	}
	out := b.finish(f, contentW, contentH)
	out.Children = children
	out.FlexLines = lines
	return out, nil
}

// BreakLines 按可用宽度把 flow 中的节点分成多行，每行至少一个节点。
// 返回的区间是 flow 的下标。
func BreakLines(flow []*Node, width, gap int) []FlexLine {
	var lines []FlexLine
	cur := FlexLine{}
	for i, m := range flow {
		w := m.OuterWidth()
		if i > cur.Start && cur.Width+gap+w > width {
			cur.End = i
			lines = append(lines, cur)
			cur = FlexLine{Start: i}
		}
		if i > cur.Start {
			cur.Width += gap
		}
		cur.Width += w
		cur.Height = max(cur.Height, m.OuterHeight())
	}
	if len(flow) > 0 {
		cur.End = len(flow)
		lines = append(lines, cur)
	}
	return lines
}
