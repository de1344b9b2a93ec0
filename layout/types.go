package layout

import "github.com/ByLCY/stylus/node"

// 该文件定义布局结果，供分页、渲染、预览与调试 JSON 共用。坐标单位均为点。

// Kind 是布局结果的类型。GridRow 由 Grid 展开，不对应源节点。
type Kind uint8

const (
	KindStack Kind = iota + 1
	KindFlex
	KindGrid
	KindGridRow
	KindText
	KindSpacer
	KindRule
)

var kindNames = map[Kind]string{
	KindStack:   "stack",
	KindFlex:    "flex",
	KindGrid:    "grid",
	KindGridRow: "grid-row",
	KindText:    "text",
	KindSpacer:  "spacer",
	KindRule:    "rule",
}

func (k Kind) String() string { return kindNames[k] }

// MarshalText 让调试 JSON 输出可读的类型名。
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Leaf 报告是否为叶子类型。
func (k Kind) Leaf() bool {
	return k == KindText || k == KindSpacer || k == KindRule
}

// Box 是布局起点与可用区域，通常是页面的可打印宽度。
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Point 是仅在绘制时生效的偏移。
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Span 是水平区间 [Left, Right)。
type Span struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Width 返回区间宽度。
func (s Span) Width() int { return max(0, s.Right-s.Left) }

// TextRun 是文本叶子的内容。
type TextRun struct {
	Lines      []string      `json:"lines"`
	LineHeight int           `json:"lineHeight"`
	Align      node.Align    `json:"align,omitempty"`
	Overflow   node.Overflow `json:"overflow,omitempty"`
	Ellipsis   string        `json:"ellipsis,omitempty"`
	Vertical   bool          `json:"vertical,omitempty"`
}

// Rule 是横线叶子：Length 点长，用 Char 重复填充。
type Rule struct {
	Length int  `json:"length"`
	Char   rune `json:"char"`
}

// Result 是定位后的节点。X/Y/Width/Height 是边框盒。
type Result struct {
	Kind     Kind               `json:"kind"`
	X        int                `json:"x"`
	Y        int                `json:"y"`
	Width    int                `json:"width"`
	Height   int                `json:"height"`
	Padding  node.Edges         `json:"padding"`
	Style    node.ResolvedStyle `json:"style"`
	Children []*Result          `json:"children,omitempty"`

	// Offset 是相对定位的绘制偏移，不影响兄弟节点与分页。
	Offset *Point `json:"offset,omitempty"`
	// CellAlign 是表格单元格的列对齐，由渲染阶段应用。
	CellAlign node.Align `json:"cellAlign,omitempty"`

	Text *TextRun `json:"text,omitempty"`
	Rule *Rule    `json:"rule,omitempty"`

	// Bound 是最近的宽度受限祖先的内容区间。
	Bound *Span `json:"bound,omitempty"`
	// Constrained 表示本节点宽度来自声明，会约束后代。
	Constrained bool `json:"constrained,omitempty"`

	Break        node.Break        `json:"break,omitempty"`
	KeepWithNext bool              `json:"keepWithNext,omitempty"`
	Position     node.PositionMode `json:"position,omitempty"`
}

// ContentX 是内容区左边界。
func (r *Result) ContentX() int { return r.X + r.Padding.Left }

// ContentY 是内容区上边界。
func (r *Result) ContentY() int { return r.Y + r.Padding.Top }

// ContentWidth 是内容区宽度。
func (r *Result) ContentWidth() int { return max(0, r.Width-r.Padding.Horizontal()) }

// ContentHeight 是内容区高度。
func (r *Result) ContentHeight() int { return max(0, r.Height-r.Padding.Vertical()) }

// Bottom 是边框盒下边界。
func (r *Result) Bottom() int { return r.Y + r.Height }

// ContentSpan 返回内容区的水平区间。
func (r *Result) ContentSpan() Span {
	return Span{Left: r.ContentX(), Right: r.ContentX() + r.ContentWidth()}
}

// Clone 深拷贝子树。
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	if r.Offset != nil {
		off := *r.Offset
		out.Offset = &off
	}
	if r.Bound != nil {
		b := *r.Bound
		out.Bound = &b
	}
	if r.Text != nil {
		txt := *r.Text
		txt.Lines = append([]string(nil), r.Text.Lines...)
		out.Text = &txt
	}
	if r.Rule != nil {
		rule := *r.Rule
		out.Rule = &rule
	}
	if len(r.Children) > 0 {
		out.Children = make([]*Result, len(r.Children))
		for i, c := range r.Children {
			out.Children[i] = c.Clone()
		}
	}
	return &out
}

// Translate 把子树整体在垂直方向移动 dy（原地修改，调用方应先 Clone）。
func (r *Result) Translate(dy int) {
	if r == nil || dy == 0 {
		return
	}
	r.Y += dy
	for _, c := range r.Children {
		c.Translate(dy)
	}
}

// Walk 先序遍历。
func (r *Result) Walk(fn func(*Result) bool) {
	if r == nil || !fn(r) {
		return
	}
	for _, c := range r.Children {
		c.Walk(fn)
	}
}
