package node

import "github.com/ByLCY/stylus/binding"

// DimKind 区分尺寸的声明方式。
type DimKind uint8

const (
	DimAuto    DimKind = iota // 由内容决定
	DimDots                   // 固定点数
	DimFill                   // 占满剩余空间
	DimPercent                // 可用空间的百分比
)

// Dimension 是宽/高声明。零值为 Auto。
type Dimension struct {
	Kind  DimKind `json:"kind"`
	Value float64 `json:"value,omitempty"`
}

func Auto() Dimension             { return Dimension{Kind: DimAuto} }
func Dots(n int) Dimension        { return Dimension{Kind: DimDots, Value: float64(n)} }
func Fill() Dimension             { return Dimension{Kind: DimFill} }
func Percent(p float64) Dimension { return Dimension{Kind: DimPercent, Value: p} }

func (d Dimension) IsAuto() bool   { return d.Kind == DimAuto }
func (d Dimension) IsFill() bool   { return d.Kind == DimFill }
func (d Dimension) IsFixed() bool  { return d.Kind == DimDots || d.Kind == DimPercent }
func (d Dimension) Explicit() bool { return d.Kind != DimAuto }

// Resolve 把固定值或百分比换算为点数；Auto/Fill 返回 false。
func (d Dimension) Resolve(avail int) (int, bool) {
	switch d.Kind {
	case DimDots:
		return clampZero(int(d.Value)), true
	case DimPercent:
		return clampZero(int(float64(avail) * d.Value / 100)), true
	default:
		return 0, false
	}
}

// Edges 是四边的点数。
type Edges struct {
	Top    int `json:"top,omitempty"`
	Right  int `json:"right,omitempty"`
	Bottom int `json:"bottom,omitempty"`
	Left   int `json:"left,omitempty"`
}

// Uniform 四边相同。
func Uniform(n int) Edges { return Edges{Top: n, Right: n, Bottom: n, Left: n} }

func (e Edges) Horizontal() int { return e.Left + e.Right }
func (e Edges) Vertical() int   { return e.Top + e.Bottom }

// Clamp 把负值归零。
func (e Edges) Clamp() Edges {
	return Edges{Top: clampZero(e.Top), Right: clampZero(e.Right), Bottom: clampZero(e.Bottom), Left: clampZero(e.Left)}
}

// Margin 在 Edges 之外支持水平 auto 居中。
type Margin struct {
	Edges
	AutoX bool `json:"autoX,omitempty"`
}

// FlexItem 是 Flex 子项的伸缩系数。
type FlexItem struct {
	Grow   float64 `json:"grow,omitempty"`
	Shrink float64 `json:"shrink,omitempty"`
}

// PositionMode 控制节点是否参与常规流。
type PositionMode uint8

const (
	Static PositionMode = iota
	Relative
	Absolute
)

func (m PositionMode) String() string {
	switch m {
	case Relative:
		return "relative"
	case Absolute:
		return "absolute"
	default:
		return "static"
	}
}

// Position：Relative 时 X/Y 是绘制偏移；Absolute 时是相对最近 Boundary 祖先的坐标。
// Boundary 标记本节点为其后代绝对定位的参照块。
type Position struct {
	Mode     PositionMode `json:"mode,omitempty"`
	X        int          `json:"x,omitempty"`
	Y        int          `json:"y,omitempty"`
	Boundary bool         `json:"boundary,omitempty"`
}

// Break 是分页提示。
type Break struct {
	Before       bool `json:"before,omitempty"`
	After        bool `json:"after,omitempty"`
	KeepTogether bool `json:"keepTogether,omitempty"`
	Orphans      int  `json:"orphans,omitempty"`
	Widows       int  `json:"widows,omitempty"`
}

// Condition 是可见性与 if/elif 的判断条件。Func 非空时优先于 Path/Op。
type Condition struct {
	Path  string
	Op    binding.Operator
	Value any
	Func  func(binding.Context) (bool, error)
}

// Base 是所有节点共有的布局字段。
type Base struct {
	Width     Dimension
	Height    Dimension
	Padding   Edges
	Margin    Margin
	MinWidth  int
	MaxWidth  int
	MinHeight int
	MaxHeight int
	FlexItem  FlexItem
	Position  Position
	Style     Style
	Visible   *Condition
	Fallback  Node
	Break     Break
}

// Props 返回共有字段，供各阶段统一读取。
func (b *Base) Props() *Base { return b }

// ClampWidth 应用 min/max，冲突时 min 优先。
func (b *Base) ClampWidth(w int) int { return clampRange(w, b.MinWidth, b.MaxWidth) }

// ClampHeight 同 ClampWidth。
func (b *Base) ClampHeight(h int) int { return clampRange(h, b.MinHeight, b.MaxHeight) }

func clampRange(v, lo, hi int) int {
	if hi > 0 && v > hi {
		v = hi
	}
	if lo > 0 && v < lo {
		v = lo
	}
	return clampZero(v)
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
