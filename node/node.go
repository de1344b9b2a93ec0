// Package node defines the document tree consumed by the layout pipeline.
package node

import (
	"errors"
	"fmt"

	"github.com/ByLCY/stylus/binding"
)

var (
	// ErrUnresolved 表示动态节点（template/if/switch/each）进入了布局阶段。
	ErrUnresolved = errors.New("unresolved dynamic node")
	// ErrUnknownKind 表示无法识别的节点类型。
	ErrUnknownKind = errors.New("unknown node kind")
)

// Kind 标识节点变体。
type Kind uint8

const (
	KindInvalid Kind = iota
	KindStack
	KindFlex
	KindGrid
	KindText
	KindSpacer
	KindLine
	KindTemplate
	KindConditional
	KindSwitch
	KindEach
)

var kindNames = [...]string{
	KindInvalid:     "invalid",
	KindStack:       "stack",
	KindFlex:        "flex",
	KindGrid:        "grid",
	KindText:        "text",
	KindSpacer:      "spacer",
	KindLine:        "line",
	KindTemplate:    "template",
	KindConditional: "conditional",
	KindSwitch:      "switch",
	KindEach:        "each",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Resolvable 报告该类型是否必须在 resolve 阶段被消除。
func Resolvable(k Kind) bool {
	switch k {
	case KindTemplate, KindConditional, KindSwitch, KindEach:
		return true
	}
	return false
}

// Node 是封闭的节点接口，只有本包的类型能实现它。
type Node interface {
	Kind() Kind
	Props() *Base
	sealed()
}

// Unresolved 为动态节点构造带类型信息的 ErrUnresolved。
func Unresolved(n Node) error {
	return fmt.Errorf("%w: %s", ErrUnresolved, n.Kind())
}

// Direction 是 Stack 的主轴方向。
type Direction uint8

const (
	DirColumn Direction = iota
	DirRow
)

// Align 是水平对齐，AlignUnset 表示未声明。
type Align uint8

const (
	AlignUnset Align = iota
	AlignLeft
	AlignCenter
	AlignRight
)

func (a Align) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return ""
	}
}

// VAlign 是垂直（交叉轴）对齐。
type VAlign uint8

const (
	VAlignTop VAlign = iota
	VAlignMiddle
	VAlignBottom
)

// Justify 是 Flex 主轴分布方式。
type Justify uint8

const (
	JustifyStart Justify = iota
	JustifyCenter
	JustifyEnd
	JustifySpaceBetween
	JustifySpaceAround
	JustifySpaceEvenly
)

// Overflow 是文本超出边界时的处理方式。
type Overflow uint8

const (
	OverflowUnset Overflow = iota
	OverflowVisible
	OverflowClip
	OverflowEllipsis
)

// Orientation 是文本方向。
type Orientation uint8

const (
	Horizontal Orientation = iota
	Vertical
)

// DefaultEllipsis 是 ellipsis 的默认后缀。
const DefaultEllipsis = "..."

// Stack 沿一个方向依次排列子节点。
type Stack struct {
	Base
	Direction Direction
	Gap       int
	Align     Align
	VAlign    VAlign
	Children  []Node
}

// Flex 是单行（可换行）的弹性容器。
type Flex struct {
	Base
	Justify    Justify
	AlignItems VAlign
	Gap        int
	RowGap     int
	Wrap       bool
	Children   []Node
}

// Column 是 Grid 的列定义。
type Column struct {
	Width Dimension
	Align Align
}

// Row 是 Grid 的一行，分页时不可拆分。
// Each 非空时该行是模板：resolve 阶段对 Each 路径的每个元素展开一行，
// 元素以 As（默认 item）、下标以 IndexAs（默认 index）绑定。
type Row struct {
	Cells        []Node
	Height       Dimension
	KeepWithNext bool
	BreakBefore  bool

	Each    string
	As      string
	IndexAs string
}

// Grid 是固定列宽的表格。
type Grid struct {
	Base
	Columns   []Column
	ColumnGap int
	RowGap    int
	Rows      []Row
}

// Text 是文本叶子。Dynamic 非空时由 resolve 阶段求值，失败时保留 Content。
type Text struct {
	Base
	Content     string
	Align       Align
	Overflow    Overflow
	Ellipsis    string
	Orientation Orientation
	Wrap        bool
	Dynamic     func(binding.Context) (string, error)
}

// Spacer 是空白占位；Flexible 时在 Flex 中均分剩余空间。
type Spacer struct {
	Base
	Flexible bool
}

// Line 是由重复字符构成的横线。
type Line struct {
	Base
	Length Dimension
	Char   rune
}

// Template 在 resolve 时插值为 Text。
type Template struct {
	Base
	Format   string
	Align    Align
	Overflow Overflow
	Ellipsis string
	Wrap     bool
}

// Branch 是 elif 分支。
type Branch struct {
	When Condition
	Node Node
}

// Conditional 是 if/elif/else。
type Conditional struct {
	Base
	If     Condition
	Then   Node
	ElseIf []Branch
	Else   Node
}

// Case 匹配 Value，或 Values 中任一元素。
type Case struct {
	Value  any
	Values []any
	Node   Node
}

// Switch 按 Path 的值选择分支。
type Switch struct {
	Base
	Path    string
	Cases   []Case
	Default Node
}

// Each 遍历 Path 处的数组，为每个元素解析 Template。
type Each struct {
	Base
	Path      string
	As        string
	IndexAs   string
	Template  Node
	Separator Node
	Empty     Node
}

func (*Stack) Kind() Kind       { return KindStack }
func (*Flex) Kind() Kind        { return KindFlex }
func (*Grid) Kind() Kind        { return KindGrid }
func (*Text) Kind() Kind        { return KindText }
func (*Spacer) Kind() Kind      { return KindSpacer }
func (*Line) Kind() Kind        { return KindLine }
func (*Template) Kind() Kind    { return KindTemplate }
func (*Conditional) Kind() Kind { return KindConditional }
func (*Switch) Kind() Kind      { return KindSwitch }
func (*Each) Kind() Kind        { return KindEach }

func (*Stack) sealed()       {}
func (*Flex) sealed()        {}
func (*Grid) sealed()        {}
func (*Text) sealed()        {}
func (*Spacer) sealed()      {}
func (*Line) sealed()        {}
func (*Template) sealed()    {}
func (*Conditional) sealed() {}
func (*Switch) sealed()      {}
func (*Each) sealed()        {}

// Children 返回静态容器的直接子节点；Grid 按行展开单元格。
func Children(n Node) []Node {
	switch v := n.(type) {
	case *Stack:
		return v.Children
	case *Flex:
		return v.Children
	case *Grid:
		var out []Node
		for _, row := range v.Rows {
			out = append(out, row.Cells...)
		}
		return out
	default:
		return nil
	}
}

// Walk 先序遍历静态树，fn 返回 false 时不再进入该节点的子树。
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range Children(n) {
		Walk(child, fn)
	}
}

// Validate 检查树中不含动态节点，返回遇到的第一个问题。
func Validate(n Node) error {
	var err error
	Walk(n, func(cur Node) bool {
		if err != nil {
			return false
		}
		switch v := cur.(type) {
		case *Grid:
			for _, row := range v.Rows {
				if row.Each != "" {
					err = Unresolved(cur)
					return false
				}
			}
			return true
		case *Stack, *Flex, *Text, *Spacer, *Line:
			return true
		case *Template, *Conditional, *Switch, *Each:
			err = Unresolved(cur)
		default:
			err = fmt.Errorf("%w: %T", ErrUnknownKind, cur)
		}
		return false
	})
	return err
}
