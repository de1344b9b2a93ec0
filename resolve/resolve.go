// Package resolve turns data-bound documents into static node trees.
package resolve

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ByLCY/stylus/binding"
	"github.com/ByLCY/stylus/node"
)

// Resolver 消除 Template/Conditional/Switch/Each 节点。零值可用。
type Resolver struct {
	Logger  *zap.Logger
	Filters binding.Filters
}

// Resolve 使用默认 Resolver。
func Resolve(n node.Node, dc binding.Context) (node.Node, error) {
	return (&Resolver{}).Resolve(n, dc)
}

// Resolve 返回静态树；nil 表示该节点不输出，容器会丢弃 nil 子节点。
// 数据缺失与回调失败不会报错，只有未知节点类型才返回错误。
func (r *Resolver) Resolve(n node.Node, dc binding.Context) (node.Node, error) {
	if n == nil {
		return nil, nil
	}
	if vis := n.Props().Visible; vis != nil && !r.test(*vis, dc) {
		return r.Resolve(n.Props().Fallback, dc)
	}
	switch v := n.(type) {
	case *node.Stack:
		out := *v
		children, err := r.resolveList(v.Children, dc)
		if err != nil {
			return nil, err
		}
		out.Children = children
		out.Base = stripBase(v.Base)
		return &out, nil
	case *node.Flex:
		out := *v
		children, err := r.resolveList(v.Children, dc)
		if err != nil {
			return nil, err
		}
		out.Children = children
		out.Base = stripBase(v.Base)
		return &out, nil
	case *node.Grid:
		return r.resolveGrid(v, dc)
	case *node.Text:
		return r.resolveText(v, dc), nil
	case *node.Spacer:
		out := *v
		out.Base = stripBase(v.Base)
		return &out, nil
	case *node.Line:
		out := *v
		out.Base = stripBase(v.Base)
		return &out, nil
	case *node.Template:
		return r.resolveTemplate(v, dc), nil
	case *node.Conditional:
		return r.resolveConditional(v, dc)
	case *node.Switch:
		return r.resolveSwitch(v, dc)
	case *node.Each:
		return r.resolveEach(v, dc)
	default:
		return nil, fmt.Errorf("%w: %T", node.ErrUnknownKind, n)
	}
}

func (r *Resolver) resolveList(children []node.Node, dc binding.Context) ([]node.Node, error) {
	out := make([]node.Node, 0, len(children))
	for _, child := range children {
		res, err := r.Resolve(child, dc)
		if err != nil {
			return nil, err
		}
		if res != nil {
			out = append(out, res)
		}
	}
	return out, nil
}

// resolveGrid 保持单元格位置：解析为 nil 的单元格用零尺寸 Spacer 占位，避免列错位。
// 模板行按数据展开，数据为空时该行不输出。
func (r *Resolver) resolveGrid(g *node.Grid, dc binding.Context) (node.Node, error) {
	out := *g
	out.Base = stripBase(g.Base)
	out.Rows = make([]node.Row, 0, len(g.Rows))
	for _, row := range g.Rows {
		if row.Each == "" {
			res, err := r.resolveRow(row, dc)
			if err != nil {
				return nil, err
			}
			out.Rows = append(out.Rows, res)
			continue
		}
		raw, _ := dc.Lookup(row.Each)
		items, _ := binding.AsSlice(raw)
		as, indexAs := scopeNames(row.As, row.IndexAs)
		for i, item := range items {
			scope := dc.With(as, item).With(indexAs, i).WithIndex(i, len(items))
			res, err := r.resolveRow(row, scope)
			if err != nil {
				return nil, err
			}
			out.Rows = append(out.Rows, res)
		}
	}
	return &out, nil
}

func (r *Resolver) resolveRow(row node.Row, dc binding.Context) (node.Row, error) {
	cells := make([]node.Node, len(row.Cells))
	for j, cell := range row.Cells {
		res, err := r.Resolve(cell, dc)
		if err != nil {
			return node.Row{}, err
		}
		if res == nil {
			res = &node.Spacer{}
		}
		cells[j] = res
	}
	row.Cells = cells
	row.Each, row.As, row.IndexAs = "", "", ""
	return row, nil
}

func scopeNames(as, indexAs string) (string, string) {
	if as == "" {
		as = "item"
	}
	if indexAs == "" {
		indexAs = "index"
	}
	return as, indexAs
}

func (r *Resolver) resolveText(t *node.Text, dc binding.Context) node.Node {
	out := *t
	out.Base = stripBase(t.Base)
	if t.Dynamic == nil {
		return &out
	}
	out.Dynamic = nil
	content, err := r.callContent(t.Dynamic, dc)
	if err != nil {
		r.logger().Debug("动态文本求值失败，使用静态内容", zap.Error(err), zap.String("fallback", t.Content))
		return &out
	}
	out.Content = content
	return &out
}

func (r *Resolver) resolveTemplate(t *node.Template, dc binding.Context) node.Node {
	return &node.Text{
		Base:     stripBase(t.Base),
		Content:  binding.Interpolate(t.Format, dc, r.filters()),
		Align:    t.Align,
		Overflow: t.Overflow,
		Ellipsis: t.Ellipsis,
		Wrap:     t.Wrap,
	}
}

func (r *Resolver) resolveConditional(c *node.Conditional, dc binding.Context) (node.Node, error) {
	if r.test(c.If, dc) {
		return r.Resolve(c.Then, dc)
	}
	for _, branch := range c.ElseIf {
		if r.test(branch.When, dc) {
			return r.Resolve(branch.Node, dc)
		}
	}
	return r.Resolve(c.Else, dc)
}

func (r *Resolver) resolveSwitch(s *node.Switch, dc binding.Context) (node.Node, error) {
	value, _ := dc.Lookup(s.Path)
	for _, cs := range s.Cases {
		if matchCase(cs, value) {
			return r.Resolve(cs.Node, dc)
		}
	}
	return r.Resolve(s.Default, dc)
}

func matchCase(cs node.Case, value any) bool {
	if len(cs.Values) > 0 {
		for _, v := range cs.Values {
			if binding.Equal(v, value) {
				return true
			}
		}
		return false
	}
	return binding.Equal(cs.Value, value)
}

// resolveEach 为每个元素创建独立作用域，分隔节点只出现在元素之间。
// 结果包在一个继承 Each 布局字段的纵向 Stack 中。
func (r *Resolver) resolveEach(e *node.Each, dc binding.Context) (node.Node, error) {
	raw, _ := dc.Lookup(e.Path)
	items, ok := binding.AsSlice(raw)
	if !ok || len(items) == 0 {
		if e.Empty != nil {
			return r.Resolve(e.Empty, dc)
		}
		return &node.Spacer{}, nil
	}

	as, indexAs := scopeNames(e.As, e.IndexAs)

	children := make([]node.Node, 0, len(items)*2)
	for i, item := range items {
		scope := dc.With(as, item).With(indexAs, i).WithIndex(i, len(items))
		if i > 0 && e.Separator != nil {
			sep, err := r.Resolve(e.Separator, scope)
			if err != nil {
				return nil, err
			}
			if sep != nil {
				children = append(children, sep)
			}
		}
		res, err := r.Resolve(e.Template, scope)
		if err != nil {
			return nil, err
		}
		if res != nil {
			children = append(children, res)
		}
	}
	return &node.Stack{
		Base:      stripBase(e.Base),
		Direction: node.DirColumn,
		Children:  children,
	}, nil
}

// test 求值条件；回调出错或 panic 视为 false。
func (r *Resolver) test(c node.Condition, dc binding.Context) bool {
	if c.Func != nil {
		ok, err := r.callCondition(c.Func, dc)
		if err != nil {
			r.logger().Debug("条件回调失败，按 false 处理", zap.Error(err))
			return false
		}
		return ok
	}
	op := c.Op
	if op == "" {
		op = binding.OpNotEmpty
	}
	left, found := dc.Lookup(c.Path)
	return binding.Compare(op, left, found, c.Value)
}

func (r *Resolver) callCondition(fn func(binding.Context) (bool, error), dc binding.Context) (ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ok, err = false, fmt.Errorf("condition panic: %v", rec)
		}
	}()
	return fn(dc)
}

func (r *Resolver) callContent(fn func(binding.Context) (string, error), dc binding.Context) (s string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s, err = "", fmt.Errorf("content panic: %v", rec)
		}
	}()
	return fn(dc)
}

var defaultFilters = binding.DefaultFilters()

func (r *Resolver) filters() binding.Filters {
	if r.Filters == nil {
		return defaultFilters
	}
	return r.Filters
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// stripBase 去掉已经求值过的可见性条件，输出树只保留布局字段。
func stripBase(b node.Base) node.Base {
	b.Visible = nil
	b.Fallback = nil
	return b
}
