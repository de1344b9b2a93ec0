package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/stylus/binding"
	"github.com/ByLCY/stylus/escp"
	"github.com/ByLCY/stylus/node"
)

// attrs 是命令参数、命名样式与块内赋值合并后的属性表。
type attrs map[string]string

// flagArgs 是可以单独出现的参数，缺省取值为 true。
var flagArgs = map[string]bool{
	"bold":           true,
	"italic":         true,
	"underline":      true,
	"double-strike":  true,
	"double-width":   true,
	"double-height":  true,
	"condensed":      true,
	"proportional":   true,
	"wrap":           true,
	"vertical":       true,
	"flex":           true,
	"boundary":       true,
	"keep-together":  true,
	"keep-with-next": true,
	"break-before":   true,
	"break-after":    true,
}

// parseArgs 解析命令参数：第一个参数若是已声明的样式名则作为样式，
// row/column 设置方向，其余按 flag 或 key value 读取。
func parseArgs(args []*Lexeme, styles map[string]styleDef) (string, attrs, error) {
	result := attrs{}
	cursor := 0
	var style string
	if len(args) > 0 && args[0].Type == tokIdent {
		if _, ok := styles[args[0].Value]; ok {
			style = args[0].Value
			cursor = 1
		}
	}

	for cursor < len(args) {
		key := strings.ToLower(args[cursor].Value)
		switch {
		case key == "row" || key == "column":
			result["direction"] = key
			cursor++
		case flagArgs[key]:
			result[key] = "true"
			cursor++
			if cursor < len(args) && isBool(args[cursor].Value) {
				result[key] = args[cursor].Value
				cursor++
			}
		case cursor+1 < len(args):
			result[key] = args[cursor+1].Value
			cursor += 2
		default:
			return "", nil, fmt.Errorf("第 %d 行：参数 %s 缺少取值", args[cursor].Pos.Line, args[cursor].Value)
		}
	}
	return style, result, nil
}

func isBool(s string) bool {
	return s == "true" || s == "false"
}

// mergeStyleAttributes 以命名样式为底，依次用 layers 覆盖。
func mergeStyleAttributes(style string, styles map[string]styleDef, layers ...map[string]string) attrs {
	out := attrs{}
	if style != "" {
		if s, ok := styles[style]; ok {
			for k, v := range s.Props {
				out[strings.ToLower(k)] = v
			}
		}
	}
	for _, layer := range layers {
		for k, v := range layer {
			out[strings.ToLower(k)] = v
		}
	}
	return out
}

func (a attrs) has(key string) bool {
	_, ok := a[key]
	return ok
}

func (a attrs) boolean(key string) (bool, error) {
	v, ok := a[key]
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s 需要布尔值，实际为 %q", key, v)
	}
	return b, nil
}

func (a attrs) boolPtr(key string) (*bool, error) {
	if !a.has(key) {
		return nil, nil
	}
	b, err := a.boolean(key)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (a attrs) integer(key string) (int, error) {
	v, ok := a[key]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s 需要整数，实际为 %q", key, v)
	}
	return n, nil
}

func (a attrs) number(key string) (float64, error) {
	v, ok := a[key]
	if !ok {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s 需要数字，实际为 %q", key, v)
	}
	return f, nil
}

func (a attrs) dots(key string, dpi int) (int, error) {
	v, ok := a[key]
	if !ok {
		return 0, nil
	}
	l, err := ParseLength(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return l.Dots(dpi), nil
}

func (a attrs) dimension(key string, dpi int) (node.Dimension, error) {
	d, err := ParseDimension(a[key], dpi)
	if err != nil {
		return node.Dimension{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// edges 解析 "10"、"10 20" 之类的 1–4 值简写，再用单边属性覆盖。
func (a attrs) edges(prefix string, dpi int) (node.Edges, bool, error) {
	var out node.Edges
	var autoX bool
	if v, ok := a[prefix]; ok {
		fields := strings.Fields(v)
		if len(fields) > 4 {
			return out, false, fmt.Errorf("%s 最多 4 个取值", prefix)
		}
		vals := make([]int, 0, len(fields))
		for i, f := range fields {
			if f == "auto" && (i == 1 || i == 3) {
				autoX = true
				vals = append(vals, 0)
				continue
			}
			l, err := ParseLength(f)
			if err != nil {
				return out, false, fmt.Errorf("%s: %w", prefix, err)
			}
			vals = append(vals, l.Dots(dpi))
		}
		out = shorthand(vals)
	}
	sides := []struct {
		name string
		dst  *int
	}{
		{prefix + "-top", &out.Top},
		{prefix + "-right", &out.Right},
		{prefix + "-bottom", &out.Bottom},
		{prefix + "-left", &out.Left},
	}
	for _, side := range sides {
		if !a.has(side.name) {
			continue
		}
		n, err := a.dots(side.name, dpi)
		if err != nil {
			return out, false, err
		}
		*side.dst = n
	}
	return out, autoX, nil
}

// applyBase 把通用布局属性写入 Base。
func applyBase(b *node.Base, a attrs, dpi int) error {
	var err error
	if b.Width, err = a.dimension("width", dpi); err != nil {
		return err
	}
	if b.Height, err = a.dimension("height", dpi); err != nil {
		return err
	}
	if b.Padding, _, err = a.edges("padding", dpi); err != nil {
		return err
	}
	edges, autoX, err := a.edges("margin", dpi)
	if err != nil {
		return err
	}
	b.Margin = node.Margin{Edges: edges, AutoX: autoX || a["margin-x"] == "auto"}

	for key, dst := range map[string]*int{
		"min-width":  &b.MinWidth,
		"max-width":  &b.MaxWidth,
		"min-height": &b.MinHeight,
		"max-height": &b.MaxHeight,
	} {
		if *dst, err = a.dots(key, dpi); err != nil {
			return err
		}
	}
	if b.FlexItem.Grow, err = a.number("grow"); err != nil {
		return err
	}
	if b.FlexItem.Shrink, err = a.number("shrink"); err != nil {
		return err
	}
	if err := applyPosition(&b.Position, a, dpi); err != nil {
		return err
	}
	if err := applyBreak(&b.Break, a); err != nil {
		return err
	}
	if b.Style, err = parseStyle(a); err != nil {
		return err
	}
	if path, ok := a["visible"]; ok {
		cond, err := conditionFrom(path, a["visible-op"], a["visible-value"])
		if err != nil {
			return err
		}
		b.Visible = &cond
	}
	return nil
}

func applyPosition(p *node.Position, a attrs, dpi int) error {
	switch a["position"] {
	case "", "static":
		p.Mode = node.Static
	case "relative":
		p.Mode = node.Relative
	case "absolute":
		p.Mode = node.Absolute
	default:
		return fmt.Errorf("未知的 position：%s", a["position"])
	}
	var err error
	if p.X, err = a.dots("x", dpi); err != nil {
		return err
	}
	if p.Y, err = a.dots("y", dpi); err != nil {
		return err
	}
	p.Boundary, err = a.boolean("boundary")
	return err
}

func applyBreak(br *node.Break, a attrs) error {
	var err error
	if br.Before, err = a.boolean("break-before"); err != nil {
		return err
	}
	if br.After, err = a.boolean("break-after"); err != nil {
		return err
	}
	if br.KeepTogether, err = a.boolean("keep-together"); err != nil {
		return err
	}
	if br.Orphans, err = a.integer("orphans"); err != nil {
		return err
	}
	br.Widows, err = a.integer("widows")
	return err
}

// parseStyle 读取打印属性，未出现的保持 nil 以便继承。
func parseStyle(a attrs) (node.Style, error) {
	var st node.Style
	flags := []struct {
		key string
		dst **bool
	}{
		{"bold", &st.Bold},
		{"italic", &st.Italic},
		{"underline", &st.Underline},
		{"double-strike", &st.DoubleStrike},
		{"double-width", &st.DoubleWidth},
		{"double-height", &st.DoubleHeight},
		{"condensed", &st.Condensed},
		{"proportional", &st.Proportional},
	}
	for _, f := range flags {
		v, err := a.boolPtr(f.key)
		if err != nil {
			return st, err
		}
		*f.dst = v
	}
	if a.has("pitch") {
		p, err := a.integer("pitch")
		if err != nil {
			return st, err
		}
		if p != 10 && p != 12 && p != 15 {
			return st, fmt.Errorf("pitch 只支持 10/12/15，实际为 %d", p)
		}
		st.Pitch = &p
	}
	if v, ok := a["typeface"]; ok {
		tf, found := escp.ParseTypeface(strings.ToLower(v))
		if !found {
			return st, fmt.Errorf("未知的字体：%s", v)
		}
		st.Typeface = &tf
	}
	if v, ok := a["quality"]; ok {
		var q escp.Quality
		switch strings.ToLower(v) {
		case "draft":
			q = escp.Draft
		case "letter", "lq", "nlq":
			q = escp.Letter
		default:
			return st, fmt.Errorf("未知的打印质量：%s", v)
		}
		st.Quality = &q
	}
	if v, ok := a["charset"]; ok {
		cs, found := escp.ParseCharset(strings.ToLower(v))
		if !found {
			return st, fmt.Errorf("未知的字符集：%s", v)
		}
		st.Charset = &cs
	}
	if v, ok := a["table"]; ok {
		t, found := escp.ParseCodeTable(strings.ToLower(v))
		if !found {
			return st, fmt.Errorf("未知的码表：%s", v)
		}
		st.Table = &t
	}
	return st, nil
}

func parseAlign(v string) (node.Align, error) {
	switch strings.ToLower(v) {
	case "":
		return node.AlignUnset, nil
	case "left", "start":
		return node.AlignLeft, nil
	case "center", "middle":
		return node.AlignCenter, nil
	case "right", "end":
		return node.AlignRight, nil
	}
	return 0, fmt.Errorf("未知的对齐方式：%s", v)
}

func parseVAlign(v string) (node.VAlign, error) {
	switch strings.ToLower(v) {
	case "", "top", "start":
		return node.VAlignTop, nil
	case "middle", "center":
		return node.VAlignMiddle, nil
	case "bottom", "end":
		return node.VAlignBottom, nil
	}
	return 0, fmt.Errorf("未知的垂直对齐方式：%s", v)
}

func parseJustify(v string) (node.Justify, error) {
	switch strings.ToLower(v) {
	case "", "start":
		return node.JustifyStart, nil
	case "center":
		return node.JustifyCenter, nil
	case "end":
		return node.JustifyEnd, nil
	case "between", "space-between":
		return node.JustifySpaceBetween, nil
	case "around", "space-around":
		return node.JustifySpaceAround, nil
	case "evenly", "space-evenly":
		return node.JustifySpaceEvenly, nil
	}
	return 0, fmt.Errorf("未知的 justify：%s", v)
}

func parseOverflow(v string) (node.Overflow, error) {
	switch strings.ToLower(v) {
	case "":
		return node.OverflowUnset, nil
	case "visible":
		return node.OverflowVisible, nil
	case "clip":
		return node.OverflowClip, nil
	case "ellipsis":
		return node.OverflowEllipsis, nil
	}
	return 0, fmt.Errorf("未知的 overflow：%s", v)
}

// literal 把参数转换为比较用的值：数字为 float64，true/false/null 为对应字面量。
func literal(l *Lexeme) any {
	switch l.Type {
	case tokString:
		return l.Value
	case tokNumber:
		if f, err := strconv.ParseFloat(l.Value, 64); err == nil {
			return f
		}
		return l.Value
	}
	switch l.Value {
	case "true":
		return true
	case "false":
		return false
	case "null", "nil":
		return nil
	}
	return l.Value
}

// conditionFrom 由路径、运算符与字符串取值构造条件（用于 visible 属性）。
func conditionFrom(path, op, value string) (node.Condition, error) {
	cond := node.Condition{Path: path}
	if op == "" {
		return cond, nil
	}
	cond.Op = binding.Operator(op)
	if !cond.Op.Valid() {
		return node.Condition{}, fmt.Errorf("未知的比较运算符：%s", op)
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		cond.Value = f
	} else {
		cond.Value = value
	}
	if cond.Op == binding.OpIn || cond.Op == binding.OpNotIn {
		var list []any
		for _, part := range strings.Split(value, ",") {
			list = append(list, strings.TrimSpace(part))
		}
		cond.Value = list
	}
	return cond, nil
}

// conditionArgs 解析 if/elif 的参数：path [op value...]。
func conditionArgs(args []*Lexeme) (node.Condition, error) {
	if len(args) == 0 {
		return node.Condition{}, fmt.Errorf("条件缺少路径")
	}
	cond := node.Condition{Path: args[0].Value}
	if len(args) == 1 {
		return cond, nil
	}
	cond.Op = binding.Operator(args[1].Value)
	if !cond.Op.Valid() {
		return node.Condition{}, fmt.Errorf("第 %d 行：未知的比较运算符 %s", args[1].Pos.Line, args[1].Value)
	}
	rest := args[2:]
	switch cond.Op {
	case binding.OpIn, binding.OpNotIn:
		list := make([]any, 0, len(rest))
		for _, l := range rest {
			list = append(list, literal(l))
		}
		cond.Value = list
	case binding.OpExists, binding.OpNotExists, binding.OpEmpty, binding.OpNotEmpty:
		if len(rest) > 0 {
			return node.Condition{}, fmt.Errorf("%s 不接受取值", cond.Op)
		}
	default:
		if len(rest) != 1 {
			return node.Condition{}, fmt.Errorf("%s 需要一个取值", cond.Op)
		}
		cond.Value = literal(rest[0])
	}
	return cond, nil
}
