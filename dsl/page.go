package dsl

import (
	"fmt"
	"strings"

	"github.com/ByLCY/stylus/layout"
	"github.com/ByLCY/stylus/node"
	"github.com/ByLCY/stylus/paginate"
)

// Page 是编译后的纸张几何（点）。Height 为 0 表示连续纸，不分页。
type Page struct {
	Size      string     `json:"size"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Margin    node.Edges `json:"margin"`
	Landscape bool       `json:"landscape,omitempty"`
}

// Box 返回根节点的布局区域。纵向从 0 开始，页边距由分页阶段加上。
func (p Page) Box() layout.Box {
	return layout.Box{
		X:     p.Margin.Left,
		Width: max(0, p.Width-p.Margin.Horizontal()),
	}
}

// PageConfig 返回分页参数。
func (p Page) PageConfig() paginate.PageConfig {
	return paginate.PageConfig{
		PageHeight:   p.Height,
		TopMargin:    p.Margin.Top,
		BottomMargin: p.Margin.Bottom,
	}
}

type preset struct {
	width, height Length
	margin        Length
}

var (
	inch          = func(v float64) Length { return Length{Value: v, Unit: UnitIN} }
	millimetre    = func(v float64) Length { return Length{Value: v, Unit: UnitMM} }
	defaultMargin = inch(0.25)
)

// pagePresets 的高度为 0 时表示连续纸。
var pagePresets = map[string]preset{
	"letter":  {inch(8.5), inch(11), defaultMargin},
	"legal":   {inch(8.5), inch(14), defaultMargin},
	"a4":      {millimetre(210), millimetre(297), defaultMargin},
	"a5":      {millimetre(148), millimetre(210), defaultMargin},
	"fanfold": {inch(14.875), inch(11), defaultMargin},
	"receipt": {millimetre(80), Length{}, Length{}},
}

// ResolvePage 解析 "letter landscape margin 0.5in" 形式的页面描述，
// 与文档中 page 头部的写法相同。
func ResolvePage(spec string, dpi int) (Page, error) {
	lex, err := tokens.LexString("", spec)
	if err != nil {
		return Page{}, err
	}
	var params []*Lexeme
	for {
		tok, err := lex.Next()
		if err != nil {
			return Page{}, err
		}
		if tok.EOF() {
			break
		}
		if tok.Type == spaceTokenType || tok.Type == newlineTokenType {
			continue
		}
		l, err := newLexeme(tok)
		if err != nil {
			return Page{}, err
		}
		params = append(params, &l)
	}
	if len(params) == 0 {
		return Page{}, fmt.Errorf("页面描述为空")
	}
	return resolvePage(PageSpec{Size: params[0].Value, Params: params[1:]}, dpi)
}

// resolvePage 解析 page 头部：尺寸名称之后可跟 landscape、margin、width、height。
func resolvePage(spec PageSpec, dpi int) (Page, error) {
	name := strings.ToLower(spec.Size)
	base, ok := pagePresets[name]
	if !ok && name != "custom" {
		return Page{}, fmt.Errorf("暂不支持的纸张尺寸：%s", spec.Size)
	}
	page := Page{
		Size:   name,
		Width:  base.width.Dots(dpi),
		Height: base.height.Dots(dpi),
		Margin: node.Uniform(base.margin.Dots(dpi)),
	}

	params := spec.Params
	for i := 0; i < len(params); i++ {
		switch strings.ToLower(params[i].Value) {
		case "landscape":
			page.Landscape = true
		case "portrait":
			page.Landscape = false
		case "margin":
			vals, n, err := lengthRun(params[i+1:], dpi)
			if err != nil {
				return Page{}, err
			}
			if n == 0 {
				return Page{}, fmt.Errorf("margin 缺少取值")
			}
			page.Margin = shorthand(vals)
			i += n
		case "width", "height":
			if i+1 >= len(params) {
				return Page{}, fmt.Errorf("%s 缺少取值", params[i].Value)
			}
			l, err := ParseLength(params[i+1].Value)
			if err != nil {
				return Page{}, err
			}
			if strings.EqualFold(params[i].Value, "width") {
				page.Width = l.Dots(dpi)
			} else {
				page.Height = l.Dots(dpi)
			}
			i++
		default:
			return Page{}, fmt.Errorf("第 %d 行：未知的页面参数 %s", params[i].Pos.Line, params[i].Value)
		}
	}
	if page.Landscape && page.Height > 0 {
		page.Width, page.Height = page.Height, page.Width
	}
	if page.Width <= 0 {
		return Page{}, fmt.Errorf("纸张宽度必须为正数")
	}
	if page.Margin.Horizontal() >= page.Width {
		return Page{}, fmt.Errorf("左右页边距超过纸张宽度")
	}
	return page, nil
}

// lengthRun 读取至多 4 个连续的长度，遇到非长度停止。
func lengthRun(params []*Lexeme, dpi int) ([]int, int, error) {
	var vals []int
	for _, p := range params {
		if len(vals) == 4 || p.Type != tokNumber {
			break
		}
		l, err := ParseLength(p.Value)
		if err != nil {
			return nil, 0, err
		}
		vals = append(vals, l.Dots(dpi))
	}
	return vals, len(vals), nil
}

// shorthand 按 CSS 的 1–4 值规则展开四边。
func shorthand(vals []int) node.Edges {
	switch len(vals) {
	case 1:
		return node.Uniform(vals[0])
	case 2:
		return node.Edges{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
	case 3:
		return node.Edges{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}
	case 4:
		return node.Edges{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
	}
	return node.Edges{}
}
