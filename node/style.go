package node

import "github.com/ByLCY/stylus/escp"

// Style 是节点显式声明的文本属性，nil 表示继承。
type Style struct {
	Bold         *bool
	Italic       *bool
	Underline    *bool
	DoubleStrike *bool
	DoubleWidth  *bool
	DoubleHeight *bool
	Condensed    *bool
	Proportional *bool
	Pitch        *int
	Typeface     *escp.Typeface
	Quality      *escp.Quality
	Charset      *escp.Charset
	Table        *escp.CodeTable
}

// ResolvedStyle 是继承计算之后的完整属性。
type ResolvedStyle struct {
	Bold         bool           `json:"bold,omitempty"`
	Italic       bool           `json:"italic,omitempty"`
	Underline    bool           `json:"underline,omitempty"`
	DoubleStrike bool           `json:"doubleStrike,omitempty"`
	DoubleWidth  bool           `json:"doubleWidth,omitempty"`
	DoubleHeight bool           `json:"doubleHeight,omitempty"`
	Condensed    bool           `json:"condensed,omitempty"`
	Proportional bool           `json:"proportional,omitempty"`
	Pitch        int            `json:"pitch"`
	Typeface     escp.Typeface  `json:"typeface"`
	Quality      escp.Quality   `json:"quality"`
	Charset      escp.Charset   `json:"charset"`
	Table        escp.CodeTable `json:"table"`
}

// DefaultStyle 是根节点的样式：10 cpi、LQ、无强调、USA 字符集、PC437。
func DefaultStyle() ResolvedStyle {
	return ResolvedStyle{
		Pitch:   10,
		Quality: escp.Letter,
		Charset: escp.USA,
		Table:   escp.PC437,
	}
}

// Resolve 以 parent 为基础，用显式字段覆盖。
func (s Style) Resolve(parent ResolvedStyle) ResolvedStyle {
	out := parent
	setBool(&out.Bold, s.Bold)
	setBool(&out.Italic, s.Italic)
	setBool(&out.Underline, s.Underline)
	setBool(&out.DoubleStrike, s.DoubleStrike)
	setBool(&out.DoubleWidth, s.DoubleWidth)
	setBool(&out.DoubleHeight, s.DoubleHeight)
	setBool(&out.Condensed, s.Condensed)
	setBool(&out.Proportional, s.Proportional)
	if s.Pitch != nil {
		out.Pitch = normalizePitch(*s.Pitch)
	}
	if s.Typeface != nil {
		out.Typeface = *s.Typeface
	}
	if s.Quality != nil {
		out.Quality = *s.Quality
	}
	if s.Charset != nil {
		out.Charset = *s.Charset
	}
	if s.Table != nil {
		out.Table = *s.Table
	}
	return out
}

// Merge 返回 s 被 over 中显式字段覆盖后的结果（样式继承 extends 使用）。
func (s Style) Merge(over Style) Style {
	out := s
	pick := func(dst **bool, src *bool) {
		if src != nil {
			*dst = src
		}
	}
	pick(&out.Bold, over.Bold)
	pick(&out.Italic, over.Italic)
	pick(&out.Underline, over.Underline)
	pick(&out.DoubleStrike, over.DoubleStrike)
	pick(&out.DoubleWidth, over.DoubleWidth)
	pick(&out.DoubleHeight, over.DoubleHeight)
	pick(&out.Condensed, over.Condensed)
	pick(&out.Proportional, over.Proportional)
	if over.Pitch != nil {
		out.Pitch = over.Pitch
	}
	if over.Typeface != nil {
		out.Typeface = over.Typeface
	}
	if over.Quality != nil {
		out.Quality = over.Quality
	}
	if over.Charset != nil {
		out.Charset = over.Charset
	}
	if over.Table != nil {
		out.Table = over.Table
	}
	return out
}

// IsZero 判断是否没有任何显式字段。
func (s Style) IsZero() bool {
	return s == Style{}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// normalizePitch 只接受 10/12/15 cpi，其余按 10 处理。
func normalizePitch(p int) int {
	switch p {
	case 12, 15:
		return p
	default:
		return 10
	}
}

// Ptr 返回 v 的指针，便于构造 Style。
func Ptr[T any](v T) *T { return &v }
