package renderer

import (
	"bytes"

	"github.com/ByLCY/stylus/escp"
	"github.com/ByLCY/stylus/metrics"
	"github.com/ByLCY/stylus/node"
)

// emitter 持有一次渲染的光标与当前样式，只在单次 Render 内使用。
type emitter struct {
	enc *escp.Encoder
	m   metrics.Metrics
	buf bytes.Buffer

	x, y   int
	style  node.ResolvedStyle
	styled bool // false 表示设备样式未知，首个图元需输出全部属性
}

func newEmitter(enc *escp.Encoder, m metrics.Metrics, startY int) *emitter {
	return &emitter{enc: enc, m: m, y: startY}
}

// moveTo 只在偏差超过 1 点时输出定位命令。纵向只进不退。
func (e *emitter) moveTo(x, y int) {
	if dy := y - e.y; dy > 1 {
		cmds, advanced := e.enc.AdvanceY(dy)
		for _, c := range cmds {
			e.buf.Write(c)
		}
		e.y += advanced
	}
	if dx := x - e.x; dx > 1 || dx < -1 {
		e.buf.Write(e.enc.MoveAbsoluteX(x))
		e.x = x
	}
}

func (e *emitter) setStyle(st node.ResolvedStyle) {
	cur := e.style
	full := !e.styled
	set := func(attr escp.Attr, want, have int) {
		if full || want != have {
			e.buf.Write(e.enc.StyleCommand(attr, want))
		}
	}
	set(escp.AttrQuality, int(st.Quality), int(cur.Quality))
	set(escp.AttrTypeface, int(st.Typeface), int(cur.Typeface))
	set(escp.AttrCharset, int(st.Charset), int(cur.Charset))
	set(escp.AttrTable, int(st.Table), int(cur.Table))
	set(escp.AttrPitch, st.Pitch, cur.Pitch)
	set(escp.AttrProportional, b2i(st.Proportional), b2i(cur.Proportional))
	set(escp.AttrCondensed, b2i(st.Condensed), b2i(cur.Condensed))
	set(escp.AttrDoubleWidth, b2i(st.DoubleWidth), b2i(cur.DoubleWidth))
	set(escp.AttrDoubleHeight, b2i(st.DoubleHeight), b2i(cur.DoubleHeight))
	set(escp.AttrBold, b2i(st.Bold), b2i(cur.Bold))
	set(escp.AttrItalic, b2i(st.Italic), b2i(cur.Italic))
	set(escp.AttrUnderline, b2i(st.Underline), b2i(cur.Underline))
	set(escp.AttrDoubleStrike, b2i(st.DoubleStrike), b2i(cur.DoubleStrike))
	e.style = st
	e.styled = true
}

func (e *emitter) write(s string, st node.ResolvedStyle) {
	e.buf.Write(e.enc.EncodeText(s, st.Charset, st.Table))
	e.x += metrics.TextWidth(e.m, s, st)
}

func (e *emitter) emit(it Item) {
	e.setStyle(it.Style)
	if !it.Vertical {
		e.moveTo(it.X, it.Y)
		e.write(it.Text, it.Style)
		return
	}
	// 竖排：逐字符定位
	for i, r := range []rune(it.Text) {
		e.moveTo(it.X, it.Y+i*it.LineHeight)
		e.write(string(r), it.Style)
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
