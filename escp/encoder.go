// Package escp encodes ESC/P2 control sequences for 9/24-pin dot-matrix printers.
package escp

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	esc = 0x1B
	// 单条 ESC J 最多推进 255 个 1/180 英寸。
	maxFeed   = 255
	feedUnits = 180
)

// DefaultDPI 是内部坐标单位（点）对应的分辨率，1 点 = 1/360 英寸。
const DefaultDPI = 360

// Encoder 把样式、位移与文本转换为命令字节。无状态，可并发使用。
type Encoder struct {
	DPI int
}

// NewEncoder 以给定分辨率创建编码器，dpi<=0 时使用 DefaultDPI。
func NewEncoder(dpi int) *Encoder {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Encoder{DPI: dpi}
}

func (e *Encoder) dpi() int {
	if e == nil || e.DPI <= 0 {
		return DefaultDPI
	}
	return e.DPI
}

// Init 复位打印机并把 ESC $ 的单位设为 1/DPI 英寸。
func (e *Encoder) Init() []byte {
	unit := 3600 / e.dpi()
	if unit < 1 {
		unit = 1
	}
	if unit > 255 {
		unit = 255
	}
	return []byte{esc, '@', esc, '(', 'U', 0x01, 0x00, byte(unit)}
}

// StyleCommand 返回切换单个属性的命令。布尔属性以 0/1 传入。
func (e *Encoder) StyleCommand(attr Attr, value int) []byte {
	on := value != 0
	switch attr {
	case AttrBold:
		return pick(on, []byte{esc, 'E'}, []byte{esc, 'F'})
	case AttrItalic:
		return pick(on, []byte{esc, '4'}, []byte{esc, '5'})
	case AttrUnderline:
		return []byte{esc, '-', boolByte(on)}
	case AttrDoubleStrike:
		return pick(on, []byte{esc, 'G'}, []byte{esc, 'H'})
	case AttrDoubleWidth:
		return []byte{esc, 'W', boolByte(on)}
	case AttrDoubleHeight:
		return []byte{esc, 'w', boolByte(on)}
	case AttrCondensed:
		return pick(on, []byte{0x0F}, []byte{0x12})
	case AttrProportional:
		return []byte{esc, 'p', boolByte(on)}
	case AttrPitch:
		switch value {
		case 12:
			return []byte{esc, 'M'}
		case 15:
			return []byte{esc, 'g'}
		default:
			return []byte{esc, 'P'}
		}
	case AttrTypeface:
		return []byte{esc, 'k', byte(value)}
	case AttrQuality:
		return []byte{esc, 'x', byte(value)}
	case AttrCharset:
		return []byte{esc, 'R', byte(value)}
	case AttrTable:
		// 把码表分配到表 1 后选中表 1
		return []byte{esc, '(', 't', 0x03, 0x00, 0x01, byte(value), 0x00, esc, 't', 0x01}
	default:
		return nil
	}
}

// MoveAbsoluteX 把打印头移动到距左边距 units 点的位置（ESC $）。
func (e *Encoder) MoveAbsoluteX(units int) []byte {
	if units < 0 {
		units = 0
	}
	return []byte{esc, '$', byte(units & 0xFF), byte((units >> 8) & 0xFF)}
}

// AdvanceY 用 ESC J 走纸 units 点。ESC J 以 1/180 英寸为步长，
// 每条命令最多 255 步；返回的 advanced 是实际推进的点数，可能略小于 units。
func (e *Encoder) AdvanceY(units int) ([][]byte, int) {
	if units <= 0 {
		return nil, 0
	}
	dpi := e.dpi()
	steps := units * feedUnits / dpi
	var cmds [][]byte
	for remaining := steps; remaining > 0; {
		n := remaining
		if n > maxFeed {
			n = maxFeed
		}
		cmds = append(cmds, []byte{esc, 'J', byte(n)})
		remaining -= n
	}
	return cmds, steps * dpi / feedUnits
}

// FormFeed 走纸到下一页顶端。
func (e *Encoder) FormFeed() []byte { return []byte{0x0C} }

// CarriageReturn 把打印头移回左边距。
func (e *Encoder) CarriageReturn() []byte { return []byte{0x0D} }

// EncodeText 把 UTF-8 文本转换为设备字节：先按国际字符集替换，
// 再按码表编码，无法编码的字符输出 '?'。
func (e *Encoder) EncodeText(s string, charset Charset, table CodeTable) []byte {
	national := nationalTables[charset]
	cm := charmapFor(table)
	var buf bytes.Buffer
	buf.Grow(len(s))
	for _, r := range s {
		if r == utf8.RuneError {
			buf.WriteByte('?')
			continue
		}
		if pos, ok := national.glyphs[r]; ok {
			buf.WriteByte(pos)
			continue
		}
		if r < 0x80 {
			if national.displaced(byte(r)) {
				buf.WriteByte('?')
				continue
			}
			buf.WriteByte(byte(r))
			continue
		}
		if b, ok := cm.EncodeRune(r); ok && b >= 0x80 {
			buf.WriteByte(b)
			continue
		}
		buf.WriteByte('?')
	}
	return buf.Bytes()
}

func charmapFor(t CodeTable) *charmap.Charmap {
	switch t {
	case PC850:
		return charmap.CodePage850
	case PC852:
		return charmap.CodePage852
	case PC858:
		return charmap.CodePage858
	case PC860:
		return charmap.CodePage860
	case PC863:
		return charmap.CodePage863
	case PC865:
		return charmap.CodePage865
	case PC866:
		return charmap.CodePage866
	case ISO8859_1:
		return charmap.ISO8859_1
	case ISO8859_15:
		return charmap.ISO8859_15
	default:
		return charmap.CodePage437
	}
}

func pick(on bool, a, b []byte) []byte {
	if on {
		return a
	}
	return b
}

func boolByte(on bool) byte {
	if on {
		return 1
	}
	return 0
}
