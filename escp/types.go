package escp

import "fmt"

// Attr 是可由 StyleCommand 切换的打印属性。
type Attr int

const (
	AttrBold Attr = iota
	AttrItalic
	AttrUnderline
	AttrDoubleStrike
	AttrDoubleWidth
	AttrDoubleHeight
	AttrCondensed
	AttrProportional
	AttrPitch
	AttrTypeface
	AttrQuality
	AttrCharset
	AttrTable
)

var attrNames = map[Attr]string{
	AttrBold:         "bold",
	AttrItalic:       "italic",
	AttrUnderline:    "underline",
	AttrDoubleStrike: "double-strike",
	AttrDoubleWidth:  "double-width",
	AttrDoubleHeight: "double-height",
	AttrCondensed:    "condensed",
	AttrProportional: "proportional",
	AttrPitch:        "pitch",
	AttrTypeface:     "typeface",
	AttrQuality:      "quality",
	AttrCharset:      "charset",
	AttrTable:        "table",
}

func (a Attr) String() string {
	if s, ok := attrNames[a]; ok {
		return s
	}
	return fmt.Sprintf("attr(%d)", int(a))
}

// Quality 对应 ESC x。
type Quality int

const (
	Draft  Quality = 0
	Letter Quality = 1
)

func (q Quality) String() string {
	if q == Draft {
		return "draft"
	}
	return "letter"
}

// Typeface 对应 ESC k 的字体编号。
type Typeface int

const (
	Roman     Typeface = 0
	SansSerif Typeface = 1
	Courier   Typeface = 2
	Prestige  Typeface = 3
	Script    Typeface = 4
)

var typefaceNames = map[string]Typeface{
	"roman":      Roman,
	"sans-serif": SansSerif,
	"sans":       SansSerif,
	"courier":    Courier,
	"prestige":   Prestige,
	"script":     Script,
}

// ParseTypeface 按名称查找字体。
func ParseTypeface(name string) (Typeface, bool) {
	t, ok := typefaceNames[name]
	return t, ok
}

// Charset 是 ESC R 选择的国际字符集。
type Charset int

const (
	USA     Charset = 0
	France  Charset = 1
	Germany Charset = 2
	UK      Charset = 3
	Denmark Charset = 4
	Sweden  Charset = 5
	Italy   Charset = 6
	Spain   Charset = 7
	Norway  Charset = 9
)

var charsetNames = map[string]Charset{
	"usa":     USA,
	"france":  France,
	"germany": Germany,
	"uk":      UK,
	"denmark": Denmark,
	"sweden":  Sweden,
	"italy":   Italy,
	"spain":   Spain,
	"norway":  Norway,
}

// ParseCharset 按名称查找字符集（小写）。
func ParseCharset(name string) (Charset, bool) {
	c, ok := charsetNames[name]
	return c, ok
}

func (c Charset) String() string {
	for name, v := range charsetNames {
		if v == c {
			return name
		}
	}
	return fmt.Sprintf("charset(%d)", int(c))
}

// CodeTable 是 ESC ( t 分配的字符码表。
type CodeTable int

const (
	PC437      CodeTable = 1
	PC850      CodeTable = 3
	PC860      CodeTable = 7
	PC863      CodeTable = 8
	PC865      CodeTable = 9
	PC866      CodeTable = 14
	PC852      CodeTable = 15
	PC858      CodeTable = 25
	ISO8859_1  CodeTable = 29
	ISO8859_15 CodeTable = 30
)

var tableNames = map[string]CodeTable{
	"pc437":       PC437,
	"pc850":       PC850,
	"pc852":       PC852,
	"pc858":       PC858,
	"pc860":       PC860,
	"pc863":       PC863,
	"pc865":       PC865,
	"pc866":       PC866,
	"iso-8859-1":  ISO8859_1,
	"latin1":      ISO8859_1,
	"iso-8859-15": ISO8859_15,
	"latin9":      ISO8859_15,
}

// ParseCodeTable 按名称查找码表（小写）。
func ParseCodeTable(name string) (CodeTable, bool) {
	t, ok := tableNames[name]
	return t, ok
}

func (t CodeTable) String() string {
	switch t {
	case PC437:
		return "pc437"
	case PC850:
		return "pc850"
	case PC852:
		return "pc852"
	case PC858:
		return "pc858"
	case PC860:
		return "pc860"
	case PC863:
		return "pc863"
	case PC865:
		return "pc865"
	case PC866:
		return "pc866"
	case ISO8859_1:
		return "iso-8859-1"
	case ISO8859_15:
		return "iso-8859-15"
	}
	return fmt.Sprintf("table(%d)", int(t))
}
