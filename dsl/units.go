package dsl

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ByLCY/stylus/node"
)

// Unit 是 DSL 中长度值的原始单位。
type Unit int

const (
	UnitDots Unit = iota // 无单位数字按设备点处理
	UnitMM
	UnitCM
	UnitIN
	UnitPT
)

// 换算常量。
const (
	MMPerInch = 25.4
	PTPerInch = 72.0
)

func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return "dots"
	}
}

// Length 保留数值及其单位，换算推迟到已知 DPI 时进行。
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// Inches 把长度换算为英寸；UnitDots 需要 dpi。
func (l Length) Inches(dpi int) float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value / MMPerInch
	case UnitCM:
		return l.Value * 10 / MMPerInch
	case UnitIN:
		return l.Value
	case UnitPT:
		return l.Value / PTPerInch
	default:
		if dpi <= 0 {
			return 0
		}
		return l.Value / float64(dpi)
	}
}

// Dots 换算为设备点并四舍五入。
func (l Length) Dots(dpi int) int {
	if l.Unit == UnitDots {
		return int(math.Round(l.Value))
	}
	return int(math.Round(l.Inches(dpi) * float64(dpi)))
}

var unitSuffixes = []struct {
	s string
	u Unit
}{{"dots", UnitDots}, {"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}}

// ParseLength 解析 "0.5in"、"12mm"、"90" 之类的长度。
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("长度为空")
	}
	unit := UnitDots
	num := v
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析长度 %q", value)
	}
	return Length{Value: f, Unit: unit}, nil
}

// ParseDimension 解析宽高声明：auto、fill、百分比或长度。
func ParseDimension(value string, dpi int) (node.Dimension, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "", "auto":
		return node.Auto(), nil
	case "fill":
		return node.Fill(), nil
	}
	if strings.HasSuffix(v, "%") {
		p, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		if err != nil {
			return node.Dimension{}, fmt.Errorf("无法解析百分比 %q", value)
		}
		return node.Percent(p), nil
	}
	l, err := ParseLength(v)
	if err != nil {
		return node.Dimension{}, err
	}
	return node.Dots(l.Dots(dpi)), nil
}
