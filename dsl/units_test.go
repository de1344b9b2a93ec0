package dsl

import (
	"math"
	"testing"

	"github.com/ByLCY/stylus/node"
)

// TestLengthDots 覆盖各单位在 360 dpi 下换算到点的结果。
func TestLengthDots(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"1in", 360},
		{"0.5in", 180},
		{"25.4mm", 360},
		{"2.54cm", 360},
		{"72pt", 360},
		{"90", 90},
		{"90dots", 90},
		{"-5", -5},
	}
	for _, tc := range cases {
		l, err := ParseLength(tc.in)
		if err != nil {
			t.Fatalf("解析 %s 失败: %v", tc.in, err)
		}
		if got := l.Dots(360); got != tc.want {
			t.Fatalf("%s 期望 %d 点，实际 %d", tc.in, tc.want, got)
		}
	}
}

// TestLengthInchesRoundTrip 验证 mm↔in 往返精度。
func TestLengthInchesRoundTrip(t *testing.T) {
	for _, mm := range []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000} {
		in := Length{Value: mm, Unit: UnitMM}.Inches(360)
		back := in * MMPerInch
		if diff := math.Abs(back - mm); diff > 1e-9 {
			t.Fatalf("mm→in→mm 往返误差过大: in=%gmm back=%g diff=%g", mm, back, diff)
		}
	}
	if got := (Length{Value: 120, Unit: UnitDots}).Inches(120); got != 1 {
		t.Fatalf("120 点在 120 dpi 下应为 1in，实际 %g", got)
	}
}

func TestParseDimension(t *testing.T) {
	cases := map[string]node.Dimension{
		"auto": node.Auto(),
		"":     node.Auto(),
		"fill": node.Fill(),
		"50%":  node.Percent(50),
		"1in":  node.Dots(360),
		"36":   node.Dots(36),
	}
	for in, want := range cases {
		got, err := ParseDimension(in, 360)
		if err != nil {
			t.Fatalf("解析 %q 失败: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q 期望 %+v，实际 %+v", in, want, got)
		}
	}
	if _, err := ParseDimension("wide", 360); err == nil {
		t.Fatalf("非法尺寸应当报错")
	}
	if _, err := ParseLength("abcmm"); err == nil {
		t.Fatalf("非法长度应当报错")
	}
}
