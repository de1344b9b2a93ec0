package escp

import (
	"bytes"
	"testing"
)

func TestInitSetsUnit(t *testing.T) {
	got := NewEncoder(360).Init()
	want := []byte{0x1B, '@', 0x1B, '(', 'U', 0x01, 0x00, 10}
	if !bytes.Equal(got, want) {
		t.Fatalf("Init() = % x, want % x", got, want)
	}
}

func TestAdvanceYSplitsCommands(t *testing.T) {
	enc := NewEncoder(360)
	cmds, advanced := enc.AdvanceY(1200)
	// 1200/360" = 600/180"
	if len(cmds) != 3 {
		t.Fatalf("expected 3 ESC J commands, got %d", len(cmds))
	}
	total := 0
	for _, c := range cmds {
		if c[0] != 0x1B || c[1] != 'J' {
			t.Fatalf("unexpected command % x", c)
		}
		total += int(c[2])
	}
	if total != 600 {
		t.Fatalf("expected 600 feed steps, got %d", total)
	}
	if advanced != 1200 {
		t.Fatalf("expected to advance 1200 dots, got %d", advanced)
	}

	_, advanced = enc.AdvanceY(61)
	if advanced != 60 {
		t.Fatalf("odd dot counts round down to the feed step, got %d", advanced)
	}
	if cmds, advanced := enc.AdvanceY(0); cmds != nil || advanced != 0 {
		t.Fatalf("zero advance must emit nothing")
	}
}

func TestMoveAbsoluteX(t *testing.T) {
	got := NewEncoder(360).MoveAbsoluteX(300)
	want := []byte{0x1B, '$', 0x2C, 0x01}
	if !bytes.Equal(got, want) {
		t.Fatalf("MoveAbsoluteX(300) = % x, want % x", got, want)
	}
}

func TestStyleCommands(t *testing.T) {
	enc := NewEncoder(360)
	cases := []struct {
		attr  Attr
		value int
		want  []byte
	}{
		{AttrBold, 1, []byte{0x1B, 'E'}},
		{AttrBold, 0, []byte{0x1B, 'F'}},
		{AttrUnderline, 1, []byte{0x1B, '-', 1}},
		{AttrCondensed, 1, []byte{0x0F}},
		{AttrCondensed, 0, []byte{0x12}},
		{AttrPitch, 12, []byte{0x1B, 'M'}},
		{AttrPitch, 15, []byte{0x1B, 'g'}},
		{AttrPitch, 10, []byte{0x1B, 'P'}},
		{AttrQuality, int(Letter), []byte{0x1B, 'x', 1}},
		{AttrCharset, int(Germany), []byte{0x1B, 'R', 2}},
	}
	for _, tc := range cases {
		if got := enc.StyleCommand(tc.attr, tc.value); !bytes.Equal(got, tc.want) {
			t.Fatalf("StyleCommand(%s, %d) = % x, want % x", tc.attr, tc.value, got, tc.want)
		}
	}
}

func TestEncodeText(t *testing.T) {
	enc := NewEncoder(360)
	if got := enc.EncodeText("Hi", USA, PC437); !bytes.Equal(got, []byte("Hi")) {
		t.Fatalf("ascii passthrough failed: % x", got)
	}
	// é 在 PC437 中是 0x82
	if got := enc.EncodeText("é", USA, PC437); !bytes.Equal(got, []byte{0x82}) {
		t.Fatalf("PC437 é = % x", got)
	}
	if got := enc.EncodeText("€", USA, PC437); !bytes.Equal(got, []byte("?")) {
		t.Fatalf("unencodable rune must become '?', got % x", got)
	}
	if got := enc.EncodeText("€", USA, PC858); !bytes.Equal(got, []byte{0xD5}) {
		t.Fatalf("PC858 € = % x", got)
	}
	if got := enc.EncodeText("Ä£", Germany, PC437); got[0] != 0x5B {
		t.Fatalf("German Ä must use national slot 0x5B, got % x", got)
	}
	if got := enc.EncodeText("£#", UK, PC437); !bytes.Equal(got, []byte{0x23, '?'}) {
		t.Fatalf("UK £ = % x", got)
	}
}
