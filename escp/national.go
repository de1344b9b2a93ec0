package escp

// ESC R 会替换 ASCII 中这 12 个位置的字形。
var nationalPositions = [12]byte{0x23, 0x24, 0x40, 0x5B, 0x5C, 0x5D, 0x5E, 0x60, 0x7B, 0x7C, 0x7D, 0x7E}

type nationalTable struct {
	glyphs map[rune]byte
}

// displaced 判断 ASCII 字符 b 在该字符集下是否已被替换为别的字形。
func (t nationalTable) displaced(b byte) bool {
	if t.glyphs == nil {
		return false
	}
	for _, pos := range nationalPositions {
		if pos != b {
			continue
		}
		for r, p := range t.glyphs {
			if p == pos && r != rune(b) {
				return true
			}
		}
	}
	return false
}

func newNational(glyphs string) nationalTable {
	t := nationalTable{glyphs: make(map[rune]byte, len(nationalPositions))}
	i := 0
	for _, r := range glyphs {
		if i >= len(nationalPositions) {
			break
		}
		if r != rune(nationalPositions[i]) {
			t.glyphs[r] = nationalPositions[i]
		}
		i++
	}
	return t
}

var nationalTables = map[Charset]nationalTable{
	USA:     {},
	France:  newNational("#$à°ç§^`éùè¨"),
	Germany: newNational("#$§ÄÖÜ^`äöüß"),
	UK:      newNational("£$@[\\]^`{|}~"),
	Denmark: newNational("#$@ÆØÅ^`æøå~"),
	Sweden:  newNational("#¤ÉÄÖÅÜéäöåü"),
	Italy:   newNational("#$@°\\é^ùàòèì"),
	Spain:   newNational("₧$@¡Ñ¿^`¨ñ}~"),
	Norway:  newNational("#¤ÉÆØÅÜéæøåü"),
}
