package geometry

import (
	"encoding/binary"
	"testing"
)

func TestSumWords(t *testing.T) {
	b := []byte{0x12, 0x34, 0xFF, 0xFF, 0x00, 0x01, 0x7F}
	// 0xFFFF + 0x0001 wraps to 0
	if got, want := SumWords(b, binary.BigEndian), uint16(0x1234); got != want {
		t.Errorf("SumWords(BE) = %#04x, want %#04x", got, want)
	}
	if got, want := SumWords(b, binary.LittleEndian), uint16(0x3511); got != want {
		t.Errorf("SumWords(LE) = %#04x, want %#04x", got, want)
	}
}

func TestPutString(t *testing.T) {
	b := make([]byte, 8)
	PutString(b, "MKHD", ' ')
	if got := string(b); got != "MKHD    " {
		t.Errorf("PutString = %q", got)
	}
	PutString(b[:3], "TOOLONG", 0)
	if got := string(b[:3]); got != "TOO" {
		t.Errorf("PutString truncated = %q", got)
	}
}
