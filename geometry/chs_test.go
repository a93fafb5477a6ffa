package geometry

import "testing"

func TestFromLBA(t *testing.T) {
	for _, tt := range []struct {
		lba  uint32
		want CHS
	}{
		{0, CHS{0, 1, 0}},
		{62, CHS{0, 63, 0}},
		{63, CHS{1, 1, 0}},
		{63 * 256, CHS{0, 1, 1}},
		// cylinder 300 needs the high bits: 300 = 0x12C
		{300 * 63 * 256, CHS{0, 0x41, 0x2C}},
		{1024*63*256 - 1, CHS{255, 0xFF, 0xFF}},
		{1024 * 63 * 256, Unrepresentable},
		{0xFFFFFFFF, Unrepresentable},
	} {
		if got := FromLBA(tt.lba); got != tt.want {
			t.Errorf("FromLBA(%d) = %x, want %x", tt.lba, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	const last = (MaxCylinder+1)*Heads*SectorsPerTrack - 1
	for lba := uint32(0); lba < last; lba += 4099 {
		c := FromLBA(lba)
		if c == Unrepresentable {
			t.Fatalf("FromLBA(%d) unexpectedly unrepresentable", lba)
		}
		wantCyl := lba / SectorsPerTrack / Heads
		if got := uint32(c.Cylinder()); got != wantCyl {
			t.Fatalf("FromLBA(%d).Cylinder() = %d, want %d", lba, got, wantCyl)
		}
		back, ok := c.LBA()
		if !ok || back != lba {
			t.Fatalf("FromLBA(%d).LBA() = %d, %v; want %d, true", lba, back, ok, lba)
		}
	}
}

func TestUnrepresentableLBA(t *testing.T) {
	if _, ok := Unrepresentable.LBA(); ok {
		t.Errorf("Unrepresentable.LBA() reported ok")
	}
	for _, b := range FromLBA(2000 * 63 * 256) {
		if b != 0xFF {
			t.Fatalf("cylinder 2000 encoded as %x, want all 0xFF", FromLBA(2000*63*256))
		}
	}
}
