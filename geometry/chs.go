// Package geometry converts linear block addresses into the cylinder/head/sector
// triplets stored in DOS partition table entries.
//
// The disks this tool writes are addressed by LBA only. The CHS fields are
// filled from a fixed fake geometry of 63 sectors per track and 256 heads so
// that disk tools which sanity-check them are satisfied.
package geometry

const (
	SectorsPerTrack = 63
	Heads           = 256

	// MaxCylinder is the largest cylinder a 10-bit CHS field can hold.
	MaxCylinder = 1023
)

// CHS is a packed address in on-disk order: head, sector (bits 0-5) with the
// two high cylinder bits (bits 6-7), low cylinder byte.
type CHS [3]byte

// Unrepresentable is stored for addresses beyond MaxCylinder, telling
// readers to use the LBA fields instead.
var Unrepresentable = CHS{0xFF, 0xFF, 0xFF}

// FromLBA returns the packed CHS address of lba.
func FromLBA(lba uint32) CHS {
	track := lba / SectorsPerTrack
	cylinder := track / Heads
	if cylinder > MaxCylinder {
		return Unrepresentable
	}
	head := track % Heads
	sector := lba%SectorsPerTrack + 1
	return Pack(uint16(cylinder), uint8(head), uint8(sector))
}

// Pack encodes cylinder, head and 1-based sector.
func Pack(cylinder uint16, head, sector uint8) CHS {
	return CHS{
		head,
		sector&0x3F | byte(cylinder>>2)&0xC0,
		byte(cylinder),
	}
}

func (c CHS) Head() uint8 {
	return c[0]
}

func (c CHS) Sector() uint8 {
	return c[1] & 0x3F
}

func (c CHS) Cylinder() uint16 {
	return uint16(c[1]&0xC0)<<2 | uint16(c[2])
}

// LBA converts c back to a linear address using the fake geometry. It
// reports false for the Unrepresentable sentinel and for sector 0.
func (c CHS) LBA() (uint32, bool) {
	if c == Unrepresentable || c.Sector() == 0 {
		return 0, false
	}
	track := uint32(c.Cylinder())*Heads + uint32(c.Head())
	return track*SectorsPerTrack + uint32(c.Sector()) - 1, true
}
