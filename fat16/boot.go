package fat16

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"mkhd/blockdev"
	"mkhd/geometry"
)

const (
	DefaultOEM   = "MKHD"
	DefaultLabel = "NO NAME"

	fsType = "FAT16"

	// tosBootable is the big-endian word sum that makes TOS execute a
	// boot sector.
	tosBootable = 0x1234
)

// ErrNotFAT is returned by ParseBootSector for sectors without a usable BPB.
var ErrNotFAT = errors.New("not a FAT boot sector")

// BootSector holds the fields of a FAT16 boot sector with extended BPB.
type BootSector struct {
	OEM               string
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntries       uint16
	TotalSectors16    uint16
	Media             uint8
	SectorsPerFAT     uint16
	SectorsPerTrack   uint16
	Heads             uint16
	HiddenSectors     uint32
	TotalSectors32    uint32
	Drive             uint8
	Serial            uint32
	Label             string
	FSType            string
}

// BootSector returns the boot sector describing g. g must be valid.
func (g Geometry) BootSector(oem, label string, serial uint32) *BootSector {
	bs := &BootSector{
		OEM:               oem,
		BytesPerSector:    uint16(g.BytesPerSector),
		SectorsPerCluster: uint8(g.SectorsPerCluster),
		ReservedSectors:   uint16(g.ReservedSectors),
		NumFATs:           uint8(g.NumFATs),
		RootEntries:       uint16(g.RootEntries),
		Media:             MediaFixed,
		SectorsPerFAT:     uint16(g.SectorsPerFAT),
		SectorsPerTrack:   geometry.SectorsPerTrack,
		Heads:             geometry.Heads,
		HiddenSectors:     g.Partition.Start,
		Drive:             0x80,
		Serial:            serial,
		Label:             label,
		FSType:            fsType,
	}
	if g.Wide() {
		bs.TotalSectors32 = g.TotalSectors
	} else {
		bs.TotalSectors16 = uint16(g.TotalSectors)
	}
	return bs
}

func field(s, def string, n int) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		s = def
	}
	if len(s) > n {
		s = s[:n]
	}
	return s
}

// Marshal encodes bs. All BPB fields are little-endian in both modes. For
// TOS the low three serial bytes also go into the TOS serial field at
// offset 8, and the sector is kept from summing to the TOS boot checksum.
func (bs *BootSector) Marshal(atari bool) []byte {
	b := make([]byte, blockdev.SectorSize)
	b[0], b[1], b[2] = 0xEB, 0x3C, 0x90
	geometry.PutString(b[3:11], field(bs.OEM, DefaultOEM, 8), ' ')
	binary.LittleEndian.PutUint16(b[11:], bs.BytesPerSector)
	b[13] = bs.SectorsPerCluster
	binary.LittleEndian.PutUint16(b[14:], bs.ReservedSectors)
	b[16] = bs.NumFATs
	binary.LittleEndian.PutUint16(b[17:], bs.RootEntries)
	binary.LittleEndian.PutUint16(b[19:], bs.TotalSectors16)
	b[21] = bs.Media
	binary.LittleEndian.PutUint16(b[22:], bs.SectorsPerFAT)
	binary.LittleEndian.PutUint16(b[24:], bs.SectorsPerTrack)
	binary.LittleEndian.PutUint16(b[26:], bs.Heads)
	binary.LittleEndian.PutUint32(b[28:], bs.HiddenSectors)
	binary.LittleEndian.PutUint32(b[32:], bs.TotalSectors32)
	b[36] = bs.Drive
	b[38] = 0x29
	binary.LittleEndian.PutUint32(b[39:], bs.Serial)
	geometry.PutString(b[43:54], field(bs.Label, DefaultLabel, 11), ' ')
	geometry.PutString(b[54:62], field(bs.FSType, fsType, 8), ' ')
	b[510], b[511] = 0x55, 0xAA

	if atari {
		b[8], b[9], b[10] = byte(bs.Serial), byte(bs.Serial>>8), byte(bs.Serial>>16)
		if geometry.SumWords(b, binary.BigEndian) == tosBootable {
			b[10]++
		}
	}
	return b
}

// ParseBootSector decodes the BPB of b.
func ParseBootSector(b []byte) (*BootSector, error) {
	if len(b) != blockdev.SectorSize {
		return nil, fmt.Errorf("%w: %d byte sector", blockdev.ErrInvariant, len(b))
	}
	bs := &BootSector{
		OEM:               strings.TrimRight(string(b[3:11]), " \x00"),
		BytesPerSector:    binary.LittleEndian.Uint16(b[11:]),
		SectorsPerCluster: b[13],
		ReservedSectors:   binary.LittleEndian.Uint16(b[14:]),
		NumFATs:           b[16],
		RootEntries:       binary.LittleEndian.Uint16(b[17:]),
		TotalSectors16:    binary.LittleEndian.Uint16(b[19:]),
		Media:             b[21],
		SectorsPerFAT:     binary.LittleEndian.Uint16(b[22:]),
		SectorsPerTrack:   binary.LittleEndian.Uint16(b[24:]),
		Heads:             binary.LittleEndian.Uint16(b[26:]),
		HiddenSectors:     binary.LittleEndian.Uint32(b[28:]),
		TotalSectors32:    binary.LittleEndian.Uint32(b[32:]),
	}
	if bs.BytesPerSector == 0 || bs.BytesPerSector%blockdev.SectorSize != 0 || bs.SectorsPerCluster == 0 || bs.NumFATs == 0 {
		return nil, ErrNotFAT
	}
	if b[38] == 0x29 {
		bs.Drive = b[36]
		bs.Serial = binary.LittleEndian.Uint32(b[39:])
		bs.Label = strings.TrimRight(string(b[43:54]), " ")
		bs.FSType = strings.TrimRight(string(b[54:62]), " ")
	}
	return bs, nil
}

// TotalSectors returns whichever sector count field is in use.
func (bs *BootSector) TotalSectors() uint32 {
	if bs.TotalSectors16 != 0 {
		return uint32(bs.TotalSectors16)
	}
	return bs.TotalSectors32
}
