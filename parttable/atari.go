package parttable

import (
	"encoding/binary"

	"mkhd/geometry"
)

const (
	IDFAT16    = "BGM"
	IDSmall    = "GEM"
	IDExtended = "XGM"

	// Partitions shorter than this many sectors (16 MiB) are tagged GEM.
	smallLimit = 32768

	atariSizeOffset  = 0x1C2
	atariEntryOffset = 0x1C6
	atariEntrySize   = 12
	atariBSLOffset   = 0x1F6
	atariSumOffset   = 0x1FE

	flagExists = 0x01

	// ChecksumTotal is the word sum every root sector written here adds up
	// to. ChecksumBootable is the sum that makes TOS execute the sector.
	ChecksumTotal    = 0xFFFF
	ChecksumBootable = 0x1234
)

// Checksum returns the sum of b as big-endian 16-bit words.
func Checksum(b []byte) uint16 {
	return geometry.SumWords(b, binary.BigEndian)
}

type atariCodec struct{}

func (atariCodec) encode(s *Sector, master bool, t *Table) {
	b := s.Data[:]
	if master {
		binary.BigEndian.PutUint32(b[atariSizeOffset:], t.DiskSize)
	}
	for i := range s.Entries {
		e := &s.Entries[i]
		switch {
		case e.Extended:
			e.ID = IDExtended
		case e.Length < smallLimit:
			e.ID = IDSmall
		default:
			e.ID = IDFAT16
		}
		off := atariEntryOffset + i*atariEntrySize
		b[off] = flagExists
		copy(b[off+1:off+4], e.ID)
		binary.BigEndian.PutUint32(b[off+4:], e.Start)
		binary.BigEndian.PutUint32(b[off+8:], e.Length)
	}
	// bad sector list stays empty
	binary.BigEndian.PutUint32(b[atariBSLOffset:], 0)
	binary.BigEndian.PutUint32(b[atariBSLOffset+4:], 0)

	binary.BigEndian.PutUint16(b[atariSumOffset:], 0)
	binary.BigEndian.PutUint16(b[atariSumOffset:], ChecksumTotal-Checksum(b))
}

func (atariCodec) decode(b []byte) ([]Entry, error) {
	var entries []Entry
	for i := 0; i < primarySlots; i++ {
		off := atariEntryOffset + i*atariEntrySize
		if b[off]&flagExists == 0 {
			continue
		}
		e := Entry{
			ID:     string(b[off+1 : off+4]),
			Start:  binary.BigEndian.Uint32(b[off+4:]),
			Length: binary.BigEndian.Uint32(b[off+8:]),
		}
		e.Extended = e.ID == IDExtended
		entries = append(entries, e)
	}
	return entries, nil
}

func atariDiskSize(b []byte) uint32 {
	return binary.BigEndian.Uint32(b[atariSizeOffset:])
}

func plausibleAtari(b []byte) bool {
	found := false
	for i := 0; i < primarySlots; i++ {
		off := atariEntryOffset + i*atariEntrySize
		if b[off]&flagExists == 0 {
			continue
		}
		switch string(b[off+1 : off+4]) {
		case IDFAT16, IDSmall, IDExtended:
			found = true
		default:
			return false
		}
	}
	return found
}
