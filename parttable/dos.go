package parttable

import (
	"encoding/binary"
	"fmt"

	"mkhd/geometry"
)

const (
	TypeFAT16    = 0x06
	TypeExtended = 0x05
	typeExtLBA   = 0x0F

	dosSignatureOffset = 0x1B8
	dosEntryOffset     = 0x1BE
	dosEntrySize       = 16
	bootSigOffset      = 510
)

// BootSignature closes every DOS master table.
var BootSignature = [2]byte{0x55, 0xAA}

type dosCodec struct{}

func (dosCodec) encode(s *Sector, master bool, t *Table) {
	b := s.Data[:]
	if master {
		binary.LittleEndian.PutUint32(b[dosSignatureOffset:], t.Signature)
	}
	for i := range s.Entries {
		e := &s.Entries[i]
		e.Type = TypeFAT16
		if e.Extended {
			e.Type = TypeExtended
		}
		e.First = geometry.FromLBA(e.Abs)
		e.Last = geometry.FromLBA(e.Abs + e.Length - 1)

		off := dosEntryOffset + i*dosEntrySize
		b[off] = 0x00 // not bootable
		copy(b[off+1:off+4], e.First[:])
		b[off+4] = e.Type
		copy(b[off+5:off+8], e.Last[:])
		binary.LittleEndian.PutUint32(b[off+8:], e.Start)
		binary.LittleEndian.PutUint32(b[off+12:], e.Length)
	}
	copy(b[bootSigOffset:], BootSignature[:])
}

func (dosCodec) decode(b []byte) ([]Entry, error) {
	if b[bootSigOffset] != BootSignature[0] || b[bootSigOffset+1] != BootSignature[1] {
		return nil, fmt.Errorf("%w: missing 55 AA signature", ErrNoTable)
	}
	var entries []Entry
	for i := 0; i < primarySlots; i++ {
		off := dosEntryOffset + i*dosEntrySize
		typ := b[off+4]
		if typ == 0 {
			continue
		}
		e := Entry{
			Extended: typ == TypeExtended || typ == typeExtLBA,
			Type:     typ,
			Start:    binary.LittleEndian.Uint32(b[off+8:]),
			Length:   binary.LittleEndian.Uint32(b[off+12:]),
		}
		copy(e.First[:], b[off+1:off+4])
		copy(e.Last[:], b[off+5:off+8])
		entries = append(entries, e)
	}
	return entries, nil
}
