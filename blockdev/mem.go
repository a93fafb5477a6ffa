package blockdev

import (
	"fmt"
	"io"
)

// Mem is a sparse in-memory Device: only written sectors take memory.
// Besides tests it serves --dry-run.
type Mem struct {
	sectors uint64
	data    map[uint64][]byte
	writes  []uint64

	// FailWrite, when non-nil, is returned by every WriteSector call
	// once FailAfter writes have succeeded.
	FailWrite error
	FailAfter int
}

// NewMem returns a zero-filled device of the given number of sectors.
func NewMem(sectors uint64) *Mem {
	return &Mem{sectors: sectors, data: make(map[uint64][]byte)}
}

func (m *Mem) Info() (Info, error) {
	return Info{Sectors: m.sectors, SectorSize: SectorSize}, nil
}

func (m *Mem) ReadSector(lba uint64, buf []byte) error {
	if lba >= m.sectors {
		return io.EOF
	}
	if b, ok := m.data[lba]; ok {
		copy(buf, b)
		return nil
	}
	for i := range buf[:SectorSize] {
		buf[i] = 0
	}
	return nil
}

func (m *Mem) WriteSector(lba uint64, buf []byte) error {
	if m.FailWrite != nil && len(m.writes) >= m.FailAfter {
		return m.FailWrite
	}
	if lba >= m.sectors {
		return fmt.Errorf("sector %d beyond end of device", lba)
	}
	b, ok := m.data[lba]
	if !ok {
		b = make([]byte, SectorSize)
		m.data[lba] = b
	}
	copy(b, buf)
	m.writes = append(m.writes, lba)
	return nil
}

// Sector returns a copy of sector lba.
func (m *Mem) Sector(lba uint64) []byte {
	b := make([]byte, SectorSize)
	copy(b, m.data[lba])
	return b
}

// Writes returns the absolute sector indexes written so far, in order.
func (m *Mem) Writes() []uint64 {
	return append([]uint64(nil), m.writes...)
}
