package parttable

import (
	"encoding/binary"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"mkhd/blockdev"
	"mkhd/layout"
)

// ErrNoTable is returned when a sector does not hold a recognizable table.
var ErrNoTable = errors.New("no partition table")

// Detect guesses the table kind of a master sector.
func Detect(b []byte) (layout.Kind, error) {
	if len(b) != blockdev.SectorSize {
		return 0, fmt.Errorf("%w: %d byte sector", blockdev.ErrInvariant, len(b))
	}
	if plausibleAtari(b) {
		return layout.Atari, nil
	}
	if b[bootSigOffset] == BootSignature[0] && b[bootSigOffset+1] == BootSignature[1] {
		return layout.DOS, nil
	}
	return 0, ErrNoTable
}

// Read decodes the master table of d and follows its extended chain. If
// kind is nil the kind is detected. The returned table lists partitions in
// chain order with absolute starts; for Atari tables DiskSize is the stored
// hd_siz, for DOS tables the device capacity.
func Read(d blockdev.Device, kind *layout.Kind, byteSwap bool) (*Table, error) {
	capacity, err := blockdev.Capacity(d)
	if err != nil {
		return nil, err
	}
	var master Sector
	if err := blockdev.Read(d, 0, master.Data[:], byteSwap); err != nil {
		return nil, err
	}
	k := layout.DOS
	if kind != nil {
		k = *kind
	} else if k, err = Detect(master.Data[:]); err != nil {
		return nil, err
	}
	c, err := codecFor(k)
	if err != nil {
		return nil, err
	}

	t := &Table{Kind: k}
	clamped, _ := layout.ClampCapacity(capacity)
	switch k {
	case layout.DOS:
		t.DiskSize = clamped
		t.Signature = binary.LittleEndian.Uint32(master.Data[dosSignatureOffset:])
	case layout.Atari:
		t.DiskSize = atariDiskSize(master.Data[:])
	}

	if master.Entries, err = c.decode(master.Data[:]); err != nil {
		return nil, err
	}
	var chain uint32
	for i := range master.Entries {
		e := &master.Entries[i]
		e.Abs = e.Start
		if e.Extended {
			chain = e.Start
			continue
		}
		t.Partitions = append(t.Partitions, layout.Partition{Start: e.Start, Length: e.Length})
	}
	t.Sectors = append(t.Sectors, master)

	for lba := chain; lba != 0; {
		if len(t.Sectors) > layout.MaxPartitions {
			return nil, fmt.Errorf("%w: extended chain longer than %d records", ErrNoTable, layout.MaxPartitions)
		}
		s := Sector{LBA: lba}
		if err := blockdev.Read(d, uint64(lba), s.Data[:], byteSwap); err != nil {
			return nil, err
		}
		if s.Entries, err = c.decode(s.Data[:]); err != nil {
			return nil, fmt.Errorf("extended record at sector %d: %w", lba, err)
		}
		next := uint32(0)
		for i := range s.Entries {
			e := &s.Entries[i]
			if e.Extended {
				e.Abs = chain + e.Start
				next = e.Abs
				continue
			}
			e.Abs = lba + e.Start
			t.Partitions = append(t.Partitions, layout.Partition{Start: e.Abs, Length: e.Length})
		}
		log.Debugf("extended record at %d, next %d", lba, next)
		t.Sectors = append(t.Sectors, s)
		if next != 0 && next <= lba {
			return nil, fmt.Errorf("%w: extended record at %d points back to %d", ErrNoTable, lba, next)
		}
		lba = next
	}
	return t, nil
}

