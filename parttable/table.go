// Package parttable encodes master partition tables and extended boot
// record chains, in DOS (MBR) or Atari (AHDI root sector) format.
//
// Up to four partitions fit in the master table. With more, the master
// table holds three plus an extended entry covering the rest of the disk,
// and every further partition gives up its first sector to an extended boot
// record (EBR): entry 0 describes the partition relative to the EBR, entry 1
// points at the next EBR relative to the first one.
package parttable

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"mkhd/blockdev"
	"mkhd/geometry"
	"mkhd/layout"
)

const (
	primarySlots = 4

	// chainStart is the index of the first partition that lives in the
	// extended chain when there are more than primarySlots partitions.
	chainStart = primarySlots - 1
)

// Entry is one partition record as stored in a table sector. Start is
// relative to whatever the format dictates: the disk origin in the master
// table, the EBR itself or the first EBR inside a chain.
type Entry struct {
	Extended bool
	Start    uint32
	Length   uint32

	// Type is the DOS type byte, ID the Atari partition id. Both are set
	// by the codec when a sector is encoded or decoded.
	Type byte
	ID   string

	// CHS start and end, DOS only.
	First, Last geometry.CHS

	// Abs is the absolute first sector the entry describes; it drives the
	// CHS fields of DOS entries and is not itself stored.
	Abs uint32
}

// Sector is one encoded table sector and its absolute location.
type Sector struct {
	LBA     uint32
	Entries []Entry
	Data    [blockdev.SectorSize]byte
}

// Table is the complete set of table sectors for one disk.
type Table struct {
	Kind      layout.Kind
	DiskSize  uint32
	Signature uint32
	Sectors   []Sector

	// Partitions are the usable regions, in disk order. Partitions that
	// host an EBR start one sector later and are one sector shorter than
	// planned.
	Partitions []layout.Partition
}

// codec encodes the sector layout of one table kind.
type codec interface {
	encode(s *Sector, master bool, t *Table)
	decode(data []byte) ([]Entry, error)
}

func codecFor(kind layout.Kind) (codec, error) {
	switch kind {
	case layout.DOS:
		return dosCodec{}, nil
	case layout.Atari:
		return atariCodec{}, nil
	}
	return nil, fmt.Errorf("%w: unknown table kind %v", blockdev.ErrInvariant, kind)
}

func validate(parts []layout.Partition, capacity uint32) error {
	if len(parts) < 1 || len(parts) > layout.MaxPartitions {
		return fmt.Errorf("%w: %d partitions", blockdev.ErrInvariant, len(parts))
	}
	next := uint32(1)
	for i, p := range parts {
		if p.Start < next || p.Length == 0 || uint64(p.Start)+uint64(p.Length) > uint64(capacity) {
			return fmt.Errorf("%w: partition %d %v does not fit after sector %d on a %d sector disk",
				blockdev.ErrInvariant, i+1, p, next, capacity)
		}
		if len(parts) > primarySlots && i >= chainStart && p.Length < 2 {
			return fmt.Errorf("%w: partition %d too short to host an extended boot record", blockdev.ErrInvariant, i+1)
		}
		next = p.End()
	}
	return nil
}

// Build encodes the master table and, for more than four partitions, the
// EBR chain for parts on a disk of capacity sectors. signature is the DOS
// disk signature; Atari tables ignore it.
func Build(parts []layout.Partition, capacity uint32, kind layout.Kind, signature uint32) (*Table, error) {
	if err := validate(parts, capacity); err != nil {
		return nil, err
	}
	c, err := codecFor(kind)
	if err != nil {
		return nil, err
	}
	t := &Table{
		Kind:       kind,
		DiskSize:   capacity,
		Signature:  signature,
		Partitions: append([]layout.Partition(nil), parts...),
	}

	primary, chain := parts, []layout.Partition(nil)
	if len(parts) > primarySlots {
		primary, chain = parts[:chainStart], parts[chainStart:]
	}

	master := Sector{LBA: 0}
	for _, p := range primary {
		master.Entries = append(master.Entries, Entry{Start: p.Start, Length: p.Length, Abs: p.Start})
	}
	if len(chain) > 0 {
		first := chain[0].Start
		master.Entries = append(master.Entries, Entry{
			Extended: true,
			Start:    first,
			Length:   capacity - first,
			Abs:      first,
		})
	}
	c.encode(&master, true, t)
	t.Sectors = append(t.Sectors, master)

	for i, p := range chain {
		usable := layout.Partition{Start: p.Start + 1, Length: p.Length - 1}
		t.Partitions[chainStart+i] = usable
		ebr := Sector{LBA: p.Start}
		ebr.Entries = append(ebr.Entries, Entry{Start: 1, Length: usable.Length, Abs: usable.Start})
		if i+1 < len(chain) {
			next := chain[i+1].Start
			ebr.Entries = append(ebr.Entries, Entry{
				Extended: true,
				Start:    next - chain[0].Start,
				Length:   capacity - next,
				Abs:      next,
			})
		}
		c.encode(&ebr, false, t)
		t.Sectors = append(t.Sectors, ebr)
	}
	return t, nil
}

// Write writes every table sector of t to d, master table first.
func (t *Table) Write(d blockdev.Device, byteSwap bool) error {
	for _, s := range t.Sectors {
		if err := blockdev.Write(d, uint64(s.LBA), s.Data[:], byteSwap); err != nil {
			return fmt.Errorf("write %s table sector %d: %w", t.Kind, s.LBA, err)
		}
		log.Debugf("wrote %s table sector %d (%d entries)", t.Kind, s.LBA, len(s.Entries))
	}
	return nil
}

// Options control Write.
type Options struct {
	ByteSwap bool
	// Signature is the DOS disk signature, normally random.
	Signature uint32
}

// Write builds the tables for parts and writes them to d. It returns the
// usable partitions, adjusted for the sectors taken by EBRs, which are the
// regions the file systems must be written to.
func Write(d blockdev.Device, parts []layout.Partition, capacity uint32, kind layout.Kind, opts Options) ([]layout.Partition, error) {
	t, err := Build(parts, capacity, kind, opts.Signature)
	if err != nil {
		return nil, err
	}
	if err := t.Write(d, opts.ByteSwap); err != nil {
		return nil, err
	}
	return t.Partitions, nil
}
