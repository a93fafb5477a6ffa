package blockdev

import (
	"fmt"

	"mkhd/layout"
)

// Section is a partition-relative view of a Device. Sector 0 of a Section
// is the partition's first sector; any access at or beyond the partition
// length fails with ErrOutOfBounds.
type Section struct {
	dev   Device
	start uint64
	size  uint64
}

// NewSection returns a view of d restricted to p.
func NewSection(d Device, p layout.Partition) *Section {
	return &Section{dev: d, start: uint64(p.Start), size: uint64(p.Length)}
}

func (s *Section) Info() (Info, error) {
	return Info{Sectors: s.size, SectorSize: SectorSize}, nil
}

func (s *Section) check(lba uint64) error {
	if lba >= s.size {
		return fmt.Errorf("%w: sector %d, partition has %d", ErrOutOfBounds, lba, s.size)
	}
	return nil
}

func (s *Section) ReadSector(lba uint64, buf []byte) error {
	if err := s.check(lba); err != nil {
		return err
	}
	return s.dev.ReadSector(s.start+lba, buf)
}

func (s *Section) WriteSector(lba uint64, buf []byte) error {
	if err := s.check(lba); err != nil {
		return err
	}
	return s.dev.WriteSector(s.start+lba, buf)
}
