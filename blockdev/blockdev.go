// Package blockdev is the sector-level I/O layer. A Device is either a disk
// image file, a raw hardware device or an in-memory buffer; the writers in
// this module only ever see the Device interface.
package blockdev

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"mkhd/layout"
)

// SectorSize is the only sector size the writers support.
const SectorSize = layout.SectorSize

var (
	// ErrInvariant marks impossible configurations: they indicate a bug in
	// a planner or writer, never a user error.
	ErrInvariant = errors.New("invariant violation")

	// ErrIO marks device failures. Sectors written before the failure are
	// not rolled back.
	ErrIO = errors.New("device I/O failed")

	ErrSectorSize  = fmt.Errorf("%w: unsupported sector size", ErrInvariant)
	ErrOutOfBounds = fmt.Errorf("%w: sector outside partition", ErrInvariant)
)

// Info describes a device.
type Info struct {
	Sectors    uint64
	SectorSize int
}

// Device reads and writes single 512-byte sectors by absolute index.
type Device interface {
	Info() (Info, error)
	ReadSector(lba uint64, buf []byte) error
	WriteSector(lba uint64, buf []byte) error
}

// Capacity returns the number of sectors on d after checking that d uses
// 512-byte sectors.
func Capacity(d Device) (uint64, error) {
	info, err := d.Info()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if info.SectorSize != SectorSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrSectorSize, info.SectorSize)
	}
	return info.Sectors, nil
}

// SwapPairs exchanges every adjacent pair of bytes in b in place.
func SwapPairs(b []byte) {
	for i := 0; i+1 < len(b); i += 2 {
		b[i], b[i+1] = b[i+1], b[i]
	}
}

// Write writes one sector at lba. When swap is set the bytes are pairwise
// swapped just before the write, for controllers that swap them back in
// hardware; buf itself is left untouched.
func Write(d Device, lba uint64, buf []byte, swap bool) error {
	if len(buf) != SectorSize {
		return fmt.Errorf("%w: %d byte sector buffer", ErrInvariant, len(buf))
	}
	out := buf
	if swap {
		out = make([]byte, SectorSize)
		copy(out, buf)
		SwapPairs(out)
	}
	log.Tracef("write sector %d", lba)
	if err := d.WriteSector(lba, out); err != nil {
		if errors.Is(err, ErrInvariant) {
			return err
		}
		return fmt.Errorf("%w: sector %d: %w", ErrIO, lba, err)
	}
	return nil
}

// Read reads one sector at lba, undoing the byte swap applied by Write.
func Read(d Device, lba uint64, buf []byte, swap bool) error {
	if len(buf) != SectorSize {
		return fmt.Errorf("%w: %d byte sector buffer", ErrInvariant, len(buf))
	}
	if err := d.ReadSector(lba, buf); err != nil {
		if errors.Is(err, ErrInvariant) {
			return err
		}
		return fmt.Errorf("%w: sector %d: %w", ErrIO, lba, err)
	}
	if swap {
		SwapPairs(buf)
	}
	return nil
}
