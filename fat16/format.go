package fat16

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"mkhd/blockdev"
	"mkhd/layout"
)

// Options control Format.
type Options struct {
	ByteSwap bool
	OEM      string
	Label    string
	Serial   uint32
}

// Format writes an empty FAT16 file system into part of d. Every write is
// relative to the partition and bounds checked against it. The boot sector
// is written last, so an interrupted format leaves no valid volume behind.
func Format(d blockdev.Device, part layout.Partition, mode layout.Mode, opts Options) (Geometry, error) {
	g, err := ComputeGeometry(part, mode)
	if err != nil {
		return Geometry{}, err
	}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	if len(opts.Label) > 11 {
		return Geometry{}, fmt.Errorf("volume label %q is longer than 11 characters", opts.Label)
	}
	sec := blockdev.NewSection(d, part)
	write := func(lba uint32, buf []byte) error {
		return blockdev.Write(sec, uint64(lba), buf, opts.ByteSwap)
	}

	zero := make([]byte, blockdev.SectorSize)
	head := make([]byte, blockdev.SectorSize)
	head[0], head[1], head[2] = MediaFixed, 0xFF, 0xFF

	// The reserved area is one logical sector; clear the rest of it.
	for i := uint32(1); i < g.FATStart(0); i++ {
		if err := write(i, zero); err != nil {
			return g, fmt.Errorf("reserved area: %w", err)
		}
	}

	fatLen := g.SectorsPerFAT * g.Ratio
	for n := 0; n < int(g.NumFATs); n++ {
		start := g.FATStart(n)
		log.Debugf("FAT %d at %d+%d", n+1, part.Start+start, fatLen)
		if err := write(start, head); err != nil {
			return g, fmt.Errorf("FAT %d: %w", n+1, err)
		}
		for i := uint32(1); i < fatLen; i++ {
			if err := write(start+i, zero); err != nil {
				return g, fmt.Errorf("FAT %d: %w", n+1, err)
			}
		}
	}

	root := g.RootStart()
	log.Debugf("root directory at %d+%d", part.Start+root, g.RootSectors())
	for i := uint32(0); i < g.RootSectors(); i++ {
		if err := write(root+i, zero); err != nil {
			return g, fmt.Errorf("root directory: %w", err)
		}
	}

	boot := g.BootSector(opts.OEM, opts.Label, opts.Serial).Marshal(mode.Atari())
	if err := write(0, boot); err != nil {
		return g, fmt.Errorf("boot sector: %w", err)
	}
	log.Infof("formatted %v as FAT16: %d clusters of %d bytes", part, g.Clusters(), g.ClusterSectors*blockdev.SectorSize)
	return g, nil
}
