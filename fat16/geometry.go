// Package fat16 derives FAT16 geometry for a partition and writes an empty
// file system into it: boot sector, two FATs and a zeroed root directory.
//
// Atari TOS reads FAT16 volumes with a fixed two sectors per cluster and
// grows the logical sector instead, so a TOS volume of the same size as a
// DOS one has the same cluster size in bytes but a logical sector of up to
// 16 KiB.
package fat16

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"mkhd/blockdev"
	"mkhd/layout"
)

const (
	NumFATs         = 2
	RootEntries     = 256
	ReservedSectors = 1 // logical
	MediaFixed      = 0xF8

	// MaxRootEntries is the largest root directory TOS accepts.
	MaxRootEntries = 1008

	// rootDirSectors is the root directory size in physical sectors.
	rootDirSectors = (RootEntries*32 + blockdev.SectorSize - 1) / blockdev.SectorSize

	maxClusterSectors = 1 << 15
)

// ErrGeometry marks a derived geometry that breaks a format constraint.
var ErrGeometry = fmt.Errorf("%w: bad FAT16 geometry", blockdev.ErrInvariant)

// Geometry is the file system layout derived for one partition. Sector
// counts are in logical sectors unless noted.
type Geometry struct {
	Mode      layout.Mode
	Partition layout.Partition

	ClusterSectors    uint32 // physical sectors per cluster
	Ratio             uint32 // physical sectors per logical sector
	BytesPerSector    uint32
	SectorsPerCluster uint32
	ReservedSectors   uint32
	NumFATs           uint32
	RootEntries       uint32
	TotalSectors      uint32
	SectorsPerFAT     uint32
}

// ComputeGeometry picks the smallest power-of-two cluster that keeps the
// cluster count of p within what mode supports and derives the rest of the
// layout from it. The result is not validated.
func ComputeGeometry(p layout.Partition, mode layout.Mode) (Geometry, error) {
	max := mode.MaxClusters()
	cs := uint32(2)
	for p.Length/cs > max {
		cs *= 2
		if cs > maxClusterSectors {
			return Geometry{}, fmt.Errorf("%w: no cluster size fits %d sectors", ErrGeometry, p.Length)
		}
	}
	g := Geometry{
		Mode:            mode,
		Partition:       p,
		ClusterSectors:  cs,
		ReservedSectors: ReservedSectors,
		NumFATs:         NumFATs,
		RootEntries:     RootEntries,
	}
	if mode.Atari() {
		g.SectorsPerCluster = 2
		g.Ratio = cs / 2
	} else {
		g.SectorsPerCluster = cs
		g.Ratio = 1
	}
	g.BytesPerSector = g.Ratio * blockdev.SectorSize
	g.TotalSectors = p.Length / g.Ratio

	overhead := uint32(ReservedSectors + rootDirSectors)
	if p.Length <= overhead {
		return Geometry{}, fmt.Errorf("%w: %d sectors leave no room for data", ErrGeometry, p.Length)
	}
	per := 256*cs + NumFATs
	fat := (p.Length - overhead + per - 1) / per
	g.SectorsPerFAT = (fat + g.Ratio - 1) / g.Ratio

	log.Debugf("geometry for %v (%s): %d sectors/cluster, %d bytes/sector, %d sectors/FAT, %d clusters",
		p, mode, g.SectorsPerCluster, g.BytesPerSector, g.SectorsPerFAT, g.Clusters())
	return g, nil
}

// Clusters returns the cluster count of the whole partition.
func (g Geometry) Clusters() uint32 {
	return g.Partition.Length / g.ClusterSectors
}

// Wide reports whether the sector count needs the 32-bit field.
func (g Geometry) Wide() bool {
	return g.TotalSectors > 0xFFFF
}

// FATStart returns the physical, partition-relative first sector of FAT
// copy n (0 or 1).
func (g Geometry) FATStart(n int) uint32 {
	return (g.ReservedSectors + uint32(n)*g.SectorsPerFAT) * g.Ratio
}

// RootStart returns the physical, partition-relative first sector of the
// root directory.
func (g Geometry) RootStart() uint32 {
	return (g.ReservedSectors + g.NumFATs*g.SectorsPerFAT) * g.Ratio
}

// RootSectors returns the root directory size in physical sectors.
func (g Geometry) RootSectors() uint32 {
	return (g.RootEntries*32 + blockdev.SectorSize - 1) / blockdev.SectorSize
}

// Validate checks g against the constraints of its mode.
func (g Geometry) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: "+format, append([]interface{}{ErrGeometry}, args...)...)
	}
	if g.NumFATs != NumFATs {
		return fail("%d FATs", g.NumFATs)
	}
	if c := g.Clusters(); c > g.Mode.MaxClusters() {
		return fail("%d clusters, %s allows %d", c, g.Mode, g.Mode.MaxClusters())
	}
	if g.Mode.Atari() {
		if g.SectorsPerCluster != 2 {
			return fail("%d sectors per cluster, TOS needs 2", g.SectorsPerCluster)
		}
		if g.Ratio > g.Mode.MaxLogicalRatio() {
			return fail("%d byte logical sectors exceed %s", g.BytesPerSector, g.Mode)
		}
		if g.Wide() {
			return fail("%d logical sectors need the 32-bit field", g.TotalSectors)
		}
		if g.RootEntries > MaxRootEntries {
			return fail("%d root entries", g.RootEntries)
		}
	} else {
		if g.BytesPerSector != blockdev.SectorSize {
			return fail("%d byte sectors", g.BytesPerSector)
		}
		if g.SectorsPerCluster > 64 {
			return fail("%d sectors per cluster", g.SectorsPerCluster)
		}
	}
	if g.SectorsPerFAT > 0xFFFF {
		return fail("%d sectors per FAT", g.SectorsPerFAT)
	}
	if end := g.RootStart() + g.RootSectors(); end >= g.Partition.Length {
		return fail("metadata ends at sector %d of %d", end, g.Partition.Length)
	}
	return nil
}
