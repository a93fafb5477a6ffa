// Package layout holds the data model shared by the partition table and file
// system writers, and plans how a disk is divided into partitions.
package layout

import (
	"fmt"
	"math"
	"strings"
)

// SectorSize is the size of a physical sector in bytes.
const SectorSize = 512

// SectorsPerMiB is the number of physical sectors in one MiB.
const SectorsPerMiB = 1024 * 1024 / SectorSize

// Kind selects the partition table format.
type Kind int

const (
	DOS Kind = iota
	Atari
)

func (k Kind) String() string {
	switch k {
	case DOS:
		return "dos"
	case Atari:
		return "atari"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses "dos" or "atari".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dos", "pc", "mbr":
		return DOS, nil
	case "atari", "ahdi", "tos":
		return Atari, nil
	}
	return 0, fmt.Errorf("unknown partition table kind %q", s)
}

// Mode is the compatibility target the partitions and file systems must be
// readable by.
type Mode int

const (
	ModeDOS Mode = iota
	ModeTOS100
	ModeTOS104
	ModeTOS404
)

var modeNames = map[Mode]string{
	ModeDOS:    "dos",
	ModeTOS100: "tos100",
	ModeTOS104: "tos104",
	ModeTOS404: "tos404",
}

func (m Mode) String() string {
	if n, ok := modeNames[m]; ok {
		return n
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts the names returned by Mode.String, with or without dots
// and dashes ("tos-1.04", "TOS104").
func ParseMode(s string) (Mode, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", ".", "", " ", "").Replace(norm)
	for m, n := range modeNames {
		if n == norm {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown compatibility mode %q", s)
}

// Atari reports whether m targets TOS rather than DOS.
func (m Mode) Atari() bool {
	return m != ModeDOS
}

// CeilingMiB is the largest partition size m can address.
func (m Mode) CeilingMiB() uint32 {
	switch m {
	case ModeTOS100:
		return 256
	case ModeTOS104:
		return 512
	case ModeTOS404:
		return 1024
	}
	return 2047
}

// MaxClusters is the largest FAT16 cluster count m supports.
func (m Mode) MaxClusters() uint32 {
	switch m {
	case ModeTOS100:
		return 16382
	case ModeTOS104, ModeTOS404:
		return 32766
	}
	return 65524
}

// MaxLogicalRatio is the largest number of physical sectors one logical
// sector may group. DOS never groups sectors.
func (m Mode) MaxLogicalRatio() uint32 {
	switch m {
	case ModeDOS:
		return 1
	case ModeTOS404:
		return 32
	}
	return 16
}

// Partition is a contiguous run of physical sectors.
type Partition struct {
	Start  uint32 // sector offset from the disk origin
	Length uint32 // sector count
}

// End returns the first sector after p.
func (p Partition) End() uint32 {
	return p.Start + p.Length
}

// MiB returns the partition size rounded down to MiB.
func (p Partition) MiB() uint32 {
	return p.Length / SectorsPerMiB
}

func (p Partition) String() string {
	return fmt.Sprintf("[%d, +%d)", p.Start, p.Length)
}

// ClampCapacity limits a device capacity to what 32-bit LBA fields can
// describe. The second result reports whether clamping happened.
func ClampCapacity(sectors uint64) (uint32, bool) {
	if sectors > math.MaxUint32 {
		return math.MaxUint32, true
	}
	return uint32(sectors), false
}

// Rand is the random source used for disk signatures and volume serials.
// *math/rand.Rand satisfies it.
type Rand interface {
	Uint32() uint32
}
