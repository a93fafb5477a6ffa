package layout

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

const (
	// MaxPartitions is the most partitions one disk can be split into.
	MaxPartitions = 14

	// MinPartitionMiB is both the smallest partition and the space kept in
	// reserve for every partition not yet placed.
	MinPartitionMiB = 5

	// Remainder requests the largest size the current slot permits.
	Remainder = 0

	// ceilingTrim is the margin kept below a TOS ceiling. No partition in
	// a TOS mode is longer than the ceiling less ceilingTrim sectors, so
	// its cluster count stays below the mode's limit.
	ceilingTrim = 128
)

var (
	ErrPlan           = errors.New("invalid partition plan")
	ErrPartitionCount = fmt.Errorf("%w: partition count must be between 1 and %d", ErrPlan, MaxPartitions)
	ErrSizeTooSmall   = fmt.Errorf("%w: partition smaller than %d MiB", ErrPlan, MinPartitionMiB)
	ErrSizeTooLarge   = fmt.Errorf("%w: partition larger than the space available", ErrPlan)
	ErrDiskTooSmall   = fmt.Errorf("%w: disk too small", ErrPlan)
	ErrIncompatible   = fmt.Errorf("%w: atari partition tables require a TOS mode", ErrPlan)
	ErrPlanComplete   = fmt.Errorf("%w: all partitions already placed", ErrPlan)
)

// Planner places partitions one at a time, so that an interactive caller
// can ask for each size within the bounds left by the previous ones.
// Sector 0 is never covered; it holds the master partition table.
type Planner struct {
	capacity uint32
	count    int
	mode     Mode
	cursor   uint32
	parts    []Partition
}

// NewPlanner prepares to split a disk of capacity sectors into count
// partitions for the given table kind and compatibility mode.
func NewPlanner(capacity uint32, count int, kind Kind, mode Mode) (*Planner, error) {
	if count < 1 || count > MaxPartitions {
		return nil, ErrPartitionCount
	}
	if kind == Atari && !mode.Atari() {
		return nil, ErrIncompatible
	}
	p := &Planner{
		capacity: capacity,
		count:    count,
		mode:     mode,
		cursor:   1,
	}
	if _, err := p.maxSectors(); err != nil {
		return nil, err
	}
	return p, nil
}

// maxSectors is the largest length the next partition may have.
func (p *Planner) maxSectors() (uint32, error) {
	if p.cursor >= p.capacity {
		return 0, ErrDiskTooSmall
	}
	remaining := uint64(p.capacity - p.cursor)
	after := uint64(p.count - len(p.parts) - 1)
	reserve := after * MinPartitionMiB * SectorsPerMiB
	if remaining < reserve+MinPartitionMiB*SectorsPerMiB {
		return 0, fmt.Errorf("%w: %d sectors left for %d partitions", ErrDiskTooSmall, remaining, after+1)
	}
	max := remaining - reserve
	if ceiling := uint64(p.mode.CeilingMiB()) * SectorsPerMiB; max > ceiling {
		max = ceiling
	}
	return uint32(max), nil
}

// Done reports whether every partition has been placed.
func (p *Planner) Done() bool {
	return len(p.parts) == p.count
}

// Index returns the 0-based index of the next partition.
func (p *Planner) Index() int {
	return len(p.parts)
}

// Bounds returns the range of sizes, in MiB, the next partition accepts.
func (p *Planner) Bounds() (minMiB, maxMiB uint32, err error) {
	if p.Done() {
		return 0, 0, ErrPlanComplete
	}
	max, err := p.maxSectors()
	if err != nil {
		return 0, 0, err
	}
	return MinPartitionMiB, max / SectorsPerMiB, nil
}

// Place appends the next partition with a size of mib MiB, or the largest
// permitted size when mib is Remainder.
func (p *Planner) Place(mib uint32) (Partition, error) {
	if p.Done() {
		return Partition{}, ErrPlanComplete
	}
	max, err := p.maxSectors()
	if err != nil {
		return Partition{}, err
	}
	length := max
	if mib != Remainder {
		if mib < MinPartitionMiB {
			return Partition{}, fmt.Errorf("%w: %d MiB", ErrSizeTooSmall, mib)
		}
		if mib > max/SectorsPerMiB {
			return Partition{}, fmt.Errorf("%w: %d MiB requested, %d MiB allowed", ErrSizeTooLarge, mib, max/SectorsPerMiB)
		}
		length = mib * SectorsPerMiB
	}
	if limit := p.mode.CeilingMiB()*SectorsPerMiB - ceilingTrim; p.mode.Atari() && length > limit {
		log.Debugf("partition %d within %d sectors of the %s ceiling, trimming to %d", len(p.parts)+1, ceilingTrim, p.mode, limit)
		length = limit
	}
	part := Partition{Start: p.cursor, Length: length}
	p.cursor += length
	p.parts = append(p.parts, part)
	log.Debugf("planned partition %d: %v", len(p.parts), part)
	return part, nil
}

// Partitions returns the partitions placed so far, in disk order.
func (p *Planner) Partitions() []Partition {
	return append([]Partition(nil), p.parts...)
}

// Plan splits a disk of capacity sectors into len(sizes) partitions. Each
// size is in MiB; Remainder takes the largest size the slot permits.
func Plan(capacity uint32, kind Kind, mode Mode, sizes []uint32) ([]Partition, error) {
	p, err := NewPlanner(capacity, len(sizes), kind, mode)
	if err != nil {
		return nil, err
	}
	for i, mib := range sizes {
		if _, err := p.Place(mib); err != nil {
			return nil, fmt.Errorf("partition %d: %w", i+1, err)
		}
	}
	return p.Partitions(), nil
}
