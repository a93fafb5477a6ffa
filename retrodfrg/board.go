package retrodfrg

import (
	"fmt"
	"strings"
	"time"
)

// Map cell runes.
const (
	cellUntouched = '·'
	cellWritten   = '█'
)

// span is a run of written sectors.
type span struct {
	start, end uint64 // [start, end)
}

type phase struct {
	name    string
	done    bool
	written uint64
}

// Board is the state behind the progress screen: which phases are done,
// which sectors of the disk were written and how fast. It knows nothing
// about terminals, so it can be rendered into any width and height.
type Board struct {
	Title string

	total   uint64
	phases  []*phase
	current *phase
	spans   []span
	written uint64
	started time.Time
	failure error

	now func() time.Time
}

// NewBoard returns a board for a disk of total sectors and the given
// phase names, in the order they will run.
func NewBoard(title string, total uint64, phases []string) *Board {
	b := &Board{Title: title, total: total, now: time.Now}
	for _, n := range phases {
		b.phases = append(b.phases, &phase{name: n})
	}
	b.started = b.now()
	return b
}

func (b *Board) find(name string) *phase {
	for _, p := range b.phases {
		if strings.EqualFold(p.name, name) {
			return p
		}
	}
	return nil
}

// Begin makes name the current phase.
func (b *Board) Begin(name string) {
	b.current = b.find(name)
}

// Done marks name as complete.
func (b *Board) Done(name string) {
	if p := b.find(name); p != nil {
		p.done = true
	}
}

// Fail records the error that stopped the run.
func (b *Board) Fail(err error) {
	b.failure = err
}

// Mark records a write of sector lba.
func (b *Board) Mark(lba uint64) {
	b.written++
	if b.current != nil {
		b.current.written++
	}
	if n := len(b.spans); n > 0 {
		last := &b.spans[n-1]
		switch {
		case lba >= last.start && lba < last.end:
			return
		case lba == last.end:
			last.end++
			return
		case lba+1 == last.start:
			last.start--
			return
		}
	}
	b.spans = append(b.spans, span{lba, lba + 1})
}

// Written returns the number of sector writes recorded.
func (b *Board) Written() uint64 {
	return b.written
}

func (b *Board) touched(start, end uint64) bool {
	for _, s := range b.spans {
		if s.start < end && start < s.end {
			return true
		}
	}
	return false
}

// Map renders the disk as width x height cells, each covering an equal
// share of the sectors. A cell is filled once any of its sectors has been
// written.
func (b *Board) Map(width, height int) []string {
	cells := uint64(width * height)
	if cells == 0 || b.total == 0 {
		return nil
	}
	per := (b.total + cells - 1) / cells
	lines := make([]string, 0, height)
	for y := 0; y < height; y++ {
		var row strings.Builder
		for x := 0; x < width; x++ {
			start := uint64(y*width+x) * per
			if start >= b.total {
				break
			}
			if b.touched(start, start+per) {
				row.WriteRune(cellWritten)
			} else {
				row.WriteRune(cellUntouched)
			}
		}
		if row.Len() == 0 {
			break
		}
		lines = append(lines, row.String())
	}
	return lines
}

// PhaseLine lists every phase with a check mark once done.
func (b *Board) PhaseLine() string {
	var out strings.Builder
	for i, p := range b.phases {
		if i > 0 {
			out.WriteByte(' ')
		}
		mark := ' '
		switch {
		case p.done:
			mark = '✓'
		case p == b.current:
			mark = '>'
		}
		fmt.Fprintf(&out, "[%c]%s", mark, p.name)
	}
	return out.String()
}

// Status returns the lines of the status block.
func (b *Board) Status() []string {
	elapsed := b.now().Sub(b.started)
	rate := 0.0
	if s := elapsed.Seconds(); s > 0 {
		rate = float64(b.written) * 512 / 1024 / s
	}
	current := "-"
	if b.current != nil {
		current = fmt.Sprintf("%s (%d sectors)", b.current.name, b.current.written)
	}
	lines := []string{
		fmt.Sprintf(" Phase: %s", current),
		fmt.Sprintf(" Written: %d sectors (%d KiB) of %d on disk", b.written, b.written/2, b.total),
		fmt.Sprintf(" Elapsed: %s   Rate: %.1f KiB/s", elapsed.Round(100*time.Millisecond), rate),
	}
	if b.failure != nil {
		lines = append(lines, fmt.Sprintf(" FAILED: %v", b.failure), " The disk may be in an inconsistent state.")
	}
	return lines
}

// Legend explains the map runes.
func (b *Board) Legend() string {
	return fmt.Sprintf(" %c untouched  %c written", cellUntouched, cellWritten)
}
