package retrodfrg

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/go-cmp/cmp"

	"mkhd/blockdev"
)

func TestBoardMap(t *testing.T) {
	b := NewBoard("test", 100, nil)
	b.Mark(0)
	b.Mark(55)
	want := []string{"█····█····"}
	if diff := cmp.Diff(want, b.Map(10, 1)); diff != "" {
		t.Fatalf("unexpected map: diff (-want +got):\n%s", diff)
	}
	want = []string{"█····", "█····"}
	if diff := cmp.Diff(want, b.Map(5, 2)); diff != "" {
		t.Fatalf("unexpected map: diff (-want +got):\n%s", diff)
	}
}

func TestBoardMapShortDisk(t *testing.T) {
	b := NewBoard("", 3, nil)
	b.Mark(2)
	if diff := cmp.Diff([]string{"··█"}, b.Map(4, 3)); diff != "" {
		t.Fatalf("unexpected map: diff (-want +got):\n%s", diff)
	}
	if got := NewBoard("", 0, nil).Map(10, 10); got != nil {
		t.Fatalf("empty disk map = %q", got)
	}
}

func TestBoardSpans(t *testing.T) {
	b := NewBoard("", 1000, nil)
	for _, lba := range []uint64{1, 2, 3, 0, 3, 500, 501} {
		b.Mark(lba)
	}
	want := []span{{0, 4}, {500, 502}}
	if diff := cmp.Diff(want, b.spans, cmp.AllowUnexported(span{})); diff != "" {
		t.Fatalf("unexpected spans: diff (-want +got):\n%s", diff)
	}
	if got := b.Written(); got != 7 {
		t.Errorf("Written = %d, want 7", got)
	}
}

func TestBoardPhases(t *testing.T) {
	b := NewBoard("", 10, []string{"Table", "P1", "P2"})
	b.Begin("table")
	b.Mark(0)
	b.Done("Table")
	b.Begin("P1")
	if got, want := b.PhaseLine(), "[✓]Table [>]P1 [ ]P2"; got != want {
		t.Errorf("PhaseLine = %q, want %q", got, want)
	}
}

func TestBoardStatus(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBoard("", 2048, []string{"P1"})
	b.started = start
	b.now = func() time.Time { return start.Add(2 * time.Second) }
	b.Begin("P1")
	for i := uint64(0); i < 8; i++ {
		b.Mark(i)
	}
	b.Fail(errors.New("write fault"))
	want := []string{
		" Phase: P1 (8 sectors)",
		" Written: 8 sectors (4 KiB) of 2048 on disk",
		" Elapsed: 2s   Rate: 2.0 KiB/s",
		" FAILED: write fault",
		" The disk may be in an inconsistent state.",
	}
	if diff := cmp.Diff(want, b.Status()); diff != "" {
		t.Fatalf("unexpected status: diff (-want +got):\n%s", diff)
	}
}

func TestWatch(t *testing.T) {
	s := tcell.NewSimulationScreen("")
	u, err := newUI(s, NewBoard("mkhd", 16, []string{"P1"}))
	if err != nil {
		t.Fatal(err)
	}
	defer u.Close()

	m := blockdev.NewMem(16)
	d := u.Watch(m)
	u.Begin("P1")
	buf := make([]byte, blockdev.SectorSize)
	for lba := uint64(0); lba < 4; lba++ {
		if err := d.WriteSector(lba, buf); err != nil {
			t.Fatal(err)
		}
	}
	m.FailWrite = errors.New("gone")
	if err := d.WriteSector(5, buf); err == nil {
		t.Fatal("failed write not reported")
	}
	if got := u.Board().Written(); got != 4 {
		t.Errorf("Written = %d, want 4", got)
	}
	u.Done("P1")
	if !strings.HasPrefix(u.Board().PhaseLine(), "[✓]") {
		t.Errorf("PhaseLine = %q", u.Board().PhaseLine())
	}
	u.WaitKey("done", time.Millisecond)
}
