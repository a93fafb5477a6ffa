// Package retrodfrg draws a full-screen progress display while a disk is
// being written: the phases of the run, a map of the sectors written so far
// and a status block.
package retrodfrg

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
)

// UI is a tcell screen rendering a Board. Keys are ignored while writing;
// a run cannot be interrupted once it has started.
type UI struct {
	s     tcell.Screen
	board *Board
	keys  chan struct{}

	lastDraw time.Time
	pending  int
}

// Redraw throttling for Mark.
const (
	drawEvery    = 100 * time.Millisecond
	drawMaxMarks = 256
)

// NewUI takes over the terminal.
func NewUI(board *Board) (*UI, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return newUI(s, board)
}

func newUI(s tcell.Screen, board *Board) (*UI, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.DisableMouse()
	u := &UI{
		s:     s,
		board: board,
		keys:  make(chan struct{}, 1),
	}
	go u.eventLoop()
	u.Draw()
	return u, nil
}

// Close restores the terminal.
func (u *UI) Close() {
	if u.s == nil {
		return
	}
	u.s.Fini()
	u.s = nil
}

// Board returns the state the UI renders.
func (u *UI) Board() *Board {
	return u.board
}

func putStr(s tcell.Screen, x, y int, str string, style tcell.Style) {
	w, _ := s.Size()
	for i, r := range []rune(str) {
		if x+i >= w {
			break
		}
		s.SetContent(x+i, y, r, nil, style)
	}
}

// Draw redraws the whole screen.
func (u *UI) Draw() {
	if u.s == nil {
		return
	}
	u.lastDraw = time.Now()
	u.pending = 0
	u.s.Clear()
	w, h := u.s.Size()
	plain := tcell.StyleDefault
	y := 0

	if u.board.Title != "" {
		putStr(u.s, 0, y, strings.Repeat("═", w), plain)
		title := " " + u.board.Title + " "
		putStr(u.s, (w-len([]rune(title)))/2, y, title, plain.Bold(true))
		y++
	}
	putStr(u.s, 0, y, u.board.Legend(), plain)
	y++

	status := u.board.Status()
	// Reserve the phase and status blocks below the map.
	rows := h - y - 2 - (len(status) + 1)
	if rows < 1 {
		rows = 1
	}
	for _, line := range u.board.Map(w, rows) {
		putStr(u.s, 0, y, line, plain.Foreground(tcell.ColorGreen))
		y++
	}

	putStr(u.s, 0, y, strings.Repeat("─", w), plain)
	putStr(u.s, 2, y, " Phase ", plain)
	y++
	putStr(u.s, 0, y, u.board.PhaseLine(), plain)
	y++

	putStr(u.s, 0, y, strings.Repeat("─", w), plain)
	putStr(u.s, 2, y, " Status ", plain)
	y++
	for _, line := range status {
		if y >= h {
			break
		}
		style := plain
		if strings.HasPrefix(line, " FAILED") {
			style = plain.Foreground(tcell.ColorRed)
		}
		putStr(u.s, 0, y, line, style)
		y++
	}
	u.s.Show()
}

// Begin starts phase name and redraws.
func (u *UI) Begin(name string) {
	u.board.Begin(name)
	u.Draw()
}

// Done completes phase name and redraws.
func (u *UI) Done(name string) {
	u.board.Done(name)
	u.Draw()
}

// Fail shows err and redraws.
func (u *UI) Fail(err error) {
	u.board.Fail(err)
	u.Draw()
}

// mark records a sector write and redraws at most every drawEvery or
// drawMaxMarks writes.
func (u *UI) mark(lba uint64) {
	u.board.Mark(lba)
	u.pending++
	if u.pending >= drawMaxMarks || time.Since(u.lastDraw) >= drawEvery {
		u.Draw()
	}
}

// WaitKey shows msg and blocks until a key is pressed or timeout expires.
// A zero timeout waits forever.
func (u *UI) WaitKey(msg string, timeout time.Duration) {
	if u.s == nil {
		return
	}
	u.Draw()
	_, h := u.s.Size()
	putStr(u.s, 0, h-1, fmt.Sprintf(" %s", msg), tcell.StyleDefault.Reverse(true))
	u.s.Show()

	select {
	case <-u.keys:
	default:
	}
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-u.keys:
	case <-expired:
	}
}

func (u *UI) eventLoop() {
	s := u.s
	for {
		switch s.PollEvent().(type) {
		case *tcell.EventKey:
			select {
			case u.keys <- struct{}{}:
			default:
			}
		case *tcell.EventResize:
			s.Sync()
		case nil:
			return
		}
	}
}
