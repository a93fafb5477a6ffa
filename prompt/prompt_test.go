package prompt

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseNumber(t *testing.T) {
	for _, tt := range []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"5", 5, false},
		{" 100 ", 100, false},
		{"max", 200, false},
		{"MAX", 200, false},
		{"4", 0, true},
		{"201", 0, true},
		{"-1", 0, true},
		{"ten", 0, true},
		{"", 0, true},
		{"99999999999", 0, true},
	} {
		got, err := parseNumber(tt.in, 5, 200)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseNumber(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseNumber(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if _, err := parseNumber("q", 5, 200); !errors.Is(err, ErrCanceled) {
		t.Errorf("parseNumber(q) = %v, want ErrCanceled", err)
	}
}

func TestParseChoice(t *testing.T) {
	if got, err := parseChoice("2", 3); err != nil || got != 1 {
		t.Errorf("parseChoice(2) = %d, %v; want 1, nil", got, err)
	}
	for _, in := range []string{"0", "4", "x"} {
		if _, err := parseChoice(in, 3); err == nil {
			t.Errorf("parseChoice(%q) accepted", in)
		}
	}
}

func TestParseYesNo(t *testing.T) {
	for in, want := range map[string]bool{"y": true, "YES": true, "n": false, "": false} {
		got, err := parseYesNo(in)
		if err != nil || got != want {
			t.Errorf("parseYesNo(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := parseYesNo("maybe"); err == nil {
		t.Errorf("parseYesNo(maybe) accepted")
	}
}

func TestScripted(t *testing.T) {
	s := &Scripted{Answers: []string{"2", "max", "yes"}}
	var ui UI = s
	i, err := ui.AskChoice("table", []string{"dos", "atari"})
	if err != nil || i != 1 {
		t.Fatalf("AskChoice = %d, %v", i, err)
	}
	v, err := ui.AskNumber("size", 5, 300)
	if err != nil || v != 300 {
		t.Fatalf("AskNumber = %d, %v", v, err)
	}
	ok, err := ui.Confirm("write?")
	if err != nil || !ok {
		t.Fatalf("Confirm = %v, %v", ok, err)
	}
	if _, err := ui.AskNumber("more", 1, 2); !errors.Is(err, ErrCanceled) {
		t.Fatalf("exhausted script = %v, want ErrCanceled", err)
	}
	if diff := cmp.Diff([]string{"table", "size", "write?", "more"}, s.Asked); diff != "" {
		t.Errorf("questions: diff (-want +got):\n%s", diff)
	}
}

func TestScriptedRejectsInvalid(t *testing.T) {
	s := &Scripted{Answers: []string{"1000"}}
	if _, err := s.AskNumber("size", 5, 300); err == nil || errors.Is(err, ErrCanceled) {
		t.Fatalf("AskNumber(1000) = %v, want a range error", err)
	}
}
