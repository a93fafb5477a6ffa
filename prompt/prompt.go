// Package prompt asks the user the questions needed to lay out a disk. The
// answers it returns are always within the bounds the caller asked for.
package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrCanceled is returned when the user quits a question.
var ErrCanceled = errors.New("canceled by user")

// UI is the question-asking side of the tool.
type UI interface {
	// AskChoice returns the 0-based index of the chosen option.
	AskChoice(question string, options []string) (int, error)
	// AskNumber returns a number in [min, max].
	AskNumber(question string, min, max uint32) (uint32, error)
	// Confirm returns true only for an explicit yes.
	Confirm(question string) (bool, error)
}

func isQuit(s string) bool {
	switch strings.ToLower(s) {
	case "q", "quit", "exit":
		return true
	}
	return false
}

func parseChoice(line string, n int) (int, error) {
	line = strings.TrimSpace(line)
	if isQuit(line) {
		return 0, ErrCanceled
	}
	i, err := strconv.Atoi(line)
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("enter a number from 1 to %d", n)
	}
	return i - 1, nil
}

// parseNumber accepts a decimal number or "max".
func parseNumber(line string, min, max uint32) (uint32, error) {
	line = strings.TrimSpace(line)
	if isQuit(line) {
		return 0, ErrCanceled
	}
	if strings.EqualFold(line, "max") {
		return max, nil
	}
	v, err := strconv.ParseUint(line, 10, 32)
	if err != nil || uint32(v) < min || uint32(v) > max {
		return 0, fmt.Errorf("enter a number from %d to %d, or max", min, max)
	}
	return uint32(v), nil
}

func parseYesNo(line string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	case "n", "no", "":
		return false, nil
	case "q", "quit", "exit":
		return false, ErrCanceled
	}
	return false, errors.New("answer yes or no")
}

func choiceText(question string, options []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", question)
	for i, o := range options {
		fmt.Fprintf(&b, "  %2d) %s\n", i+1, o)
	}
	return b.String()
}
