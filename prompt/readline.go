package prompt

import (
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
)

// Readline is a terminal UI that re-asks until the answer is valid.
type Readline struct {
	rl *readline.Instance
}

// NewReadline starts a line editor on the terminal.
func NewReadline() (*Readline, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, err
	}
	return &Readline{rl: rl}, nil
}

// Close releases the terminal. It may be called more than once.
func (r *Readline) Close() error {
	if r.rl == nil {
		return nil
	}
	err := r.rl.Close()
	r.rl = nil
	return err
}

func (r *Readline) say(s string) {
	fmt.Fprint(r.rl.Stdout(), s)
}

// ask reads lines until parse accepts one.
func (r *Readline) ask(prompt string, parse func(string) error) error {
	r.rl.SetPrompt(prompt)
	for {
		line, err := r.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return ErrCanceled
		}
		if err != nil {
			return err
		}
		err = parse(line)
		if err == nil || errors.Is(err, ErrCanceled) {
			return err
		}
		r.say(err.Error() + "\n")
	}
}

func (r *Readline) AskChoice(question string, options []string) (int, error) {
	r.say(choiceText(question, options))
	var idx int
	err := r.ask(fmt.Sprintf("[1-%d]> ", len(options)), func(line string) (err error) {
		idx, err = parseChoice(line, len(options))
		return err
	})
	return idx, err
}

func (r *Readline) AskNumber(question string, min, max uint32) (uint32, error) {
	r.say(question + "\n")
	var v uint32
	err := r.ask(fmt.Sprintf("[%d-%d]> ", min, max), func(line string) (err error) {
		v, err = parseNumber(line, min, max)
		return err
	})
	return v, err
}

func (r *Readline) Confirm(question string) (bool, error) {
	var yes bool
	err := r.ask(question+" [y/N]> ", func(line string) (err error) {
		yes, err = parseYesNo(line)
		return err
	})
	return yes, err
}
