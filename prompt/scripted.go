package prompt

import "fmt"

// Scripted answers questions from a fixed list, for tests and
// non-interactive runs. An invalid answer is an error, not a retry.
type Scripted struct {
	Answers []string

	// Asked records every question in order.
	Asked []string
}

func (s *Scripted) next(question string) (string, error) {
	s.Asked = append(s.Asked, question)
	if len(s.Answers) == 0 {
		return "", ErrCanceled
	}
	a := s.Answers[0]
	s.Answers = s.Answers[1:]
	return a, nil
}

func (s *Scripted) AskChoice(question string, options []string) (int, error) {
	a, err := s.next(question)
	if err != nil {
		return 0, err
	}
	i, err := parseChoice(a, len(options))
	if err != nil {
		return 0, fmt.Errorf("%s: %q: %w", question, a, err)
	}
	return i, nil
}

func (s *Scripted) AskNumber(question string, min, max uint32) (uint32, error) {
	a, err := s.next(question)
	if err != nil {
		return 0, err
	}
	v, err := parseNumber(a, min, max)
	if err != nil {
		return 0, fmt.Errorf("%s: %q: %w", question, a, err)
	}
	return v, nil
}

func (s *Scripted) Confirm(question string) (bool, error) {
	a, err := s.next(question)
	if err != nil {
		return false, err
	}
	yes, err := parseYesNo(a)
	if err != nil {
		return false, fmt.Errorf("%s: %q: %w", question, a, err)
	}
	return yes, nil
}
