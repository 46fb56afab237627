// Package amount turns the classifier's amount field into an integer.
//
// Magnitude inference ("280" meaning 280000 when buying wood) happens inside
// the classifier request. It is a best-effort signal and a known source of
// misclassification; nothing here rescales values.
package amount

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmpty    = errors.New("amount is empty")
	ErrNotDigit = errors.New("amount contains non-digit characters")
	ErrRange    = errors.New("amount out of range")
)

// Interpreter converts a raw amount field into a non-negative integer.
type Interpreter interface {
	Interpret(raw, context, category string) (int64, error)
}

// Identity trusts the classifier's integer. Currency symbols, spaces and
// thousands separators are tolerated; a separator must be followed by exactly
// three digits, so decimal fractions ("280,50") are rejected rather than
// folded into the integer.
type Identity struct{}

// Interpret implements Interpreter.
func (Identity) Interpret(raw, _, _ string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ' ', '\u00a0':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, ErrEmpty
	}

	digits, err := ungroup(cleaned)
	if err != nil {
		return 0, err
	}
	return parseDigits(digits)
}

// ungroup removes thousands separators from s. Only one separator kind may be
// used, the leading group holds one to three characters and every later group
// exactly three.
func ungroup(s string) (string, error) {
	dot, comma := strings.Contains(s, "."), strings.Contains(s, ",")
	if !dot && !comma {
		return s, nil
	}
	if dot && comma {
		return "", fmt.Errorf("%w: %q", ErrNotDigit, s)
	}
	sep := "."
	if comma {
		sep = ","
	}

	groups := strings.Split(s, sep)
	if n := len(groups[0]); n == 0 || n > 3 {
		return "", fmt.Errorf("%w: %q", ErrNotDigit, s)
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", fmt.Errorf("%w: %q", ErrNotDigit, s)
		}
	}
	return strings.Join(groups, ""), nil
}

// Strict expects the classifier to have already applied magnitude inference
// and to emit a bare integer. Anything but digits is rejected.
type Strict struct{}

// Interpret implements Interpreter.
func (Strict) Interpret(raw, _, _ string) (int64, error) {
	return parseDigits(strings.TrimSpace(raw))
}

func parseDigits(s string) (int64, error) {
	if s == "" {
		return 0, ErrEmpty
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrNotDigit, s)
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrRange, s)
	}
	return n, nil
}
