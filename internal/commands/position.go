package commands

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
)

// ErrPositionRequired indicates no task number was provided.
var ErrPositionRequired = errors.New("task number required")

// ParsePosition parses the 1-based task number in args[0] and returns the
// 0-based index the store expects.
//
// Parsing rules:
// 1. No args → error: task number required
// 2. All digits and at least 1 → index = n-1
// 3. Otherwise → error: invalid task number: <arg>
func ParsePosition(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrPositionRequired
	}
	arg := args[0]
	if !isAllDigits(arg) {
		return 0, fmt.Errorf("invalid task number: %s", arg)
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid task number: %s", arg)
	}
	return n - 1, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
