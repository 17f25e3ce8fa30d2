package scoring

import "strings"

// Normalize canonicalizes an answer string for comparison: whitespace is
// trimmed, the value is upper-cased, and the numeric option labels "1".."4"
// map to "A".."D". Both instant feedback and end-of-session grading go
// through this function so the two can never disagree.
func Normalize(answer string) string {
	t := strings.ToUpper(strings.TrimSpace(answer))
	switch t {
	case "1":
		return "A"
	case "2":
		return "B"
	case "3":
		return "C"
	case "4":
		return "D"
	}
	return t
}

// Equal reports whether two answers are equivalent after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Attempted reports whether a submitted value counts as an attempt.
// Whitespace-only answers are treated the same as no answer at all.
func Attempted(answer string) bool {
	return strings.TrimSpace(answer) != ""
}
