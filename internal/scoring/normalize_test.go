package scoring

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"a", "A"},
		{" b ", "B"},
		{"1", "A"},
		{"2", "B"},
		{"3", "C"},
		{"4", "D"},
		{" 4 ", "D"},
		{"42", "42"},
		{"", ""},
		{"  ", ""},
		{"7.5", "7.5"},
		{"None of these", "NONE OF THESE"},
	}

	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"a", "1", " 3 ", "B", "answer", "", "  x  ", "4"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestEqual_NumericLetterEquivalence(t *testing.T) {
	if !Equal("2", "B") {
		t.Error(`expected "2" and "B" to be equal after normalization`)
	}
	if !Equal("2", "b") {
		t.Error(`expected "2" and "b" to be equal (uppercasing)`)
	}
	if Equal("2", "A") {
		t.Error(`"2" must not equal "A"`)
	}
}

func TestAttempted(t *testing.T) {
	if Attempted("") || Attempted("   ") {
		t.Error("blank answers must not count as attempts")
	}
	if !Attempted("C") {
		t.Error("a real answer must count as an attempt")
	}
}
