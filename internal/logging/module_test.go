package logging

import "testing"

func TestToJournalKeyUppercasesAndSanitizes(t *testing.T) {
	cases := map[string]string{
		"op":       "OP",
		"gc.count": "GC_COUNT",
		"a-b":      "A_B",
	}
	for in, want := range cases {
		if got := toJournalKey(in); got != want {
			t.Errorf("toJournalKey(%q) = %q, want %q", in, got, want)
		}
	}
}
