package language

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		hint, want string
	}{
		{"", ""},
		{"auto", ""},
		{"en", "en"},
		{"EN", "en"},
		{"en-US", "en"},
		{"English", "en"},
		{"  swedish  ", "sv"},
		{"sv-SE", "sv"},
		{"pt-BR", "pt"},
		{"not-a-language-at-all", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.hint); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.hint, got, tc.want)
		}
	}
}

func TestName(t *testing.T) {
	if got := Name("sv"); got != "Swedish" {
		t.Errorf("Name(sv) = %q", got)
	}
	if got := Name(""); got != "auto" {
		t.Errorf("Name(\"\") = %q", got)
	}
}
