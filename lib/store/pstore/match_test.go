package pstore

import "testing"

func TestMatchKey(t *testing.T) {
	cases := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"*", "anything", true},
		{"", "anything", true},
		{"user:*", "user:1", true},
		{"user:*", "user:profile:1", true},
		{"user:*", "order:1", false},
		{"user:?", "user:1", true},
		{"user:?", "user:12", false},
		{"user:[12]", "user:1", true},
		{"user:[12]", "user:3", false},
		{"user:[!12]", "user:3", true},
		{"user:[!12]", "user:1", false},
		// keys are opaque strings, wildcards cross "/"
		{"user*", "user/1", true},
		{"*:1", "a/b:1", true},
		{"a?c", "a/c", true},
		// no wildcard characters means exact match
		{"user:1", "user:1", true},
		{"user:1", "user:12", false},
		{"user", "user:1", false},
		// an unterminated "[" is a literal bracket, not an error
		{"[", "[", true},
		{"[", "x", false},
		{"key[", "key[", true},
		// a "]" right after the opening bracket is part of the class
		{"[]a]", "]", true},
		{"[]a]", "a", true},
		{"[]a]", "b", false},
		// regexp metacharacters in the pattern are literals
		{"a.c", "abc", false},
		{"a.c", "a.c", true},
		{"a+b*", "a+bc", true},
	}

	for _, c := range cases {
		got, err := matchKey(c.pattern, c.key)
		if err != nil {
			t.Errorf("matchKey(%q, %q) failed: %v", c.pattern, c.key, err)
			continue
		}
		if got != c.want {
			t.Errorf("matchKey(%q, %q) = %v, want %v", c.pattern, c.key, got, c.want)
		}
	}
}

func TestMatchKeyBadPattern(t *testing.T) {
	// an inverted character range cannot be compiled
	if _, err := matchKey("[z-a]", "key"); err == nil {
		t.Errorf("expected an error for a malformed pattern")
	}
}
