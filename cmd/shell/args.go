package shell

import (
	"fmt"
	"strings"
	"unicode"
)

// splitArgs tokenizes one input line shlex-style: tokens are separated by
// whitespace, single or double quotes group characters (including spaces)
// into one token, and a backslash escapes the next character outside of
// single quotes. Quotes are needed to pass JSON objects or multi-word
// strings as a single value.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inToken bool
		quote   rune // 0 = unquoted
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inToken = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				args = append(args, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}

	if escaped {
		return nil, fmt.Errorf("unterminated escape")
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inToken {
		args = append(args, cur.String())
	}

	return args, nil
}
