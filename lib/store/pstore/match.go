package pstore

import (
	"regexp"
	"strings"
)

// compileKeyPattern converts a shell-style glob into a key matcher. "*"
// matches any run of characters and "?" any single character; keys are
// opaque strings, so both cross "/" like any other character. "[seq]"
// matches a character class ("[!seq]" negates it) and an unterminated "["
// is a literal bracket. A pattern without wildcard characters is an
// exact-match filter.
func compileKeyPattern(pattern string) (func(string) bool, error) {
	if pattern == "" || pattern == "*" {
		return func(string) bool { return true }, nil
	}

	if !strings.ContainsAny(pattern, "*?[") {
		return func(key string) bool { return key == pattern }, nil
	}

	re, err := regexp.Compile(translatePattern(pattern))
	if err != nil {
		return nil, err
	}
	return re.MatchString, nil
}

// matchKey reports whether a single key matches a glob pattern.
func matchKey(pattern, key string) (bool, error) {
	match, err := compileKeyPattern(pattern)
	if err != nil {
		return false, err
	}
	return match(key), nil
}

// translatePattern rewrites a glob pattern into an anchored regular
// expression, fnmatch-style.
func translatePattern(pattern string) string {
	var sb strings.Builder
	sb.WriteString("^")

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		case '[':
			// scan for the closing bracket; a "]" directly after the
			// opening (or after the negation) is part of the class
			j := i + 1
			if j < len(runes) && (runes[j] == '!' || runes[j] == '^') {
				j++
			}
			if j < len(runes) && runes[j] == ']' {
				j++
			}
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				sb.WriteString(`\[`)
				continue
			}

			set := strings.ReplaceAll(string(runes[i+1:j]), `\`, `\\`)
			if strings.HasPrefix(set, "!") {
				set = "^" + set[1:]
			} else if strings.HasPrefix(set, "^") {
				set = `\^` + set[1:]
			}
			// a "]" inside the set (only possible right after the opening)
			// must be escaped for the regexp engine
			set = strings.ReplaceAll(set, "]", `\]`)
			sb.WriteString("[" + set + "]")
			i = j
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}

	sb.WriteString("$")
	return sb.String()
}
