package textcall

import "strings"

// findCallSite locates the first occurrence of any of names followed
// (optionally after whitespace) by '(' in text, returning the matched
// name, the index of that '(', and whether a match was found. Matches
// must not be preceded by an identifier character, so "my_bash(" doesn't
// match "bash(".
func findCallSite(text string, names []string) (name string, openParen int, ok bool) {
	bestStart := -1
	var bestName string
	var bestParen int

	for _, n := range names {
		searchFrom := 0
		for {
			pos := strings.Index(text[searchFrom:], n)
			if pos < 0 {
				break
			}
			start := searchFrom + pos
			searchFrom = start + 1

			if start > 0 && isIdentChar(rune(text[start-1])) {
				continue
			}
			rest := text[start+len(n):]
			trimmed := strings.TrimLeft(rest, " \t")
			if !strings.HasPrefix(trimmed, "(") {
				continue
			}
			paren := start + len(n) + (len(rest) - len(trimmed))
			if bestStart == -1 || start < bestStart {
				bestStart, bestName, bestParen = start, n, paren
			}
		}
	}
	if bestStart == -1 {
		return "", 0, false
	}
	return bestName, bestParen, true
}

func isIdentChar(r rune) bool {
	return r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// locateArgumentSpan returns the substring between the '(' at openParen
// and its matching ')', tracking nested parens and quoted strings so
// parens inside string literals don't confuse the depth count.
func locateArgumentSpan(text string, openParen int) (string, bool) {
	if openParen >= len(text) || text[openParen] != '(' {
		return "", false
	}
	depth := 0
	inSingle, inDouble := false, false
	escaped := false
	for i := openParen; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && (inSingle || inDouble):
			escaped = true
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case c == '(' && !inSingle && !inDouble:
			depth++
		case c == ')' && !inSingle && !inDouble:
			depth--
			if depth == 0 {
				return text[openParen+1 : i], true
			}
		}
	}
	return "", false
}
