package prompts

import (
	"fmt"
	"strconv"
	"strings"
)

// Invocation is a parsed `/prompts:<name> ...` call: positional
// arguments in order, named `k=v` arguments, and TASK defaulted per
// §4.11 when unset.
type Invocation struct {
	Name       string
	Positional []string
	Named      map[string]string
}

// ParseInvocation tokenizes argv with POSIX shell rules (quoting,
// backslash escapes, whitespace splitting) via Tokenize, then splits
// the result into positional and `k=v` named arguments, defaulting
// TASK to the space-joined positional text when not explicitly set.
func ParseInvocation(name, argv string) (Invocation, error) {
	tokens, err := Tokenize(argv)
	if err != nil {
		return Invocation{}, err
	}

	inv := Invocation{Name: name, Named: make(map[string]string)}
	for _, tok := range tokens {
		if key, value, ok := splitNamedArg(tok); ok {
			inv.Named[key] = value
			continue
		}
		inv.Positional = append(inv.Positional, tok)
	}

	if _, ok := inv.Named["TASK"]; !ok {
		inv.Named["TASK"] = strings.Join(inv.Positional, " ")
	}
	return inv, nil
}

// splitNamedArg reports whether tok has the form `key=value` with a
// non-empty key preceding the first `=`.
func splitNamedArg(tok string) (key, value string, ok bool) {
	idx := strings.IndexByte(tok, '=')
	if idx <= 0 {
		return "", "", false
	}
	return tok[:idx], tok[idx+1:], true
}

// Tokenize splits s using POSIX-ish shell word-splitting: whitespace
// separates words outside quotes; single quotes suppress all escaping;
// double quotes allow backslash escapes of `"`, `\`, and `$`; a bare
// backslash escapes the following character. Grounded on no pack
// library (no shlex/mvdan.cc/sh dependency is present anywhere in the
// retrieved corpus; see DESIGN.md), implemented directly against the
// POSIX shell word-splitting rules §4.11 names.
func Tokenize(s string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	haveToken := false

	runes := []rune(s)
	i := 0
	for i < len(runes) {
		c := runes[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			if haveToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				haveToken = false
			}
			i++
		case c == '\'':
			haveToken = true
			i++
			start := i
			for i < len(runes) && runes[i] != '\'' {
				i++
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("prompts: unterminated single quote")
			}
			cur.WriteString(string(runes[start:i]))
			i++
		case c == '"':
			haveToken = true
			i++
			for i < len(runes) && runes[i] != '"' {
				if runes[i] == '\\' && i+1 < len(runes) && strings.ContainsRune(`"\$`, runes[i+1]) {
					cur.WriteRune(runes[i+1])
					i += 2
					continue
				}
				cur.WriteRune(runes[i])
				i++
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("prompts: unterminated double quote")
			}
			i++
		case c == '\\':
			haveToken = true
			if i+1 >= len(runes) {
				return nil, fmt.Errorf("prompts: trailing backslash")
			}
			cur.WriteRune(runes[i+1])
			i += 2
		default:
			haveToken = true
			cur.WriteRune(c)
			i++
		}
	}
	if haveToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// Expand substitutes $1..$9, $NAME, and $ARGUMENTS placeholders in body
// with inv's arguments. $ARGUMENTS is the positional tokens joined by
// a space, re-derived from inv.Positional rather than the raw argv so
// quoting is already normalized. Returns a descriptive error if a
// prompt's frontmatter names a Required argument inv has no value for.
func Expand(p *Prompt, inv Invocation) (string, error) {
	for _, req := range p.Frontmatter.Required {
		if _, ok := valueFor(inv, req); !ok {
			return "", fmt.Errorf("prompts: %q requires argument %q (usage: %s)", p.Name, req, p.Frontmatter.ArgumentHint)
		}
	}

	body := p.Body
	body = strings.ReplaceAll(body, "$ARGUMENTS", strings.Join(inv.Positional, " "))
	for i := 1; i <= 9; i++ {
		placeholder := "$" + strconv.Itoa(i)
		value := ""
		if i-1 < len(inv.Positional) {
			value = inv.Positional[i-1]
		}
		body = strings.ReplaceAll(body, placeholder, value)
	}
	for name, value := range inv.Named {
		body = strings.ReplaceAll(body, "$"+name, value)
	}
	return body, nil
}

// valueFor reports whether a required name resolves to a non-empty
// value in inv, checking the named map first then positional-derived
// TASK.
func valueFor(inv Invocation, name string) (string, bool) {
	v, ok := inv.Named[name]
	return v, ok && v != ""
}
