package textcall

import (
	"strconv"
	"strings"
)

// detectDirectToolCall matches one of the fixed direct-call names
// immediately followed by a parenthesized argument list, e.g.
// `bash(command="ls -la")`.
func detectDirectToolCall(text string) (Candidate, bool) {
	name, paren, ok := findCallSite(text, directToolNames)
	if !ok {
		return Candidate{}, false
	}
	argsText, ok := locateArgumentSpan(text, paren)
	if !ok {
		return Candidate{}, false
	}
	return Candidate{
		Name:      strings.TrimPrefix(name, textualToolPrefix),
		Arguments: parseTextualArguments(argsText),
		Form:      "direct",
	}, true
}

// detectPrefixedToolCall matches any `default_api.<identifier>(args)`
// call not already covered by the fixed direct-tool-name list.
func detectPrefixedToolCall(text string) (Candidate, bool) {
	idx := strings.Index(text, textualToolPrefix)
	for idx != -1 {
		start := idx + len(textualToolPrefix)
		end := start
		for end < len(text) && isIdentChar(rune(text[end])) && text[end] != '.' {
			end++
		}
		if end > start {
			rest := text[end:]
			trimmed := strings.TrimLeft(rest, " \t")
			if strings.HasPrefix(trimmed, "(") {
				paren := end + (len(rest) - len(trimmed))
				if argsText, ok := locateArgumentSpan(text, paren); ok {
					return Candidate{
						Name:      text[start:end],
						Arguments: parseTextualArguments(argsText),
						Form:      "prefixed",
					}, true
				}
			}
		}
		next := strings.Index(text[idx+1:], textualToolPrefix)
		if next == -1 {
			break
		}
		idx = idx + 1 + next
	}
	return Candidate{}, false
}

// detectJSONToolCall locates the first balanced `{...}` object in text
// and, if it decodes as an object carrying a recognizable name field
// (tool/name/tool_name, or a nested function.name), returns it as a
// Candidate. An argument field (params/arguments/parameters/args/input)
// is optional; without one the arguments are an empty map.
func detectJSONToolCall(text string) (Candidate, bool) {
	for start := strings.IndexByte(text, '{'); start != -1; start = nextBrace(text, start+1) {
		span, ok := locateBraceSpan(text, start)
		if !ok {
			continue
		}
		v, ok := tryParseJSONValue(span)
		if !ok {
			continue
		}
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if c, ok := extractToolFromObject(obj); ok {
			return c, true
		}
	}
	return Candidate{}, false
}

func nextBrace(text string, from int) int {
	if from >= len(text) {
		return -1
	}
	idx := strings.IndexByte(text[from:], '{')
	if idx == -1 {
		return -1
	}
	return from + idx
}

func locateBraceSpan(text string, start int) (string, bool) {
	if text[start] != '{' {
		return "", false
	}
	depth := 0
	inSingle, inDouble := false, false
	escaped := false
	for i := start; i < len(text); i++ {
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
		case c == '{' && !inSingle && !inDouble:
			depth++
		case c == '}' && !inSingle && !inDouble:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

var nameKeys = []string{"tool", "name", "tool_name"}
var argumentKeys = []string{"params", "arguments", "parameters", "args", "input"}

// extractToolFromObject pulls a tool name and argument map out of a
// decoded JSON object. It accepts the three shapes spec'd: {tool,
// params|arguments}, {name, params|arguments}, and the nested
// {function: {name, arguments}}; unknown additional top-level fields are
// merged into the argument map without overriding keys already present
// there (finalizeJSONArguments).
func extractToolFromObject(obj map[string]any) (Candidate, bool) {
	if fn, ok := obj["function"].(map[string]any); ok {
		if name, ok := fn["name"].(string); ok && name != "" {
			args, _ := fn["arguments"].(map[string]any)
			if args == nil {
				args = map[string]any{}
			}
			return Candidate{Name: name, Arguments: finalizeJSONArguments(args, obj, "function", ""), Form: "json"}, true
		}
	}

	name, nameKey, ok := firstStringField(obj, nameKeys)
	if !ok {
		return Candidate{}, false
	}

	var args map[string]any
	var argKey string
	for _, k := range argumentKeys {
		if v, ok := obj[k]; ok {
			if m, ok := v.(map[string]any); ok {
				args = m
				argKey = k
				break
			}
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	finalized := finalizeJSONArguments(args, obj, nameKey, argKey)
	return Candidate{Name: name, Arguments: finalized, Form: "json"}, true
}

func firstStringField(obj map[string]any, keys []string) (string, string, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, k, true
			}
		}
	}
	return "", "", false
}

// finalizeJSONArguments merges every top-level field of obj other than
// nameKey/argKey into args, without overriding a key args already set.
func finalizeJSONArguments(args, obj map[string]any, nameKey, argKey string) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	for k, v := range obj {
		if k == nameKey || k == argKey {
			continue
		}
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return out
}

// detectShellCall matches `shell(...)` / `default_api.shell(...)` and
// normalizes whatever argument shape it finds into the canonical
// {command, timeout_secs, working_dir, mode, response_format} form.
func detectShellCall(text string) (Candidate, bool) {
	_, paren, ok := findCallSite(text, shellCallPrefixes)
	if !ok {
		return Candidate{}, false
	}
	argsText, ok := locateArgumentSpan(text, paren)
	if !ok {
		return Candidate{}, false
	}
	raw := parseTextualArguments(argsText)
	normalized, ok := normalizeShellArguments(raw)
	if !ok {
		return Candidate{}, false
	}
	return Candidate{Name: "shell", Arguments: normalized, Form: "shell"}, true
}

// normalizeShellArguments accepts a command expressed as a plain string
// (split into argv via splitShellTokens), a JSON array of argv elements,
// or an object carrying a command/cmd/program field, and canonicalizes
// timeout and working-directory aliases.
func normalizeShellArguments(raw map[string]any) (map[string]any, bool) {
	out := map[string]any{}

	cmdValue, hasCommand := firstField(raw, "command", "cmd", "program")
	if !hasCommand {
		return nil, false
	}

	switch v := cmdValue.(type) {
	case string:
		tokens, err := SplitShellTokens(v)
		if err != nil {
			return nil, false
		}
		out["command"] = tokens
	case []any:
		argv := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				argv = append(argv, s)
			}
		}
		out["command"] = argv
	default:
		return nil, false
	}

	if v, ok := firstField(raw, "timeout_secs", "timeout"); ok {
		out["timeout_secs"] = coerceInt(v)
	}
	if v, ok := firstField(raw, "working_dir", "workdir", "cwd"); ok {
		if s, ok := v.(string); ok {
			out["working_dir"] = s
		}
	}
	if v, ok := raw["mode"]; ok {
		out["mode"] = v
	}
	if v, ok := raw["response_format"]; ok {
		out["response_format"] = v
	}
	return out, true
}

func firstField(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func coerceInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}
