// Package tools defines the unified Tool interface every executable
// capability implements, plus the built-in file, search, and shell
// tools (spec.md §4.3, §6).
//
// Grounded on teacher pkg/engine/tools/interface.go (Tool/BaseTool
// shape), generalized to the model package's types and to return a
// single Result type understood by internal/executor's unified
// dispatch path rather than the teacher's api.ToolResult.
package tools

import (
	"context"
	"fmt"

	"github.com/vtcode-go/vtcode/internal/model"
)

// Result is what every tool returns, win or lose; the executor decides
// how an error Result is surfaced based on policy and retry state.
type Result struct {
	Content string
	Data    any
	IsError bool
	Error   string
}

func Success(content string) Result            { return Result{Content: content} }
func SuccessData(content string, data any) Result { return Result{Content: content, Data: data} }
func Failure(err error) Result {
	if err == nil {
		return Result{IsError: true, Error: "unknown error"}
	}
	return Result{IsError: true, Error: err.Error()}
}
func Failuref(format string, args ...any) Result {
	return Result{IsError: true, Error: fmt.Sprintf(format, args...)}
}

// Preview is an approval-time preview of what a mutating tool would do.
type Preview struct {
	Kind     string
	Summary  string
	Content  string
	Affected []string
	RiskHint string
}

// Tool is the interface every executable capability implements.
type Tool interface {
	Name() string
	Definition() model.ToolDefinition
	Execute(ctx context.Context, args model.Args) (Result, error)
}

// Previewer is implemented by mutating tools that can describe their
// effect before approval (spec.md §4.3 approval-suspend stage).
type Previewer interface {
	Preview(ctx context.Context, args model.Args) (*Preview, error)
}

// ParamDef describes one JSON-Schema property for BaseTool's generated
// schema.
type ParamDef struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// BaseTool supplies the common Name/Definition machinery; concrete tools
// embed it and implement Execute (and optionally Preview).
type BaseTool struct {
	name        string
	description string
	params      []ParamDef
	basePolicy  model.Policy
	mutating    bool
}

func NewBaseTool(name, description string, params []ParamDef, basePolicy model.Policy, mutating bool) BaseTool {
	return BaseTool{name: name, description: description, params: params, basePolicy: basePolicy, mutating: mutating}
}

func (b BaseTool) Name() string { return b.name }

func (b BaseTool) Definition() model.ToolDefinition {
	properties := make(map[string]any, len(b.params))
	var required []string
	for _, p := range b.params {
		properties[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return model.ToolDefinition{
		Name:        b.name,
		Description: b.description,
		Schema:      schema,
		BasePolicy:  b.basePolicy,
		Mutating:    b.mutating,
	}
}

// GetString extracts a string argument, falling back to def.
func GetString(args model.Args, key, def string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// GetInt extracts an integer argument, tolerating float64 (JSON numbers)
// and int64, falling back to def.
func GetInt(args model.Args, key string, def int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

// GetBool extracts a boolean argument, falling back to def.
func GetBool(args model.Args, key string, def bool) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// GetStringSlice extracts a []string argument from a []any of strings,
// falling back to nil.
func GetStringSlice(args model.Args, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	switch vs := v.(type) {
	case []string:
		return vs
	case []any:
		out := make([]string, 0, len(vs))
		for _, e := range vs {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
