// Package executor is the single path by which any tool executes
// (spec.md §4.3): lookup, schema validation, cache probe, policy
// evaluation, approval suspend/resume, sandboxed execution, cache
// invalidation, unified result.
//
// Grounded on teacher pkg/engine/tools/registry.go +
// pkg/engine/policy/policy.go for the overall shape, generalized to the
// full five-step policy-evaluation order and the explicit approval
// suspend/resume stage the teacher's DefaultPolicy collapses into a
// single NeedApproval bool.
package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vtcode-go/vtcode/internal/diff"
	"github.com/vtcode-go/vtcode/internal/errkind"
	"github.com/vtcode-go/vtcode/internal/model"
	"github.com/vtcode-go/vtcode/internal/tools"
)

// Approver requests a human (or automated trust) decision on a tool
// invocation that needs one. The TUI implements this in production;
// tests can stub it.
type Approver interface {
	RequestApproval(ctx context.Context, name string, args model.Args, preview *tools.Preview) (model.ApprovalState, error)
}

// AutoApprover always approves; used when --auto-approve is set.
type AutoApprover struct{}

func (AutoApprover) RequestApproval(context.Context, string, model.Args, *tools.Preview) (model.ApprovalState, error) {
	return model.ApprovalApproved, nil
}

// AutoDenier always denies; a safe default for headless runs with no
// approval channel wired up.
type AutoDenier struct{}

func (AutoDenier) RequestApproval(context.Context, string, model.Args, *tools.Preview) (model.ApprovalState, error) {
	return model.ApprovalDenied, nil
}

// ExecutionResult is the unified result of one Execute call (spec.md
// §4.3 step 10).
type ExecutionResult struct {
	Value         tools.Result
	ApprovalState model.ApprovalState
	Duration      time.Duration
	WasCached     bool
	Metadata      map[string]any
}

// Executor is the unified dispatch path shared by every tool call,
// whether issued by a structured provider tool-call or a recovered
// textual one.
type Executor struct {
	registry *tools.Registry
	tracker  *diff.Tracker
	cache    *lru.Cache[string, tools.Result]
	schemas  map[string]*jsonschema.Schema
	mu       sync.Mutex // serializes mutating tool calls (spec.md §4.3 "serial-only")

	cacheMu       sync.Mutex
	keysByPath    map[string]map[string]bool // path -> set of cache keys that read it
}

// New builds an Executor over registry, pre-compiling each tool's
// JSON-Schema so Execute's validation step never pays compile cost.
func New(registry *tools.Registry, tracker *diff.Tracker, cacheSize int) (*Executor, error) {
	cache, err := lru.New[string, tools.Result](cacheSize)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to build result cache")
	}

	e := &Executor{
		registry:   registry,
		tracker:    tracker,
		cache:      cache,
		schemas:    make(map[string]*jsonschema.Schema),
		keysByPath: make(map[string]map[string]bool),
	}
	for _, t := range registry.All() {
		def := t.Definition()
		schema, err := compileSchema(def.Name, def.Schema)
		if err != nil {
			return nil, err
		}
		e.schemas[def.Name] = schema
	}
	return e, nil
}

func compileSchema(name string, raw map[string]any) (*jsonschema.Schema, error) {
	doc, err := toSchemaDoc(raw)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "invalid schema for tool %s", name)
	}
	resourceName := name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceName, doc); err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to register schema for tool %s", name)
	}
	schema, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, errkind.Wrap(errkind.Internal, err, "failed to compile schema for tool %s", name)
	}
	return schema, nil
}

// toSchemaDoc round-trips raw through JSON so jsonschema sees the same
// any-shaped tree it would get from an on-disk schema file.
func toSchemaDoc(raw map[string]any) (any, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// AvailableTools returns the names of tools whose base policy isn't
// Deny, filtered to what trust permits seeing (spec.md §4.3
// available_tools(trust_level)).
func (e *Executor) AvailableTools(trust model.TrustLevel) []string {
	var names []string
	for _, t := range e.registry.All() {
		def := t.Definition()
		if def.BasePolicy == model.PolicyDeny && !trust.CanBypassApproval() {
			continue
		}
		names = append(names, def.Name)
	}
	sort.Strings(names)
	return names
}

// Preflight reports the disposition a call would receive without
// actually running it (spec.md §4.3 preflight).
func (e *Executor) Preflight(execCtx model.ExecutionContext, name string, args model.Args) model.ApprovalState {
	t, ok := e.registry.Get(name)
	if !ok {
		return model.ApprovalBlocked
	}
	return evaluatePolicy(t.Definition(), execCtx)
}

// Execute runs the full dispatch pipeline for one tool call.
func (e *Executor) Execute(ctx context.Context, name string, args model.Args, execCtx model.ExecutionContext, approver Approver) (ExecutionResult, error) {
	start := time.Now()

	t, ok := e.registry.Get(name)
	if !ok {
		return ExecutionResult{}, errkind.New(errkind.ToolNotFound, "no such tool: %s", name)
	}
	def := t.Definition()

	if schema, ok := e.schemas[name]; ok {
		if err := validateArgs(schema, args); err != nil {
			return ExecutionResult{}, err
		}
	}

	key := cacheKey(name, args)
	if cached, ok := e.cache.Get(key); ok {
		return ExecutionResult{
			Value:         cached,
			ApprovalState: model.ApprovalPreApproved,
			Duration:      time.Since(start),
			WasCached:     true,
		}, nil
	}

	state := evaluatePolicy(def, execCtx)
	if state == model.ApprovalBlocked {
		return ExecutionResult{}, errkind.New(errkind.Blocked, "tool %s blocked by policy", name)
	}

	if state == model.ApprovalNeedsApproval {
		if approver == nil {
			approver = AutoDenier{}
		}
		var preview *tools.Preview
		if previewer, ok := t.(tools.Previewer); ok {
			preview, _ = previewer.Preview(ctx, args)
		}
		decided, err := approver.RequestApproval(ctx, name, args, preview)
		if err != nil || decided != model.ApprovalApproved {
			return ExecutionResult{ApprovalState: model.ApprovalDenied}, errkind.New(errkind.PermissionDenied, "approval denied for tool %s", name)
		}
		state = model.ApprovalApproved
	}

	if state != model.ApprovalPreApproved && state != model.ApprovalApproved {
		return ExecutionResult{}, errkind.New(errkind.PermissionDenied, "tool %s not permitted", name)
	}

	if def.Mutating {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	result, err := t.Execute(ctx, args)
	duration := time.Since(start)
	if err != nil {
		return ExecutionResult{Value: result, ApprovalState: state, Duration: duration}, classifyToolError(err)
	}
	if result.IsError {
		return ExecutionResult{Value: result, ApprovalState: state, Duration: duration}, errkind.New(errkind.Internal, "%s", result.Error)
	}

	if def.Mutating {
		if data, ok := result.Data.(tools.FileChangeData); ok {
			if e.tracker != nil {
				e.recordChange(data)
			}
			e.invalidatePath(data.Path)
		}
	} else {
		e.cache.Add(key, result)
		if path, ok := args["path"].(string); ok {
			e.indexCacheKey(path, key)
		}
	}

	return ExecutionResult{
		Value:         result,
		ApprovalState: state,
		Duration:      duration,
		Metadata:      map[string]any{"tool": name},
	}, nil
}

func (e *Executor) recordChange(data tools.FileChangeData) {
	var change model.FileChange
	switch data.Kind {
	case model.ChangeAdd:
		change = model.AddChange(data.NewContent)
	case model.ChangeUpdate:
		change = model.UpdateChange(data.OldContent, data.NewContent)
	case model.ChangeDelete:
		change = model.DeleteChange(data.OldContent)
	default:
		change = model.UpdateChange(data.OldContent, data.NewContent)
	}
	e.tracker.Record(data.Path, change)
}

func validateArgs(schema *jsonschema.Schema, args model.Args) error {
	data, err := json.Marshal(args)
	if err != nil {
		return errkind.Wrap(errkind.InvalidArgs, err, "could not encode arguments")
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return errkind.Wrap(errkind.InvalidArgs, err, "could not decode arguments")
	}
	if err := schema.Validate(doc); err != nil {
		return errkind.Wrap(errkind.InvalidArgs, err, "invalid arguments")
	}
	return nil
}

// evaluatePolicy implements spec.md §4.3 step 4 in order.
func evaluatePolicy(def model.ToolDefinition, execCtx model.ExecutionContext) model.ApprovalState {
	for _, pattern := range execCtx.Policy.DenyPatterns {
		if pattern == def.Name {
			return model.ApprovalBlocked
		}
	}
	if execCtx.Policy.PlanModeEnforced && def.Mutating {
		return model.ApprovalBlocked
	}
	if execCtx.TrustLevel.CanBypassApproval() {
		return model.ApprovalPreApproved
	}
	for _, pattern := range execCtx.Policy.AllowPatterns {
		if pattern == def.Name {
			return model.ApprovalPreApproved
		}
	}
	if override, ok := execCtx.Policy.Overrides[def.Name]; ok {
		return dispositionForPolicy(override)
	}
	return dispositionForPolicy(def.BasePolicy)
}

func dispositionForPolicy(p model.Policy) model.ApprovalState {
	switch p {
	case model.PolicyAllow:
		return model.ApprovalPreApproved
	case model.PolicyDeny:
		return model.ApprovalBlocked
	default:
		return model.ApprovalNeedsApproval
	}
}

func classifyToolError(err error) error {
	if errkind.KindOf(err) != "" {
		return err
	}
	return errkind.Wrap(errkind.Internal, err, "tool execution failed")
}

func cacheKey(name string, args model.Args) string {
	data, _ := json.Marshal(normalizeArgs(args))
	sum := sha256.Sum256(append([]byte(name+"\x00"), data...))
	return hex.EncodeToString(sum[:])
}

func (e *Executor) indexCacheKey(path, key string) {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	set, ok := e.keysByPath[path]
	if !ok {
		set = make(map[string]bool)
		e.keysByPath[path] = set
	}
	set[key] = true
}

// invalidatePath drops every cached result that read path or any path
// beneath it, per spec.md §4.3 step 8: a write to a directory must
// invalidate reads of everything under that directory, not just an
// exact-path match, since a cached ls or read_file result is stale the
// moment any ancestor of the path it read is overwritten.
func (e *Executor) invalidatePath(path string) {
	e.cacheMu.Lock()
	var keys []string
	prefix := path + "/"
	for cached, set := range e.keysByPath {
		if cached != path && !strings.HasPrefix(cached, prefix) {
			continue
		}
		for key := range set {
			keys = append(keys, key)
		}
		delete(e.keysByPath, cached)
	}
	e.cacheMu.Unlock()

	for _, key := range keys {
		e.cache.Remove(key)
	}
}

// normalizeArgs sorts map keys deterministically by round-tripping
// through an ordered representation, so cache keys don't depend on Go's
// randomized map iteration order.
func normalizeArgs(args model.Args) map[string]any {
	out := make(map[string]any, len(args))
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out[k] = args[k]
	}
	return out
}
