// Package diff accumulates per-turn file changes into a unified view,
// merging repeated edits to the same path according to a fixed law and
// attributing each change to whoever made it (spec.md §3, §4.6).
//
// Transliterated from
// original_source/vtcode-core/src/tools/handlers/turn_diff_tracker.rs:
// the Rust HashMap<PathBuf, FileChange> plus Option<HashMap> staging area
// becomes a Go map[string]model.FileChange pair guarded by a
// sync.RWMutex; FileChangeKind becomes model.ChangeKind (defined in
// internal/model since it's shared data, not tracker behavior).
package diff

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vtcode-go/vtcode/internal/errkind"
	"github.com/vtcode-go/vtcode/internal/model"
)

// Tracker accumulates FileChange entries across a session, merging
// repeated touches to the same path and tracking an in-flight "pending"
// set between BeginPatch/EndPatch so a single logical edit (which may
// issue several underlying tool calls) attributes as one change.
type Tracker struct {
	mu               sync.RWMutex
	changes          map[string]model.FileChange
	pending          map[string]model.FileChange
	inPatch          bool
	currentAttribution *model.Attribution
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{changes: make(map[string]model.FileChange)}
}

// SetAttribution sets the attribution applied to changes recorded until
// the next SetAttribution or ClearAttribution call.
func (t *Tracker) SetAttribution(a model.Attribution) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentAttribution = &a
}

// ClearAttribution stops auto-attributing subsequently recorded changes.
func (t *Tracker) ClearAttribution() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentAttribution = nil
}

// BeginPatch opens a pending-changes scope: changes recorded until
// EndPatch land in a staging map instead of the committed one, so a
// caller can inspect an in-progress multi-file edit before EndPatch
// commits it.
func (t *Tracker) BeginPatch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inPatch = true
	t.pending = make(map[string]model.FileChange)
}

// EndPatch merges the pending scope into the committed changes and
// closes it. Calling EndPatch without a prior BeginPatch is a no-op.
func (t *Tracker) EndPatch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.inPatch {
		return
	}
	for path, change := range t.pending {
		t.mergeLocked(path, change)
	}
	t.pending = nil
	t.inPatch = false
}

// Record applies a new change to path, merging with any existing change
// for that path per the law in merge(). If attribution was set via
// SetAttribution and change carries none, it is attached automatically.
func (t *Tracker) Record(path string, change model.FileChange) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if change.Attribution == nil && t.currentAttribution != nil {
		change = change.WithAttribution(*t.currentAttribution)
	}

	if t.inPatch {
		applyMerge(t.pending, path, change)
		return
	}
	t.mergeLocked(path, change)
}

func (t *Tracker) mergeLocked(path string, change model.FileChange) {
	applyMerge(t.changes, path, change)
}

// applyMerge merges change into m[path], removing the entry entirely
// when merge reports the two changes cancel out (Add -> Delete).
func applyMerge(m map[string]model.FileChange, path string, change model.FileChange) {
	existing, ok := m[path]
	if !ok {
		m[path] = change
		return
	}
	merged, keep := merge(existing, change)
	if !keep {
		delete(m, path)
		return
	}
	m[path] = merged
}

// merge implements the exact FileChange merge law from turn_diff_tracker.rs:
//
//	Add    -> Update = Add(new content)
//	Add    -> Delete = the two changes cancel; no entry survives (spec.md §3)
//	Update -> Update = Update(first.old, last.new)
//	Update -> Delete = Delete(first.old)
//	Delete -> Add     = Update(original deleted content, newly added content)
//	anything else     = use the new change (last write wins)
//
// The bool result reports whether an entry survives the merge; false
// means the caller must delete the map entry rather than store
// anything, since the returned FileChange is meaningless in that case.
func merge(first, second model.FileChange) (model.FileChange, bool) {
	switch {
	case first.IsAdd() && second.IsUpdate():
		newContent, _ := second.NewContentValue()
		out := model.AddChange(newContent)
		return carryMeta(out, second), true
	case first.IsAdd() && second.IsDelete():
		return model.FileChange{}, false
	case first.IsUpdate() && second.IsUpdate():
		oldContent, _ := first.OldContentValue()
		newContent, _ := second.NewContentValue()
		out := model.UpdateChange(oldContent, newContent)
		return carryMeta(out, second), true
	case first.IsUpdate() && second.IsDelete():
		oldContent, _ := first.OldContentValue()
		out := model.DeleteChange(oldContent)
		return carryMeta(out, second), true
	case first.IsDelete() && second.IsAdd():
		originalContent, _ := first.OldContentValue()
		newContent, _ := second.NewContentValue()
		out := model.UpdateChange(originalContent, newContent)
		return carryMeta(out, second), true
	default:
		return second, true
	}
}

func carryMeta(out, from model.FileChange) model.FileChange {
	out.Attribution = from.Attribution
	out.LineRange = from.LineRange
	return out
}

// Changes returns a snapshot of the committed changes, keyed by path.
func (t *Tracker) Changes() map[string]model.FileChange {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]model.FileChange, len(t.changes))
	for k, v := range t.changes {
		out[k] = v
	}
	return out
}

// PendingChanges returns a snapshot of the in-flight patch scope, or nil
// if no patch is open.
func (t *Tracker) PendingChanges() map[string]model.FileChange {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.inPatch {
		return nil
	}
	out := make(map[string]model.FileChange, len(t.pending))
	for k, v := range t.pending {
		out[k] = v
	}
	return out
}

// HasChanges reports whether any committed changes are recorded.
func (t *Tracker) HasChanges() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.changes) > 0
}

// Clear discards all committed and pending changes.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.changes = make(map[string]model.FileChange)
	t.pending = nil
	t.inPatch = false
}

// UnifiedDiff renders every committed change to a single concatenated
// unified-diff-style text, sorted by path for deterministic output.
func (t *Tracker) UnifiedDiff() (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	paths := make([]string, 0, len(t.changes))
	for p := range t.changes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, path := range paths {
		formatted, err := formatChange(path, t.changes[path])
		if err != nil {
			return "", errkind.Wrap(errkind.Internal, err, "formatting diff for %q", path)
		}
		b.WriteString(formatted)
	}
	return b.String(), nil
}

func formatChange(path string, c model.FileChange) (string, error) {
	switch c.Kind {
	case model.ChangeAdd:
		return formatAdditionDiff(path, c.Content), nil
	case model.ChangeDelete:
		return formatDeletionDiff(path, c.OriginalContent), nil
	case model.ChangeUpdate:
		return formatUpdateDiff(path, c.OldContent, c.NewContent), nil
	case model.ChangeRename:
		return formatRenameDiff(path, c), nil
	default:
		return "", fmt.Errorf("unknown change kind %q", c.Kind)
	}
}

func formatAdditionDiff(path, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- /dev/null\n+++ b/%s\n", path)
	for _, line := range splitLines(content) {
		fmt.Fprintf(&b, "+%s\n", line)
	}
	return b.String()
}

func formatDeletionDiff(path, original string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ /dev/null\n", path)
	for _, line := range splitLines(original) {
		fmt.Fprintf(&b, "-%s\n", line)
	}
	return b.String()
}

func formatUpdateDiff(path, old, new string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, path)
	oldLines := splitLines(old)
	newLines := splitLines(new)
	for _, line := range oldLines {
		fmt.Fprintf(&b, "-%s\n", line)
	}
	for _, line := range newLines {
		fmt.Fprintf(&b, "+%s\n", line)
	}
	return b.String()
}

func formatRenameDiff(path string, c model.FileChange) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, c.NewPath)
	if c.RenameOldContent != nil && c.RenameNewContent != nil {
		for _, line := range splitLines(*c.RenameOldContent) {
			fmt.Fprintf(&b, "-%s\n", line)
		}
		for _, line := range splitLines(*c.RenameNewContent) {
			fmt.Fprintf(&b, "+%s\n", line)
		}
	}
	return b.String()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
