package model

// ChangeKind distinguishes the four FileChange variants (spec.md §3).
//
// Grounded on original_source's turn_diff_tracker.rs FileChangeKind enum.
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeDelete ChangeKind = "delete"
	ChangeUpdate ChangeKind = "update"
	ChangeRename ChangeKind = "rename"
)

// Contributor classifies who produced a FileChange.
type Contributor string

const (
	ContributorAI      Contributor = "ai"
	ContributorHuman   Contributor = "human"
	ContributorMixed   Contributor = "mixed"
	ContributorUnknown Contributor = "unknown"
)

// Attribution carries provenance for a FileChange (restored from
// original_source per SPEC_FULL §2.3; spec.md §3 names the fields).
type Attribution struct {
	ModelID         string
	Provider        string
	SessionID       string
	TurnNumber      int
	ContributorType Contributor
}

// AIAttribution builds an Attribution for a model-authored change.
func AIAttribution(modelID, provider string) Attribution {
	return Attribution{ModelID: modelID, Provider: provider, ContributorType: ContributorAI}
}

// HumanAttribution builds an Attribution for a human-authored change.
func HumanAttribution() Attribution {
	return Attribution{ContributorType: ContributorHuman}
}

// UnknownAttribution builds an Attribution with no known contributor.
func UnknownAttribution() Attribution {
	return Attribution{ContributorType: ContributorUnknown}
}

// WithSession returns a copy of a with session context attached.
func (a Attribution) WithSession(sessionID string, turn int) Attribution {
	a.SessionID = sessionID
	a.TurnNumber = turn
	return a
}

// NormalizedModelID returns "provider/model" when both are known and the
// model id doesn't already carry a provider prefix.
func (a Attribution) NormalizedModelID() string {
	if a.ModelID == "" {
		return ""
	}
	if a.Provider == "" {
		return a.ModelID
	}
	for i := range a.ModelID {
		if a.ModelID[i] == '/' {
			return a.ModelID
		}
	}
	return a.Provider + "/" + a.ModelID
}

// LineRange is an inclusive, 1-indexed line span affected by a change.
type LineRange struct {
	Start, End uint32
}

// FileChange is one of the four variants in spec.md §3. Only the fields
// relevant to Kind are populated; callers use the accessor methods rather
// than reading fields directly so the variant stays closed.
type FileChange struct {
	Kind ChangeKind

	// Add
	Content string
	// Delete
	OriginalContent string
	// Update
	OldContent, NewContent string
	// Rename
	NewPath             string
	RenameOldContent    *string
	RenameNewContent    *string

	Attribution *Attribution
	LineRange   *LineRange
}

func AddChange(content string) FileChange {
	return FileChange{Kind: ChangeAdd, Content: content}
}

func DeleteChange(original string) FileChange {
	return FileChange{Kind: ChangeDelete, OriginalContent: original}
}

func UpdateChange(old, new string) FileChange {
	return FileChange{Kind: ChangeUpdate, OldContent: old, NewContent: new}
}

func RenameChange(newPath string, old, new *string) FileChange {
	return FileChange{Kind: ChangeRename, NewPath: newPath, RenameOldContent: old, RenameNewContent: new}
}

func (c FileChange) WithAttribution(a Attribution) FileChange {
	c.Attribution = &a
	return c
}

func (c FileChange) WithLineRange(start, end uint32) FileChange {
	c.LineRange = &LineRange{Start: start, End: end}
	return c
}

// NewContentValue returns the post-change content, if any.
func (c FileChange) NewContentValue() (string, bool) {
	switch c.Kind {
	case ChangeAdd:
		return c.Content, true
	case ChangeUpdate:
		return c.NewContent, true
	case ChangeRename:
		if c.RenameNewContent != nil {
			return *c.RenameNewContent, true
		}
		return "", false
	default:
		return "", false
	}
}

// OldContentValue returns the pre-change content, if any.
func (c FileChange) OldContentValue() (string, bool) {
	switch c.Kind {
	case ChangeDelete:
		return c.OriginalContent, true
	case ChangeUpdate:
		return c.OldContent, true
	case ChangeRename:
		if c.RenameOldContent != nil {
			return *c.RenameOldContent, true
		}
		return "", false
	default:
		return "", false
	}
}

func (c FileChange) IsAdd() bool    { return c.Kind == ChangeAdd }
func (c FileChange) IsDelete() bool { return c.Kind == ChangeDelete }
func (c FileChange) IsUpdate() bool { return c.Kind == ChangeUpdate }
func (c FileChange) IsRename() bool { return c.Kind == ChangeRename }
