// Package composer owns the per-session draft state of the prompt builder:
// which categories are active, the text and attachments drafted for each,
// the always-present combined input, and the conversation log.
package composer

import (
	"errors"
	"strings"
	"time"

	"promptdeck/api/internal/util"
)

// Category is an immutable catalog entry. The catalog is fixed at startup
// and category ids are unique.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Catalog resolves category ids to their labels.
type Catalog struct {
	ordered []Category
	byID    map[string]Category
}

// NewCatalog builds a catalog from the given entries. Duplicate ids keep
// their first occurrence.
func NewCatalog(categories []Category) *Catalog {
	byID := make(map[string]Category, len(categories))
	ordered := make([]Category, 0, len(categories))
	for _, category := range categories {
		if _, exists := byID[category.ID]; exists {
			continue
		}
		byID[category.ID] = category
		ordered = append(ordered, category)
	}
	return &Catalog{ordered: ordered, byID: byID}
}

// List returns the catalog entries in their fixed order.
func (c *Catalog) List() []Category {
	out := make([]Category, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Lookup resolves a category id.
func (c *Catalog) Lookup(id string) (Category, bool) {
	category, ok := c.byID[id]
	return category, ok
}

// AttachedFile is one validated attachment inside a draft. The bytes live
// in the blob store under BlobKey; the draft only carries metadata.
type AttachedFile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"sizeBytes"`
	MimeType  string `json:"mimeType"`
	BlobKey   string `json:"-"`
}

// Draft is the in-progress text and attachments for one category, or for
// the combined input.
type Draft struct {
	Text  string         `json:"text"`
	Files []AttachedFile `json:"files"`
}

// Empty reports whether the draft would contribute nothing to a
// submission: blank text and no attachments.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.Text) == "" && len(d.Files) == 0
}

// Turn is one entry in the conversation log. Turns are append-only and
// never mutated, reordered, or deleted within a session.
type Turn struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	IsFromUser bool      `json:"isFromUser"`
	CreatedAt  time.Time `json:"createdAt"`
}

var (
	// ErrUnknownCategory is returned for ids missing from the catalog.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrNotActive is returned when a draft operation targets a category
	// that is not currently active.
	ErrNotActive = errors.New("category not active")
	// ErrFileNotFound is returned when a removal names no attached file.
	ErrFileNotFound = errors.New("file not found")
)

// Composer holds all mutable state for one session. It performs no I/O and
// is not safe for concurrent use; callers serialize access per session.
type Composer struct {
	catalog  *Catalog
	active   []string
	drafts   map[string]*Draft
	combined Draft
	turns    []Turn
	sending  bool
	now      func() time.Time
}

// New creates an empty composer over the given catalog.
func New(catalog *Catalog) *Composer {
	return &Composer{
		catalog: catalog,
		drafts:  make(map[string]*Draft),
		now:     time.Now,
	}
}

// Activate appends the category to the active set and creates its empty
// draft. Activating an already-active category is a no-op.
func (c *Composer) Activate(categoryID string) error {
	if _, ok := c.catalog.Lookup(categoryID); !ok {
		return ErrUnknownCategory
	}
	if _, active := c.drafts[categoryID]; active {
		return nil
	}
	c.active = append(c.active, categoryID)
	c.drafts[categoryID] = &Draft{}
	return nil
}

// Deactivate removes the category from the active set and irreversibly
// discards its draft. No-op when the category is not active. The discarded
// attachments are returned so the caller can release their blobs.
func (c *Composer) Deactivate(categoryID string) []AttachedFile {
	draft, active := c.drafts[categoryID]
	if !active {
		return nil
	}
	delete(c.drafts, categoryID)
	for i, id := range c.active {
		if id == categoryID {
			c.active = append(c.active[:i], c.active[i+1:]...)
			break
		}
	}
	return draft.Files
}

// Active reports whether the category currently has a draft.
func (c *Composer) Active(categoryID string) bool {
	_, active := c.drafts[categoryID]
	return active
}

// SetText replaces the draft's text for an active category.
func (c *Composer) SetText(categoryID, text string) error {
	draft, active := c.drafts[categoryID]
	if !active {
		return ErrNotActive
	}
	draft.Text = text
	return nil
}

// AddFile appends a validated attachment to an active category's draft,
// preserving upload order.
func (c *Composer) AddFile(categoryID string, file AttachedFile) error {
	draft, active := c.drafts[categoryID]
	if !active {
		return ErrNotActive
	}
	draft.Files = append(draft.Files, file)
	return nil
}

// RemoveFile removes exactly one attachment by id, leaving the order and
// ids of the remaining files untouched.
func (c *Composer) RemoveFile(categoryID, fileID string) (AttachedFile, error) {
	draft, active := c.drafts[categoryID]
	if !active {
		return AttachedFile{}, ErrNotActive
	}
	return removeFileByID(draft, fileID)
}

// SetCombinedText replaces the combined draft's text.
func (c *Composer) SetCombinedText(text string) {
	c.combined.Text = text
}

// AddCombinedFile appends an attachment to the combined draft.
func (c *Composer) AddCombinedFile(file AttachedFile) {
	c.combined.Files = append(c.combined.Files, file)
}

// RemoveCombinedFile removes one attachment from the combined draft by id.
func (c *Composer) RemoveCombinedFile(fileID string) (AttachedFile, error) {
	return removeFileByID(&c.combined, fileID)
}

// ClearCombined resets the combined draft to empty and returns the
// attachments it held so the caller can release their blobs.
func (c *Composer) ClearCombined() []AttachedFile {
	files := c.combined.Files
	c.combined = Draft{}
	return files
}

func removeFileByID(draft *Draft, fileID string) (AttachedFile, error) {
	for i, file := range draft.Files {
		if file.ID == fileID {
			draft.Files = append(draft.Files[:i], draft.Files[i+1:]...)
			return file, nil
		}
	}
	return AttachedFile{}, ErrFileNotFound
}

// Snapshot is an atomic deep copy of the composer's drafts, taken by the
// orchestrator at submission time. Mutating the composer afterwards does
// not affect a snapshot.
type Snapshot struct {
	Active   []Category
	Drafts   map[string]Draft
	Combined Draft
}

// Snapshot copies the active set, every active draft, and the combined
// draft in one step.
func (c *Composer) Snapshot() Snapshot {
	active := make([]Category, 0, len(c.active))
	drafts := make(map[string]Draft, len(c.active))
	for _, id := range c.active {
		category, _ := c.catalog.Lookup(id)
		active = append(active, category)
		drafts[id] = copyDraft(*c.drafts[id])
	}
	return Snapshot{
		Active:   active,
		Drafts:   drafts,
		Combined: copyDraft(c.combined),
	}
}

func copyDraft(d Draft) Draft {
	files := make([]AttachedFile, len(d.Files))
	copy(files, d.Files)
	return Draft{Text: d.Text, Files: files}
}

// AppendTurn appends one conversation turn and returns it.
func (c *Composer) AppendTurn(text string, fromUser bool) Turn {
	turn := Turn{
		ID:         util.NewID("turn"),
		Text:       text,
		IsFromUser: fromUser,
		CreatedAt:  c.now(),
	}
	c.turns = append(c.turns, turn)
	return turn
}

// Turns returns the conversation log in insertion order.
func (c *Composer) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Sending reports whether a submission is in flight for this session.
func (c *Composer) Sending() bool {
	return c.sending
}

// BeginSend marks a submission as in flight. It reports false when one
// already is; only a single submission may be in flight at a time.
func (c *Composer) BeginSend() bool {
	if c.sending {
		return false
	}
	c.sending = true
	return true
}

// EndSend clears the in-flight flag.
func (c *Composer) EndSend() {
	c.sending = false
}
