// Package sidebar turns navigation intents (select, create, rename, move,
// delete, expand) into Note Store calls and keeps the presentation state that
// goes with them: the expanded folders, the inline create and rename drafts
// and the durable "last selected note" slot.
package sidebar

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/notepath"
	"github.com/starford/quire/internal/notestore"
	"github.com/starford/quire/internal/slot"
	"github.com/starford/quire/internal/tree"
)

// InitialContent is the body of every newly created note.
const InitialContent = "<h1>New Document</h1><p>Start writing...</p>"

// Validation messages shown inline.
const (
	MsgTitleRequired = "Title is required"
	MsgTitleExists   = "A note with this title already exists"
)

// Mode is the interaction mode of the sidebar.
type Mode int

const (
	Browsing Mode = iota
	Creating
	Renaming
)

func (m Mode) String() string {
	switch m {
	case Creating:
		return "creating"
	case Renaming:
		return "renaming"
	}
	return "browsing"
}

// Editor receives content for the newly active note.
type Editor interface {
	Push(c content.Content)
}

// Tokens resolves the bearer token for each action.
type Tokens interface {
	AccessToken(ctx context.Context) string
}

// CreationDraft is the inline "new note" input.
type CreationDraft struct {
	Name       string
	Err        string
	Submitting bool
}

// ActiveChange describes a change of the open note made through the
// controller. Loaded is true when new content was pushed into the editor.
type ActiveChange struct {
	Old, New string
	Loaded   bool
}

// Controller is safe for concurrent use.
type Controller struct {
	store  *notestore.Store
	editor Editor
	slot   slot.Store
	tokens Tokens
	logger *slog.Logger

	mu           sync.Mutex
	mode         Mode
	expanded     map[string]bool
	creation     *CreationDraft
	renamingPath string
	renameDraft  string
	renameErr    string
	usage        *int64

	hooks   []func(ActiveChange)
	leaving []func(path string)
}

// New creates a controller and subscribes it to current-file changes so the
// active note's ancestors are always expanded.
func New(store *notestore.Store, editor Editor, s slot.Store, tokens Tokens, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		store:    store,
		editor:   editor,
		slot:     s,
		tokens:   tokens,
		logger:   logger,
		expanded: make(map[string]bool),
	}
	store.OnCurrentFileChange(func(_, newPath string) {
		if newPath != "" {
			c.ExpandToPath(newPath)
		}
	})
	return c
}

// OnActiveChange registers fn to run after a controller action changes the
// open note.
func (c *Controller) OnActiveChange(fn func(ActiveChange)) {
	c.mu.Lock()
	c.hooks = append(c.hooks, fn)
	c.mu.Unlock()
}

// OnLeave registers fn to run before an action that may replace or remove
// the open note. fn receives the path that is about to be left. If the action
// fails with the note still in place, an ActiveChange with Old == New
// follows.
func (c *Controller) OnLeave(fn func(path string)) {
	c.mu.Lock()
	c.leaving = append(c.leaving, fn)
	c.mu.Unlock()
}

func (c *Controller) fire(ev ActiveChange) {
	c.mu.Lock()
	hooks := slices.Clone(c.hooks)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn(ev)
	}
}

func (c *Controller) leave(path string) {
	if path == "" {
		return
	}
	c.mu.Lock()
	hooks := slices.Clone(c.leaving)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn(path)
	}
}

// resume reports that path stayed open after a failed action.
func (c *Controller) resume(path string, err error) {
	if path == "" || errors.Is(err, notestore.ErrResync) {
		return
	}
	if c.store.CurrentFile() != path {
		return
	}
	c.fire(ActiveChange{Old: path, New: path})
}

func (c *Controller) token(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.AccessToken(ctx)
}

func (c *Controller) remember(ctx context.Context, path string) {
	if err := c.slot.Set(ctx, slot.SelectedFile, path); err != nil {
		c.logger.Warn("persist selection failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (c *Controller) forget(ctx context.Context) {
	if err := c.slot.Remove(ctx, slot.SelectedFile); err != nil {
		c.logger.Warn("clear selection failed", slog.String("error", err.Error()))
	}
}

// ExpandToPath marks every ancestor folder of path as expanded. It never
// collapses anything.
func (c *Controller) ExpandToPath(path string) {
	c.mu.Lock()
	for _, a := range notepath.Ancestors(path) {
		c.expanded[a] = true
	}
	c.mu.Unlock()
}

// ToggleFolder flips one folder's expanded flag.
func (c *Controller) ToggleFolder(path string) {
	c.mu.Lock()
	if c.expanded[path] {
		delete(c.expanded, path)
	} else {
		c.expanded[path] = true
	}
	c.mu.Unlock()
}

// IsExpanded reports whether folder path is expanded.
func (c *Controller) IsExpanded(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expanded[path]
}

// Expanded returns the expanded folder paths.
func (c *Controller) Expanded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.expanded))
	for p := range c.expanded {
		out = append(out, p)
	}
	return out
}

// Folders lists every folder of the current tree, for move destinations.
func (c *Controller) Folders() []string {
	return tree.CollectFolders(c.store.Tree())
}

// Mode returns the current interaction mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Refresh reloads the structure and returns the recorded load error.
func (c *Controller) Refresh(ctx context.Context) error {
	c.store.LoadStructure(ctx, c.token(ctx))
	return c.store.Err()
}

// Restore loads the structure and reopens the note saved in the selection
// slot. A slot path that cannot be opened leaves nothing selected.
func (c *Controller) Restore(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	path, ok, err := c.slot.Get(ctx, slot.SelectedFile)
	if err != nil || !ok || path == "" {
		return nil
	}
	if err := c.Select(ctx, path); err != nil {
		c.logger.Info("last selection not restored", slog.String("path", path), slog.String("error", err.Error()))
	}
	return nil
}

// Select opens path.
func (c *Controller) Select(ctx context.Context, path string) error {
	tok := c.token(ctx)
	if tok == "" {
		return nil
	}
	old := c.store.CurrentFile()
	c.leave(old)
	body, ok := c.store.LoadContent(ctx, path, tok)
	if !ok {
		err := c.store.Err()
		if err == nil {
			err = errors.New("sidebar: note could not be loaded")
		}
		c.resume(old, err)
		return err
	}
	c.editor.Push(body)
	c.remember(ctx, path)
	c.fire(ActiveChange{Old: old, New: path, Loaded: true})
	return nil
}

// StartCreate opens the inline create input, replacing any rename in
// progress.
func (c *Controller) StartCreate() {
	c.mu.Lock()
	c.mode = Creating
	c.creation = &CreationDraft{}
	c.renamingPath, c.renameDraft, c.renameErr = "", "", ""
	c.mu.Unlock()
}

// SetCreateName updates the draft and validates it.
func (c *Controller) SetCreateName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.creation == nil {
		return
	}
	c.creation.Name = name
	c.creation.Err = ""
	if name != "" {
		if err := c.validateNameLocked(strings.TrimSpace(name)); err != nil {
			c.creation.Err = apperr.Message(err)
		}
	}
}

// validateNameLocked checks a trimmed title. Collisions are checked against
// the bare title, not a folder-qualified path.
func (c *Controller) validateNameLocked(name string) error {
	err := validation.Validate(name,
		validation.Required.Error(MsgTitleRequired),
		validation.By(func(v any) error {
			if c.store.Exists(v.(string)) {
				return errors.New(MsgTitleExists)
			}
			return nil
		}),
	)
	if err != nil {
		return &apperr.ValidationError{Field: "title", Message: err.Error()}
	}
	return nil
}

// CancelCreate leaves Creating unless a submit is in progress.
func (c *Controller) CancelCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != Creating || (c.creation != nil && c.creation.Submitting) {
		return
	}
	c.mode = Browsing
	c.creation = nil
}

// BlurCreate is CancelCreate for focus loss.
func (c *Controller) BlurCreate() { c.CancelCreate() }

// SubmitCreate validates the draft and creates the note. Validation errors
// stay inline without any network call. Remote failures also keep the input
// open with the error shown.
func (c *Controller) SubmitCreate(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != Creating || c.creation == nil || c.creation.Submitting {
		c.mu.Unlock()
		return nil
	}
	name := strings.TrimSpace(c.creation.Name)
	if err := c.validateNameLocked(name); err != nil {
		c.creation.Err = apperr.Message(err)
		c.mu.Unlock()
		return err
	}
	tok := c.token(ctx)
	if tok == "" {
		c.mu.Unlock()
		return nil
	}
	c.creation.Submitting = true
	c.creation.Err = ""
	c.mu.Unlock()

	old := c.store.CurrentFile()
	c.leave(old)
	initial := content.HTML(InitialContent)
	err := c.store.Create(ctx, name, initial, tok)

	c.mu.Lock()
	if err != nil {
		if c.creation != nil {
			c.creation.Submitting = false
			c.creation.Err = apperr.Message(err)
		}
		c.mu.Unlock()
		c.resume(old, err)
		return err
	}
	if c.mode == Creating {
		c.mode = Browsing
	}
	c.creation = nil
	c.mu.Unlock()

	c.editor.Push(initial)
	c.remember(ctx, name)
	c.fire(ActiveChange{Old: old, New: name, Loaded: true})
	return nil
}

// BeginRename opens the inline rename input for path with the base name as
// the draft, replacing any create in progress.
func (c *Controller) BeginRename(path string) {
	c.mu.Lock()
	c.mode = Renaming
	c.creation = nil
	c.renamingPath = path
	c.renameDraft = notepath.Base(path)
	c.renameErr = ""
	c.mu.Unlock()
}

// SetRenameDraft updates the rename input.
func (c *Controller) SetRenameDraft(v string) {
	c.mu.Lock()
	if c.mode == Renaming {
		c.renameDraft = v
		c.renameErr = ""
	}
	c.mu.Unlock()
}

// CancelRename closes the rename input (Escape or blur).
func (c *Controller) CancelRename() {
	c.mu.Lock()
	if c.mode == Renaming {
		c.mode = Browsing
		c.renamingPath, c.renameDraft, c.renameErr = "", "", ""
	}
	c.mu.Unlock()
}

// SubmitRename renames the note within its current folder. On failure the
// input stays open with the error.
func (c *Controller) SubmitRename(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != Renaming {
		c.mu.Unlock()
		return nil
	}
	oldPath := c.renamingPath
	draft := strings.TrimSpace(c.renameDraft)
	if draft == "" {
		c.renameErr = MsgTitleRequired
		c.mu.Unlock()
		return &apperr.ValidationError{Field: "title", Message: MsgTitleRequired}
	}
	newPath := notepath.Join(notepath.Parent(oldPath), draft)
	if newPath == oldPath {
		c.mode = Browsing
		c.renamingPath, c.renameDraft, c.renameErr = "", "", ""
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.rename(ctx, oldPath, newPath, func() error {
		return c.store.Rename(ctx, oldPath, newPath, c.token(ctx))
	}); err != nil {
		c.mu.Lock()
		if c.mode == Renaming && c.renamingPath == oldPath {
			c.renameErr = apperr.Message(err)
		}
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.mode == Renaming && c.renamingPath == oldPath {
		c.mode = Browsing
		c.renamingPath, c.renameDraft, c.renameErr = "", "", ""
	}
	c.mu.Unlock()
	return nil
}

// Move moves path into folder ("" for the top level).
func (c *Controller) Move(ctx context.Context, path, folder string) error {
	newPath := notepath.MoveTarget(path, folder)
	if newPath == path {
		return nil
	}
	return c.rename(ctx, path, newPath, func() error {
		return c.store.Move(ctx, path, folder, c.token(ctx))
	})
}

// rename runs op and, when the renamed note was open, follows it in the slot.
func (c *Controller) rename(ctx context.Context, oldPath, newPath string, op func() error) error {
	if c.token(ctx) == "" {
		return nil
	}
	wasActive := c.store.CurrentFile() == oldPath
	if wasActive {
		c.leave(oldPath)
	}
	if err := op(); err != nil {
		if wasActive {
			c.resume(oldPath, err)
		}
		return err
	}
	if wasActive {
		c.remember(ctx, newPath)
		c.fire(ActiveChange{Old: oldPath, New: newPath})
	}
	return nil
}

// Delete removes path. Deleting the open note clears the editor and the
// selection slot.
func (c *Controller) Delete(ctx context.Context, path string) error {
	tok := c.token(ctx)
	if tok == "" {
		return nil
	}
	wasActive := c.store.CurrentFile() == path
	if wasActive {
		c.leave(path)
	}
	if err := c.store.Delete(ctx, path, tok); err != nil {
		if wasActive {
			c.resume(path, err)
		}
		return err
	}
	if wasActive {
		c.editor.Push(content.Empty())
		c.forget(ctx)
		c.fire(ActiveChange{Old: path, New: "", Loaded: true})
	}
	return nil
}

// RefreshUsage updates the storage usage shown in the footer. Failures clear
// it.
func (c *Controller) RefreshUsage(ctx context.Context) {
	tok := c.token(ctx)
	var n int64
	var err error
	if tok != "" {
		n, err = c.store.UsedBytes(ctx, tok)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok == "" {
		c.usage = nil
		return
	}
	if err != nil {
		c.usage = nil
		c.logger.Debug("storage usage unavailable", slog.String("error", err.Error()))
		return
	}
	c.usage = &n
}
