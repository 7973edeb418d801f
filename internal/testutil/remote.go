package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/notesapi"
	"github.com/starford/quire/internal/tree"
)

// FakeRemote is an in-memory notes API for client tests.
type FakeRemote struct {
	mu    sync.Mutex
	notes map[string]content.Content
	calls map[string]int
	fail  map[string]error
	hooks map[string]func()
	used  int64

	profile *notesapi.Profile
}

// NewFakeRemote creates a fake holding the given paths with empty content.
func NewFakeRemote(paths ...string) *FakeRemote {
	f := &FakeRemote{
		notes: make(map[string]content.Content),
		calls: make(map[string]int),
		fail:  make(map[string]error),
		hooks: make(map[string]func()),
	}
	for _, p := range paths {
		f.notes[p] = content.Empty()
	}
	return f
}

// Fail makes every later call of op return err. A nil err clears it.
// Ops: structure, content, save, create, delete, rename, size, profile,
// create profile.
func (f *FakeRemote) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

// Calls returns how many times op was invoked, including failed calls.
func (f *FakeRemote) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Put stores a note directly, bypassing the call counters.
func (f *FakeRemote) Put(path string, c content.Content) {
	f.mu.Lock()
	f.notes[path] = c
	f.mu.Unlock()
}

// Get returns the stored note.
func (f *FakeRemote) Get(path string) (content.Content, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.notes[path]
	return c, ok
}

// SetUsed sets the storage size reported by StorageSize.
func (f *FakeRemote) SetUsed(n int64) {
	f.mu.Lock()
	f.used = n
	f.mu.Unlock()
}

// OnCall runs fn at the start of every later call of op, before the fake
// takes its lock, so fn may call back into the client under test.
func (f *FakeRemote) OnCall(op string, fn func()) {
	f.mu.Lock()
	f.hooks[op] = fn
	f.mu.Unlock()
}

func (f *FakeRemote) run(op string) {
	f.mu.Lock()
	fn := f.hooks[op]
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *FakeRemote) enter(op string) error {
	f.calls[op]++
	return f.fail[op]
}

func (f *FakeRemote) Structure(_ context.Context, _ string) (*notesapi.Structure, error) {
	f.run("structure")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("structure"); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(f.notes))
	for p := range f.notes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return &notesapi.Structure{Tree: tree.Build(paths), NoteCount: len(paths), UserID: "test"}, nil
}

func (f *FakeRemote) Content(_ context.Context, path, _ string) (content.Content, error) {
	f.run("content")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("content"); err != nil {
		return content.Content{}, err
	}
	c, ok := f.notes[path]
	if !ok {
		return content.Content{}, &apperr.NetworkError{Op: "content", Status: 404, Body: "note not found"}
	}
	return c, nil
}

func (f *FakeRemote) Save(_ context.Context, path string, c content.Content, _ string) error {
	f.run("save")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("save"); err != nil {
		return err
	}
	f.notes[path] = c
	return nil
}

func (f *FakeRemote) Create(_ context.Context, path string, c content.Content, _ string) error {
	f.run("create")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("create"); err != nil {
		return err
	}
	if _, ok := f.notes[path]; ok {
		return &apperr.NetworkError{Op: "create", Status: 409, Body: "note already exists"}
	}
	f.notes[path] = c
	return nil
}

func (f *FakeRemote) Delete(_ context.Context, path, _ string) error {
	f.run("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("delete"); err != nil {
		return err
	}
	if _, ok := f.notes[path]; !ok {
		return &apperr.NetworkError{Op: "delete", Status: 404, Body: "note not found"}
	}
	delete(f.notes, path)
	return nil
}

func (f *FakeRemote) Rename(_ context.Context, oldPath, newPath, _ string) error {
	f.run("rename")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("rename"); err != nil {
		return err
	}
	c, ok := f.notes[oldPath]
	if !ok {
		return &apperr.NetworkError{Op: "rename", Status: 404, Body: "note not found"}
	}
	if _, taken := f.notes[newPath]; taken {
		return &apperr.NetworkError{Op: "rename", Status: 409, Body: "target already exists"}
	}
	delete(f.notes, oldPath)
	f.notes[newPath] = c
	return nil
}

func (f *FakeRemote) StorageSize(_ context.Context, _ string) (int64, error) {
	f.run("size")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("size"); err != nil {
		return 0, err
	}
	return f.used, nil
}

// SetProfile sets the profile returned by Profile. nil makes Profile fail
// with a 404.
func (f *FakeRemote) SetProfile(p *notesapi.Profile) {
	f.mu.Lock()
	f.profile = p
	f.mu.Unlock()
}

func (f *FakeRemote) Profile(_ context.Context, _ string) (*notesapi.Profile, error) {
	f.run("profile")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("profile"); err != nil {
		return nil, err
	}
	if f.profile == nil {
		return nil, &apperr.NetworkError{Op: "profile", Status: 404, Body: "profile not found"}
	}
	p := *f.profile
	return &p, nil
}

func (f *FakeRemote) CreateProfile(_ context.Context, req notesapi.CreateProfileRequest, _ string) (*notesapi.Profile, error) {
	f.run("create profile")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("create profile"); err != nil {
		return nil, err
	}
	if f.profile != nil {
		return nil, &apperr.NetworkError{Op: "create profile", Status: 409, Body: "profile already exists"}
	}
	f.profile = &notesapi.Profile{UserID: "test", FirstName: req.FirstName, LastName: req.LastName, IsActive: true}
	p := *f.profile
	return &p, nil
}
