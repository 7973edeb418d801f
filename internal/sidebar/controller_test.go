package sidebar

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/notestore"
	"github.com/starford/quire/internal/slot"
	"github.com/starford/quire/internal/testutil"
)

type tokens string

func (t tokens) AccessToken(context.Context) string { return string(t) }

type fixture struct {
	ctrl   *Controller
	store  *notestore.Store
	remote *testutil.FakeRemote
	slot   *slot.Memory
	buf    *editor.Buffer
}

func setup(t *testing.T, paths ...string) *fixture {
	t.Helper()
	remote := testutil.NewFakeRemote(paths...)
	store := notestore.New(remote)
	bridge := editor.NewBridge()
	buf := editor.NewBuffer()
	bridge.SetInstance(buf)
	mem := slot.NewMemory()
	ctrl := New(store, bridge, mem, tokens("tok"), nil)
	require.NoError(t, ctrl.Refresh(context.Background()))
	return &fixture{ctrl: ctrl, store: store, remote: remote, slot: mem, buf: buf}
}

func (f *fixture) slotValue(t *testing.T) (string, bool) {
	t.Helper()
	v, ok, err := f.slot.Get(context.Background(), slot.SelectedFile)
	require.NoError(t, err)
	return v, ok
}

func TestStructureScenario_ExpansionIsAdditive(t *testing.T) {
	f := setup(t, "work/notes", "personal")
	ctx := context.Background()

	assert.Equal(t, []string{"work"}, f.ctrl.Folders())

	require.NoError(t, f.ctrl.Select(ctx, "work/notes"))
	assert.True(t, f.ctrl.IsExpanded("work"))

	require.NoError(t, f.ctrl.Select(ctx, "personal"))
	assert.True(t, f.ctrl.IsExpanded("work"), "selection change must not collapse folders")
	v, _ := f.slotValue(t)
	assert.Equal(t, "personal", v)
}

func TestToggleFolder_OnlyThatFolder(t *testing.T) {
	f := setup(t, "a/b/c")
	f.ctrl.ExpandToPath("a/b/c")
	f.ctrl.ToggleFolder("a")
	assert.False(t, f.ctrl.IsExpanded("a"))
	assert.True(t, f.ctrl.IsExpanded("a/b"))
	f.ctrl.ToggleFolder("a")
	assert.True(t, f.ctrl.IsExpanded("a"))
}

func TestRenameActiveFile_UpdatesSlot(t *testing.T) {
	f := setup(t, "a/b/c")
	ctx := context.Background()
	require.NoError(t, f.ctrl.Select(ctx, "a/b/c"))

	require.NoError(t, f.ctrl.Move(ctx, "a/b/c", "a/x"))
	assert.Equal(t, "a/x/c", f.store.CurrentFile())
	v, ok := f.slotValue(t)
	assert.True(t, ok)
	assert.Equal(t, "a/x/c", v)
	assert.True(t, f.ctrl.IsExpanded("a/x"))
}

func TestSubmitRename_KeepsFolder(t *testing.T) {
	f := setup(t, "a/b/c")
	ctx := context.Background()
	require.NoError(t, f.ctrl.Select(ctx, "a/b/c"))

	f.ctrl.BeginRename("a/b/c")
	assert.Equal(t, Renaming, f.ctrl.Mode())
	assert.Equal(t, "c", f.ctrl.View().RenameDraft)

	f.ctrl.SetRenameDraft("  d ")
	require.NoError(t, f.ctrl.SubmitRename(ctx))
	assert.Equal(t, Browsing, f.ctrl.Mode())
	assert.Equal(t, "a/b/d", f.store.CurrentFile())
	v, _ := f.slotValue(t)
	assert.Equal(t, "a/b/d", v)
}

func TestSubmitRename_EmptyAndUnchanged(t *testing.T) {
	f := setup(t, "a/b")
	ctx := context.Background()

	f.ctrl.BeginRename("a/b")
	f.ctrl.SetRenameDraft("   ")
	err := f.ctrl.SubmitRename(ctx)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, Renaming, f.ctrl.Mode())

	f.ctrl.SetRenameDraft("b")
	require.NoError(t, f.ctrl.SubmitRename(ctx))
	assert.Equal(t, Browsing, f.ctrl.Mode())
	assert.Zero(t, f.remote.Calls("rename"))
}

func TestSubmitRename_FailureKeepsInputOpen(t *testing.T) {
	f := setup(t, "a", "b")
	f.ctrl.BeginRename("a")
	f.ctrl.SetRenameDraft("b")

	err := f.ctrl.SubmitRename(context.Background())
	require.Error(t, err)
	v := f.ctrl.View()
	assert.Equal(t, Renaming, v.Mode)
	assert.Equal(t, "a", v.RenamingPath)
	assert.NotEmpty(t, v.RenameErr)
}

func TestDeleteActiveFile_ClearsSlot(t *testing.T) {
	f := setup(t, "a", "b")
	ctx := context.Background()
	require.NoError(t, f.ctrl.Select(ctx, "a"))

	require.NoError(t, f.ctrl.Delete(ctx, "a"))
	assert.Equal(t, "", f.store.CurrentFile())
	_, ok := f.slotValue(t)
	assert.False(t, ok)
	assert.Equal(t, "", f.buf.Text())
}

func TestDeleteOtherFile_KeepsSlot(t *testing.T) {
	f := setup(t, "a", "b")
	ctx := context.Background()
	require.NoError(t, f.ctrl.Select(ctx, "a"))

	require.NoError(t, f.ctrl.Delete(ctx, "b"))
	v, ok := f.slotValue(t)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestCreate_ValidationBlocksNetwork(t *testing.T) {
	f := setup(t, "existing", "folder/nested")
	ctx := context.Background()

	f.ctrl.StartCreate()
	f.ctrl.SetCreateName("   ")
	err := f.ctrl.SubmitCreate(ctx)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, MsgTitleRequired, f.ctrl.View().Creation.Err)
	assert.Equal(t, Creating, f.ctrl.Mode())

	f.ctrl.SetCreateName(" existing ")
	assert.Equal(t, MsgTitleExists, f.ctrl.View().Creation.Err)
	err = f.ctrl.SubmitCreate(ctx)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	// Only the bare title is compared, so a nested note of the same name
	// does not block creation.
	f.ctrl.SetCreateName("nested")
	assert.Empty(t, f.ctrl.View().Creation.Err)

	assert.Zero(t, f.remote.Calls("create"))
}

func TestCreate_Success(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var events []ActiveChange
	f.ctrl.OnActiveChange(func(ev ActiveChange) { events = append(events, ev) })

	f.ctrl.StartCreate()
	f.ctrl.SetCreateName("a/b/c")
	require.NoError(t, f.ctrl.SubmitCreate(ctx))

	assert.Equal(t, Browsing, f.ctrl.Mode())
	assert.Equal(t, "a/b/c", f.store.CurrentFile())
	assert.Equal(t, InitialContent, f.buf.Text())
	assert.True(t, f.ctrl.IsExpanded("a"))
	assert.True(t, f.ctrl.IsExpanded("a/b"))
	v, _ := f.slotValue(t)
	assert.Equal(t, "a/b/c", v)
	assert.Equal(t, []ActiveChange{{Old: "", New: "a/b/c", Loaded: true}}, events)

	got, ok := f.remote.Get("a/b/c")
	require.True(t, ok)
	assert.True(t, got.Equal(content.HTML(InitialContent)))
}

func TestCreate_RemoteFailureStaysInCreating(t *testing.T) {
	f := setup(t)
	f.remote.Fail("create", &apperr.NetworkError{Op: "create", Status: 500, Body: "disk full"})

	f.ctrl.StartCreate()
	f.ctrl.SetCreateName("x")
	require.Error(t, f.ctrl.SubmitCreate(context.Background()))

	v := f.ctrl.View()
	assert.Equal(t, Creating, v.Mode)
	require.NotNil(t, v.Creation)
	assert.False(t, v.Creation.Submitting)
	assert.Contains(t, v.Creation.Err, "disk full")
}

func TestCreateAndRenameAreExclusive(t *testing.T) {
	f := setup(t, "a")
	f.ctrl.StartCreate()
	f.ctrl.BeginRename("a")
	assert.Equal(t, Renaming, f.ctrl.Mode())
	assert.Nil(t, f.ctrl.View().Creation)

	f.ctrl.StartCreate()
	assert.Equal(t, Creating, f.ctrl.Mode())
	assert.Empty(t, f.ctrl.View().RenamingPath)

	f.ctrl.BlurCreate()
	assert.Equal(t, Browsing, f.ctrl.Mode())
}

func TestRestore(t *testing.T) {
	remote := testutil.NewFakeRemote("work/plan")
	remote.Put("work/plan", content.HTML("<p>plan</p>"))
	mem := slot.NewMemory()
	require.NoError(t, mem.Set(context.Background(), slot.SelectedFile, "work/plan"))

	store := notestore.New(remote)
	bridge := editor.NewBridge()
	buf := editor.NewBuffer()
	bridge.SetInstance(buf)
	ctrl := New(store, bridge, mem, tokens("tok"), nil)

	require.NoError(t, ctrl.Restore(context.Background()))
	assert.Equal(t, "work/plan", store.CurrentFile())
	assert.Equal(t, "<p>plan</p>", buf.Text())
	assert.True(t, ctrl.IsExpanded("work"))
}

func TestRestore_StalePathFallsBack(t *testing.T) {
	remote := testutil.NewFakeRemote("a")
	mem := slot.NewMemory()
	require.NoError(t, mem.Set(context.Background(), slot.SelectedFile, "gone"))
	store := notestore.New(remote)
	ctrl := New(store, editor.NewBridge(), mem, tokens("tok"), nil)

	require.NoError(t, ctrl.Restore(context.Background()))
	assert.Equal(t, "", store.CurrentFile())
}

func TestNoTokenDoesNothing(t *testing.T) {
	remote := testutil.NewFakeRemote("a")
	store := notestore.New(remote)
	ctrl := New(store, editor.NewBridge(), slot.NewMemory(), tokens(""), nil)
	ctx := context.Background()

	assert.NoError(t, ctrl.Refresh(ctx))
	assert.NoError(t, ctrl.Select(ctx, "a"))
	assert.NoError(t, ctrl.Delete(ctx, "a"))
	assert.Zero(t, remote.Calls("structure"))
	assert.Zero(t, remote.Calls("content"))
}

func TestRefreshUsage(t *testing.T) {
	f := setup(t)
	f.remote.SetUsed(2048)
	f.ctrl.RefreshUsage(context.Background())
	require.NotNil(t, f.ctrl.View().Usage)
	assert.EqualValues(t, 2048, *f.ctrl.View().Usage)

	f.remote.Fail("size", errors.New("boom"))
	f.ctrl.RefreshUsage(context.Background())
	assert.Nil(t, f.ctrl.View().Usage)
}

func TestViewRows(t *testing.T) {
	f := setup(t, "work/notes", "personal")
	rows := f.ctrl.View().Rows
	require.Len(t, rows, 2)

	f.ctrl.ToggleFolder("work")
	rows = f.ctrl.View().Rows
	require.Len(t, rows, 3)
}

// trace records leave hooks, remote calls and active changes in order.
func trace(f *fixture, ops ...string) *[]string {
	var log []string
	f.ctrl.OnLeave(func(p string) { log = append(log, "leave "+p) })
	f.ctrl.OnActiveChange(func(ev ActiveChange) { log = append(log, "active "+ev.Old+">"+ev.New) })
	for _, op := range ops {
		f.remote.OnCall(op, func() { log = append(log, op) })
	}
	return &log
}

func TestLeaveRunsBeforeTheRemoteCall(t *testing.T) {
	ctx := context.Background()

	t.Run("delete", func(t *testing.T) {
		f := setup(t, "a", "b")
		require.NoError(t, f.ctrl.Select(ctx, "a"))
		log := trace(f, "delete")
		require.NoError(t, f.ctrl.Delete(ctx, "a"))
		assert.Equal(t, []string{"leave a", "delete", "active a>"}, *log)
	})

	t.Run("delete of another note", func(t *testing.T) {
		f := setup(t, "a", "b")
		require.NoError(t, f.ctrl.Select(ctx, "a"))
		log := trace(f, "delete")
		require.NoError(t, f.ctrl.Delete(ctx, "b"))
		assert.Equal(t, []string{"delete"}, *log)
	})

	t.Run("select", func(t *testing.T) {
		f := setup(t, "a", "b")
		require.NoError(t, f.ctrl.Select(ctx, "a"))
		log := trace(f, "content")
		require.NoError(t, f.ctrl.Select(ctx, "b"))
		assert.Equal(t, []string{"leave a", "content", "active a>b"}, *log)
	})

	t.Run("create", func(t *testing.T) {
		f := setup(t, "a")
		require.NoError(t, f.ctrl.Select(ctx, "a"))
		log := trace(f, "create")
		f.ctrl.StartCreate()
		f.ctrl.SetCreateName("n")
		require.NoError(t, f.ctrl.SubmitCreate(ctx))
		assert.Equal(t, []string{"leave a", "create", "active a>n"}, *log)
	})

	t.Run("move", func(t *testing.T) {
		f := setup(t, "a")
		require.NoError(t, f.ctrl.Select(ctx, "a"))
		log := trace(f, "rename")
		require.NoError(t, f.ctrl.Move(ctx, "a", "x"))
		assert.Equal(t, []string{"leave a", "rename", "active a>x/a"}, *log)
	})
}

func TestFailedActionResumesOpenNote(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "a", "b")
	require.NoError(t, f.ctrl.Select(ctx, "a"))
	log := trace(f)

	f.remote.Fail("delete", &apperr.NetworkError{Op: "delete", Status: 500})
	require.Error(t, f.ctrl.Delete(ctx, "a"))
	assert.Equal(t, []string{"leave a", "active a>a"}, *log)
}

func TestResyncFailureDoesNotResume(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "a", "b")
	require.NoError(t, f.ctrl.Select(ctx, "a"))
	log := trace(f)

	f.remote.Fail("structure", &apperr.NetworkError{Op: "structure", Status: 502})
	err := f.ctrl.Delete(ctx, "a")
	require.ErrorIs(t, err, notestore.ErrResync)
	assert.Equal(t, []string{"leave a"}, *log)
}
