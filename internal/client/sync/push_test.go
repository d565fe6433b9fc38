package sync

import (
	"context"
	stdsync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultdrive/vaultdrive/internal/client/vault"
	"github.com/vaultdrive/vaultdrive/internal/driveapi"
)

type recordingProgress struct {
	mu       stdsync.Mutex
	messages []string
}

func (p *recordingProgress) SetMessage(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
}

type recordingNotifier struct {
	mu     stdsync.Mutex
	titles []string
}

func (n *recordingNotifier) Notify(title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
}

type staticConfirmer struct{ answer bool }

func (c staticConfirmer) Confirm(context.Context, string) (bool, error) { return c.answer, nil }

func TestPushCreatesTreeRemotely(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)

	f.writeLeaf(t, "folder/note.md", "hello")
	f.writeLeaf(t, "other.md", "world")
	f.record(t, "folder", OpCreate)
	f.record(t, "folder/note.md", OpCreate)
	f.record(t, "other.md", OpCreate)

	o := f.orchestrator(t, PushOptions{})
	require.NoError(t, o.Push(ctx))

	folder := f.drive.byPath("folder")
	require.NotNil(t, folder)
	assert.Equal(t, driveapi.KindFolder, folder.obj.Kind)

	note := f.drive.byPath("folder/note.md")
	require.NotNil(t, note)
	assert.Equal(t, folder.obj.ID, note.obj.ParentID)
	assert.Equal(t, []byte("hello"), note.content)

	// the snapshot object rides along, tagged as config
	snap := f.drive.byPath(vault.RemoteStatePath)
	require.NotNil(t, snap)
	assert.True(t, snap.obj.IsConfig())

	entries, err := f.index.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 4) // folder, note, other, snapshot

	n, err := f.journal.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPushEmptyJournalIsNoOp(t *testing.T) {
	f := newEngineFixture(t)
	o := f.orchestrator(t, PushOptions{})

	require.NoError(t, o.Push(context.Background()))

	assert.Zero(t, f.drive.callCount("upload"))
	assert.Zero(t, f.drive.callCount("createFolder"))
	assert.Zero(t, f.drive.callCount("update"))
	assert.Zero(t, f.drive.callCount("batchDelete"))
}

func TestPushModifyUpdatesExistingObject(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)

	id := f.drive.seed("notes/a.md", driveapi.KindFile, []byte("old"))
	require.NoError(t, f.index.Record(ctx, id, "notes/a.md"))
	f.writeLeaf(t, "notes/a.md", "new content")
	f.record(t, "notes/a.md", OpModify)

	o := f.orchestrator(t, PushOptions{})
	require.NoError(t, o.Push(ctx))

	obj := f.drive.byPath("notes/a.md")
	require.NotNil(t, obj)
	assert.Equal(t, id, obj.obj.ID)
	assert.Equal(t, []byte("new content"), obj.content)

	n, err := f.journal.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPushModifyFailureKeepsJournal(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)

	id := f.drive.seed("notes/a.md", driveapi.KindFile, []byte("old"))
	require.NoError(t, f.index.Record(ctx, id, "notes/a.md"))
	f.writeLeaf(t, "notes/a.md", "new content")
	f.record(t, "notes/a.md", OpModify)
	f.drive.failUpdate[id] = true

	notifier := &recordingNotifier{}
	o := f.orchestrator(t, PushOptions{})
	o.SetNotifier(notifier)

	require.Error(t, o.Push(ctx))

	op, ok, err := f.journal.Get(ctx, "notes/a.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, OpModify, op.Kind)
	assert.NotEmpty(t, notifier.titles)
	assert.False(t, f.guard.Active())
}

func TestPushDeletePhase(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)

	id := f.drive.seed("gone.md", driveapi.KindFile, []byte("x"))
	require.NoError(t, f.index.Record(ctx, id, "gone.md"))
	f.record(t, "gone.md", OpDelete)
	f.record(t, "never-pushed.md", OpDelete) // not indexed, skipped as no-op

	o := f.orchestrator(t, PushOptions{})
	require.NoError(t, o.Push(ctx))

	assert.Nil(t, f.drive.byPath("gone.md"))
	_, ok, err := f.index.Resolve(ctx, "gone.md")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := f.journal.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPushDeletesChildrenBeforeParents(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)

	folderID := f.drive.seed("old", driveapi.KindFolder, nil)
	subID := f.drive.seed("old/sub", driveapi.KindFolder, nil)
	leafID := f.drive.seed("old/sub/note.md", driveapi.KindFile, []byte("x"))
	require.NoError(t, f.index.Record(ctx, folderID, "old"))
	require.NoError(t, f.index.Record(ctx, subID, "old/sub"))
	require.NoError(t, f.index.Record(ctx, leafID, "old/sub/note.md"))
	f.record(t, "old", OpDelete)
	f.record(t, "old/sub", OpDelete)
	f.record(t, "old/sub/note.md", OpDelete)

	o := f.orchestrator(t, PushOptions{})
	require.NoError(t, o.Push(ctx))

	assert.Equal(t, []string{leafID, subID, folderID}, f.drive.deleted)

	n, err := f.journal.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPushRetryDoesNotDuplicateUploads(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)

	f.writeLeaf(t, "a.md", "aa")
	f.writeLeaf(t, "b.md", "bb")
	f.record(t, "a.md", OpCreate)
	f.record(t, "b.md", OpCreate)
	f.drive.failUpload["b.md"] = true

	o := f.orchestrator(t, PushOptions{})
	require.Error(t, o.Push(ctx))

	// a.md made it up and is indexed, journal is fully intact
	n, err := f.journal.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, ok, err := f.index.Resolve(ctx, "a.md")
	require.NoError(t, err)
	assert.True(t, ok)

	f.drive.failUpload["b.md"] = false
	require.NoError(t, o.Push(ctx))

	// the retried a.md became an update, not a second object
	resp, err := f.drive.Search(ctx, &driveapi.SearchParams{
		Properties: map[string]string{driveapi.PropPath: "a.md"},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Objects, 1)
	assert.NotNil(t, f.drive.byPath("b.md"))
}

func TestPushConfirmDeclined(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)

	id := f.drive.seed("gone.md", driveapi.KindFile, []byte("x"))
	require.NoError(t, f.index.Record(ctx, id, "gone.md"))
	f.record(t, "gone.md", OpDelete)

	o := f.orchestrator(t, PushOptions{ConfirmDestructive: true})
	o.SetConfirmer(staticConfirmer{answer: false})

	err := o.Push(ctx)
	assert.ErrorIs(t, err, ErrPushDeclined)
	assert.Zero(t, f.drive.callCount("batchDelete"))
	assert.NotNil(t, f.drive.byPath("gone.md"))

	n, cerr := f.journal.Count(ctx)
	require.NoError(t, cerr)
	assert.Equal(t, 1, n)
	assert.False(t, f.guard.Active())
}

func TestPushSweepsOrphanedConfigObjects(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)

	orphan := f.drive.seed("plugins/old.json", driveapi.KindFile, []byte("{}"))
	f.drive.objects[orphan].obj.Properties[driveapi.PropConfig] = driveapi.PropConfigTrue
	snap := f.drive.seed(vault.RemoteStatePath, driveapi.KindFile, []byte("{}"))
	f.drive.objects[snap].obj.Properties[driveapi.PropConfig] = driveapi.PropConfigTrue

	f.writeLeaf(t, "a.md", "aa")
	f.record(t, "a.md", OpCreate)

	o := f.orchestrator(t, PushOptions{})
	require.NoError(t, o.Push(ctx))

	assert.Nil(t, f.drive.byPath("plugins/old.json"))
	assert.NotNil(t, f.drive.byPath(vault.RemoteStatePath))
}

func TestPushRejectsConcurrentSession(t *testing.T) {
	f := newEngineFixture(t)
	o := f.orchestrator(t, PushOptions{})

	token, err := f.guard.Begin()
	require.NoError(t, err)
	defer f.guard.End(token)

	err = o.Push(context.Background())
	assert.ErrorIs(t, err, ErrPushInProgress)
}

func TestPushProgressMilestones(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)

	f.writeLeaf(t, "a.md", "aa")
	f.record(t, "a.md", OpCreate)

	progress := &recordingProgress{}
	o := f.orchestrator(t, PushOptions{})
	o.SetProgress(progress)

	require.NoError(t, o.Push(ctx))

	joined := ""
	for _, m := range progress.messages {
		joined += m + "\n"
	}
	assert.Contains(t, joined, "33%")
	assert.Contains(t, joined, "66%")
	assert.Contains(t, joined, "99%")
}
