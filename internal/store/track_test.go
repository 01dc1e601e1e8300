package store

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tether/internal/observable"
	"github.com/roach88/tether/internal/testutil"
)

func TestLoader_MaterializesStoredMembers(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	cat := newCatalog("a", "b")
	require.NoError(t, s.ReplaceMembers(ctx, "children", "p", []string{"b", "a"}))

	seq := observable.NewSequence(observable.WithLoader(Loader(ctx, s, "children", "p", cat.lookup)))
	assert.Equal(t, observable.NotLoaded, seq.LoadState())

	require.NoError(t, seq.Load())
	assert.Equal(t, cat.items("b", "a"), seq.Items())
}

func TestLoader_UnknownMemberFailsLoad(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	require.NoError(t, s.ReplaceMembers(ctx, "links", "a", []string{"ghost"}))

	set := observable.NewSet(observable.WithLoader(Loader(ctx, s, "links", "a", newCatalog().lookup)))
	err := set.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown member "ghost"`)
	assert.Equal(t, observable.NotLoaded, set.LoadState())
}

func TestTrack_SequenceJournalReplays(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	cat := newCatalog("a", "b", "c", "d")
	seq := observable.NewSequence[*item]()
	Track(ctx, s, "children", "p", seq, itemKey)

	require.NoError(t, seq.AddRange(cat.items("a", "b", "c")))
	require.NoError(t, seq.Insert(1, cat["d"]))
	require.NoError(t, seq.Move(0, 3))
	require.NoError(t, seq.SetAt(0, cat["c"]))
	_, err := seq.Remove(cat["b"])
	require.NoError(t, err)
	require.NoError(t, seq.RemoveItems(cat.items("c", "c")))

	stored, err := s.Members(ctx, "children", "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, stored)
	assert.NoError(t, s.Verify(ctx, "children", "p"))

	journal, err := s.Journal(ctx, Filter{Relation: "children", Owner: "p"})
	require.NoError(t, err)
	actions := make([]string, len(journal))
	for i, e := range journal {
		actions[i] = e.Action
	}
	assert.Equal(t, []string{"add", "add", "move", "replace", "remove", "remove"}, actions)
}

func TestTrack_SetJournalReplays(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	cat := newCatalog("a", "b", "c")
	set := observable.NewSet[*item]()
	Track(ctx, s, "links", "x", set, itemKey)

	require.NoError(t, set.AddRange(cat.items("a", "b", "c")))
	_, err := set.Remove(cat["b"])
	require.NoError(t, err)
	require.NoError(t, set.SymmetricExceptWith(cat.items("a", "b")))

	stored, err := s.Members(ctx, "links", "x")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, stored)
	assert.NoError(t, s.Verify(ctx, "links", "x"))
}

func TestTrack_ResetRecordsContents(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	cat := newCatalog("a")
	seq := observable.NewSequence(observable.WithItems(cat["a"]))
	Track(ctx, s, "children", "p", seq, itemKey)

	require.NoError(t, seq.Clear())

	journal, err := s.Journal(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, journal, 1)
	assert.Equal(t, "reset", journal[0].Action)
	assert.Equal(t, []string{}, journal[0].NewItems)
}

func TestTrack_StampsPropagationAndLogs(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	gen := testutil.NewSequenceGenerator("t")
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	seq := observable.NewSequence[*item]()
	Track(ctx, s, "children", "p", seq, itemKey, WithPropagation(gen.Generate), WithLogger(logger))

	_, err := seq.Add(&item{key: "a"})
	require.NoError(t, err)

	journal, err := s.Journal(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, journal, 1)
	assert.Equal(t, "t-1", journal[0].Propagation)
	assert.Contains(t, buf.String(), "journaled change")
	assert.Contains(t, buf.String(), "seq=1")
}

func TestTrack_StoreFailureSurfaces(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	seq := observable.NewSequence[*item]()
	id := Track(ctx, s, "children", "p", seq, itemKey)
	require.NoError(t, s.Close())

	_, err := seq.Add(&item{key: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "track children/p")
	assert.Equal(t, 1, seq.Len(), "mutation is not rolled back")

	assert.True(t, seq.Unsubscribe(id))
	_, err = seq.Add(&item{key: "b"})
	assert.NoError(t, err)
}

func TestTrack_CanceledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(t.Context())
	seq := observable.NewSequence[*item]()
	Track(ctx, s, "children", "p", seq, itemKey)
	cancel()

	_, err := seq.Add(&item{key: "a"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
