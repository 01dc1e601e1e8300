package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendChange_AssignsIncreasingSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	first, err := s.AppendChange(ctx, Entry{Relation: "children", Owner: "p", Action: "add", NewItems: []string{"a"}, NewIndex: 0, OldIndex: -1})
	require.NoError(t, err)
	second, err := s.AppendChange(ctx, Entry{Relation: "children", Owner: "p", Action: "reset", NewIndex: -1, OldIndex: -1, Seq: 99})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second, "Entry.Seq is ignored")

	last, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, last)
}

func TestAppendChange_RejectsUnknownAction(t *testing.T) {
	s := createTestStore(t)

	_, err := s.AppendChange(t.Context(), Entry{Relation: "r", Owner: "o", Action: "shuffle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append change")
}

func TestReplaceMembers_Overwrites(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.ReplaceMembers(ctx, "links", "a", []string{"x", "y", "z"}))
	require.NoError(t, s.ReplaceMembers(ctx, "links", "a", []string{"z", "x"}))
	require.NoError(t, s.ReplaceMembers(ctx, "links", "b", []string{"q"}))

	got, err := s.Members(ctx, "links", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "x"}, got)

	require.NoError(t, s.ReplaceMembers(ctx, "links", "a", nil))
	got, err = s.Members(ctx, "links", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got)

	got, err = s.Members(ctx, "links", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"q"}, got, "other owners untouched")
}

func TestReplaceMembers_AllowsDuplicates(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.ReplaceMembers(ctx, "children", "p", []string{"a", "a"}))
	got, err := s.Members(ctx, "children", "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a"}, got)
}
