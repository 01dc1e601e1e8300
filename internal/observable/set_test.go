package observable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_AddRejectsDuplicates(t *testing.T) {
	s := NewSet[string]()
	rec := record[string](s)

	ok, err := s.Add("a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Add("a")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []Change[string]{AddChange([]string{"a"}, -1)}, rec.changes)
	assert.Equal(t, 1, s.Count("a"))
	assert.Equal(t, 1, s.Len())
}

func TestSet_Remove(t *testing.T) {
	s := NewSet(WithItems("a", "b", "c"))
	rec := record[string](s)

	ok, err := s.Remove("b")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Remove("b")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []Change[string]{RemoveChange([]string{"b"}, -1)}, rec.changes)
	assert.Equal(t, []string{"a", "c"}, s.Items())
}

func TestSet_SeedDropsDuplicates(t *testing.T) {
	s := NewSet(WithItems(1, 2, 1, 3, 2))
	assert.Equal(t, []int{1, 2, 3}, s.Items())
	assert.Equal(t, 3, s.Len())
}

func TestSet_AddRangeListsOnlyNewMembers(t *testing.T) {
	s := NewSet(WithItems("a"))
	rec := record[string](s)

	require.NoError(t, s.AddRange([]string{"a", "b", "c", "b"}))
	assert.Equal(t, []Change[string]{AddChange([]string{"b", "c"}, -1)}, rec.changes)

	require.NoError(t, s.AddRange([]string{"a"}))
	assert.Len(t, rec.changes, 1, "nothing added, nothing raised")

	assert.ErrorIs(t, s.AddRange(nil), ErrInvalidArgument)
}

func TestSet_RemoveRange(t *testing.T) {
	s := NewSet(WithItems("a", "b", "c"))
	rec := record[string](s)

	require.NoError(t, s.RemoveRange([]string{"c", "x", "a"}))
	assert.Equal(t, []Change[string]{RemoveChange([]string{"c", "a"}, -1)}, rec.changes)
	assert.Equal(t, []string{"b"}, s.Items())

	assert.ErrorIs(t, s.RemoveRange(nil), ErrInvalidArgument)
}

func TestSet_Algebra(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*Set[string]) error
		want  []string
	}{
		{
			name:  "union keeps order then appends newcomers",
			apply: func(s *Set[string]) error { return s.UnionWith([]string{"e", "b", "d"}) },
			want:  []string{"a", "b", "c", "e", "d"},
		},
		{
			name:  "intersect",
			apply: func(s *Set[string]) error { return s.IntersectWith([]string{"c", "a", "z"}) },
			want:  []string{"a", "c"},
		},
		{
			name:  "except",
			apply: func(s *Set[string]) error { return s.ExceptWith([]string{"b", "z"}) },
			want:  []string{"a", "c"},
		},
		{
			name:  "symmetric except",
			apply: func(s *Set[string]) error { return s.SymmetricExceptWith([]string{"b", "d", "d"}) },
			want:  []string{"a", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSet(WithItems("a", "b", "c"))
			rec := record[string](s)

			require.NoError(t, tt.apply(s))
			assert.Equal(t, tt.want, s.Items())
			require.Len(t, rec.changes, 1)
			assert.Equal(t, ResetChange[string](), rec.changes[0])
		})
	}
}

func TestSet_AlgebraRejectsNil(t *testing.T) {
	s := NewSet[int]()
	assert.ErrorIs(t, s.UnionWith(nil), ErrInvalidArgument)
	assert.ErrorIs(t, s.IntersectWith(nil), ErrInvalidArgument)
	assert.ErrorIs(t, s.ExceptWith(nil), ErrInvalidArgument)
	assert.ErrorIs(t, s.SymmetricExceptWith(nil), ErrInvalidArgument)
}

func TestSet_AlgebraRaisesResetEvenWithoutChange(t *testing.T) {
	s := NewSet(WithItems(1))
	rec := record[int](s)

	require.NoError(t, s.UnionWith([]int{1}))
	require.Len(t, rec.changes, 1)
	assert.Equal(t, ActionReset, rec.changes[0].Action)
}

func TestSet_Clear(t *testing.T) {
	s := NewSet(WithItems(1, 2))
	rec := record[int](s)

	require.NoError(t, s.Clear())
	assert.Zero(t, s.Len())
	assert.False(t, s.Contains(1))
	assert.Equal(t, []Change[int]{ResetChange[int]()}, rec.changes)
}

func TestSet_ConsistencyFaultPanics(t *testing.T) {
	s := NewSet(WithItems("a"))
	// Corrupt the shadow list directly.
	s.shadow = append(s.shadow, "ghost")

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, ErrConsistency)
	}()
	_, _ = s.Add("b")
}

func TestSet_ReentrancyWithTwoSubscribers(t *testing.T) {
	s := NewSet[int]()
	var reentryErr error
	s.Subscribe(func(Change[int]) error {
		_, reentryErr = s.Remove(1)
		return nil
	})
	s.Subscribe(func(Change[int]) error { return nil })

	_, err := s.Add(1)
	require.NoError(t, err)
	assert.ErrorIs(t, reentryErr, ErrReentrancy)
	assert.True(t, s.Contains(1))
}

func TestSet_LazyLoad(t *testing.T) {
	s := NewSet(WithLoader(func() ([]string, error) {
		return []string{"a", "a", "b"}, nil
	}))
	rec := record[string](s)

	assert.Equal(t, NotLoaded, s.LoadState())
	assert.False(t, s.Contains("a"))

	ok, err := s.Add("a")
	require.NoError(t, err)
	assert.False(t, ok, "loaded before the duplicate check")
	assert.Equal(t, Loaded, s.LoadState())
	assert.Equal(t, []string{"a", "b"}, s.Items())
	assert.Empty(t, rec.changes)
}

func TestSet_LoadFailure(t *testing.T) {
	s := NewSet(WithLoader(func() ([]int, error) {
		return nil, errors.New("offline")
	}))

	err := s.Load()
	require.Error(t, err)
	assert.Equal(t, NotLoaded, s.LoadState())

	_, err = s.Add(1)
	assert.Error(t, err)
	assert.Zero(t, s.Len())
}

func TestSet_AllIteratesInOrder(t *testing.T) {
	s := NewSet(WithItems(3, 1, 2))
	var got []int
	for v := range s.All() {
		got = append(got, v)
	}
	assert.Equal(t, []int{3, 1, 2}, got)
}
