package relation

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tether/internal/observable"
	"github.com/roach88/tether/internal/testutil"
)

func TestOneToMany_SettingOwnerAddsChild(t *testing.T) {
	f := newFamily()
	p, _ := f.parent("p")
	c := f.child("c")

	require.NoError(t, c.owner.Set(p))

	assert.Equal(t, []*child{c}, p.children.Items())
	assert.Equal(t, p, c.owner.Get())
}

func TestOneToMany_ExistingEntryIsNotDuplicated(t *testing.T) {
	f := newFamily()
	c := f.child("c")
	// The collection already (incorrectly) holds c, but c has no owner.
	p, _ := f.parent("p", observable.WithItems(c))

	require.NoError(t, c.owner.Set(p))

	assert.Equal(t, 1, p.children.Count(c))
	assert.Empty(t, f.obs.violations)
}

func TestOneToMany_ReassignMovesChild(t *testing.T) {
	f := newFamily()
	p1, _ := f.parent("p1")
	p2, _ := f.parent("p2")
	c := f.child("c")

	require.NoError(t, c.owner.Set(p1))
	require.NoError(t, c.owner.Set(p2))

	assert.False(t, p1.children.Contains(c))
	assert.True(t, p2.children.Contains(c))
}

func TestOneToMany_ClearingOwnerRemovesChild(t *testing.T) {
	f := newFamily()
	p, _ := f.parent("p")
	c := f.child("c")

	require.NoError(t, c.owner.Set(p))
	require.NoError(t, c.owner.Set(nil))

	assert.Zero(t, p.children.Len())
	assert.Nil(t, c.owner.Get())
}

func TestOneToMany_AddingToCollectionSetsOwner(t *testing.T) {
	f := newFamily()
	p, _ := f.parent("p")
	a, b := f.child("a"), f.child("b")

	require.NoError(t, p.children.AddRange([]*child{a, b}))
	assert.Equal(t, p, a.owner.Get())
	assert.Equal(t, p, b.owner.Get())
	assert.Equal(t, 2, p.children.Len(), "back reference does not re-add")

	_, err := p.children.Remove(a)
	require.NoError(t, err)
	assert.Nil(t, a.owner.Get())
	assert.Equal(t, p, b.owner.Get())
}

func TestOneToMany_AddingOwnedChildStealsIt(t *testing.T) {
	f := newFamily()
	p1, _ := f.parent("p1")
	p2, _ := f.parent("p2")
	c := f.child("c")
	require.NoError(t, c.owner.Set(p1))

	_, err := p2.children.Add(c)
	require.NoError(t, err)

	assert.Equal(t, p2, c.owner.Get())
	assert.False(t, p1.children.Contains(c))
	assert.Equal(t, 1, p2.children.Count(c))
}

func TestOneToMany_ReplaceAndMove(t *testing.T) {
	f := newFamily()
	p, _ := f.parent("p")
	a, b, z := f.child("a"), f.child("b"), f.child("z")
	require.NoError(t, p.children.AddRange([]*child{a, b}))

	require.NoError(t, p.children.Move(0, 1))
	assert.Equal(t, p, a.owner.Get())

	require.NoError(t, p.children.SetAt(0, z))
	assert.Nil(t, b.owner.Get())
	assert.Equal(t, p, z.owner.Get())
}

func TestOneToMany_ResetClearsOwners(t *testing.T) {
	f := newFamily()
	p, _ := f.parent("p")
	a, b := f.child("a"), f.child("b")
	require.NoError(t, p.children.AddRange([]*child{a, b}))

	require.NoError(t, p.children.Clear())

	assert.Nil(t, a.owner.Get())
	assert.Nil(t, b.owner.Get())
}

func TestOneToMany_BatchedChangesKeepPairsConsistent(t *testing.T) {
	f := newFamily()
	p, _ := f.parent("p")
	a, b := f.child("a"), f.child("b")
	require.NoError(t, p.children.AddRange([]*child{a}))

	err := p.children.Batch(func() error {
		if _, err := p.children.Add(b); err != nil {
			return err
		}
		return p.children.Clear()
	})
	require.NoError(t, err)

	// The late Add of b must not undo the Clear that followed it.
	assert.Zero(t, p.children.Len())
	assert.Nil(t, a.owner.Get())
	assert.Nil(t, b.owner.Get())
}

func TestOneToMany_BatchedAddThenRemoveLeavesChildOut(t *testing.T) {
	f := newFamily()
	p, _ := f.parent("p")
	c := f.child("c")

	err := p.children.Batch(func() error {
		if _, err := p.children.Add(c); err != nil {
			return err
		}
		_, err := p.children.Remove(c)
		return err
	})
	require.NoError(t, err)

	assert.False(t, p.children.Contains(c))
	assert.Nil(t, c.owner.Get())
}

func TestOneToMany_BatchedRemoveThenAddKeepsChild(t *testing.T) {
	f := newFamily()
	p, _ := f.parent("p")
	c := f.child("c")
	require.NoError(t, c.owner.Set(p))

	err := p.children.Batch(func() error {
		if _, err := p.children.Remove(c); err != nil {
			return err
		}
		_, err := p.children.Add(c)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, 1, p.children.Count(c))
	assert.Equal(t, p, c.owner.Get())
}

func TestOneToMany_UnloadedCollectionIsNotLoaded(t *testing.T) {
	f := newFamily()
	loads := 0
	p, _ := f.parent("p", observable.WithLoader(func() ([]*child, error) {
		loads++
		return nil, nil
	}))
	c := f.child("c")

	require.NoError(t, c.owner.Set(p))

	assert.Zero(t, loads)
	assert.Equal(t, observable.NotLoaded, p.children.LoadState())
	assert.Equal(t, p, c.owner.Get())
	assert.Contains(t, f.obs.skips, SkipNotLoaded)
}

func TestOneToMany_ResetAfterLazyLoadClearsLoadedOwners(t *testing.T) {
	f := newFamily()
	loaded := f.child("loaded")
	p, _ := f.parent("p", observable.WithLoader(func() ([]*child, error) {
		return []*child{loaded}, nil
	}))
	loaded.owner.Restore(p)

	require.NoError(t, p.children.Clear())

	assert.Nil(t, loaded.owner.Get())
}

func TestOneToMany_DuplicateInOldOwnerIsViolation(t *testing.T) {
	f := newFamily()
	c := f.child("c")
	p, _ := f.parent("p", observable.WithItems(c, c))
	c.owner.Restore(p)

	err := c.owner.Set(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, observable.ErrUniqueness)
	assert.Len(t, f.obs.violations, 1)
}

func TestOneToMany_DuplicateInNewOwnerIsViolation(t *testing.T) {
	f := newFamily()
	c := f.child("c")
	p, _ := f.parent("p", observable.WithItems(c, c))

	err := c.owner.Set(p)
	assert.ErrorIs(t, err, observable.ErrUniqueness)
}

func TestOneToMany_UnresolvableSideIsNoop(t *testing.T) {
	f := newFamily()
	type stranger struct{ name string }
	rel := NewOneToMany[*stranger, *child](f.engine, "children", "parent")

	require.NoError(t, rel.UpdateOneSide(f.child("c"), nil, &stranger{name: "s"}))
	assert.Equal(t, []SkipReason{SkipUnresolved}, f.obs.skips)
}

func TestOneToMany_UpdateManySideDirect(t *testing.T) {
	f := newFamily()
	p := &parent{name: "p", children: observable.NewSequence[*child]()}
	c, gone := f.child("c"), f.child("gone")

	// Not attached: drive the handler by hand.
	_, err := p.children.Add(c)
	require.NoError(t, err)
	require.NoError(t, f.rel.UpdateManySide(p, observable.AddChange([]*child{c, gone}, 0)))
	assert.Equal(t, p, c.owner.Get())
	assert.Nil(t, gone.owner.Get(), "children no longer in the collection are not adopted")

	_, err = p.children.Remove(c)
	require.NoError(t, err)
	require.NoError(t, f.rel.UpdateManySide(p, observable.RemoveChange([]*child{c}, 0)))
	assert.Nil(t, c.owner.Get())
}

func TestOneToMany_UpdateManySideRejectsReset(t *testing.T) {
	f := newFamily()
	p := &parent{name: "p", children: observable.NewSequence[*child]()}

	err := f.rel.UpdateManySide(p, observable.ResetChange[*child]())
	require.Error(t, err)
	assert.ErrorIs(t, err, observable.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "UpdateManySide")
	assert.Empty(t, f.obs.propagations)
}

func TestOneToMany_DescriptorStateAndClose(t *testing.T) {
	f := newFamily()
	p, d := f.parent("p")

	var during []State
	f.obs.onPropagate = func() { during = append(during, d.State()) }

	assert.Equal(t, OneToManyKind, d.Kind)
	assert.Equal(t, p, d.Owner)
	assert.Equal(t, "parent", d.OtherProperty)
	assert.Equal(t, Idle, d.State())

	c := f.child("c")
	_, err := p.children.Add(c)
	require.NoError(t, err)
	assert.Equal(t, []State{Propagating}, during)
	assert.Equal(t, Idle, d.State())

	d.Close()
	d.Close()
	assert.True(t, d.Closed())

	orphan := f.child("orphan")
	_, err = p.children.Add(orphan)
	require.NoError(t, err)
	assert.Nil(t, orphan.owner.Get(), "closed descriptor no longer syncs")
}

func TestOneToMany_TeardownInvalidatesResolver(t *testing.T) {
	f := newFamily()
	p, d := f.parent("p")
	c := f.child("c")
	require.NoError(t, c.owner.Set(p))
	require.True(t, f.engine.Resolver().Cached(p, "children"))

	f.rel.Teardown()

	assert.True(t, d.Closed())
	assert.False(t, f.engine.Resolver().Cached(p, "children"))
	assert.False(t, f.engine.Resolver().Cached(c, "parent"))
}

func TestEngine_PropagationTokenIsInherited(t *testing.T) {
	gen := testutil.NewSequenceGenerator("t")
	f := newFamily(WithTokenGenerator(gen))
	p, _ := f.parent("p")

	var tokens []string
	f.obs.onPropagate = func() { tokens = append(tokens, f.engine.Token()) }

	assert.Empty(t, f.engine.Token())
	c := f.child("c")
	require.NoError(t, c.owner.Set(p))
	assert.False(t, f.engine.Propagating())
	assert.Empty(t, f.engine.Token())

	_, err := p.children.Remove(c)
	require.NoError(t, err)

	// Set -> UpdateOneSide -> children.Add -> handler all share t-1.
	assert.Equal(t, []string{"t-1", "t-2"}, tokens)
}

func TestEngine_LogsCarryPropagationToken(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := newFamily(WithLogger(logger), WithTokenGenerator(testutil.NewSequenceGenerator("log")))

	p, _ := f.parent("p")
	lazy, _ := f.parent("lazy", observable.WithLoader(func() ([]*child, error) { return nil, nil }))
	require.NoError(t, f.child("a").owner.Set(p))
	require.NoError(t, f.child("b").owner.Set(lazy))

	out := buf.String()
	assert.Contains(t, out, "propagating change")
	assert.Contains(t, out, "propagation=log-1")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "skipping unmaterialized collection")
}
