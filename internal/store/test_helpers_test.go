package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// item is a keyed value for loader and tracker tests.
type item struct{ key string }

func itemKey(i *item) string { return i.key }

// catalog resolves keys back to items.
type catalog map[string]*item

func newCatalog(keys ...string) catalog {
	c := catalog{}
	for _, k := range keys {
		c[k] = &item{key: k}
	}
	return c
}

func (c catalog) lookup(key string) (*item, bool) {
	i, ok := c[key]
	return i, ok
}

func (c catalog) items(keys ...string) []*item {
	out := make([]*item, len(keys))
	for i, k := range keys {
		out[i] = c[k]
	}
	return out
}
