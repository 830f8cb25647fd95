package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pbaille/notable/internal/store"
)

// testStore opens a store on a throwaway database with 3-dimensional
// embeddings, which keeps test vectors readable.
func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "notable.db"), 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
