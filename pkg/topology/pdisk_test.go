package topology

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LeeDigitalWorks/zaptopo/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore fails the nth Reserve call and remembers releases
type recordingStore struct {
	failAt   int
	calls    int
	released []string
}

func (s *recordingStore) Kind() types.BackingKind { return types.BackingFile }

func (s *recordingStore) Reserve(nodeID, pdiskID int, size types.ByteSize) (string, error) {
	s.calls++
	if s.calls == s.failAt {
		return "", errors.Join(ErrBackingStore, errors.New("disk full"))
	}
	return filepath.Join("/fake", strings.Repeat("x", s.calls)), nil
}

func (s *recordingStore) Release(path string) error {
	s.released = append(s.released, path)
	return nil
}

func testNodes(n int) []types.Node {
	nodes := make([]types.Node, n)
	for i := range nodes {
		nodes[i] = types.Node{NodeID: i + 1, DataCenter: 1}
	}
	return nodes
}

func TestDiskAllocator_SizesAndKinds(t *testing.T) {
	t.Parallel()

	alloc := &DiskAllocator{
		StaticSize:  80 * types.GiB,
		DynamicSize: 32 * types.GiB,
		Overrides: []types.DynamicPDisk{
			{},
			{DiskSize: 16 * types.GiB, UserKind: 2},
			{UserKind: 1},
		},
		Store: SectorMapStore{},
	}

	ledger, err := alloc.Allocate(testNodes(2))
	require.NoError(t, err)
	require.Len(t, ledger, 8)

	want := []struct {
		pdiskID  int
		size     uint64
		userKind int
		path     string
	}{
		{1, 80 * types.GiB, 0, "SectorMap:1:80"},
		{2, 32 * types.GiB, 0, "SectorMap:2:32"},
		{3, 16 * types.GiB, 2, "SectorMap:3:16"},
		{4, 32 * types.GiB, 1, "SectorMap:4:32"},
	}
	for i, p := range ledger {
		w := want[i%4]
		assert.Equal(t, i/4+1, p.NodeID)
		assert.Equal(t, w.pdiskID, p.PDiskID)
		assert.Equal(t, w.size, p.SizeBytes)
		assert.Equal(t, w.userKind, p.UserKind)
		assert.Equal(t, w.path, p.Path)
		assert.Equal(t, types.BackingSectorMap, p.Backing)
	}
}

func TestDiskAllocator_StaticOnly(t *testing.T) {
	t.Parallel()

	alloc := &DiskAllocator{StaticSize: types.DefaultPDiskSize, Store: SectorMapStore{}}
	assert.Equal(t, 1, alloc.DisksPerNode())

	ledger, err := alloc.Allocate(testNodes(3))
	require.NoError(t, err)
	require.Len(t, ledger, 3)
	for _, p := range ledger {
		assert.True(t, p.IsStatic())
		assert.Equal(t, "SectorMap:1:64", p.Path)
	}
}

func TestDiskAllocator_OverrideCountMismatch(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	alloc := &DiskAllocator{
		StaticSize:    types.GiB,
		Overrides:     []types.DynamicPDisk{{}},
		PDisksPerNode: 3,
		Store:         store,
	}

	ledger, err := alloc.Allocate(testNodes(1))
	require.ErrorIs(t, err, ErrOverrideCountMismatch)
	assert.Nil(t, ledger)
	assert.Zero(t, store.calls, "no backing store may be touched before validation")
}

func TestDiskAllocator_MissingStore(t *testing.T) {
	t.Parallel()

	_, err := (&DiskAllocator{}).Allocate(testNodes(1))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDiskAllocator_ReleasesOnFailure(t *testing.T) {
	t.Parallel()

	store := &recordingStore{failAt: 4}
	alloc := &DiskAllocator{
		StaticSize: types.GiB,
		Overrides:  []types.DynamicPDisk{{}},
		Store:      store,
	}

	ledger, err := alloc.Allocate(testNodes(3))
	require.ErrorIs(t, err, ErrBackingStore)
	assert.Nil(t, ledger)
	assert.Len(t, store.released, 3)
}

func TestFileStore_CreatesUniqueFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	alloc := &DiskAllocator{
		StaticSize: types.GiB,
		Overrides:  []types.DynamicPDisk{{}},
		Store:      store,
	}
	ledger, err := alloc.Allocate(testNodes(3))
	require.NoError(t, err)
	require.Len(t, ledger, 6)

	seen := make(map[string]bool)
	for _, p := range ledger {
		assert.False(t, seen[p.Path], "duplicate path %s", p.Path)
		seen[p.Path] = true

		assert.Equal(t, dir, filepath.Dir(p.Path))
		assert.True(t, strings.HasPrefix(filepath.Base(p.Path), "pdisk"))
		assert.True(t, strings.HasSuffix(p.Path, ".data"))
		_, err := os.Stat(p.Path)
		require.NoError(t, err)
	}

	alloc.Release(ledger)
	for _, p := range ledger {
		_, err := os.Stat(p.Path)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestFileStore_MissingDir(t *testing.T) {
	t.Parallel()

	_, err := NewFileStore(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, ErrBackingStore)
}

func TestFileStore_ReleaseMissing(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Release(filepath.Join(store.Dir(), "gone.data")))
}
