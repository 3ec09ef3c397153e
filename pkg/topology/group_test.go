package topology

import (
	"testing"

	"github.com/LeeDigitalWorks/zaptopo/pkg/ports"
	"github.com/LeeDigitalWorks/zaptopo/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// planAndAllocate builds nodes and a sector-map ledger with one dynamic disk per node
func planAndAllocate(t *testing.T, scheme types.ErasureScheme, n int) ([]types.Node, []types.PDisk) {
	t.Helper()

	nodes, err := PlanNodes(NodeIDs(n), scheme.Datacenters(), ports.NewSequentialAllocator(0))
	require.NoError(t, err)

	alloc := &DiskAllocator{
		StaticSize:  types.DefaultPDiskSize,
		DynamicSize: types.DefaultPDiskSize,
		Overrides:   []types.DynamicPDisk{{UserKind: 1}},
		Store:       SectorMapStore{},
	}
	ledger, err := alloc.Allocate(nodes)
	require.NoError(t, err)
	return nodes, ledger
}

func TestBuildStaticGroup_SingleRing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scheme types.ErasureScheme
		nodes  int
	}{
		{name: "none exact", scheme: types.ErasureNone, nodes: 1},
		{name: "none extra nodes", scheme: types.ErasureNone, nodes: 4},
		{name: "block-4-2 exact", scheme: types.ErasureBlock4_2, nodes: 8},
		{name: "block-4-2 extra nodes", scheme: types.ErasureBlock4_2, nodes: 11},
		{name: "mirror-3 exact", scheme: types.ErasureMirror3, nodes: 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			nodes, ledger := planAndAllocate(t, tc.scheme, tc.nodes)
			group, err := BuildStaticGroup(tc.scheme, nodes, ledger)
			require.NoError(t, err)

			k := tc.scheme.MinFailDomains()
			assert.Equal(t, 0, group.GroupID)
			assert.Equal(t, 0, group.GroupGeneration)
			assert.Equal(t, tc.scheme.SpeciesCode(), group.ErasureSpecies)
			require.Len(t, group.Rings, 1)
			require.Len(t, group.Rings[0].FailDomains, k)

			for d, fd := range group.Rings[0].FailDomains {
				require.Len(t, fd.VDiskLocations, 1)
				loc := fd.VDiskLocations[0]
				assert.Equal(t, d+1, loc.NodeID, "domain %d holds node %d", d, loc.NodeID)
				assert.Equal(t, 1, loc.PDiskID)
				assert.Equal(t, uint64(1), loc.PDiskGUID)
				assert.Equal(t, 0, loc.VDiskSlotID)
			}

			require.Len(t, group.PDisks, k)
			require.Len(t, group.VDisks, k)
			for i, v := range group.VDisks {
				assert.Equal(t, types.VDiskID{GroupID: 0, GroupGeneration: 1, Ring: 0, Domain: i, VDisk: 0}, v.ID)
				assert.Equal(t, i+1, v.Location.NodeID)
				assert.Equal(t, i+1, group.PDisks[i].NodeID)
				assert.True(t, group.PDisks[i].IsStatic())
			}
		})
	}
}

func TestBuildStaticGroup_Mirror3DC(t *testing.T) {
	t.Parallel()

	nodes, ledger := planAndAllocate(t, types.ErasureMirror3DC, 9)
	group, err := BuildStaticGroup(types.ErasureMirror3DC, nodes, ledger)
	require.NoError(t, err)

	assert.Equal(t, 9, group.ErasureSpecies)
	require.Len(t, group.Rings, 3)

	// node 1 -> ring 0, node 2 -> ring 1, node 3 -> ring 2, node 4 -> ring 0 domain 1, ...
	for r, ring := range group.Rings {
		require.Len(t, ring.FailDomains, 3, "ring %d", r)
		for d, fd := range ring.FailDomains {
			assert.Equal(t, d*3+r+1, fd.VDiskLocations[0].NodeID, "ring %d domain %d", r, d)
		}
	}

	// Flat lists follow node order; domain index is dense per ring
	nextDomain := make(map[int]int)
	for i, v := range group.VDisks {
		assert.Equal(t, i+1, v.Location.NodeID)
		assert.Equal(t, i%3, v.ID.Ring)
		assert.Equal(t, nextDomain[v.ID.Ring], v.ID.Domain)
		nextDomain[v.ID.Ring]++
	}
}

func TestBuildStaticGroup_OnlyStaticDisksOfEligibleNodes(t *testing.T) {
	t.Parallel()

	nodes, ledger := planAndAllocate(t, types.ErasureMirror3DC, 12)
	group, err := BuildStaticGroup(types.ErasureMirror3DC, nodes, ledger)
	require.NoError(t, err)

	counts := make(map[[2]int]int)
	for _, p := range group.PDisks {
		counts[[2]int{p.NodeID, p.PDiskID}]++
	}
	for _, p := range ledger {
		key := [2]int{p.NodeID, p.PDiskID}
		if p.PDiskID == 1 && p.NodeID <= 9 {
			assert.Equal(t, 1, counts[key], "node %d pdisk %d", p.NodeID, p.PDiskID)
		} else {
			assert.Zero(t, counts[key], "node %d pdisk %d", p.NodeID, p.PDiskID)
		}
	}
}

func TestBuildStaticGroup_InsufficientRing(t *testing.T) {
	t.Parallel()

	// Only nodes 1..8 exist: ring 2 gets nodes 3 and 6, one short of three
	nodes, ledger := planAndAllocate(t, types.ErasureMirror3DC, 8)
	group, err := BuildStaticGroup(types.ErasureMirror3DC, nodes, ledger)
	require.ErrorIs(t, err, ErrInsufficientNodes)
	assert.Nil(t, group)
}

func TestBuildStaticGroup_MissingStaticDisk(t *testing.T) {
	t.Parallel()

	nodes, ledger := planAndAllocate(t, types.ErasureNone, 1)
	dynamicOnly := ledger[1:]

	_, err := BuildStaticGroup(types.ErasureNone, nodes, dynamicOnly)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBuildStaticGroup_DatacenterWithoutRing(t *testing.T) {
	t.Parallel()

	nodes, ledger := planAndAllocate(t, types.ErasureNone, 1)
	nodes[0].DataCenter = 2

	_, err := BuildStaticGroup(types.ErasureNone, nodes, ledger)
	require.ErrorIs(t, err, ErrInvalidConfig)
}
