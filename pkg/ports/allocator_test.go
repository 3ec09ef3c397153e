package ports

import (
	"sync"
	"testing"

	"github.com/LeeDigitalWorks/zaptopo/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialAllocator_PortsFor(t *testing.T) {
	t.Parallel()

	a := NewSequentialAllocator(20000)

	p1, err := a.PortsFor(1)
	require.NoError(t, err)
	assert.Equal(t, types.NodePorts{IC: 20000, GRPC: 20001, Mon: 20002}, p1)

	p2, err := a.PortsFor(2)
	require.NoError(t, err)
	assert.Equal(t, types.NodePorts{IC: 20003, GRPC: 20004, Mon: 20005}, p2)

	again, err := a.PortsFor(1)
	require.NoError(t, err)
	assert.Equal(t, p1, again)
}

func TestSequentialAllocator_DefaultBase(t *testing.T) {
	t.Parallel()

	p, err := NewSequentialAllocator(0).PortsFor(1)
	require.NoError(t, err)
	assert.Equal(t, DefaultBasePort, p.IC)
}

func TestSequentialAllocator_Errors(t *testing.T) {
	t.Parallel()

	a := NewSequentialAllocator(65530)

	_, err := a.PortsFor(0)
	require.Error(t, err)

	_, err = a.PortsFor(3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")
}

func TestFreePortAllocator_StableAndUnique(t *testing.T) {
	t.Parallel()

	a := NewFreePortAllocator("127.0.0.1")

	seen := make(map[int]bool)
	for id := 1; id <= 4; id++ {
		p, err := a.PortsFor(id)
		require.NoError(t, err)
		for _, port := range []int{p.IC, p.GRPC, p.Mon} {
			assert.False(t, seen[port], "port %d handed out twice", port)
			seen[port] = true
		}

		again, err := a.PortsFor(id)
		require.NoError(t, err)
		assert.Equal(t, p, again)
	}
}

func TestFreePortAllocator_Concurrent(t *testing.T) {
	t.Parallel()

	a := NewFreePortAllocator("127.0.0.1")

	var wg sync.WaitGroup
	results := make([]types.NodePorts, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := a.PortsFor(1)
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	wg.Wait()

	for _, p := range results {
		assert.Equal(t, results[0], p)
	}
}

func TestFreePortAllocator_InvalidNode(t *testing.T) {
	t.Parallel()

	_, err := NewFreePortAllocator("").PortsFor(-1)
	require.Error(t, err)
}
