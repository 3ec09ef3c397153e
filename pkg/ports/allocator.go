// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package ports hands out network ports to synthetic cluster nodes.
// Every allocator returns the same ports for a node id for its lifetime.
package ports

import (
	"fmt"
	"net"
	"sync"

	"github.com/LeeDigitalWorks/zaptopo/pkg/types"
)

// Allocator supplies the ports of one node
type Allocator interface {
	PortsFor(nodeID int) (types.NodePorts, error)
}

const (
	// DefaultBasePort is the first port handed out by SequentialAllocator
	DefaultBasePort = 19000

	// portsPerNode is the stride between consecutive nodes
	portsPerNode = 3

	maxPort = 65535
)

// SequentialAllocator derives ports arithmetically from the node id.
// Node 1 gets base, base+1, base+2; node 2 starts at base+3; and so on.
type SequentialAllocator struct {
	base int
}

// NewSequentialAllocator creates an allocator starting at base.
// A non-positive base uses DefaultBasePort.
func NewSequentialAllocator(base int) *SequentialAllocator {
	if base <= 0 {
		base = DefaultBasePort
	}
	return &SequentialAllocator{base: base}
}

func (a *SequentialAllocator) PortsFor(nodeID int) (types.NodePorts, error) {
	if nodeID < 1 {
		return types.NodePorts{}, fmt.Errorf("invalid node id %d", nodeID)
	}
	first := a.base + (nodeID-1)*portsPerNode
	if first+portsPerNode-1 > maxPort {
		return types.NodePorts{}, fmt.Errorf("node %d: port range exhausted (base %d)", nodeID, a.base)
	}
	return types.NodePorts{IC: first, GRPC: first + 1, Mon: first + 2}, nil
}

// FreePortAllocator asks the kernel for unused TCP ports and remembers them.
// It is safe for concurrent use.
type FreePortAllocator struct {
	mu     sync.Mutex
	host   string
	byNode map[int]types.NodePorts
	used   map[int]bool
}

// NewFreePortAllocator creates an allocator probing ports on host ("" = all interfaces)
func NewFreePortAllocator(host string) *FreePortAllocator {
	return &FreePortAllocator{
		host:   host,
		byNode: make(map[int]types.NodePorts),
		used:   make(map[int]bool),
	}
}

func (a *FreePortAllocator) PortsFor(nodeID int) (types.NodePorts, error) {
	if nodeID < 1 {
		return types.NodePorts{}, fmt.Errorf("invalid node id %d", nodeID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.byNode[nodeID]; ok {
		return p, nil
	}

	var got [portsPerNode]int
	for i := range got {
		port, err := a.freePortLocked()
		if err != nil {
			return types.NodePorts{}, fmt.Errorf("node %d: %w", nodeID, err)
		}
		got[i] = port
	}

	p := types.NodePorts{IC: got[0], GRPC: got[1], Mon: got[2]}
	for _, port := range got {
		a.used[port] = true
	}
	a.byNode[nodeID] = p
	return p, nil
}

// freePortLocked returns a port not handed out before. Caller holds a.mu.
func (a *FreePortAllocator) freePortLocked() (int, error) {
	const attempts = 32
	for range attempts {
		l, err := net.Listen("tcp", net.JoinHostPort(a.host, "0"))
		if err != nil {
			return 0, fmt.Errorf("listen for free port: %w", err)
		}
		port := l.Addr().(*net.TCPAddr).Port
		l.Close()
		if !a.used[port] {
			a.used[port] = true
			return port, nil
		}
	}
	return 0, fmt.Errorf("no unused port after %d attempts", attempts)
}
