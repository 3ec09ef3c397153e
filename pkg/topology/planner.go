// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"fmt"

	"github.com/LeeDigitalWorks/zaptopo/pkg/ports"
	"github.com/LeeDigitalWorks/zaptopo/pkg/types"
)

const (
	// Every synthetic node listens on the loopback interface
	nodeAddress = "::1"
	nodeHost    = "localhost"
)

// PlanNodes assigns each node id a datacenter, rack and body and looks up its ports.
//
// Datacenters are taken round-robin from dcs in id order. Rack and body are
// global counters starting at 1 that advance once per node, so they are
// never reset when the datacenter changes.
func PlanNodes(nodeIDs []int, dcs []int, alloc ports.Allocator) ([]types.Node, error) {
	if len(dcs) == 0 {
		return nil, fmt.Errorf("%w: empty datacenter list", ErrInvalidConfig)
	}

	nodes := make([]types.Node, 0, len(nodeIDs))
	rack, body := 1, 1
	for i, id := range nodeIDs {
		p, err := alloc.PortsFor(id)
		if err != nil {
			return nil, fmt.Errorf("%w: node %d: %w", ErrPortLookup, id, err)
		}

		nodes = append(nodes, types.Node{
			NodeID:     id,
			DataCenter: dcs[i%len(dcs)],
			Rack:       rack,
			Body:       body,
			Address:    nodeAddress,
			Host:       nodeHost,
			Ports:      p,
		})
		rack++
		body++
	}
	return nodes, nil
}

// NodeIDs returns the contiguous ids 1..n
func NodeIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}
