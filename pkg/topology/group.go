// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"fmt"

	"github.com/LeeDigitalWorks/zaptopo/pkg/types"
)

const (
	staticGroupID         = 0
	staticGroupGeneration = 0

	// Vdisk ids of the static group carry generation 1 while the group
	// itself is declared with generation 0. Storage nodes expect exactly this.
	staticVDiskGeneration = 1
)

// BuildStaticGroup places the static disk of the first
// MinFailDomains*RingCount nodes into the static group.
//
// Nodes are visited in the given (id) order. A node's ring is its
// datacenter minus one, and its domain index is the number of domains the
// ring already holds, so rings fill densely even when datacenters interleave.
// Other nodes keep their disks in the ledger but stay out of the group.
func BuildStaticGroup(scheme types.ErasureScheme, nodes []types.Node, ledger []types.PDisk) (*types.StaticGroup, error) {
	ringCount := scheme.RingCount()
	minDomains := scheme.MinFailDomains()
	eligible := minDomains * ringCount

	staticDisks := make(map[int]types.PDisk, len(nodes))
	for _, p := range ledger {
		if p.IsStatic() {
			staticDisks[p.NodeID] = p
		}
	}

	rings := make([]types.Ring, ringCount)
	for i := range rings {
		rings[i] = types.Ring{FailDomains: make([]types.FailDomain, 0, minDomains)}
	}
	pdisks := make([]types.PDisk, 0, eligible)
	vdisks := make([]types.VDisk, 0, eligible)

	for _, n := range nodes {
		if n.NodeID > eligible {
			continue
		}

		ring := n.DataCenter - 1
		if ring < 0 || ring >= ringCount {
			return nil, fmt.Errorf("%w: node %d datacenter %d has no ring (rings: %d)",
				ErrInvalidConfig, n.NodeID, n.DataCenter, ringCount)
		}

		pdisk, ok := staticDisks[n.NodeID]
		if !ok {
			return nil, fmt.Errorf("%w: node %d has no static pdisk", ErrInvalidConfig, n.NodeID)
		}

		loc := types.VDiskLocation{
			NodeID:      n.NodeID,
			PDiskID:     pdisk.PDiskID,
			PDiskGUID:   pdisk.GUID(),
			VDiskSlotID: 0,
		}
		domain := len(rings[ring].FailDomains)

		pdisks = append(pdisks, pdisk)
		vdisks = append(vdisks, types.VDisk{
			ID: types.VDiskID{
				GroupID:         staticGroupID,
				GroupGeneration: staticVDiskGeneration,
				Ring:            ring,
				Domain:          domain,
				VDisk:           0,
			},
			Location: loc,
		})
		rings[ring].FailDomains = append(rings[ring].FailDomains, types.FailDomain{
			VDiskLocations: []types.VDiskLocation{loc},
		})
	}

	for i, r := range rings {
		if len(r.FailDomains) < minDomains {
			return nil, fmt.Errorf("%w: ring %d has %d fail domains, %s needs %d",
				ErrInsufficientNodes, i, len(r.FailDomains), scheme, minDomains)
		}
	}

	return &types.StaticGroup{
		GroupID:         staticGroupID,
		GroupGeneration: staticGroupGeneration,
		ErasureSpecies:  scheme.SpeciesCode(),
		Rings:           rings,
		PDisks:          pdisks,
		VDisks:          vdisks,
	}, nil
}
