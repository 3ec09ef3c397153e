// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"fmt"

	"github.com/LeeDigitalWorks/zaptopo/pkg/logger"
	"github.com/LeeDigitalWorks/zaptopo/pkg/types"
)

// DiskAllocator decides the pdisks of every node.
//
// Each node gets PDisksPerNode disks. Disk 1 is the static disk; disks 2..n
// are dynamic and take their parameters from Overrides[i-2].
type DiskAllocator struct {
	StaticSize  types.ByteSize
	DynamicSize types.ByteSize
	Overrides   []types.DynamicPDisk

	// PDisksPerNode is derived from Overrides when zero
	PDisksPerNode int

	Store BackingStore
}

// DisksPerNode returns the number of pdisks each node will own
func (a *DiskAllocator) DisksPerNode() int {
	if a.PDisksPerNode > 0 {
		return a.PDisksPerNode
	}
	return 1 + len(a.Overrides)
}

// diskParams returns the size and user kind of local disk idx (1-based)
func (a *DiskAllocator) diskParams(idx int) (types.ByteSize, int, error) {
	if idx == types.StaticPDiskID {
		return a.StaticSize, 0, nil
	}

	o := idx - 2
	if o < 0 || o >= len(a.Overrides) {
		return 0, 0, fmt.Errorf("%w: pdisk %d needs override %d, have %d",
			ErrOverrideCountMismatch, idx, o, len(a.Overrides))
	}

	size := a.DynamicSize
	if a.Overrides[o].DiskSize > 0 {
		size = a.Overrides[o].DiskSize
	}
	return size, a.Overrides[o].UserKind, nil
}

// Validate checks the override list covers every dynamic disk
func (a *DiskAllocator) Validate() error {
	if a.Store == nil {
		return fmt.Errorf("%w: no backing store", ErrInvalidConfig)
	}
	want := a.DisksPerNode() - 1
	if want < 0 || want != len(a.Overrides) {
		return fmt.Errorf("%w: %d pdisks per node need %d dynamic overrides, got %d",
			ErrOverrideCountMismatch, a.DisksPerNode(), max(want, 0), len(a.Overrides))
	}
	return nil
}

// Allocate returns one pdisk per (node, local index), ordered by node then index.
// On error every backing path reserved so far is released.
func (a *DiskAllocator) Allocate(nodes []types.Node) ([]types.PDisk, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	perNode := a.DisksPerNode()
	ledger := make([]types.PDisk, 0, len(nodes)*perNode)

	for _, n := range nodes {
		for idx := 1; idx <= perNode; idx++ {
			size, userKind, err := a.diskParams(idx)
			if err != nil {
				a.Release(ledger)
				return nil, err
			}

			path, err := a.Store.Reserve(n.NodeID, idx, size)
			if err != nil {
				a.Release(ledger)
				return nil, err
			}

			ledger = append(ledger, types.PDisk{
				NodeID:    n.NodeID,
				PDiskID:   idx,
				Path:      path,
				SizeBytes: uint64(size),
				UserKind:  userKind,
				Backing:   a.Store.Kind(),
			})
		}
	}
	return ledger, nil
}

// Release frees the backing paths of a ledger returned by Allocate
func (a *DiskAllocator) Release(ledger []types.PDisk) {
	for _, p := range ledger {
		if err := a.Store.Release(p.Path); err != nil {
			logger.Warn().Err(err).Str("path", p.Path).Msg("failed to release pdisk backing path")
		}
	}
}
