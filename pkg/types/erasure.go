// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"strings"
)

// ErasureScheme identifies a blob storage fault-tolerance policy.
// The numeric value is the erasure species code written into group configs.
type ErasureScheme int

const (
	ErasureNone       ErasureScheme = 0
	ErasureMirror3    ErasureScheme = 1
	ErasureBlock3_1   ErasureScheme = 2
	ErasureStripe3_1  ErasureScheme = 3
	ErasureBlock4_2   ErasureScheme = 4
	ErasureBlock3_2   ErasureScheme = 5
	ErasureStripe4_2  ErasureScheme = 6
	ErasureStripe3_2  ErasureScheme = 7
	ErasureMirror3_2  ErasureScheme = 8
	ErasureMirror3DC  ErasureScheme = 9
	ErasureBlock4_3   ErasureScheme = 10
	ErasureStripe4_3  ErasureScheme = 11
	ErasureBlock3_3   ErasureScheme = 12
	ErasureStripe3_3  ErasureScheme = 13
	ErasureBlock2_3   ErasureScheme = 14
	ErasureStripe2_3  ErasureScheme = 15
	ErasureBlock2_2   ErasureScheme = 16
	ErasureStripe2_2  ErasureScheme = 17
	ErasureMirror3of4 ErasureScheme = 18
)

type erasureInfo struct {
	name           string // dashed form used in configs, e.g. "mirror-3-dc"
	minFailDomains int
}

var erasureTable = map[ErasureScheme]erasureInfo{
	ErasureNone:       {"none", 1},
	ErasureMirror3:    {"mirror-3", 4},
	ErasureBlock3_1:   {"block-3-1", 5},
	ErasureStripe3_1:  {"stripe-3-1", 5},
	ErasureBlock4_2:   {"block-4-2", 8},
	ErasureBlock3_2:   {"block-3-2", 7},
	ErasureStripe4_2:  {"stripe-4-2", 8},
	ErasureStripe3_2:  {"stripe-3-2", 7},
	ErasureMirror3_2:  {"mirror-3-2", 6},
	ErasureMirror3DC:  {"mirror-3-dc", 3},
	ErasureBlock4_3:   {"block-4-3", 10},
	ErasureStripe4_3:  {"stripe-4-3", 10},
	ErasureBlock3_3:   {"block-3-3", 9},
	ErasureStripe3_3:  {"stripe-3-3", 9},
	ErasureBlock2_3:   {"block-2-3", 8},
	ErasureStripe2_3:  {"stripe-2-3", 8},
	ErasureBlock2_2:   {"block-2-2", 6},
	ErasureStripe2_2:  {"stripe-2-2", 6},
	ErasureMirror3of4: {"mirror-3of4", 8},
}

// mirror3DCDatacenters are the datacenter ids of a three-datacenter layout.
// Single-ring schemes place every node in datacenter 1.
var (
	mirror3DCDatacenters = []int{1, 2, 3}
	singleDatacenter     = []int{1}
)

// ParseErasureScheme accepts "mirror-3-dc", "MIRROR_3_DC" or "mirror_3_dc".
// An empty string selects ErasureNone.
func ParseErasureScheme(s string) (ErasureScheme, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErasureNone, nil
	}

	normalized := strings.ReplaceAll(strings.ToLower(s), "_", "-")
	for scheme, info := range erasureTable {
		if info.name == normalized {
			return scheme, nil
		}
	}
	return ErasureNone, fmt.Errorf("unknown erasure scheme %q", s)
}

// Valid reports whether the scheme is a known species.
func (e ErasureScheme) Valid() bool {
	_, ok := erasureTable[e]
	return ok
}

// String returns the dashed name, e.g. "block-4-2"
func (e ErasureScheme) String() string {
	if info, ok := erasureTable[e]; ok {
		return info.name
	}
	return fmt.Sprintf("erasure(%d)", int(e))
}

// SpeciesCode returns the numeric species written into group configs
func (e ErasureScheme) SpeciesCode() int {
	return int(e)
}

// MinFailDomains returns how many fail domains each ring needs
func (e ErasureScheme) MinFailDomains() int {
	return erasureTable[e].minFailDomains
}

// RingCount returns 3 for MIRROR_3_DC (one ring per datacenter), 1 otherwise
func (e ErasureScheme) RingCount() int {
	if e == ErasureMirror3DC {
		return 3
	}
	return 1
}

// Datacenters returns the datacenter ids nodes are cycled through.
func (e ErasureScheme) Datacenters() []int {
	dcs := singleDatacenter
	if e == ErasureMirror3DC {
		dcs = mirror3DCDatacenters
	}
	out := make([]int, len(dcs))
	copy(out, dcs)
	return out
}

// RequiredNodes is the minimum node count able to host the static group
func (e ErasureScheme) RequiredNodes() int {
	return e.RingCount() * e.MinFailDomains()
}

// DefaultNToSelect returns the state storage quorum used when the caller
// does not pick one: 9 for MIRROR_3_DC, min(5, nodes) otherwise.
func (e ErasureScheme) DefaultNToSelect(nodes int) int {
	if e == ErasureMirror3DC {
		return 9
	}
	return min(5, nodes)
}
