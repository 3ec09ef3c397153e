// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package types

// StaticPDiskID is the local id of the disk every node contributes to the
// static group. Higher ids are dynamic disks.
const StaticPDiskID = 1

// NodePorts are the ports reserved for one node
type NodePorts struct {
	IC   int `json:"ic_port"`   // Interconnect port, advertised in the nameservice
	GRPC int `json:"grpc_port"` // Public API port
	Mon  int `json:"mon_port"`  // Monitoring HTTP port
}

// Node is a cluster member with its network location.
// Nodes are created once per topology and never mutated.
type Node struct {
	NodeID     int       `json:"node_id"`
	DataCenter int       `json:"data_center"`
	Rack       int       `json:"rack"`
	Body       int       `json:"body"`
	Address    string    `json:"address"`
	Host       string    `json:"host"`
	Ports      NodePorts `json:"ports"`
}

// Port returns the interconnect port other nodes dial
func (n Node) Port() int {
	return n.Ports.IC
}

// BackingKind says where a pdisk keeps its data
type BackingKind string

const (
	BackingFile      BackingKind = "file"       // Regular file on the local filesystem
	BackingSectorMap BackingKind = "sector_map" // In-memory sector map
)

// PDisk is one physical disk owned by a node
type PDisk struct {
	NodeID    int         `json:"node_id"`
	PDiskID   int         `json:"pdisk_id"` // 1-based per node
	Path      string      `json:"path"`
	SizeBytes uint64      `json:"disk_size"`
	UserKind  int         `json:"pdisk_user_kind"`
	Backing   BackingKind `json:"backing"`
}

// IsStatic reports whether the disk is the node's bootstrap disk
func (p PDisk) IsStatic() bool {
	return p.PDiskID == StaticPDiskID
}

// GUID returns the pdisk guid. Static configs reuse the pdisk id.
func (p PDisk) GUID() uint64 {
	return uint64(p.PDiskID)
}

// VDiskID identifies a vdisk slot inside a group
type VDiskID struct {
	GroupID         int `json:"group_id"`
	GroupGeneration int `json:"group_generation"`
	Ring            int `json:"ring"`
	Domain          int `json:"domain"`
	VDisk           int `json:"vdisk"`
}

// VDiskLocation points a vdisk at a physical disk
type VDiskLocation struct {
	NodeID      int    `json:"node_id"`
	PDiskID     int    `json:"pdisk_id"`
	PDiskGUID   uint64 `json:"pdisk_guid"`
	VDiskSlotID int    `json:"vdisk_slot_id"`
}

// VDisk is a placed virtual disk
type VDisk struct {
	ID       VDiskID       `json:"vdisk_id"`
	Location VDiskLocation `json:"vdisk_location"`
}

// FailDomain is an independent failure boundary within a ring
type FailDomain struct {
	VDiskLocations []VDiskLocation `json:"vdisk_locations"`
}

// Ring is a set of fail domains, one datacenter for mirrored schemes
type Ring struct {
	FailDomains []FailDomain `json:"fail_domains"`
}

// StaticGroup is the bootstrap storage group every node references
// before dynamic storage pools come online.
type StaticGroup struct {
	GroupID         int     `json:"group_id"`
	GroupGeneration int     `json:"group_generation"`
	ErasureSpecies  int     `json:"erasure_species"`
	Rings           []Ring  `json:"rings"`
	PDisks          []PDisk `json:"pdisks"`
	VDisks          []VDisk `json:"vdisks"`
}

// FailDomainCount returns the total number of fail domains across rings
func (g *StaticGroup) FailDomainCount() int {
	count := 0
	for _, r := range g.Rings {
		count += len(r.FailDomains)
	}
	return count
}

// Clone returns a deep copy so callers can't mutate shared state
func (g *StaticGroup) Clone() *StaticGroup {
	if g == nil {
		return nil
	}
	out := &StaticGroup{
		GroupID:         g.GroupID,
		GroupGeneration: g.GroupGeneration,
		ErasureSpecies:  g.ErasureSpecies,
		Rings:           make([]Ring, len(g.Rings)),
		PDisks:          append([]PDisk(nil), g.PDisks...),
		VDisks:          append([]VDisk(nil), g.VDisks...),
	}
	for i, r := range g.Rings {
		domains := make([]FailDomain, len(r.FailDomains))
		for j, fd := range r.FailDomains {
			domains[j] = FailDomain{VDiskLocations: append([]VDiskLocation(nil), fd.VDiskLocations...)}
		}
		out.Rings[i] = Ring{FailDomains: domains}
	}
	return out
}
