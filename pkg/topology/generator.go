// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"errors"
	"fmt"
	"time"

	"github.com/LeeDigitalWorks/zaptopo/pkg/logger"
	"github.com/LeeDigitalWorks/zaptopo/pkg/ports"
	"github.com/LeeDigitalWorks/zaptopo/pkg/types"

	"github.com/google/uuid"
)

const (
	DefaultDomainName = "Root"

	// availabilityDomains is fixed for single-cluster test topologies
	availabilityDomains = 1
)

// Config describes the cluster to generate. Zero values pick defaults.
type Config struct {
	Erasure types.ErasureScheme

	// Nodes defaults to the scheme's RequiredNodes
	Nodes int

	// NToSelect is the state storage quorum; defaults to Erasure.DefaultNToSelect
	NToSelect int

	StaticPDiskSize  types.ByteSize
	DynamicPDiskSize types.ByteSize
	DynamicPDisks    []types.DynamicPDisk

	// PDisksPerNode, when set, must equal 1 + len(DynamicPDisks)
	PDisksPerNode int

	// StoragePools default to types.DefaultStoragePools
	StoragePools []types.StoragePool

	// PDiskStorePath is where file-backed pdisks are created (system temp dir if empty)
	PDiskStorePath    string
	UseInMemoryPDisks bool

	DomainName     string
	HasClusterUUID bool

	// Ports defaults to a ports.SequentialAllocator on ports.DefaultBasePort
	Ports ports.Allocator

	// Store overrides the backing store picked from UseInMemoryPDisks/PDiskStorePath
	Store BackingStore
}

func (c Config) withDefaults() Config {
	if c.Nodes == 0 {
		c.Nodes = c.Erasure.RequiredNodes()
	}
	if c.NToSelect == 0 {
		c.NToSelect = c.Erasure.DefaultNToSelect(c.Nodes)
	}
	if c.StaticPDiskSize == 0 {
		c.StaticPDiskSize = types.DefaultPDiskSize
	}
	if c.DynamicPDiskSize == 0 {
		c.DynamicPDiskSize = types.DefaultPDiskSize
	}
	if c.StoragePools == nil {
		c.StoragePools = types.DefaultStoragePools()
	}
	if c.DomainName == "" {
		c.DomainName = DefaultDomainName
	}
	if c.Ports == nil {
		c.Ports = ports.NewSequentialAllocator(ports.DefaultBasePort)
	}
	return c
}

// Validate checks the config after defaults are applied
func (c Config) Validate() *types.ConfigValidationResult {
	c = c.withDefaults()
	result := types.NewConfigValidationResult()

	if !c.Erasure.Valid() {
		result.AddError("erasure", fmt.Sprintf("unknown erasure species %d", int(c.Erasure)))
		return result
	}
	if c.Nodes < 0 {
		result.AddError("nodes", "node count cannot be negative")
	}
	if c.NToSelect < 0 {
		result.AddError("n_to_select", "n_to_select cannot be negative")
	} else if c.NToSelect > c.Nodes {
		result.AddWarning(fmt.Sprintf("n_to_select %d exceeds node count %d", c.NToSelect, c.Nodes))
	}
	if c.PDisksPerNode < 0 {
		result.AddError("pdisks_per_node", "pdisks per node cannot be negative")
	}
	if c.UseInMemoryPDisks && c.StaticPDiskSize < types.GiB {
		result.AddWarning("static pdisk smaller than 1 GiB is rounded down to a 0 GiB sector map")
	}

	pools := types.ValidateStoragePools(c.StoragePools)
	result.Errors = append(result.Errors, pools.Errors...)
	result.Warnings = append(result.Warnings, pools.Warnings...)
	if !pools.Valid {
		result.Valid = false
	}

	return result
}

func (c Config) backingStore() (BackingStore, error) {
	if c.Store != nil {
		return c.Store, nil
	}
	if c.UseInMemoryPDisks {
		return SectorMapStore{}, nil
	}
	return NewFileStore(c.PDiskStorePath)
}

// Generate builds the full topology: nodes, pdisks and the static group.
// It runs synchronously and returns either a complete topology or an error.
func Generate(cfg Config) (topo *Topology, err error) {
	start := time.Now()
	cfg = cfg.withDefaults()
	defer func() {
		result := resultSuccess
		if err != nil {
			result = resultError
		}
		GenerateTotal.WithLabelValues(cfg.Erasure.String(), result).Inc()
		GenerateDuration.Observe(time.Since(start).Seconds())
	}()

	validation := cfg.Validate()
	for _, w := range validation.Warnings {
		logger.Warn().Str("erasure", cfg.Erasure.String()).Msg(w)
	}
	if err := validation.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if required := cfg.Erasure.RequiredNodes(); cfg.Nodes < required {
		return nil, fmt.Errorf("%w: %s needs %d nodes (%d rings x %d fail domains), got %d",
			ErrInsufficientNodes, cfg.Erasure, required, cfg.Erasure.RingCount(), cfg.Erasure.MinFailDomains(), cfg.Nodes)
	}

	nodeIDs := NodeIDs(cfg.Nodes)
	nodes, err := PlanNodes(nodeIDs, cfg.Erasure.Datacenters(), cfg.Ports)
	if err != nil {
		return nil, err
	}

	store, err := cfg.backingStore()
	if err != nil {
		return nil, err
	}

	alloc := &DiskAllocator{
		StaticSize:    cfg.StaticPDiskSize,
		DynamicSize:   cfg.DynamicPDiskSize,
		Overrides:     cfg.DynamicPDisks,
		PDisksPerNode: cfg.PDisksPerNode,
		Store:         store,
	}
	ledger, err := alloc.Allocate(nodes)
	if err != nil {
		return nil, err
	}

	group, err := BuildStaticGroup(cfg.Erasure, nodes, ledger)
	if err != nil {
		alloc.Release(ledger)
		return nil, err
	}

	topo = &Topology{
		erasure:    cfg.Erasure,
		domainName: cfg.DomainName,
		nToSelect:  cfg.NToSelect,
		nodes:      nodes,
		pdisks:     ledger,
		group:      group,
		pools:      append([]types.StoragePool(nil), cfg.StoragePools...),
		store:      store,
	}
	if cfg.HasClusterUUID {
		topo.clusterUUID = uuid.New()
	}

	NodesPlanned.Add(float64(len(nodes)))
	PDisksAllocated.WithLabelValues(string(store.Kind())).Add(float64(len(ledger)))
	StaticFailDomains.Set(float64(group.FailDomainCount()))

	logger.Info().
		Str("erasure", cfg.Erasure.String()).
		Int("nodes", len(nodes)).
		Int("pdisks", len(ledger)).
		Int("rings", len(group.Rings)).
		Int("static_fail_domains", group.FailDomainCount()).
		Str("backing", string(store.Kind())).
		Msg("Generated topology")

	return topo, nil
}

// Topology is the immutable result of Generate.
// Accessors return copies; the topology itself never changes.
// Callers that fail to use a file-backed topology should Release it.
type Topology struct {
	erasure     types.ErasureScheme
	clusterUUID uuid.UUID
	domainName  string
	nToSelect   int
	nodes       []types.Node
	pdisks      []types.PDisk
	group       *types.StaticGroup
	pools       []types.StoragePool
	store       BackingStore
}

func (t *Topology) Erasure() types.ErasureScheme { return t.erasure }
func (t *Topology) DomainName() string           { return t.domainName }
func (t *Topology) NToSelect() int               { return t.nToSelect }
func (t *Topology) AvailabilityDomains() int     { return availabilityDomains }

// ClusterUUID returns uuid.Nil unless the config asked for one
func (t *Topology) ClusterUUID() uuid.UUID {
	return t.clusterUUID
}

// Nodes returns all nodes in id order
func (t *Topology) Nodes() []types.Node {
	return append([]types.Node(nil), t.nodes...)
}

// NodeIDs returns the ids of all nodes in order
func (t *Topology) NodeIDs() []int {
	ids := make([]int, len(t.nodes))
	for i, n := range t.nodes {
		ids[i] = n.NodeID
	}
	return ids
}

// StateStorageNodes returns the nodes hosting state storage replicas. Every node does.
func (t *Topology) StateStorageNodes() []int {
	return t.NodeIDs()
}

// PDisks returns the full allocation ledger, ordered by node then pdisk id
func (t *Topology) PDisks() []types.PDisk {
	return append([]types.PDisk(nil), t.pdisks...)
}

// PDisksOf returns the pdisks owned by one node
func (t *Topology) PDisksOf(nodeID int) []types.PDisk {
	var out []types.PDisk
	for _, p := range t.pdisks {
		if p.NodeID == nodeID {
			out = append(out, p)
		}
	}
	return out
}

// StaticGroup returns a copy of the static group
func (t *Topology) StaticGroup() *types.StaticGroup {
	return t.group.Clone()
}

// StoragePools returns the dynamic storage pools
func (t *Topology) StoragePools() []types.StoragePool {
	return append([]types.StoragePool(nil), t.pools...)
}

// Release frees the backing storage of every pdisk, such as the files a
// FileStore created. The topology must not be used afterwards.
func (t *Topology) Release() error {
	var errs []error
	for _, p := range t.pdisks {
		if err := t.store.Release(p.Path); err != nil {
			errs = append(errs, fmt.Errorf("%w: release %s: %w", ErrBackingStore, p.Path, err))
		}
	}
	return errors.Join(errs...)
}
