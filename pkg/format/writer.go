// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package format

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/LeeDigitalWorks/zaptopo/pkg/logger"
	"github.com/LeeDigitalWorks/zaptopo/pkg/topology"
	"github.com/LeeDigitalWorks/zaptopo/pkg/types"
	"github.com/LeeDigitalWorks/zaptopo/pkg/utils"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName   = "config.yaml"
	TopologyFileName = "topology.json"

	// grpcListenHost is the wildcard address the public API binds to
	grpcListenHost = "[::]"

	stateStorageID = 1
)

type options struct {
	tls *utils.TLSPaths
}

// Option tweaks the rendered config
type Option func(*options)

// WithTLS adds certificate paths to grpc_config
func WithTLS(paths utils.TLSPaths) Option {
	return func(o *options) {
		o.tls = &paths
	}
}

// Written lists the files produced by WriteFiles
type Written struct {
	Config   string
	Topology string
}

// WriteFiles writes config.yaml and topology.json into dir, creating it if needed
func WriteFiles(dir string, topo *topology.Topology, opts ...Option) (Written, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return Written{}, err
	}

	out := Written{
		Config:   filepath.Join(dir, ConfigFileName),
		Topology: filepath.Join(dir, TopologyFileName),
	}
	if err := writeFile(out.Config, func(w io.Writer) error { return WriteYAML(w, topo, opts...) }); err != nil {
		return Written{}, err
	}
	if err := writeFile(out.Topology, func(w io.Writer) error { return WriteJSON(w, topo) }); err != nil {
		return Written{}, err
	}

	logger.Debug().Str("config", out.Config).Str("topology", out.Topology).Msg("Wrote topology files")
	return out, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteYAML renders the bootstrap config consumed by storage nodes
func WriteYAML(w io.Writer, topo *topology.Topology, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	b, err := yaml.Marshal(buildConfig(topo, o))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = w.Write(b)
	return err
}

// WriteJSON dumps nodes, disks and the static group as indented JSON
func WriteJSON(w io.Writer, topo *topology.Topology) error {
	desc := descriptor{
		Erasure:     topo.Erasure().String(),
		DomainName:  topo.DomainName(),
		NToSelect:   topo.NToSelect(),
		Nodes:       topo.Nodes(),
		Disks:       topo.PDisks(),
		StaticGroup: topo.StaticGroup(),
	}
	if id := topo.ClusterUUID(); id != uuid.Nil {
		desc.ClusterUUID = id.String()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(desc)
}

type descriptor struct {
	ClusterUUID string             `json:"cluster_uuid,omitempty"`
	Erasure     string             `json:"erasure"`
	DomainName  string             `json:"domain_name"`
	NToSelect   int                `json:"n_to_select"`
	Nodes       []types.Node       `json:"nodes"`
	Disks       []types.PDisk      `json:"disks"`
	StaticGroup *types.StaticGroup `json:"static_group"`
}

type config struct {
	StaticErasure     string            `yaml:"static_erasure"`
	NameserviceConfig nameserviceConfig `yaml:"nameservice_config"`
	BlobStorageConfig blobStorageConfig `yaml:"blob_storage_config"`
	DomainsConfig     domainsConfig     `yaml:"domains_config"`
	GRPCConfig        grpcConfig        `yaml:"grpc_config"`
}

type nameserviceConfig struct {
	ClusterUUID string            `yaml:"cluster_uuid,omitempty"`
	Node        []nameserviceNode `yaml:"node"`
}

type nameserviceNode struct {
	NodeID        int           `yaml:"node_id"`
	Address       string        `yaml:"address"`
	Port          int           `yaml:"port"`
	Host          string        `yaml:"host"`
	WalleLocation walleLocation `yaml:"walle_location"`
}

// walleLocation keeps data_center and rack as strings, body as a number
type walleLocation struct {
	DataCenter string `yaml:"data_center"`
	Rack       string `yaml:"rack"`
	Body       int    `yaml:"body"`
}

type blobStorageConfig struct {
	ServiceSet serviceSet `yaml:"service_set"`
}

type serviceSet struct {
	AvailabilityDomains int            `yaml:"availability_domains"`
	PDisks              []servicePDisk `yaml:"pdisks"`
	VDisks              []serviceVDisk `yaml:"vdisks"`
	Groups              []serviceGroup `yaml:"groups"`
}

type servicePDisk struct {
	NodeID        int    `yaml:"node_id"`
	PDiskID       int    `yaml:"pdisk_id"`
	Path          string `yaml:"path"`
	PDiskGUID     uint64 `yaml:"pdisk_guid"`
	PDiskCategory int    `yaml:"pdisk_category"`
}

type serviceVDisk struct {
	VDiskID       vdiskID       `yaml:"vdisk_id"`
	VDiskLocation vdiskLocation `yaml:"vdisk_location"`
}

type vdiskID struct {
	GroupID         int `yaml:"group_id"`
	GroupGeneration int `yaml:"group_generation"`
	Ring            int `yaml:"ring"`
	Domain          int `yaml:"domain"`
	VDisk           int `yaml:"vdisk"`
}

type vdiskLocation struct {
	NodeID      int    `yaml:"node_id"`
	PDiskID     int    `yaml:"pdisk_id"`
	PDiskGUID   uint64 `yaml:"pdisk_guid"`
	VDiskSlotID int    `yaml:"vdisk_slot_id"`
}

type serviceGroup struct {
	GroupID         int           `yaml:"group_id"`
	GroupGeneration int           `yaml:"group_generation"`
	ErasureSpecies  int           `yaml:"erasure_species"`
	Rings           []serviceRing `yaml:"rings"`
}

type serviceRing struct {
	FailDomains []serviceFailDomain `yaml:"fail_domains"`
}

type serviceFailDomain struct {
	VDiskLocations []vdiskLocation `yaml:"vdisk_locations"`
}

type domainsConfig struct {
	Domain       []domain       `yaml:"domain"`
	StateStorage []stateStorage `yaml:"state_storage"`
}

type domain struct {
	Name             string            `yaml:"name"`
	StoragePoolTypes []storagePoolType `yaml:"storage_pool_types"`
}

type storagePoolType struct {
	Kind       string     `yaml:"kind"`
	PoolConfig poolConfig `yaml:"pool_config"`
}

type poolConfig struct {
	Name           string `yaml:"name"`
	Kind           string `yaml:"kind"`
	ErasureSpecies string `yaml:"erasure_species"`
	PDiskUserKind  int    `yaml:"pdisk_user_kind"`
}

type stateStorage struct {
	SSID int              `yaml:"ssid"`
	Ring stateStorageRing `yaml:"ring"`
}

type stateStorageRing struct {
	NToSelect int   `yaml:"nto_select"`
	Node      []int `yaml:"node"`
}

type grpcConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port,omitempty"`
	CA   string `yaml:"ca,omitempty"`
	Cert string `yaml:"cert,omitempty"`
	Key  string `yaml:"key,omitempty"`
}

func buildConfig(topo *topology.Topology, o options) config {
	nodes := topo.Nodes()
	group := topo.StaticGroup()

	cfg := config{
		StaticErasure: topo.Erasure().String(),
		BlobStorageConfig: blobStorageConfig{ServiceSet: serviceSet{
			AvailabilityDomains: topo.AvailabilityDomains(),
			PDisks:              make([]servicePDisk, 0, len(group.PDisks)),
			VDisks:              make([]serviceVDisk, 0, len(group.VDisks)),
		}},
		GRPCConfig: grpcConfig{Host: grpcListenHost},
	}

	if id := topo.ClusterUUID(); id != uuid.Nil {
		cfg.NameserviceConfig.ClusterUUID = id.String()
	}
	for _, n := range nodes {
		cfg.NameserviceConfig.Node = append(cfg.NameserviceConfig.Node, nameserviceNode{
			NodeID:  n.NodeID,
			Address: n.Address,
			Port:    n.Port(),
			Host:    n.Host,
			WalleLocation: walleLocation{
				DataCenter: strconv.Itoa(n.DataCenter),
				Rack:       strconv.Itoa(n.Rack),
				Body:       n.Body,
			},
		})
	}
	if len(nodes) > 0 {
		cfg.GRPCConfig.Port = nodes[0].Ports.GRPC
	}

	ss := &cfg.BlobStorageConfig.ServiceSet
	for _, p := range group.PDisks {
		ss.PDisks = append(ss.PDisks, servicePDisk{
			NodeID:        p.NodeID,
			PDiskID:       p.PDiskID,
			Path:          p.Path,
			PDiskGUID:     p.GUID(),
			PDiskCategory: p.UserKind,
		})
	}
	for _, v := range group.VDisks {
		ss.VDisks = append(ss.VDisks, serviceVDisk{
			VDiskID: vdiskID{
				GroupID:         v.ID.GroupID,
				GroupGeneration: v.ID.GroupGeneration,
				Ring:            v.ID.Ring,
				Domain:          v.ID.Domain,
				VDisk:           v.ID.VDisk,
			},
			VDiskLocation: toLocation(v.Location),
		})
	}

	sg := serviceGroup{
		GroupID:         group.GroupID,
		GroupGeneration: group.GroupGeneration,
		ErasureSpecies:  group.ErasureSpecies,
		Rings:           make([]serviceRing, len(group.Rings)),
	}
	for i, r := range group.Rings {
		domains := make([]serviceFailDomain, len(r.FailDomains))
		for j, fd := range r.FailDomains {
			locs := make([]vdiskLocation, len(fd.VDiskLocations))
			for k, l := range fd.VDiskLocations {
				locs[k] = toLocation(l)
			}
			domains[j] = serviceFailDomain{VDiskLocations: locs}
		}
		sg.Rings[i] = serviceRing{FailDomains: domains}
	}
	ss.Groups = []serviceGroup{sg}

	d := domain{Name: topo.DomainName()}
	for _, p := range topo.StoragePools() {
		d.StoragePoolTypes = append(d.StoragePoolTypes, storagePoolType{
			Kind: string(p.Kind),
			PoolConfig: poolConfig{
				Name:           p.Name,
				Kind:           string(p.Kind),
				ErasureSpecies: topo.Erasure().String(),
				PDiskUserKind:  p.PDiskUserKind,
			},
		})
	}
	cfg.DomainsConfig = domainsConfig{
		Domain: []domain{d},
		StateStorage: []stateStorage{{
			SSID: stateStorageID,
			Ring: stateStorageRing{NToSelect: topo.NToSelect(), Node: topo.StateStorageNodes()},
		}},
	}

	if o.tls != nil {
		cfg.GRPCConfig.CA = o.tls.CA
		cfg.GRPCConfig.Cert = o.tls.Cert
		cfg.GRPCConfig.Key = o.tls.Key
	}

	return cfg
}

func toLocation(l types.VDiskLocation) vdiskLocation {
	return vdiskLocation{
		NodeID:      l.NodeID,
		PDiskID:     l.PDiskID,
		PDiskGUID:   l.PDiskGUID,
		VDiskSlotID: l.VDiskSlotID,
	}
}
