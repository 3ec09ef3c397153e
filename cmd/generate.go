// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/LeeDigitalWorks/zaptopo/pkg/debug"
	"github.com/LeeDigitalWorks/zaptopo/pkg/format"
	"github.com/LeeDigitalWorks/zaptopo/pkg/logger"
	"github.com/LeeDigitalWorks/zaptopo/pkg/ports"
	"github.com/LeeDigitalWorks/zaptopo/pkg/topology"
	"github.com/LeeDigitalWorks/zaptopo/pkg/types"
	"github.com/LeeDigitalWorks/zaptopo/pkg/utils"

	"github.com/dustin/go-humanize"
	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GenerateOpts holds the settings of one generate run.
//
// Scalar settings come from flags, the environment or topology.yaml.
// The dynamic_pdisks and dynamic_storage_pools lists are only read
// from the config file:
//
//	dynamic_pdisks:
//	  - disk_size: 32GB
//	    user_kind: 1
//	dynamic_storage_pools:
//	  - name: dynamic_storage_pool:1
//	    kind: hdd
//	    pdisk_user_kind: 0
type GenerateOpts struct {
	Erasure           string
	Nodes             int
	NToSelect         int
	StaticPDiskSize   string
	DynamicPDiskSize  string
	PDisksPerNode     int
	PDiskStorePath    string
	UseInMemoryPDisks bool
	DomainName        string
	OutputPath        string
	BasePort          int
	FreePorts         bool
	ClusterUUID       bool
	GRPCSSLEnable     bool
	MetricsFile       string
	LogLevel          string
	LogFormat         string

	DynamicPDisks []types.DynamicPDisk
	StoragePools  []types.StoragePool
}

const (
	logFormatJSON    = "json"
	logFormatConsole = "console"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a cluster topology and its bootstrap config",
	Long: `Generate lays out nodes, allocates their physical disks and builds the
static storage group, then writes config.yaml and topology.json to the
output directory.

Disk sizes accept plain byte counts or human sizes. A bare "GB" suffix
means binary gigabytes, so "64GB" is 64 GiB.
`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	f := generateCmd.Flags()
	f.String("erasure", "none", "Static group erasure scheme (none, mirror-3-dc, block-4-2, ...)")
	f.Int("nodes", 0, "Number of nodes (default: the minimum the erasure scheme needs)")
	f.Int("n_to_select", 0, "State storage n_to_select (default: 9 for mirror-3-dc, else min(5, nodes))")
	f.String("static_pdisk_size", "64GB", "Size of the static pdisk on every node")
	f.String("dynamic_pdisk_size", "64GB", "Default size of dynamic pdisks")
	f.Int("pdisks_per_node", 0, "Total pdisks per node, must equal 1 + len(dynamic_pdisks) when set")
	f.String("pdisk_store_path", "", "Directory for file-backed pdisks (default: system temp dir)")
	f.Bool("use_in_memory_pdisks", false, "Use in-memory sector maps instead of files (env USE_IN_MEMORY_PDISKS)")
	f.String("domain_name", topology.DefaultDomainName, "Domain name")
	f.String("output_path", ".", "Directory to write config.yaml and topology.json")
	f.Int("base_port", ports.DefaultBasePort, "First port of the sequential port allocator")
	f.Bool("free_ports", false, "Probe the OS for free ports instead of allocating sequentially")
	f.Bool("cluster_uuid", false, "Assign a random cluster UUID")
	f.Bool("grpc_ssl_enable", false, "Generate a self-signed certificate for gRPC")
	f.String("metrics_file", "", "Write generator metrics in Prometheus text format to this file")
	f.String("log_level", "info", "Log level (debug, info, warn, error, fatal)")
	f.String("log_format", logFormatJSON, "Log format (json, console)")

	viper.BindPFlags(f)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	utils.LoadConfiguration("topology", false)
	opts, err := loadGenerateOpts(cmd)
	if err != nil {
		return err
	}

	if level, err := zerolog.ParseLevel(opts.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if opts.LogFormat == logFormatConsole {
		logger.SetOutput(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})
	}

	return opts.run(cmd.OutOrStdout())
}

// run generates the topology and writes every output file. Backing files
// of a file-backed topology are removed if any later step fails.
func (o GenerateOpts) run(out io.Writer) (err error) {
	cfg, err := o.topologyConfig()
	if err != nil {
		return err
	}

	logger.Info().
		Str("erasure", cfg.Erasure.String()).
		Int("nodes", cfg.Nodes).
		Bool("in_memory", cfg.UseInMemoryPDisks).
		Str("output_path", o.OutputPath).
		Msg("Generating topology")

	topo, err := topology.Generate(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if relErr := topo.Release(); relErr != nil {
			logger.Warn().Err(relErr).Msg("failed to release pdisk backing paths")
		}
	}()

	var formatOpts []format.Option
	if o.GRPCSSLEnable {
		paths, err := writeTLS(o.OutputPath)
		if err != nil {
			return err
		}
		formatOpts = append(formatOpts, format.WithTLS(paths))
	}

	written, err := format.WriteFiles(o.OutputPath, topo, formatOpts...)
	if err != nil {
		return err
	}

	if o.MetricsFile != "" {
		if err := debug.WriteTextfile(o.MetricsFile); err != nil {
			return err
		}
	}

	logger.Info().
		Str("config", written.Config).
		Str("topology", written.Topology).
		Msg("Topology written")

	return printSummary(out, topo)
}

func loadGenerateOpts(cmd *cobra.Command) (GenerateOpts, error) {
	f := NewFlagLoader(cmd)
	opts := GenerateOpts{
		Erasure:           f.String("erasure"),
		Nodes:             f.Int("nodes"),
		NToSelect:         f.Int("n_to_select"),
		StaticPDiskSize:   f.String("static_pdisk_size"),
		DynamicPDiskSize:  f.String("dynamic_pdisk_size"),
		PDisksPerNode:     f.Int("pdisks_per_node"),
		PDiskStorePath:    f.String("pdisk_store_path"),
		UseInMemoryPDisks: f.Bool("use_in_memory_pdisks"),
		DomainName:        f.String("domain_name"),
		OutputPath:        f.String("output_path"),
		BasePort:          f.Int("base_port"),
		FreePorts:         f.Bool("free_ports"),
		ClusterUUID:       f.Bool("cluster_uuid"),
		GRPCSSLEnable:     f.Bool("grpc_ssl_enable"),
		MetricsFile:       f.String("metrics_file"),
		LogLevel:          f.String("log_level"),
		LogFormat:         f.String("log_format"),
	}

	hook := viper.DecodeHook(mapstructure.TextUnmarshallerHookFunc())
	if err := viper.UnmarshalKey("dynamic_pdisks", &opts.DynamicPDisks, hook); err != nil {
		return GenerateOpts{}, fmt.Errorf("parse dynamic_pdisks: %w", err)
	}
	if err := viper.UnmarshalKey("dynamic_storage_pools", &opts.StoragePools); err != nil {
		return GenerateOpts{}, fmt.Errorf("parse dynamic_storage_pools: %w", err)
	}

	opts.OutputPath = utils.ResolvePath(opts.OutputPath)
	opts.PDiskStorePath = utils.ResolvePath(opts.PDiskStorePath)
	return opts, nil
}

// topologyConfig converts the CLI settings into a generator config
func (o GenerateOpts) topologyConfig() (topology.Config, error) {
	scheme, err := types.ParseErasureScheme(o.Erasure)
	if err != nil {
		return topology.Config{}, fmt.Errorf("%w: %w", topology.ErrInvalidConfig, err)
	}

	staticSize, err := types.ParseByteSize(o.StaticPDiskSize)
	if err != nil {
		return topology.Config{}, fmt.Errorf("%w: static_pdisk_size: %w", topology.ErrInvalidConfig, err)
	}
	dynamicSize, err := types.ParseByteSize(o.DynamicPDiskSize)
	if err != nil {
		return topology.Config{}, fmt.Errorf("%w: dynamic_pdisk_size: %w", topology.ErrInvalidConfig, err)
	}

	var alloc ports.Allocator = ports.NewSequentialAllocator(o.BasePort)
	if o.FreePorts {
		alloc = ports.NewFreePortAllocator("localhost")
	}

	return topology.Config{
		Erasure:           scheme,
		Nodes:             o.Nodes,
		NToSelect:         o.NToSelect,
		StaticPDiskSize:   staticSize,
		DynamicPDiskSize:  dynamicSize,
		DynamicPDisks:     o.DynamicPDisks,
		PDisksPerNode:     o.PDisksPerNode,
		StoragePools:      o.StoragePools,
		PDiskStorePath:    o.PDiskStorePath,
		UseInMemoryPDisks: o.UseInMemoryPDisks,
		DomainName:        o.DomainName,
		HasClusterUUID:    o.ClusterUUID,
		Ports:             alloc,
	}, nil
}

// writeTLS generates a self-signed bundle into dir and checks it loads
func writeTLS(dir string) (utils.TLSPaths, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return utils.TLSPaths{}, err
	}

	bundle, err := utils.GenerateSelfSignedCert("localhost")
	if err != nil {
		return utils.TLSPaths{}, err
	}
	paths, err := utils.WriteTLSBundle(dir, bundle)
	if err != nil {
		return utils.TLSPaths{}, err
	}
	if _, err := utils.LoadServerTLSConfig(paths.Cert, paths.Key); err != nil {
		return utils.TLSPaths{}, err
	}

	logger.Info().Str("cert", paths.Cert).Msg("Generated self-signed gRPC certificate")
	return paths, nil
}

func printSummary(w io.Writer, topo *topology.Topology) error {
	static := make(map[int]bool)
	for _, p := range topo.StaticGroup().PDisks {
		static[p.NodeID] = true
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Erasure:\t%s\n", topo.Erasure())
	fmt.Fprintf(tw, "Domain:\t%s\n", topo.DomainName())
	fmt.Fprintf(tw, "State storage:\t%d of %d\n", topo.NToSelect(), len(topo.StateStorageNodes()))
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "NODE\tDC\tRACK\tBODY\tIC PORT\tPDISKS\tCAPACITY\tSTATIC")
	for _, n := range topo.Nodes() {
		var capacity uint64
		pdisks := topo.PDisksOf(n.NodeID)
		for _, p := range pdisks {
			capacity += p.SizeBytes
		}
		member := "-"
		if static[n.NodeID] {
			member = "yes"
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			n.NodeID, n.DataCenter, n.Rack, n.Body, n.Port(), len(pdisks), humanize.IBytes(capacity), member)
	}
	return tw.Flush()
}
