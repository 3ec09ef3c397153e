// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// GiB is one binary gigabyte
const GiB = 1024 * 1024 * 1024

// DefaultPDiskSize is used for static and dynamic pdisks when nothing else is configured
const DefaultPDiskSize ByteSize = 64 * GiB

// ByteSize is a size in bytes that parses human-readable strings
type ByteSize uint64

// ParseByteSize parses sizes like "68719476736", "64GB", "64GiB" or "500 MB".
// A bare "GB" suffix is read as binary gigabytes to match pdisk sizing
// conventions; every other suffix follows humanize (SI for "MB", IEC for "MiB").
func ParseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return ByteSize(n), nil
	}

	if strings.HasSuffix(s, "GB") {
		n, err := strconv.ParseUint(strings.TrimSpace(strings.TrimSuffix(s, "GB")), 10, 64)
		if err == nil {
			if n > math.MaxUint64/GiB {
				return 0, fmt.Errorf("invalid size %q: exceeds %d GiB", s, uint64(math.MaxUint64/GiB))
			}
			return ByteSize(n * GiB), nil
		}
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return ByteSize(n), nil
}

// UnmarshalText lets config decoders accept "64GB" style strings
func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// GB returns the size in whole binary gigabytes, truncating
func (b ByteSize) GB() uint64 {
	return uint64(b) / GiB
}

// String returns an IEC formatted size, e.g. "64 GiB"
func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// DynamicPDisk overrides the parameters of one dynamic disk.
// Zero values fall back to the generator defaults.
type DynamicPDisk struct {
	DiskSize ByteSize `mapstructure:"disk_size" json:"disk_size,omitempty" yaml:"disk_size,omitempty"`
	UserKind int      `mapstructure:"user_kind" json:"user_kind,omitempty" yaml:"user_kind,omitempty"`
}

// MediaType describes the physical storage medium of a pool
type MediaType string

const (
	MediaTypeHDD  MediaType = "hdd"
	MediaTypeSSD  MediaType = "ssd"
	MediaTypeNVMe MediaType = "nvme"
)

// StoragePool describes a dynamic storage pool created after bootstrap.
// Pools pick their pdisks by user kind.
type StoragePool struct {
	Name          string    `mapstructure:"name" json:"name" yaml:"name"`
	Kind          MediaType `mapstructure:"kind" json:"kind" yaml:"kind"`
	PDiskUserKind int       `mapstructure:"pdisk_user_kind" json:"pdisk_user_kind" yaml:"pdisk_user_kind"`
}

// DefaultStoragePools returns the single hdd pool used when none are configured
func DefaultStoragePools() []StoragePool {
	return []StoragePool{
		{Name: "dynamic_storage_pool:1", Kind: MediaTypeHDD, PDiskUserKind: 0},
	}
}
