// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import "errors"

// Errors returned by Generate and its steps. All of them are fatal: no
// topology is returned alongside an error. Match with errors.Is.
var (
	// ErrInsufficientNodes means the node count can't fill every ring of the static group
	ErrInsufficientNodes = errors.New("insufficient nodes for erasure scheme")

	// ErrOverrideCountMismatch means the dynamic pdisk overrides don't cover the requested disks
	ErrOverrideCountMismatch = errors.New("dynamic pdisk override count mismatch")

	// ErrPortLookup means the port allocator could not serve a node
	ErrPortLookup = errors.New("port lookup failed")

	// ErrBackingStore means a pdisk backing file could not be created
	ErrBackingStore = errors.New("backing store creation failed")

	// ErrInvalidConfig wraps generator configuration validation failures
	ErrInvalidConfig = errors.New("invalid topology config")
)
