// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/LeeDigitalWorks/zaptopo/pkg/types"
	"github.com/LeeDigitalWorks/zaptopo/pkg/utils"

	"github.com/google/uuid"
)

// BackingStore reserves the storage behind a pdisk and returns its path
type BackingStore interface {
	Kind() types.BackingKind
	Reserve(nodeID, pdiskID int, size types.ByteSize) (string, error)
	Release(path string) error
}

// SectorMapStore backs pdisks with in-memory sector maps. Nothing touches disk.
type SectorMapStore struct{}

func (SectorMapStore) Kind() types.BackingKind {
	return types.BackingSectorMap
}

// Reserve returns a "SectorMap:<pdisk id>:<size in GiB>" descriptor
func (SectorMapStore) Reserve(nodeID, pdiskID int, size types.ByteSize) (string, error) {
	return fmt.Sprintf("SectorMap:%d:%d", pdiskID, size.GB()), nil
}

func (SectorMapStore) Release(string) error {
	return nil
}

// FileStore backs every pdisk with a fresh, uniquely named file
type FileStore struct {
	dir string
}

// NewFileStore creates a store under dir. An empty dir uses the system temp dir.
// The directory must exist and be writable.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	dir = utils.ResolvePath(dir)
	if err := utils.TestWritableFile(dir); err != nil {
		return nil, fmt.Errorf("%w: pdisk store path: %w", ErrBackingStore, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory backing files are created in
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Kind() types.BackingKind {
	return types.BackingFile
}

// Reserve creates an empty pdisk<id>_node<node>_<uuid>.data file. The file
// is created exclusively so paths never collide within or across runs.
func (s *FileStore) Reserve(nodeID, pdiskID int, size types.ByteSize) (string, error) {
	name := fmt.Sprintf("pdisk%d_node%d_%s.data", pdiskID, nodeID, uuid.NewString())
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("%w: node %d pdisk %d: %w", ErrBackingStore, nodeID, pdiskID, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: node %d pdisk %d: %w", ErrBackingStore, nodeID, pdiskID, err)
	}
	return path, nil
}

// Release removes a backing file. Missing files are ignored.
func (s *FileStore) Release(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
