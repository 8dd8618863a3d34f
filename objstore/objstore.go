// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package objstore abstracts the object store holding raw uploads and
// derived artifacts (converted markdown, generated audio and images).
// Locators are slash-separated paths relative to the store root.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrObjectNotFound indicates the locator does not exist in the store.
var ErrObjectNotFound = errors.New("object not found")

// Store reads and writes artifacts by locator.
// Implementations must be thread-safe.
type Store interface {
	// Read returns the full content of the object at locator.
	// Returns ErrObjectNotFound if the object does not exist.
	Read(ctx context.Context, locator string) ([]byte, error)

	// Write stores content under locator, overwriting any existing object
	// and creating intermediate directories as needed.
	Write(ctx context.Context, locator string, content []byte) error
}

// FS is a filesystem-backed Store rooted at a directory.
type FS struct {
	root string
}

var _ Store = (*FS)(nil)

// NewFS creates a filesystem store rooted at root, creating the directory
// if it does not exist.
func NewFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &FS{root: root}, nil
}

// Read returns the full content of the object at locator.
func (s *FS) Read(ctx context.Context, locator string) ([]byte, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, locator)
		}
		return nil, err
	}
	return content, nil
}

// Write stores content under locator.
func (s *FS) Write(ctx context.Context, locator string, content []byte) error {
	path, err := s.resolve(locator)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0644)
}

// resolve maps a locator onto the root, rejecting escapes.
func (s *FS) resolve(locator string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(locator))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid locator %q", locator)
	}
	return filepath.Join(s.root, cleaned), nil
}
