// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Resource is a single named unit of content under a location prefix: a
// migration script, or any other resource the scanner enumerates.
type Resource interface {
	// LogicalPath is the resource's path relative to the location root,
	// e.g. "db/migration/V1__init.cql".
	LogicalPath() string
	// Filename is the base name, e.g. "V1__init.cql".
	Filename() string
	// LoadAsString reads the resource and decodes it with the given
	// encoding, stripping a leading UTF-8 BOM when encoding is UTF-8.
	LoadAsString(encoding string) (string, error)
	// Bytes returns the raw, undecoded content.
	Bytes() ([]byte, error)
}

// Scanner enumerates resources under a location prefix. This is the
// boundary with the host environment (local disk, embedded FS, classpath
// equivalent); LocalDir below is the default, disk-backed implementation.
type Scanner interface {
	// Scan returns the resources whose logical path starts with prefix
	// and whose filename has the given suffix (suffix may be empty to
	// match all files).
	Scan(prefix, suffix string) ([]Resource, error)
}

// LocalDir is the default Scanner, backed by a local filesystem root.
type LocalDir struct {
	fsys fs.FS
	root string
}

var _ Scanner = (*LocalDir)(nil)

// NewLocalDir opens path as a LocalDir root.
func NewLocalDir(path string) (*LocalDir, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("migrate: %q is not a dir", path)
	}
	return &LocalDir{fsys: os.DirFS(path), root: path}, nil
}

// NewFSDir adapts an arbitrary fs.FS (e.g. an embed.FS) into a Scanner,
// for deployments that bundle migrations into the binary.
func NewFSDir(fsys fs.FS) *LocalDir {
	return &LocalDir{fsys: fsys}
}

// Scan implements Scanner.
func (d *LocalDir) Scan(prefix, suffix string) ([]Resource, error) {
	var names []string
	err := fs.WalkDir(d.fsys, ".", func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		logical := path
		// "." names the scanner's root, as in fs.FS paths, and matches every file.
		if prefix != "." && !strings.HasPrefix(logical, prefix) {
			return nil
		}
		if suffix != "" && !strings.HasSuffix(logical, suffix) {
			return nil
		}
		names = append(names, logical)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("migrate: scan %q: %w", prefix, err)
	}
	sort.Strings(names)
	resources := make([]Resource, len(names))
	for i, n := range names {
		resources[i] = &localResource{fsys: d.fsys, path: n}
	}
	return resources, nil
}

type localResource struct {
	fsys fs.FS
	path string
}

var _ Resource = (*localResource)(nil)

func (r *localResource) LogicalPath() string { return r.path }
func (r *localResource) Filename() string    { return filepath.Base(r.path) }

func (r *localResource) Bytes() ([]byte, error) {
	return fs.ReadFile(r.fsys, r.path)
}

func (r *localResource) LoadAsString(encoding string) (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", fmt.Errorf("migrate: read %q: %w", r.path, err)
	}
	if strings.EqualFold(encoding, "UTF-8") || encoding == "" {
		b = StripBOM(b)
	}
	return string(b), nil
}

// MemResource is an in-memory Resource, useful for tests and for
// DRIVER-unit defined migrations that have no backing file.
type MemResource struct {
	Path    string
	Content []byte
}

var _ Resource = (*MemResource)(nil)

func (r *MemResource) LogicalPath() string { return r.Path }
func (r *MemResource) Filename() string    { return filepath.Base(r.Path) }
func (r *MemResource) Bytes() ([]byte, error) {
	return r.Content, nil
}
func (r *MemResource) LoadAsString(encoding string) (string, error) {
	b := r.Content
	if strings.EqualFold(encoding, "UTF-8") || encoding == "" {
		b = StripBOM(b)
	}
	return string(b), nil
}

// MemScanner is an in-memory Scanner, for tests and for compiled
// deployments that embed their migrations as constants.
type MemScanner struct {
	Resources []*MemResource
}

var _ Scanner = (*MemScanner)(nil)

// Scan implements Scanner.
func (s *MemScanner) Scan(prefix, suffix string) ([]Resource, error) {
	var out []Resource
	for _, r := range s.Resources {
		if !strings.HasPrefix(r.Path, prefix) {
			continue
		}
		if suffix != "" && !strings.HasSuffix(r.Path, suffix) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LogicalPath() < out[j].LogicalPath() })
	return out, nil
}

// directive searches content for a leading line matching
// "<prefix>cassmigrate:<name> <args>", returning the trailing args. A
// migration script opens with e.g. "-- cassmigrate:sum ignore" to opt out
// of checksum validation for that one file.
var reDirective = regexp.MustCompile(`^([ -~]*)cassmigrate:(\w+)(?: +([ -~]*))*`)

func directive(content, name string, prefix ...string) (string, bool) {
	m := reDirective.FindStringSubmatch(content)
	if len(m) == 4 && m[2] == name && (len(prefix) == 0 || prefix[0] == m[1]) {
		return m[3], true
	}
	return "", false
}

const (
	directiveSum  = "sum"
	sumModeIgnore = "ignore"
)

// ErrNotExist reports a named resource that is not found. The Scanners in
// this package do not return it: Scan yields an empty result instead.
var ErrNotExist = errors.New("migrate: resource not found")
