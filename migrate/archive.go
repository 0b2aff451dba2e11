// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
)

// ArchiveDir packs every resource reachable under locations into a single
// tar archive, for shipping a resolved migration set to an air-gapped
// deployment target as one blob instead of a directory tree. There is no
// companion checksum manifest: each migration's checksum lives in its own
// resolved record (see Checksum), not a sibling sum file.
func ArchiveDir(scanner Scanner, locations []string) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, loc := range locations {
		resources, err := scanner.Scan(loc, "")
		if err != nil {
			return nil, fmt.Errorf("migrate: archive: %w", err)
		}
		for _, res := range resources {
			data, err := res.Bytes()
			if err != nil {
				return nil, fmt.Errorf("migrate: archive: %w", err)
			}
			if err := tw.WriteHeader(&tar.Header{
				Name: res.LogicalPath(),
				Mode: 0600,
				Size: int64(len(data)),
			}); err != nil {
				return nil, fmt.Errorf("migrate: archive: %w", err)
			}
			if _, err := tw.Write(data); err != nil {
				return nil, fmt.Errorf("migrate: archive: %w", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("migrate: archive: %w", err)
	}
	return buf.Bytes(), nil
}

// UnarchiveDir unpacks a tar archive produced by ArchiveDir into a
// MemScanner, ready to back a CQLResolver without touching local disk.
func UnarchiveDir(archive []byte) (*MemScanner, error) {
	ms := &MemScanner{}
	tr := tar.NewReader(bytes.NewReader(archive))
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("migrate: unarchive: %w", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("migrate: unarchive: %w", err)
		}
		ms.Resources = append(ms.Resources, &MemResource{Path: h.Name, Content: data})
	}
	return ms, nil
}
