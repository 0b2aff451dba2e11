// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate

import (
	"hash/crc32"
	"strings"
)

// bom is the UTF-8 byte-order-mark.
var bom = []byte{0xEF, 0xBB, 0xBF}

// StripBOM removes a leading UTF-8 byte-order-mark from b, if present.
func StripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == bom[0] && b[1] == bom[1] && b[2] == bom[2] {
		return b[3:]
	}
	return b
}

// Canonicalize normalizes migration content the same way regardless of
// where it came from a script file or a loaded resource: strip a leading
// UTF-8 BOM and normalize line endings to "\n". The result is what
// Checksum digests; the CQL statement parser is given the resource's
// decoded content, whose line endings are not normalized.
func Canonicalize(content []byte) string {
	s := string(StripBOM(content))
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

// Checksum computes a deterministic signed 32-bit digest over the
// migration's canonical content. It is a CRC32 (IEEE polynomial) checksum,
// matching the 32-bit field of AppliedMigration/ResolvedMigration and
// remaining stable across runs and platforms as required by spec.
func Checksum(content []byte) int32 {
	sum := crc32.ChecksumIEEE([]byte(Canonicalize(content)))
	return int32(sum)
}
