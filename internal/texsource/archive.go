// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package texsource

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// maxMemberSize caps how much of a single archive member is read.
const maxMemberSize = 100 * 1024 * 1024

// errNotArchive reports that the input is not a (compressed) tarball.
var errNotArchive = errors.New("not a tar archive")

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicBzip2 = []byte("BZh")
	magicXZ    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// member is one regular file read from the archive.
type member struct {
	name string
	data []byte
}

// decompress sniffs the compression format from the leading bytes and
// returns a reader over the decompressed stream.
func decompress(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(6)
	noop := func() {}

	switch {
	case bytes.HasPrefix(head, magicGzip):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, noop, fmt.Errorf("gzip: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case bytes.HasPrefix(head, magicBzip2):
		return bzip2.NewReader(br), noop, nil
	case bytes.HasPrefix(head, magicXZ):
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, noop, fmt.Errorf("xz: %w", err)
		}
		return xr, noop, nil
	case bytes.HasPrefix(head, magicZstd):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, noop, fmt.Errorf("zstd: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return br, noop, nil
	}
}

// readMembers returns every regular file in the archive, in archive order,
// whose name passes keep. Any read error before the first header means the
// input is not a tarball.
func readMembers(r io.Reader, keep func(name string) bool) ([]member, error) {
	stream, closeFn, err := decompress(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNotArchive, err)
	}
	defer closeFn()

	tr := tar.NewReader(stream)
	var members []member
	for first := true; ; first = false {
		hdr, err := tr.Next()
		if err == io.EOF {
			if first {
				return nil, fmt.Errorf("%w: empty stream", errNotArchive)
			}
			break
		}
		if err != nil {
			if first {
				return nil, fmt.Errorf("%w: %v", errNotArchive, err)
			}
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		if !hdr.FileInfo().Mode().IsRegular() || !keep(hdr.Name) {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(tr, maxMemberSize))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", hdr.Name, err)
		}
		members = append(members, member{name: hdr.Name, data: data})
	}
	return members, nil
}
