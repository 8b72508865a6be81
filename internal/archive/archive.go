package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var (
	// ErrUnsupportedFormat is returned when the input is neither a ZIP nor a gzip-compressed tar.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrCorruptArchive is returned when the container kind is recognized but an entry is malformed.
	ErrCorruptArchive = errors.New("corrupt archive")
)

// Kind is the container format of a prototype archive.
type Kind int

const (
	KindUnknown Kind = iota
	KindZip
	KindGzipTar
)

func (k Kind) String() string {
	switch k {
	case KindZip:
		return "zip"
	case KindGzipTar:
		return "gzip-tar"
	default:
		return "unknown"
	}
}

var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	gzipMagic     = []byte{0x1f, 0x8b}
)

// Member is one entry of an unpacked container.
type Member struct {
	// Path is the entry name exactly as stored in the container.
	Path string
	// Data is the uncompressed content. Empty for directories and special tar entries.
	Data []byte
	// IsDir reports whether the entry is a directory.
	IsDir bool
	// Method is the ZIP compression method (zero for tar members).
	Method uint16
	// Mode holds the permission and type bits recorded for the entry.
	Mode fs.FileMode

	modified  bool
	zipHeader *zip.FileHeader
	zipRaw    []byte
	tarHeader *tar.Header
}

// SetData replaces the member content. Modified members are recompressed on Pack;
// untouched ones are written back from their original bytes.
func (m *Member) SetData(data []byte) {
	m.Data = data
	m.modified = true
}

// Modified reports whether SetData was called on the member.
func (m *Member) Modified() bool { return m.modified }

// Tree is the ordered, in-memory staging tree of an unpacked container.
type Tree struct {
	Kind    Kind
	Members []*Member

	zipComment string
	gzipHeader gzip.Header
	gzipLevel  int
}

// Detect identifies the container kind from its magic bytes. A gzip stream
// only counts as KindGzipTar when its payload starts with a readable tar header.
func Detect(data []byte) (Kind, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic), bytes.HasPrefix(data, zipEmptyMagic):
		return KindZip, nil
	case bytes.HasPrefix(data, gzipMagic):
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return KindUnknown, fmt.Errorf("%w: gzip header: %v", ErrUnsupportedFormat, err)
		}
		defer gz.Close()

		if _, err := tar.NewReader(gz).Next(); err != nil && !errors.Is(err, io.EOF) {
			return KindUnknown, fmt.Errorf("%w: gzip payload is not a tar stream: %v", ErrUnsupportedFormat, err)
		}
		return KindGzipTar, nil
	default:
		return KindUnknown, ErrUnsupportedFormat
	}
}

// Unpack reads every member of the container into a staging tree.
func Unpack(data []byte, kind Kind) (*Tree, error) {
	switch kind {
	case KindZip:
		return unpackZip(data)
	case KindGzipTar:
		return unpackGzipTar(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind)
	}
}

// Pack writes the staging tree back into a container of the tree's kind,
// keeping member order and names.
func Pack(tree *Tree) ([]byte, error) {
	switch tree.Kind {
	case KindZip:
		return packZip(tree)
	case KindGzipTar:
		return packGzipTar(tree)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, tree.Kind)
	}
}

// Open detects the kind and unpacks in one step.
func Open(data []byte) (*Tree, error) {
	kind, err := Detect(data)
	if err != nil {
		return nil, err
	}
	return Unpack(data, kind)
}

// checkPath rejects member names that would escape the archive root.
func checkPath(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty member name", ErrCorruptArchive)
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return fmt.Errorf("%w: absolute member path %q", ErrCorruptArchive, name)
	}
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("%w: path traversal in member %q", ErrCorruptArchive, name)
		}
	}
	return nil
}
