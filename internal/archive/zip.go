package archive

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
)

// DeflateLevel is the fixed level used when a modified ZIP entry is recompressed.
const DeflateLevel = flate.DefaultCompression

func unpackZip(data []byte) (*Tree, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	r.RegisterDecompressor(zip.Deflate, flate.NewReader)

	tree := &Tree{
		Kind:       KindZip,
		Members:    make([]*Member, 0, len(r.File)),
		zipComment: r.Comment,
	}

	for _, f := range r.File {
		if err := checkPath(f.Name); err != nil {
			return nil, err
		}

		hdr := f.FileHeader
		m := &Member{
			Path:      f.Name,
			IsDir:     strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir(),
			Method:    f.Method,
			Mode:      f.Mode(),
			zipHeader: &hdr,
		}

		if !m.IsDir {
			if m.Data, err = readZipFile(f); err != nil {
				return nil, fmt.Errorf("%w: read %s: %v", ErrCorruptArchive, f.Name, err)
			}
			raw, err := f.OpenRaw()
			if err != nil {
				return nil, fmt.Errorf("%w: open raw %s: %v", ErrCorruptArchive, f.Name, err)
			}
			if m.zipRaw, err = io.ReadAll(raw); err != nil {
				return nil, fmt.Errorf("%w: read raw %s: %v", ErrCorruptArchive, f.Name, err)
			}
		}

		tree.Members = append(tree.Members, m)
	}

	return tree, nil
}

// readZipFile decompresses one entry; the zip reader verifies the CRC at EOF.
func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func packZip(tree *Tree) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, DeflateLevel)
	})

	for _, m := range tree.Members {
		if err := writeZipMember(zw, m); err != nil {
			return nil, fmt.Errorf("write zip member %s: %w", m.Path, err)
		}
	}

	if tree.zipComment != "" {
		if err := zw.SetComment(tree.zipComment); err != nil {
			return nil, fmt.Errorf("set zip comment: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func writeZipMember(zw *zip.Writer, m *Member) error {
	// Untouched entries keep their original compressed bytes.
	if !m.modified && m.zipHeader != nil {
		hdr := *m.zipHeader
		w, err := zw.CreateRaw(&hdr)
		if err != nil {
			return err
		}
		_, err = w.Write(m.zipRaw)
		return err
	}

	hdr := &zip.FileHeader{
		Name:   m.Path,
		Method: m.Method,
	}
	if src := m.zipHeader; src != nil {
		hdr.Comment = src.Comment
		hdr.NonUTF8 = src.NonUTF8
		hdr.CreatorVersion = src.CreatorVersion
		hdr.Extra = withoutZip64Extra(src.Extra)
		hdr.ModifiedTime = src.ModifiedTime
		hdr.ModifiedDate = src.ModifiedDate
		hdr.ExternalAttrs = src.ExternalAttrs
	} else {
		hdr.SetMode(m.Mode)
	}

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	if m.IsDir {
		return nil
	}
	_, err = w.Write(m.Data)
	return err
}

const zip64ExtraID = 0x0001

// withoutZip64Extra returns the extra fields of a header minus the zip64 block,
// whose sizes no longer hold once an entry is recompressed. The writer adds a
// fresh one when needed.
func withoutZip64Extra(extra []byte) []byte {
	var out []byte
	for len(extra) >= 4 {
		tag := binary.LittleEndian.Uint16(extra[0:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		if 4+size > len(extra) {
			break
		}
		if tag != zip64ExtraID {
			out = append(out, extra[:4+size]...)
		}
		extra = extra[4+size:]
	}
	return out
}
