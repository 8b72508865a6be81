package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// gzipLevelFromXFL maps the gzip XFL header byte back to a compression level.
// 2 marks maximum compression, 4 the fastest; anything else falls back to the default.
func gzipLevelFromXFL(data []byte) int {
	if len(data) < 10 {
		return gzip.DefaultCompression
	}
	switch data[8] {
	case 2:
		return gzip.BestCompression
	case 4:
		return gzip.BestSpeed
	default:
		return gzip.DefaultCompression
	}
}

func unpackGzipTar(data []byte) (*Tree, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip header: %v", ErrCorruptArchive, err)
	}
	defer gz.Close()

	tree := &Tree{
		Kind:       KindGzipTar,
		gzipHeader: gz.Header,
		gzipLevel:  gzipLevelFromXFL(data),
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: tar header: %v", ErrCorruptArchive, err)
		}
		if err := checkPath(hdr.Name); err != nil {
			return nil, err
		}

		h := *hdr
		m := &Member{
			Path:      hdr.Name,
			IsDir:     hdr.Typeflag == tar.TypeDir,
			Mode:      hdr.FileInfo().Mode(),
			tarHeader: &h,
		}

		if isRegular(hdr.Typeflag) {
			if m.Data, err = io.ReadAll(tr); err != nil {
				return nil, fmt.Errorf("%w: read %s: %v", ErrCorruptArchive, hdr.Name, err)
			}
		}

		tree.Members = append(tree.Members, m)
	}

	return tree, nil
}

func isRegular(flag byte) bool {
	return flag == tar.TypeReg || flag == tar.TypeRegA
}

func packGzipTar(tree *Tree) ([]byte, error) {
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)

	for _, m := range tree.Members {
		hdr := tarHeaderFor(m)
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("write tar header %s: %w", m.Path, err)
		}
		if isRegular(hdr.Typeflag) && len(m.Data) > 0 {
			if _, err := tw.Write(m.Data); err != nil {
				return nil, fmt.Errorf("write tar member %s: %w", m.Path, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close tar writer: %w", err)
	}

	level := tree.gzipLevel
	if level == 0 {
		level = gzip.DefaultCompression
	}

	var out bytes.Buffer
	gz, err := gzip.NewWriterLevel(&out, level)
	if err != nil {
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}
	gz.Header = tree.gzipHeader
	if _, err := gz.Write(tarBuf.Bytes()); err != nil {
		return nil, fmt.Errorf("write gzip stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}
	return out.Bytes(), nil
}

func tarHeaderFor(m *Member) *tar.Header {
	if m.tarHeader == nil {
		hdr := &tar.Header{
			Name:     m.Path,
			Mode:     int64(m.Mode.Perm()),
			Typeflag: tar.TypeReg,
			Size:     int64(len(m.Data)),
		}
		if m.IsDir {
			hdr.Typeflag = tar.TypeDir
			hdr.Size = 0
		}
		return hdr
	}

	hdr := *m.tarHeader
	if isRegular(hdr.Typeflag) {
		hdr.Size = int64(len(m.Data))
	}
	return &hdr
}
