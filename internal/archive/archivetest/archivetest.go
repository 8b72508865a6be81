// Package archivetest builds small prototype containers for tests.
package archivetest

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// File describes one container entry. Names ending in "/" are directories.
type File struct {
	Name   string
	Body   string
	Method uint16
	Mode   fs.FileMode
}

var modTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Zip builds a ZIP container holding files in the given order.
func Zip(t testing.TB, files ...File) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		hdr := &zip.FileHeader{Name: f.Name, Method: f.Method}
		hdr.SetModTime(modTime)
		if f.Mode != 0 {
			hdr.SetMode(f.Mode)
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		if !strings.HasSuffix(f.Name, "/") {
			_, err = w.Write([]byte(f.Body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// GzipTar builds a gzip-compressed tar container holding files in the given order.
func GzipTar(t testing.TB, files ...File) []byte {
	t.Helper()

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	for _, f := range files {
		mode := int64(0o644)
		if f.Mode != 0 {
			mode = int64(f.Mode.Perm())
		}
		hdr := &tar.Header{
			Name:     f.Name,
			Mode:     mode,
			ModTime:  modTime,
			Typeflag: tar.TypeReg,
			Size:     int64(len(f.Body)),
		}
		if strings.HasSuffix(f.Name, "/") {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
			hdr.Size = 0
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(f.Body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())

	var out bytes.Buffer
	gz, err := gzip.NewWriterLevel(&out, gzip.BestCompression)
	require.NoError(t, err)
	gz.Name = "prototype.tar"
	_, err = gz.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return out.Bytes()
}

// Gzip compresses an arbitrary payload.
func Gzip(t testing.TB, payload string) []byte {
	t.Helper()

	var out bytes.Buffer
	gz := gzip.NewWriter(&out)
	_, err := gz.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return out.Bytes()
}
