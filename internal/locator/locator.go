package locator

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"pencil-translator/internal/archive"
	"pencil-translator/internal/textnode"

	"github.com/rs/zerolog/log"
)

// ArchiveExt is the file extension of Pencil prototype archives.
const ArchiveExt = ".epgz"

// SupportedExtensions lists member extensions that may hold Pencil documents.
var SupportedExtensions = map[string]bool{
	".xml": true,
}

// Locate returns the members of tree that are Pencil XML documents, in tree order.
// An XML member that is not well-formed before its root element fails with
// textnode.ErrDocumentParse.
func Locate(tree *archive.Tree) ([]*archive.Member, error) {
	var docs []*archive.Member

	for _, m := range tree.Members {
		if m.IsDir {
			continue
		}

		ext := strings.ToLower(path.Ext(m.Path))
		if !SupportedExtensions[ext] {
			continue
		}

		ok, err := IsPencilDocument(m.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", textnode.ErrDocumentParse, m.Path, err)
		}
		if !ok {
			log.Debug().Str("member", m.Path).Msg("Skipping non-Pencil XML member")
			continue
		}

		docs = append(docs, m)
	}

	log.Debug().Int("count", len(docs)).Int("members", len(tree.Members)).Msg("Located documents")
	return docs, nil
}

// IsPencilDocument sniffs the root element and reports whether it lives in the Pencil namespace.
// Data without any root element is not a document; a syntax error before the root is returned.
func IsPencilDocument(data []byte) (bool, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Space == textnode.PencilNamespace, nil
		}
	}
}

// ErrNoArchive is returned by FindArchive when the directory holds no prototype archive.
var ErrNoArchive = errors.New("no prototype archive found")

// FindArchive returns the single prototype archive in dir.
func FindArchive(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read directory: %w", err)
	}

	var found []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ArchiveExt) {
			continue
		}
		found = append(found, filepath.Join(dir, e.Name()))
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w in %s", ErrNoArchive, dir)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("expected a single %s archive in %s, found %d", ArchiveExt, dir, len(found))
	}
}
