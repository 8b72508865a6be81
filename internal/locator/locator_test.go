package locator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pencil-translator/internal/archive"
	"pencil-translator/internal/archive/archivetest"
	"pencil-translator/internal/textnode"
)

func TestLocateKeepsTreeOrder(t *testing.T) {
	data := archivetest.Zip(t,
		archivetest.File{Name: "page_b.xml", Body: `<p:Page xmlns:p="http://www.evolus.vn/Namespace/Pencil"/>`},
		archivetest.File{Name: "notes.txt", Body: "not xml"},
		archivetest.File{Name: "pages/"},
		archivetest.File{Name: "content.XML", Body: `<?xml version="1.0"?><Document xmlns="http://www.evolus.vn/Namespace/Pencil"/>`},
		archivetest.File{Name: "other.xml", Body: `<svg xmlns="http://www.w3.org/2000/svg"/>`},
		archivetest.File{Name: "empty.xml", Body: ""},
		archivetest.File{Name: "page_a.xml", Body: `<p:Page xmlns:p="http://www.evolus.vn/Namespace/Pencil"><p:Content/></p:Page>`},
	)
	tree, err := archive.Open(data)
	require.NoError(t, err)

	docs, err := Locate(tree)
	require.NoError(t, err)

	var paths []string
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	assert.Equal(t, []string{"page_b.xml", "content.XML", "page_a.xml"}, paths)
}

func TestLocateEmpty(t *testing.T) {
	tree, err := archive.Open(archivetest.Zip(t, archivetest.File{Name: "readme.md", Body: "hi"}))
	require.NoError(t, err)

	docs, err := Locate(tree)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLocateMalformedDocument(t *testing.T) {
	for name, body := range map[string]string{
		"bad comment": `<?xml version="1.0"?><!-- x -- y --><p:Page xmlns:p="http://www.evolus.vn/Namespace/Pencil"/>`,
		"not xml":     `not < xml`,
	} {
		t.Run(name, func(t *testing.T) {
			tree, err := archive.Open(archivetest.Zip(t,
				archivetest.File{Name: "page_1.xml", Body: body},
			))
			require.NoError(t, err)

			_, err = Locate(tree)
			require.ErrorIs(t, err, textnode.ErrDocumentParse)
			assert.Contains(t, err.Error(), "page_1.xml")
		})
	}
}

func TestFindArchive(t *testing.T) {
	dir := t.TempDir()

	_, err := FindArchive(dir)
	require.ErrorIs(t, err, ErrNoArchive)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "proto.epgz"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "texts.csv"), []byte("x"), 0o644))

	got, err := FindArchive(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "proto.epgz"), got)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "second.EPGZ"), []byte("x"), 0o644))
	_, err = FindArchive(dir)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoArchive)
}
