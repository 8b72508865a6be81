package table

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleRows = []Row{
	{ID: "page_1.xml#0.0.0", Path: "page_1.xml", OriginalText: "Login", NewText: "Sign in"},
	{ID: "page_1.xml#0.1.0", Path: "page_1.xml", OriginalText: "Say \"hi\",\nthen leave", NewText: ""},
}

func TestCSVWriteWithoutNewText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRows[:1], FormatCSV, false))

	assert.Equal(t, "id,path,original_text\npage_1.xml#0.0.0,page_1.xml,Login\n", buf.String())
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRows, FormatCSV, true))

	rows, err := Read(&buf, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, sampleRows, rows)
}

func TestCSVReadHandEditedTable(t *testing.T) {
	in := "\ufeffNew_Text, id ,comment\n" +
		"Hola,page_1.xml#0.0.0,checked\n" +
		",,\n" +
		"Adiós,page_1.xml#0.1.0\n"

	rows, err := Read(strings.NewReader(in), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{ID: "page_1.xml#0.0.0", NewText: "Hola"},
		{ID: "page_1.xml#0.1.0", NewText: "Adiós"},
	}, rows)
}

func TestCSVReadMissingID(t *testing.T) {
	_, err := Read(strings.NewReader("path,new_text\na,b\n"), FormatCSV)
	require.ErrorIs(t, err, ErrMissingColumn)

	_, err = Read(strings.NewReader(""), FormatCSV)
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestJSONFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texts.json")
	require.Equal(t, FormatJSON, FormatFromPath(path))

	require.NoError(t, WriteFile(path, sampleRows, FormatJSON, true))

	rows, err := ReadFile(path, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, sampleRows, rows)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xlsx")
	require.Error(t, err)
	assert.Equal(t, FormatCSV, FormatFromPath("texts.csv"))
}
