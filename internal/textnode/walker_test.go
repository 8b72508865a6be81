package textnode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<?xml version="1.0" encoding="UTF-8"?>
<p:Page xmlns:p="http://www.evolus.vn/Namespace/Pencil">
  <p:Properties>
    <p:Property name="name">Login page</p:Property>
    <p:Property name="id">page_1</p:Property>
  </p:Properties>
  <p:Content>
    <g xmlns="http://www.w3.org/2000/svg" p:type="Shape" p:def="Evolus.Common:Label">
      <p:metadata>
        <p:property name="label"><![CDATA[Login]]></p:property>
        <p:property name="textColor"><![CDATA[#000000FF]]></p:property>
      </p:metadata>
      <text p:name="text" x="0" y="0"><tspan>Login</tspan></text>
    </g>
    <g xmlns="http://www.w3.org/2000/svg" p:type="Shape" p:def="Evolus.Common:RichTextBox">
      <p:metadata>
        <p:property name="textContent"><![CDATA[<div>Cancel &amp; <b>go</b></div>]]></p:property>
        <p:property name="box"><![CDATA[200,40]]></p:property>
      </p:metadata>
      <rect p:name="bg" width="200" height="40"/>
    </g>
  </p:Content>
</p:Page>
`

type idText struct {
	ID   string
	Text string
}

func collect(nodes []Node) []idText {
	out := make([]idText, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, idText{n.ID, n.Text})
	}
	return out
}

func TestExtractVisibleText(t *testing.T) {
	nodes, err := NewWalker().Extract("page_1.xml", []byte(samplePage))
	require.NoError(t, err)

	assert.Equal(t, []idText{
		{"page_1.xml#0.0.0", "Login page"},
		{"page_1.xml#0.1.0.0.0", "Login"},
		{"page_1.xml#0.1.0.1.0", "Login"},
		{"page_1.xml#0.1.1.0.0", "<div>Cancel &amp; <b>go</b></div>"},
	}, collect(nodes))

	for _, n := range nodes {
		assert.Equal(t, "page_1.xml", n.Path)
	}
}

func TestExtractIDsDoNotDependOnText(t *testing.T) {
	w := NewWalker()
	before, err := w.Extract("page_1.xml", []byte(samplePage))
	require.NoError(t, err)

	edited := strings.ReplaceAll(samplePage, "Login", "Anmelden")
	after, err := w.Extract("page_1.xml", []byte(edited))
	require.NoError(t, err)

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
	}
	assert.Equal(t, "Anmelden", after[1].Text)
}

func TestExtractCustomProperties(t *testing.T) {
	nodes, err := NewWalker("textColor").Extract("page_1.xml", []byte(samplePage))
	require.NoError(t, err)

	assert.Equal(t, []idText{
		{"page_1.xml#0.1.0.0.1", "#000000FF"},
		{"page_1.xml#0.1.0.1.0", "Login"},
	}, collect(nodes))
}

func TestExtractMalformed(t *testing.T) {
	_, err := NewWalker().Extract("page_1.xml", []byte(`<p:Page xmlns:p="http://www.evolus.vn/Namespace/Pencil"><p:Content>`))
	require.ErrorIs(t, err, ErrDocumentParse)

	_, err = NewWalker().Extract("page_1.xml", []byte(`<p:Page xmlns:p="http://www.evolus.vn/Namespace/Pencil"></p:Content>`))
	require.ErrorIs(t, err, ErrDocumentParse)
}

func TestExtractCommentEndsLeadingRun(t *testing.T) {
	doc := `<p:Page xmlns:p="http://www.evolus.vn/Namespace/Pencil"><p:Property name="note"><!-- x -->Tail text</p:Property></p:Page>`

	nodes, err := NewWalker().Extract("p.xml", []byte(doc))
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestApplyRewritesOnlyPayloads(t *testing.T) {
	w := NewWalker()
	res, err := w.Apply("page_1.xml", []byte(samplePage), map[string]string{
		"page_1.xml#0.1.0.0.0": "Sign in",
		"page_1.xml#0.1.0.1.0": "Sign in",
		"page_1.xml#0.0.0":     "Login page",
		"other.xml#0.0":        "ignored",
	})
	require.NoError(t, err)

	want := strings.Replace(samplePage, "<![CDATA[Login]]>", "<![CDATA[Sign in]]>", 1)
	want = strings.Replace(want, "<tspan>Login</tspan>", "<tspan>Sign in</tspan>", 1)
	assert.Equal(t, want, string(res.Data))
	assert.Equal(t, 2, res.Changes)
	assert.ElementsMatch(t, []string{"page_1.xml#0.0.0", "page_1.xml#0.1.0.0.0", "page_1.xml#0.1.0.1.0"}, res.Matched)
}

func TestApplyIdentityKeepsBytes(t *testing.T) {
	w := NewWalker()
	nodes, err := w.Extract("page_1.xml", []byte(samplePage))
	require.NoError(t, err)

	texts := make(map[string]string)
	for _, n := range nodes {
		texts[n.ID] = n.Text
	}

	res, err := w.Apply("page_1.xml", []byte(samplePage), texts)
	require.NoError(t, err)
	assert.Equal(t, samplePage, string(res.Data))
	assert.Zero(t, res.Changes)
	assert.Len(t, res.Matched, len(nodes))
}

func TestApplyEscapesAndKeepsWhitespace(t *testing.T) {
	doc := "<p:Page xmlns:p=\"http://www.evolus.vn/Namespace/Pencil\"><p:Property name=\"note\">\n   Hello  \n  </p:Property></p:Page>"

	w := NewWalker()
	res, err := w.Apply("p.xml", []byte(doc), map[string]string{"p.xml#0.0": "a < b & c"})
	require.NoError(t, err)

	assert.Equal(t,
		"<p:Page xmlns:p=\"http://www.evolus.vn/Namespace/Pencil\"><p:Property name=\"note\">\n   a &lt; b &amp; c  \n  </p:Property></p:Page>",
		string(res.Data))

	nodes, err := w.Extract("p.xml", res.Data)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "a < b & c", nodes[0].Text)
}

func TestApplyCDATAKeepsInnerWhitespaceAndSplitsTerminator(t *testing.T) {
	doc := `<p:Page xmlns:p="http://www.evolus.vn/Namespace/Pencil"><p:property name="label">
    <![CDATA[  Save  ]]>
  </p:property></p:Page>`

	w := NewWalker()
	res, err := w.Apply("p.xml", []byte(doc), map[string]string{"p.xml#0.0": "odd ]]> text"})
	require.NoError(t, err)

	assert.Contains(t, string(res.Data), "\n    <![CDATA[  odd ]]]]><![CDATA[> text  ]]>\n  </p:property>")

	nodes, err := w.Extract("p.xml", res.Data)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "odd ]]> text", nodes[0].Text)
	assert.Equal(t, "p.xml#0.0", nodes[0].ID)
}

func TestApplyMalformed(t *testing.T) {
	_, err := NewWalker().Apply("p.xml", []byte("<a><b></a>"), map[string]string{"p.xml#0": "x"})
	require.ErrorIs(t, err, ErrDocumentParse)
}

const namedShape = `<p:Page xmlns:p="http://www.evolus.vn/Namespace/Pencil"><p:Content>` +
	`<g xmlns="http://www.w3.org/2000/svg" p:type="Shape">` +
	`<p:metadata><p:property name="label"><![CDATA[Login]]></p:property></p:metadata>` +
	`<foreignObject p:name="text"><div xmlns="http://www.w3.org/1999/xhtml">Login <b>now</b>!</div></foreignObject>` +
	`<text>Hello <tspan>World</tspan> again</text>` +
	`</g></p:Content></p:Page>`

func TestExtractTextUnderNamedElementAndAfterChildren(t *testing.T) {
	nodes, err := NewWalker().Extract("p.xml", []byte(namedShape))
	require.NoError(t, err)

	assert.Equal(t, []idText{
		{"p.xml#0.0.0.0.0", "Login"},
		{"p.xml#0.0.0.1.0", "Login"},
		{"p.xml#0.0.0.1.0.0", "now"},
		{"p.xml#0.0.0.1.0+0", "!"},
		{"p.xml#0.0.0.2", "Hello"},
		{"p.xml#0.0.0.2.0", "World"},
		{"p.xml#0.0.0.2+0", "again"},
	}, collect(nodes))
}

func TestApplyRewritesNamedAndTrailingText(t *testing.T) {
	w := NewWalker()
	res, err := w.Apply("p.xml", []byte(namedShape), map[string]string{
		"p.xml#0.0.0.0.0": "Sign in",
		"p.xml#0.0.0.1.0": "Sign in",
		"p.xml#0.0.0.2+0": "once more",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Changes)

	want := strings.Replace(namedShape, "<![CDATA[Login]]>", "<![CDATA[Sign in]]>", 1)
	want = strings.Replace(want, ">Login <b>", ">Sign in <b>", 1)
	want = strings.Replace(want, "</tspan> again</text>", "</tspan> once more</text>", 1)
	assert.Equal(t, want, string(res.Data))

	again, err := w.Extract("p.xml", res.Data)
	require.NoError(t, err)
	before, err := w.Extract("p.xml", []byte(namedShape))
	require.NoError(t, err)
	require.Len(t, again, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, again[i].ID)
	}
}

func TestTrailingTextOutsideVisibleElementsIsIgnored(t *testing.T) {
	doc := `<p:Page xmlns:p="http://www.evolus.vn/Namespace/Pencil"><p:Content><g xmlns="http://www.w3.org/2000/svg"><rect/> stray</g></p:Content></p:Page>`

	nodes, err := NewWalker().Extract("p.xml", []byte(doc))
	require.NoError(t, err)
	assert.Empty(t, nodes)
}
