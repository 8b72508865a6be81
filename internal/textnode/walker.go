package textnode

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

const (
	// PencilNamespace is the XML namespace of Pencil documents and shape metadata.
	PencilNamespace = "http://www.evolus.vn/Namespace/Pencil"
	// SVGNamespace is the namespace of rendered shape markup.
	SVGNamespace = "http://www.w3.org/2000/svg"
)

// ErrDocumentParse is returned when a located document is not well-formed XML.
var ErrDocumentParse = errors.New("document parse error")

// DefaultPropertyNames are the Pencil shape and page properties holding user-visible text.
// Geometry, style and identifier properties are never listed here.
var DefaultPropertyNames = []string{
	"label",
	"text",
	"textContent",
	"contentText",
	"name",
	"note",
}

var cdataOpen = []byte("<![CDATA[")

// Node is one text-bearing position of a document.
type Node struct {
	// ID is the document path joined with the dotted element index path, e.g. "page_1.xml#0.1.3".
	// Text following the n-th child of an element gets the suffix "+n", e.g. "page_1.xml#0.1.3+0".
	ID string
	// Path is the member path of the document.
	Path string
	// Text is the payload with surrounding whitespace trimmed.
	Text string

	start, end int
	decoded    string
	cdata      bool
}

// ApplyResult is the outcome of rewriting one document.
type ApplyResult struct {
	// Data is the rewritten document. It is the input slice itself when nothing changed.
	Data []byte
	// Matched lists the node IDs that were present in the replacement mapping.
	Matched []string
	// Changes counts nodes whose text actually changed.
	Changes int
}

// Walker visits the visible-text nodes of Pencil documents.
type Walker struct {
	properties map[string]bool
}

// NewWalker creates a Walker recognizing the given property names, or
// DefaultPropertyNames when none are given.
func NewWalker(propertyNames ...string) *Walker {
	if len(propertyNames) == 0 {
		propertyNames = DefaultPropertyNames
	}
	w := &Walker{properties: make(map[string]bool, len(propertyNames))}
	for _, n := range propertyNames {
		w.properties[n] = true
	}
	return w
}

// Extract returns the text nodes of a document in document order.
func (w *Walker) Extract(docPath string, data []byte) ([]Node, error) {
	return w.scan(docPath, data)
}

// Apply replaces the payload of every node whose ID is in texts. All bytes
// outside the replaced payloads are copied unchanged.
func (w *Walker) Apply(docPath string, data []byte, texts map[string]string) (*ApplyResult, error) {
	nodes, err := w.scan(docPath, data)
	if err != nil {
		return nil, err
	}

	res := &ApplyResult{}
	var out bytes.Buffer
	last := 0

	for _, n := range nodes {
		newText, ok := texts[n.ID]
		if !ok {
			continue
		}
		res.Matched = append(res.Matched, n.ID)
		if newText == n.Text {
			continue
		}

		out.Write(data[last:n.start])
		out.WriteString(rebuildRun(data[n.start:n.end], n.decoded, newText, n.cdata))
		last = n.end
		res.Changes++
	}

	if res.Changes == 0 {
		res.Data = data
		return res, nil
	}
	out.Write(data[last:])
	res.Data = out.Bytes()
	return res, nil
}

// frame tracks one open element during the scan.
type frame struct {
	path     string
	children int
	// textual frames yield their leading run and the runs after each child.
	textual bool
	// named is set inside an element carrying a Pencil name attribute;
	// every descendant of such an element is textual.
	named bool

	open       bool
	runID      string
	start, end int
	text       strings.Builder
	cdata      bool
}

func (f *frame) openRun(id string) {
	f.open = f.textual
	f.runID = id
	f.start = -1
	f.text.Reset()
	f.cdata = false
}

func (w *Walker) scan(docPath string, data []byte) ([]Node, error) {
	d := xml.NewDecoder(bytes.NewReader(data))

	stack := []*frame{{}}
	var nodes []Node

	for {
		start := int(d.InputOffset())
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDocumentParse, docPath, err)
		}
		end := int(d.InputOffset())
		top := stack[len(stack)-1]

		switch t := tok.(type) {
		case xml.StartElement:
			nodes = top.closeRun(docPath, nodes)

			idx := strconv.Itoa(top.children)
			top.children++
			p := idx
			if top.path != "" {
				p = top.path + "." + idx
			}
			named := top.named || hasPencilName(t)
			child := &frame{
				path:    p,
				textual: named || w.isTextual(t),
				named:   named,
			}
			child.openRun(p)
			stack = append(stack, child)

		case xml.EndElement:
			nodes = top.closeRun(docPath, nodes)
			stack = stack[:len(stack)-1]

			// Text after a child is keyed by the parent path and the child index.
			parent := stack[len(stack)-1]
			if parent.path != "" {
				parent.openRun(parent.path + "+" + strconv.Itoa(parent.children-1))
			}

		case xml.CharData:
			if !top.open {
				continue
			}
			if top.start < 0 {
				top.start = start
			}
			top.end = end
			top.text.Write(t)
			if bytes.HasPrefix(data[start:], cdataOpen) {
				top.cdata = true
			}

		default:
			// Comments, processing instructions and directives end the current run.
			nodes = top.closeRun(docPath, nodes)
		}
	}

	if len(stack) != 1 {
		return nil, fmt.Errorf("%w: %s: unclosed elements", ErrDocumentParse, docPath)
	}
	return nodes, nil
}

func (f *frame) closeRun(docPath string, nodes []Node) []Node {
	if !f.open {
		return nodes
	}
	f.open = false
	if f.start < 0 {
		return nodes
	}

	decoded := f.text.String()
	trimmed := strings.TrimFunc(decoded, unicode.IsSpace)
	if trimmed == "" {
		return nodes
	}

	return append(nodes, Node{
		ID:      docPath + "#" + f.runID,
		Path:    docPath,
		Text:    trimmed,
		start:   f.start,
		end:     f.end,
		decoded: decoded,
		cdata:   f.cdata,
	})
}

func (w *Walker) isTextual(se xml.StartElement) bool {
	switch se.Name.Space {
	case PencilNamespace:
		if strings.EqualFold(se.Name.Local, "property") {
			return w.properties[attrValue(se, "", "name")]
		}
	case SVGNamespace:
		if se.Name.Local == "text" || se.Name.Local == "tspan" {
			return true
		}
	}
	return false
}

func hasPencilName(se xml.StartElement) bool {
	for _, a := range se.Attr {
		if a.Name.Space == PencilNamespace && a.Name.Local == "name" {
			return true
		}
	}
	return false
}

func attrValue(se xml.StartElement, space, local string) string {
	for _, a := range se.Attr {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
