package textnode

import (
	"strings"
	"unicode"
)

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// rebuildRun renders a replacement for the raw character data run.
// Literal whitespace around the run and decoded whitespace around the payload
// are kept, and the run stays a CDATA section when it was one.
func rebuildRun(raw []byte, decoded, newText string, cdata bool) string {
	rawLead := string(raw[:len(raw)-len(trimLeftXMLSpace(raw))])
	rest := raw[len(rawLead):]
	rawTrail := string(rest[len(trimRightXMLSpace(rest)):])

	decodedLead := decoded[:len(decoded)-len(strings.TrimLeftFunc(decoded, unicode.IsSpace))]
	decodedTrail := decoded[len(strings.TrimRightFunc(decoded, unicode.IsSpace)):]

	body := strings.TrimPrefix(decodedLead, normalizeNewlines(rawLead)) +
		newText +
		strings.TrimSuffix(decodedTrail, normalizeNewlines(rawTrail))

	if cdata {
		return rawLead + cdataSection(body) + rawTrail
	}
	return rawLead + textEscaper.Replace(body) + rawTrail
}

// cdataSection wraps s in a CDATA section, splitting any "]]>" it contains.
func cdataSection(s string) string {
	return "<![CDATA[" + strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>") + "]]>"
}

func isXMLSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func trimLeftXMLSpace(b []byte) []byte {
	for len(b) > 0 && isXMLSpace(b[0]) {
		b = b[1:]
	}
	return b
}

func trimRightXMLSpace(b []byte) []byte {
	for len(b) > 0 && isXMLSpace(b[len(b)-1]) {
		b = b[:len(b)-1]
	}
	return b
}

// normalizeNewlines applies the XML end-of-line handling the decoder performs.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
