package uacscope

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/text/encoding/unicode"
)

// The namespaces a Windows application manifest may use.
const (
	nsASMv1           = "urn:schemas-microsoft-com:asm.v1"
	nsASMv3           = "urn:schemas-microsoft-com:asm.v3"
	nsWindowsSettings = "http://schemas.microsoft.com/SMI/2005/WindowsSettings"
)

var (
	execLevelQuery = compilePath(
		asmStep("assembly"),
		asmStep("trustInfo"),
		asmStep("security"),
		asmStep("requestedPrivileges"),
		asmStep("requestedExecutionLevel"),
	)
	autoElevateQuery = compilePath(
		asmStep("assembly"),
		asmStep("application"),
		asmStep("windowsSettings"),
		nsStep("autoElevate", nsWindowsSettings),
	)
)

var errNoRootElement = errors.New("document has no root element")

// asmStep matches one path step in either the asm.v1 or asm.v3
// namespace. Real manifests mix the two freely between levels, so every
// ancestor accepts both.
func asmStep(local string) string {
	return fmt.Sprintf("/*[local-name()='%s' and (namespace-uri()='%s' or namespace-uri()='%s')]",
		local, nsASMv1, nsASMv3)
}

// nsStep matches one path step pinned to a single namespace.
func nsStep(local, ns string) string {
	return fmt.Sprintf("/*[local-name()='%s' and namespace-uri()='%s']", local, ns)
}

func compilePath(steps ...string) *xpath.Expr {
	return xpath.MustCompile(strings.Join(steps, ""))
}

// ParseManifest extracts the UAC attributes from one raw manifest
// resource. It never fails: a buffer that is not well-formed XML yields
// a record with ParseError set, the attribute defaults, and the verbatim
// text of the buffer in XML. Malformed manifests are common in the wild
// and diagnostically useful, so they are captured rather than dropped.
//
// FullPath and Name are left empty; the catalog stamps them.
func ParseManifest(data []byte) Manifest {
	m := Manifest{ExecutionLevel: DefaultExecutionLevel}

	doc, err := parseDocument(data)
	if err != nil {
		m.ParseError = true
		m.XML = string(data)
		return m
	}

	if n := xmlquery.QuerySelector(doc, execLevelQuery); n != nil {
		if level, ok := attrValue(n, "level"); ok {
			m.ExecutionLevel = level
		}
		if ui, ok := attrValue(n, "uiAccess"); ok {
			m.UIAccess = parseXMLBool(ui)
		}
	}
	if n := xmlquery.QuerySelector(doc, autoElevateQuery); n != nil {
		m.AutoElevate = parseXMLBool(strings.TrimSpace(n.InnerText()))
	}

	m.XML = renderXML(doc)
	return m
}

// parseDocument decodes and parses the buffer, requiring a root element.
// A buffer of plain character data tokenizes without error but is not a
// well-formed document.
func parseDocument(data []byte) (*xmlquery.Node, error) {
	text, err := decodeManifest(data)
	if err != nil {
		return nil, err
	}
	doc, err := xmlquery.Parse(strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return doc, nil
		}
	}
	return nil, errNoRootElement
}

// decodeManifest converts resource bytes to UTF-8 text. Manifests are
// UTF-8, optionally with a BOM, or UTF-16 with a BOM.
func decodeManifest(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data[2:])
		return string(out), err
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		out, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data[2:])
		return string(out), err
	default:
		return string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})), nil
	}
}

// attrValue looks up an attribute by local name, distinguishing an
// absent attribute from a present-but-empty one.
func attrValue(n *xmlquery.Node, local string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// parseXMLBool follows xs:boolean: only "true" and "1" parse as true.
// Anything else, including "TRUE", is unparsable and defaults to false.
func parseXMLBool(s string) bool {
	return s == "true" || s == "1"
}
