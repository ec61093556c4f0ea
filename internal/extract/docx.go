package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

var (
	// wParagraph matches one <w:p ...>...</w:p> element but not <w:pPr>.
	wParagraph = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	wtTag      = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// findDocxMainDocumentPath finds the main document part from [Content_Types].xml.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	ct, err := readZipEntry(zr, contentTypesPath)
	if err != nil || ct == nil {
		return ""
	}
	s := string(ct)
	if m := partNameRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	if m := partNameRe2.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	return ""
}

// extractDOCX returns the document body as one section with one line per paragraph.
// Runs inside a paragraph are concatenated as written.
func extractDOCX(content []byte) ([]section, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readZipEntry(zr, docPath)
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: %w", err)
	}
	if docXML == nil {
		return nil, fmt.Errorf("extract DOCX: %s not found", docPath)
	}

	var lines []string
	for _, p := range wParagraph.FindAllString(string(docXML), -1) {
		var b strings.Builder
		for _, run := range wtTag.FindAllStringSubmatch(p, -1) {
			b.WriteString(html.UnescapeString(run[1]))
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return []section{{text: strings.Join(lines, "\n")}}, nil
}
