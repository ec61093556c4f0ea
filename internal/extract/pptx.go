package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const slideTitlePrefix = "SLIDE TITLE: "

var (
	slidePathRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	// pShape matches one <p:sp> shape but not <p:spPr>.
	pShape      = regexp.MustCompile(`(?s)<p:sp[ >].*?</p:sp>`)
	titleHolder = regexp.MustCompile(`<p:ph[^>]*type="(?:title|ctrTitle)"`)
	aParagraph  = regexp.MustCompile(`(?s)<a:p[ >].*?</a:p>|<a:p/>`)
	atTag       = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
)

type presentationPart struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsPart struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// extractPPTX returns one section per slide in deck order, numbered from 1. The title, if
// any, comes first with a "SLIDE TITLE: " prefix, followed by every shape's text block.
func extractPPTX(content []byte) ([]section, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract PPTX: not a zip: %w", err)
	}
	names, err := slideOrder(zr)
	if err != nil {
		return nil, fmt.Errorf("extract PPTX: %w", err)
	}

	sections := make([]section, 0, len(names))
	for i, name := range names {
		slideXML, err := readZipEntry(zr, name)
		if err != nil {
			return nil, fmt.Errorf("extract PPTX: %w", err)
		}
		if slideXML == nil {
			continue
		}
		sections = append(sections, section{index: i + 1, text: slideText(string(slideXML))})
	}
	return sections, nil
}

// slideOrder lists slide part names in the order the deck shows them, following
// presentation.xml and its relationships. Packages without them fall back to the slideN
// file numbers.
func slideOrder(zr *zip.Reader) ([]string, error) {
	presXML, err := readZipEntry(zr, "ppt/presentation.xml")
	if err != nil {
		return nil, err
	}
	relsXML, err := readZipEntry(zr, "ppt/_rels/presentation.xml.rels")
	if err != nil {
		return nil, err
	}
	if presXML != nil && relsXML != nil {
		var pres presentationPart
		var rels relationshipsPart
		if xml.Unmarshal(presXML, &pres) == nil && xml.Unmarshal(relsXML, &rels) == nil && len(pres.SlideIDs) > 0 {
			targets := make(map[string]string, len(rels.Relationships))
			for _, r := range rels.Relationships {
				targets[r.ID] = slidePartName(r.Target)
			}
			names := make([]string, 0, len(pres.SlideIDs))
			for _, id := range pres.SlideIDs {
				if name, ok := targets[id.RelID]; ok {
					names = append(names, name)
				}
			}
			return names, nil
		}
	}

	type numbered struct {
		n    int
		name string
	}
	var slides []numbered
	for _, f := range zr.File {
		m := slidePathRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, numbered{n: n, name: f.Name})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })
	names := make([]string, len(slides))
	for i, s := range slides {
		names[i] = s.name
	}
	return names, nil
}

// slidePartName resolves a relationship target against the ppt/ folder.
func slidePartName(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join("ppt", target)
}

func slideText(slideXML string) string {
	var title string
	var blocks []string
	for _, sp := range pShape.FindAllString(slideXML, -1) {
		text := shapeText(sp)
		if text == "" {
			continue
		}
		if title == "" && titleHolder.MatchString(sp) {
			title = text
		}
		blocks = append(blocks, text)
	}
	if title != "" {
		blocks = append([]string{slideTitlePrefix + title}, blocks...)
	}
	return strings.Join(blocks, "\n\n")
}

// shapeText joins the shape's paragraphs with newlines.
func shapeText(sp string) string {
	var paras []string
	for _, p := range aParagraph.FindAllString(sp, -1) {
		var b strings.Builder
		for _, run := range atTag.FindAllStringSubmatch(p, -1) {
			b.WriteString(html.UnescapeString(run[1]))
		}
		paras = append(paras, b.String())
	}
	return strings.TrimSpace(strings.Join(paras, "\n"))
}
