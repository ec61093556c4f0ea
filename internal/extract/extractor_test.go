package extract

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/manabu/internal/models"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func extractOne(t *testing.T, path string) []models.TextUnit {
	t.Helper()
	return NewExtractor().Extract(models.RawDocument{Path: path, TenantID: "tenant-a"})
}

func TestExtract_plain(t *testing.T) {
	units := extractOne(t, writeFile(t, "notes.md", []byte("Hello world\nLine 2")))
	if len(units) != 1 {
		t.Fatalf("len(units) = %d, want 1", len(units))
	}
	u := units[0]
	if u.Content != "Hello world\nLine 2" {
		t.Errorf("content = %q", u.Content)
	}
	if u.Metadata.TenantID != "tenant-a" || u.Metadata.SourceFile != "notes.md" {
		t.Errorf("metadata = %+v", u.Metadata)
	}
	if u.Metadata.Format != models.FormatText || u.Metadata.UnitIndex != nil {
		t.Errorf("format = %q, unit index = %v", u.Metadata.Format, u.Metadata.UnitIndex)
	}
}

func TestExtract_plainInvalidUTF8(t *testing.T) {
	units := extractOne(t, writeFile(t, "bad.txt", []byte("hello\x80world")))
	if len(units) != 1 || units[0].Content != "hello\uFFFDworld" {
		t.Fatalf("units = %+v", units)
	}
}

func TestExtract_emptyFileYieldsNothing(t *testing.T) {
	units := extractOne(t, writeFile(t, "empty.txt", []byte("   \n")))
	if units == nil || len(units) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", units)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	units := NewExtractor().Extract(models.RawDocument{Path: "/nonexistent/path/file.txt", TenantID: "t"})
	if len(units) != 0 {
		t.Errorf("expected no units, got %d", len(units))
	}
}

func TestExtract_unsupportedExtension(t *testing.T) {
	units := extractOne(t, writeFile(t, "image.xyz", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d}))
	if len(units) != 0 {
		t.Errorf("expected unsupported file to be skipped, got %d units", len(units))
	}
}

func TestExtract_missingTenantYieldsNothing(t *testing.T) {
	units := NewExtractor().Extract(models.RawDocument{Path: writeFile(t, "a.txt", []byte("text"))})
	if len(units) != 0 {
		t.Errorf("expected no units without tenant, got %d", len(units))
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content []byte
		ext     string
		format  models.FormatTag
		ok      bool
	}{
		{"pdf by extension", "a.PDF", nil, ".pdf", models.FormatPDF, true},
		{"legacy slides", "deck.ppt", nil, ".ppt", models.FormatLegacySlides, true},
		{"rtf is word", "essay.rtf", nil, ".rtf", models.FormatWord, true},
		{"sniffed pdf", "upload", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"), ".pdf", models.FormatPDF, true},
		{"sniffed text", "README", []byte("plain words only\n"), ".txt", models.FormatText, true},
		{"empty no ext", "blob", nil, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, format, ok := DetectFormat(tt.path, tt.content)
			if ok != tt.ok || ext != tt.ext || format != tt.format {
				t.Errorf("DetectFormat() = (%q, %q, %v), want (%q, %q, %v)", ext, format, ok, tt.ext, tt.format, tt.ok)
			}
		})
	}
}

func docxWithParagraphs(paras ...string) []byte {
	var body strings.Builder
	for _, p := range paras {
		body.WriteString(`<w:p w:rsidR="00AB"><w:pPr><w:jc w:val="left"/></w:pPr><w:r><w:t xml:space="preserve">` + p + `</w:t></w:r></w:p>`)
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func TestExtract_docxParagraphs(t *testing.T) {
	units := extractOne(t, writeFile(t, "essay.docx", docxWithParagraphs("First paragraph", "Second &amp; last")))
	if len(units) != 1 {
		t.Fatalf("len(units) = %d, want 1", len(units))
	}
	if units[0].Content != "First paragraph\nSecond & last" {
		t.Errorf("content = %q", units[0].Content)
	}
	if units[0].Metadata.Format != models.FormatWord {
		t.Errorf("format = %q", units[0].Metadata.Format)
	}
}

func TestExtractDOCX_contentTypesOverride(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ct, _ := w.Create("[Content_Types].xml")
	_, _ = ct.Write([]byte(`<Types><Override ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml" PartName="/word/document3.xml"/></Types>`))
	fw, _ := w.Create("word/document3.xml")
	_, _ = fw.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Reversed order test</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()

	sections, err := extractDOCX(buf.Bytes())
	if err != nil {
		t.Fatalf("extractDOCX: %v", err)
	}
	if len(sections) != 1 || sections[0].text != "Reversed order test" {
		t.Errorf("sections = %+v", sections)
	}
}

func TestExtractDOCX_notZip(t *testing.T) {
	if _, err := extractDOCX([]byte("not a zip")); err == nil {
		t.Error("expected error for invalid docx")
	}
}

func pptxWithSlides(slides map[string]string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, xml := range slides {
		fw, _ := w.Create(name)
		_, _ = fw.Write([]byte(xml))
	}
	_ = w.Close()
	return buf.Bytes()
}

const titledSlide = `<p:sld><p:cSld><p:spTree>` +
	`<p:sp><p:nvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:txBody><a:p><a:r><a:t>Photosynthesis</a:t></a:r></a:p></p:txBody></p:sp>` +
	`<p:sp><p:spPr/><p:txBody><a:p><a:r><a:t>Light reactions</a:t></a:r></a:p><a:p><a:r><a:t>Calvin cycle</a:t></a:r></a:p></p:txBody></p:sp>` +
	`</p:spTree></p:cSld></p:sld>`

func TestExtract_pptxPerSlide(t *testing.T) {
	content := pptxWithSlides(map[string]string{
		"ppt/slides/slide10.xml": `<p:sld><p:sp><p:txBody><a:p><a:r><a:t>Tenth</a:t></a:r></a:p></p:txBody></p:sp></p:sld>`,
		"ppt/slides/slide2.xml":  titledSlide,
		"ppt/slides/slide3.xml":  `<p:sld><p:sp><p:txBody><a:p/></p:txBody></p:sp></p:sld>`,
	})
	units := extractOne(t, writeFile(t, "bio.pptx", content))
	if len(units) != 2 {
		t.Fatalf("len(units) = %d, want 2 (empty slide skipped)", len(units))
	}
	want := "SLIDE TITLE: Photosynthesis\n\nPhotosynthesis\n\nLight reactions\nCalvin cycle"
	if units[0].Content != want {
		t.Errorf("slide 2 content = %q, want %q", units[0].Content, want)
	}
	if units[0].Metadata.UnitIndex == nil || *units[0].Metadata.UnitIndex != 1 {
		t.Errorf("first slide unit index = %v", units[0].Metadata.UnitIndex)
	}
	if units[1].Content != "Tenth" || *units[1].Metadata.UnitIndex != 3 {
		t.Errorf("third slide = %q / %v", units[1].Content, units[1].Metadata.UnitIndex)
	}
}

func TestExtract_pptxDeckOrder(t *testing.T) {
	slide := func(text string) string {
		return `<p:sld><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:sld>`
	}
	content := pptxWithSlides(map[string]string{
		"ppt/presentation.xml": `<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" ` +
			`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
			`<p:sldIdLst><p:sldId id="258" r:id="rId4"/><p:sldId id="256" r:id="rId2"/><p:sldId id="257" r:id="rId3"/></p:sldIdLst>` +
			`</p:presentation>`,
		"ppt/_rels/presentation.xml.rels": `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="slideMaster" Target="slideMasters/slideMaster1.xml"/>` +
			`<Relationship Id="rId2" Type="slide" Target="slides/slide1.xml"/>` +
			`<Relationship Id="rId3" Type="slide" Target="slides/slide2.xml"/>` +
			`<Relationship Id="rId4" Type="slide" Target="/ppt/slides/slide3.xml"/>` +
			`</Relationships>`,
		"ppt/slides/slide1.xml": slide("Cell membrane"),
		"ppt/slides/slide2.xml": slide("Osmosis"),
		"ppt/slides/slide3.xml": slide("Agenda"),
	})
	units := extractOne(t, writeFile(t, "deck.pptx", content))
	want := []string{"Agenda", "Cell membrane", "Osmosis"}
	if len(units) != len(want) {
		t.Fatalf("len(units) = %d, want %d", len(units), len(want))
	}
	for i, u := range units {
		if u.Content != want[i] {
			t.Errorf("units[%d] = %q, want %q", i, u.Content, want[i])
		}
		if u.Metadata.UnitIndex == nil || *u.Metadata.UnitIndex != i+1 {
			t.Errorf("units[%d] unit index = %v, want %d", i, u.Metadata.UnitIndex, i+1)
		}
	}
}

func pptRecord(verInstance, recType uint16, body []byte) []byte {
	h := make([]byte, 8)
	binary.LittleEndian.PutUint16(h[0:], verInstance)
	binary.LittleEndian.PutUint16(h[2:], recType)
	binary.LittleEndian.PutUint32(h[4:], uint32(len(body)))
	return append(h, body...)
}

func utf16le(s string) []byte {
	u := utf16.Encode([]rune(s))
	b := make([]byte, 2*len(u))
	for i, c := range u {
		binary.LittleEndian.PutUint16(b[2*i:], c)
	}
	return b
}

func TestPPTTextAtoms(t *testing.T) {
	inner := append(pptRecord(0, recTextCharsAtom, utf16le("Cell theory\rAll life")), pptRecord(0, recTextBytesAtom, []byte("Mitosis"))...)
	inner = append(inner, pptRecord(0, 0x0FBA, utf16le("ignored name"))...)
	stream := pptRecord(0x000F, 0x03E8, inner)

	texts, err := pptTextAtoms(stream)
	if err != nil {
		t.Fatalf("pptTextAtoms: %v", err)
	}
	if len(texts) != 2 || texts[0] != "Cell theory\nAll life" || texts[1] != "Mitosis" {
		t.Errorf("texts = %q", texts)
	}
}

func TestPPTTextAtoms_truncatedRecord(t *testing.T) {
	rec := pptRecord(0, recTextBytesAtom, []byte("abcdef"))
	if _, err := pptTextAtoms(rec[:10]); err == nil {
		t.Error("expected error for record overrunning the stream")
	}
}

func TestExtract_pptNotCompoundFile(t *testing.T) {
	units := extractOne(t, writeFile(t, "old.ppt", []byte("definitely not OLE")))
	if len(units) != 0 {
		t.Errorf("expected no units, got %d", len(units))
	}
}

func TestExtract_xlsx(t *testing.T) {
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Element")
	f.SetCellValue("Sheet1", "B1", "Symbol")
	f.SetCellValue("Sheet1", "A2", "Oxygen")
	f.SetCellValue("Sheet1", "B2", "O")
	f.NewSheet("Empty")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	f.Close()

	units := extractOne(t, writeFile(t, "chem.xlsx", buf.Bytes()))
	if len(units) != 1 {
		t.Fatalf("len(units) = %d, want 1", len(units))
	}
	want := "SHEET: Sheet1\n[TABLE 1]\nHeaders: Element | Symbol\n" + strings.Repeat("-", 50) + "\nOxygen | O\n[END TABLE]"
	if units[0].Content != want {
		t.Errorf("content = %q, want %q", units[0].Content, want)
	}
	if !units[0].Metadata.HasTabularContent || units[0].Metadata.Format != models.FormatSpreadsheet {
		t.Errorf("metadata = %+v", units[0].Metadata)
	}
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	if len(exts) != 10 || exts[0] != ".doc" {
		t.Errorf("SupportedExtensions() = %v", exts)
	}
	for _, ext := range exts {
		if !SupportedExtension(strings.ToUpper(ext)) {
			t.Errorf("SupportedExtension(%q) = false", strings.ToUpper(ext))
		}
	}
}

func TestExtractPlain_byteOrderMarks(t *testing.T) {
	le := append([]byte{0xFF, 0xFE}, utf16le("Résumé")...)
	be := []byte{0xFE, 0xFF, 0x00, 'o', 0x00, 'k'}
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "notes"...), "notes"},
		{"utf16 le", le, "Résumé"},
		{"utf16 be", be, "ok"},
		{"no bom", []byte("plain"), "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections, err := extractPlain(tt.content)
			if err != nil || len(sections) != 1 || sections[0].text != tt.want {
				t.Errorf("extractPlain() = %+v, %v; want %q", sections, err, tt.want)
			}
		})
	}
}
