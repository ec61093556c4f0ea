package extract

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/hyperjump/manabu/internal/models"
)

var formatByExt = map[string]models.FormatTag{
	".pdf":  models.FormatPDF,
	".txt":  models.FormatText,
	".md":   models.FormatText,
	".docx": models.FormatWord,
	".doc":  models.FormatWord,
	".odt":  models.FormatWord,
	".rtf":  models.FormatWord,
	".pptx": models.FormatSlides,
	".ppt":  models.FormatLegacySlides,
	".xlsx": models.FormatSpreadsheet,
}

// SupportedExtension reports whether files with this extension can be extracted.
func SupportedExtension(ext string) bool {
	_, ok := formatByExt[strings.ToLower(ext)]
	return ok
}

// SupportedExtensions lists every extractable extension, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(formatByExt))
	for ext := range formatByExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// DetectFormat returns the extension used to pick a reader and its format tag.
// The file extension wins when it is known; otherwise content is sniffed.
func DetectFormat(path string, content []byte) (string, models.FormatTag, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := formatByExt[ext]; ok {
		return ext, f, true
	}
	if len(content) == 0 {
		return "", "", false
	}
	mtype := mimetype.Detect(content)
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return ".txt", models.FormatText, true
		}
		if f, ok := formatByExt[m.Extension()]; ok {
			return m.Extension(), f, true
		}
	}
	return "", "", false
}
