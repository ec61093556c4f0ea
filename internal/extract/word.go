package extract

import (
	"fmt"

	"github.com/lu4p/cat"
)

// extractWord reads .odt, .rtf and .doc files with the generic structured-document reader.
func extractWord(path string) ([]section, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("read word document: %w", err)
	}
	return []section{{text: text}}, nil
}
