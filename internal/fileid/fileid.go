// Package fileid derives deterministic document IDs from a tenant and a source file name.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "doc:"

// DocID returns a stable document ID for a tenant's source file. The same file name
// uploaded by two tenants gets two different IDs.
func DocID(tenantID, sourceFile string) string {
	h := sha256.New()
	h.Write([]byte(tenantID))
	h.Write([]byte{0})
	h.Write([]byte(filepath.Base(filepath.Clean(sourceFile))))
	return prefix + hex.EncodeToString(h.Sum(nil))[:16]
}
