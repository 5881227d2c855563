package application

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// ResolveWindowID derives a stable owner id for a window from where it runs
// and how it identifies itself.
func ResolveWindowID(workspaceRoot, windowFingerprint string) string {
	raw := strings.TrimSpace(workspaceRoot) + "|" + strings.TrimSpace(windowFingerprint)
	hash := sha1.Sum([]byte(raw))
	return hex.EncodeToString(hash[:])
}
