package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrPathEscape is returned by ResolvePath when the requested file falls
// outside the share root.
var ErrPathEscape = fmt.Errorf("upload: path escapes share root")

// ResolvePath joins root and requested, rejecting traversal attempts along
// the lines of the teacher's secureFileServer: a ".."/NUL check on the
// NFC-normalized request (no percent-decoding is done here), then a
// filepath.Rel containment check against the symlink-resolved root
// (ManuGH-xg2g/internal/api/fileserver.go).
func ResolvePath(root, requested string) (string, error) {
	if looksLikeTraversal(requested) {
		return "", ErrPathEscape
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	full := filepath.Join(absRoot, requested)

	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", os.ErrNotExist
		}
		return "", err
	}

	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", ErrPathEscape
	}
	return realPath, nil
}

func looksLikeTraversal(p string) bool {
	normalized := strings.ToLower(norm.NFC.String(p))
	if strings.Contains(normalized, "..") {
		return true
	}
	return strings.IndexByte(p, 0x00) >= 0
}
