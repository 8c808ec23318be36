package audio

import (
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName returns the NFC form of a file or directory name.
// macOS reports names in NFD, so the same speaker directory
// would otherwise encode to two different labels.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// HasExtension reports whether path ends in one of exts, ignoring case.
func HasExtension(path string, exts []string) bool {
	ext := filepath.Ext(path)
	return slices.ContainsFunc(exts, func(e string) bool {
		return strings.EqualFold(e, ext)
	})
}
