package conn

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName canonicalizes a player name for duplicate detection and
// account lookup: trim, Unicode NFC, then case folding so visually identical
// names collide regardless of input method or casing.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	name = norm.NFC.String(name)
	return cases.Fold().String(name)
}
