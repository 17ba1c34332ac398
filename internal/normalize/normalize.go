package normalize

import (
	"strings"

	"golang.org/x/text/cases"
)

// Name folds case and trims spaces so names compare case-insensitively.
func Name(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Contains reports whether name contains part ignoring case.
func Contains(name, part string) bool {
	return strings.Contains(Name(name), Name(part))
}
