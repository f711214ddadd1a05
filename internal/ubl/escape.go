package ubl

import (
	"strings"
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape replaces the five XML metacharacters with their entity references.
// It is used for both element text and attribute values.
func Escape(s string) string {
	return escaper.Replace(s)
}
