package feed

import (
	"strings"
)

const (
	cdataOpen  = "<![CDATA["
	cdataClose = "]]>"
)

// Only this fixed table is decoded; any other entity passes through.
var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&#039;", "'",
	"&#39;", "'",
)

// DecodeEntities decodes the fixed entity table until the text stops
// changing, so DecodeEntities(DecodeEntities(s)) == DecodeEntities(s).
func DecodeEntities(s string) string {
	for {
		decoded := entityReplacer.Replace(s)
		if decoded == s {
			return s
		}
		s = decoded
	}
}

// StripCDATA removes one CDATA wrapper around s. Text without a wrapper
// is returned unchanged.
func StripCDATA(s string) string {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) >= len(cdataOpen)+len(cdataClose) &&
		strings.HasPrefix(trimmed, cdataOpen) &&
		strings.HasSuffix(trimmed, cdataClose) {
		return trimmed[len(cdataOpen) : len(trimmed)-len(cdataClose)]
	}
	return s
}

// Normalize strips CDATA and decodes entities. Each step only ever shrinks
// the text, so iterating to a fixed point terminates and makes Normalize
// idempotent.
func Normalize(s string) string {
	for {
		next := DecodeEntities(StripCDATA(s))
		if next == s {
			return s
		}
		s = next
	}
}
