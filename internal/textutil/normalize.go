// Package textutil provides text normalization applied at every boundary
// where document or model text crosses into prompts or API payloads.
//
// FIA PDFs and cloud-hosted secrets regularly carry byte-order marks; a
// stray U+FEFF inside a JSON response body breaks strict downstream
// parsers, so normalization here is a correctness requirement rather
// than cosmetics.
package textutil

import "strings"

var bomReplacer = strings.NewReplacer("\ufeff", "", "\ufffd", "")

// Normalize cleans raw text for prompt and payload use: BOM and
// replacement characters are stripped, CRLF and bare CR become LF, runs
// of three or more newlines collapse to two, runs of spaces and tabs
// collapse to a single space, and surrounding whitespace is trimmed.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	s := bomReplacer.Replace(text)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	b.Grow(len(s))

	newlines := 0
	inSpace := false
	for _, r := range s {
		switch r {
		case '\n':
			newlines++
			inSpace = false
			if newlines <= 2 {
				b.WriteByte('\n')
			}
		case ' ', '\t':
			newlines = 0
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
		default:
			newlines = 0
			inSpace = false
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}

// Sanitize strips BOM characters and whitespace from configuration
// secrets. Cloud secret managers occasionally prepend a BOM, which then
// corrupts HTTP auth headers built from the value.
func Sanitize(value string) string {
	return strings.TrimSpace(bomReplacer.Replace(value))
}
