// Package probe classifies byte buffers as plausible medical imaging records
// using cheap heuristics only.
package probe

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
)

const (
	// MagicOffset is where the 4-byte preamble token sits.
	MagicOffset = 128
	// ScanLimit bounds the fallback UID scan.
	ScanLimit = 8 * 1024
	// MinLength is the shortest buffer that can carry the magic token.
	MinLength = MagicOffset + 4
)

var (
	magicToken = []byte("DICM")

	// Standard UID root and the dotted prefix shared by registry UIDs.
	uidRoot   = []byte("1.2.840.10008")
	uidPrefix = []byte("1.2.840.")
)

// Probe reports whether data plausibly is a recognized record.
// It never panics and accepts any byte sequence, including nil.
func Probe(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if HasMagic(data) {
		return true
	}
	head := data
	if len(head) > ScanLimit {
		head = head[:ScanLimit]
	}
	return scanText(head) || scanBytes(head)
}

// HasMagic reports whether the preamble token is present at MagicOffset.
func HasMagic(data []byte) bool {
	if len(data) < MinLength {
		return false
	}
	return bytes.Equal(data[MagicOffset:MinLength], magicToken)
}

// scanText decodes head as UTF-8, replacing invalid sequences, and searches
// the text for UID roots.
func scanText(head []byte) (found bool) {
	defer func() {
		if recover() != nil {
			found = false
		}
	}()
	text, err := unicode.UTF8.NewDecoder().Bytes(head)
	if err != nil {
		return false
	}
	return bytes.Contains(text, uidRoot) || bytes.Contains(text, uidPrefix)
}

// scanBytes looks for the UID roots directly in the raw bytes.
func scanBytes(head []byte) bool {
	return bytes.Contains(head, uidRoot) || bytes.Contains(head, uidPrefix)
}
