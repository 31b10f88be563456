package storage

import (
	"crypto/rand"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	suffixLength   = 8
	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// SanitizeFileName strips diacritics and replaces every character outside
// [A-Za-z0-9] with an underscore
func SanitizeFileName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.TrimSpace(name))
	if err != nil {
		stripped = name
	}

	var b strings.Builder
	for _, r := range stripped {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ObjectName is the sanitized file name followed by an underscore and a
// random base-36 suffix
func ObjectName(fileName string) string {
	return SanitizeFileName(fileName) + "_" + randomSuffix()
}

func randomSuffix() string {
	buf := make([]byte, suffixLength)
	_, _ = rand.Read(buf)
	for i, v := range buf {
		buf[i] = suffixAlphabet[int(v)%len(suffixAlphabet)]
	}
	return string(buf)
}
