// Package etag generates and validates the opaque version tokens used for
// optimistic concurrency.
package etag

import (
	"crypto/rand"
	"strings"
)

// Length is the number of letters of a generated tag.
const Length = 20

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// unbiased is the largest multiple of len(alphabet) a byte can hold; random
// bytes at or above it are discarded.
const unbiased = 256 - 256%len(alphabet)

// New returns a fresh tag of Length lowercase letters, unquoted.
func New() string {
	return fromSource(rand.Read)
}

// fromSource draws letters from read, rejecting bytes that would favour the
// first letters of the alphabet.
func fromSource(read func([]byte) (int, error)) string {
	tag := make([]byte, 0, Length)
	buf := make([]byte, Length)
	for len(tag) < Length {
		if _, err := read(buf); err != nil {
			panic("etag: random source unavailable: " + err.Error())
		}
		for _, b := range buf {
			if int(b) >= unbiased {
				continue
			}
			tag = append(tag, alphabet[int(b)%len(alphabet)])
			if len(tag) == Length {
				break
			}
		}
	}
	return string(tag)
}

// Quote returns tag in its header form.
func Quote(tag string) string {
	return `"` + tag + `"`
}

// Unquote strips the surrounding quotes of a valid header value. A weak
// validator prefix W/ is accepted. ok is false for anything IsValid rejects.
func Unquote(header string) (tag string, ok bool) {
	header = strings.TrimPrefix(header, "W/")
	if !IsValid(header) {
		return "", false
	}
	return header[1 : len(header)-1], true
}

// IsValid reports whether s is a quoted tag: longer than two bytes, no
// surrounding whitespace, quotes at both ends and none inside.
func IsValid(s string) bool {
	if len(s) <= 2 || strings.TrimSpace(s) != s {
		return false
	}
	if s[0] != '"' || s[len(s)-1] != '"' {
		return false
	}
	return !strings.Contains(s[1:len(s)-1], `"`)
}
