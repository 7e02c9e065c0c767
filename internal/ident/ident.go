// Package ident derives URL identifiers: slugs from titles and random
// share tokens.
package ident

import (
	"crypto/rand"
	"strconv"
	"strings"
)

const (
	MaxSlugLen = 100

	// TokenLen is the length of share tokens handed out by the service.
	TokenLen = 32

	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateSlug lowercases title, collapses every run of characters
// outside [a-z0-9] into one hyphen, trims hyphens from both ends and
// caps the result at MaxSlugLen bytes. Letters outside ASCII are not
// transliterated, so "café" becomes "caf". Empty input gives "".
func GenerateSlug(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	pendingHyphen := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	slug := b.String()
	if len(slug) > MaxSlugLen {
		// Trim again so a cut landing on a separator does not leave a
		// trailing hyphen.
		slug = strings.TrimRight(slug[:MaxSlugLen], "-")
	}
	return slug
}

// IsSlug reports whether s is already in the form GenerateSlug produces.
func IsSlug(s string) bool {
	return s != "" && GenerateSlug(s) == s
}

// Disambiguate returns base if it is free, otherwise base-1, base-2, ...
// whichever comes first that taken does not report as used. The base is
// shortened as needed so every candidate stays within MaxSlugLen.
func Disambiguate(base string, taken func(string) bool) string {
	candidate := base
	for n := 1; taken(candidate); n++ {
		suffix := "-" + strconv.Itoa(n)
		stem := base
		if len(stem)+len(suffix) > MaxSlugLen {
			stem = strings.TrimRight(stem[:MaxSlugLen-len(suffix)], "-")
		}
		candidate = stem + suffix
	}
	return candidate
}

// GenerateToken returns length characters drawn uniformly from the 62
// ASCII letters and digits, using crypto/rand.
func GenerateToken(length int) string {
	if length <= 0 {
		return ""
	}

	// 248 is the largest multiple of 62 that fits in a byte; bytes at or
	// above it are rejected so every character is equally likely.
	const limit = 256 - 256%len(tokenAlphabet)

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+8)
	for len(out) < length {
		// crypto/rand.Read never returns an error and crashes the
		// program if the system source fails.
		rand.Read(buf)
		for _, v := range buf {
			if int(v) >= limit {
				continue
			}
			out = append(out, tokenAlphabet[int(v)%len(tokenAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out)
}
