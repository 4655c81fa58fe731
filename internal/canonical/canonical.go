// Package canonical derives stable identities for discovered stories.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultScheme is applied to URLs that arrive without one.
const DefaultScheme = "https"

// identifierKeys are query keys that distinguish articles sharing a path, in priority order.
var identifierKeys = []string{"id", "p", "story", "article", "aid"}

var nonWord = regexp.MustCompile(`\W+`)

// Canonicalize normalizes a raw URL into the form used as the primary dedup key.
func Canonicalize(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		scheme = DefaultScheme
	}

	host := strings.ToLower(parsed.Host)
	// Encoded form, so "a%2Fb" stays distinct from "a/b".
	path := parsed.EscapedPath()
	if host == "" && parsed.Scheme == "" {
		// "example.com/a" parses as a bare path.
		host, path, _ = strings.Cut(path, "/")
		host = strings.ToLower(host)
		if path != "" {
			path = "/" + path
		}
	}
	path = strings.TrimSuffix(path, "/")

	query := parsed.Query()
	for _, key := range identifierKeys {
		if values := query[key]; len(values) > 0 {
			path = fmt.Sprintf("%s/canonical-%s-%s", path, key, values[0])
			break
		}
	}

	return scheme + "://" + host + path, nil
}

// Fingerprint is the story identity: the first 16 hex characters of SHA-256 over the canonical URL.
func Fingerprint(raw string) (string, error) {
	canonical, err := Canonicalize(raw)
	if err != nil {
		return "", err
	}
	return FingerprintCanonical(canonical), nil
}

// FingerprintCanonical hashes an already canonical URL.
func FingerprintCanonical(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:16]
}

// TitleKey strips all non-word characters from a lower-cased title.
// The result is the fuzzy fallback key for syndicated duplicates.
func TitleKey(title string) string {
	return nonWord.ReplaceAllString(strings.ToLower(title), "")
}
