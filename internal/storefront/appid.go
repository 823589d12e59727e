// Package storefront classifies Steam store URLs and extracts app ids.
package storefront

import (
	"regexp"
	"strings"
)

// StorePrefix is the canonical host prefix of the embedded store page.
const StorePrefix = "https://store.steampowered.com"

var appPathRe = regexp.MustCompile(`/app/(\d+)/?`)

// IsStoreURL reports whether url points at the storefront at all.
func IsStoreURL(url string) bool {
	return strings.Contains(url, StorePrefix)
}

// Resolve extracts the app id from a storefront URL. It returns ("", false)
// for URLs outside the storefront or store URLs that do not name an app
// (front page, search, cart). It never fails.
func Resolve(url string) (string, bool) {
	if !IsStoreURL(url) {
		return "", false
	}
	m := appPathRe.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}
