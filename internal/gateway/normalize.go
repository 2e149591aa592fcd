package gateway

import (
	"errors"
	"net/url"
	"strings"
)

// ErrUnsupportedAddress means the submitted address does not point at a
// listing page we know how to extract.
var ErrUnsupportedAddress = errors.New("address is not a supported listing page")

var supportedHosts = map[string]bool{
	"airbnb.com":     true,
	"www.airbnb.com": true,
}

// NormalizeAddress canonicalizes a listing address so that equivalent inputs
// produce the same cache fingerprint. Scheme and host are lowercased, the
// query string and fragment are dropped, and a trailing slash is trimmed.
// Addresses outside the supported host set, or without a /rooms/ path, are
// rejected.
func NormalizeAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrUnsupportedAddress
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrUnsupportedAddress
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrUnsupportedAddress
	}
	if !supportedHosts[u.Host] {
		return "", ErrUnsupportedAddress
	}
	if !strings.Contains(u.Path, "/rooms/") {
		return "", ErrUnsupportedAddress
	}
	u.Scheme = "https"
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
