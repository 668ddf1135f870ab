// Package util holds small helpers shared by the HTTP layer.
package util

import (
	"net/url"
	"strings"
)

// MaskSecret obscures a credential for logging, keeping only its edges.
func MaskSecret(secret string) string {
	switch {
	case len(secret) > 8:
		return secret[:4] + "..." + secret[len(secret)-4:]
	case len(secret) > 4:
		return secret[:2] + "..." + secret[len(secret)-2:]
	case len(secret) > 2:
		return secret[:1] + "..." + secret[len(secret)-1:]
	}
	return secret
}

// MaskAuthorization masks the credential part of an Authorization header
// and keeps the scheme.
func MaskAuthorization(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	scheme, credential, found := strings.Cut(header, " ")
	if !found {
		return MaskSecret(header)
	}
	return scheme + " " + MaskSecret(strings.TrimSpace(credential))
}

// MaskSensitiveQuery masks credential-like query parameters (token, secret,
// password, ...) within a raw query string.
func MaskSensitiveQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	changed := false
	for i, part := range parts {
		if part == "" {
			continue
		}
		keyPart, valuePart, _ := strings.Cut(part, "=")
		decodedKey, err := url.QueryUnescape(keyPart)
		if err != nil {
			decodedKey = keyPart
		}
		if !shouldMaskQueryParam(decodedKey) {
			continue
		}
		decodedValue, err := url.QueryUnescape(valuePart)
		if err != nil {
			decodedValue = valuePart
		}
		parts[i] = keyPart + "=" + url.QueryEscape(MaskSecret(strings.TrimSpace(decodedValue)))
		changed = true
	}
	if !changed {
		return raw
	}
	return strings.Join(parts, "&")
}

func shouldMaskQueryParam(key string) bool {
	key = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(key)), "[]")
	if key == "" {
		return false
	}
	for _, needle := range []string{"token", "secret", "password", "passwd", "code"} {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}
