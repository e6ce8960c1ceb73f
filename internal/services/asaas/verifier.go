// Package asaas authenticates and applies Asaas payment webhooks.
package asaas

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"regexp"
	"strings"
)

// Signature headers in lookup order
var signatureHeaders = []string{
	"asaas-signature",
	"x-hub-signature",
	"x-hub-signature-256",
}

var lowerHex = regexp.MustCompile(`^[0-9a-f]+$`)

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// SignatureFromHeaders returns the first non-empty signature header
func SignatureFromHeaders(h http.Header) string {
	for _, name := range signatureHeaders {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// decodeSignature accepts lowercase hex or any base64 alphabet
func decodeSignature(token string) ([]byte, bool) {
	if len(token)%2 == 0 && lowerHex.MatchString(token) {
		b, err := hex.DecodeString(token)
		return b, err == nil
	}
	for _, enc := range base64Encodings {
		if b, err := enc.DecodeString(token); err == nil {
			return b, true
		}
	}
	return nil, false
}

// Sign returns the lowercase hex HMAC-SHA256 of body under secret
func Sign(body []byte, secret string) string {
	return hex.EncodeToString(computeHMAC(body, secret))
}

func computeHMAC(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// Verify reports whether header carries HMAC-SHA256(secret, body). The
// header may be prefixed with "sha256=" and encoded as hex or base64. A
// missing header, missing secret or undecodable token is a plain false.
func Verify(body []byte, header, secret string) bool {
	if secret == "" {
		return false
	}

	token := strings.TrimSpace(header)
	token = strings.TrimPrefix(token, "sha256=")
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}

	provided, ok := decodeSignature(token)
	if !ok {
		return false
	}

	expected := computeHMAC(body, secret)
	if len(provided) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare(provided, expected) == 1
}
