package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// SecureHashParam is the query parameter carrying the signature.
const SecureHashParam = "secureHash"

// secureHashTypeParam is stripped alongside the hash before verification.
const secureHashTypeParam = "secureHashType"

// HashData canonicalizes params for signing: keys sorted lexicographically,
// empty values skipped, values query-escaped (space becomes '+'), pairs
// joined with '&'. The signature params themselves are never included.
func HashData(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key, value := range params {
		if key == SecureHashParam || key == secureHashTypeParam {
			continue
		}
		if value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[key]))
	}
	return b.String()
}

// Sign computes the lowercase hex HMAC-SHA512 of the canonical hash data.
func Sign(secret string, params map[string]string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(HashData(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature over params and compares it to the provided
// hash in constant time. Comparison is case-insensitive on the hex digest.
func Verify(secret string, params map[string]string, providedHash string) bool {
	if providedHash == "" {
		return false
	}
	expected := Sign(secret, params)
	provided := strings.ToLower(providedHash)
	if len(expected) != len(provided) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
