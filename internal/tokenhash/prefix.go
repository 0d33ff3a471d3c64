package tokenhash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// PrefixLength is the number of hex characters kept from the HMAC digest.
const PrefixLength = 8

// HMACHex returns the lowercase hex HMAC-SHA256 digest of token under secret.
func HMACHex(token string, secret []byte) string {
	m := hmac.New(sha256.New, secret)
	_, _ = m.Write([]byte(token))
	return hex.EncodeToString(m.Sum(nil))
}

// LookupPrefix returns the first PrefixLength hex characters of HMACHex.
// It is deterministic for a given token and secret.
func LookupPrefix(token string, secret []byte) string {
	return HMACHex(token, secret)[:PrefixLength]
}
