// Package tokenhash turns plaintext one-time tokens into their stored form:
// an Argon2id hash in PHC string format for verification, and a short
// HMAC-SHA256 prefix that narrows lookups without revealing the token.
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>
package tokenhash
