package logging

import (
	"log/slog"
	"strings"
)

// Redacted replaces the value of a sensitive attribute.
const Redacted = "[REDACTED]"

var sensitiveKeys = []string{"token", "secret", "passphrase", "password"}

// Sensitive reports whether values logged under key must be masked. Keys
// naming a derived value (hash, prefix, id) are allowed.
func Sensitive(key string) bool {
	k := strings.ToLower(key)
	for _, suffix := range []string{"_hash", "_prefix", "_id", "hash", "prefix"} {
		if strings.HasSuffix(k, suffix) {
			return false
		}
	}
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// redactArgs masks sensitive values in key-value pairs and slog.Attr args.
// The input slice is not modified.
func redactArgs(args []any) []any {
	var out []any
	for i := 0; i < len(args); i++ {
		switch v := args[i].(type) {
		case slog.Attr:
			if Sensitive(v.Key) {
				out = clone(out, args)
				out[i] = slog.String(v.Key, Redacted)
			}
		case string:
			if i+1 < len(args) && Sensitive(v) {
				out = clone(out, args)
				out[i+1] = Redacted
			}
			i++
		}
	}
	if out == nil {
		return args
	}
	return out
}

func clone(out, args []any) []any {
	if out != nil {
		return out
	}
	return append([]any(nil), args...)
}
