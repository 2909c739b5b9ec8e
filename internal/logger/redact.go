package logger

import (
	"log/slog"
	"strings"
)

const RedactedValue = "[REDACTED]"

var sensitiveKeys = map[string]struct{}{
	"password":           {},
	"password_hash":      {},
	"token":              {},
	"access_token":       {},
	"refresh_token":      {},
	"refresh_token_hash": {},
	"verification_token": {},
	"authorization":      {},
	"secret":             {},
}

// Redact masks attributes whose key names a credential. It has the shape of
// slog.HandlerOptions.ReplaceAttr so both handlers can share it.
func Redact(_ []string, a slog.Attr) slog.Attr {
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, RedactedValue)
	}
	return a
}

func IsSensitiveKey(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}
