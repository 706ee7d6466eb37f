package observability

import (
	"strings"
	"unicode"

	"github.com/storefront/api/internal/platform/textutil"
)

const (
	maxRouteLen  = 180
	maxMethodLen = 10
	maxIDLen     = 64
)

// logSafe removes control characters, so request data cannot forge log lines, then clips to limit runes.
func logSafe(value string, limit int) string {
	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	return textutil.Clip(value, limit)
}

// SanitizeRoute prepares a chi route pattern or raw path for logs and metric labels.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return logSafe(route, maxRouteLen)
}

func SanitizeMethod(method string) string {
	return logSafe(strings.ToUpper(method), maxMethodLen)
}

func SanitizeUserID(uid string) string {
	return logSafe(uid, maxIDLen)
}
