package limiter

import (
	"net/http"
	"strings"
)

// UnknownAddress is used when no client address header is present.
const UnknownAddress = "unknown"

// ClientAddress picks the client address from proxy headers: the first hop of
// X-Forwarded-For, then X-Real-IP, then UnknownAddress.
func ClientAddress(h http.Header) string {
	if fwd := h.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(h.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return UnknownAddress
}
