package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"custodia/pkg/requestcontext"
)

// ClientInfo extracts the caller's IP and a readable client name from the
// User-Agent header and stores both in the request context for the audit
// trail.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawUA := r.UserAgent()
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), rawUA, clientName(rawUA))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client.
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// clientName renders "Chrome on Mac OS X" style names for browser agents and
// falls back to the raw product token for CLI clients.
func clientName(rawUA string) string {
	if rawUA == "" {
		return "unknown"
	}
	ua := useragent.New(rawUA)
	name, _ := ua.Browser()
	if name == "" {
		if i := strings.IndexByte(rawUA, '/'); i > 0 {
			return rawUA[:i]
		}
		return rawUA
	}
	if os := ua.OS(); os != "" {
		return name + " on " + os
	}
	return name
}
