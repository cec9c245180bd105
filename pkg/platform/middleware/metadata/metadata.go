// Package metadata attaches client address and User-Agent to the request context.
package metadata

import (
	"net/http"
	"net/netip"
	"strings"

	"lostfound/pkg/requestcontext"
)

// MaxForwardedHeaderLength caps X-Forwarded-For values we are willing to parse.
const MaxForwardedHeaderLength = 500

// Middleware extracts client metadata. X-Forwarded-For is honoured only when
// the direct peer is one of the trusted proxies.
type Middleware struct {
	trusted []netip.Prefix
}

// New creates the middleware. With no trusted proxies the peer address is always used.
func New(trustedProxies ...netip.Prefix) *Middleware {
	return &Middleware{trusted: trustedProxies}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), m.clientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) clientIP(r *http.Request) string {
	peer, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		return "unknown"
	}
	addr := peer.Addr().Unmap()
	if !m.isTrusted(addr) {
		return addr.String()
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" || len(xff) > MaxForwardedHeaderLength {
		return addr.String()
	}
	first, _, _ := strings.Cut(xff, ",")
	client, err := netip.ParseAddr(strings.TrimSpace(first))
	if err != nil {
		return addr.String()
	}
	return client.String()
}

func (m *Middleware) isTrusted(addr netip.Addr) bool {
	for _, prefix := range m.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
