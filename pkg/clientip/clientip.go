package clientip

import (
	"net"
	"net/http"
	"net/textproto"
	"strings"
)

// Resolver extracts the client IP address from a request. Proxy headers are
// consulted only when listed as trusted, in the given order; otherwise the
// peer address is used. Trust a header only behind a proxy that overwrites it.
type Resolver struct {
	headers []string
}

// NewResolver creates a Resolver trusting the given headers, e.g.
// "CF-Connecting-IP" or "X-Forwarded-For".
func NewResolver(trustedHeaders ...string) *Resolver {
	headers := make([]string, 0, len(trustedHeaders))
	for _, h := range trustedHeaders {
		if h = strings.TrimSpace(h); h != "" {
			headers = append(headers, textproto.CanonicalMIMEHeaderKey(h))
		}
	}
	return &Resolver{headers: headers}
}

// IP returns the normalized client IP, or "" if none could be determined.
func (res *Resolver) IP(r *http.Request) string {
	for _, name := range res.headers {
		value := r.Header.Get(name)
		if value == "" {
			continue
		}
		// X-Forwarded-For style lists carry the originating client first.
		for candidate := range strings.SplitSeq(value, ",") {
			if ip := parseIP(candidate); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// Middleware stores the resolved client IP in the request context.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), res.IP(r))))
	})
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
