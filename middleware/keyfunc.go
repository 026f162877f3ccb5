package middleware

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrKeyExtractionFailed is returned when no rate limit key can be derived
// from a request.
var ErrKeyExtractionFailed = errors.New("failed to extract key from request")

// KeyFunc derives the rate limit key identifying a client from a request,
// e.g. its IP address, API key, or user id.
type KeyFunc func(*http.Request) (string, error)

// ExtractIP keys clients by the connection's remote IP address.
func ExtractIP() KeyFunc {
	return func(r *http.Request) (string, error) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			// RemoteAddr may lack a port in tests or unusual transports.
			ip = r.RemoteAddr
		}
		if ip == "" {
			return "", fmt.Errorf("%w: empty remote address", ErrKeyExtractionFailed)
		}
		return "ip:" + ip, nil
	}
}

// ExtractIPWithProxy keys clients by IP, honoring X-Forwarded-For and
// X-Real-IP before falling back to the connection address. Use this behind
// a trusted reverse proxy; without one, these headers are client-supplied
// and trivially spoofed.
func ExtractIPWithProxy() KeyFunc {
	direct := ExtractIP()
	return func(r *http.Request) (string, error) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// The first entry is the original client.
			if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
				return "ip:" + ip, nil
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return "ip:" + xri, nil
		}
		return direct(r)
	}
}

// ExtractHeader keys clients by the value of a header, e.g. "X-API-Key".
func ExtractHeader(name string) KeyFunc {
	return func(r *http.Request) (string, error) {
		v := r.Header.Get(name)
		if v == "" {
			return "", fmt.Errorf("%w: header %s is empty", ErrKeyExtractionFailed, name)
		}
		return "header:" + v, nil
	}
}

// ExtractBearer keys clients by the Bearer token in the Authorization
// header.
func ExtractBearer() KeyFunc {
	return func(r *http.Request) (string, error) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			return "", fmt.Errorf("%w: no bearer token", ErrKeyExtractionFailed)
		}
		return "bearer:" + token, nil
	}
}
