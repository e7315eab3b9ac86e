package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// KeyFunc identifies the client a request is charged to.
type KeyFunc func(*http.Request) (string, error)

// RemoteIP keys requests by the peer address, ignoring proxy headers.
func RemoteIP() KeyFunc {
	return func(r *http.Request) (string, error) {
		return remoteHost(r)
	}
}

// ForwardedIP keys requests by the first X-Forwarded-For entry, then
// X-Real-IP, then the peer address. Only use it behind a trusted proxy.
func ForwardedIP() KeyFunc {
	return func(r *http.Request) (string, error) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return "ip:" + ip, nil
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return "ip:" + ip, nil
		}
		return remoteHost(r)
	}
}

// Header keys requests by the value of the named header.
func Header(name string) KeyFunc {
	return func(r *http.Request) (string, error) {
		value := r.Header.Get(name)
		if value == "" {
			return "", fmt.Errorf("%w: header %s is empty", ErrNoClientKey, name)
		}
		return "header:" + name + ":" + value, nil
	}
}

// FirstOf returns the key from the first KeyFunc that succeeds.
//
//	keyFunc := middleware.FirstOf(
//	    middleware.Header("X-API-Key"),
//	    middleware.RemoteIP(),
//	)
func FirstOf(funcs ...KeyFunc) KeyFunc {
	return func(r *http.Request) (string, error) {
		err := fmt.Errorf("%w: no key functions", ErrNoClientKey)
		for _, fn := range funcs {
			key, keyErr := fn(r)
			if keyErr == nil && key != "" {
				return key, nil
			}
			if keyErr != nil {
				err = keyErr
			}
		}
		return "", err
	}
}

// ParseKeyFunc builds a KeyFunc from a short description:
// "ip", "forwarded-ip" or "header:<Name>".
func ParseKeyFunc(source string) (KeyFunc, error) {
	kind, arg, _ := strings.Cut(source, ":")
	switch kind {
	case "", "ip":
		return RemoteIP(), nil
	case "forwarded-ip":
		return ForwardedIP(), nil
	case "header":
		if arg == "" {
			return nil, fmt.Errorf("%w: %q needs a header name", ErrUnknownKeySource, source)
		}
		return Header(arg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKeySource, source)
	}
}

func remoteHost(r *http.Request) (string, error) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return "", fmt.Errorf("%w: empty remote address", ErrNoClientKey)
	}
	return "ip:" + host, nil
}
