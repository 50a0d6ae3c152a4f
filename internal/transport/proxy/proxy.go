// Package proxy builds outbound HTTP clients that dial through an optional SOCKS5 proxy.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// NewHTTPClient returns an HTTP client for LLM backends.
// An empty rawURL yields a direct client; otherwise rawURL must be socks5://[user:pass@]host:port.
func NewHTTPClient(rawURL string, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if rawURL != "" {
		dialer, err := Dialer(rawURL)
		if err != nil {
			return nil, err
		}
		transport.Proxy = nil
		transport.DialContext = dialer
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// Dialer parses a socks5 URL and returns a context-aware dial function.
func Dialer(rawURL string) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("proxy url has no host")
	}

	var auth *proxy.Auth
	if u.User != nil {
		pass, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: pass}
	}

	d, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer: %w", err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("socks5 dialer does not support contexts")
	}
	return cd.DialContext, nil
}
