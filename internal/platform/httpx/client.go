// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/proxy"
)

const (
	defaultClientTimeout         = 15 * time.Second
	defaultDialTimeout           = 5 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 32
	defaultMaxIdleConnsPerHost   = 8
)

// Proxy types accepted in configuration.
const (
	ProxyNone   = "none"
	ProxyHTTP   = "http"
	ProxySOCKS5 = "socks5"
)

// ProxyConfig selects an outbound proxy for upstream traffic.
type ProxyConfig struct {
	Type string // none|http|socks5
	Host string
	Port int
}

// Enabled reports whether a proxy should be used.
func (p ProxyConfig) Enabled() bool {
	t := strings.ToLower(p.Type)
	return t != "" && t != ProxyNone && p.Host != ""
}

func (p ProxyConfig) addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Options configures NewClient.
type Options struct {
	Timeout time.Duration
	Proxy   ProxyConfig
	// Traced wraps the transport with otelhttp spans.
	Traced bool
}

// NewClient returns a hardened HTTP client for upstream calls, optionally
// routed through an HTTP or SOCKS5 proxy.
func NewClient(opts Options) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	dialTimeout := timeout
	if dialTimeout > defaultDialTimeout {
		dialTimeout = defaultDialTimeout
	}
	responseHeaderTimeout := timeout
	if responseHeaderTimeout > defaultResponseHeaderTimeout {
		responseHeaderTimeout = defaultResponseHeaderTimeout
	}

	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}

	if opts.Proxy.Enabled() {
		switch strings.ToLower(opts.Proxy.Type) {
		case ProxyHTTP:
			transport.Proxy = http.ProxyURL(&url.URL{Scheme: "http", Host: opts.Proxy.addr()})
		case ProxySOCKS5:
			socks, err := proxy.SOCKS5("tcp", opts.Proxy.addr(), nil, dialer)
			if err != nil {
				return nil, fmt.Errorf("httpx: socks5 dialer: %w", err)
			}
			cd, ok := socks.(proxy.ContextDialer)
			if !ok {
				return nil, fmt.Errorf("httpx: socks5 dialer does not support contexts")
			}
			transport.Proxy = nil
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return cd.DialContext(ctx, network, addr)
			}
		default:
			return nil, fmt.Errorf("httpx: unsupported proxy type %q (supported: none, http, socks5)", opts.Proxy.Type)
		}
	}

	var rt http.RoundTripper = transport
	if opts.Traced {
		rt = otelhttp.NewTransport(transport)
	}

	return &http.Client{Timeout: timeout, Transport: rt}, nil
}
