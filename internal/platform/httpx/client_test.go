// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Options{})
	require.NoError(t, err)
	assert.Equal(t, defaultClientTimeout, c.Timeout)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, defaultDialTimeout, tr.TLSHandshakeTimeout)
	assert.Equal(t, defaultMaxIdleConnsPerHost, tr.MaxIdleConnsPerHost)
}

func TestNewClient_ShortTimeoutCapsSubTimeouts(t *testing.T) {
	c, err := NewClient(Options{Timeout: time.Second})
	require.NoError(t, err)
	tr := c.Transport.(*http.Transport)
	assert.Equal(t, time.Second, tr.TLSHandshakeTimeout)
	assert.Equal(t, time.Second, tr.ResponseHeaderTimeout)
}

func TestNewClient_HTTPProxy(t *testing.T) {
	c, err := NewClient(Options{Proxy: ProxyConfig{Type: "http", Host: "10.0.0.2", Port: 3128}})
	require.NoError(t, err)
	tr := c.Transport.(*http.Transport)

	req := &http.Request{URL: &url.URL{Scheme: "https", Host: "catalog.example"}}
	u, err := tr.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:3128", u.Host)
}

func TestNewClient_SOCKS5Proxy(t *testing.T) {
	c, err := NewClient(Options{Proxy: ProxyConfig{Type: "SOCKS5", Host: "127.0.0.1", Port: 1080}})
	require.NoError(t, err)
	tr := c.Transport.(*http.Transport)
	assert.Nil(t, tr.Proxy)
	assert.NotNil(t, tr.DialContext)
}

func TestNewClient_UnknownProxyType(t *testing.T) {
	_, err := NewClient(Options{Proxy: ProxyConfig{Type: "pac", Host: "x", Port: 1}})
	assert.Error(t, err)
}

func TestNewClient_ProxyNoneIgnored(t *testing.T) {
	assert.False(t, ProxyConfig{Type: "none", Host: "h", Port: 1}.Enabled())
	assert.False(t, ProxyConfig{Type: "http"}.Enabled())
}

func TestNewClient_TracedTransportRoundTrips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(Options{Traced: true, Timeout: 2 * time.Second})
	require.NoError(t, err)
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
