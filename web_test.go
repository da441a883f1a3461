/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanReadableSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1000, "1.0 kB"},
		{1536, "1.5 kB"},
		{1500000, "1.5 MB"},
		{2000000000, "2.0 GB"},
		{5000000000000, "5000.0 GB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, humanReadableSize(tt.bytes))
	}
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{name: "remote addr", remote: "10.0.0.1:1234", want: "10.0.0.1:1234"},
		{name: "ipv6", remote: "[::1]:80", want: "[::1]:80"},
		{name: "x-real-ip", remote: "10.0.0.1:1234", headers: map[string]string{"X-Real-IP": "192.168.1.5"}, want: "192.168.1.5:1234"},
		{name: "invalid x-real-ip", remote: "10.0.0.1:1234", headers: map[string]string{"X-Real-IP": "nope"}, want: "10.0.0.1:1234"},
		{name: "cloudflare first", remote: "10.0.0.1:1234", headers: map[string]string{"X-Real-IP": "192.168.1.5", "CF-Connecting-IP": "203.0.113.9"}, want: "203.0.113.9:1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, realIP(r))
		})
	}
}

func get(t *testing.T, cfg *Config, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	sm := newSessionManager(cfg)
	t.Cleanup(sm.close)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()

	newRouter(cfg, sm, make(chan error, 8)).ServeHTTP(rec, req)

	return rec
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		path        string
		status      int
		contentType string
		contains    string
	}{
		{"/", http.StatusOK, "text/html; charset=utf-8", "assets/app.js"},
		{"/healthz", http.StatusOK, "text/plain; charset=utf-8", "Ok"},
		{"/version", http.StatusOK, "text/plain; charset=utf-8", "beachteams v" + releaseVersion},
		{"/robots.txt", http.StatusOK, "text/plain; charset=utf-8", "Disallow: /api/"},
		{"/assets/app.js", http.StatusOK, "text/javascript; charset=utf-8", "set_players"},
		{"/assets/app.css", http.StatusOK, "text/css; charset=utf-8", ""},
		{"/sw.js", http.StatusOK, "text/javascript; charset=utf-8", "caches"},
		{"/favicons/favicon.svg", http.StatusOK, "image/svg+xml", "<svg"},
		{"/favicons/site.webmanifest", http.StatusOK, "application/manifest+json", "Beach"},
		{"/qr", http.StatusOK, "image/png", "PNG"},
		{"/assets/missing.js", http.StatusNotFound, "", ""},
		{"/pprof/heap", http.StatusNotFound, "", ""},
		{"/nope", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, testConfig(), tt.path)

			require.Equal(t, tt.status, rec.Code)
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			}
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
			if tt.status == http.StatusOK {
				assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			}
		})
	}
}

func TestServiceWorkerIsNotCached(t *testing.T) {
	rec := get(t, testConfig(), "/sw.js")
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
}

func TestHealthCheckCountsSessions(t *testing.T) {
	rec := get(t, testConfig(), "/healthz")
	assert.Equal(t, "0", rec.Header().Get("X-Active-Sessions"))
}

func TestHomePageSetsSessionCookie(t *testing.T) {
	rec := get(t, testConfig(), "/")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.True(t, validSessionID(cookies[0].Value))
	assert.True(t, cookies[0].HttpOnly)

	rec = get(t, testConfig(), "/", cookies[0])
	assert.Empty(t, rec.Result().Cookies())

	rec = get(t, testConfig(), "/", &http.Cookie{Name: sessionCookieName, Value: "forged"})
	require.Len(t, rec.Result().Cookies(), 1)
	assert.NotEqual(t, "forged", rec.Result().Cookies()[0].Value)
}

func TestPrefix(t *testing.T) {
	cfg := testConfig()
	cfg.prefix = "/beach"

	assert.Equal(t, http.StatusOK, get(t, cfg, "/beach/healthz").Code)
	assert.Equal(t, http.StatusNotFound, get(t, cfg, "/healthz").Code)

	rec := get(t, cfg, "/beach/assets/app.css")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, cfg, "/beach/robots.txt")
	assert.Contains(t, rec.Body.String(), "Disallow: /beach/api/")
}

func TestProfileHandlers(t *testing.T) {
	cfg := testConfig()
	cfg.profile = true

	assert.Equal(t, http.StatusOK, get(t, cfg, "/pprof/cmdline").Code)
}

func TestQRCodePointsAtApp(t *testing.T) {
	cfg := testConfig()
	cfg.prefix = "/beach"

	r := httptest.NewRequest(http.MethodGet, "http://courts.example.com/beach/qr", nil)
	assert.Equal(t, "http://courts.example.com/beach/", appURL(cfg, r))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://courts.example.com/beach/", appURL(cfg, r))

	r.Header.Set("X-Forwarded-Proto", "gopher")
	assert.Equal(t, "http://courts.example.com/beach/", appURL(cfg, r))
}

func TestPanicHandler(t *testing.T) {
	cfg := testConfig()
	sm := newSessionManager(cfg)
	defer sm.close()

	mux := newRouter(cfg, sm, make(chan error, 8))
	mux.GET("/boom", func(http.ResponseWriter, *http.Request, httprouter.Params) { panic("boom") })

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "An error has occurred")
}
