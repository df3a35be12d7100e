package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/text/encoding/korean"
)

func newTestClient(opts ...Option) *Client {
	c := New(append([]Option{WithRetry(2, time.Millisecond)}, opts...)...)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestFetchSuccessSendsBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>검정치마 LP</body></html>"))
	}))
	defer srv.Close()

	doc, err := newTestClient().Fetch(context.Background(), Request{
		Vendor: "yes24",
		URL:    srv.URL + "/search?q=1",
		Header: http.Header{"X-Api-Key": {"secret"}},
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(doc.Body, "검정치마") || doc.Status != http.StatusOK {
		t.Fatalf("unexpected document %+v", doc)
	}
	if !strings.HasPrefix(got.Get("User-Agent"), "Mozilla/5.0") {
		t.Errorf("missing browser user agent: %q", got.Get("User-Agent"))
	}
	if !strings.HasPrefix(got.Get("Accept-Language"), "ko-KR") {
		t.Errorf("missing Korean accept-language: %q", got.Get("Accept-Language"))
	}
	if got.Get("Referer") != srv.URL+"/" {
		t.Errorf("Referer = %q", got.Get("Referer"))
	}
	if got.Get("X-Api-Key") != "secret" {
		t.Errorf("per-request header not merged")
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var delays []time.Duration
	c := newTestClient(WithRetry(2, time.Second))
	c.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	doc, err := c.Fetch(context.Background(), Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if doc.Body != "ok" || hits.Load() != 3 {
		t.Fatalf("body=%q hits=%d", doc.Body, hits.Load())
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Fatalf("unexpected backoff schedule %v", delays)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient().Fetch(context.Background(), Request{URL: srv.URL})
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestFetchTimeoutIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(WithTimeout(50*time.Millisecond)).Fetch(context.Background(), Request{URL: srv.URL})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("timeout must not be retried, got %d attempts", hits.Load())
	}
}

func TestFetchDetectsBlocks(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"forbidden", http.StatusForbidden, "nope"},
		{"too many requests", http.StatusTooManyRequests, ""},
		{"challenge 503", http.StatusServiceUnavailable, "<title>Just a moment...</title>"},
		{"captcha page", http.StatusOK, "<html>Please solve the CAPTCHA</html>"},
		{"korean refusal", http.StatusOK, "<p>비정상적인 접근이 감지되었습니다</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient().Fetch(context.Background(), Request{URL: srv.URL})
			if !errors.Is(err, ErrBlocked) {
				t.Fatalf("expected ErrBlocked, got %v", err)
			}
			if hits.Load() != 1 {
				t.Fatalf("blocked responses must not be retried, got %d attempts", hits.Load())
			}
			if Class(err) != "blocked" {
				t.Fatalf("Class = %s", Class(err))
			}
		})
	}
}

func TestFetchLargePageWithCaptchaWidgetIsNotBlocked(t *testing.T) {
	body := "<html>" + strings.Repeat("<div>LP 상품</div>", 4000) + "<script src=recaptcha.js></script></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	if _, err := newTestClient().Fetch(context.Background(), Request{URL: srv.URL}); err != nil {
		t.Fatalf("expected large catalog page to pass, got %v", err)
	}
}

func TestFetchStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient().Fetch(context.Background(), Request{URL: srv.URL + "/gone"})
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("expected ErrStatus, got %v", err)
	}
	if code, ok := StatusCode(err); !ok || code != http.StatusNotFound {
		t.Fatalf("StatusCode = %d, %v", code, ok)
	}
}

func TestFetchRejectsInvalidURL(t *testing.T) {
	if _, err := newTestClient().Fetch(context.Background(), Request{URL: "not a url"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestFetchDecodesEUCKR(t *testing.T) {
	encoded, err := korean.EUCKR.NewEncoder().Bytes([]byte("<html><body>향뮤직 바이닐</body></html>"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	tests := []struct {
		name        string
		contentType string
		override    string
	}{
		{"override", "text/html", "euc-kr"},
		{"content type charset", "text/html; charset=euc-kr", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write(encoded)
			}))
			defer srv.Close()

			doc, err := newTestClient().Fetch(context.Background(), Request{URL: srv.URL, Encoding: tt.override})
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if !strings.Contains(doc.Body, "향뮤직 바이닐") {
				t.Fatalf("body not decoded: %q", doc.Body)
			}
		})
	}
}

func TestReadBodyMetaCharset(t *testing.T) {
	encoded, _ := korean.EUCKR.NewEncoder().Bytes([]byte(`<html><head><meta charset="euc-kr"></head><body>레코드</body></html>`))
	body, err := readBody(bytes.NewReader(encoded), "text/html", "")
	if err != nil {
		t.Fatalf("readBody: %v", err)
	}
	if !strings.Contains(body, "레코드") {
		t.Fatalf("meta charset not honoured: %q", body)
	}

	plain, err := readBody(strings.NewReader(`{"title":"바이닐"}`), "application/json", "")
	if err != nil || !strings.Contains(plain, "바이닐") {
		t.Fatalf("json body = %q, %v", plain, err)
	}
}
