package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	clierr "github.com/rvelasco/routemux/internal/errors"
)

func TestGetJSONDecodesBodyAndSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "secret" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		w.Write([]byte(`{"price":"123.45"}`))
	}))
	defer srv.Close()

	var out struct {
		Price string `json:"price"`
	}
	client := New(5*time.Second, 0)
	if err := client.GetJSON(context.Background(), srv.URL, map[string]string{"x-api-key": "secret"}, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Price != "123.45" {
		t.Fatalf("price = %s", out.Price)
	}
}

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		status int
		code   clierr.Code
	}{
		{http.StatusTooManyRequests, clierr.CodeRateLimited},
		{http.StatusUnauthorized, clierr.CodeAuth},
		{http.StatusForbidden, clierr.CodeAuth},
		{http.StatusBadGateway, clierr.CodeUnavailable},
		{http.StatusInternalServerError, clierr.CodeUnavailable},
		{http.StatusBadRequest, clierr.CodeUnsupported},
		{http.StatusNotFound, clierr.CodeUnsupported},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client := New(5*time.Second, 0)
		err := client.GetJSON(context.Background(), srv.URL, nil, nil)
		srv.Close()
		if err == nil {
			t.Fatalf("status %d: no error", tc.status)
		}
		var cerr *clierr.Error
		if !errors.As(err, &cerr) || cerr.Code != tc.code {
			t.Fatalf("status %d: error = %v, want code %d", tc.status, err, tc.code)
		}
	}
}

func TestRetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	client := New(5*time.Second, 3)
	if err := client.GetJSON(context.Background(), srv.URL, nil, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if !out.OK {
		t.Fatal("expected decoded body from final attempt")
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestDoesNotRetryAuthFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(5*time.Second, 3)
	err := client.GetJSON(context.Background(), srv.URL, nil, nil)
	if err == nil {
		t.Fatal("expected auth error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestPostJSONReplaysBodyOnRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		if string(buf[:n]) != `{"q":1}` {
			t.Errorf("attempt %d body = %q", calls.Load()+1, buf[:n])
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(5*time.Second, 1)
	if err := client.PostJSON(context.Background(), srv.URL, []byte(`{"q":1}`), nil, nil); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestMalformedJSONIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	var out map[string]any
	client := New(5*time.Second, 0)
	err := client.GetJSON(context.Background(), srv.URL, nil, &out)
	var cerr *clierr.Error
	if !errors.As(err, &cerr) || cerr.Code != clierr.CodeUnavailable {
		t.Fatalf("error = %v, want unavailable", err)
	}
}

func TestCancelledContextStopsRetryLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := New(5*time.Second, 5)
	err := client.GetJSON(ctx, srv.URL, nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}
