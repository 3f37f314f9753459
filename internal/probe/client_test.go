package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchReturnsBoundedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "Apache/2.4.41")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "<title>Index of /components</title>")
	}))
	defer srv.Close()

	c := NewClient(2*time.Second, false)
	resp, err := c.Fetch(context.Background(), http.MethodGet, srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if got := resp.Headers.Get("Server"); got != "Apache/2.4.41" {
		t.Errorf("Server header = %q", got)
	}
	if !strings.Contains(resp.Body, "Index of /components") {
		t.Errorf("body not captured: %q", resp.Body)
	}
	if resp.Elapsed <= 0 {
		t.Error("Elapsed not recorded")
	}
}

func TestFetchTruncatesLargeBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("a", 4096))
	}))
	defer srv.Close()

	c := NewClient(2*time.Second, false)
	c.MaxBodyBytes = 1024

	resp, err := c.Fetch(context.Background(), http.MethodGet, srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(resp.Body) != 1024 {
		t.Errorf("body length = %d, want truncation to 1024", len(resp.Body))
	}
}

func TestFetchClassifiesRedirectLoop(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/loop", http.StatusFound)
	}))
	defer srv.Close()

	c := NewClient(2*time.Second, false)
	_, err := c.Fetch(context.Background(), http.MethodGet, srv.URL)
	if !errors.Is(err, ErrTooManyRedirects) {
		t.Fatalf("Fetch() error = %v, want ErrTooManyRedirects", err)
	}
	if IsTransient(err) {
		t.Error("redirect loops must not be retried")
	}
}

func TestFetchClassifiesConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens here anymore

	c := NewClient(2*time.Second, false)
	_, err := c.Fetch(context.Background(), http.MethodGet, srv.URL)
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("Fetch() error = %v, want ErrConnection", err)
	}
	if !IsTransient(err) {
		t.Error("connection failures should be retryable")
	}
}

func TestFetchClassifiesTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		srv.Close()
	}()

	c := NewClient(50*time.Millisecond, false)
	_, err := c.Fetch(context.Background(), http.MethodGet, srv.URL)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Fetch() error = %v, want ErrTimeout", err)
	}
	if !IsTransient(err) {
		t.Error("timeouts should be retryable")
	}
}

func TestFetchTLSVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Self-signed certificate fails with verification enabled.
	strict := NewClient(2*time.Second, false)
	_, err := strict.Fetch(context.Background(), http.MethodGet, srv.URL)
	if !errors.Is(err, ErrTLS) {
		t.Fatalf("Fetch() error = %v, want ErrTLS", err)
	}
	if IsTransient(err) {
		t.Error("TLS failures with verification on must not be retried")
	}

	// Same target succeeds with verification disabled.
	insecure := NewClient(2*time.Second, true)
	resp, err := insecure.Fetch(context.Background(), http.MethodGet, srv.URL)
	if err != nil {
		t.Fatalf("insecure Fetch() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
}

func TestFetchHeadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
	}))
	defer srv.Close()

	c := NewClient(2*time.Second, false)
	resp, err := c.Fetch(context.Background(), http.MethodHead, srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := resp.Headers.Get("Last-Modified"); got == "" {
		t.Error("Last-Modified header not propagated")
	}
}

func TestFetchSendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := NewClient(2*time.Second, false)
	c.UserAgent = "joomprobe-test/1.0"
	if _, err := c.Fetch(context.Background(), http.MethodGet, srv.URL); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotUA != "joomprobe-test/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}
