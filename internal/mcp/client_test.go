package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/bpmctl/internal/process"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL+"/mcp/", map[string]string{"Authorization": "Bearer test-token"},
		WithHTTPClient(srv.Client()),
		WithLogger(zaptest.NewLogger(t)),
	)
	return srv, client
}

func TestClientURLs(t *testing.T) {
	c := NewClient("http://localhost:8001/mcp/", nil)
	if c.URL() != "http://localhost:8001/mcp" {
		t.Fatalf("unexpected base url %s", c.URL())
	}
	if c.ProcessesURL() != "http://localhost:8001/mcp/processes/" {
		t.Fatalf("unexpected processes url %s", c.ProcessesURL())
	}
	if c.ProcessURL(7) != "http://localhost:8001/mcp/processes/7/" {
		t.Fatalf("unexpected process url %s", c.ProcessURL(7))
	}
}

func TestListProcessesSendsHeadersAndDecodes(t *testing.T) {
	var gotPath, gotAuth string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(process.Sample())
	})

	got, err := client.ListProcesses(context.Background())
	if err != nil {
		t.Fatalf("ListProcesses returned error: %v", err)
	}
	if gotPath != "/mcp/processes/" {
		t.Fatalf("unexpected request path %s", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("expected authorization header, got %q", gotAuth)
	}
	if diff := cmp.Diff(process.Sample(), got); diff != "" {
		t.Fatalf("processes mismatch (-want +got):\n%s", diff)
	}
}

func TestGetProcess(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mcp/processes/1/" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(process.Sample()[0])
	})

	p, err := client.GetProcess(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetProcess returned error: %v", err)
	}
	if p.ID != 1 || len(p.Tasks) != 3 {
		t.Fatalf("unexpected process %+v", p)
	}

	_, err = client.GetProcess(context.Background(), 2)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
}

func TestNonOKStatusReturnsStatusError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	})

	got, err := client.ListProcesses(context.Background())
	if got != nil {
		t.Fatalf("expected nil result on error, got %v", got)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || statusErr.Body != "token expired" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status code in message, got %q", err.Error())
	}
}

func TestMalformedJSON(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	})

	if _, err := client.ListProcesses(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPing(t *testing.T) {
	long := strings.Repeat("x", 300)
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mcp" {
			t.Errorf("unexpected ping path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(long))
	})

	res, err := client.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if len(res.Preview) != PreviewLength {
		t.Fatalf("expected preview of %d chars, got %d", PreviewLength, len(res.Preview))
	}
}

func TestPingReportsStatus(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	res, err := client.Ping(context.Background())
	if err == nil {
		t.Fatalf("expected error for 503")
	}
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status to be reported, got %d", res.StatusCode)
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	_ = srv

	client.timeout = 20 * time.Millisecond
	_, err := client.ListProcesses(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, nil, WithTimeout(time.Second))
	if _, err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected connection error")
	}
}
