package simulator

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/evload/config"
	"github.com/kilianp07/evload/core/archive"
	"github.com/kilianp07/evload/core/model"
)

func multipartBody(t *testing.T, parts map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range parts {
		fw, err := mw.CreateFormFile(name, name+".csv")
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServerWithRegistry(config.MockConfig{Address: "127.0.0.1:0"}, prometheus.NewRegistry())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestServerSimulate(t *testing.T) {
	s, ts := newTestServer(t)
	body, ct := multipartBody(t, map[string]string{
		"vehicles_file":  vehiclesCSV,
		"routes_file":    routesCSV,
		"base_load_file": baseCSV,
	})
	resp, err := http.Post(ts.URL+"/api/simulate", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/zip" {
		t.Fatalf("unexpected content type %s", got)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), model.ArchiveFileName) {
		t.Fatalf("missing attachment name")
	}
	data, _ := io.ReadAll(resp.Body)
	a, err := archive.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(a.Names()) != 3 {
		t.Fatalf("expected 3 entries got %v", a.Names())
	}
	if v := testutil.ToFloat64(s.requests.WithLabelValues("ok")); v != 1 {
		t.Fatalf("ok counter = %v", v)
	}
}

func TestServerRejectsIncompleteForm(t *testing.T) {
	s, ts := newTestServer(t)
	body, ct := multipartBody(t, map[string]string{"vehicles_file": vehiclesCSV})
	resp, err := http.Post(ts.URL+"/api/simulate", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if v := testutil.ToFloat64(s.requests.WithLabelValues("rejected")); v != 1 {
		t.Fatalf("rejected counter = %v", v)
	}
}

func TestServerRejectsBadInput(t *testing.T) {
	_, ts := newTestServer(t)
	body, ct := multipartBody(t, map[string]string{
		"vehicles_file":  "id\n1\n",
		"routes_file":    routesCSV,
		"base_load_file": baseCSV,
	})
	resp, err := http.Post(ts.URL+"/api/simulate", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}

func TestServerPing(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/ping")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(b) != "pong" {
		t.Fatalf("unexpected ping response %d %q", resp.StatusCode, b)
	}
	get, err := http.Get(ts.URL + "/api/simulate")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	get.Body.Close()
	if get.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", get.StatusCode)
	}
}
