package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/extmeta/internal/cache"
	"github.com/any-hub/extmeta/internal/fetcher"
	"github.com/any-hub/extmeta/internal/logging"
)

const galleryResponse = `{"results":[{"extensions":[{"publisher":{"publisherName":"golang"},"extensionName":"go"}]}]}`

func TestStatusReportsVersion(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "http://extmeta.local/-/status", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 status, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"extmeta `)) {
		t.Fatalf("expected version in body, got %s", string(body))
	}
	if reqID := resp.Header.Get("X-Request-ID"); reqID == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func TestFetchDocumentServesFromCacheOnSecondCall(t *testing.T) {
	app, upstream := newTestApp(t)
	target := upstream.URL + "/files/golang.go/package.json"

	for i := 0; i < 2; i++ {
		resp, err := app.Test(fetchRequest(target))
		if err != nil {
			t.Fatalf("app.Test failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200 status, got %d (body=%s)", resp.StatusCode, string(body))
		}
		if string(body) != `{"name":"go"}` {
			t.Fatalf("unexpected body %s", string(body))
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Fatalf("unexpected content type %q", ct)
		}
	}
	if calls := upstream.documentCalls.Load(); calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls)
	}
}

func TestFetchDocumentErrors(t *testing.T) {
	app, upstream := newTestApp(t)

	tests := map[string]struct {
		Request *http.Request
		Status  int
		Code    string
	}{
		"missing_url": {
			Request: httptest.NewRequest("GET", "http://extmeta.local/v1/fetch", nil),
			Status:  fiber.StatusBadRequest,
			Code:    "url_required",
		},
		"upstream_failed": {
			Request: fetchRequest(upstream.URL + "/broken"),
			Status:  fiber.StatusBadGateway,
			Code:    "upstream_failed",
		},
		"decode_failed": {
			Request: fetchRequest(upstream.URL + "/page.html"),
			Status:  fiber.StatusBadGateway,
			Code:    "decode_failed",
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			resp, err := app.Test(test.Request)
			if err != nil {
				t.Fatalf("app.Test failed: %v", err)
			}
			if resp.StatusCode != test.Status {
				t.Fatalf("expected %d status, got %d", test.Status, resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			if !bytes.Contains(body, []byte(`"`+test.Code+`"`)) {
				t.Fatalf("expected %s error, got %s", test.Code, string(body))
			}
		})
	}
}

func TestQueryExtensions(t *testing.T) {
	app, upstream := newTestApp(t)

	req := httptest.NewRequest("POST", "http://extmeta.local/v1/extensions",
		strings.NewReader(`{"ids":["golang.go"," redhat.java ",""]}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 status, got %d (body=%s)", resp.StatusCode, string(body))
	}

	var payload extensionsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if exts := payload.Result.Extensions(); len(exts) != 1 || exts[0].ID() != "golang.go" {
		t.Fatalf("unexpected extensions: %+v", payload.Result)
	}
	if len(payload.Missing) != 1 || payload.Missing[0] != "redhat.java" {
		t.Fatalf("unexpected missing list: %v", payload.Missing)
	}
	if calls := upstream.queryCalls.Load(); calls != 1 {
		t.Fatalf("expected 1 gallery call, got %d", calls)
	}
}

func TestQueryExtensionsRejectsBadInput(t *testing.T) {
	app, upstream := newTestApp(t)

	tests := map[string]struct {
		Body string
		Code string
	}{
		"invalid_json": {Body: `{"ids":`, Code: "invalid_body"},
		"empty_ids":    {Body: `{"ids":["  "]}`, Code: "ids_required"},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "http://extmeta.local/v1/extensions", strings.NewReader(test.Body))
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test failed: %v", err)
			}
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Fatalf("expected 400 status, got %d", resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			if !bytes.Contains(body, []byte(`"`+test.Code+`"`)) {
				t.Fatalf("expected %s error, got %s", test.Code, string(body))
			}
		})
	}
	if calls := upstream.queryCalls.Load(); calls != 0 {
		t.Fatalf("bad input must not reach the gallery, got %d calls", calls)
	}
}

func TestNewAppValidatesOptions(t *testing.T) {
	if _, err := NewApp(AppOptions{}); err == nil {
		t.Fatalf("expected error without logger")
	}
	if _, err := NewApp(AppOptions{Logger: logging.NewDiscardLogger()}); err == nil {
		t.Fatalf("expected error without source")
	}
}

type fakeUpstream struct {
	*httptest.Server
	documentCalls atomic.Int64
	queryCalls    atomic.Int64
}

func newTestApp(t *testing.T) (*fiber.App, *fakeUpstream) {
	t.Helper()

	upstream := &fakeUpstream{}
	upstream.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/extensionquery":
			upstream.queryCalls.Add(1)
			io.WriteString(w, galleryResponse)
		case r.URL.Path == "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		case r.URL.Path == "/page.html":
			io.WriteString(w, "<html></html>")
		default:
			upstream.documentCalls.Add(1)
			io.WriteString(w, `{"name":"go"}`)
		}
	}))
	t.Cleanup(upstream.Close)

	store, err := cache.Open(filepath.Join(t.TempDir(), "extmeta.db"), cache.DefaultBucket, 0)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	f, err := fetcher.New(fetcher.Options{
		Client:          upstream.Client(),
		Store:           store,
		Logger:          logging.NewDiscardLogger(),
		GalleryEndpoint: upstream.URL + "/extensionquery",
	})
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}

	app, err := NewApp(AppOptions{
		Logger:     logging.NewDiscardLogger(),
		Source:     f,
		ListenPort: 5100,
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return app, upstream
}

func fetchRequest(target string) *http.Request {
	return httptest.NewRequest("GET", "http://extmeta.local/v1/fetch?url="+url.QueryEscape(target), nil)
}
