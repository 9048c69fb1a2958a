package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rflorenc/awx-launch/internal/models"
)

func newTestClient(ts *httptest.Server) *Client {
	return &Client{
		baseURL:    ts.URL,
		httpClient: ts.Client(),
	}
}

func TestClient_Get_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	body, err := c.Get(context.Background(), "/api/v2/ping/", nil)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(body) != `{"status":"ok"}` {
		t.Errorf("body = %q, want {\"status\":\"ok\"}", string(body))
	}
}

func TestClient_BearerHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok-1")
		}
		w.Write([]byte("{}"))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	if _, err := c.Get(context.Background(), "/test", bearer("tok-1")); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
}

func TestClient_BasicAuthHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			t.Errorf("BasicAuth = (%q, %q, %v), want (admin, secret, true)", user, pass, ok)
		}
		w.Write([]byte("{}"))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	if _, _, err := c.Post(context.Background(), "/test", basicAuth("admin", "secret"), nil); err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
}

func TestClient_Get_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid username/password."}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	_, err := c.Get(context.Background(), "/api/v2/me/", nil)
	if err == nil {
		t.Fatal("Get should return error for 401")
	}
	var apiErr *RemoteAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *RemoteAPIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Method != "GET" || apiErr.Path != "/api/v2/me/" {
		t.Errorf("RemoteAPIError = %+v", apiErr)
	}
	if apiErr.Body != `{"detail":"Invalid username/password."}` {
		t.Errorf("Body = %q", apiErr.Body)
	}
}

func TestClient_Post(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", r.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	body, status, err := c.Post(context.Background(), "/api/v2/inventories/", bearer("t"), map[string]string{"name": "Test"})
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	if status != 201 {
		t.Errorf("status = %d, want 201", status)
	}
	if string(body) != `{"id":1}` {
		t.Errorf("body = %q", string(body))
	}
}

func TestClient_GetJSON_InvalidBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	var dest map[string]interface{}
	if err := c.GetJSON(context.Background(), "/x", nil, &dest); err == nil {
		t.Fatal("GetJSON should fail on invalid JSON")
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(ts)
	_, err := c.Get(ctx, "/x", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Get with canceled context = %v, want context.Canceled", err)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		expect string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"empty", "", 5, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := truncate(tc.input, tc.maxLen)
			if got != tc.expect {
				t.Errorf("truncate(%q, %d) = %q, want %q", tc.input, tc.maxLen, got, tc.expect)
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	c := NewClient(models.Credentials{Endpoint: "https://example.com/", Insecure: true})
	if c.baseURL != "https://example.com" {
		t.Errorf("baseURL = %q, want https://example.com", c.baseURL)
	}
	tr, ok := c.httpClient.Transport.(*http.Transport)
	if !ok || tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Error("insecure connection should skip TLS verification")
	}

	c = NewClient(models.Credentials{Endpoint: "https://example.com"})
	tr = c.httpClient.Transport.(*http.Transport)
	if tr.TLSClientConfig != nil {
		t.Error("secure connection should keep default TLS config")
	}
}
