package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/tasklist/internal/database"
)

const testClientURL = "http://localhost:5173"

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.Open(context.Background(), database.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, Options{
		Dialect:   database.SQLite,
		JWTSecret: []byte("test-secret"),
		ClientURL: testClientURL,
	}, logger)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

// client is a browser-like API client with its own cookie jar.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, ts *httptest.Server) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &client{t: t, base: ts.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.t.Fatalf("%s %s: decode body: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func (c *client) register(email string) {
	c.t.Helper()
	status, body := c.do("POST", "/api/auth/register", map[string]string{
		"name": "Test", "email": email, "password": "secret1",
	})
	if status != http.StatusOK {
		c.t.Fatalf("register %s: status = %d, body = %v", email, status, body)
	}
}

func (c *client) createTask(title string) string {
	c.t.Helper()
	status, body := c.do("POST", "/api/tasks", map[string]string{"title": title})
	if status != http.StatusCreated {
		c.t.Fatalf("create %q: status = %d, body = %v", title, status, body)
	}
	return body["data"].(map[string]any)["_id"].(string)
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)
	status, body := newClient(t, ts).do("GET", "/api/health", nil)

	if status != http.StatusOK {
		t.Errorf("status = %d, want %d", status, http.StatusOK)
	}
	if body["message"] != "API is running" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := setupTestServer(t)
	c := newClient(t, ts)

	for _, tt := range []struct{ method, path string }{
		{"GET", "/api/unknown"},
		{"GET", "/"},
		{"PATCH", "/api/auth/login"},
		{"POST", "/api/auth/me"},
		{"DELETE", "/api/auth/me"},
	} {
		status, body := c.do(tt.method, tt.path, nil)
		if status != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, status, http.StatusNotFound)
		}
		if body["message"] != "Not Found - "+tt.path {
			t.Errorf("%s %s: message = %v", tt.method, tt.path, body["message"])
		}
		if body["success"] != false {
			t.Errorf("%s %s: success = %v, want false", tt.method, tt.path, body["success"])
		}
	}
}

func TestProtectedRoutesRequireCookie(t *testing.T) {
	ts := setupTestServer(t)
	c := newClient(t, ts)

	for _, tt := range []struct{ method, path string }{
		{"GET", "/api/auth/me"},
		{"GET", "/api/tasks"},
		{"POST", "/api/tasks"},
		{"GET", "/api/tasks/abc"},
		{"PUT", "/api/tasks/abc"},
		{"DELETE", "/api/tasks/abc"},
	} {
		status, body := c.do(tt.method, tt.path, nil)
		if status != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, status, http.StatusUnauthorized)
		}
		if body["message"] != "Not authorized, no token" {
			t.Errorf("%s %s: message = %v", tt.method, tt.path, body["message"])
		}
	}
}

func TestForgedCookieRejected(t *testing.T) {
	ts := setupTestServer(t)

	req, _ := http.NewRequest("GET", ts.URL+"/api/tasks", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: "forged.token.value"})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	if body["message"] != "Not authorized, token failed" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	c := newClient(t, ts)
	c.register("alice@x.com")

	status, body := c.do("GET", "/api/auth/me", nil)
	if status != http.StatusOK {
		t.Fatalf("me: status = %d, body = %v", status, body)
	}
	if body["user"].(map[string]any)["email"] != "alice@x.com" {
		t.Errorf("me user = %v", body["user"])
	}

	status, _ = c.do("POST", "/api/auth/logout", nil)
	if status != http.StatusOK {
		t.Fatalf("logout: status = %d", status)
	}

	status, _ = c.do("GET", "/api/auth/me", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("me after logout: status = %d, want %d", status, http.StatusUnauthorized)
	}

	status, _ = c.do("POST", "/api/auth/login", map[string]string{"email": "ALICE@x.com", "password": "secret1"})
	if status != http.StatusOK {
		t.Fatalf("login: status = %d", status)
	}
	status, _ = c.do("GET", "/api/auth/me", nil)
	if status != http.StatusOK {
		t.Errorf("me after login: status = %d, want %d", status, http.StatusOK)
	}
}

func TestCrossUserIsolation(t *testing.T) {
	ts := setupTestServer(t)
	alice := newClient(t, ts)
	bob := newClient(t, ts)
	alice.register("alice@x.com")
	bob.register("bob@x.com")

	id := alice.createTask("alice's secret")

	for _, method := range []string{"GET", "PUT", "DELETE"} {
		var body any
		if method == "PUT" {
			body = map[string]string{"title": "hijacked"}
		}
		status, resp := bob.do(method, "/api/tasks/"+id, body)
		if status != http.StatusNotFound {
			t.Errorf("bob %s: status = %d, want %d", method, status, http.StatusNotFound)
		}
		if resp["message"] != "Task not found" {
			t.Errorf("bob %s: message = %v", method, resp["message"])
		}
	}

	status, list := bob.do("GET", "/api/tasks", nil)
	if status != http.StatusOK {
		t.Fatalf("bob list: status = %d", status)
	}
	if data := list["data"].([]any); len(data) != 0 {
		t.Errorf("bob sees %d tasks, want 0", len(data))
	}

	status, got := alice.do("GET", "/api/tasks/"+id, nil)
	if status != http.StatusOK {
		t.Fatalf("alice get: status = %d", status)
	}
	if got["data"].(map[string]any)["title"] != "alice's secret" {
		t.Errorf("task was modified: %v", got["data"])
	}
}

func TestStatusFilterScenario(t *testing.T) {
	ts := setupTestServer(t)
	c := newClient(t, ts)
	c.register("a@x.com")

	a := c.createTask("A")
	status, _ := c.do("POST", "/api/tasks", map[string]string{"title": "B", "status": "completed"})
	if status != http.StatusCreated {
		t.Fatalf("create B: status = %d", status)
	}
	status, _ = c.do("PUT", "/api/tasks/"+a, map[string]string{"status": "completed"})
	if status != http.StatusOK {
		t.Fatalf("update A: status = %d", status)
	}

	_, completed := c.do("GET", "/api/tasks?status=completed", nil)
	if n := len(completed["data"].([]any)); n != 2 {
		t.Errorf("completed = %d, want 2", n)
	}

	_, pending := c.do("GET", "/api/tasks?status=pending", nil)
	if n := len(pending["data"].([]any)); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
	p := pending["pagination"].(map[string]any)
	if p["total"] != float64(0) || p["totalPages"] != float64(1) {
		t.Errorf("pagination = %v, want total 0, totalPages 1", p)
	}
}

func TestAuthRateLimit(t *testing.T) {
	ts := setupTestServer(t)
	c := newClient(t, ts)

	creds := map[string]string{"email": "nobody@x.com", "password": "whatever"}
	for i := 0; i < authRateLimit; i++ {
		status, _ := c.do("POST", "/api/auth/login", creds)
		if status != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want %d", i+1, status, http.StatusUnauthorized)
		}
	}

	status, _ := c.do("POST", "/api/auth/login", creds)
	if status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", status, http.StatusTooManyRequests)
	}
}

func TestAuthRateLimitIgnoresForwardedHeaders(t *testing.T) {
	ts := setupTestServer(t)

	body := []byte(`{"email":"nobody@x.com","password":"whatever"}`)
	login := func(i int) int {
		t.Helper()
		req, err := http.NewRequest("POST", ts.URL+"/api/auth/login", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	for i := 0; i < authRateLimit; i++ {
		if status := login(i); status != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want %d", i+1, status, http.StatusUnauthorized)
		}
	}
	if status := login(authRateLimit); status != http.StatusTooManyRequests {
		t.Errorf("rotated headers: status = %d, want %d", status, http.StatusTooManyRequests)
	}
}

func TestListPageFarPastEnd(t *testing.T) {
	ts := setupTestServer(t)
	c := newClient(t, ts)
	c.register("a@x.com")
	c.createTask("one")

	status, body := c.do("GET", "/api/tasks?page=1000000000000000001&limit=10", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %v", status, http.StatusOK, body)
	}
	if n := len(body["data"].([]any)); n != 0 {
		t.Errorf("data = %d tasks, want 0", n)
	}
	p := body["pagination"].(map[string]any)
	if p["total"] != float64(1) || p["totalPages"] != float64(1) {
		t.Errorf("pagination = %v, want total 1, totalPages 1", p)
	}
}

func TestCORS(t *testing.T) {
	ts := setupTestServer(t)

	req, _ := http.NewRequest("OPTIONS", ts.URL+"/api/tasks", nil)
	req.Header.Set("Origin", testClientURL)
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != testClientURL {
		t.Errorf("Allow-Origin = %q, want %q", got, testClientURL)
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want %q", got, "true")
	}

	req, _ = http.NewRequest("OPTIONS", ts.URL+"/api/tasks", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for foreign origin = %q, want empty", got)
	}
}
