package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/tasklist/internal/auth"
	"github.com/dukerupert/tasklist/internal/database"
	"github.com/dukerupert/tasklist/internal/service"
	"github.com/dukerupert/tasklist/internal/store"
)

type testHandlers struct {
	auth  *AuthHandler
	tasks *TaskHandler
	svc   *service.AuthService
}

func setupHandlerTest(t *testing.T, production bool) *testHandlers {
	t.Helper()
	db, err := database.Open(context.Background(), database.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := store.NewUserStore(db, database.SQLite)
	authSvc := service.NewAuthService(users, auth.NewIssuer([]byte("test-secret"), time.Hour), logger)
	taskSvc := service.NewTaskService(store.NewTaskStore(db, database.SQLite), logger)

	return &testHandlers{
		auth:  NewAuthHandler(authSvc, logger, production),
		tasks: NewTaskHandler(taskSvc, logger, production),
		svc:   authSvc,
	}
}

func (th *testHandlers) registerUser(t *testing.T, email string) auth.Identity {
	t.Helper()
	sess, err := th.svc.Register(context.Background(), service.RegisterInput{Name: "Test", Email: email, Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return auth.Identity{UserID: sess.User.ID, Name: sess.User.Name, Email: sess.User.Email}
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func asUser(r *http.Request, id auth.Identity) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), id))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(w.Body).Decode(&m); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return m
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}
