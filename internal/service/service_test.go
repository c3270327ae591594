package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/tasklist/internal/apperr"
	"github.com/dukerupert/tasklist/internal/auth"
	"github.com/dukerupert/tasklist/internal/database"
	"github.com/dukerupert/tasklist/internal/store"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	auth   *AuthService
	tasks  *TaskService
	issuer *auth.Issuer
	users  *store.UserStore
}

func setupServiceTest(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(context.Background(), database.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db, database.SQLite)
	issuer := auth.NewIssuer([]byte("test-secret"), time.Hour)
	return &testEnv{
		auth:   NewAuthService(users, issuer, discardLogger()),
		tasks:  NewTaskService(store.NewTaskStore(db, database.SQLite), discardLogger()),
		issuer: issuer,
		users:  users,
	}
}

func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()
	sess, err := e.auth.Register(context.Background(), RegisterInput{Name: "Test", Email: email, Password: "secret1"})
	require.NoError(t, err)
	return sess.User.ID
}

func requireKind(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
	if msg != "" {
		require.Equal(t, msg, apperr.Message(err))
	}
}
