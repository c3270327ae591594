package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/tasklist/internal/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// stepClock returns a clock that advances one minute on every call so that
// rows inserted back to back get distinct, ordered timestamps.
func stepClock() func() time.Time {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

func setupStoreTestDB(t *testing.T) (*UserStore, *TaskStore) {
	t.Helper()
	db := openTestDB(t)
	us := NewUserStore(db, database.SQLite)
	ts := NewTaskStore(db, database.SQLite)
	ts.now = stepClock()
	return us, ts
}
