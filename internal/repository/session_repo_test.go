package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type recordingDB struct {
	queries []string
}

type errRow struct{}

func (errRow) Scan(dest ...any) error { return errors.New("no rows") }

func (db *recordingDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	db.queries = append(db.queries, sql)
	return pgconn.CommandTag{}, nil
}

func (db *recordingDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.queries = append(db.queries, sql)
	return nil, errors.New("no rows")
}

func (db *recordingDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	db.queries = append(db.queries, sql)
	return errRow{}
}

// Catches column lists concatenated straight into the next keyword,
// e.g. "updated_atFROM sessions".
var gluedKeyword = regexp.MustCompile(`[A-Za-z0-9_](SELECT|FROM|WHERE|RETURNING|ORDER|AND)\b`)

func TestSessionQueriesKeepKeywordsSeparated(t *testing.T) {
	ctx := context.Background()
	db := &recordingDB{}
	repo := NewSessionRepository(db)

	start := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	repo.GetByID(ctx, 1)
	repo.GetByIDForUpdate(ctx, 1)
	repo.Create(ctx, CreateSessionInput{TenantID: 1, StudioID: 1, RoomID: 1, CoachID: 1, StartsAt: start, EndsAt: end, Kind: "group", Capacity: 5})
	repo.List(ctx, SessionListFilter{TenantID: 1, RoomID: 2, Status: "scheduled", From: &start, To: &end})
	repo.ListBySeries(ctx, 1)
	repo.UpdateWindow(ctx, 1, start, end)
	repo.UpdateStatusIfCurrent(ctx, 1, "scheduled", "completed")
	repo.FirstRoomOverlap(ctx, 1, 2, start, end, 0)
	repo.FirstCoachOverlap(ctx, 1, 3, start, end, 7)
	repo.FirstClientOverlap(ctx, 1, 4, start, end, 0)

	if len(db.queries) != 10 {
		t.Fatalf("expected 10 recorded queries, got %d", len(db.queries))
	}
	for _, query := range db.queries {
		if match := gluedKeyword.FindString(query); match != "" {
			t.Fatalf("query has keyword glued to preceding token (%q):\n%s", match, query)
		}
	}
}
