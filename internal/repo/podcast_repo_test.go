package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-podcast-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func strp(s string) *string { return &s }

func newPodcast(code string) *domain.Podcast {
	return &domain.Podcast{Code: code, CityName: "Paris", Language: "English", Length: 6}
}

func TestInsertPodcast_FillsDefaults(t *testing.T) {
	db := newTestDB(t, &domain.Podcast{})
	p := newPodcast("ABC123")

	if err := InsertPodcast(context.Background(), db, p); err != nil {
		t.Fatalf("InsertPodcast: %v", err)
	}
	if p.ID == "" || p.Status != domain.StatusPending || p.CreatedAt.IsZero() || !p.UpdatedAt.Equal(p.CreatedAt) {
		t.Fatalf("defaults not applied: %+v", p)
	}

	got, err := FindPodcastByCode(context.Background(), db, "ABC123")
	if err != nil {
		t.Fatalf("FindPodcastByCode: %v", err)
	}
	if got.ID != p.ID || got.CityName != "Paris" || got.Length != 6 || got.Status != domain.StatusPending {
		t.Fatalf("unexpected row: %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("stored row should validate: %v", err)
	}
}

func TestInsertPodcast_DuplicateCode(t *testing.T) {
	db := newTestDB(t, &domain.Podcast{})
	ctx := context.Background()

	if err := InsertPodcast(ctx, db, newPodcast("DUP001")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := InsertPodcast(ctx, db, newPodcast("DUP001"))
	if !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestInsertPodcast_ConcurrentClaimsOneWinner(t *testing.T) {
	db := newTestDB(t, &domain.Podcast{})
	ctx := context.Background()
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := InsertPodcast(ctx, db, newPodcast("RACE01")); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one successful claim, got %d", wins)
	}
}

func TestInsertPodcast_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	err := InsertPodcast(context.Background(), db, newPodcast("NOTBL1"))
	if err == nil || errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("expected raw error without table, got %v", err)
	}
}

func TestCodeExists(t *testing.T) {
	db := newTestDB(t, &domain.Podcast{})
	ctx := context.Background()

	if ok, err := CodeExists(ctx, db, "ZZZ999"); err != nil || ok {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
	if err := InsertPodcast(ctx, db, newPodcast("ZZZ999")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ok, err := CodeExists(ctx, db, "ZZZ999"); err != nil || !ok {
		t.Fatalf("expected (true, nil), got (%v, %v)", ok, err)
	}
}

func TestDeletePodcast(t *testing.T) {
	db := newTestDB(t, &domain.Podcast{})
	ctx := context.Background()

	for _, code := range []string{"KEEP01", "DROP01"} {
		if err := InsertPodcast(ctx, db, newPodcast(code)); err != nil {
			t.Fatalf("insert %s: %v", code, err)
		}
	}
	if err := DeletePodcast(ctx, db, "DROP01"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := CodeExists(ctx, db, "DROP01"); ok {
		t.Fatalf("DROP01 still present")
	}
	if ok, _ := CodeExists(ctx, db, "KEEP01"); !ok {
		t.Fatalf("KEEP01 removed")
	}
	if err := DeletePodcast(ctx, db, "NOPE00"); err != nil {
		t.Fatalf("deleting a missing code: %v", err)
	}
}

func TestFindPodcastByCode_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.Podcast{})
	p, err := FindPodcastByCode(context.Background(), db, "NOPE00")
	if p != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound), got (%v, %v)", p, err)
	}
}

func TestListRecentPodcasts_NewestFirstAndLimit(t *testing.T) {
	db := newTestDB(t, &domain.Podcast{})
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, code := range []string{"AAAAA1", "AAAAA2", "AAAAA3"} {
		p := newPodcast(code)
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := InsertPodcast(ctx, db, p); err != nil {
			t.Fatalf("insert %s: %v", code, err)
		}
	}

	all, err := ListRecentPodcasts(ctx, db, 10)
	if err != nil {
		t.Fatalf("ListRecentPodcasts: %v", err)
	}
	if len(all) != 3 || all[0].Code != "AAAAA3" || all[2].Code != "AAAAA1" {
		t.Fatalf("unexpected order: %+v", all)
	}

	two, err := ListRecentPodcasts(ctx, db, 2)
	if err != nil {
		t.Fatalf("ListRecentPodcasts limit: %v", err)
	}
	if len(two) != 2 || two[0].Code != "AAAAA3" || two[1].Code != "AAAAA2" {
		t.Fatalf("unexpected limited page: %+v", two)
	}
}

func TestApplyPodcastResult_CompletesAndFreezes(t *testing.T) {
	db := newTestDB(t, &domain.Podcast{})
	ctx := context.Background()
	if err := InsertPodcast(ctx, db, newPodcast("DONE01")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := ApplyPodcastResult(ctx, db, "DONE01", domain.PodcastResult{Status: domain.StatusGenerating})
	if err != nil || got.Status != domain.StatusGenerating {
		t.Fatalf("pending->generating: got=%+v err=%v", got, err)
	}

	got, err = ApplyPodcastResult(ctx, db, "DONE01", domain.PodcastResult{
		Status:     domain.StatusCompleted,
		Title:      strp("Paris"),
		AudioURL:   strp("https://cdn.example.com/done01.mp3"),
		References: []domain.Reference{{URL: "https://a", Title: "A"}},
	})
	if err != nil {
		t.Fatalf("generating->completed: %v", err)
	}
	if got.Status != domain.StatusCompleted || got.Title == nil || *got.Title != "Paris" || len(got.References) != 1 {
		t.Fatalf("result not applied: %+v", got)
	}
	if got.Description != nil {
		t.Fatalf("nil fields must stay untouched, got description %q", *got.Description)
	}

	if _, err := ApplyPodcastResult(ctx, db, "DONE01", domain.PodcastResult{Status: domain.StatusFailed}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from terminal state, got %v", err)
	}
	if _, err := ApplyPodcastResult(ctx, db, "NOPE00", domain.PodcastResult{Status: domain.StatusFailed}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFailStalePodcasts(t *testing.T) {
	db := newTestDB(t, &domain.Podcast{})
	ctx := context.Background()

	old := time.Now().UTC().Add(-2 * time.Hour)
	seed := func(code string, st domain.Status, at time.Time) {
		p := newPodcast(code)
		p.Status = st
		p.CreatedAt, p.UpdatedAt = at, at
		if err := InsertPodcast(ctx, db, p); err != nil {
			t.Fatalf("seed %s: %v", code, err)
		}
	}
	seed("OLDPEN", domain.StatusPending, old)
	seed("OLDGEN", domain.StatusGenerating, old)
	seed("OLDDON", domain.StatusCompleted, old)
	seed("NEWPEN", domain.StatusPending, time.Now().UTC())

	n, err := FailStalePodcasts(ctx, db, time.Now().UTC().Add(-time.Hour), "generation timed out")
	if err != nil {
		t.Fatalf("FailStalePodcasts: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows failed, got %d", n)
	}

	want := map[string]domain.Status{
		"OLDPEN": domain.StatusFailed,
		"OLDGEN": domain.StatusFailed,
		"OLDDON": domain.StatusCompleted,
		"NEWPEN": domain.StatusPending,
	}
	for code, st := range want {
		p, err := FindPodcastByCode(ctx, db, code)
		if err != nil {
			t.Fatalf("find %s: %v", code, err)
		}
		if p.Status != st {
			t.Fatalf("%s: status %q, want %q", code, p.Status, st)
		}
		if st == domain.StatusFailed && (p.ErrorMessage == nil || *p.ErrorMessage != "generation timed out") {
			t.Fatalf("%s: error message not set: %+v", code, p.ErrorMessage)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"UNIQUE constraint failed: podcasts.code", true},
		{"constraint failed: UNIQUE constraint failed (2067)", true},
		{`pq: duplicate key value violates unique constraint "ux_podcasts_code"`, true},
		{"database is locked", false},
	}
	for _, tc := range cases {
		if got := isUniqueViolation(errors.New(tc.msg)); got != tc.want {
			t.Errorf("isUniqueViolation(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
	if !isUniqueViolation(fmt.Errorf("wrapped: %w", gorm.ErrDuplicatedKey)) {
		t.Errorf("wrapped gorm.ErrDuplicatedKey should be recognised")
	}
}
