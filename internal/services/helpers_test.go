package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-podcast-backend/internal/domain"
	"github.com/tbourn/go-podcast-backend/internal/notify"
	"github.com/tbourn/go-podcast-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// repoShim proxies the repo free functions.
type repoShim struct{}

func (repoShim) InsertPodcast(ctx context.Context, db *gorm.DB, p *domain.Podcast) error {
	return repo.InsertPodcast(ctx, db, p)
}
func (repoShim) CodeExists(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	return repo.CodeExists(ctx, db, code)
}
func (repoShim) FindPodcastByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Podcast, error) {
	return repo.FindPodcastByCode(ctx, db, code)
}
func (repoShim) ListRecentPodcasts(ctx context.Context, db *gorm.DB, limit int) ([]domain.Podcast, error) {
	return repo.ListRecentPodcasts(ctx, db, limit)
}
func (repoShim) ApplyPodcastResult(ctx context.Context, db *gorm.DB, code string, res domain.PodcastResult) (*domain.Podcast, error) {
	return repo.ApplyPodcastResult(ctx, db, code, res)
}
func (repoShim) PodcastsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.PodcastsStats(ctx, db)
}

// countingRepo wraps repoShim and counts calls, optionally failing them.
type countingRepo struct {
	repoShim
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingRepo) hit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *countingRepo) CodeExists(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	if err := c.hit(); err != nil {
		return false, err
	}
	return c.repoShim.CodeExists(ctx, db, code)
}

func (c *countingRepo) InsertPodcast(ctx context.Context, db *gorm.DB, p *domain.Podcast) error {
	if err := c.hit(); err != nil {
		return err
	}
	return c.repoShim.InsertPodcast(ctx, db, p)
}

func (c *countingRepo) FindPodcastByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Podcast, error) {
	if err := c.hit(); err != nil {
		return nil, err
	}
	return c.repoShim.FindPodcastByCode(ctx, db, code)
}

func (c *countingRepo) ListRecentPodcasts(ctx context.Context, db *gorm.DB, limit int) ([]domain.Podcast, error) {
	if err := c.hit(); err != nil {
		return nil, err
	}
	return c.repoShim.ListRecentPodcasts(ctx, db, limit)
}

func (c *countingRepo) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// recordingTrigger captures dispatched requests synchronously.
type recordingTrigger struct {
	mu   sync.Mutex
	reqs []notify.GenerationRequest
}

func (r *recordingTrigger) Dispatch(_ context.Context, req notify.GenerationRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
}

func (r *recordingTrigger) Requests() []notify.GenerationRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.GenerationRequest(nil), r.reqs...)
}

// sequence returns a generator yielding codes in order, repeating the last.
func sequence(codes ...string) func() string {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return c
	}
}

func f64(v float64) *float64 { return &v }
