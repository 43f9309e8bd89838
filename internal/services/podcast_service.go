// Package services – PodcastService
//
// This file implements PodcastService, which owns the lifecycle of podcast
// generation jobs: it validates and normalizes submissions, claims a unique
// code by inserting a pending record, hands the job to the external
// generator, and serves lookups and listings of stored records.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the job code where one is known.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-podcast-backend/internal/domain"
	"github.com/tbourn/go-podcast-backend/internal/notify"
	"github.com/tbourn/go-podcast-backend/internal/podcode"
	"github.com/tbourn/go-podcast-backend/internal/repo"
	"github.com/tbourn/go-podcast-backend/internal/sysutil"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/unicode/norm"
)

// Client-facing validation messages.
const (
	msgCityRequired     = "City name is required"
	msgLanguageRequired = "Language is required"
	msgLengthRange      = "Length must be between 2 and 15 minutes"
	msgCityTooLong      = "City name must be at most 255 characters"
	msgLanguageTooLong  = "Language must be at most 64 characters"
	msgInvalidCode      = "Invalid podcast code"
	msgInvalidStatus    = "Status must be one of: generating, completed, failed"
)

// DefaultListLimit bounds ListRecent when no limit is configured.
const DefaultListLimit = 50

// PodcastRepo defines the repository contract required by PodcastService.
// Implementations are responsible for persistence of job records.
type PodcastRepo interface {
	// InsertPodcast stores a new job; a taken code yields repo.ErrDuplicateCode.
	InsertPodcast(ctx context.Context, db *gorm.DB, p *domain.Podcast) error

	// CodeExists reports whether a job already holds code.
	CodeExists(ctx context.Context, db *gorm.DB, code string) (bool, error)

	// FindPodcastByCode returns the job holding code or repo.ErrNotFound.
	FindPodcastByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Podcast, error)

	// ListRecentPodcasts returns up to limit jobs, newest first.
	ListRecentPodcasts(ctx context.Context, db *gorm.DB, limit int) ([]domain.Podcast, error)

	// ApplyPodcastResult writes a generator result onto a non-terminal job.
	ApplyPodcastResult(ctx context.Context, db *gorm.DB, code string, res domain.PodcastResult) (*domain.Podcast, error)

	// PodcastsStats returns the row count and newest update time.
	PodcastsStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)
}

// Trigger starts generation for a job without blocking the caller.
type Trigger interface {
	Dispatch(ctx context.Context, req notify.GenerationRequest)
}

// PodcastService coordinates job creation, lookup and completion.
type PodcastService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the job repository used by this service.
	Repo PodcastRepo
	// Resolver claims unique codes.
	Resolver *CodeResolver
	// Trigger hands new jobs to the external generator. Nil disables it.
	Trigger Trigger

	// ListLimit caps ListRecent.
	ListLimit int
	// IdempotencyTTL is how long a submission's Idempotency-Key is honored.
	IdempotencyTTL time.Duration

	now func() time.Time
}

// NewPodcastService constructs a PodcastService with default limits.
func NewPodcastService(db *gorm.DB, r PodcastRepo, t Trigger) *PodcastService {
	return &PodcastService{
		DB:             db,
		Repo:           r,
		Resolver:       NewCodeResolver(DefaultCodeRetries),
		Trigger:        t,
		ListLimit:      DefaultListLimit,
		IdempotencyTTL: 24 * time.Hour,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SubmitInput is a generation request as received from a client. Length is
// nil when the client sent no number.
type SubmitInput struct {
	CityName string
	Language string
	Length   *float64

	// ClientKey and IdempotencyKey scope a retry-safe submission. Both are
	// optional; an empty IdempotencyKey disables replay.
	ClientKey      string
	IdempotencyKey string
}

// SubmitResult reports the code issued for a submission.
type SubmitResult struct {
	Code string
	// Replayed is true when the code comes from an earlier submission with
	// the same idempotency key.
	Replayed bool
}

// Submit validates in, creates a pending job under a fresh code, and fires
// the generation trigger in the background.
//
// Validation failures return a *ValidationError before anything is written.
// Trigger failures never reach the caller.
func (s *PodcastService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	ctx, span := otel.Tracer("services/PodcastService").Start(ctx, "Submit")
	defer span.End()

	city := normalizeSubject(in.CityName)
	switch {
	case city == "":
		return nil, invalid("city_name", msgCityRequired)
	case utf8.RuneCountInString(city) > domain.MaxCityNameLen:
		return nil, invalid("city_name", msgCityTooLong)
	}
	lang := normalizeLanguage(in.Language)
	switch {
	case lang == "":
		return nil, invalid("language", msgLanguageRequired)
	case utf8.RuneCountInString(lang) > domain.MaxLanguageLen:
		return nil, invalid("language", msgLanguageTooLong)
	}
	if in.Length == nil || !validLength(*in.Length) {
		return nil, invalid("length", msgLengthRange)
	}
	length := *in.Length

	if code, ok := s.replay(ctx, in.ClientKey, in.IdempotencyKey); ok {
		span.SetAttributes(attribute.String("podcast.code", code), attribute.Bool("idempotent.replay", true))
		return &SubmitResult{Code: code, Replayed: true}, nil
	}

	code, err := s.resolver().Claim(ctx,
		func(ctx context.Context, code string) (bool, error) {
			return s.Repo.CodeExists(ctx, s.DB, code)
		},
		func(ctx context.Context, code string) error {
			return s.Repo.InsertPodcast(ctx, s.DB, &domain.Podcast{
				Code:     code,
				CityName: city,
				Language: lang,
				Length:   length,
				Status:   domain.StatusPending,
			})
		},
	)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("podcast.code", code))

	if prev, dup := s.remember(ctx, in.ClientKey, in.IdempotencyKey, code); dup {
		// A concurrent request with the same key won; its job is the one the
		// client asked for, and ours must not linger as a pending row.
		if err := repo.DeletePodcast(ctx, s.DB, code); err != nil {
			sysutil.Logger(ctx).Warn().Err(err).Str("code", code).Msg("failed to discard duplicate submission")
		}
		return &SubmitResult{Code: prev, Replayed: true}, nil
	}

	if s.Trigger != nil {
		s.Trigger.Dispatch(ctx, notify.GenerationRequest{
			Location: city,
			Language: lang,
			Length:   length,
			Code:     code,
		})
	}
	return &SubmitResult{Code: code}, nil
}

// Lookup normalizes raw and returns the job holding it.
//
// A code that is malformed after normalization is rejected without touching
// the store. A row that fails schema validation yields ErrCorruptRecord.
func (s *PodcastService) Lookup(ctx context.Context, raw string) (*domain.Podcast, error) {
	code, err := parseCode(raw)
	if err != nil {
		return nil, err
	}
	ctx, span := otel.Tracer("services/PodcastService").Start(ctx, "Lookup",
		trace.WithAttributes(attribute.String("podcast.code", code)),
	)
	defer span.End()

	p, err := s.Repo.FindPodcastByCode(ctx, s.DB, code)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil, ErrNotFound
	case err != nil:
		span.RecordError(err)
		return nil, unavailable("find podcast", err)
	}
	if err := p.Validate(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return p, nil
}

// ListRecent returns the newest jobs, at most ListLimit of them. A positive
// limit may lower the bound but never raise it. Rows that fail schema
// validation are skipped and logged.
func (s *PodcastService) ListRecent(ctx context.Context, limit int) ([]domain.Podcast, error) {
	bound := s.ListLimit
	if bound <= 0 {
		bound = DefaultListLimit
	}
	if limit <= 0 || limit > bound {
		limit = bound
	}
	ctx, span := otel.Tracer("services/PodcastService").Start(ctx, "ListRecent",
		trace.WithAttributes(attribute.Int("limit", limit)),
	)
	defer span.End()

	rows, err := s.Repo.ListRecentPodcasts(ctx, s.DB, limit)
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("list podcasts", err)
	}
	out := rows[:0]
	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			sysutil.Logger(ctx).Warn().Err(err).Str("id", rows[i].ID).Msg("skipping malformed podcast row")
			continue
		}
		out = append(out, rows[i])
	}
	return out, nil
}

// Version returns the row count and newest update time of the job table,
// used to derive listing ETags.
func (s *PodcastService) Version(ctx context.Context) (int64, *time.Time, error) {
	n, ts, err := s.Repo.PodcastsStats(ctx, s.DB)
	if err != nil {
		return 0, nil, unavailable("podcast stats", err)
	}
	return n, ts, nil
}

// Complete records a result reported by the external generator.
//
// The target status must be generating, completed or failed. Jobs that already
// finished are never rewritten and yield ErrInvalidTransition.
func (s *PodcastService) Complete(ctx context.Context, raw string, res domain.PodcastResult) (*domain.Podcast, error) {
	code, err := parseCode(raw)
	if err != nil {
		return nil, err
	}
	if !res.Status.Valid() || res.Status == domain.StatusPending {
		return nil, invalid("status", msgInvalidStatus)
	}
	ctx, span := otel.Tracer("services/PodcastService").Start(ctx, "Complete",
		trace.WithAttributes(
			attribute.String("podcast.code", code),
			attribute.String("podcast.status", string(res.Status)),
		),
	)
	defer span.End()

	p, err := s.Repo.ApplyPodcastResult(ctx, s.DB, code, res)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, repo.ErrInvalidTransition):
		return nil, ErrInvalidTransition
	case err != nil:
		span.RecordError(err)
		return nil, unavailable("apply result", err)
	}
	return p, nil
}

func (s *PodcastService) resolver() *CodeResolver {
	if s.Resolver != nil {
		return s.Resolver
	}
	return NewCodeResolver(DefaultCodeRetries)
}

func (s *PodcastService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// replay returns the code remembered for (clientKey, key), if any. Lookup
// failures are logged and treated as a miss.
func (s *PodcastService) replay(ctx context.Context, clientKey, key string) (string, bool) {
	if strings.TrimSpace(key) == "" {
		return "", false
	}
	rec, err := repo.GetIdempotency(ctx, s.DB, clientKey, key, s.clock())
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			sysutil.Logger(ctx).Warn().Err(err).Msg("idempotency lookup failed")
		}
		return "", false
	}
	return rec.Code, true
}

// remember stores code under (clientKey, key). When another request stored
// the same key first, it returns that request's code and true.
func (s *PodcastService) remember(ctx context.Context, clientKey, key, code string) (string, bool) {
	if strings.TrimSpace(key) == "" {
		return "", false
	}
	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	_, err := repo.CreateIdempotency(ctx, s.DB, clientKey, key, code, ttl)
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, repo.ErrDuplicate):
		if prev, ok := s.replay(ctx, clientKey, key); ok {
			sysutil.Logger(ctx).Info().Str("code", code).Str("kept", prev).Msg("concurrent idempotent submission")
			return prev, true
		}
	default:
		sysutil.Logger(ctx).Warn().Err(err).Str("code", code).Msg("failed to store idempotency key")
	}
	return "", false
}

// parseCode normalizes raw and checks its shape.
func parseCode(raw string) (string, error) {
	code := podcode.Normalize(raw)
	if !podcode.Valid(code) {
		return "", invalid("code", msgInvalidCode)
	}
	return code, nil
}

func validLength(v float64) bool {
	return !math.IsNaN(v) && v >= domain.MinLengthMinutes && v <= domain.MaxLengthMinutes
}

// normalizeSubject applies NFC, trims, and collapses runs of whitespace.
func normalizeSubject(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(norm.NFC.String(s)), " ")
}

// normalizeLanguage cleans up whitespace and Unicode form only. The value is
// passed to the generator as the client wrote it, so "Yi" and "English (UK)"
// stay exactly that.
func normalizeLanguage(s string) string {
	return normalizeSubject(s)
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
