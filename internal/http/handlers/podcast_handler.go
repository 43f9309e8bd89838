// Podcast HTTP handlers.
//
// This file exposes REST endpoints for podcast generation jobs:
//   - POST   /generate-podcast         (submit)
//   - GET    /podcast/{code}           (poll, summary view)
//   - GET    /podcasts/{code}          (full record)
//   - GET    /podcasts                 (recent jobs, ETag support)
//   - POST   /podcasts/{code}/result   (generator callback)
//
// Handlers are transport-thin: they type-check input, call the podcast
// service, and translate results and errors into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-podcast-backend/internal/domain"
	"github.com/tbourn/go-podcast-backend/internal/http/middleware"
	"github.com/tbourn/go-podcast-backend/internal/services"
	"github.com/tbourn/go-podcast-backend/internal/utils"
)

//
// Service contract (context-aware)
//

// PodcastService defines the job operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PodcastService interface {
	// Submit validates a request, stores a pending job and triggers generation.
	Submit(ctx context.Context, in services.SubmitInput) (*services.SubmitResult, error)
	// Lookup normalizes a raw code and returns the job holding it.
	Lookup(ctx context.Context, raw string) (*domain.Podcast, error)
	// ListRecent returns the newest jobs; limit <= 0 means the service bound.
	ListRecent(ctx context.Context, limit int) ([]domain.Podcast, error)
	// Version returns the job count and newest update time for ETags.
	Version(ctx context.Context) (int64, *time.Time, error)
	// Complete records a generator result for the job holding raw.
	Complete(ctx context.Context, raw string, res domain.PodcastResult) (*domain.Podcast, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for podcast jobs.
type Handlers struct {
	svc PodcastService
}

// New constructs and returns a Handlers instance bound to svc.
func New(svc PodcastService) *Handlers {
	return &Handlers{svc: svc}
}

//
// DTOs
//

// GenerateRequest is the JSON payload for submitting a podcast job.
//
// Fields are decoded loosely so that a value of the wrong JSON type is
// reported with the same message as a missing one.
type GenerateRequest struct {
	// CityName is the subject of the podcast.
	CityName any `json:"city_name" swaggertype:"string" example:"Paris"`
	// Language is a language name or BCP 47 tag.
	Language any `json:"language" swaggertype:"string" example:"English"`
	// Length is the target duration in minutes, 2 to 15.
	Length any `json:"length" swaggertype:"number" example:"6"`
}

// GenerateResponse carries the code issued for a submission.
type GenerateResponse struct {
	Success bool   `json:"success" example:"true"`
	Code    string `json:"code" example:"AB12CD"`
}

// PodcastSummaryResponse wraps the polling view of a job.
type PodcastSummaryResponse struct {
	Success bool                  `json:"success" example:"true"`
	Podcast domain.PodcastSummary `json:"podcast"`
}

// PodcastResponse wraps a full job record.
type PodcastResponse struct {
	Success bool           `json:"success" example:"true"`
	Podcast domain.Podcast `json:"podcast"`
}

// ListPodcastsResponse wraps the recent jobs, newest first.
type ListPodcastsResponse struct {
	Success  bool             `json:"success" example:"true"`
	Podcasts []domain.Podcast `json:"podcasts"`
}

// ResultRequest is the payload the external generator posts back.
type ResultRequest struct {
	// Status is generating, completed or failed.
	Status        string             `json:"status" binding:"required" example:"completed"`
	Title         *string            `json:"title" example:"Paris in Six Minutes"`
	Description   *string            `json:"description"`
	AudioURL      *string            `json:"audio_url" example:"https://cdn.example.com/AB12CD.mp3"`
	ScriptContent *string            `json:"script_content"`
	References    []domain.Reference `json:"references"`
	ErrorMessage  *string            `json:"error_message"`
}

//
// Helpers
//

// failFor maps a service error onto the HTTP error envelope. Unexpected
// errors become a 500 with code fallback and an opaque message.
func failFor(c *gin.Context, err error, fallback, fallbackMsg string) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		code := ErrCodeValidation
		if ve.Field == "code" {
			code = ErrCodeInvalidCode
		}
		fail(c, http.StatusBadRequest, code, ve.Reason)
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, msgNotFound)
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusConflict, ErrCodeConflict, msgAlreadyFinished)
	default:
		failErr(c, http.StatusInternalServerError, fallback, fallbackMsg, err)
	}
}

//
// Handlers
//

// GeneratePodcast godoc
// @ID          generatePodcast
// @Summary     Submit a podcast generation job
// @Description Validates the request, stores a pending job under a fresh 6-character code and triggers generation in the background. Replays with the same Idempotency-Key return the original code.
// @Tags        Podcasts
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Retry-safe submission key"  example(7d3f7c1e-submit-1)
// @Param       body             body    handlers.GenerateRequest  true  "Generation request"
//
// @Success     200  {object}  handlers.GenerateResponse
// @Header      200  {string}  Idempotent-Replay  "true when the code comes from an earlier submission"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /generate-podcast [post]
func (h *Handlers) GeneratePodcast(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgInvalidJSON)
		return
	}

	in := services.SubmitInput{ClientKey: middleware.ClientKey(c)}
	in.CityName, _ = req.CityName.(string)
	in.Language, _ = req.Language.(string)
	if n, isNum := req.Length.(float64); isNum {
		in.Length = &n
	}
	if key, has := middleware.GetIdempotencyKey(c); has {
		in.IdempotencyKey = key
	}

	res, err := h.svc.Submit(c.Request.Context(), in)
	if err != nil {
		failFor(c, err, ErrCodeCreateFailed, msgInternal)
		return
	}
	if res.Replayed {
		c.Header("Idempotent-Replay", "true")
	}
	ok(c, http.StatusOK, GenerateResponse{Success: true, Code: res.Code})
}

// GetPodcast godoc
// @ID          getPodcast
// @Summary     Poll a podcast job
// @Description Returns the summary view of the job holding code. The code is upper-cased and stripped of separators before lookup. Responses are never cached.
// @Tags        Podcasts
// @Produce     json
//
// @Param       code  path  string  true  "Podcast code"  example(AB12CD)
//
// @Success     200  {object}  handlers.PodcastSummaryResponse
// @Header      200  {string}  Cache-Control  "no-store"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid podcast code"
// @Failure     404  {object}  handlers.ErrorResponse  "Podcast not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /podcast/{code} [get]
func (h *Handlers) GetPodcast(c *gin.Context) {
	p, err := h.svc.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		failFor(c, err, ErrCodeInternal, msgInternal)
		return
	}
	c.Header("Cache-Control", "no-store")
	ok(c, http.StatusOK, PodcastSummaryResponse{Success: true, Podcast: p.Summary()})
}

// GetPodcastRecord godoc
// @ID          getPodcastRecord
// @Summary     Fetch a full podcast record
// @Description Returns every stored field of the job holding code, including generation parameters and references.
// @Tags        Podcasts
// @Produce     json
//
// @Param       code  path  string  true  "Podcast code"  example(AB12CD)
//
// @Success     200  {object}  handlers.PodcastResponse
// @Header      200  {string}  Cache-Control  "no-store"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid podcast code"
// @Failure     404  {object}  handlers.ErrorResponse  "Podcast not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /podcasts/{code} [get]
func (h *Handlers) GetPodcastRecord(c *gin.Context) {
	p, err := h.svc.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		failFor(c, err, ErrCodeInternal, msgInternal)
		return
	}
	c.Header("Cache-Control", "no-store")
	ok(c, http.StatusOK, PodcastResponse{Success: true, Podcast: *p})
}

// ListPodcasts godoc
// @ID          listPodcasts
// @Summary     List recent podcast jobs
// @Description Returns the newest jobs first, bounded by the server's list limit. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Podcasts
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"podcasts:3:1700000000000000000:0\")
// @Param       limit          query   int     false "Lower the server bound"      minimum(1)
//
// @Success     200  {object} handlers.ListPodcastsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Failed to fetch podcasts"
// @Router      /podcasts [get]
func (h *Handlers) ListPodcasts(c *gin.Context) {
	ctx := c.Request.Context()
	limit := utils.ClampLimit(c.Query("limit"), 0)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.svc.Version(ctx); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"podcasts:%d:%d:%d"`, count, ts, limit)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.svc.ListRecent(ctx, limit)
	if err != nil {
		failFor(c, err, ErrCodeListFailed, msgListFailed)
		return
	}
	if items == nil {
		items = []domain.Podcast{}
	}
	ok(c, http.StatusOK, ListPodcastsResponse{Success: true, Podcasts: items})
}

// ReportResult godoc
// @ID          reportPodcastResult
// @Summary     Report a generation result
// @Description Called by the external generator to move a job to generating, completed or failed. Finished jobs are never rewritten.
// @Tags        Podcasts
// @Accept      json
// @Produce     json
// @Security    CallbackToken
//
// @Param       code  path  string  true  "Podcast code"  example(AB12CD)
// @Param       body  body  handlers.ResultRequest  true  "Generator result"
//
// @Success     200  {object}  handlers.PodcastResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing or wrong token"
// @Failure     404  {object}  handlers.ErrorResponse  "Podcast not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Podcast has already finished"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /podcasts/{code}/result [post]
func (h *Handlers) ReportResult(c *gin.Context) {
	var req ResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgInvalidJSON)
		return
	}

	p, err := h.svc.Complete(c.Request.Context(), c.Param("code"), domain.PodcastResult{
		Status:        domain.Status(req.Status),
		Title:         req.Title,
		Description:   req.Description,
		AudioURL:      req.AudioURL,
		ScriptContent: req.ScriptContent,
		References:    req.References,
		ErrorMessage:  req.ErrorMessage,
	})
	if err != nil {
		failFor(c, err, ErrCodeInternal, msgInternal)
		return
	}
	ok(c, http.StatusOK, PodcastResponse{Success: true, Podcast: *p})
}
