package services

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-podcast-backend/internal/podcode"
	"github.com/tbourn/go-podcast-backend/internal/repo"
)

// DefaultCodeRetries is the number of candidates tried before giving up.
const DefaultCodeRetries = 10

var codeCollisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "podcast_code_collisions_total",
		Help: "Generated podcast codes that were already taken, by detection stage.",
	},
	[]string{"stage"},
)

func init() {
	prometheus.MustRegister(codeCollisions)
}

// CodeResolver finds a code no other job holds.
//
// The existence check is only a shortcut. The claim step (an insert guarded
// by the unique index) decides ownership, so two resolvers racing for the
// same candidate cannot both win.
type CodeResolver struct {
	Generate   podcode.Generator
	MaxRetries int
}

// NewCodeResolver returns a resolver using podcode.Generate. Non-positive
// maxRetries selects DefaultCodeRetries.
func NewCodeResolver(maxRetries int) *CodeResolver {
	if maxRetries <= 0 {
		maxRetries = DefaultCodeRetries
	}
	return &CodeResolver{Generate: podcode.Generate, MaxRetries: maxRetries}
}

// Resolve returns a candidate for which exists reported false.
func (r *CodeResolver) Resolve(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	return r.Claim(ctx, exists, nil)
}

// Claim draws candidates until one is free and claim succeeds for it.
//
// A claim failing with repo.ErrDuplicateCode uses up an attempt like a failed
// existence check does. After MaxRetries attempts it returns
// ErrExhaustedRetries. Any other error stops the loop and is returned wrapped
// in ErrStoreUnavailable. A nil claim returns the first free candidate.
func (r *CodeResolver) Claim(
	ctx context.Context,
	exists func(context.Context, string) (bool, error),
	claim func(context.Context, string) error,
) (string, error) {
	gen := r.Generate
	if gen == nil {
		gen = podcode.Generate
	}
	attempts := r.MaxRetries
	if attempts <= 0 {
		attempts = DefaultCodeRetries
	}

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code := gen()

		taken, err := exists(ctx, code)
		if err != nil {
			return "", unavailable("check code", err)
		}
		if taken {
			codeCollisions.WithLabelValues("precheck").Inc()
			continue
		}
		if claim == nil {
			return code, nil
		}

		err = claim(ctx, code)
		switch {
		case err == nil:
			return code, nil
		case errors.Is(err, repo.ErrDuplicateCode):
			codeCollisions.WithLabelValues("insert").Inc()
			continue
		default:
			return "", unavailable("claim code", err)
		}
	}
	return "", ErrExhaustedRetries
}
