package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-podcast-backend/internal/podcode"
	"github.com/tbourn/go-podcast-backend/internal/repo"
)

func TestNewCodeResolver_Defaults(t *testing.T) {
	r := NewCodeResolver(0)
	assert.Equal(t, DefaultCodeRetries, r.MaxRetries)
	assert.NotNil(t, r.Generate)
}

func TestResolve_ReturnsFirstFreeCandidate(t *testing.T) {
	taken := map[string]bool{"AAAAAA": true, "BBBBBB": true}
	r := &CodeResolver{Generate: sequence("AAAAAA", "BBBBBB", "CCCCCC"), MaxRetries: 10}
	base := testutil.ToFloat64(codeCollisions.WithLabelValues("precheck"))

	code, err := r.Resolve(context.Background(), func(_ context.Context, c string) (bool, error) {
		return taken[c], nil
	})
	require.NoError(t, err)
	assert.Equal(t, "CCCCCC", code)
	assert.Equal(t, base+2, testutil.ToFloat64(codeCollisions.WithLabelValues("precheck")))
}

func TestResolve_ExhaustsAfterBudget(t *testing.T) {
	var checks int
	r := &CodeResolver{Generate: sequence("AAAAAA"), MaxRetries: 10}

	code, err := r.Resolve(context.Background(), func(context.Context, string) (bool, error) {
		checks++
		return true, nil
	})
	assert.Empty(t, code)
	assert.ErrorIs(t, err, ErrExhaustedRetries)
	assert.Equal(t, 10, checks)
}

func TestClaim_DuplicateOnInsertConsumesAttempt(t *testing.T) {
	var claimed []string
	r := &CodeResolver{Generate: sequence("AAAAAA", "BBBBBB"), MaxRetries: 3}
	base := testutil.ToFloat64(codeCollisions.WithLabelValues("insert"))

	code, err := r.Claim(context.Background(),
		func(context.Context, string) (bool, error) { return false, nil },
		func(_ context.Context, c string) error {
			claimed = append(claimed, c)
			if c == "AAAAAA" {
				return repo.ErrDuplicateCode // lost a race after the pre-check
			}
			return nil
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", code)
	assert.Equal(t, []string{"AAAAAA", "BBBBBB"}, claimed)
	assert.Equal(t, base+1, testutil.ToFloat64(codeCollisions.WithLabelValues("insert")))
}

func TestClaim_ExhaustedNeverClaims(t *testing.T) {
	claims := 0
	r := &CodeResolver{Generate: sequence("AAAAAA"), MaxRetries: 10}
	_, err := r.Claim(context.Background(),
		func(context.Context, string) (bool, error) { return true, nil },
		func(context.Context, string) error { claims++; return nil },
	)
	assert.ErrorIs(t, err, ErrExhaustedRetries)
	assert.Zero(t, claims)
}

func TestClaim_StoreErrorsAbort(t *testing.T) {
	boom := errors.New("connection refused")
	r := &CodeResolver{Generate: podcode.Generate, MaxRetries: 10}

	_, err := r.Claim(context.Background(),
		func(context.Context, string) (bool, error) { return false, boom },
		nil,
	)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrExhaustedRetries)

	attempts := 0
	_, err = r.Claim(context.Background(),
		func(context.Context, string) (bool, error) { return false, nil },
		func(context.Context, string) error { attempts++; return boom },
	)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 1, attempts)
}

func TestClaim_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewCodeResolver(10)
	_, err := r.Claim(ctx, func(context.Context, string) (bool, error) {
		t.Fatal("store must not be queried after cancellation")
		return false, nil
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
