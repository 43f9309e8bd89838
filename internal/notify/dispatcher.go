package notify

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-podcast-backend/internal/sysutil"
)

// Dispatcher runs notifier calls in the background so the submitting request
// never waits on the generator.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher returns a Dispatcher that bounds every delivery by timeout.
func NewDispatcher(n Notifier, timeout time.Duration) *Dispatcher {
	if n == nil {
		n = NopNotifier{}
	}
	return &Dispatcher{notifier: n, timeout: timeout}
}

// Dispatch starts delivering req and returns immediately. The delivery keeps
// the values of ctx (logger, trace) but not its cancellation, so it outlives
// the HTTP request that triggered it.
func (d *Dispatcher) Dispatch(ctx context.Context, req GenerationRequest) {
	bg := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(bg, req)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, req GenerationRequest) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	ctx, span := otel.Tracer("notify/Dispatcher").Start(ctx, "Deliver",
		trace.WithAttributes(
			attribute.String("podcast.code", req.Code),
			attribute.String("notifier", d.notifier.Name()),
		),
	)
	defer span.End()

	lg := sysutil.Logger(ctx)
	start := time.Now()
	if err := d.notifier.Notify(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		notifications.WithLabelValues(d.notifier.Name(), "failure").Inc()
		lg.Error().Err(err).
			Str("code", req.Code).
			Str("notifier", d.notifier.Name()).
			Dur("elapsed", time.Since(start)).
			Msg("generation trigger failed")
		return
	}
	notifications.WithLabelValues(d.notifier.Name(), "success").Inc()
	lg.Info().
		Str("code", req.Code).
		Str("notifier", d.notifier.Name()).
		Dur("elapsed", time.Since(start)).
		Msg("generation triggered")
}

// Wait blocks until every in-flight delivery finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
