// Package notify delivers generation requests to the external system that
// produces podcast content. Delivery is best effort: a failed trigger is
// logged and counted, never reported to the client that submitted the job.
package notify

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-podcast-backend/internal/sysutil"
)

// ErrDeliveryFailed is wrapped by every notifier error.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// GenerationRequest asks the external generator to build the podcast for a
// newly created job.
type GenerationRequest struct {
	Location string  `json:"location"`
	Language string  `json:"language"`
	Length   float64 `json:"length"`
	Code     string  `json:"code"`
}

// Payload encodes req the way the generator expects it: a one-element JSON
// array.
func Payload(req GenerationRequest) ([]byte, error) {
	return json.Marshal([]GenerationRequest{req})
}

// Notifier sends one GenerationRequest to the generator.
type Notifier interface {
	Notify(ctx context.Context, req GenerationRequest) error
	Name() string
}

// NopNotifier drops every request. It is used when no generator is
// configured, e.g. in local development.
type NopNotifier struct{}

// Notify logs req at debug level and returns nil.
func (NopNotifier) Notify(ctx context.Context, req GenerationRequest) error {
	sysutil.Logger(ctx).Debug().Str("code", req.Code).Msg("notifier disabled; generation request dropped")
	return nil
}

// Name implements Notifier.
func (NopNotifier) Name() string { return "none" }

var notifications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "podcast_notifications_total",
		Help: "Generation requests sent to the external generator, by notifier and outcome.",
	},
	[]string{"notifier", "outcome"},
)

func init() {
	prometheus.MustRegister(notifications)
}
