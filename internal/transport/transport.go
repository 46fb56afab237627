// Package transport holds the chat front-ends that turn voice messages into
// pipeline events.
package transport

import (
	"context"

	"voice-ledger-service/internal/models"
	"voice-ledger-service/internal/service/pipeline"
)

// Dispatcher accepts events for processing. *pipeline.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev models.VoiceEvent, r pipeline.Replier) error
}

// Transport receives voice messages until ctx is cancelled.
type Transport interface {
	Name() string
	Run(ctx context.Context) error
	Close() error
}
