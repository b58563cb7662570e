package probe

import (
	"context"

	"github.com/samvad-hq/samvad-probe/internal/domain"
	"github.com/samvad-hq/samvad-probe/pkg/httpclient"
	"github.com/samvad-hq/samvad-probe/pkg/publishers"
)

// RequestClient is the part of httpclient.Client a probe pass drives.
type RequestClient interface {
	SetHeader(name, value string)
	Get(rawURL string) error
	CancelRequest()
	IsActive() bool
	Run(ctx context.Context) error
	Close() error
}

// ClientFactory opens a request client reporting to obs.
type ClientFactory func(obs httpclient.Observer) (RequestClient, error)

// OutcomePublisher sends outcomes downstream.
type OutcomePublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// OutcomeStore keeps the latest outcome per target.
type OutcomeStore interface {
	Record(o domain.Outcome) error
	Last(targetID string) (domain.Outcome, bool, error)
}
