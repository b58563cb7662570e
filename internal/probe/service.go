package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-probe/internal/domain"
	"github.com/samvad-hq/samvad-probe/internal/logger"
	"github.com/samvad-hq/samvad-probe/pkg/publishers"
	"github.com/samvad-hq/samvad-probe/pkg/targets"
)

// Service runs probe passes over a list of targets with a single request client:
// one request at a time, in target order.
type Service struct {
	client    RequestClient
	rec       *recorder
	store     OutcomeStore
	publisher OutcomePublisher
	log       logger.Logger
}

// NewService opens a client through factory and wires it to the service recorder.
// store and publisher may be nil.
func NewService(factory ClientFactory, store OutcomeStore, publisher OutcomePublisher, log logger.Logger, inspectLimit int) (*Service, error) {
	if factory == nil {
		return nil, fmt.Errorf("client factory must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	rec := &recorder{limit: inspectLimit}
	client, err := factory(rec)
	if err != nil {
		return nil, fmt.Errorf("open request client: %w", err)
	}

	return &Service{
		client:    client,
		rec:       rec,
		store:     store,
		publisher: publisher,
		log:       log,
	}, nil
}

// Run executes a probe pass for all targets. Per-target request failures are part of
// the outcome; only storage and publishing failures are returned.
func (s *Service) Run(ctx context.Context, list []targets.Target) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("probe service is not initialized")
	}
	if len(list) == 0 {
		return fmt.Errorf("no targets configured for probing")
	}

	var errs []error
	for i, t := range list {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && !sleep(ctx, t.RequestDelay()) {
			break
		}

		out := s.Probe(ctx, t)
		if err := s.handle(ctx, out); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("probe outcome handling failed", "probe_error", map[string]any{
				"target_id": t.ID,
				"error":     err.Error(),
			})
		}
	}
	return errors.Join(errs...)
}

// Probe requests one target and waits for its outcome. When ctx ends first the
// request is cancelled and the outcome is aborted.
func (s *Service) Probe(ctx context.Context, t targets.Target) domain.Outcome {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	s.rec.begin(t.ID, t.Name, t.URL, t.Inspect, stop)
	for _, h := range targets.Headers(t) {
		s.client.SetHeader(h.Name, h.Value)
	}

	if err := s.client.Get(t.URL); err != nil {
		s.rec.fail(err)
		return s.rec.out
	}

	if err := s.client.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.WarnObj("request loop ended", "probe_loop", map[string]any{
			"target_id": t.ID,
			"error":     err.Error(),
		})
	}
	if !s.rec.settled {
		s.client.CancelRequest()
	}
	if !s.rec.settled {
		s.rec.fail(fmt.Errorf("request loop ended without an outcome"))
	}
	return s.rec.out
}

func (s *Service) handle(ctx context.Context, out domain.Outcome) error {
	fields := map[string]any{
		"target_id":   out.TargetID,
		"result":      out.Result,
		"status_code": out.StatusCode,
		"error_code":  out.ErrorCode,
		"bytes":       out.Bytes,
		"duration_ms": out.DurationMs,
	}
	switch out.Result {
	case domain.ResultSucceeded:
		s.log.InfoObj("target probed", "probe_outcome", fields)
	case domain.ResultAborted:
		s.log.InfoObj("target probe aborted", "probe_outcome", fields)
		return nil
	default:
		s.log.WarnObj("target probe failed", "probe_outcome", fields)
	}

	var errs []error
	if s.store != nil {
		if prev, ok, err := s.store.Last(out.TargetID); err != nil {
			errs = append(errs, fmt.Errorf("read history %s: %w", out.TargetID, err))
		} else if ok && prev.OK() != out.OK() {
			s.log.WarnObj("target state changed", "probe_transition", map[string]any{
				"target_id": out.TargetID,
				"from":      prev.Result,
				"to":        out.Result,
			})
		}
		if err := s.store.Record(out); err != nil {
			errs = append(errs, fmt.Errorf("record outcome %s: %w", out.TargetID, err))
		}
	}

	if s.publisher != nil {
		if _, err := s.publisher.Publish(ctx, publishers.NewEvent(out)); err != nil {
			errs = append(errs, fmt.Errorf("publish outcome %s: %w", out.TargetID, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the request client.
func (s *Service) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
