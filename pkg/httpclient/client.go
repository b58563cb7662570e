// Package httpclient issues one HTTP request at a time and reports its progress
// through an Observer.
//
// Custom headers set with SetHeader are staged and attached to the next request
// only. Starting a request while another one is active cancels the active one first,
// and the Observer sees OnError(engine.CodeAborted, tx) for it.
//
// A Client is not safe for concurrent use. Get, CancelRequest, SetHeader and Run must
// be called from one goroutine, or serialized by the caller.
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-probe/pkg/engine"
)

// Client owns one engine session and at most one active transaction.
type Client struct {
	session  engine.Session
	observer Observer
	tracker  *transactionObserver
	stage    *HeaderStage
	log      Logger
	metrics  *Metrics

	active   engine.Transaction
	isActive bool
	closed   bool
}

// New opens a session for cfg and binds observer to it.
func New(observer Observer, cfg engine.Config, opts ...Option) (*Client, error) {
	if observer == nil {
		return nil, fmt.Errorf("%w: observer must not be nil", ErrInit)
	}

	o := options{engine: engine.Resty{}, log: noopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}

	session, err := o.engine.OpenSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: open session: %w", ErrInit, err)
	}

	c := &Client{
		session:  session,
		observer: observer,
		stage:    NewHeaderStage(),
		log:      o.log,
		metrics:  o.metrics,
	}
	c.tracker = newTransactionObserver(observer, c, o.log, o.metrics)
	return c, nil
}

// SetHeader stages a header for the next request, replacing any staged value.
func (c *Client) SetHeader(name, value string) {
	c.stage.Set(name, value)
}

// SetUserAgent stages the User-Agent header for the next request.
func (c *Client) SetUserAgent(value string) {
	c.SetHeader("User-Agent", value)
}

// StagedHeaders returns the headers waiting for the next request.
func (c *Client) StagedHeaders() *HeaderStage {
	return c.stage
}

// Get starts a GET request for rawURL.
func (c *Client) Get(rawURL string) error {
	return c.Request(http.MethodGet, rawURL)
}

// Request starts a request. Only GET is supported. The URL is validated before the
// active transaction, if any, is cancelled; on a validation error nothing changes.
// Progress and the result are reported through the Observer while Run is running.
func (c *Client) Request(method, rawURL string) error {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method != http.MethodGet {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	u, err := parseURL(rawURL)
	if err != nil {
		return err
	}

	// The abort callback may itself start a request; this call still ends up owning
	// the slot.
	for c.isActive {
		c.CancelRequest()
	}

	tx, err := c.session.OpenTransaction(u, method, c.tracker)
	if err != nil {
		return fmt.Errorf("open transaction: %w", err)
	}

	applied, err := c.stage.ApplyTo(tx.RequestHeaders())
	if err != nil {
		c.log.WarnObj("staged headers skipped", "header_error", map[string]any{
			"transaction_id": tx.ID(),
			"applied":        applied,
			"error":          err.Error(),
		})
	}

	if err := tx.Submit(); err != nil {
		tx.Close()
		return fmt.Errorf("submit transaction: %w", err)
	}

	c.active = tx
	c.isActive = true
	c.tracker.startedAt = time.Now()
	c.metrics.transactionStarted()

	c.log.DebugObj("transaction submitted", "transaction", map[string]any{
		"transaction_id": tx.ID(),
		"method":         method,
		"url":            u.String(),
		"headers":        applied,
	})
	return nil
}

// CancelRequest aborts the active transaction. The Observer gets
// OnError(engine.CodeAborted, tx) before the transaction is closed. It does nothing
// when no transaction is active.
func (c *Client) CancelRequest() {
	if !c.isActive {
		return
	}
	tx := c.active
	c.active = nil
	c.isActive = false

	if c.tracker.isSettling(tx) {
		// The terminal callback is running; settle closes the transaction.
		return
	}

	c.tracker.aborted()
	c.log.DebugObj("transaction cancelled", "transaction", map[string]any{
		"transaction_id": tx.ID(),
	})
	defer tx.Close()
	c.observer.OnError(engine.CodeAborted, tx)
}

// IsActive reports whether a transaction is open and has not reached a terminal state.
func (c *Client) IsActive() bool {
	return c.isActive
}

// Run delivers engine events to the Observer until ctx is done or the client is
// closed.
func (c *Client) Run(ctx context.Context) error {
	return c.session.Run(ctx)
}

// Close drops the active transaction without notifying the Observer and closes the
// session.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if c.isActive {
		c.tracker.aborted()
		c.release(c.active)
	}
	return c.session.Close()
}

func (c *Client) release(tx engine.Transaction) {
	tx.Close()
	if c.active == tx {
		c.active = nil
		c.isActive = false
	}
}
