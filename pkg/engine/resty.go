package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

var errTooManyRedirects = errors.New("too many redirects")

// Resty opens sessions that perform I/O with go-resty.
type Resty struct{}

// OpenSession implements Engine.
func (Resty) OpenSession(cfg Config) (Session, error) {
	return NewRestySession(cfg)
}

// NewRestyClient creates a resty.Client configured from cfg. Callers needing custom
// verbs or bodies use it directly.
func NewRestyClient(cfg Config) *resty.Client {
	cfg = cfg.withDefaults()

	c := resty.New()
	if cfg.Transport != nil {
		c.SetTransport(cfg.Transport)
	}
	if cfg.ProxyURL != "" {
		c.SetProxy(cfg.ProxyURL)
	}
	c.SetTimeout(cfg.Timeout)
	c.SetRedirectPolicy(resty.FlexibleRedirectPolicy(cfg.MaxRedirects))
	if cfg.UserAgent != "" {
		c.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Logger != nil {
		c.SetLogger(cfg.Logger)
	}
	return c
}

type txKey struct{}

type delivery struct {
	tx *transaction
	ev Event
}

// restySession implements Session on top of a resty.Client.
type restySession struct {
	cfg       Config
	client    *resty.Client
	events    chan delivery
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	nextID    atomic.Uint64
}

// NewRestySession validates cfg and opens a session.
func NewRestySession(cfg Config) (Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &restySession{
		cfg:    cfg,
		client: NewRestyClient(cfg),
		events: make(chan delivery, cfg.EventBuffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.client.SetRedirectPolicy(resty.RedirectPolicyFunc(s.checkRedirect))
	return s, nil
}

func (s *restySession) OpenTransaction(u *url.URL, method string, sink EventSink) (Transaction, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}
	if u == nil {
		return nil, fmt.Errorf("transaction url is nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("transaction event sink is nil")
	}

	target := *u
	ctx, cancel := context.WithCancel(s.ctx)
	t := &transaction{
		id:      s.nextID.Add(1),
		method:  method,
		url:     &target,
		headers: NewHeaders(),
		resp:    newResponse(),
		sink:    sink,
		sess:    s,
		cancel:  cancel,
	}
	t.ctx = context.WithValue(ctx, txKey{}, t)
	return t, nil
}

func (s *restySession) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return ErrSessionClosed
		case d := <-s.events:
			s.deliver(d)
		}
	}
}

func (s *restySession) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
	})
	return nil
}

func (s *restySession) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// deliver hands one event to the sink. Events of closed transactions are dropped.
func (s *restySession) deliver(d delivery) {
	if d.tx.closed.Load() {
		return
	}
	if err := dispatch(d); err != nil {
		fault(d, err)
	}
	if d.ev.Status == StatusBodyChunk {
		d.tx.resp.body.Release()
	}
}

func dispatch(d delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event sink panic: %v", r)
		}
	}()
	return d.tx.sink.OnEvent(d.tx, d.ev)
}

func fault(d delivery, err error) {
	defer func() {
		if recover() != nil {
			d.tx.Close()
		}
	}()
	d.tx.sink.OnEventError(err, d.tx, d.ev)
}

// post queues an event unless the transaction is gone.
func (s *restySession) post(t *transaction, ev Event) bool {
	if t.ctx.Err() != nil {
		return false
	}
	select {
	case s.events <- delivery{tx: t, ev: ev}:
		return true
	case <-t.ctx.Done():
		return false
	}
}

func (s *restySession) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= s.cfg.MaxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, len(via))
	}
	if t, ok := req.Context().Value(txKey{}).(*transaction); ok && req.Response != nil {
		s.post(t, Event{Status: redirectStatus(req.Response.StatusCode)})
	}
	return nil
}

func redirectStatus(code int) Status {
	if code == http.StatusMovedPermanently || code == http.StatusPermanentRedirect {
		return StatusRedirectedPermanently
	}
	return StatusRedirectedTemporarily
}

// perform runs on the transaction goroutine.
func (s *restySession) perform(t *transaction) {
	req := s.client.R().
		SetContext(t.ctx).
		SetDoNotParseResponse(true)
	t.headers.Each(func(name, value string) {
		req.SetHeader(name, value)
	})

	resp, err := req.Execute(t.method, t.url.String())
	if err != nil {
		s.fail(t, err)
		return
	}
	raw := resp.RawBody()
	if raw != nil {
		defer raw.Close()
	}

	length := int64(-1)
	final := t.url
	if rr := resp.RawResponse; rr != nil {
		length = rr.ContentLength
		if rr.Request != nil && rr.Request.URL != nil {
			final = rr.Request.URL
		}
	}
	t.resp.setHead(final, resp.StatusCode(), resp.Status(), resp.Header(), length)

	if length < 0 && !s.post(t, Event{Status: StatusUnknownLength}) {
		return
	}
	if !s.post(t, Event{Status: StatusHeadersReceived}) {
		return
	}
	if raw != nil {
		if err := s.stream(t, raw, length); err != nil {
			s.fail(t, err)
			return
		}
	}
	if !s.post(t, Event{Status: StatusResponseComplete}) {
		return
	}

	outcome := StatusSucceeded
	if code := resp.StatusCode(); code < 200 || code > 299 {
		outcome = StatusFailed
	}
	s.post(t, Event{Status: outcome})
}

// stream reads the body one chunk at a time, waiting for each chunk to be released
// before reading the next. When the length is unknown the reader is peeked to tell
// whether a full chunk is the last one.
func (s *restySession) stream(t *transaction, r io.Reader, length int64) error {
	br := bufio.NewReaderSize(r, s.cfg.ChunkSize)
	buf := make([]byte, s.cfg.ChunkSize)
	var total int64

	for {
		n, err := fill(br, buf)
		total += int64(n)
		last := false
		switch {
		case err == io.EOF:
			last = true
		case err != nil:
			return err
		case length >= 0 && total >= length:
			last = true
		default:
			if _, perr := br.Peek(1); perr == io.EOF {
				last = true
			} else if perr != nil {
				return perr
			}
		}
		if n == 0 {
			return nil
		}

		t.resp.body.put(buf[:n], last)
		if !s.post(t, Event{Status: StatusBodyChunk}) {
			return ErrTransactionClosed
		}
		if !t.resp.body.awaitRelease(t.ctx) {
			return ErrTransactionClosed
		}
		if last {
			return nil
		}
	}
}

func (s *restySession) fail(t *transaction, err error) {
	if !s.post(t, Event{Status: classify(err), Err: err}) {
		return
	}
	s.post(t, Event{Status: StatusFailed})
}

// fill reads until buf is full or the reader returns an error.
func fill(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// transaction implements Transaction for restySession.
type transaction struct {
	id        uint64
	method    string
	url       *url.URL
	headers   *Headers
	resp      *response
	sink      EventSink
	sess      *restySession
	ctx       context.Context
	cancel    context.CancelFunc
	submitted atomic.Bool
	closed    atomic.Bool
}

func (t *transaction) ID() uint64               { return t.id }
func (t *transaction) Method() string           { return t.method }
func (t *transaction) URL() *url.URL            { return t.url }
func (t *transaction) RequestHeaders() *Headers { return t.headers }
func (t *transaction) Response() Response       { return t.resp }

func (t *transaction) Submit() error {
	if t.closed.Load() {
		return ErrTransactionClosed
	}
	if t.sess.isClosed() {
		return ErrSessionClosed
	}
	if !t.submitted.CompareAndSwap(false, true) {
		return ErrAlreadySubmitted
	}
	go t.sess.perform(t)
	return nil
}

func (t *transaction) Close() {
	if t.closed.CompareAndSwap(false, true) {
		t.cancel()
	}
}
