package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/samvad-hq/samvad-probe/pkg/engine"
)

// fakeEngine hands out a scripted session.
type fakeEngine struct {
	sess *fakeSession
	err  error
}

func (f *fakeEngine) OpenSession(engine.Config) (engine.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sess, nil
}

type fakeDelivery struct {
	tx    *fakeTx
	ev    engine.Event
	chunk []byte
	last  bool
}

// fakeSession queues events and delivers them synchronously from Run with the same
// rules as the real engine: closed transactions get nothing and sink panics are
// routed to OnEventError.
type fakeSession struct {
	txs    []*fakeTx
	queue  []fakeDelivery
	closed bool
}

func (s *fakeSession) OpenTransaction(u *url.URL, method string, sink engine.EventSink) (engine.Transaction, error) {
	if s.closed {
		return nil, engine.ErrSessionClosed
	}
	tx := &fakeTx{
		id:      uint64(len(s.txs) + 1),
		method:  method,
		url:     u,
		headers: engine.NewHeaders(),
		sink:    sink,
		resp:    &fakeResponse{url: u, code: http.StatusOK, body: &fakeBody{overall: -1}},
	}
	s.txs = append(s.txs, tx)
	return tx, nil
}

func (s *fakeSession) emit(tx *fakeTx, statuses ...engine.Status) {
	for _, st := range statuses {
		s.queue = append(s.queue, fakeDelivery{tx: tx, ev: engine.Event{Status: st}})
	}
}

func (s *fakeSession) emitChunk(tx *fakeTx, chunk string, last bool) {
	s.queue = append(s.queue, fakeDelivery{
		tx:    tx,
		ev:    engine.Event{Status: engine.StatusBodyChunk},
		chunk: []byte(chunk),
		last:  last,
	})
}

func (s *fakeSession) Run(ctx context.Context) error {
	for len(s.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		d := s.queue[0]
		s.queue = s.queue[1:]
		if d.tx.closed {
			continue
		}
		if d.ev.Status == engine.StatusBodyChunk {
			d.tx.resp.body.chunk = d.chunk
			d.tx.resp.body.last = d.last
		}
		if err := s.dispatch(d); err != nil {
			d.tx.sink.OnEventError(err, d.tx, d.ev)
		}
	}
	return nil
}

func (s *fakeSession) dispatch(d fakeDelivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return d.tx.sink.OnEvent(d.tx, d.ev)
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeTx struct {
	id        uint64
	method    string
	url       *url.URL
	headers   *engine.Headers
	sink      engine.EventSink
	resp      *fakeResponse
	submitted bool
	closed    bool
}

func (t *fakeTx) ID() uint64                      { return t.id }
func (t *fakeTx) Method() string                  { return t.method }
func (t *fakeTx) URL() *url.URL                   { return t.url }
func (t *fakeTx) RequestHeaders() *engine.Headers { return t.headers }
func (t *fakeTx) Response() engine.Response       { return t.resp }

func (t *fakeTx) Submit() error {
	if t.closed {
		return engine.ErrTransactionClosed
	}
	t.submitted = true
	return nil
}

func (t *fakeTx) Close() { t.closed = true }

type fakeResponse struct {
	url  *url.URL
	code int
	body *fakeBody
}

func (r *fakeResponse) URL() *url.URL             { return r.url }
func (r *fakeResponse) StatusCode() int           { return r.code }
func (r *fakeResponse) Status() string            { return http.StatusText(r.code) }
func (r *fakeResponse) Header() http.Header       { return http.Header{} }
func (r *fakeResponse) Body() engine.BodySupplier { return r.body }

type fakeBody struct {
	chunk    []byte
	last     bool
	overall  int64
	releases int
}

func (b *fakeBody) NextChunk() ([]byte, bool) { return b.chunk, b.last }
func (b *fakeBody) OverallSize() int64        { return b.overall }
func (b *fakeBody) Release()                  { b.releases++ }
