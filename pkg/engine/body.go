package engine

import (
	"context"
	"net/http"
	"net/url"
	"sync"
)

// body is the BodySupplier of a transaction. The I/O goroutine puts one chunk at a
// time and waits for Release before reading the next one.
type body struct {
	mu       sync.Mutex
	chunk    []byte
	last     bool
	pending  bool
	overall  int64
	released chan struct{}
}

func newBody() *body {
	return &body{overall: -1, released: make(chan struct{}, 1)}
}

func (b *body) NextChunk() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chunk, b.last
}

func (b *body) OverallSize() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overall
}

func (b *body) Release() {
	b.mu.Lock()
	if !b.pending {
		b.mu.Unlock()
		return
	}
	b.pending = false
	b.chunk = nil
	b.mu.Unlock()
	b.released <- struct{}{}
}

func (b *body) setOverall(n int64) {
	b.mu.Lock()
	b.overall = n
	b.mu.Unlock()
}

func (b *body) put(chunk []byte, last bool) {
	b.mu.Lock()
	b.chunk = chunk
	b.last = last
	b.pending = true
	b.mu.Unlock()
}

func (b *body) isPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

func (b *body) awaitRelease(ctx context.Context) bool {
	select {
	case <-b.released:
		return true
	case <-ctx.Done():
		return false
	}
}

// response is the Response of a transaction.
type response struct {
	mu     sync.Mutex
	url    *url.URL
	code   int
	status string
	header http.Header
	body   *body
}

func newResponse() *response {
	return &response{header: http.Header{}, body: newBody()}
}

func (r *response) URL() *url.URL {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.url
}

func (r *response) StatusCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.code
}

func (r *response) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *response) Header() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header
}

func (r *response) Body() BodySupplier { return r.body }

func (r *response) setHead(final *url.URL, code int, status string, header http.Header, length int64) {
	r.mu.Lock()
	r.url = final
	r.code = code
	r.status = status
	if header != nil {
		r.header = header.Clone()
	}
	r.mu.Unlock()
	r.body.setOverall(length)
}
