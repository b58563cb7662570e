package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/samvad-hq/samvad-probe/internal/domain"
	"github.com/samvad-hq/samvad-probe/internal/inspect"
	"github.com/samvad-hq/samvad-probe/pkg/engine"
)

// recorder turns client callbacks into one domain.Outcome per request and stops the
// client loop once the request settles.
type recorder struct {
	out      domain.Outcome
	page     *inspect.Page
	limit    int
	started  time.Time
	settled  bool
	stopLoop context.CancelFunc
}

func (r *recorder) begin(id, name, url string, inspectBody bool, stop context.CancelFunc) {
	r.out = domain.Outcome{
		TargetID:   id,
		TargetName: name,
		URL:        url,
		StartedAt:  time.Now().UTC(),
	}
	r.page = nil
	if inspectBody {
		r.page = inspect.NewPage(r.limit)
	}
	r.started = time.Now()
	r.settled = false
	r.stopLoop = stop
}

func (r *recorder) OnHeadersReceived(tx engine.Transaction) {
	resp := tx.Response()
	if resp == nil {
		return
	}
	r.out.StatusCode = resp.StatusCode()
	if r.page != nil && !inspect.IsHTML(resp.Header().Get("Content-Type")) {
		r.page = nil
	}
}

func (r *recorder) OnBodyChunk(_ engine.Transaction, chunk []byte, _ int64, _ bool) {
	r.out.Bytes += int64(len(chunk))
	r.out.Chunks++
	if r.page != nil {
		r.page.Write(chunk)
	}
}

func (r *recorder) OnResponse(tx engine.Transaction) {
	r.out.Result = domain.ResultSucceeded
	if r.page != nil {
		base := r.out.URL
		if resp := tx.Response(); resp != nil && resp.URL() != nil {
			base = resp.URL().String()
		}
		if meta, err := r.page.Meta(base); err == nil {
			r.out.Page = meta
		}
	}
	r.settle()
}

func (r *recorder) OnError(code engine.Status, tx engine.Transaction) {
	r.out.ErrorCode = int(code)
	switch {
	case code == engine.CodeAborted:
		r.out.Result = domain.ResultAborted
		r.out.ErrorText = code.String()
	case code != 0:
		r.out.Result = domain.ResultFailed
		r.out.ErrorText = code.String()
	default:
		r.out.Result = domain.ResultFailed
		r.out.ErrorText = http.StatusText(r.out.StatusCode)
		if resp := tx.Response(); resp != nil && resp.Status() != "" {
			r.out.ErrorText = resp.Status()
		}
	}
	r.settle()
}

func (r *recorder) settle() {
	r.out.DurationMs = time.Since(r.started).Milliseconds()
	r.settled = true
	if r.stopLoop != nil {
		r.stopLoop()
	}
}

// fail records a request that never reached the engine.
func (r *recorder) fail(err error) {
	r.out.Result = domain.ResultFailed
	r.out.ErrorCode = int(engine.CodeGeneral)
	r.out.ErrorText = err.Error()
	r.settle()
}
