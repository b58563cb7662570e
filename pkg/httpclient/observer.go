package httpclient

import (
	"errors"
	"time"

	"github.com/samvad-hq/samvad-probe/pkg/engine"
)

var errMissingBody = errors.New("body chunk event without a body supplier")

// slot is what the observer may do to the client: give up its transaction.
type slot interface {
	release(tx engine.Transaction)
}

// transactionObserver is the engine event sink. It turns engine events into Observer
// callbacks and frees the client slot on terminal events.
type transactionObserver struct {
	callbacks Observer
	slot      slot
	log       Logger
	metrics   *Metrics

	lastError   engine.Status
	lastErrorTx uint64
	settling    engine.Transaction
	startedAt   time.Time
}

func newTransactionObserver(callbacks Observer, s slot, log Logger, m *Metrics) *transactionObserver {
	return &transactionObserver{
		callbacks: callbacks,
		slot:      s,
		log:       log,
		metrics:   m,
	}
}

// OnEvent implements engine.EventSink.
func (o *transactionObserver) OnEvent(tx engine.Transaction, ev engine.Event) error {
	switch ev.Status {
	case engine.StatusHeadersReceived:
		o.callbacks.OnHeadersReceived(tx)

	case engine.StatusBodyChunk:
		return o.deliverChunk(tx)

	case engine.StatusResponseComplete:
		// Final disposition arrives with StatusSucceeded or StatusFailed.

	case engine.StatusSucceeded:
		o.settle(tx, ResultSucceeded, func() { o.callbacks.OnResponse(tx) })

	case engine.StatusFailed:
		code := o.takeLastError(tx)
		o.settle(tx, ResultFailed, func() { o.callbacks.OnError(code, tx) })

	case engine.StatusRedirectedPermanently, engine.StatusRedirectedTemporarily:
		o.log.DebugObj("transaction redirected", "transaction_redirect", map[string]any{
			"transaction_id": tx.ID(),
			"kind":           ev.Status.String(),
		})

	default:
		if ev.Status.IsError() {
			o.lastError = ev.Status
			o.lastErrorTx = tx.ID()
			fields := map[string]any{
				"transaction_id": tx.ID(),
				"code":           int(ev.Status),
				"kind":           ev.Status.String(),
			}
			if ev.Err != nil {
				fields["error"] = ev.Err.Error()
			}
			o.log.DebugObj("transaction transport error", "transaction_error", fields)
			return nil
		}
		o.log.DebugObj("transaction warning ignored", "transaction_warning", map[string]any{
			"transaction_id": tx.ID(),
			"status":         ev.Status.String(),
		})
	}
	return nil
}

// OnEventError implements engine.EventSink. The transaction is dropped and the fault
// stays here.
func (o *transactionObserver) OnEventError(err error, tx engine.Transaction, ev engine.Event) {
	o.log.ErrorObj("transaction event handling failed", "transaction_fault", map[string]any{
		"transaction_id": tx.ID(),
		"event":          ev.Status.String(),
		"error":          err.Error(),
	})
	o.lastError, o.lastErrorTx = 0, 0
	o.settling = nil
	o.metrics.transactionFinished(ResultFaulted, time.Since(o.startedAt))
	o.slot.release(tx)
}

func (o *transactionObserver) deliverChunk(tx engine.Transaction) error {
	resp := tx.Response()
	if resp == nil || resp.Body() == nil {
		return errMissingBody
	}
	body := resp.Body()

	chunk, last := body.NextChunk()
	o.metrics.bodyReceived(len(chunk))
	o.callbacks.OnBodyChunk(tx, chunk, body.OverallSize(), last)
	body.Release()
	return nil
}

// settle runs the terminal callback and then frees the slot. While the callback runs
// the transaction is marked as settling so a nested Get does not abort it.
func (o *transactionObserver) settle(tx engine.Transaction, result string, notify func()) {
	elapsed := time.Since(o.startedAt)
	o.settling = tx
	defer func() { o.settling = nil }()

	notify()
	o.metrics.transactionFinished(result, elapsed)
	o.slot.release(tx)
}

func (o *transactionObserver) isSettling(tx engine.Transaction) bool {
	return o.settling != nil && o.settling == tx
}

func (o *transactionObserver) takeLastError(tx engine.Transaction) engine.Status {
	var code engine.Status
	if o.lastErrorTx == tx.ID() {
		code = o.lastError
	}
	o.lastError, o.lastErrorTx = 0, 0
	return code
}

// aborted accounts for a transaction cancelled by the client.
func (o *transactionObserver) aborted() {
	o.lastError, o.lastErrorTx = 0, 0
	o.metrics.transactionFinished(ResultAborted, time.Since(o.startedAt))
}
