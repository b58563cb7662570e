package httpclient

import "github.com/samvad-hq/samvad-probe/pkg/engine"

// Observer receives the progress and the result of each request. All methods are
// called on the goroutine running Client.Run, except the abort notification fired by
// CancelRequest, which runs on the caller's goroutine.
type Observer interface {
	OnHeadersReceived(tx engine.Transaction)
	// OnBodyChunk delivers body data in order. chunk is only valid during the call.
	OnBodyChunk(tx engine.Transaction, chunk []byte, overallSize int64, isLast bool)
	// OnResponse reports a successful transaction.
	OnResponse(tx engine.Transaction)
	// OnError reports a failed or cancelled transaction. code is 0 for HTTP-level
	// failures, engine.CodeAborted for cancellations and another negative code for
	// transport failures.
	OnError(code engine.Status, tx engine.Transaction)
}

// NopObserver ignores every callback. Embed it to implement only some of them.
type NopObserver struct{}

func (NopObserver) OnHeadersReceived(engine.Transaction)                {}
func (NopObserver) OnBodyChunk(engine.Transaction, []byte, int64, bool) {}
func (NopObserver) OnResponse(engine.Transaction)                       {}
func (NopObserver) OnError(engine.Status, engine.Transaction)           {}

// Logger defines the logging surface the client relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}
