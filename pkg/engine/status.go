package engine

import "strconv"

// Status identifies a transaction event. Positive values are lifecycle events and
// warnings, negative values are transport error codes.
type Status int

const (
	StatusHeadersReceived Status = iota + 1
	StatusBodyChunk
	StatusResponseComplete
	StatusSucceeded
	StatusFailed
	StatusRedirectedPermanently
	StatusRedirectedTemporarily
)

// StatusUnknownLength is a warning posted before the body when the server did not
// announce a content length.
const StatusUnknownLength Status = 100

// Transport error codes. They are posted ahead of StatusFailed and reported to the
// caller as the error code of the failure.
const (
	CodeGeneral          Status = -1
	CodeNotSupported     Status = -5
	CodeTimedOut         Status = -33
	CodeCouldNotConnect  Status = -34
	CodeDisconnected     Status = -36
	CodeAborted          Status = -39
	CodeDNSFailure       Status = -5120
	CodeTooManyRedirects Status = -7373
	CodeTLSFailure       Status = -7547
)

// IsError reports whether s is a transport error code.
func (s Status) IsError() bool { return s < 0 }

// IsTerminal reports whether no further events follow s for the same transaction.
func (s Status) IsTerminal() bool { return s == StatusSucceeded || s == StatusFailed }

func (s Status) String() string {
	switch s {
	case 0:
		return "none"
	case StatusHeadersReceived:
		return "headers_received"
	case StatusBodyChunk:
		return "body_chunk"
	case StatusResponseComplete:
		return "response_complete"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusRedirectedPermanently:
		return "redirected_permanently"
	case StatusRedirectedTemporarily:
		return "redirected_temporarily"
	case StatusUnknownLength:
		return "unknown_length"
	case CodeGeneral:
		return "general_failure"
	case CodeNotSupported:
		return "not_supported"
	case CodeTimedOut:
		return "timed_out"
	case CodeCouldNotConnect:
		return "could_not_connect"
	case CodeDisconnected:
		return "disconnected"
	case CodeAborted:
		return "aborted"
	case CodeDNSFailure:
		return "dns_failure"
	case CodeTooManyRedirects:
		return "too_many_redirects"
	case CodeTLSFailure:
		return "tls_failure"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// Event is a single notification delivered to an EventSink.
type Event struct {
	Status Status
	// Err carries the underlying transport error for negative statuses.
	Err error
}
