// Package engine performs HTTP transactions on behalf of a single session and reports
// their progress as events.
//
// Network I/O runs in one goroutine per submitted transaction. Those goroutines never
// call the event sink themselves: they post to the session queue and Session.Run
// delivers the events, in order, on the goroutine that runs it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrSessionClosed     = errors.New("engine session closed")
	ErrTransactionClosed = errors.New("transaction closed")
	ErrAlreadySubmitted  = errors.New("transaction already submitted")
	ErrInvalidHeader     = errors.New("invalid header field")
)

// Engine opens sessions.
type Engine interface {
	OpenSession(cfg Config) (Session, error)
}

// Session owns the event queue and creates transactions.
type Session interface {
	OpenTransaction(u *url.URL, method string, sink EventSink) (Transaction, error)
	// Run delivers queued events until ctx is done or the session is closed.
	Run(ctx context.Context) error
	Close() error
}

// Transaction is one request/response exchange.
type Transaction interface {
	ID() uint64
	Method() string
	URL() *url.URL
	// RequestHeaders is mutable until Submit.
	RequestHeaders() *Headers
	Response() Response
	// Submit starts the exchange. Failures after this point arrive as events.
	Submit() error
	// Close releases the transaction. No events are delivered after Close returns.
	Close()
}

// Response exposes what has been received so far. Status and headers are valid from
// StatusHeadersReceived on.
type Response interface {
	// URL is the address that produced the response, after any redirects.
	URL() *url.URL
	StatusCode() int
	Status() string
	Header() http.Header
	Body() BodySupplier
}

// BodySupplier hands out body data one chunk at a time.
type BodySupplier interface {
	// NextChunk returns the current chunk and whether it is the last one. The slice is
	// only valid until Release.
	NextChunk() ([]byte, bool)
	// OverallSize is the announced body length, or -1 when unknown.
	OverallSize() int64
	// Release hands the chunk buffer back so the next chunk can be read.
	Release()
}

// EventSink receives transaction events.
type EventSink interface {
	OnEvent(tx Transaction, ev Event) error
	// OnEventError is called when OnEvent returned an error or panicked.
	OnEventError(err error, tx Transaction, ev Event)
}

// Logger matches the leveled printf methods of resty.Logger and zap.SugaredLogger.
type Logger interface {
	Errorf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}

const (
	DefaultTimeout      = 30 * time.Second
	DefaultChunkSize    = 32 << 10
	DefaultMaxRedirects = 10
	DefaultEventBuffer  = 64
)

// Config controls how a session performs I/O. Transport and ProxyURL supply an
// externally managed connection context; they are mutually exclusive.
type Config struct {
	Timeout      time.Duration
	ChunkSize    int
	MaxRedirects int
	EventBuffer  int
	// UserAgent is a session-wide default, overridden per request by a User-Agent header.
	UserAgent string
	ProxyURL  string
	Transport http.RoundTripper
	Logger    Logger
}

// DefaultConfig returns the settings used for zero fields.
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		ChunkSize:    DefaultChunkSize,
		MaxRedirects: DefaultMaxRedirects,
		EventBuffer:  DefaultEventBuffer,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.MaxRedirects == 0 {
		c.MaxRedirects = def.MaxRedirects
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = def.EventBuffer
	}
	c.UserAgent = strings.TrimSpace(c.UserAgent)
	c.ProxyURL = strings.TrimSpace(c.ProxyURL)
	return c
}

// Validate checks a config after defaults are applied.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk size must not be negative")
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("max redirects must not be negative")
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("event buffer must not be negative")
	}
	if c.ProxyURL != "" {
		if c.Transport != nil {
			return fmt.Errorf("proxy url cannot be combined with a custom transport")
		}
		u, err := url.Parse(c.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid proxy url %q", c.ProxyURL)
		}
	}
	return nil
}
