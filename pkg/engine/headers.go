package engine

import (
	"fmt"
	"net/http"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/net/http/httpguts"
)

// Headers is the request header collection of a transaction. Names are canonicalized,
// one value is kept per name and iteration follows insertion order.
type Headers struct {
	fields *orderedmap.OrderedMap[string, string]
}

// NewHeaders returns an empty header collection.
func NewHeaders() *Headers {
	return &Headers{fields: orderedmap.New[string, string]()}
}

// Set stores value under name, replacing any existing value. Names and values that
// cannot be sent on the wire are rejected with ErrInvalidHeader.
func (h *Headers) Set(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return fmt.Errorf("%w: name %q", ErrInvalidHeader, name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("%w: value for %q", ErrInvalidHeader, name)
	}
	h.fields.Set(http.CanonicalHeaderKey(name), value)
	return nil
}

// Get returns the value stored for name.
func (h *Headers) Get(name string) (string, bool) {
	return h.fields.Get(http.CanonicalHeaderKey(name))
}

// Del removes name from the collection.
func (h *Headers) Del(name string) {
	h.fields.Delete(http.CanonicalHeaderKey(name))
}

// Len returns the number of distinct header names.
func (h *Headers) Len() int { return h.fields.Len() }

// Each calls fn for every header in insertion order.
func (h *Headers) Each(fn func(name, value string)) {
	for pair := h.fields.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Map returns a copy of the collection as a plain map.
func (h *Headers) Map() map[string]string {
	out := make(map[string]string, h.fields.Len())
	h.Each(func(name, value string) { out[name] = value })
	return out
}
