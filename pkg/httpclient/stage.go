package httpclient

import (
	"errors"
	"net/http"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// HeaderSetter is a header collection that may reject a field.
type HeaderSetter interface {
	Set(name, value string) error
}

// HeaderStage holds custom headers for the next request only. Names are
// canonicalized and later writes to the same name replace the value in place.
type HeaderStage struct {
	fields *orderedmap.OrderedMap[string, string]
}

// NewHeaderStage returns an empty stage.
func NewHeaderStage() *HeaderStage {
	return &HeaderStage{fields: orderedmap.New[string, string]()}
}

// Set stages value under name.
func (s *HeaderStage) Set(name, value string) {
	s.fields.Set(http.CanonicalHeaderKey(name), value)
}

// Get returns the staged value for name.
func (s *HeaderStage) Get(name string) (string, bool) {
	return s.fields.Get(http.CanonicalHeaderKey(name))
}

// Len returns the number of staged headers.
func (s *HeaderStage) Len() int { return s.fields.Len() }

// Names returns staged names in insertion order.
func (s *HeaderStage) Names() []string {
	names := make([]string, 0, s.fields.Len())
	for pair := s.fields.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Clear drops every staged header.
func (s *HeaderStage) Clear() {
	s.fields = orderedmap.New[string, string]()
}

// ApplyTo copies the staged headers into dst in insertion order and clears the
// stage. Fields rejected by dst are skipped and reported in the joined error.
func (s *HeaderStage) ApplyTo(dst HeaderSetter) (int, error) {
	defer s.Clear()

	var errs []error
	applied := 0
	for pair := s.fields.Oldest(); pair != nil; pair = pair.Next() {
		if err := dst.Set(pair.Key, pair.Value); err != nil {
			errs = append(errs, err)
			continue
		}
		applied++
	}
	return applied, errors.Join(errs...)
}
