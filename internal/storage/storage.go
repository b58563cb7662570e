package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-probe/internal/domain"
)

// Package storage keeps a short local history of probe outcomes.

// Store keeps the latest outcome per target.
type Store interface {
	Close() error
	Record(o domain.Outcome) error
	Last(targetID string) (domain.Outcome, bool, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	OutcomeTTL      time.Duration
	CleanupInterval time.Duration
	// MemorySize bounds the number of targets kept by the memory store.
	MemorySize int
}

const (
	defaultOutcomeTTL      = 7 * 24 * time.Hour
	defaultCleanupInterval = 6 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "memory":
		return newMemoryStore(opts), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.OutcomeTTL <= 0 {
		opts.OutcomeTTL = defaultOutcomeTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                { return nil }
func (noopStore) Record(domain.Outcome) error { return nil }
func (noopStore) Last(string) (domain.Outcome, bool, error) {
	return domain.Outcome{}, false, nil
}
