package storage

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/samvad-hq/samvad-probe/internal/domain"
)

const defaultMemorySize = 1024

// memoryStore keeps outcomes in a bounded LRU that forgets entries after the TTL.
// Nothing survives a restart.
type memoryStore struct {
	cache *expirable.LRU[string, domain.Outcome]
}

func newMemoryStore(opts Options) Store {
	size := opts.MemorySize
	if size <= 0 {
		size = defaultMemorySize
	}
	return &memoryStore{cache: expirable.NewLRU[string, domain.Outcome](size, nil, opts.OutcomeTTL)}
}

func (m *memoryStore) Close() error {
	m.cache.Purge()
	return nil
}

func (m *memoryStore) Record(o domain.Outcome) error {
	if o.TargetID == "" {
		return fmt.Errorf("outcome without target id")
	}
	m.cache.Add(o.TargetID, o)
	return nil
}

func (m *memoryStore) Last(targetID string) (domain.Outcome, bool, error) {
	o, ok := m.cache.Get(targetID)
	return o, ok, nil
}
