package targets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Package targets loads the list of URLs to probe from YAML/JSON files.

// Target is one URL the prober requests on every round.
type Target struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	URL            string            `json:"url" yaml:"url"`
	UserAgent      string            `json:"user_agent" yaml:"user_agent"`
	RequestDelayMs int               `json:"request_delay_ms" yaml:"request_delay_ms"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	Inspect        bool              `json:"inspect" yaml:"inspect"`
}

type registryFile struct {
	Targets []Target `json:"targets" yaml:"targets"`
}

// Registry is an immutable, validated set of targets in file order.
type Registry struct {
	targets []Target
	idx     map[string]Target
}

var defaultRequestDelayMs = 250

// LoadRegistry loads the target registry from file.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("targets file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(reg.Targets)
}

// NewRegistry sanitizes and validates list.
func NewRegistry(list []Target) (*Registry, error) {
	if len(list) == 0 {
		return nil, errors.New("targets file contains no targets entries")
	}

	out := make([]Target, 0, len(list))
	idx := make(map[string]Target, len(list))
	for i := range list {
		t := sanitizeTarget(list[i])
		if err := validateTarget(t); err != nil {
			return nil, fmt.Errorf("target[%d]: %w", i, err)
		}
		if _, exists := idx[t.ID]; exists {
			return nil, fmt.Errorf("duplicate target id %q", t.ID)
		}
		out = append(out, t)
		idx[t.ID] = t
	}
	return &Registry{targets: out, idx: idx}, nil
}

// All returns a copy of the loaded targets.
func (r *Registry) All() []Target {
	if r == nil || len(r.targets) == 0 {
		return nil
	}
	out := make([]Target, len(r.targets))
	copy(out, r.targets)
	return out
}

// ByID returns the target entry for the given id.
func (r *Registry) ByID(id string) (Target, bool) {
	if r == nil {
		return Target{}, false
	}
	t, ok := r.idx[strings.TrimSpace(id)]
	return t, ok
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("targets file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s targets: %w", name, err)
	}
	return reg, nil
}

func sanitizeTarget(t Target) Target {
	t.ID = strings.TrimSpace(t.ID)
	t.Name = strings.TrimSpace(t.Name)
	t.URL = strings.TrimSpace(t.URL)
	t.UserAgent = strings.TrimSpace(t.UserAgent)

	headers := make(map[string]string, len(t.Headers))
	for k, v := range t.Headers {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		headers[k] = strings.TrimSpace(v)
	}
	t.Headers = headers

	if t.RequestDelayMs <= 0 {
		t.RequestDelayMs = defaultRequestDelayMs
	}
	return t
}

func validateTarget(t Target) error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("name is required for target %q", t.ID)
	}
	if t.URL == "" {
		return fmt.Errorf("url is required for target %q", t.ID)
	}
	u, err := url.Parse(t.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url %q of target %q must be an absolute http(s) url", t.URL, t.ID)
	}
	return nil
}

// RequestDelay returns the pause before the target is requested.
func (t Target) RequestDelay() time.Duration {
	if t.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(t.RequestDelayMs) * time.Millisecond
}
