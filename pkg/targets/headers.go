package targets

import (
	"net/http"
	"sort"
)

// Header is one request header to stage before a probe.
type Header struct {
	Name  string
	Value string
}

// Headers builds the request headers for t, sorted by name with empty values
// skipped. A user_agent field wins over a User-Agent entry in the headers map.
func Headers(t Target) []Header {
	merged := make(map[string]string, len(t.Headers)+1)
	for k, v := range t.Headers {
		if v == "" {
			continue
		}
		merged[http.CanonicalHeaderKey(k)] = v
	}
	if t.UserAgent != "" {
		merged["User-Agent"] = t.UserAgent
	}

	out := make([]Header, 0, len(merged))
	for k, v := range merged {
		out = append(out, Header{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
