package inspect

import (
	"bytes"
	"fmt"
	"mime"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-probe/internal/domain"
)

// DefaultLimit caps how much of a body is kept for parsing.
const DefaultLimit = 256 << 10

// Page collects the head of an HTML response body as chunks arrive and extracts
// title, description and og:image from it.
type Page struct {
	limit     int
	buf       bytes.Buffer
	truncated bool
}

// NewPage returns a collector that keeps at most limit bytes. limit <= 0 uses
// DefaultLimit.
func NewPage(limit int) *Page {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Page{limit: limit}
}

// Write appends chunk up to the limit. The chunk is copied.
func (p *Page) Write(chunk []byte) {
	room := p.limit - p.buf.Len()
	if room <= 0 {
		p.truncated = p.truncated || len(chunk) > 0
		return
	}
	if len(chunk) > room {
		chunk = chunk[:room]
		p.truncated = true
	}
	p.buf.Write(chunk)
}

// Len returns the number of bytes kept.
func (p *Page) Len() int { return p.buf.Len() }

// Truncated reports whether any bytes were dropped.
func (p *Page) Truncated() bool { return p.truncated }

// Reset drops everything collected so far.
func (p *Page) Reset() {
	p.buf.Reset()
	p.truncated = false
}

// Meta parses the collected bytes. Relative image URLs are resolved against base.
func (p *Page) Meta(base string) (*domain.PageMeta, error) {
	if p.buf.Len() == 0 {
		return nil, nil
	}
	pm, err := parseMeta(p.buf.Bytes())
	if err != nil {
		return nil, err
	}
	pm.ImageURL = resolveURL(pm.ImageURL, base)
	if pm.Title == "" && pm.Description == "" && pm.ImageURL == "" {
		return nil, nil
	}
	return &pm, nil
}

// IsHTML reports whether a Content-Type header names an HTML document. An empty
// header is treated as HTML.
func IsHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return media == "text/html" || media == "application/xhtml+xml"
}

func parseMeta(body []byte) (domain.PageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.PageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return domain.PageMeta{
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
		ImageURL: extract(`meta[property="og:image"]`),
	}, nil
}

func resolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return u.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(u).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
