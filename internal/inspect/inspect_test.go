package inspect

import (
	"bytes"
	"testing"
)

func TestPageMetaPrefersOGTags(t *testing.T) {
	p := NewPage(0)
	p.Write([]byte(`<html><head><title>Fallback</title>`))
	p.Write([]byte(`<meta property="og:title" content="OG Title">
<meta property="og:description" content="OG Desc">
<meta property="og:image" content="/img/og.png"></head></html>`))

	meta, err := p.Meta("https://example.com/articles/1")
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if meta == nil {
		t.Fatalf("expected metadata")
	}
	if meta.Title != "OG Title" || meta.Description != "OG Desc" {
		t.Fatalf("unexpected meta %#v", meta)
	}
	if meta.ImageURL != "https://example.com/img/og.png" {
		t.Fatalf("image url not resolved: %q", meta.ImageURL)
	}
}

func TestPageMetaFallsBackToTitleAndDescription(t *testing.T) {
	p := NewPage(0)
	p.Write([]byte(`<html><head><title> Plain </title><meta name="description" content="Desc"></head></html>`))

	meta, err := p.Meta("")
	if err != nil || meta == nil {
		t.Fatalf("Meta = %v, %v", meta, err)
	}
	if meta.Title != "Plain" || meta.Description != "Desc" || meta.ImageURL != "" {
		t.Fatalf("unexpected meta %#v", meta)
	}
}

func TestPageLimitsBody(t *testing.T) {
	p := NewPage(8)
	p.Write([]byte("12345"))
	p.Write([]byte("67890"))
	p.Write([]byte("x"))
	if p.Len() != 8 || !p.Truncated() {
		t.Fatalf("len=%d truncated=%v", p.Len(), p.Truncated())
	}

	p.Reset()
	p.Write(bytes.Repeat([]byte("a"), 4))
	if p.Len() != 4 || p.Truncated() {
		t.Fatalf("reset did not clear state")
	}
	meta, err := p.Meta("https://example.com")
	if err != nil || meta != nil {
		t.Fatalf("expected no metadata for plain text, got %v, %v", meta, err)
	}
}

func TestResolveURLHandlesRelative(t *testing.T) {
	if got := resolveURL("/img.png", "https://example.com/articles/1"); got != "https://example.com/img.png" {
		t.Fatalf("resolveURL got %q", got)
	}
	if got := resolveURL("https://cdn.example.com/a.png", "https://example.com"); got != "https://cdn.example.com/a.png" {
		t.Fatalf("absolute url changed: %q", got)
	}
	if got := resolveURL("", "https://example.com"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestIsHTML(t *testing.T) {
	for ct, want := range map[string]bool{
		"":                         true,
		"text/html; charset=utf-8": true,
		"application/xhtml+xml":    true,
		"application/json":         false,
		"image/png":                false,
	} {
		if got := IsHTML(ct); got != want {
			t.Fatalf("IsHTML(%q) = %v, want %v", ct, got, want)
		}
	}
}
