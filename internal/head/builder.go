// internal/head/builder.go
//
// The Builder collects everything that should appear inside a page’s
// <head> element.  It is scoped to a single request.  Handlers push tags
// into the builder, then the shared layout decides where to emit each
// slice.
//
// Features
// --------
//   - SetTitle     – single <title> tag (last call wins), suffixed with the
//     site name.
//   - Meta, Link   – arbitrary pre-escaped tags with deduplication.
//   - NoIndex      – robots meta for pages that must stay out of search
//     results (edit forms, login, 404).
//   - Render helpers return template.HTML.
package head

import (
	"html/template"
	"strings"
	"sync"
)

// SiteName is appended to every title.
const SiteName = "Mieszkaniownik"

// Builder is used by one goroutine per request; the mutex only guards
// against helpers that render while a handler is still adding tags.
type Builder struct {
	mu sync.Mutex

	title string
	metas []string
	links []string

	seen map[string]struct{}
}

// New returns a Builder preloaded with the stylesheet and the deferred form
// script.
func New() *Builder {
	b := &Builder{seen: make(map[string]struct{})}
	b.Link(`<link rel="stylesheet" href="/static/app.css">`)
	b.Link(`<script src="/static/app.js" defer></script>`)
	return b
}

// SetTitle overrides the page title.  The last caller wins.
func (b *Builder) SetTitle(t string) {
	b.mu.Lock()
	b.title = t
	b.mu.Unlock()
}

// Title returns a fully formed <title> tag.
func (b *Builder) Title() template.HTML {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := SiteName
	if b.title != "" {
		t = b.title + " · " + SiteName
	}
	return template.HTML("<title>" + template.HTMLEscapeString(t) + "</title>")
}

// Meta adds a pre-escaped <meta> tag.
func (b *Builder) Meta(tag string) { b.add("meta:"+tag, &b.metas, tag) }

// Link adds a pre-escaped <link> (or external <script>) tag.
func (b *Builder) Link(tag string) { b.add("link:"+tag, &b.links, tag) }

// NoIndex keeps the page out of search engines.
func (b *Builder) NoIndex() { b.Meta(`<meta name="robots" content="noindex, nofollow">`) }

func (b *Builder) add(key string, tgt *[]string, tag string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	*tgt = append(*tgt, tag)
}

// Metas renders every <meta> tag.
func (b *Builder) Metas() template.HTML { return b.concat(b.metas) }

// Links renders every <link> tag.
func (b *Builder) Links() template.HTML { return b.concat(b.links) }

// concat joins pre-escaped tags without a separator.
func (b *Builder) concat(sl []string) template.HTML {
	b.mu.Lock()
	defer b.mu.Unlock()
	return template.HTML(strings.Join(sl, ""))
}
