// Package templates renders the HTML pages as templ components.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// html writes markup with a sticky error so components read top to bottom
type html struct {
	w   io.Writer
	err error
}

// raw writes trusted markup
func (h *html) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// rawf writes trusted markup formatted with fmt; every argument is escaped
func (h *html) rawf(format string, args ...any) {
	escaped := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			escaped[i] = templ.EscapeString(v)
		case fmt.Stringer:
			escaped[i] = templ.EscapeString(v.String())
		default:
			escaped[i] = v
		}
	}
	h.raw(fmt.Sprintf(format, escaped...))
}

// text writes escaped text
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) render(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

func component(fn func(ctx context.Context, h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		fn(ctx, h)
		return h.err
	})
}

var navLinks = []struct {
	href  string
	label string
}{
	{"/", "Dashboard"},
	{"/units", "Units"},
	{"/positions", "Positions"},
	{"/recruitment", "Recruitment"},
}

// Layout wraps body in the shared page chrome
func Layout(title string, body templ.Component) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.rawf(`<title>%s | Org Admin</title>`, title)
		h.raw(`<script src="https://unpkg.com/htmx.org@1.9.12"></script>`)
		h.raw(`<style>`)
		h.raw(`body{font-family:system-ui,sans-serif;margin:0;color:#1f2933}`)
		h.raw(`nav{background:#1f2933;padding:.75rem 1.5rem}nav a{color:#fff;margin-right:1rem;text-decoration:none}`)
		h.raw(`main{padding:1.5rem}table{border-collapse:collapse;width:100%}`)
		h.raw(`th,td{border-bottom:1px solid #e4e7eb;padding:.4rem .6rem;text-align:left}`)
		h.raw(`.tree-row td:first-child{white-space:nowrap}.muted{color:#7b8794}`)
		h.raw(`.vacant{color:#b42318}.over{color:#b42318;font-weight:600}`)
		h.raw(`.cards{display:flex;gap:1rem;flex-wrap:wrap}.card{border:1px solid #e4e7eb;border-radius:6px;padding:1rem;min-width:10rem}`)
		h.raw(`.overlay{border:2px solid #3e4c59;border-radius:6px;padding:1rem;margin-bottom:1rem;background:#f5f7fa}`)
		h.raw(`.warn{background:#fffbea;border:1px solid #f0b429;padding:.5rem 1rem;margin-bottom:1rem}`)
		h.raw(`</style></head><body><nav>`)
		for _, l := range navLinks {
			h.rawf(`<a href="%s">%s</a>`, l.href, l.label)
		}
		h.raw(`</nav><main>`)
		h.render(ctx, body)
		h.raw(`</main></body></html>`)
	})
}

// Message renders a plain status page
func Message(title, message string) templ.Component {
	return Layout(title, component(func(_ context.Context, h *html) {
		h.rawf(`<h1>%s</h1><p>%s</p>`, title, message)
	}))
}
