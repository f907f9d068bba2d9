package components

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Writer emits markup and keeps the first write error
type Writer struct {
	w   io.Writer
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes trusted markup
func (w *Writer) Raw(parts ...string) {
	for _, p := range parts {
		if w.err != nil {
			return
		}
		_, w.err = io.WriteString(w.w, p)
	}
}

// Text writes escaped text; it is also safe inside quoted attributes
func (w *Writer) Text(s string) {
	w.Raw(templ.EscapeString(s))
}

// Textf formats then escapes
func (w *Writer) Textf(format string, args ...interface{}) {
	w.Text(fmt.Sprintf(format, args...))
}

// Attr writes name="value" with the value escaped
func (w *Writer) Attr(name, value string) {
	w.Raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

// URL writes an href-safe attribute value
func (w *Writer) URL(name, value string) {
	w.Attr(name, string(templ.URL(value)))
}

// Render writes a nested component
func (w *Writer) Render(ctx context.Context, c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}

func (w *Writer) Err() error {
	return w.err
}

// Component adapts a writer function to templ
func Component(fn func(ctx context.Context, w *Writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := NewWriter(out)
		fn(ctx, w)
		return w.Err()
	})
}

// Text is a component that renders escaped text
func Text(s string) templ.Component {
	return Component(func(_ context.Context, w *Writer) {
		w.Text(s)
	})
}
