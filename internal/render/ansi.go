package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"

	"github.com/zjrosen/shine/internal/tag"
)

// ANSIOptions controls terminal rendering.
type ANSIOptions struct {
	TabWidth    int
	LineNumbers bool
}

// ANSIOption mutates ANSIOptions.
type ANSIOption func(*ANSIOptions)

func WithTabWidth(n int) ANSIOption {
	return func(o *ANSIOptions) {
		if n > 0 {
			o.TabWidth = n
		}
	}
}

func WithLineNumbers(on bool) ANSIOption {
	return func(o *ANSIOptions) { o.LineNumbers = on }
}

// ansiStyle holds the escape sequences of a lipgloss style so a run can be
// wrapped without re-rendering the style.
type ansiStyle struct {
	prefix string
	suffix string
}

func (s ansiStyle) render(text string) string {
	if s.prefix == "" {
		return text
	}
	return s.prefix + text + s.suffix
}

func buildAnsiStyle(style lipgloss.Style) ansiStyle {
	const marker = "\x00"
	rendered := style.Render(marker)
	idx := strings.Index(rendered, marker)
	if idx == -1 {
		return ansiStyle{}
	}
	return ansiStyle{prefix: rendered[:idx], suffix: rendered[idx+1:]}
}

// ANSI renders text with terminal colours from theme. Tabs are expanded to
// spaces; escape sequences never span a line break.
func ANSI(text string, tags []tag.Tag, theme *Theme, opts ...ANSIOption) (string, error) {
	o := ANSIOptions{TabWidth: 4}
	for _, opt := range opts {
		opt(&o)
	}

	runs, err := tag.Runs(text, tags)
	if err != nil {
		return "", fmt.Errorf("render ansi: %w", err)
	}

	w := &ansiWriter{
		opts:        o,
		gutter:      buildAnsiStyle(theme.gutter),
		digits:      len(fmt.Sprint(countLines(text))),
		atLineStart: true,
		styles:      make(map[string]ansiStyle),
	}
	for _, r := range runs {
		style, ok := w.styles[r.Style]
		if !ok {
			style = buildAnsiStyle(theme.Style(r.Style))
			w.styles[r.Style] = style
		}
		w.write(r.Text, style)
	}
	return w.out.String(), nil
}

type ansiWriter struct {
	opts   ANSIOptions
	out    strings.Builder
	styles map[string]ansiStyle
	gutter ansiStyle
	digits int

	line        int
	width       int
	atLineStart bool

	// pendingCR is set after a chunk ending in '\r' so a '\n' opening the
	// next chunk completes the same break.
	pendingCR bool
}

// write emits text in style. "\r\n", "\r" and "\n" each end a line and are
// written as "\n".
func (w *ansiWriter) write(text string, style ansiStyle) {
	if w.pendingCR && text != "" {
		w.pendingCR = false
		text = strings.TrimPrefix(text, "\n")
	}
	for {
		i := strings.IndexAny(text, "\r\n")
		segment := text
		if i >= 0 {
			segment = text[:i]
		}
		if segment != "" {
			w.startLine()
			segment = w.expandTabs(segment)
			w.out.WriteString(style.render(segment))
			w.width += runewidth.StringWidth(segment)
		}
		if i < 0 {
			return
		}
		w.startLine()
		w.out.WriteByte('\n')
		w.atLineStart = true
		w.width = 0

		next := i + 1
		if text[i] == '\r' {
			if next < len(text) && text[next] == '\n' {
				next++
			} else if next == len(text) {
				w.pendingCR = true
			}
		}
		text = text[next:]
	}
}

// countLines counts lines the way write breaks them.
func countLines(text string) int {
	n := 1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			n++
		case '\r':
			n++
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
		}
	}
	return n
}

func (w *ansiWriter) startLine() {
	if !w.atLineStart {
		return
	}
	w.atLineStart = false
	w.line++
	if w.opts.LineNumbers {
		w.out.WriteString(w.gutter.render(fmt.Sprintf("%*d", w.digits, w.line)))
		w.out.WriteString(" ")
	}
}

// expandTabs replaces tabs with spaces up to the next tab stop, counting
// display width from the start of the line.
func (w *ansiWriter) expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	width := w.width
	for _, r := range s {
		if r == '\t' {
			spaces := w.opts.TabWidth - (width % w.opts.TabWidth)
			b.WriteString(strings.Repeat(" ", spaces))
			width += spaces
			continue
		}
		b.WriteRune(r)
		width += runewidth.RuneWidth(r)
	}
	return b.String()
}
