package highlight

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/shine/internal/lang"
	"github.com/zjrosen/shine/internal/tag"
)

func def(t *testing.T, states ...lang.State) *lang.Definition {
	t.Helper()
	d, err := lang.NewDefinition("test", states...)
	require.NoError(t, err)
	return d
}

func state(name string, patterns ...lang.Pattern) lang.State {
	return lang.State{Name: name, Patterns: patterns}
}

func pat(expr, style string, tr lang.Transition, target int) lang.Pattern {
	return lang.MustPattern(expr, lang.Single(style), tr, target)
}

func highlight(t *testing.T, d *lang.Definition, text string, opts ...Option) []tag.Tag {
	t.Helper()
	tags, err := Highlight(d, text, opts...)
	require.NoError(t, err)
	require.NoError(t, tag.Validate(tags, len([]rune(text))))
	return tags
}

func blockComments(t *testing.T) *lang.Definition {
	return def(t,
		state("main",
			pat(`/\*`, "comment", lang.Enter, 1),
			pat(`\b(?:if|else)\b`, "keyword", lang.Stay, 0),
		),
		state("comment",
			pat(`\*/`, "comment", lang.ExitOne, 0),
		),
	)
}

func TestHighlight_TieBreakPrefersEarlierPattern(t *testing.T) {
	d := def(t, state("main",
		pat(`//.*`, "comment", lang.Stay, 0),
		pat(`/`, "operator", lang.Stay, 0),
	))

	tags := highlight(t, d, "// x")
	require.Equal(t, "<comment>0 </>4", tag.Format(tags))
}

func TestHighlight_EarliestStartWins(t *testing.T) {
	d := def(t, state("main",
		pat(`b+`, "late", lang.Stay, 0),
		pat(`a`, "early", lang.Stay, 0),
	))

	tags := highlight(t, d, "xabb")
	require.Equal(t, "<early>1 </>2 <late>2 </>4", tag.Format(tags))
}

func TestHighlight_MultiLineEnvironment(t *testing.T) {
	tags := highlight(t, blockComments(t), "/* a\nb */")
	require.Equal(t, "<comment>0 </>4 <comment>5 </>9", tag.Format(tags))

	runs, err := tag.Runs("/* a\nb */", tags)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "comment", runs[0].Style)
	assert.Equal(t, "\n", runs[1].Text)
	assert.Equal(t, "comment", runs[2].Style)
}

func TestHighlight_ExplicitInnerPatterns(t *testing.T) {
	d := def(t,
		state("main", pat(`/\*`, "comment", lang.Enter, 1)),
		state("comment",
			pat(`\*/`, "comment", lang.ExitOne, 0),
			pat(`.`, "comment", lang.Stay, 0),
		),
	)

	tags := highlight(t, d, "/* a\nb */ x")
	require.Equal(t, "<comment>0 </>4 <comment>5 </>9", tag.Format(tags))
}

func TestHighlight_StackPersistsAndUnwinds(t *testing.T) {
	tags := highlight(t, blockComments(t), "if /* x\n*/ else")
	require.Equal(t, "<keyword>0 </>2 <comment>3 </>7 <comment>8 </>10 <keyword>11 </>15", tag.Format(tags))
}

func TestHighlight_PerGroupStyles(t *testing.T) {
	d := def(t, state("main",
		lang.MustPattern(`\b(func)(\s+)([A-Za-z_]\w*)`, lang.PerGroup("keyword", "", "function"), lang.Stay, 0),
	))

	tags := highlight(t, d, "func main()")
	require.Equal(t, "<keyword>0 </>4 <function>5 </>9", tag.Format(tags))
}

func TestHighlight_PerGroupUnstyledGroupTakesEnvironment(t *testing.T) {
	d := def(t,
		state("main",
			lang.MustPattern(`(^|\s)(#)`, lang.PerGroup("", "comment"), lang.Enter, 1).WithEnvironment("comment"),
		),
		state("comment", pat(`$`, "", lang.ExitOne, 0)),
	)

	tags := highlight(t, d, "echo # hi\nls")
	require.Equal(t, "<comment>5 </>9", tag.Format(tags))
}

func TestHighlight_OptionalGroupMissing(t *testing.T) {
	d := def(t, state("main",
		lang.MustPattern(`(-)?(\d+)`, lang.PerGroup("operator", "number"), lang.Stay, 0),
	))

	tags := highlight(t, d, "1 -2")
	require.Equal(t, "<number>0 </>1 <operator>2 </>3 <number>3 </>4", tag.Format(tags))
}

func TestHighlight_EndOfLineExit(t *testing.T) {
	d := def(t,
		state("main", pat(`#`, "comment", lang.Enter, 1)),
		state("comment", pat(`$`, "", lang.ExitOne, 0)),
	)

	require.Equal(t, "<comment>0 </>3", tag.Format(highlight(t, d, "# a\nb")))
	require.Equal(t, "<comment>0 </>1 <comment>2 </>3", tag.Format(highlight(t, d, "#\n#\nx")),
		"a comment ending right at the line end still exits")
}

func TestHighlight_ExitAll(t *testing.T) {
	d := def(t,
		state("main", pat(`\(`, "paren", lang.Enter, 1)),
		state("nested",
			pat(`\(`, "paren", lang.Enter, 1),
			pat(`;`, "end", lang.ExitAll, 0),
		),
	)

	tags := highlight(t, d, "((a;(")
	require.Equal(t, "<paren>0 </>3 <end>3 </>4 <paren>4 </>5", tag.Format(tags))
}

func TestHighlight_ExitOnEmptyStackIsNoop(t *testing.T) {
	d := def(t, state("main",
		pat(`\)`, "paren", lang.ExitOne, 0),
		pat(`x`, "x", lang.Stay, 0),
	))

	tags := highlight(t, d, "))x")
	require.Equal(t, "<paren>0 </>2 <x>2 </>3", tag.Format(tags))
}

func TestHighlight_ZeroWidthPatternsTerminate(t *testing.T) {
	d := def(t,
		state("main",
			pat(`\b`, "", lang.Stay, 0),
			pat(``, "", lang.Enter, 1),
		),
		state("inner", pat(``, "", lang.ExitOne, 0)),
	)

	tags, err := Highlight(d, "ab cd\n\nefg")
	require.NoError(t, err)
	require.Empty(t, tags)
}

func TestHighlight_NoProgressIsReported(t *testing.T) {
	old := lineIterationLimit
	lineIterationLimit = func(int) int { return 1 }
	t.Cleanup(func() { lineIterationLimit = old })

	d := def(t, state("main", pat(`a`, "a", lang.Stay, 0)))
	_, err := Highlight(d, "aaa")
	require.ErrorIs(t, err, ErrNoProgress)
	require.Contains(t, err.Error(), "line 1")
}

func TestHighlight_Links(t *testing.T) {
	d := def(t, state("main",
		pat(`<[^>@\s]+@[^>\s]+>`, "url", lang.Stay, 0),
		pat(`https?://\S+`, "url", lang.Stay, 0),
		pat(`[\w.]+@[\w.]+`, "url", lang.Stay, 0),
	))

	tests := []struct {
		name  string
		text  string
		opts  []Option
		start int
		href  string
	}{
		{name: "bracketed email", text: "mail <user@example.com> now", start: 5, href: "mailto:user@example.com"},
		{name: "bare email", text: "to a.b@c.d", start: 3, href: "mailto:a.b@c.d"},
		{name: "url with scheme", text: "see http://x.org/a", start: 4, href: "http://x.org/a"},
		{name: "mail links disabled", text: "<u@h.io>", opts: []Option{WithMailLinks(false)}, start: 0, href: "u@h.io"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags := highlight(t, d, tt.text, tt.opts...)
			require.Len(t, tags, 2)

			open := tags[0]
			assert.Equal(t, "a", open.Name)
			assert.Equal(t, "url", open.Style)
			assert.Equal(t, tt.start, open.Pos)
			href, ok := open.Attr("href")
			require.True(t, ok)
			assert.Equal(t, tt.href, href)
		})
	}
}

func TestHighlight_ClassAttributes(t *testing.T) {
	d := def(t, state("main", pat(`\d+`, "number", lang.Stay, 0)))

	tags := highlight(t, d, "x 42")
	class, _ := tags[0].Attr("class")
	require.Equal(t, "sh_number", class)
	require.Equal(t, "span", tags[0].Name)

	tags = highlight(t, d, "x 42", WithClassPrefix("hl-"))
	class, _ = tags[0].Attr("class")
	require.Equal(t, "hl-number", class)

	tags = highlight(t, d, "x 42", WithLinkStyles("number"))
	require.Equal(t, "a", tags[0].Name)
	href, _ := tags[0].Attr("href")
	require.Equal(t, "42", href)
}

func TestHighlight_RuneOffsets(t *testing.T) {
	d := def(t, state("main", pat(`"[^"]*"`, "string", lang.Stay, 0)))

	tags := highlight(t, d, `ü "ñé"`)
	require.Equal(t, "<string>2 </>6", tag.Format(tags))
}

func TestHighlight_CRLF(t *testing.T) {
	tags := highlight(t, blockComments(t), "/*\r\n*/\rif")
	require.Equal(t, "<comment>0 </>2 <comment>4 </>6 <keyword>7 </>9", tag.Format(tags))
}

func TestHighlight_NilDefinition(t *testing.T) {
	_, err := Highlight(nil, "x")
	require.ErrorIs(t, err, lang.ErrInvalidDefinition)
}

func TestHighlight_BuiltinGo(t *testing.T) {
	reg, err := lang.Builtin()
	require.NoError(t, err)
	goDef, err := reg.Lookup("go")
	require.NoError(t, err)

	src := "// see https://go.dev\nfunc main() {\n\ts := \"hi\\n\" /* x */\n}\n"
	tags := highlight(t, goDef, src)

	runs, err := tag.Runs(src, tags)
	require.NoError(t, err)

	styleOf := func(text string) string {
		for _, r := range runs {
			if r.Text == text {
				return r.Style
			}
		}
		return "<missing>"
	}
	assert.Equal(t, "url", styleOf("https://go.dev"))
	assert.Equal(t, "keyword", styleOf("func"))
	assert.Equal(t, "function", styleOf("main"))
	assert.Equal(t, "comment", styleOf("/* x */"))
}

// sourceChars is a small alphabet that exercises comments, strings, escapes
// and line breaks in the builtin definitions.
var sourceChars = []rune("ab fn/*\"'\\#\n\r\t1.@<>:(){}$x")

func TestHighlight_Properties(t *testing.T) {
	reg, err := lang.Builtin()
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		name := rapid.SampledFrom(reg.Names()).Draw(t, "lang")
		d, err := reg.Lookup(name)
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		runes := rapid.SliceOfN(rapid.SampledFrom(sourceChars), 0, 60).Draw(t, "text")
		text := string(runes)

		tags, err := Highlight(d, text)
		if err != nil {
			t.Fatalf("highlight %q: %v", text, err)
		}
		if err := tag.Validate(tags, len(runes)); err != nil {
			t.Fatalf("not well-formed for %q: %v", text, err)
		}

		// Runs never cross a line break and are never empty.
		for i := 0; i+1 < len(tags); i += 2 {
			open, end := tags[i], tags[i+1]
			if open.Kind != tag.Open || end.Kind != tag.Close {
				t.Fatalf("highlight tags must not nest: %s", tag.Format(tags))
			}
			if end.Pos <= open.Pos {
				t.Fatalf("empty run in %s", tag.Format(tags))
			}
			if strings.ContainsAny(string(runes[open.Pos:end.Pos]), "\r\n") {
				t.Fatalf("run %d..%d crosses a line break in %q", open.Pos, end.Pos, text)
			}
		}

		again, err := Highlight(d, text)
		if err != nil {
			t.Fatalf("second run: %v", err)
		}
		if fmt.Sprint(again) != fmt.Sprint(tags) {
			t.Fatalf("highlighting is not deterministic for %q", text)
		}
	})
}
