package render

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/shine/internal/tag"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

func init() {
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func span(pos int, style string) tag.Tag {
	return tag.Tag{Pos: pos, Kind: tag.Open, Name: "span", Style: style,
		Attrs: []tag.Attr{{Key: "class", Val: "sh_" + style}}}
}

func theme(t *testing.T, overrides map[string]string) *Theme {
	t.Helper()
	th, err := NewTheme("", overrides)
	require.NoError(t, err)
	return th
}

func TestNewTheme(t *testing.T) {
	th := theme(t, nil)
	require.Equal(t, "monokai", th.Name)
	require.Contains(t, th.StyleNames(), "keyword")
	require.Contains(t, ThemeNames(), "monokai")

	_, err := NewTheme("no-such-theme", nil)
	require.ErrorIs(t, err, ErrUnknownTheme)
}

func TestNewTheme_Overrides(t *testing.T) {
	th := theme(t, map[string]string{"comment": "#ff0000", "todo": "#00ff00"})
	require.Contains(t, th.StyleNames(), "todo")

	out := th.Style("comment").Render("x")
	require.Contains(t, out, "38;2;255;0;0")
	require.Contains(t, th.Style("todo").Render("x"), "38;2;0;255;0")
}

func TestANSI(t *testing.T) {
	text := "int x;\n\tif"
	tags := []tag.Tag{span(0, "keyword"), tag.NewClose(3), span(8, "keyword"), tag.NewClose(10)}

	out, err := ANSI(text, tags, theme(t, nil))
	require.NoError(t, err)
	require.NotEqual(t, stripANSI(out), out)
	require.Equal(t, "int x;\n    if", stripANSI(out))
}

func TestANSI_RunsDoNotSpanLines(t *testing.T) {
	text := "/* a\nb */ c"
	tags := []tag.Tag{span(0, "comment"), tag.NewClose(9)}

	out, err := ANSI(text, tags, theme(t, map[string]string{"comment": "#ff0000"}))
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		require.True(t, strings.HasPrefix(line, "\x1b["), "line %q", line)
	}
	require.True(t, strings.HasSuffix(lines[0], "\x1b[0m"))
	require.Equal(t, "b */ c", stripANSI(lines[1]))
}

func TestANSI_LineNumbers(t *testing.T) {
	text := strings.Repeat("x\n", 9) + "y\n"

	out, err := ANSI(text, nil, theme(t, nil), WithLineNumbers(true))
	require.NoError(t, err)

	lines := strings.Split(stripANSI(out), "\n")
	require.Len(t, lines, 11)
	require.Equal(t, " 1 x", lines[0])
	require.Equal(t, "10 y", lines[9])
	require.Empty(t, lines[10])
}

func TestANSI_CarriageReturns(t *testing.T) {
	text := "a\rb\r\nc\n\rd"
	// The comment span starts between the '\r' and '\n' of the second break.
	tags := []tag.Tag{span(4, "comment"), tag.NewClose(6)}

	out, err := ANSI(text, tags, theme(t, nil), WithLineNumbers(true))
	require.NoError(t, err)
	require.NotContains(t, out, "\r")
	require.Equal(t, "1 a\n2 b\n3 c\n4 \n5 d", stripANSI(out))
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 1},
		{"a", 1},
		{"a\n", 2},
		{"a\r\nb", 2},
		{"a\rb\rc", 3},
		{"\n\r", 3},
		{"\r\n\r\n", 3},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, countLines(tt.text), "%q", tt.text)
	}
}

func TestANSI_TabsUseDisplayWidth(t *testing.T) {
	out, err := ANSI("世\tx\ta", nil, theme(t, nil), WithTabWidth(8))
	require.NoError(t, err)
	require.Equal(t, "世      x       a", stripANSI(out))
}

func TestANSI_Malformed(t *testing.T) {
	_, err := ANSI("abc", []tag.Tag{span(0, "keyword")}, theme(t, nil))
	require.ErrorIs(t, err, tag.ErrMalformed)
}

func TestHTML(t *testing.T) {
	out, err := HTML("a<b", []tag.Tag{span(0, "keyword"), tag.NewClose(1)})
	require.NoError(t, err)
	require.Equal(t, `<span class="sh_keyword">a</span>&lt;b`, out)

	require.Equal(t, "<keyword>0 </>1", Tags([]tag.Tag{span(0, "keyword"), tag.NewClose(1)}))
}

func TestRunsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RunsJSON(&buf, "if x", []tag.Tag{span(0, "keyword"), tag.NewClose(2)}))

	var runs []tag.Run
	require.NoError(t, json.Unmarshal(buf.Bytes(), &runs))
	require.Equal(t, []tag.Run{
		{Start: 0, End: 2, Text: "if", Style: "keyword", Stack: []string{"keyword"}},
		{Start: 2, End: 4, Text: " x"},
	}, runs)

	buf.Reset()
	require.NoError(t, RunsJSON(&buf, "", nil))
	require.Equal(t, "[]\n", buf.String())
}
