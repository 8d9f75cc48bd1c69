package tree

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"pgregory.net/rapid"

	"github.com/zjrosen/shine/internal/tag"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	n, err := ParseFragment(strings.NewReader(src))
	require.NoError(t, err)
	return n
}

func TestExtract(t *testing.T) {
	n := parse(t, `a<b class="x">bé<i>c</i></b><!-- skip -->d<br>e<img src="p.png">`)

	text, tags := Extract(n)
	require.Equal(t, "abécd\ne", text)
	require.Equal(t, "<b>1 <i>3 </>4 </>4 <img>7 </>7", tag.Format(tags))

	class, ok := tags[0].Attr("class")
	require.True(t, ok)
	require.Equal(t, "x", class)
	src, _ := tags[4].Attr("src")
	require.Equal(t, "p.png", src)
}

func TestExtract_Empty(t *testing.T) {
	text, tags := Extract(parse(t, ""))
	require.Empty(t, text)
	require.Empty(t, tags)
}

func TestInsert(t *testing.T) {
	tags := []tag.Tag{
		tag.NewOpen(0, "b"),
		{Pos: 2, Kind: tag.Open, Name: "span", Style: "kw", Attrs: []tag.Attr{{Key: "class", Val: "sh_kw"}}},
		tag.NewClose(4),
		tag.NewClose(4),
		tag.NewOpen(5, "img", tag.Attr{Key: "src", Val: "x"}),
		tag.NewClose(5),
	}

	nodes, err := Insert("abcdef", tags)
	require.NoError(t, err)
	require.Len(t, nodes, 4)
	for _, n := range nodes {
		require.Nil(t, n.Parent)
	}

	out, err := RenderString(nodes...)
	require.NoError(t, err)
	require.Equal(t, `<b>ab<span class="sh_kw">cd</span></b>e<img src="x"/>f`, out)
}

func TestInsert_Malformed(t *testing.T) {
	_, err := Insert("abc", []tag.Tag{tag.NewOpen(0, "b")})
	require.ErrorIs(t, err, tag.ErrMalformed)

	_, err = Insert("abc", []tag.Tag{tag.NewOpen(0, "b"), tag.NewClose(9)})
	require.ErrorIs(t, err, tag.ErrMalformed)
}

func TestInsert_EscapesText(t *testing.T) {
	nodes, err := Insert("a<b>&", nil)
	require.NoError(t, err)
	out, err := RenderString(nodes...)
	require.NoError(t, err)
	require.Equal(t, "a&lt;b&gt;&amp;", out)
}

func TestRoundTrip_MergedStream(t *testing.T) {
	n := parse(t, `<b>int x</b> = 1;`)
	text, original := Extract(n)
	require.Equal(t, "int x = 1;", text)

	highlight := []tag.Tag{
		{Pos: 0, Kind: tag.Open, Name: "span", Style: "type", Attrs: []tag.Attr{{Key: "class", Val: "sh_type"}}},
		tag.NewClose(3),
		{Pos: 4, Kind: tag.Open, Name: "span", Style: "id", Attrs: []tag.Attr{{Key: "class", Val: "sh_id"}}},
		tag.NewClose(7),
	}
	merged, err := tag.Merge(original, highlight)
	require.NoError(t, err)

	nodes, err := Insert(text, merged)
	require.NoError(t, err)
	ReplaceChildren(n, nodes)

	out, err := RenderChildren(n)
	require.NoError(t, err)
	assert.Equal(t,
		`<b><span class="sh_type">int</span> <span class="sh_id">x</span></b><span class="sh_id"> =</span> 1;`,
		out)

	again, _ := Extract(n)
	assert.Equal(t, text, again)
}

func TestFindAllAndClasses(t *testing.T) {
	n := parse(t, `<pre class="sh_c  other">x</pre><div><pre class="sh_go">y</pre><pre>z</pre></div>`)

	pres := FindAll(n, func(n *html.Node) bool { return n.Data == "pre" })
	require.Len(t, pres, 3)
	require.Equal(t, []string{"sh_c", "other"}, Classes(pres[0]))
	require.Nil(t, Classes(pres[2]))

	AddClass(pres[0], "sh_sourceCode")
	AddClass(pres[0], "sh_sourceCode")
	AddClass(pres[2], "sh_sourceCode")
	require.Equal(t, []string{"sh_c", "other", "sh_sourceCode"}, Classes(pres[0]))
	require.Equal(t, []string{"sh_sourceCode"}, Classes(pres[2]))
}

var elementNames = []string{"b", "i", "em", "span"}

func genTags(t *rapid.T, n int) []tag.Tag {
	var tags []tag.Tag
	depth := 0
	for pos := 0; pos <= n; pos++ {
		for c := rapid.IntRange(0, depth).Draw(t, fmt.Sprintf("close-%d", pos)); c > 0; c-- {
			tags = append(tags, tag.NewClose(pos))
			depth--
		}
		if pos == n {
			break
		}
		for o := rapid.IntRange(0, 2).Draw(t, fmt.Sprintf("open-%d", pos)); o > 0; o-- {
			name := rapid.SampledFrom(elementNames).Draw(t, fmt.Sprintf("name-%d-%d", pos, o))
			tags = append(tags, tag.NewOpen(pos, name))
			depth++
		}
	}
	for ; depth > 0; depth-- {
		tags = append(tags, tag.NewClose(n))
	}
	return tags
}

func TestInsertExtract_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pieces := rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b", " ", "<", "&", ">", "\n", "\t", "é", "\xff"}), 0, 30).Draw(t, "text")
		text := strings.Join(pieces, "")
		tags := genTags(t, utf8.RuneCountInString(text))

		nodes, err := Insert(text, tags)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}

		container := &html.Node{Type: html.ElementNode, Data: "div"}
		ReplaceChildren(container, nodes)
		gotText, gotTags := Extract(container)

		if gotText != text {
			t.Fatalf("text changed: %q -> %q", text, gotText)
		}
		if tag.Format(gotTags) != tag.Format(tags) {
			t.Fatalf("tags changed:\nwant %s\ngot  %s", tag.Format(tags), tag.Format(gotTags))
		}
	})
}

func TestInsertExtract_InvalidUTF8(t *testing.T) {
	n := parse(t, "a\xffb<b>c</b>")
	text, tags := Extract(n)
	require.Equal(t, "a\xffbc", text)

	nodes, err := Insert(text, tags)
	require.NoError(t, err)
	ReplaceChildren(n, nodes)

	after, afterTags := Extract(n)
	require.Equal(t, text, after)
	require.Equal(t, tag.Format(tags), tag.Format(afterTags))
}
