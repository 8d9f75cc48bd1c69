package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/shine/internal/lang"
)

func TestVerify_Document(t *testing.T) {
	h := New(miniRegistry(t))

	rep, err := h.Verify(context.Background(),
		`<p>text</p><pre class="sh_mini">int <b>x</b> // a@b.io</pre><pre class="sh_zz">y</pre>`, "")
	require.NoError(t, err)
	require.True(t, rep.OK())
	require.Equal(t, 1, rep.Elements)
	require.Equal(t, rep.Before, rep.After)
	require.ErrorIs(t, rep.HighlightErr, lang.ErrUnknownLanguage)
}

func TestVerify_Language(t *testing.T) {
	h := New(miniRegistry(t))

	rep, err := h.Verify(context.Background(), "return <i>1</i>;<br>// x", "mini")
	require.NoError(t, err)
	require.True(t, rep.OK())
	require.Equal(t, "return 1;\n// x", rep.After)

	_, err = h.Verify(context.Background(), "x", "nope")
	require.ErrorIs(t, err, lang.ErrUnknownLanguage)
}

func TestTextDiff(t *testing.T) {
	require.Equal(t, "hello {+there +}world", textDiff("hello world", "hello there world"))
	require.Equal(t, "[-a-]", textDiff("a", ""))
}
