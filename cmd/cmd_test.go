package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/shine/internal/config"
	"github.com/zjrosen/shine/internal/lang"
	"github.com/zjrosen/shine/internal/pipeline"
	"github.com/zjrosen/shine/internal/render"
	"github.com/zjrosen/shine/internal/tracing"
)

func builtin(t *testing.T) *lang.Registry {
	t.Helper()
	reg, err := lang.Builtin()
	require.NoError(t, err)
	return reg
}

func TestResolveLanguage(t *testing.T) {
	reg := builtin(t)

	tests := []struct {
		name     string
		flag     string
		path     string
		fallback string
		want     string
		wantErr  bool
	}{
		{name: "flag wins", flag: "python", path: "x.c", want: "python"},
		{name: "extension", path: "dir/main.go", want: "go"},
		{name: "fallback for unknown extension", path: "notes.txt", fallback: "sh", want: "sh"},
		{name: "unknown extension", path: "notes.txt", wantErr: true},
		{name: "stdin needs flag", path: "-", wantErr: true},
		{name: "stdin with fallback", fallback: "c", want: "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveLanguage(reg, tt.flag, tt.path, tt.fallback)
			if tt.wantErr {
				require.ErrorIs(t, err, lang.ErrUnknownLanguage)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestWriteResult(t *testing.T) {
	h := pipeline.New(builtin(t))
	res, err := h.HighlightText(context.Background(), "c", "int x;")
	require.NoError(t, err)

	theme, err := render.NewTheme("", nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, config.FormatTags, res, theme))
	require.True(t, strings.HasPrefix(buf.String(), "<type>0 </>3"))

	buf.Reset()
	require.NoError(t, writeResult(&buf, config.FormatHTML, res, theme))
	require.Equal(t, "<span class=\"sh_type\">int</span> x;\n", buf.String())

	buf.Reset()
	require.NoError(t, writeResult(&buf, config.FormatRuns, res, theme))
	require.Contains(t, buf.String(), `"style": "type"`)

	buf.Reset()
	require.NoError(t, writeResult(&buf, config.FormatANSI, res, theme))
	require.Contains(t, buf.String(), "int")

	require.Error(t, writeResult(&buf, "pdf", res, theme))
}

func TestLanguageInfos(t *testing.T) {
	infos, err := languageInfos(builtin(t))
	require.NoError(t, err)
	require.Len(t, infos, 5)
	require.Equal(t, "c", infos[0].Name)
	require.Equal(t, "builtin", infos[0].Source)
	require.Contains(t, infos[0].Extensions, ".c")
	require.Positive(t, infos[0].Patterns)
}

func TestTracingConfig(t *testing.T) {
	got := tracingConfig(config.TracingConfig{Enabled: true, Exporter: tracing.ExporterFile, SampleRate: 0.5})
	require.Equal(t, config.DefaultTracesFilePath(), got.FilePath)
	require.Equal(t, 0.5, got.SampleRate)

	got = tracingConfig(config.TracingConfig{Exporter: tracing.ExporterOTLP, OTLPEndpoint: "collector:4317"})
	require.Empty(t, got.FilePath)
	require.Equal(t, "collector:4317", got.OTLPEndpoint)
}

func TestReadSource(t *testing.T) {
	got, err := readSource(strings.NewReader("from stdin"), "-")
	require.NoError(t, err)
	require.Equal(t, "from stdin", got)

	_, err = readSource(nil, "does/not/exist.c")
	require.Error(t, err)
}
