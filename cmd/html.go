package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/shine/internal/log"
	"github.com/zjrosen/shine/internal/tracing"
	"github.com/zjrosen/shine/internal/tree"
)

var htmlOutput string

var htmlCmd = &cobra.Command{
	Use:   "html <file>",
	Short: "Highlight the code blocks of an HTML document",
	Long: `Highlight every <pre> element whose class names a language, such as
<pre class="sh_c">, and write the document back out.

Elements in unknown languages are reported and left as they were.

Examples:
  shine html page.html > page.out.html
  shine html page.html -o page.out.html`,
	Args: cobra.ExactArgs(1),
	RunE: runHTML,
}

func init() {
	rootCmd.AddCommand(htmlCmd)
	htmlCmd.Flags().StringVarP(&htmlOutput, "output", "o", "", "write the result to this file instead of stdout")
}

func runHTML(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := readSource(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	doc, err := tree.ParseDocument(strings.NewReader(src))
	if err != nil {
		return err
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close(ctx)

	ctx, _ = tracing.EnsureRequestID(ctx)
	count, err := e.highlighter.HighlightDocument(ctx, doc)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	log.InfoCtx(ctx, log.CatTree, "highlighted document", "file", args[0], "elements", count)

	var w io.Writer = cmd.OutOrStdout()
	if htmlOutput != "" {
		f, err := os.Create(filepath.Clean(htmlOutput))
		if err != nil {
			return fmt.Errorf("creating %s: %w", htmlOutput, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	return tree.Render(w, doc)
}
