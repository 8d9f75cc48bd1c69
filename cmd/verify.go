package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errVerifyFailed signals that the round trip changed the text.
var errVerifyFailed = errors.New("round trip changed the text")

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Check that highlighting an HTML fragment keeps its text",
	Long: `Highlight an HTML fragment and compare its text before and after.

Without --lang every <pre class="sh_<language>"> is highlighted; with --lang
the whole fragment is highlighted in that language. A text diff is printed if
anything changed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		src, err := readSource(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close(ctx)

		language, _ := cmd.Flags().GetString("lang")
		rep, err := e.highlighter.Verify(ctx, src, language)
		if err != nil {
			return err
		}
		if rep.HighlightErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", rep.HighlightErr)
		}

		out := cmd.OutOrStdout()
		if !rep.OK() {
			fmt.Fprintln(out, rep.Diff)
			return errVerifyFailed
		}
		fmt.Fprintf(out, "ok: %d element(s), %d runes unchanged\n", rep.Elements, len([]rune(rep.After)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringP("lang", "l", "", "highlight the whole fragment in this language")
}
