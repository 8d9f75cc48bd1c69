package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/shine/internal/render"
)

var (
	describeWidth int
	describeRaw   bool
)

var describeCmd = &cobra.Command{
	Use:   "describe <language>",
	Short: "Show the state table of a language",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		def, err := reg.Lookup(args[0])
		if err != nil {
			return err
		}

		md := render.Markdown(def)
		if describeRaw {
			_, err = fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		}

		r, err := render.NewMarkdownRenderer(describeWidth)
		if err != nil {
			return fmt.Errorf("creating markdown renderer: %w", err)
		}
		out, err := r.Render(md)
		if err != nil {
			return fmt.Errorf("rendering markdown: %w", err)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().IntVarP(&describeWidth, "width", "w", 100, "word wrap width")
	describeCmd.Flags().BoolVar(&describeRaw, "raw", false, "print markdown without rendering")
}
