package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/zjrosen/shine/internal/config"
	"github.com/zjrosen/shine/internal/log"
	"github.com/zjrosen/shine/internal/render"
	"github.com/zjrosen/shine/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-highlight a file whenever it or a language definition changes",
	Long: `Render the file to the terminal and render it again on every save.

Changes to *.yaml files in the languages directory reload the language
registry before the file is rendered again. Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringP("lang", "l", "", "language name or alias (default: detect from extension)")
	watchCmd.Flags().BoolP("line-numbers", "n", true, "prefix output with line numbers")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := args[0]
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close(ctx)

	langFlag, _ := cmd.Flags().GetString("lang")
	lineNumbers, _ := cmd.Flags().GetBool("line-numbers")
	out := cmd.OutOrStdout()
	term := termenv.NewOutput(out)

	draw := func() {
		term.ClearScreen()
		if err := renderFile(ctx, e, out, path, langFlag, render.WithLineNumbers(lineNumbers)); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
	}

	w, err := watcher.New(watcher.DefaultConfig(path, config.ExpandHome(cfg.Languages.Dir)))
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	draw()
	for {
		select {
		case c := <-changes:
			if c.Languages {
				reg, err := loadRegistry()
				if err != nil {
					log.ErrorCtx(ctx, log.CatLang, "reload failed", err)
					fmt.Fprintf(cmd.ErrOrStderr(), "reload failed, keeping previous languages: %v\n", err)
				} else {
					e.highlighter.Reload(ctx, reg)
				}
			}
			draw()
		case <-sigCh:
			return nil
		}
	}
}

func renderFile(ctx context.Context, e *env, w io.Writer, path, langFlag string, opts ...render.ANSIOption) error {
	src, err := readSource(nil, path)
	if err != nil {
		return err
	}
	language, err := resolveLanguage(e.highlighter.Registry(), langFlag, path, cfg.Languages.Default)
	if err != nil {
		return err
	}
	res, err := e.highlighter.HighlightText(ctx, language, src)
	if err != nil {
		return err
	}
	out, err := render.ANSI(res.Text, res.Tags, e.theme, opts...)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
