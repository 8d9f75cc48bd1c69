package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/shine/internal/config"
	"github.com/zjrosen/shine/internal/log"
	"github.com/zjrosen/shine/internal/pipeline"
	"github.com/zjrosen/shine/internal/render"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config

	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "shine [file]",
	Short: "Regex state machine syntax highlighter",
	Long: `Highlight source code with regex-driven language definitions.

Reads the file (or stdin) and writes it highlighted as ANSI colours, an HTML
fragment, the raw tag stream or JSON runs.

Examples:
  shine main.c
  cat script.sh | shine -l sh
  shine -f html main.go > main.html`,
	Version:           version,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCleanup != nil {
			logCleanup()
		}
	},
	RunE: runHighlight,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/shine/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"write debug logs (path from SHINE_LOG, default debug.log)")

	rootCmd.Flags().StringP("lang", "l", "", "language name or alias (default: detect from extension)")
	rootCmd.Flags().StringP("format", "f", "", "output format: ansi, html, tags, runs")
	rootCmd.Flags().String("theme", "", "chroma style for ansi output")
	rootCmd.Flags().BoolP("line-numbers", "n", false, "prefix ansi output with line numbers")

	_ = viper.BindPFlag("output.format", rootCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("output.theme", rootCmd.Flags().Lookup("theme"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("languages.dir", defaults.Languages.Dir)
	viper.SetDefault("highlight.class_prefix", defaults.Highlight.ClassPrefix)
	viper.SetDefault("highlight.link_styles", defaults.Highlight.LinkStyles)
	viper.SetDefault("highlight.match_timeout", defaults.Highlight.MatchTimeout)
	viper.SetDefault("output.format", defaults.Output.Format)
	viper.SetDefault("output.theme", defaults.Output.Theme)
	viper.SetDefault("cache.enabled", defaults.Cache.Enabled)
	viper.SetDefault("cache.ttl", defaults.Cache.TTL)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .shine/config.yaml (current directory)
		// 2. ~/.config/shine/config.yaml (user config)
		if _, err := os.Stat(".shine/config.yaml"); err == nil {
			viper.SetConfigFile(".shine/config.yaml")
		} else {
			viper.AddConfigPath(config.DefaultConfigDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "warning: reading config: %v\n", err)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// setupLogging enables the debug log when --debug or SHINE_DEBUG is set.
func setupLogging(*cobra.Command, []string) error {
	if os.Getenv("SHINE_DEBUG") == "" && !debugFlag {
		return nil
	}
	logPath := os.Getenv("SHINE_LOG")
	if logPath == "" {
		logPath = "debug.log"
	}

	cleanup, err := log.InitWithTeaLog(logPath, "shine")
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	logCleanup = cleanup
	log.Info(log.CatConfig, "shine starting", "version", version, "config", viper.ConfigFileUsed())
	return nil
}

func runHighlight(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	src, err := readSource(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close(ctx)

	langFlag, _ := cmd.Flags().GetString("lang")
	language, err := resolveLanguage(e.highlighter.Registry(), langFlag, path, cfg.Languages.Default)
	if err != nil {
		return err
	}

	res, err := e.highlighter.HighlightText(ctx, language, src)
	if err != nil {
		return err
	}

	lineNumbers, _ := cmd.Flags().GetBool("line-numbers")
	return writeResult(cmd.OutOrStdout(), cfg.Output.Format, res, e.theme, render.WithLineNumbers(lineNumbers))
}

func readSource(stdin io.Reader, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func writeResult(w io.Writer, format string, res pipeline.Result, theme *render.Theme, opts ...render.ANSIOption) error {
	switch format {
	case config.FormatHTML:
		out, err := render.HTML(res.Text, res.Tags)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, out)
		return err
	case config.FormatTags:
		_, err := fmt.Fprintln(w, render.Tags(res.Tags))
		return err
	case config.FormatRuns:
		return render.RunsJSON(w, res.Text, res.Tags)
	case config.FormatANSI, "":
		out, err := render.ANSI(res.Text, res.Tags, theme, opts...)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
