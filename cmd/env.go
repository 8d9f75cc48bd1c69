package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/zjrosen/shine/internal/cache"
	"github.com/zjrosen/shine/internal/config"
	"github.com/zjrosen/shine/internal/flags"
	"github.com/zjrosen/shine/internal/highlight"
	"github.com/zjrosen/shine/internal/lang"
	"github.com/zjrosen/shine/internal/log"
	"github.com/zjrosen/shine/internal/pipeline"
	"github.com/zjrosen/shine/internal/render"
	"github.com/zjrosen/shine/internal/tag"
	"github.com/zjrosen/shine/internal/tracing"
)

// env is what every highlighting command runs against, built from cfg.
type env struct {
	highlighter *pipeline.Highlighter
	tracer      *tracing.Provider
	theme       *render.Theme
}

func newEnv() (*env, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}

	theme, err := render.NewTheme(cfg.Output.Theme, cfg.Output.Colors)
	if err != nil {
		return nil, err
	}

	tracer, err := tracing.NewProvider(tracingConfig(cfg.Tracing))
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithTracer(tracer.Tracer()),
		pipeline.WithFlags(flags.New(cfg.Flags)),
		pipeline.WithHighlightOptions(
			highlight.WithClassPrefix(cfg.Highlight.ClassPrefix),
			highlight.WithLinkStyles(cfg.Highlight.LinkStyles...),
		),
	}
	if cfg.Cache.Enabled {
		ttl := cfg.Cache.TTL
		if ttl == 0 {
			ttl = cache.DefaultExpiration
		}
		results := cache.NewMemory[string, []tag.Tag]("results", ttl, cache.DefaultCleanupInterval)
		opts = append(opts, pipeline.WithResultCache(results, ttl))
	}

	return &env{
		highlighter: pipeline.New(reg, opts...),
		tracer:      tracer,
		theme:       theme,
	}, nil
}

func (e *env) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := e.tracer.Shutdown(ctx); err != nil {
		log.ErrorErr(log.CatTrace, "tracer shutdown failed", err)
	}
}

func loadRegistry() (*lang.Registry, error) {
	return lang.LoadRegistry(config.ExpandHome(cfg.Languages.Dir),
		lang.WithMatchTimeout(cfg.Highlight.MatchTimeout))
}

func tracingConfig(tc config.TracingConfig) tracing.Config {
	out := tracing.Config{
		Enabled:      tc.Enabled,
		Exporter:     tc.Exporter,
		FilePath:     config.ExpandHome(tc.FilePath),
		OTLPEndpoint: tc.OTLPEndpoint,
		SampleRate:   tc.SampleRate,
	}
	if out.Exporter == tracing.ExporterFile && out.FilePath == "" {
		out.FilePath = config.DefaultTracesFilePath()
	}
	return out
}

// resolveLanguage picks the language from the flag, then the file extension,
// then the configured default.
func resolveLanguage(reg *lang.Registry, flag, path, fallback string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if path != "" && path != "-" {
		if def, err := reg.ForFile(path); err == nil {
			return def.Name, nil
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	if path == "" || path == "-" {
		return "", fmt.Errorf("%w: use --lang when reading stdin", lang.ErrUnknownLanguage)
	}
	return "", fmt.Errorf("%w: cannot detect language of %s, use --lang", lang.ErrUnknownLanguage, path)
}
