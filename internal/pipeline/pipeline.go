// Package pipeline runs the highlight pipeline over plain text, single HTML
// elements and whole documents: extract the element text and markup, tokenize
// it, merge the two tag streams and rebuild the element's children.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/net/html"

	"github.com/zjrosen/shine/internal/cache"
	"github.com/zjrosen/shine/internal/flags"
	"github.com/zjrosen/shine/internal/highlight"
	"github.com/zjrosen/shine/internal/lang"
	"github.com/zjrosen/shine/internal/log"
	"github.com/zjrosen/shine/internal/tag"
	"github.com/zjrosen/shine/internal/tracing"
	"github.com/zjrosen/shine/internal/tree"
)

// SourceCodeClass is appended to the class prefix and added to every
// highlighted element.
const SourceCodeClass = "sourceCode"

// Result is the outcome of highlighting plain text.
type Result struct {
	Language string
	Text     string
	Tags     []tag.Tag
	Cached   bool
}

// tokenizeInput is what the result cache computes from on a miss.
type tokenizeInput struct {
	def  *lang.Definition
	text string
	opts highlight.Options
}

// Highlighter runs the pipeline against a language registry that can be
// swapped at runtime. It is safe for concurrent use.
type Highlighter struct {
	registry atomic.Pointer[lang.Registry]

	tracer   trace.Tracer
	flags    *flags.Registry
	base     []highlight.Option
	results  cache.Manager[string, []tag.Tag]
	cacheTTL time.Duration
	tokens   *cache.ReadThrough[string, []tag.Tag, tokenizeInput]
}

// Option configures a Highlighter.
type Option func(*Highlighter)

// WithTracer sets the tracer for span instrumentation. A nil tracer keeps the
// default noop tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(h *Highlighter) {
		if tracer != nil {
			h.tracer = tracer
		}
	}
}

// WithFlags sets the feature flags consulted per call.
func WithFlags(f *flags.Registry) Option {
	return func(h *Highlighter) {
		if f != nil {
			h.flags = f
		}
	}
}

// WithHighlightOptions sets tokenizer options applied to every call.
func WithHighlightOptions(opts ...highlight.Option) Option {
	return func(h *Highlighter) { h.base = append(h.base, opts...) }
}

// WithResultCache caches tokenizer output in c for ttl. The cache is only
// consulted while the result-cache flag is on.
func WithResultCache(c cache.Manager[string, []tag.Tag], ttl time.Duration) Option {
	return func(h *Highlighter) {
		h.results = c
		h.cacheTTL = ttl
	}
}

// New creates a Highlighter serving definitions from reg.
func New(reg *lang.Registry, opts ...Option) *Highlighter {
	h := &Highlighter{
		tracer: noop.NewTracerProvider().Tracer("noop"),
		flags:  flags.New(nil),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.registry.Store(reg)

	skip := h.results == nil || !h.flags.Enabled(flags.FlagResultCache)
	h.tokens = cache.NewReadThrough(h.results, func(_ context.Context, in tokenizeInput) ([]tag.Tag, error) {
		return highlight.Highlight(in.def, in.text, optionList(in.opts)...)
	}, skip)
	return h
}

// Registry returns the registry currently in use.
func (h *Highlighter) Registry() *lang.Registry {
	return h.registry.Load()
}

// Reload swaps in reg and drops cached results. Calls already running keep
// the registry they started with.
func (h *Highlighter) Reload(ctx context.Context, reg *lang.Registry) {
	_, span := h.tracer.Start(ctx, tracing.SpanReload)
	defer span.End()

	old := h.registry.Swap(reg)
	if h.results != nil {
		h.results.Flush(ctx)
	}
	span.SetAttributes(attribute.Int("shine.languages", reg.Len()))
	log.Info(log.CatLang, "registry reloaded", "before", old.Len(), "after", reg.Len())
}

// ClassPrefix returns the prefix used for style classes and document lookup.
func (h *Highlighter) ClassPrefix() string {
	return h.options().ClassPrefix
}

// HighlightText tokenizes text with the named language.
func (h *Highlighter) HighlightText(ctx context.Context, language, text string) (Result, error) {
	ctx, requestID := tracing.EnsureRequestID(ctx)
	ctx, span := h.tracer.Start(ctx, tracing.SpanText, trace.WithAttributes(
		attribute.String(tracing.AttrRequestID, requestID),
		attribute.String(tracing.AttrLanguage, language),
	))
	defer span.End()

	def, err := h.Registry().Lookup(language)
	if err != nil {
		tracing.RecordError(span, err)
		return Result{}, err
	}
	span.SetAttributes(attribute.String(tracing.AttrSource, def.Source))

	tags, hit, err := h.tokenize(ctx, def, text)
	if err != nil {
		tracing.RecordError(span, err)
		return Result{}, err
	}
	return Result{Language: def.Name, Text: text, Tags: tags, Cached: hit}, nil
}

// HighlightNode highlights the content of node with the named language and
// replaces its children with the result. node is left untouched on error.
func (h *Highlighter) HighlightNode(ctx context.Context, language string, node *html.Node) error {
	ctx, requestID := tracing.EnsureRequestID(ctx)
	ctx, span := h.tracer.Start(ctx, tracing.SpanNode, trace.WithAttributes(
		attribute.String(tracing.AttrRequestID, requestID),
		attribute.String(tracing.AttrLanguage, language),
	))
	defer span.End()

	err := h.highlightNode(ctx, language, node)
	tracing.RecordError(span, err)
	return err
}

func (h *Highlighter) highlightNode(ctx context.Context, language string, node *html.Node) error {
	if node == nil {
		return errors.New("highlight node: nil node")
	}

	def, err := h.Registry().Lookup(language)
	if err != nil {
		return err
	}

	_, span := h.tracer.Start(ctx, tracing.SpanExtract)
	text, original := tree.Extract(node)
	span.SetAttributes(
		attribute.Int(tracing.AttrRunes, len([]rune(text))),
		attribute.Int(tracing.AttrOriginalTags, len(original)),
	)
	span.End()

	highlighted, _, err := h.tokenize(ctx, def, text)
	if err != nil {
		return err
	}

	_, span = h.tracer.Start(ctx, tracing.SpanMerge)
	merged, err := tag.Merge(original, highlighted)
	span.SetAttributes(attribute.Int(tracing.AttrMergedTags, len(merged)))
	tracing.RecordError(span, err)
	span.End()
	if err != nil {
		return fmt.Errorf("merge %s: %w", def.Name, err)
	}

	_, span = h.tracer.Start(ctx, tracing.SpanInsert)
	nodes, err := tree.Insert(text, merged)
	span.SetAttributes(attribute.Int(tracing.AttrNodes, len(nodes)))
	tracing.RecordError(span, err)
	span.End()
	if err != nil {
		return err
	}

	tree.ReplaceChildren(node, nodes)
	tree.AddClass(node, h.ClassPrefix()+SourceCodeClass)

	log.DebugCtx(ctx, log.CatTree, "highlighted node", "lang", def.Name,
		"original", len(original), "highlight", len(highlighted), "merged", len(merged))
	return nil
}

// HighlightDocument highlights every <pre> element under doc whose class list
// names a language as <prefix><language>. Elements that are already
// highlighted are skipped. Failures are collected and leave the failing
// element untouched; the count of highlighted elements is returned alongside.
func (h *Highlighter) HighlightDocument(ctx context.Context, doc *html.Node) (int, error) {
	ctx, requestID := tracing.EnsureRequestID(ctx)
	ctx, span := h.tracer.Start(ctx, tracing.SpanDocument, trace.WithAttributes(
		attribute.String(tracing.AttrRequestID, requestID),
	))
	defer span.End()

	prefix := h.ClassPrefix()
	marker := prefix + SourceCodeClass
	reg := h.Registry()

	var (
		count int
		errs  []error
	)
	pres := tree.FindAll(doc, func(n *html.Node) bool { return n.Data == "pre" })
	for i, pre := range pres {
		language, ok := languageClass(tree.Classes(pre), prefix, marker, reg)
		if !ok {
			continue
		}
		if err := h.highlightNode(ctx, language, pre); err != nil {
			if errors.Is(err, lang.ErrUnknownLanguage) {
				span.AddEvent(tracing.EventLanguageSkip, trace.WithAttributes(
					attribute.String(tracing.AttrLanguage, language)))
			}
			errs = append(errs, fmt.Errorf("pre %d (%s): %w", i+1, language, err))
			continue
		}
		count++
	}

	span.SetAttributes(attribute.Int(tracing.AttrElements, count))
	err := errors.Join(errs...)
	tracing.RecordError(span, err)
	log.DebugCtx(ctx, log.CatTree, "highlighted document", "candidates", len(pres), "highlighted", count, "errors", len(errs))
	return count, err
}

// languageClass returns the first prefixed class that reg resolves. When none
// resolve, the first prefixed name is returned so the lookup error names it.
// Elements that carry the marker class have been highlighted before.
func languageClass(classes []string, prefix, marker string, reg *lang.Registry) (string, bool) {
	if slices.Contains(classes, marker) {
		return "", false
	}
	first := ""
	for _, c := range classes {
		name, ok := strings.CutPrefix(c, prefix)
		if !ok || name == "" {
			continue
		}
		if _, err := reg.Lookup(name); err == nil {
			return name, true
		}
		if first == "" {
			first = name
		}
	}
	return first, first != ""
}

func (h *Highlighter) tokenize(ctx context.Context, def *lang.Definition, text string) ([]tag.Tag, bool, error) {
	ctx, span := h.tracer.Start(ctx, tracing.SpanTokenize, trace.WithAttributes(
		attribute.String(tracing.AttrLanguage, def.Name),
	))
	defer span.End()

	opts := h.options()
	key := cache.Key(def.Name, def.Source, opts.ClassPrefix, strings.Join(opts.LinkStyles, ","),
		strconv.FormatBool(opts.MailLinks), text)

	tags, hit, err := h.tokens.Get(ctx, key, tokenizeInput{def: def, text: text, opts: opts}, h.cacheTTL)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, false, err
	}
	if hit {
		span.AddEvent(tracing.EventCacheHit)
	}
	span.SetAttributes(
		attribute.Bool(tracing.AttrCacheHit, hit),
		attribute.Int(tracing.AttrHighlightTag, len(tags)),
	)
	// Cached slices are shared between callers.
	return slices.Clone(tags), hit, nil
}

func (h *Highlighter) options() highlight.Options {
	o := highlight.DefaultOptions()
	for _, opt := range h.base {
		opt(&o)
	}
	o.MailLinks = o.MailLinks && h.flags.Enabled(flags.FlagMailLinks)
	return o
}

func optionList(o highlight.Options) []highlight.Option {
	return []highlight.Option{
		highlight.WithClassPrefix(o.ClassPrefix),
		highlight.WithLinkStyles(o.LinkStyles...),
		highlight.WithMailLinks(o.MailLinks),
	}
}
