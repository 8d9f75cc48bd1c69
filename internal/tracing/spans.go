package tracing

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrRequestID = "shine.request.id"
	AttrLanguage  = "shine.language"
	AttrSource    = "shine.language.source"

	AttrRunes        = "shine.text.runes"
	AttrOriginalTags = "shine.tags.original"
	AttrHighlightTag = "shine.tags.highlight"
	AttrMergedTags   = "shine.tags.merged"
	AttrNodes        = "shine.nodes"
	AttrElements     = "shine.elements"
	AttrCacheHit     = "shine.cache.hit"

	AttrErrorMessage = "error.message"
)

// Span names, one per pipeline stage.
const (
	SpanText     = "shine.highlight_text"
	SpanNode     = "shine.highlight_node"
	SpanDocument = "shine.highlight_document"
	SpanExtract  = "shine.extract"
	SpanTokenize = "shine.tokenize"
	SpanMerge    = "shine.merge"
	SpanInsert   = "shine.insert"
	SpanReload   = "shine.reload"
)

// Event names.
const (
	EventCacheHit     = "cache.hit"
	EventLanguageSkip = "language.skipped"
)

// RecordError marks span as failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
