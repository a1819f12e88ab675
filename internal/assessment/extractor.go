package assessment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-assessment-api/internal/observability"
)

// MinResumeChars is the least amount of sanitised text a resume must carry.
const MinResumeChars = 100

// ArtifactSource loads a stored resume artifact by reference.
type ArtifactSource interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// DocumentDecoder extracts text from binary document formats such as PDF
// and DOCX.
type DocumentDecoder interface {
	Decode(ctx context.Context, mime string, data []byte) (string, error)
}

// Document formats that need a DocumentDecoder before sanitising.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// IsDocumentMIME reports whether mime names a format that needs decoding.
func IsDocumentMIME(mime string) bool {
	return mime == MIMEPDF || mime == MIMEDOCX
}

// TextExtractor turns resume input into plain text.
type TextExtractor struct {
	source   ArtifactSource
	decoder  DocumentDecoder
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewTextExtractor constructs an extractor. decoder and cache may be nil;
// without a decoder only plain text artifacts are readable.
func NewTextExtractor(source ArtifactSource, decoder DocumentDecoder, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) *TextExtractor {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &TextExtractor{
		source:   source,
		decoder:  decoder,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "text_extractor").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/assessment/extractor"),
	}
}

// FromText sanitises caller-supplied resume text.
func (e *TextExtractor) FromText(text string) (string, error) {
	return checkResumeText(SanitizeResume([]byte(text)))
}

// FromArtifact fetches and sanitises a stored resume. Fetch failures wrap
// ErrArtifactFetch; short results are ErrInsufficientContent.
func (e *TextExtractor) FromArtifact(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty resume reference", ErrArtifactFetch)
	}

	ctx, span := e.tracer.Start(ctx, "assessment.extract_resume")
	defer span.End()

	cacheKey := resumeCacheKey(ref)
	if e.cache != nil {
		cached, err := e.cache.Get(ctx, cacheKey).Result()
		switch {
		case err == nil:
			span.SetAttributes(attribute.Bool("cache.hit", true))
			observability.ResumeExtractions().WithLabelValues("cache_hit").Inc()
			return cached, nil
		case !errors.Is(err, redis.Nil):
			e.logger.Warn().Err(err).Msg("failed to read resume cache")
		}
	}

	if e.source == nil {
		return "", fmt.Errorf("%w: no artifact source configured", ErrArtifactFetch)
	}

	data, err := e.source.Fetch(ctx, ref)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		observability.ResumeExtractions().WithLabelValues("fetch_failed").Inc()
		return "", fmt.Errorf("%w: %v", ErrArtifactFetch, err)
	}

	mime := baseMIME(mimetype.Detect(data).String())
	span.SetAttributes(
		attribute.String("resume.mime", mime),
		attribute.Int("resume.bytes", len(data)),
	)

	plain, err := e.plainText(ctx, mime, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		observability.ResumeExtractions().WithLabelValues("unreadable").Inc()
		return "", err
	}

	text, err := checkResumeText(SanitizeResume(plain))
	if err != nil {
		e.logger.Info().Str("mime", mime).Int("bytes", len(data)).Msg("resume artifact has too little text")
		observability.ResumeExtractions().WithLabelValues("insufficient").Inc()
		return "", err
	}
	observability.ResumeExtractions().WithLabelValues("extracted").Inc()

	if e.cache != nil {
		if err := e.cache.Set(ctx, cacheKey, text, e.cacheTTL).Err(); err != nil {
			e.logger.Warn().Err(err).Msg("failed to store resume cache")
		}
	}

	return text, nil
}

// plainText returns the readable bytes of an artifact. Binary documents go
// through the decoder; anything that is neither text nor a known document
// is rejected instead of being sanitised into noise.
func (e *TextExtractor) plainText(ctx context.Context, mime string, data []byte) ([]byte, error) {
	switch {
	case strings.HasPrefix(mime, "text/"):
		return data, nil
	case IsDocumentMIME(mime):
		if e.decoder == nil {
			return nil, fmt.Errorf("%w: %s resumes cannot be read without a document decoder", ErrInsufficientContent, mime)
		}
		text, err := e.decoder.Decode(ctx, mime, data)
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrArtifactFetch, mime, err)
		}
		return []byte(text), nil
	default:
		return nil, fmt.Errorf("%w: unsupported resume format %s", ErrInsufficientContent, mime)
	}
}

func baseMIME(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if idx := strings.IndexByte(m, ';'); idx >= 0 {
		m = strings.TrimSpace(m[:idx])
	}
	return m
}

// SanitizeResume keeps printable ASCII only and collapses whitespace.
func SanitizeResume(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		switch {
		case c == '\n' || c == '\r' || c == '\t':
			b.WriteByte(' ')
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func checkResumeText(text string) (string, error) {
	if len(text) < MinResumeChars {
		return "", fmt.Errorf("%w: %d characters after sanitising, need %d", ErrInsufficientContent, len(text), MinResumeChars)
	}
	return text, nil
}

func resumeCacheKey(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	return "assessment:resume:" + hex.EncodeToString(sum[:])
}
