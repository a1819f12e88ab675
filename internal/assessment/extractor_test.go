package assessment

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubDecoder struct {
	text  string
	err   error
	mimes []string
}

func (d *stubDecoder) Decode(_ context.Context, mime string, _ []byte) (string, error) {
	d.mimes = append(d.mimes, mime)
	return d.text, d.err
}

type stubArtifactSource struct {
	data  []byte
	err   error
	calls atomic.Int32
}

func (s *stubArtifactSource) Fetch(context.Context, string) ([]byte, error) {
	s.calls.Add(1)
	return s.data, s.err
}

var longResume = strings.Repeat("Senior backend engineer building Go services on Postgres and Redis. ", 3)

func TestSanitizeResumeKeepsPrintableASCII(t *testing.T) {
	raw := []byte("Jane\x00 Doe\n\tSoftware\r\nEngineer \xc3\xa9\xe2\x82\xac  Go")
	require.Equal(t, "Jane Doe Software Engineer Go", SanitizeResume(raw))
}

func TestTextExtractorFromTextInsufficient(t *testing.T) {
	extractor := NewTextExtractor(nil, nil, nil, 0, zerolog.Nop())

	_, err := extractor.FromText(strings.Repeat("x", 40))
	require.ErrorIs(t, err, ErrInsufficientContent)

	text, err := extractor.FromText(longResume)
	require.NoError(t, err)
	require.Equal(t, strings.TrimSpace(longResume), text)
}

func TestTextExtractorFromArtifactCachesText(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	source := &stubArtifactSource{data: []byte(longResume)}
	extractor := NewTextExtractor(source, nil, client, 10*time.Minute, zerolog.Nop())
	ref := "https://res.cloudinary.com/demo/raw/upload/resumes/7.txt"

	first, err := extractor.FromArtifact(context.Background(), ref)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(first, "Senior backend engineer"))

	second, err := extractor.FromArtifact(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.EqualValues(t, 1, source.calls.Load())

	ttl := server.TTL(resumeCacheKey(ref))
	require.Equal(t, 10*time.Minute, ttl)
}

func TestTextExtractorFromArtifactFailures(t *testing.T) {
	extractor := NewTextExtractor(&stubArtifactSource{err: errors.New("404 not found")}, nil, nil, 0, zerolog.Nop())

	_, err := extractor.FromArtifact(context.Background(), "https://example.com/resume.pdf")
	require.ErrorIs(t, err, ErrArtifactFetch)
	require.NotErrorIs(t, err, ErrInsufficientContent)

	_, err = extractor.FromArtifact(context.Background(), "  ")
	require.ErrorIs(t, err, ErrArtifactFetch)

	_, err = NewTextExtractor(nil, nil, nil, 0, zerolog.Nop()).FromArtifact(context.Background(), "ref")
	require.ErrorIs(t, err, ErrArtifactFetch)

	short := NewTextExtractor(&stubArtifactSource{data: []byte("\x89PNG\r\n\x1a\n\x00\x00binary")}, nil, nil, 0, zerolog.Nop())
	_, err = short.FromArtifact(context.Background(), "ref")
	require.ErrorIs(t, err, ErrInsufficientContent)
}

// binaryPDF mimics a FlateDecode PDF: a header followed by compressed stream
// bytes that are mostly printable after stripping.
func binaryPDF() []byte {
	body := strings.Repeat("x\x9c+I-.Q(J-.\xcd\x05\x00stream#5%q!aZ~", 20)
	return []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj <</Filter /FlateDecode>>\nstream\n" + body + "\nendstream")
}

func TestTextExtractorRejectsUndecodedPDF(t *testing.T) {
	data := binaryPDF()
	require.GreaterOrEqual(t, len(SanitizeResume(data)), MinResumeChars)

	extractor := NewTextExtractor(&stubArtifactSource{data: data}, nil, nil, 0, zerolog.Nop())
	text, err := extractor.FromArtifact(context.Background(), "https://cdn.example.com/resume.pdf")
	require.ErrorIs(t, err, ErrInsufficientContent)
	require.Empty(t, text)
}

func TestTextExtractorDecodesDocuments(t *testing.T) {
	decoder := &stubDecoder{text: "Jane Doe\n\n" + longResume}
	extractor := NewTextExtractor(&stubArtifactSource{data: binaryPDF()}, decoder, nil, 0, zerolog.Nop())

	text, err := extractor.FromArtifact(context.Background(), "https://cdn.example.com/resume.pdf")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(text, "Jane Doe Senior backend engineer"))
	require.NotContains(t, text, "FlateDecode")
	require.Equal(t, []string{MIMEPDF}, decoder.mimes)

	failing := NewTextExtractor(&stubArtifactSource{data: binaryPDF()}, &stubDecoder{err: errors.New("tika status 500")}, nil, 0, zerolog.Nop())
	_, err = failing.FromArtifact(context.Background(), "https://cdn.example.com/resume.pdf")
	require.ErrorIs(t, err, ErrArtifactFetch)
}
