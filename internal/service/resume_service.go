package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/assessment"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadScanFailed indicates validation of the file failed.
	ErrUploadScanFailed = errors.New("file scanning failed")
	// ErrStudentNotFound indicates the profile to attach the resume to does not exist.
	ErrStudentNotFound = errors.New("student not found")
)

const mimeText = "text/plain"

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// ResumeService stores candidate resumes and links them to the profile.
type ResumeService interface {
	Upload(ctx context.Context, userID uint, file *multipart.FileHeader) (dto.ResumeUploadResponse, error)
}

type resumeService struct {
	storage  FileStorage
	students repository.StudentRepository
	logger   zerolog.Logger
	maxSize  int64
	docs     bool
	tracer   trace.Tracer
}

// NewResumeService constructs a resume service. PDF and DOCX uploads are
// accepted only when acceptDocuments is set, that is when a document decoder
// can later turn them into text; otherwise only plain text is stored.
func NewResumeService(storage FileStorage, students repository.StudentRepository, maxSizeMB int, acceptDocuments bool, logger zerolog.Logger) ResumeService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &resumeService{
		storage:  storage,
		students: students,
		logger:   logger.With().Str("component", "resume_service").Logger(),
		maxSize:  int64(maxSizeMB) * 1024 * 1024,
		docs:     acceptDocuments,
		tracer:   otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/service/resume"),
	}
}

func (s *resumeService) Upload(ctx context.Context, userID uint, file *multipart.FileHeader) (dto.ResumeUploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "resume.upload")
	defer span.End()

	if userID == 0 {
		return dto.ResumeUploadResponse{}, fmt.Errorf("%w: user id is required", assessment.ErrInvalidInput)
	}
	if file == nil {
		return dto.ResumeUploadResponse{}, fmt.Errorf("%w: file is required", assessment.ErrInvalidInput)
	}

	span.SetAttributes(
		attribute.Int("resume.user_id", int(userID)),
		attribute.String("resume.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("resume.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		return dto.ResumeUploadResponse{}, s.reject(span, "size", ErrUploadTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.ResumeUploadResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		return dto.ResumeUploadResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		return dto.ResumeUploadResponse{}, s.reject(span, "size", ErrUploadTooLarge)
	}

	fileType := normalizeMime(mimetype.Detect(buf.Bytes()).String())
	span.SetAttributes(attribute.String("resume.detected_mime", fileType))
	if !s.allowedType(fileType) {
		return dto.ResumeUploadResponse{}, s.reject(span, "type", ErrUploadTypeNotAllowed)
	}
	if err := s.scan(buf.Bytes(), fileType); err != nil {
		return dto.ResumeUploadResponse{}, s.reject(span, "scan", err)
	}

	name := sanitizeFileName(file.Filename)
	url, err := s.storage.Upload(ctx, name, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.ResumeUploadResponse{}, err
	}

	if err := s.students.UpdateResume(ctx, userID, url, name); err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ResumeUploadResponse{}, ErrStudentNotFound
		}
		return dto.ResumeUploadResponse{}, err
	}

	s.logger.Info().Uint("user_id", userID).Str("mime", fileType).Int("bytes", buf.Len()).Msg("resume stored")
	span.SetStatus(codes.Ok, "stored")

	return dto.ResumeUploadResponse{
		ResumeURL: url,
		FileName:  name,
		MimeType:  fileType,
		Size:      int64(buf.Len()),
	}, nil
}

func (s *resumeService) reject(span trace.Span, reason string, err error) error {
	observability.UploadRejected().WithLabelValues(reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	return err
}

// scan guards against archive bombs in zip-based documents.
func (s *resumeService) scan(payload []byte, mime string) error {
	if mime != assessment.MIMEDOCX {
		return nil
	}
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return ErrUploadScanFailed
	}
	var totalUncompressed uint64
	for _, f := range reader.File {
		totalUncompressed += f.UncompressedSize64
		if totalUncompressed > uint64(s.maxSize*20) {
			return fmt.Errorf("archive uncompressed size too large: %w", ErrUploadScanFailed)
		}
	}
	return nil
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("resume-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

// normalizeMime drops MIME parameters such as charset.
func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.IndexByte(lower, ';'); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	return lower
}

func (s *resumeService) allowedType(m string) bool {
	if m == mimeText {
		return true
	}
	return s.docs && assessment.IsDocumentMIME(m)
}
