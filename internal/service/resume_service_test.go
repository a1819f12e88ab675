package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/assessment"
	"github.com/noah-isme/gema-assessment-api/internal/models"
)

type storageStub struct {
	uploaded bytes.Buffer
	name     string
	err      error
}

func (s *storageStub) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.uploaded.Reset()
	if _, err := s.uploaded.ReadFrom(reader); err != nil {
		return "", err
	}
	s.name = name
	return "https://cdn.example.com/" + name, nil
}

func TestResumeServiceRejectsSize(t *testing.T) {
	students := &studentRepoStub{students: map[uint]models.Student{1: {ID: 1}}}
	svc := NewResumeService(&storageStub{}, students, 1, true, testLogger())

	file := buildFileHeader(t, "resume.pdf", bytes.Repeat([]byte("a"), 2*1024*1024))

	_, err := svc.Upload(context.Background(), 1, file)
	require.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestResumeServiceTypeValidation(t *testing.T) {
	students := &studentRepoStub{students: map[uint]models.Student{1: {ID: 1}}}
	svc := NewResumeService(&storageStub{}, students, 5, true, testLogger())

	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	_, err := svc.Upload(context.Background(), 1, buildFileHeader(t, "photo.png", pngHeader))
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
	require.Empty(t, students.students[1].ResumeURL)
}

func TestResumeServiceStoresPDFOnProfile(t *testing.T) {
	storage := &storageStub{}
	students := &studentRepoStub{students: map[uint]models.Student{1: {ID: 1}}}
	svc := NewResumeService(storage, students, 5, true, testLogger())

	content := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	resp, err := svc.Upload(context.Background(), 1, buildFileHeader(t, "My Resume (2024).PDF", content))
	require.NoError(t, err)
	require.Equal(t, "my-resume--2024.pdf", resp.FileName)
	require.Equal(t, assessment.MIMEPDF, resp.MimeType)
	require.Equal(t, int64(len(content)), resp.Size)
	require.Equal(t, content, storage.uploaded.Bytes())
	require.Equal(t, resp.ResumeURL, students.students[1].ResumeURL)
	require.True(t, students.students[1].HasResume())
}

func TestResumeServiceAcceptsPlainText(t *testing.T) {
	students := &studentRepoStub{students: map[uint]models.Student{1: {ID: 1}}}
	svc := NewResumeService(&storageStub{}, students, 5, true, testLogger())

	resp, err := svc.Upload(context.Background(), 1, buildFileHeader(t, "cv.txt", []byte("Jane Doe, backend engineer")))
	require.NoError(t, err)
	require.Equal(t, mimeText, resp.MimeType)
}

func TestResumeServiceTextOnlyWithoutDecoder(t *testing.T) {
	storage := &storageStub{}
	students := &studentRepoStub{students: map[uint]models.Student{1: {ID: 1}}}
	svc := NewResumeService(storage, students, 5, false, testLogger())

	_, err := svc.Upload(context.Background(), 1, buildFileHeader(t, "cv.pdf", []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")))
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
	require.Zero(t, storage.uploaded.Len())

	resp, err := svc.Upload(context.Background(), 1, buildFileHeader(t, "cv.txt", []byte("Jane Doe, backend engineer")))
	require.NoError(t, err)
	require.Equal(t, mimeText, resp.MimeType)
}

func TestResumeServiceRejectsInvalidDocx(t *testing.T) {
	students := &studentRepoStub{students: map[uint]models.Student{1: {ID: 1}}}
	svc := NewResumeService(&storageStub{}, students, 5, true, testLogger())

	body := &bytes.Buffer{}
	writer := zip.NewWriter(body)
	part, err := writer.Create("notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("not a word document"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	_, err = svc.Upload(context.Background(), 1, buildFileHeader(t, "cv.docx", body.Bytes()))
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
}

func TestResumeServiceErrors(t *testing.T) {
	content := []byte("%PDF-1.4\n")

	svc := NewResumeService(&storageStub{}, &studentRepoStub{students: map[uint]models.Student{}}, 5, true, testLogger())
	_, err := svc.Upload(context.Background(), 0, buildFileHeader(t, "r.pdf", content))
	require.ErrorIs(t, err, assessment.ErrInvalidInput)

	_, err = svc.Upload(context.Background(), 1, nil)
	require.ErrorIs(t, err, assessment.ErrInvalidInput)

	_, err = svc.Upload(context.Background(), 42, buildFileHeader(t, "r.pdf", content))
	require.ErrorIs(t, err, ErrStudentNotFound)

	failing := NewResumeService(&storageStub{err: errors.New("cloud down")}, &studentRepoStub{students: map[uint]models.Student{1: {ID: 1}}}, 5, true, testLogger())
	_, err = failing.Upload(context.Background(), 1, buildFileHeader(t, "r.pdf", content))
	require.EqualError(t, err, "cloud down")
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"file\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}
