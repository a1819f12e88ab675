package handler_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-assessment-api/internal/config"
	"github.com/noah-isme/gema-assessment-api/internal/dto"
	"github.com/noah-isme/gema-assessment-api/internal/handler"
	"github.com/noah-isme/gema-assessment-api/internal/router"
	"github.com/noah-isme/gema-assessment-api/internal/service"
)

type mockResumeService struct {
	lastUserID uint
	response   dto.ResumeUploadResponse
	err        error
}

func (m *mockResumeService) Upload(_ context.Context, userID uint, file *multipart.FileHeader) (dto.ResumeUploadResponse, error) {
	if file != nil {
		if _, err := file.Open(); err != nil {
			return dto.ResumeUploadResponse{}, err
		}
	}
	m.lastUserID = userID
	if m.err != nil {
		return dto.ResumeUploadResponse{}, m.err
	}
	return m.response, nil
}

func setupResumeApp(svc service.ResumeService) *fiber.App {
	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test"}, router.Dependencies{
		ResumeHandler: handler.NewResumeHandler(svc, zerolog.New(io.Discard)),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(7))
			return c.Next()
		},
	})
	return app
}

func resumeUploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/profile/resume", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestResumeHandler_Success(t *testing.T) {
	svc := &mockResumeService{response: dto.ResumeUploadResponse{ResumeURL: "https://cdn.example.com/cv.pdf", FileName: "cv.pdf", MimeType: "application/pdf", Size: 3}}
	app := setupResumeApp(svc)

	resp, err := app.Test(resumeUploadRequest(t, "cv.pdf", []byte("pdf")))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool                     `json:"success"`
		Data    dto.ResumeUploadResponse `json:"data"`
		Message string                   `json:"message"`
	}
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.Equal(t, "resume uploaded", response.Message)
	require.Equal(t, uint(7), svc.lastUserID)
	require.Equal(t, svc.response.ResumeURL, response.Data.ResumeURL)
}

func TestResumeHandler_MissingFile(t *testing.T) {
	app := setupResumeApp(&mockResumeService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v2/profile/resume", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestResumeHandler_ServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "too_large", err: service.ErrUploadTooLarge, statusCode: fiber.StatusRequestEntityTooLarge},
		{name: "type", err: service.ErrUploadTypeNotAllowed, statusCode: fiber.StatusBadRequest},
		{name: "scan", err: service.ErrUploadScanFailed, statusCode: fiber.StatusBadRequest},
		{name: "student", err: service.ErrStudentNotFound, statusCode: fiber.StatusNotFound},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := setupResumeApp(&mockResumeService{err: tc.err})

			resp, err := app.Test(resumeUploadRequest(t, "doc.pdf", []byte("pdf")))
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}
