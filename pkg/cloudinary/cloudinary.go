package cloudinary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

const defaultMaxFetchBytes = 10 << 20

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName     string
	APIKey        string
	APISecret     string
	Folder        string
	FetchTimeout  time.Duration
	MaxFetchBytes int64
}

// Service stores resume artifacts in Cloudinary and reads them back.
type Service struct {
	client   *cloudinary.Cloudinary
	folder   string
	http     *http.Client
	maxBytes int64
	logger   zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	svc := NewFetcher(cfg, logger)
	svc.client = cld
	return svc, nil
}

// NewFetcher returns a Service that can only fetch artifacts. It backs resume
// extraction when upload credentials are not configured.
func NewFetcher(cfg Config, logger zerolog.Logger) *Service {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxFetchBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxFetchBytes
	}

	return &Service{
		folder:   cfg.Folder,
		http:     &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "cloudinary").Logger(),
	}
}

// Upload sends the file to Cloudinary as a raw resource and returns a secure URL.
func (s *Service) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("cloudinary uploads are not configured")
	}

	params := uploader.UploadParams{
		Folder:       strings.Trim(s.folder, "/"),
		PublicID:     buildPublicID(name),
		ResourceType: "raw",
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("file uploaded to cloudinary")

	return result.SecureURL, nil
}

// Fetch downloads a stored artifact by its delivery URL. Bodies larger than
// the configured limit are rejected.
func (s *Service) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return nil, fmt.Errorf("unsupported artifact url %q", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build artifact request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch artifact: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("artifact exceeds %d bytes", s.maxBytes)
	}

	s.logger.Debug().Int("bytes", len(data)).Msg("artifact fetched")
	return data, nil
}

func buildPublicID(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("resume-%d", time.Now().Unix())
	}

	return fmt.Sprintf("%s-%d%s", base, time.Now().Unix(), strings.ToLower(filepath.Ext(name)))
}
