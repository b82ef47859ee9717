package ranking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/fmuoria/resume-screening-dashboard/internal/errors"
	"github.com/fmuoria/resume-screening-dashboard/internal/ingestion"
	"github.com/fmuoria/resume-screening-dashboard/internal/logger"
	"github.com/fmuoria/resume-screening-dashboard/internal/models"
)

const (
	DefaultPath    = "/rank/"
	DefaultTimeout = 300 * time.Second

	// maxErrorBody bounds how much of a failure body is kept for diagnosis
	maxErrorBody = 4 << 10
)

// Config locates the ranking endpoint
type Config struct {
	BaseURL string
	Path    string
	Timeout time.Duration
}

// Client performs one ranking round trip per call. It never retries.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient uses a copy of hc for requests. The copy's Timeout is set
// from Config.Timeout; hc itself is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cp := *hc
		c.httpClient = &cp
	}
}

// NewClient creates a ranking client
func NewClient(cfg Config, l *zap.Logger, opts ...Option) *Client {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{},
		logger:     logger.OrNop(l),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Timeout = cfg.Timeout
	return c
}

// Endpoint returns the full ranking URL
func (c *Client) Endpoint() (string, error) {
	base, err := url.Parse(strings.TrimRight(c.config.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", fmt.Errorf("invalid base URL %q: scheme must be http or https", c.config.BaseURL)
	}
	if base.Host == "" {
		return "", fmt.Errorf("invalid base URL %q: missing host", c.config.BaseURL)
	}
	return base.String() + "/" + strings.TrimLeft(c.config.Path, "/"), nil
}

// Rank submits the job description and archive and returns the candidates in
// server order. A nil archive sends the job description alone.
func (c *Client) Rank(ctx context.Context, jobDesc string, archive *ingestion.Archive) ([]models.Candidate, error) {
	requestID := uuid.NewString()
	log := c.logger.With(zap.String("request_id", requestID))
	start := time.Now()

	candidates, outcome, err := c.rank(ctx, requestID, jobDesc, archive)

	elapsed := time.Since(start)
	RequestsTotal.WithLabelValues(outcome).Inc()
	RequestDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())

	if err != nil {
		log.Warn("Ranking request failed",
			zap.String("outcome", outcome),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return nil, err
	}

	log.Info("Ranking request completed",
		zap.Int("candidates", len(candidates)),
		zap.Int64("archive_bytes", archive.Size()),
		zap.Duration("duration", elapsed))
	return candidates, nil
}

func (c *Client) rank(ctx context.Context, requestID, jobDesc string, archive *ingestion.Archive) ([]models.Candidate, string, error) {
	req, err := c.newRequest(ctx, requestID, jobDesc, archive)
	if err != nil {
		return nil, outcomeRequestError, apperrors.NewRequestError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, outcomeNetworkError, apperrors.NewNetworkError(err, isTimeout(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, outcomeServerError, apperrors.NewServerError(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// headers arrived but the body did not
		return nil, outcomeNetworkError, apperrors.NewNetworkError(err, isTimeout(err))
	}

	candidates, err := DecodeCandidates(body)
	if err != nil {
		return nil, outcomeProtocolError, err
	}
	return candidates, outcomeSuccess, nil
}

func (c *Client) newRequest(ctx context.Context, requestID, jobDesc string, archive *ingestion.Archive) (*http.Request, error) {
	endpoint, err := c.Endpoint()
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("job_desc", jobDesc); err != nil {
		return nil, fmt.Errorf("failed to write job_desc field: %w", err)
	}

	if archive != nil {
		name := archive.Name
		if name == "" {
			name = ingestion.ArchiveName
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, name))
		header.Set("Content-Type", ingestion.MIMEZip)

		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create files part: %w", err)
		}
		if _, err := part.Write(archive.Data); err != nil {
			return nil, fmt.Errorf("failed to write archive: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	return req, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
