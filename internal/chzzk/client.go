// Package chzzk talks to the CHZZK platform: video and clip metadata, HLS
// playlists and DASH playback descriptions.
package chzzk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/logging"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// Default endpoints and headers
const (
	DefaultAPIBaseURL      = "https://api.chzzk.naver.com"
	DefaultPlaybackBaseURL = "https://apis.naver.com"
	DefaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	Referer                = "https://chzzk.naver.com/"
)

// Config holds client settings
type Config struct {
	APIBaseURL        string
	PlaybackBaseURL   string
	UserAgent         string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// APIError is returned for a non-2xx response
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chzzk: %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client is a rate-limited CHZZK HTTP client
type Client struct {
	httpClient  *http.Client
	mediaClient *http.Client
	cfg         Config
	limiter     *rate.Limiter
	logger      *logging.Logger
}

// NewClient creates a client. Empty config fields fall back to the defaults.
func NewClient(cfg Config, logger *logging.Logger) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.PlaybackBaseURL == "" {
		cfg.PlaybackBaseURL = DefaultPlaybackBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	cfg.PlaybackBaseURL = strings.TrimRight(cfg.PlaybackBaseURL, "/")

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		mediaClient: &http.Client{},
		cfg:         cfg,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger.WithComponent("chzzk"),
	}
}

// newRequest builds a GET request carrying the platform headers and, when
// present, the session cookies.
func (c *Client) newRequest(ctx context.Context, url string, creds *models.Credentials) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Referer", Referer)
	if creds != nil && creds.Complete() {
		req.AddCookie(&http.Cookie{Name: "NID_AUT", Value: creds.AuthToken})
		req.AddCookie(&http.Cookie{Name: "NID_SES", Value: creds.SessionToken})
	}
	return req, nil
}

// do sends an API request through the rate limiter and checks the status
func (c *Client) do(ctx context.Context, url string, creds *models.Credentials) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, url, creds)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	c.logger.Debugf("GET %s -> %d in %s", url, resp.StatusCode, time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, URL: url, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, url string, creds *models.Credentials, dest interface{}) error {
	resp, err := c.do(ctx, url, creds)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return nil
}

func (c *Client) getText(ctx context.Context, url string) (string, error) {
	resp, err := c.do(ctx, url, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", url, err)
	}
	return string(data), nil
}

// Open starts a GET for a media URL (segment or clip file) without the rate
// limiter or the API timeout; ctx bounds the transfer. The caller closes the
// body.
func (c *Client) Open(ctx context.Context, url string) (*http.Response, error) {
	req, err := c.newRequest(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.mediaClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, URL: url}
	}
	return resp, nil
}

func (c *Client) playbackURL(videoID, inKey string) string {
	return fmt.Sprintf("%s/neonplayer/vodplay/v2/playback/%s?key=%s", c.cfg.PlaybackBaseURL, videoID, inKey)
}

func (c *Client) playback(ctx context.Context, videoID, inKey string, creds *models.Credentials) (*Playback, error) {
	var pb Playback
	if err := c.getJSON(ctx, c.playbackURL(videoID, inKey), creds, &pb); err != nil {
		return nil, err
	}
	return &pb, nil
}
