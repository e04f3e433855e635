// Package anchor provides a resilient client for the external anchor
// contract (4.F): create/update submissions over HTTP with retry and
// backoff, degrading to ChainUnavailable rather than blocking the
// off-chain workflow
package anchor

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	perr "sahay/internal/platform/errors"
	"sahay/internal/platform/logger"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUA        = "sahay-anchor"
	defaultMaxRetry  = 5
	defaultRetryBase = 500 * time.Millisecond
)

// Options configures the Client
type Options struct {
	BaseURL    string
	APIKey     string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RetryBase  time.Duration
}

// Client is a minimal HTTP client for the anchor contract gateway
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("anchor"),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// ErrInvalidNonce signals the chain rejected a submission for a stale nonce;
// callers should read CurrentNonce and retry with onchain+1 (4.F)
var ErrInvalidNonce = fmt.Errorf("anchor: invalid nonce")

// CreateAnchor submits createAnchor(complaintHash, slaHash, statusHash, createdAt, nonce)
func (c *Client) CreateAnchor(ctx context.Context, complaintHash, slaHash, statusHash [32]byte, createdAt time.Time, nonce uint64) error {
	if err := validateTimestamps(createdAt, createdAt, c.now()); err != nil {
		return err
	}
	body := map[string]any{
		"complaint_hash": hex.EncodeToString(complaintHash[:]),
		"sla_hash":       hex.EncodeToString(slaHash[:]),
		"status_hash":    hex.EncodeToString(statusHash[:]),
		"created_at":     createdAt.UTC().Format(time.RFC3339Nano),
		"nonce":          nonce,
	}
	return c.do(ctx, "POST", "/anchors", body)
}

// UpdateStatus submits updateStatus(complaintHash, statusHash, updatedAt, nonce)
func (c *Client) UpdateStatus(ctx context.Context, complaintHash, statusHash [32]byte, updatedAt time.Time, nonce uint64) error {
	if err := validateTimestamps(updatedAt, updatedAt, c.now()); err != nil {
		return err
	}
	body := map[string]any{
		"complaint_hash": hex.EncodeToString(complaintHash[:]),
		"status_hash":    hex.EncodeToString(statusHash[:]),
		"updated_at":     updatedAt.UTC().Format(time.RFC3339Nano),
		"nonce":          nonce,
	}
	return c.do(ctx, "POST", "/anchors/status", body)
}

// CurrentNonce reads the on-chain current nonce for a complaint, used to
// recover from ErrInvalidNonce
func (c *Client) CurrentNonce(ctx context.Context, complaintHash [32]byte) (uint64, error) {
	path := "/anchors/" + hex.EncodeToString(complaintHash[:]) + "/nonce"
	resp, err := c.doRaw(ctx, "GET", path, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var out struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeChainUnavailable, "anchor: decode nonce response")
	}
	return out.Nonce, nil
}

// validateTimestamps enforces 4.F's timestamp policy: createdAt/updatedAt
// must be within [now-30d, now+1h], and updatedAt >= createdAt
func validateTimestamps(createdAt, updatedAt, now time.Time) error {
	min := now.Add(-30 * 24 * time.Hour)
	max := now.Add(1 * time.Hour)
	if createdAt.Before(min) || createdAt.After(max) {
		return perr.InvalidArgf("anchor: created_at %s outside [%s, %s]", createdAt, min, max)
	}
	if updatedAt.Before(createdAt) {
		return perr.InvalidArgf("anchor: updated_at before created_at")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) error {
	resp, err := c.doRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

// doRaw issues a request with retries and backoff, matching the posture of
// external-chain clients elsewhere in this codebase: transport errors and
// 502/503/504 responses retry with exponential backoff (other statuses are
// returned at once); an exhausted retry budget or a
// fully unreachable gateway degrades to ErrorCodeChainUnavailable so the
// caller can requeue rather than block
func (c *Client) doRaw(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	url := c.opts.BaseURL + path
	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var reader io.Reader
		if payload != nil {
			b, err := json.Marshal(payload)
			if err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "anchor: encode request")
			}
			reader = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "anchor: new request")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Content-Type", "application/json")
		if c.opts.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if !c.shouldRetry(attempts) {
				return nil, perr.Wrapf(err, perr.ErrorCodeChainUnavailable, "anchor: transport error")
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("anchor transport error retrying")
			c.sleep(back)
			attempts++
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			return resp, nil

		case http.StatusConflict, http.StatusUnprocessableEntity:
			body := readSmall(resp.Body)
			_ = resp.Body.Close()
			if strings.Contains(strings.ToLower(body), "nonce") {
				return nil, ErrInvalidNonce
			}
			return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "anchor: rejected: %s", body)

		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			if !c.shouldRetry(attempts) {
				_ = resp.Body.Close()
				return nil, perr.ChainUnavailablef("anchor: chain gateway unavailable after %d attempts", attempts)
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("anchor transient error retrying")
			_ = resp.Body.Close()
			c.sleep(back)
			attempts++
			continue

		default:
			body := readSmall(resp.Body)
			_ = resp.Body.Close()
			return nil, perr.Newf(perr.ErrorCodeUnknown, "anchor: unexpected status %d: %s", resp.StatusCode, body)
		}
	}
}

func (c *Client) shouldRetry(attempt int) bool { return attempt < c.opts.MaxRetries }

func (c *Client) backoff(attempt int) time.Duration {
	ms := int64(c.opts.RetryBase/time.Millisecond) << uint(attempt)
	const cap = int64(30 * time.Second / time.Millisecond)
	if ms > cap {
		ms = cap
	}
	return time.Duration(ms) * time.Millisecond
}

func readSmall(rc io.ReadCloser) string {
	b, _ := io.ReadAll(io.LimitReader(rc, 2048))
	s := strings.TrimSpace(string(b))
	return strings.ReplaceAll(s, "\n", " ")
}
