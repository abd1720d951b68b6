package sdapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chunk-prompts/pkg/processing"
)

const (
	DefaultURL     = "http://127.0.0.1:7860"
	DefaultTimeout = 10 * time.Minute
	txt2imgPath    = "/sdapi/v1/txt2img"
	interruptPath  = "/sdapi/v1/interrupt"
)

// Options configures a web API client.
type Options struct {
	URL      string
	Username string
	Password string
	Retries  int
	Timeout  time.Duration
}

// Client drives an AUTOMATIC1111-compatible web UI over its HTTP API.
type Client struct {
	baseURL  string
	username string
	password string
	http     *retryablehttp.Client
}

var _ processing.Pipeline = (*Client)(nil)

// NewClient creates a web API client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimSuffix(strings.TrimSpace(opts.URL), "/")
	if base == "" {
		base = DefaultURL
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("invalid web API url %q: missing http(s) scheme", opts.URL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = opts.Retries
	hc.CheckRetry = retryUnreachable
	hc.HTTPClient.Timeout = timeout
	hc.Logger = leveledLogger{}
	// hand the last response back so non-2xx bodies reach the caller
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL:  base,
		username: opts.Username,
		password: opts.Password,
		http:     hc,
	}, nil
}

// Process runs one txt2img request for cfg.
func (c *Client) Process(ctx context.Context, cfg *processing.Config) (*processing.Processed, error) {
	var resp txt2imgResponse
	if err := c.post(ctx, txt2imgPath, newTxt2imgRequest(cfg), &resp); err != nil {
		return nil, err
	}

	var info generationInfo
	if strings.TrimSpace(resp.Info) != "" {
		if err := json.Unmarshal([]byte(resp.Info), &info); err != nil {
			return nil, fmt.Errorf("failed to parse txt2img info: %w", err)
		}
	}

	encoded := resp.Images
	// a grid is returned in front of the samples when the batch has more than one image
	if len(info.Infotexts) > 0 && len(encoded) == len(info.Infotexts)+1 {
		encoded = encoded[1:]
	}

	images := make([]processing.Image, 0, len(encoded))
	for i, s := range encoded {
		data, err := decodeImage(s)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image %d: %w", i, err)
		}
		images = append(images, processing.Image{Data: data, MimeType: http.DetectContentType(data)})
	}

	seed := info.Seed
	if strings.TrimSpace(resp.Info) == "" {
		seed = cfg.Seed.Int64()
	}
	log.Debug().Int("images", len(images)).Int64("seed", seed).Msg("sdapi: txt2img done")

	return &processing.Processed{
		Images:     images,
		AllPrompts: info.AllPrompts,
		Infotexts:  info.Infotexts,
		Seed:       seed,
	}, nil
}

// Interrupt asks the web UI to stop the job it is currently running.
func (c *Client) Interrupt(ctx context.Context) error {
	return c.post(ctx, interruptPath, struct{}{}, nil)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	log.Debug().Str("url", c.baseURL+path).Int("bytes", len(payload)).Msg("sdapi: request")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %s: %s", path, resp.Status, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(bytes.NewReader(b)).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}

// retryUnreachable retries only requests that got no response at all.
// txt2img is not idempotent, so an answered request is never resent.
func retryUnreachable(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil || resp != nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func decodeImage(s string) ([]byte, error) {
	// some forks prefix a data URL header
	if i := strings.Index(s, ","); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}

// leveledLogger routes retryablehttp logs into zerolog.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) { log.Error().Fields(kv).Msg(msg) }
func (leveledLogger) Info(msg string, kv ...interface{})  { log.Debug().Fields(kv).Msg(msg) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { log.Trace().Fields(kv).Msg(msg) }
func (leveledLogger) Warn(msg string, kv ...interface{})  { log.Warn().Fields(kv).Msg(msg) }
