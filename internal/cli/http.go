package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/estimatb/internal/app"
)

const defaultTimeout = 60 * time.Second

// Errors returned by the remote client.
var (
	ErrRejected = errors.New("server rejected the table")
	ErrServer   = errors.New("server error")
)

// Client uploads tables to POST /estimate.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type remoteBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	service.Analysis
}

// Analyze uploads the configured input and decodes the JSON analysis. A 422
// response still returns the analysis so its messages can be shown.
func (c *Client) Analyze(ctx context.Context, cfg *Config) (*service.Analysis, error) {
	resp, err := c.post(ctx, cfg, "json")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var body remoteBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response (%s): %w", resp.Status, err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return &body.Analysis, nil
	case http.StatusUnprocessableEntity:
		if body.RunID == "" {
			return nil, fmt.Errorf("%w: %s", ErrRejected, body.Message)
		}
		return &body.Analysis, fmt.Errorf("%w: %s", ErrRejected, body.Message)
	default:
		return nil, fmt.Errorf("%w: %s: %s", ErrServer, resp.Status, body.Message)
	}
}

// Download uploads the input again and copies the CSV of the given format
// ("csv" or "detail") to w.
func (c *Client) Download(ctx context.Context, cfg *Config, format string, w io.Writer) error {
	resp, err := c.post(ctx, cfg, format)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrServer, resp.Status)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, cfg *Config, format string) (*http.Response, error) {
	body, contentType, err := multipartRequest(cfg, format)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/estimate", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func multipartRequest(cfg *Config, format string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"tb_min", formatFloat(cfg.TbMin)},
		{"tb_max", formatFloat(cfg.TbMax)},
		{"tb_step", formatFloat(cfg.TbStep)},
		{"skip_rows", strconv.Itoa(cfg.SkipRows)},
		{"score_mode", cfg.Mode},
		{"sheet", cfg.Sheet},
		{"col_date", cfg.ColDate},
		{"col_tmin", cfg.ColTMin},
		{"col_tmax", cfg.ColTMax},
		{"col_nf", cfg.ColNF},
		{"format", format},
		{"bom", strconv.FormatBool(cfg.BOM)},
	}
	if cfg.Strict {
		fields = append(fields, [2]string{"columns", "strict"})
	} else {
		fields = append(fields, [2]string{"columns", "fuzzy"})
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	in, err := os.Open(cfg.Input)
	if err != nil {
		return nil, "", fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = in.Close() }()

	part, err := mw.CreateFormFile("file", filepath.Base(cfg.Input))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, in); err != nil {
		return nil, "", fmt.Errorf("read input: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
