// Package importer uploads bank statements to the classification service and
// turns its response into import candidates.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/tally/internal/model"
)

// DefaultTimeout bounds one classify request.
const DefaultTimeout = 60 * time.Second

const classifyPath = "/classify"

// Client talks to the statement classification service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	accessor   Accessor
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAccessor replaces the file accessor.
func WithAccessor(a Accessor) Option {
	return func(c *Client) { c.accessor = a }
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		accessor: LocalAccessor{},
		log:      log.With().Str("component", "importer").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseFile uploads the PDF at path and returns its candidates, most recent first.
// It returns either a non-empty list or a single *Error, except on context
// cancellation where ctx.Err() is returned as is.
func (c *Client) ParseFile(ctx context.Context, path string) ([]model.ParsedTransaction, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, newError(KindUnsupportedFormat, filepath.Ext(path), nil)
	}

	data, err := c.read(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, contentType, err := buildMultipart(filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+classifyPath, body)
	if err != nil {
		return nil, newError(KindNetworkUnavailable, "", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("classify request failed")
		return nil, newError(KindNetworkUnavailable, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, newError(KindNetworkUnavailable, "", err)
	}

	c.log.Debug().
		Str("file", filepath.Base(path)).
		Int("bytes", len(data)).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("classify response")

	var decoded classifyResponse
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode != http.StatusOK {
		e := newError(KindServerError, "", nil)
		e.StatusCode = resp.StatusCode
		if decodeErr == nil {
			e.Detail = present(decoded.Error)
		}
		return nil, e
	}
	if decodeErr != nil {
		return nil, newError(KindServerError, "malformed response", decodeErr)
	}
	if decoded.Error != nil {
		return nil, newError(KindServerError, strings.TrimSpace(*decoded.Error), nil)
	}

	candidates := c.candidates(decoded)
	if len(candidates) == 0 {
		return nil, newError(KindEmptyResult, "", nil)
	}
	return candidates, nil
}

// read acquires scoped access to path and returns its bytes. Access is always released.
func (c *Client) read(path string) ([]byte, error) {
	rc, err := c.accessor.Acquire(path)
	if err != nil {
		return nil, newError(KindAccessDenied, filepath.Base(path), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, newError(KindAccessDenied, filepath.Base(path), err)
	}
	return data, nil
}

func (c *Client) candidates(resp classifyResponse) []model.ParsedTransaction {
	bank := present(resp.Bank)
	out := make([]model.ParsedTransaction, 0, len(resp.Transactions))
	for _, raw := range resp.Transactions {
		if cand, ok := toCandidate(raw, bank); ok {
			out = append(out, cand)
		}
	}

	if dropped := len(resp.Transactions) - len(out); dropped > 0 {
		c.log.Debug().Int("dropped", dropped).Int("accepted", len(out)).Msg("dropped unparseable records")
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func buildMultipart(filename string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(uuid.NewString()); err != nil {
		return nil, "", fmt.Errorf("setting boundary: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// IsCanceled reports whether err came from context cancellation rather than a parse failure.
func IsCanceled(err error) bool {
	if KindOf(err) != 0 {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
