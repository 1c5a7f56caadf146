package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxElapsed = 10 * time.Second
	maxErrorBody      = 4 << 10
)

// HTTPOption configures an HTTPExecutor.
type HTTPOption func(*HTTPExecutor)

// WithHTTPClient replaces the default client. The client is copied; the caller's value is
// never modified.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(e *HTTPExecutor) {
		e.client = client
	}
}

// WithTimeout bounds a single attempt.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(e *HTTPExecutor) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithMaxElapsed bounds the total time spent retrying.
func WithMaxElapsed(maxElapsed time.Duration) HTTPOption {
	return func(e *HTTPExecutor) {
		e.maxElapsed = maxElapsed
	}
}

// HTTPExecutor posts requests to <baseURL>/execute. Network errors and 5xx responses are
// retried with exponential backoff; 4xx responses fail immediately.
type HTTPExecutor struct {
	endpoint   string
	client     *http.Client
	timeout    time.Duration // Zero keeps the client's own timeout
	maxElapsed time.Duration
	logger     *slog.Logger
}

func NewHTTPExecutor(baseURL string, logger *slog.Logger, opts ...HTTPOption) *HTTPExecutor {
	e := &HTTPExecutor{
		endpoint:   strings.TrimRight(baseURL, "/") + "/execute",
		client:     &http.Client{Timeout: defaultTimeout},
		maxElapsed: defaultMaxElapsed,
		logger:     logger.With("module", "executor"),
	}

	for _, opt := range opts {
		opt(e)
	}

	client := *e.client
	if e.timeout > 0 {
		client.Timeout = e.timeout
	}

	e.client = &client

	return e
}

func (e *HTTPExecutor) newBackoff(ctx context.Context) backoff.BackOff {
	// BackOff implementations are stateful; build one per call.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = e.maxElapsed

	return backoff.WithContext(bo, ctx)
}

func (e *HTTPExecutor) Execute(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", &Error{CellID: req.CellID, Message: "failed to encode request", Err: err}
	}

	var output string

	attempt := 0

	err = backoff.Retry(func() error {
		attempt++

		out, err := e.post(ctx, req.CellID, payload)
		if err == nil {
			output = out

			return nil
		}

		var execErr *Error
		if errors.As(err, &execErr) && execErr.StatusCode >= 400 && execErr.StatusCode < 500 {
			return backoff.Permanent(err)
		}

		e.logger.WarnContext(ctx, "execution attempt failed", "cell_id", req.CellID, "attempt", attempt, "error", err)

		return err
	}, e.newBackoff(ctx))
	if err != nil {
		return "", err
	}

	return output, nil
}

func (e *HTTPExecutor) post(ctx context.Context, cellID int64, payload []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", backoff.Permanent(&Error{CellID: cellID, Message: "failed to build request", Err: err})
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", &Error{CellID: cellID, Message: "execution service unreachable", Err: err}
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &Error{CellID: cellID, StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	var decoded Response

	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(body[:min(len(body), maxErrorBody)]))
		if json.Unmarshal(body, &decoded) == nil && decoded.Error != "" {
			message = decoded.Error
		}

		return "", &Error{CellID: cellID, StatusCode: resp.StatusCode, Message: message}
	}

	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", backoff.Permanent(&Error{CellID: cellID, StatusCode: resp.StatusCode, Message: "malformed response", Err: err})
	}

	if decoded.Error != "" {
		return "", backoff.Permanent(&Error{CellID: cellID, Message: decoded.Error})
	}

	return decoded.Output, nil
}

// String identifies the executor in logs.
func (e *HTTPExecutor) String() string {
	return fmt.Sprintf("http executor (%s)", e.endpoint)
}
