package ragapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/at-ishikawa/ragfood/internal/answer"
	"github.com/avast/retry-go"
	"resty.dev/v3"
)

// Client talks to the RAG answer service over HTTP
type Client struct {
	httpClient       *resty.Client
	endpoint         string
	maxRetryAttempts uint
}

var _ answer.Client = (*Client)(nil)

func NewClient(endpoint string, timeout time.Duration, retryAttempts uint) *Client {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &Client{
		httpClient:       client,
		endpoint:         endpoint,
		maxRetryAttempts: retryAttempts,
	}
}

func (client Client) Close() error {
	return client.httpClient.Close()
}

// Endpoint returns the URL questions are posted to
func (client Client) Endpoint() string {
	return client.endpoint
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *answer.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == http.StatusTooManyRequests
	}

	// The service may still be starting up
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// Ask implements the answer.Client interface
func (client *Client) Ask(ctx context.Context, request answer.AskRequest) (answer.AskResponse, error) {
	var result answer.AskResponse
	if err := retry.Do(
		func() error {
			response, err := client.ask(ctx, request)
			if err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			result = response
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(client.maxRetryAttempts+1),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Default().Info("Retrying answer service call",
				"attempt", n+1,
				"requestID", request.RequestID,
				"lastError", err)
		}),
		retry.DelayType(retry.BackOffDelay),
	); err != nil {
		return answer.AskResponse{}, err
	}
	return result, nil
}

func (client *Client) ask(ctx context.Context, request answer.AskRequest) (answer.AskResponse, error) {
	req := client.httpClient.R().
		SetContext(ctx).
		SetBody(request)
	if request.RequestID != "" {
		req.SetHeader("X-Request-ID", request.RequestID)
	}

	response, err := req.Post(client.endpoint)
	if err != nil {
		return answer.AskResponse{}, fmt.Errorf("httpClient.Post > %w", err)
	}
	if response.IsError() {
		return answer.AskResponse{}, &answer.StatusError{
			StatusCode: response.StatusCode(),
			Body:       response.String(),
		}
	}

	body := response.String()
	slog.Default().Debug("answer service response",
		"requestID", request.RequestID,
		"status", response.StatusCode(),
		"body", body)

	var decoded answer.AskResponse
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return answer.AskResponse{}, fmt.Errorf("json.Unmarshal(%s) > %w: %w", body, answer.ErrMalformedResponse, err)
	}
	decoded.Answer = strings.TrimSpace(decoded.Answer)
	return decoded, nil
}
