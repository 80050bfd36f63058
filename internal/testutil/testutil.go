// Package testutil provides shared test helpers for creating config files and a fake answer service.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// ConfigOption configures optional fields of the generated config file.
type ConfigOption func(*testConfig)

type testConfig struct {
	timeoutSeconds int
	retryAttempts  uint
}

// WithTimeoutSeconds sets answer_service.timeout_seconds.
func WithTimeoutSeconds(seconds int) ConfigOption {
	return func(cfg *testConfig) {
		cfg.timeoutSeconds = seconds
	}
}

// WithRetryAttempts sets answer_service.retry_attempts.
func WithRetryAttempts(attempts uint) ConfigOption {
	return func(cfg *testConfig) {
		cfg.retryAttempts = attempts
	}
}

// SetupTestConfig creates a config file pointing at endpoint, with colors and markdown off.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir, endpoint string, opts ...ConfigOption) string {
	t.Helper()

	cfg := testConfig{
		timeoutSeconds: 5,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	configContent := fmt.Sprintf(`answer_service:
  endpoint: %s
  timeout_seconds: %d
  retry_attempts: %d
ui:
  title: Ask about Food
  placeholder: Ask a food question...
  markdown: false
  color: false
`,
		endpoint,
		cfg.timeoutSeconds,
		cfg.retryAttempts,
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

// AnswerServer is a fake answer service recording the questions it receives.
type AnswerServer struct {
	*httptest.Server

	mu        sync.Mutex
	questions []string
}

// Questions returns the questions received so far, in order.
func (s *AnswerServer) Questions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.questions...)
}

// NewAnswerServer starts a fake answer service that replies with status and body.
// The server is closed when the test ends.
func NewAnswerServer(t *testing.T, status int, body string) *AnswerServer {
	t.Helper()

	server := &AnswerServer{}
	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request struct {
			Question string `json:"question"`
		}
		payload, err := io.ReadAll(r.Body)
		if err == nil {
			_ = json.Unmarshal(payload, &request)
		}

		server.mu.Lock()
		server.questions = append(server.questions, request.Question)
		server.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}
