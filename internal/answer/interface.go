package answer

import (
	"context"
	"errors"
	"fmt"
)

//go:generate mockgen -source=interface.go -destination=../mocks/answer/mock_client.go -package=mock_answer

// Client asks the answer service a single question
type Client interface {
	Ask(ctx context.Context, request AskRequest) (AskResponse, error)
}

// AskRequest is the body sent to the /ask endpoint
type AskRequest struct {
	Question string `json:"question"`

	// RequestID is sent as the X-Request-ID header, not in the body
	RequestID string `json:"-"`
}

// AskResponse is the body returned by the /ask endpoint.
// An empty Answer means the service had nothing to say.
type AskResponse struct {
	Answer string `json:"answer"`
}

var ErrMalformedResponse = errors.New("malformed response from the answer service")

// StatusError is returned when the answer service responds with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("answer service response error %d: %s", e.StatusCode, e.Body)
}
