// Package controller owns the question being typed and the lifecycle of the
// single request sent to the answer service.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/at-ishikawa/ragfood/internal/answer"
	"github.com/google/uuid"
)

var (
	ErrRequestInFlight = errors.New("a question is already being answered")
	ErrClosed          = errors.New("controller is closed")
)

// Request is a handle to one accepted submission
type Request struct {
	token    string
	question string
	cancel   context.CancelFunc
	done     chan struct{}
	outcome  State
}

// Token identifies the request; it is also sent as the request ID
func (r *Request) Token() string {
	return r.token
}

func (r *Request) Question() string {
	return r.question
}

// Done is closed once the request settled, was cancelled or the controller was closed
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Outcome is the state the request settled into. It is only meaningful after Done is closed.
func (r *Request) Outcome() State {
	<-r.done
	return r.outcome
}

func (r *Request) finish(outcome State) {
	r.outcome = outcome
	r.cancel()
	close(r.done)
}

// QuestionAnswerController holds the question and the request state.
// It is safe for concurrent use.
type QuestionAnswerController struct {
	client   answer.Client
	newToken func() string

	mu        sync.Mutex
	question  string
	state     State
	inFlight  *Request
	closed    bool
	listeners []func(State)

	// pending holds transitions not yet delivered to listeners, oldest first
	pending    []State
	wake       chan struct{}
	dispatched chan struct{}

	lifetime context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup
}

func New(client answer.Client) *QuestionAnswerController {
	lifetime, stop := context.WithCancel(context.Background())
	c := &QuestionAnswerController{
		client:     client,
		newToken:   uuid.NewString,
		state:      Idle(),
		wake:       make(chan struct{}, 1),
		dispatched: make(chan struct{}),
		lifetime:   lifetime,
		stop:       stop,
	}
	go c.dispatch()
	return c
}

// Subscribe registers fn to be called after every state transition.
// Listeners run one at a time on a single goroutine, in transition order,
// without any controller lock held. fn must not call Close.
func (c *QuestionAnswerController) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// SetQuestion replaces the question. It never touches the network.
func (c *QuestionAnswerController) SetQuestion(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.question = text
}

func (c *QuestionAnswerController) Question() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.question
}

func (c *QuestionAnswerController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *QuestionAnswerController) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Render(c.question, c.state)
}

// Submit sends the current question, empty or not, to the answer service.
// The previous answer is cleared immediately. Only one request may be in flight.
func (c *QuestionAnswerController) Submit() (*Request, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.inFlight != nil {
		c.mu.Unlock()
		return nil, ErrRequestInFlight
	}

	ctx, cancel := context.WithCancel(c.lifetime)
	request := &Request{
		token:    c.newToken(),
		question: c.question,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	c.inFlight = request
	c.wg.Add(1)
	c.transitionLocked(Loading())
	c.mu.Unlock()

	slog.Default().Debug("Submitting question",
		"requestID", request.token,
		"question", request.question)
	go c.run(ctx, request)
	return request, nil
}

// Cancel aborts the in-flight request and returns to Idle.
// It reports whether there was anything to cancel.
func (c *QuestionAnswerController) Cancel() bool {
	c.mu.Lock()
	request := c.inFlight
	if request == nil {
		c.mu.Unlock()
		return false
	}
	c.inFlight = nil
	request.finish(Idle())
	c.transitionLocked(Idle())
	c.mu.Unlock()

	slog.Default().Debug("Cancelled question", "requestID", request.token)
	return true
}

// Close aborts any in-flight request and waits for it to return and for
// listeners to receive every transition. Submissions after Close fail with ErrClosed.
func (c *QuestionAnswerController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.dispatched
		return
	}
	c.closed = true
	if c.inFlight != nil {
		c.inFlight.finish(Idle())
		c.inFlight = nil
		c.transitionLocked(Idle())
	}
	c.stop()
	c.mu.Unlock()
	c.signal()

	c.wg.Wait()
	<-c.dispatched
}

func (c *QuestionAnswerController) run(ctx context.Context, request *Request) {
	defer c.wg.Done()

	response, err := c.client.Ask(ctx, answer.AskRequest{
		Question:  request.question,
		RequestID: request.token,
	})

	c.mu.Lock()
	if c.inFlight != request {
		c.mu.Unlock()
		slog.Default().Debug("Discarding stale answer",
			"requestID", request.token,
			"error", err)
		return
	}
	c.inFlight = nil

	var next State
	if err != nil {
		slog.Default().Warn("Answer service call failed",
			"requestID", request.token,
			"error", err)
		next = Errored(errorMessage(err))
	} else {
		next = Answered(response.Answer)
	}
	request.finish(next)
	c.transitionLocked(next)
	c.mu.Unlock()
}

// transitionLocked must be called with mu held
func (c *QuestionAnswerController) transitionLocked(next State) {
	c.state = next
	if len(c.listeners) == 0 {
		return
	}
	c.pending = append(c.pending, next)
	c.signal()
}

func (c *QuestionAnswerController) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// dispatch delivers transitions to listeners until the controller is closed
// and nothing is pending
func (c *QuestionAnswerController) dispatch() {
	defer close(c.dispatched)
	for {
		c.mu.Lock()
		pending := c.pending
		c.pending = nil
		listeners := slices.Clone(c.listeners)
		closed := c.closed
		c.mu.Unlock()

		for _, state := range pending {
			for _, fn := range listeners {
				fn(state)
			}
		}
		if len(pending) > 0 {
			continue
		}
		if closed {
			return
		}
		<-c.wake
	}
}

func errorMessage(err error) string {
	var statusErr *answer.StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("answer service returned status %d", statusErr.StatusCode)
	case errors.Is(err, answer.ErrMalformedResponse):
		return "answer service returned an invalid response"
	case errors.Is(err, context.DeadlineExceeded):
		return "answer service timed out"
	case errors.Is(err, context.Canceled):
		return "request was cancelled"
	}
	return fmt.Sprintf("answer service unavailable: %v", err)
}
