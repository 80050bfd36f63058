package controller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/at-ishikawa/ragfood/internal/answer"
	mock_answer "github.com/at-ishikawa/ragfood/internal/mocks/answer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func waitDone(t *testing.T, request *Request) State {
	t.Helper()
	select {
	case <-request.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("request did not settle")
	}
	return request.Outcome()
}

func TestQuestionAnswerController_SetQuestion(t *testing.T) {
	ctrl := gomock.NewController(t)
	// No EXPECT: any call to the answer service fails the test
	mockClient := mock_answer.NewMockClient(ctrl)
	c := New(mockClient)
	defer c.Close()

	for _, text := range []string{"I", "Is", "Is honey", "", "Is honey vegan?"} {
		c.SetQuestion(text)
		assert.Equal(t, text, c.Question())
		assert.Equal(t, text, c.View().Question)
		assert.Equal(t, PhaseIdle, c.State().Phase())
	}
}

func TestQuestionAnswerController_Submit(t *testing.T) {
	tests := []struct {
		name        string
		question    string
		response    answer.AskResponse
		err         error
		wantState   State
		wantView    View
		wantRequest string
	}{
		{
			name:      "answer is shown",
			question:  "Is honey vegan?",
			response:  answer.AskResponse{Answer: "No, honey is an animal product."},
			wantState: Answered("No, honey is an animal product."),
			wantView: View{
				Question:      "Is honey vegan?",
				ButtonLabel:   AskLabel,
				AnswerVisible: true,
				Answer:        "No, honey is an animal product.",
			},
		},
		{
			name:      "empty question is sent",
			question:  "",
			response:  answer.AskResponse{Answer: "Please ask a question."},
			wantState: Answered("Please ask a question."),
			wantView: View{
				Question:      "",
				ButtonLabel:   AskLabel,
				AnswerVisible: true,
				Answer:        "Please ask a question.",
			},
		},
		{
			name:      "empty answer returns to idle",
			question:  "What is natto?",
			response:  answer.AskResponse{Answer: ""},
			wantState: Idle(),
			wantView: View{
				Question:    "What is natto?",
				ButtonLabel: AskLabel,
			},
		},
		{
			name:      "network error is shown instead of loading forever",
			question:  "Is honey vegan?",
			err:       errors.New("httpClient.Post > dial tcp 127.0.0.1:8000: connect: connection refused"),
			wantState: Errored("answer service unavailable: httpClient.Post > dial tcp 127.0.0.1:8000: connect: connection refused"),
			wantView: View{
				Question:     "Is honey vegan?",
				ButtonLabel:  AskLabel,
				ErrorVisible: true,
				ErrorMessage: "answer service unavailable: httpClient.Post > dial tcp 127.0.0.1:8000: connect: connection refused",
			},
		},
		{
			name:      "non-2xx status is an error",
			question:  "Is honey vegan?",
			err:       &answer.StatusError{StatusCode: http.StatusInternalServerError, Body: "boom"},
			wantState: Errored("answer service returned status 500"),
			wantView: View{
				Question:     "Is honey vegan?",
				ButtonLabel:  AskLabel,
				ErrorVisible: true,
				ErrorMessage: "answer service returned status 500",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockClient := mock_answer.NewMockClient(ctrl)
			mockClient.EXPECT().
				Ask(gomock.Any(), gomock.Any()).
				DoAndReturn(func(ctx context.Context, request answer.AskRequest) (answer.AskResponse, error) {
					assert.Equal(t, tt.question, request.Question)
					assert.NotEmpty(t, request.RequestID)
					return tt.response, tt.err
				})

			c := New(mockClient)
			defer c.Close()
			c.SetQuestion(tt.question)

			request, err := c.Submit()
			require.NoError(t, err)
			assert.Equal(t, tt.question, request.Question())

			outcome := waitDone(t, request)
			assert.Equal(t, tt.wantState, outcome)
			assert.Equal(t, tt.wantState, c.State())
			assert.False(t, c.State().IsLoading())
			assert.Equal(t, tt.wantView, c.View())
		})
	}
}

func TestQuestionAnswerController_Submit_ClearsPreviousAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_answer.NewMockClient(ctrl)

	release := make(chan struct{})
	gomock.InOrder(
		mockClient.EXPECT().Ask(gomock.Any(), gomock.Any()).
			Return(answer.AskResponse{Answer: "No, honey is an animal product."}, nil),
		mockClient.EXPECT().Ask(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, request answer.AskRequest) (answer.AskResponse, error) {
				<-release
				return answer.AskResponse{Answer: "Yes, tofu is vegan."}, nil
			}),
	)

	c := New(mockClient)
	defer c.Close()

	c.SetQuestion("Is honey vegan?")
	first, err := c.Submit()
	require.NoError(t, err)
	require.Equal(t, Answered("No, honey is an animal product."), waitDone(t, first))

	c.SetQuestion("Is tofu vegan?")
	second, err := c.Submit()
	require.NoError(t, err)

	// While the second request is pending the old answer is gone
	view := c.View()
	assert.Equal(t, Loading(), c.State())
	assert.False(t, view.AnswerVisible)
	assert.Empty(t, view.Answer)
	assert.True(t, view.ButtonDisabled)
	assert.Equal(t, ThinkingLabel, view.ButtonLabel)

	close(release)
	assert.Equal(t, Answered("Yes, tofu is vegan."), waitDone(t, second))
	assert.Equal(t, AskLabel, c.View().ButtonLabel)
}

func TestQuestionAnswerController_Submit_RejectsWhileInFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_answer.NewMockClient(ctrl)

	release := make(chan struct{})
	mockClient.EXPECT().Ask(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, request answer.AskRequest) (answer.AskResponse, error) {
			<-release
			return answer.AskResponse{Answer: "No."}, nil
		}).
		Times(1)

	c := New(mockClient)
	defer c.Close()
	c.SetQuestion("Is honey vegan?")

	request, err := c.Submit()
	require.NoError(t, err)

	again, err := c.Submit()
	assert.ErrorIs(t, err, ErrRequestInFlight)
	assert.Nil(t, again)

	close(release)
	assert.Equal(t, Answered("No."), waitDone(t, request))
}

func TestQuestionAnswerController_Cancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_answer.NewMockClient(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})
	var firstCtx context.Context
	gomock.InOrder(
		mockClient.EXPECT().Ask(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, request answer.AskRequest) (answer.AskResponse, error) {
				firstCtx = ctx
				close(started)
				// Responds late, ignoring cancellation
				<-release
				return answer.AskResponse{Answer: "stale answer"}, nil
			}),
		mockClient.EXPECT().Ask(gomock.Any(), gomock.Any()).
			Return(answer.AskResponse{Answer: "fresh answer"}, nil),
	)

	c := New(mockClient)
	c.SetQuestion("Is honey vegan?")

	assert.False(t, c.Cancel(), "nothing to cancel yet")

	first, err := c.Submit()
	require.NoError(t, err)
	<-started

	assert.True(t, c.Cancel())
	assert.Equal(t, Idle(), waitDone(t, first))
	assert.Equal(t, Idle(), c.State())
	assert.ErrorIs(t, firstCtx.Err(), context.Canceled)

	second, err := c.Submit()
	require.NoError(t, err)
	assert.NotEqual(t, first.Token(), second.Token())
	assert.Equal(t, Answered("fresh answer"), waitDone(t, second))

	close(release)
	c.Close()

	// The stale response arrived after the fresh one and was dropped
	assert.Equal(t, Answered("fresh answer"), c.State())
}

func TestQuestionAnswerController_Close(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_answer.NewMockClient(ctrl)

	started := make(chan struct{})
	mockClient.EXPECT().Ask(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, request answer.AskRequest) (answer.AskResponse, error) {
			close(started)
			<-ctx.Done()
			return answer.AskResponse{}, ctx.Err()
		})

	c := New(mockClient)
	c.SetQuestion("Is honey vegan?")
	request, err := c.Submit()
	require.NoError(t, err)
	<-started

	c.Close()
	assert.Equal(t, Idle(), waitDone(t, request))
	assert.Equal(t, Idle(), c.State())

	_, err = c.Submit()
	assert.ErrorIs(t, err, ErrClosed)

	// Closing twice is harmless
	c.Close()
}

// recorder collects the states a listener receives
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) listen(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recorder) get() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func TestQuestionAnswerController_Subscribe(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_answer.NewMockClient(ctrl)
	mockClient.EXPECT().Ask(gomock.Any(), gomock.Any()).
		Return(answer.AskResponse{Answer: "No, honey is an animal product."}, nil)

	c := New(mockClient)
	var got recorder
	c.Subscribe(got.listen)

	c.SetQuestion("Is honey vegan?")
	request, err := c.Submit()
	require.NoError(t, err)
	waitDone(t, request)

	// Close waits until every transition was delivered
	c.Close()
	assert.Equal(t, []State{Loading(), Answered("No, honey is an animal product.")}, got.get())
}

func TestQuestionAnswerController_Subscribe_ListenerReadsState(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_answer.NewMockClient(ctrl)

	release := make(chan struct{})
	gomock.InOrder(
		mockClient.EXPECT().Ask(gomock.Any(), gomock.Any()).
			Return(answer.AskResponse{Answer: "No, honey is an animal product."}, nil),
		mockClient.EXPECT().Ask(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, request answer.AskRequest) (answer.AskResponse, error) {
				<-release
				return answer.AskResponse{Answer: "Yes, tofu is vegan."}, nil
			}),
	)

	c := New(mockClient)
	defer c.Close()

	rendering := make(chan struct{})
	resubmitted := make(chan struct{})
	views := make(chan View, 10)
	c.Subscribe(func(state State) {
		if state.Phase() == PhaseAnswered && state.Answer() == "No, honey is an animal product." {
			close(rendering)
			<-resubmitted
		}
		views <- c.View()
	})

	c.SetQuestion("Is honey vegan?")
	first, err := c.Submit()
	require.NoError(t, err)
	waitDone(t, first)

	select {
	case <-rendering:
	case <-time.After(5 * time.Second):
		t.Fatal("listener was not called")
	}

	// A submission while a listener is busy does not wait for it
	submitted := make(chan *Request)
	go func() {
		c.SetQuestion("Is tofu vegan?")
		second, err := c.Submit()
		assert.NoError(t, err)
		submitted <- second
	}()

	var second *Request
	select {
	case second = <-submitted:
	case <-time.After(5 * time.Second):
		t.Fatal("Submit blocked on a listener")
	}
	close(resubmitted)
	close(release)
	assert.Equal(t, Answered("Yes, tofu is vegan."), waitDone(t, second))

	// Loading(first), Answered(first), Loading(second), Answered(second)
	for i := 0; i < 4; i++ {
		select {
		case view := <-views:
			assert.NotEmpty(t, view.ButtonLabel)
		case <-time.After(5 * time.Second):
			t.Fatalf("listener call %d did not finish", i+1)
		}
	}
}

func TestQuestionAnswerController_Close_NotifiesListeners(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_answer.NewMockClient(ctrl)

	started := make(chan struct{})
	mockClient.EXPECT().Ask(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, request answer.AskRequest) (answer.AskResponse, error) {
			close(started)
			<-ctx.Done()
			return answer.AskResponse{}, ctx.Err()
		})

	c := New(mockClient)
	var got recorder
	c.Subscribe(got.listen)

	c.SetQuestion("Is honey vegan?")
	_, err := c.Submit()
	require.NoError(t, err)
	<-started

	c.Close()
	assert.Equal(t, Idle(), c.State())
	assert.Equal(t, []State{Loading(), Idle()}, got.get())
}

func TestQuestionAnswerController_RequestID(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mock_answer.NewMockClient(ctrl)

	c := New(mockClient)
	defer c.Close()
	c.newToken = func() string { return "token-1" }

	mockClient.EXPECT().Ask(gomock.Any(), answer.AskRequest{Question: "Is honey vegan?", RequestID: "token-1"}).
		Return(answer.AskResponse{Answer: "No."}, nil)

	c.SetQuestion("Is honey vegan?")
	request, err := c.Submit()
	require.NoError(t, err)
	assert.Equal(t, "token-1", request.Token())
	waitDone(t, request)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "status error",
			err:  &answer.StatusError{StatusCode: http.StatusBadGateway},
			want: "answer service returned status 502",
		},
		{
			name: "malformed response",
			err:  errors.Join(errors.New("json.Unmarshal"), answer.ErrMalformedResponse),
			want: "answer service returned an invalid response",
		},
		{
			name: "timeout",
			err:  context.DeadlineExceeded,
			want: "answer service timed out",
		},
		{
			name: "transport error",
			err:  errors.New("connection refused"),
			want: "answer service unavailable: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage(tt.err))
		})
	}
}
