package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/at-ishikawa/ragfood/internal/controller"
	"github.com/fatih/color"
)

var (
	errEnd = errors.New("end")

	ErrAnswerFailed = errors.New("failed to get an answer")
)

// Controller is the part of the question/answer controller the CLI drives
type Controller interface {
	SetQuestion(text string)
	Submit() (*controller.Request, error)
	Cancel() bool
}

// InteractiveCLI contains the terminal I/O shared by the one-shot and chat modes
type InteractiveCLI struct {
	controller   Controller
	stdinReader  *bufio.Reader
	stdoutWriter io.Writer
	bold         *color.Color
	italic       *color.Color
	red          *color.Color
}

func NewInteractiveCLI(qa Controller, stdin io.Reader, stdout io.Writer, useColor bool) *InteractiveCLI {
	cli := &InteractiveCLI{
		controller:   qa,
		stdinReader:  bufio.NewReader(stdin),
		stdoutWriter: stdout,
		bold:         color.New(color.Bold),
		italic:       color.New(color.Italic),
		red:          color.New(color.FgRed),
	}
	if !useColor {
		cli.bold.DisableColor()
		cli.italic.DisableColor()
		cli.red.DisableColor()
	}
	return cli
}

//go:generate mockgen -source=interactive_cli.go -destination=../mocks/cli/mock_session.go -package=mock_cli Session

type Session interface {
	Session(context context.Context) error
}

func (cli *InteractiveCLI) Run(ctx context.Context, session Session) error {
	ctx, cancel := signal.NotifyContext(
		ctx,
		os.Interrupt,
	)
	defer cancel()

	// One slot: the session goroutine never blocks once Run has returned
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := session.Session(ctx); err != nil {
				if errors.Is(err, errEnd) {
					return
				}
				errCh <- err
				return
			}
		}
	}()
	select {
	case <-ctx.Done():
		_, _ = fmt.Fprintln(cli.stdoutWriter, "Received interrupt signal, exiting...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error: %w", err)
		}
	}
	return nil
}

// Ask submits a single question and prints the outcome.
// It fails with ErrAnswerFailed when the answer service could not answer.
func (cli *InteractiveCLI) Ask(ctx context.Context, question string) error {
	view, err := cli.ask(ctx, question)
	if err != nil {
		return err
	}
	if view.ErrorVisible {
		return fmt.Errorf("%w: %s", ErrAnswerFailed, view.ErrorMessage)
	}
	return nil
}

func (cli *InteractiveCLI) ask(ctx context.Context, question string) (controller.View, error) {
	cli.controller.SetQuestion(question)
	request, err := cli.controller.Submit()
	if err != nil {
		return controller.View{}, fmt.Errorf("controller.Submit() > %w", err)
	}

	loading := controller.Render(question, controller.Loading())
	_, _ = cli.italic.Fprintln(cli.stdoutWriter, loading.ButtonLabel)

	select {
	case <-request.Done():
	case <-ctx.Done():
		cli.controller.Cancel()
		return controller.View{}, ctx.Err()
	}

	view := controller.Render(question, request.Outcome())
	cli.printView(view)
	return view, nil
}

func (cli *InteractiveCLI) printView(view controller.View) {
	w := cli.stdoutWriter
	switch {
	case view.AnswerVisible:
		_, _ = cli.bold.Fprintln(w, "Answer:")
		_, _ = fmt.Fprintln(w, view.Answer)
	case view.ErrorVisible:
		_, _ = cli.red.Fprintf(w, "Error: %s\n", view.ErrorMessage)
	default:
		_, _ = cli.italic.Fprintln(w, "No answer.")
	}
	_, _ = fmt.Fprintln(w)
}
