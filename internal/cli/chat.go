package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ChatCLI asks questions read line by line until the user quits
type ChatCLI struct {
	*InteractiveCLI
}

func NewChatCLI(base *InteractiveCLI) *ChatCLI {
	return &ChatCLI{InteractiveCLI: base}
}

func isQuitCommand(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit":
		return true
	}
	return false
}

func (cli *ChatCLI) Session(ctx context.Context) error {
	_, _ = fmt.Fprint(cli.stdoutWriter, "You: ")
	input, err := cli.stdinReader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			_, _ = fmt.Fprintln(cli.stdoutWriter)
			_, _ = fmt.Fprintln(cli.stdoutWriter, "Goodbye!")
			return errEnd
		}
		return fmt.Errorf("error reading question input: %w", err)
	}
	question := strings.TrimSpace(input)

	if isQuitCommand(question) {
		_, _ = fmt.Fprintln(cli.stdoutWriter, "Goodbye!")
		return errEnd
	}

	// A failed answer is shown and the loop goes on
	if _, err := cli.ask(ctx, question); err != nil {
		return err
	}
	return nil
}
