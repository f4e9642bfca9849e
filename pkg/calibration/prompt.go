package calibration

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Prompter talks to the operator during calibration.
type Prompter interface {
	// Wait shows msg and blocks until the operator confirms.
	Wait(ctx context.Context, msg string) error
	// Report shows informational output.
	Report(msg string)
}

// ConsolePrompter prompts on a terminal and waits for Enter.
type ConsolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsolePrompter reads confirmations from in and writes prompts to out.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{in: bufio.NewReader(in), out: out}
}

func (p *ConsolePrompter) Wait(ctx context.Context, msg string) error {
	fmt.Fprint(p.out, color.New(color.Bold).Sprint(msg))

	// On cancellation the reader goroutine stays blocked until the next line
	// arrives. Wait is only used interactively at startup and from the CLI.
	done := make(chan error, 1)
	go func() {
		_, err := p.in.ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to read operator confirmation: %w", err)
		}
		return nil
	}
}

func (p *ConsolePrompter) Report(msg string) {
	fmt.Fprintln(p.out, msg)
}
