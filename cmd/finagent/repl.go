package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/skosovsky/finagent/agent"
)

const exampleQueries = `Example queries:
  What is the current price of Apple (AAPL)?
  Compare Microsoft (MSFT) and Alphabet (GOOGL).
  Perform a strategic investment analysis for Tesla (TSLA) with a medium-term time horizon.
  Predict market trends for the technology sector over the next 3 years.
  Conduct a competitive analysis for Apple (AAPL).
  Assess the financial health of Nvidia (NVDA).
  Recommend a portfolio of $50000 for medium risk across Technology and Healthcare.`

// repl reads queries line by line and answers them in one shared conversation.
// A failed query is reported and the session continues.
func repl(ctx context.Context, in io.Reader, out io.Writer, a *agent.Agent, logger *slog.Logger) error {
	fmt.Fprintln(out, "Financial Analysis Assistant. Type 'exit' or 'quit' to end the conversation.")
	fmt.Fprintln(out, exampleQueries)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conv := agent.NewConversation()
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		fmt.Fprint(out, "\nYou: ")
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Assistant: Goodbye!")
			return nil
		}

		res, err := a.Chat(ctx, conv, line)
		switch {
		case errors.Is(err, context.Canceled):
			return err
		case errors.Is(err, agent.ErrLoopBoundExceeded):
			logger.Warn("query abandoned", "err", err)
			fmt.Fprintln(out, "Assistant: I could not reach an answer within the allowed number of steps.")
		case err != nil:
			logger.Error("query failed", "err", err)
			fmt.Fprintf(out, "Assistant: Sorry, something went wrong: %v\n", err)
		default:
			fmt.Fprintf(out, "Assistant: %s\n", res.Answer)
		}
	}
}
