package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

const (
	prompt         = "> "
	answerPrefix   = ">> "
	exitCommand    = "exit"
	profileCommand = "/profile"
)

type turnFunc func(ctx context.Context, input string) (string, error)

// profileFunc switches to the named profile, or only describes the current
// one when name is empty.
type profileFunc func(ctx context.Context, name string) (string, error)

// repl reads one input per line until EOF, a line that is exactly "exit", or
// ctx is done. "/profile [name]" is handled here and never reaches turn.
// Failed turns are reported and the loop continues.
func repl(ctx context.Context, in io.Reader, out io.Writer, turn turnFunc, profile profileFunc) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := scanner.Text()
		if line == exitCommand {
			return nil
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if name, ok := profileArg(input); ok {
			if profile == nil {
				fmt.Fprintln(out, "error: profile switching is not available")
				continue
			}
			current, err := profile(ctx, name)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "profile: %s\n", current)
			continue
		}

		answer, err := turn(ctx, input)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, answerPrefix+answer)
	}
}

func profileArg(input string) (string, bool) {
	rest, ok := strings.CutPrefix(input, profileCommand)
	if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
