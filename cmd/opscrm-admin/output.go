package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errAborted = errors.New("aborted by user")

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}

// confirmation is an interactive safety prompt. With expect set the operator
// has to type it back verbatim; otherwise "y" or "yes" continues.
type confirmation struct {
	warning string
	expect  string
}

func (c confirmation) ask(in io.Reader, out io.Writer) error {
	prompt := "Continue? [y/N]: "
	if c.expect != "" {
		prompt = fmt.Sprintf("Type %q to continue or press enter to abort: ", c.expect)
	}
	if err := writef(out, "%s\n%s", c.warning, prompt); err != nil {
		return fmt.Errorf("print confirmation: %w", err)
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return errAborted
	}
	answer := strings.TrimSpace(line)
	if c.expect != "" {
		if answer != c.expect {
			return errAborted
		}
		return nil
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return nil
	}
	return errAborted
}
