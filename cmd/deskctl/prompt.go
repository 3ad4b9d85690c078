package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

type choice string

const (
	choiceShift   choice = "shift"
	choiceKeep    choice = "keep"
	choiceCancel  choice = "cancel"
	choiceDismiss choice = "dismiss"
)

var (
	shiftKeepCancel  = []choice{choiceShift, choiceKeep, choiceCancel}
	shiftKeepDismiss = []choice{choiceShift, choiceKeep, choiceDismiss}
)

var errNoAnswer = errors.New("no answer on input")

// prompter asks line-based questions. It waits for an answer without a timeout.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

// choose repeats question until the answer names one of choices or its first letter.
func (p *prompter) choose(question string, choices []choice) (choice, error) {
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = fmt.Sprintf("[%c]%s", c[0], c[1:])
	}
	hint := strings.Join(labels, " / ")

	for {
		fmt.Fprintf(p.out, "%s %s: ", question, hint)
		if !p.in.Scan() {
			fmt.Fprintln(p.out)
			if err := p.in.Err(); err != nil {
				return "", err
			}
			return "", errNoAnswer
		}

		answer := strings.ToLower(strings.TrimSpace(p.in.Text()))
		for _, c := range choices {
			if answer == string(c) || (answer != "" && answer == string(c[0])) {
				return c, nil
			}
		}
		fmt.Fprintf(p.out, "please answer %s\n", hint)
	}
}
