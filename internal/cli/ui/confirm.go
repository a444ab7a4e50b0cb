package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"

	"github.com/conduit-lang/dynarename/internal/apply"
)

// ConfirmPrompt is shown before any item is written
const ConfirmPrompt = "confirm (type 'Y' and press 'Enter'):"

// confirmed reports whether answer is the exact, case-sensitive "Y"
func confirmed(answer string) bool {
	return strings.TrimSpace(answer) == "Y"
}

// LineConfirmer reads a single line from a non-interactive input
type LineConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLineConfirmer creates a confirmer that prompts on out and reads from in
func NewLineConfirmer(in io.Reader, out io.Writer) *LineConfirmer {
	return &LineConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm implements apply.Confirmer. End of input counts as a refusal.
func (c *LineConfirmer) Confirm(*apply.Plan) (bool, error) {
	fmt.Fprint(c.out, ConfirmPrompt+" ")
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return confirmed(line), nil
}

// SurveyConfirmer asks on an interactive terminal
type SurveyConfirmer struct {
	in  *os.File
	out *os.File
}

// Confirm implements apply.Confirmer
func (c *SurveyConfirmer) Confirm(*apply.Plan) (bool, error) {
	var answer string
	prompt := &survey.Input{Message: ConfirmPrompt}
	if err := survey.AskOne(prompt, &answer, survey.WithStdio(c.in, c.out, c.out)); err != nil {
		return false, err
	}
	return confirmed(answer), nil
}

// AutoConfirmer accepts every plan without asking
type AutoConfirmer struct{}

// Confirm implements apply.Confirmer
func (AutoConfirmer) Confirm(*apply.Plan) (bool, error) {
	return true, nil
}

// NewConfirmer picks the gate for the current process: none when assumeYes,
// a terminal prompt when both streams are terminals, otherwise a plain line read
func NewConfirmer(in, out *os.File, assumeYes bool) apply.Confirmer {
	if assumeYes {
		return AutoConfirmer{}
	}
	if isatty.IsTerminal(in.Fd()) && isatty.IsTerminal(out.Fd()) {
		return &SurveyConfirmer{in: in, out: out}
	}
	return NewLineConfirmer(in, out)
}
