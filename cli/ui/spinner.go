package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Spinner is a progress indicator for long-running hunts.
type Spinner struct {
	*spinner.Spinner
}

func NewSpinner(msg string) *Spinner {
	s := &Spinner{spinner.New(
		spinner.CharSets[14],
		200*time.Millisecond,
		spinner.WithHiddenCursor(true),
		spinner.WithWriter(os.Stderr),
		spinner.WithSuffix(" "+msg),
	)}
	s.Start()
	return s
}

func (s *Spinner) UpdateMessage(msg string) {
	s.Suffix = " " + msg
}

func (s *Spinner) Success(msg string) {
	s.FinalMSG = fmt.Sprintf("%s %s\n", color.HiGreenString("✓"), msg)
	s.Stop()
}

func (s *Spinner) Fail(msg string) {
	s.FinalMSG = fmt.Sprintf("%s %s\n", color.HiRedString("✗"), msg)
	s.Stop()
}
