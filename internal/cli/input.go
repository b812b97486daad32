package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
)

// readLine prints prompt to w and reads one line from r. A final line
// without a newline is accepted.
func readLine(r io.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirmPhrase asks the user to type phrase back. On a terminal the
// prompt is a form; otherwise a line is read from a.in.
func (a *App) confirmPhrase(title, phrase string) (bool, error) {
	prompt := fmt.Sprintf("%s\nType %q to continue", title, phrase)

	var typed string
	if a.isTerminal() {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title(color.HiRedString(title)).
					Description(fmt.Sprintf("Type %q to continue", phrase)).
					Value(&typed),
			),
		)
		if err := form.Run(); err != nil {
			return false, err
		}
	} else {
		var err error
		if typed, err = readLine(a.in, prompt, a.out); err != nil {
			return false, err
		}
	}

	return strings.TrimSpace(typed) == phrase, nil
}
