package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

var ErrEmptyInput = errors.New("empty input")

// GetSecret prints prompt to w and reads one value without echo when in is
// a terminal. Otherwise a single line is read from in, so secrets can be
// piped. Pass a *bufio.Reader to read several values from one stream. The
// trailing newline is trimmed.
func GetSecret(in io.Reader, w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return nil, err
	}

	if terminal(in) {
		pw, err := readPassword(int(in.(*os.File).Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return nil, err
		}
		if len(pw) == 0 {
			return nil, ErrEmptyInput
		}
		return pw, nil
	}

	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, ErrEmptyInput
	}
	return []byte(line), nil
}

func terminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && isTerminal(int(f.Fd()))
}
