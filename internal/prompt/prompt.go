// Package prompt asks the operator for confirmation before destructive steps.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/term"
)

// Confirm asks question and reports whether the answer was yes.
type Confirm func(question string) bool

// Terminal returns a Confirm that reads a y/n answer from in. When in is not an
// interactive terminal every question is answered no.
func Terminal(in *os.File, out io.Writer) Confirm {
	interactive := term.IsTerminal(int(in.Fd()))
	reader := bufio.NewReader(in)

	return func(question string) bool {
		fmt.Fprintf(out, "%s (y/n): ", question)
		if !interactive {
			fmt.Fprintln(out)
			return false
		}
		return Answer(reader)
	}
}

// Answer reads one line from r and reports whether it is "y" or "yes".
func Answer(r *bufio.Reader) bool {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	response := strings.ToLower(strings.TrimSpace(line))
	return response == "y" || response == "yes"
}

// Always answers every question with answer.
func Always(answer bool) Confirm {
	return func(string) bool { return answer }
}

// ClearDirectory removes dir and everything below it after confirmation. It
// reports whether dir was removed. A missing dir is left alone without asking.
func ClearDirectory(dir string, confirm Confirm, out io.Writer) (bool, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", dir, err)
	}

	parent := osfs.New(filepath.Dir(abs))
	name := filepath.Base(abs)
	if _, err := parent.Lstat(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", dir, err)
	}

	if !confirm(fmt.Sprintf("Do you want to clear the directory '%s'?", dir)) {
		fmt.Fprintf(out, "Directory '%s' was not cleared.\n", dir)
		return false, nil
	}
	if err := util.RemoveAll(parent, name); err != nil {
		return false, fmt.Errorf("clear %s: %w", dir, err)
	}
	fmt.Fprintf(out, "Directory '%s' cleared.\n", dir)
	return true, nil
}
