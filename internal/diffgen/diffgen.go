// Package diffgen produces unified line diffs between text files of two trees
// and writes them as .diff artifacts mirroring the tree layout.
package diffgen

import (
	"fmt"
	"os"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pmezard/go-difflib/difflib"

	"TreeCompare/internal/failure"
	"TreeCompare/internal/tree"
)

// Suffix is appended to the relative path of every artifact.
const Suffix = ".diff"

// DefaultContext is the number of unchanged lines shown around each hunk.
const DefaultContext = 3

const noNewline = "\n\\ No newline at end of file\n"

// Unified returns the unified diff of rel between a and b. The headers carry
// both host paths. An empty string means the decoded texts have no line-level
// difference. Files with invalid UTF-8 are decoded with U+FFFD replacing each
// invalid byte and reported in warnings.
func Unified(a, b *tree.Tree, rel string, contextLines int) (string, []*failure.DecodeWarning, error) {
	if contextLines < 0 {
		contextLines = DefaultContext
	}

	var warnings []*failure.DecodeWarning
	linesA, warn, err := readLines(a, rel)
	if err != nil {
		return "", nil, err
	}
	if warn != nil {
		warnings = append(warnings, warn)
	}
	linesB, warn, err := readLines(b, rel)
	if err != nil {
		return "", nil, err
	}
	if warn != nil {
		warnings = append(warnings, warn)
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        linesA,
		B:        linesB,
		FromFile: a.Abs(rel),
		ToFile:   b.Abs(rel),
		Context:  contextLines,
	})
	if err != nil {
		return "", warnings, fmt.Errorf("diff %s: %w", rel, err)
	}
	return text, warnings, nil
}

func readLines(t *tree.Tree, rel string) ([]string, *failure.DecodeWarning, error) {
	data, err := util.ReadFile(t.FS, rel)
	if err != nil {
		return nil, nil, failure.NewFileAccess("read", t.Abs(rel), err)
	}

	var warn *failure.DecodeWarning
	text := string(data)
	if !utf8.ValidString(text) {
		text = Decode(text)
		warn = &failure.DecodeWarning{Path: t.Abs(rel)}
	}
	return SplitLines(text), warn, nil
}

// Decode returns text with every byte that does not start a valid UTF-8
// sequence replaced by U+FFFD, one replacement per byte.
func Decode(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune(utf8.RuneError)
		} else {
			sb.WriteString(text[i : i+size])
		}
		i += size
	}
	return sb.String()
}

// SplitLines splits text into lines that keep their "\n" terminator. "\r\n"
// and lone "\r" are read as "\n". A final line without a terminator carries a
// "No newline at end of file" marker so that it never compares equal to a
// terminated line.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if text == "" {
		return nil
	}

	lines := strings.SplitAfter(text, "\n")
	if last := lines[len(lines)-1]; last == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] = last + noNewline
	}
	return lines
}

// Output is the directory diff artifacts are written into.
type Output struct {
	Dir string
	FS  billy.Filesystem
}

// OpenOutput creates dir if needed and returns an Output rooted at it.
func OpenOutput(dir string) (*Output, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Output{Dir: dir, FS: osfs.New(dir)}, nil
}

// Write stores text as the artifact for rel and returns the artifact's
// relative path. Intermediate directories are created as needed. Empty text
// writes nothing and returns "".
func (o *Output) Write(rel, text string) (string, error) {
	if text == "" {
		return "", nil
	}

	name := rel + Suffix
	if dir := path.Dir(name); dir != "." {
		if err := o.FS.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := util.WriteFile(o.FS, name, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	return name, nil
}
