package prompt

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearDirectory(t *testing.T) {
	tests := []struct {
		name        string
		exists      bool
		answer      bool
		wantCleared bool
		wantAsked   bool
		wantOutput  string
	}{
		{"confirmed", true, true, true, true, "cleared."},
		{"declined", true, false, false, true, "was not cleared."},
		{"missing directory", false, true, false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			if tt.exists {
				require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
				require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "a.diff"), []byte("x"), 0o644))
			}

			asked := false
			confirm := func(question string) bool {
				asked = true
				assert.Contains(t, question, dir)
				return tt.answer
			}

			var out bytes.Buffer
			cleared, err := ClearDirectory(dir, confirm, &out)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCleared, cleared)
			assert.Equal(t, tt.wantAsked, asked)
			assert.Contains(t, out.String(), tt.wantOutput)

			_, statErr := os.Stat(dir)
			assert.Equal(t, tt.exists && !tt.wantCleared, statErr == nil)
		})
	}
}

func TestAnswer(t *testing.T) {
	for input, want := range map[string]bool{
		"y\n":     true,
		" YES \n": true,
		"Y":       true,
		"n\n":     false,
		"\n":      false,
		"":        false,
		"yep\n":   false,
	} {
		got := Answer(bufio.NewReader(strings.NewReader(input)))
		assert.Equal(t, want, got, "%q", input)
	}
}

func TestAlways(t *testing.T) {
	assert.True(t, Always(true)("?"))
	assert.False(t, Always(false)("?"))
}
