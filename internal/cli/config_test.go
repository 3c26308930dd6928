package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigShowMasksPassword(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "repogen.yaml"), "repository_id: repository.x\ntransfer:\n  host: h\n  user: u\n  password: hunter2\n")

	stdout, _, err := runCLI(t, "--root", root, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "repository_id: repository.x")
	assert.NotContains(t, stdout, "hunter2")
	assert.Contains(t, stdout, "output_dir: zips")
}

func TestConfigValidate(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "repogen.yaml"), "output_dir: a/b\n")

	_, stderr, err := runCLI(t, "--root", root, "config", "validate")
	require.Error(t, err)
	assert.Contains(t, stderr, "output_dir")
	assert.Contains(t, stderr, "repository_id is empty")
}

func TestSplitEditorCommand(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"vi", []string{"vi"}},
		{"code --wait", []string{"code", "--wait"}},
		{`"/Applications/My Editor/bin/edit" -w`, []string{"/Applications/My Editor/bin/edit", "-w"}},
	}
	for _, tt := range tests {
		got, err := splitEditorCommand(tt.in)
		require.NoError(t, err)
		if !assert.Equal(t, tt.want, got) {
			t.Logf("input %q -> %s", tt.in, strings.Join(got, "|"))
		}
	}
}
