package transfer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"repogen/internal/paths"
)

// DirTarget mirrors uploads into a local directory.
type DirTarget struct {
	Root string
}

func (t DirTarget) Put(_ context.Context, local, remote string) error {
	clean := filepath.Clean(filepath.FromSlash(remote))
	dest := filepath.Join(t.Root, clean)
	if !paths.Within(t.Root, dest) || clean == "." {
		return fmt.Errorf("remote path %q outside target root", remote)
	}
	return paths.CopyFile(local, dest)
}

func (DirTarget) Close() error { return nil }

// DryRunTarget logs and records uploads without sending anything.
type DryRunTarget struct {
	Logger *log.Logger
	Puts   []string
}

func (t *DryRunTarget) Put(_ context.Context, local, remote string) error {
	logger := t.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger.Info("would upload", "path", local, "remote", remote)
	t.Puts = append(t.Puts, remote)
	return nil
}

func (*DryRunTarget) Close() error { return nil }

// shellQuote quotes s for a POSIX shell on the remote side.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
