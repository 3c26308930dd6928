package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"repogen/internal/paths"
)

// Options tune the run logger.
type Options struct {
	Level log.Level
	// Mirror, when set, receives a copy of every log line, typically
	// os.Stderr under --verbose.
	Mirror io.Writer
}

// New creates a logger that writes to a timestamped file inside the site's
// logs directory. The returned closer should be closed when logging is no
// longer needed.
func New(p paths.RepoPaths, opts Options) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(p.LogsDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure logs directory: %w", err)
	}

	filename := time.Now().Format("20060102-150405") + ".log"
	filePath := filepath.Join(p.LogsDir, filename)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	var w io.Writer = file
	if opts.Mirror != nil {
		w = io.MultiWriter(file, opts.Mirror)
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           opts.Level,
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05.000000",
		Prefix:          "repogen",
	})
	return logger, file, nil
}
