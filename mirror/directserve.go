package mirror

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"slidepack/logger"
)

// uploadToDirectServe writes the file under settings["baseDir"], where another
// web server can serve it.
func uploadToDirectServe(ctx context.Context, settings map[string]string, key string, r io.Reader) error {
	baseDir := settings["baseDir"]
	if baseDir == "" {
		return fmt.Errorf("missing setting: baseDir")
	}

	fullPath := filepath.Join(baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, &ctxReader{ctx: ctx, r: r}); err != nil {
		os.Remove(fullPath)
		return fmt.Errorf("failed to write to file %s: %w", fullPath, err)
	}

	logger.Infof("Saved '%s' to '%s'", key, fullPath)
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
