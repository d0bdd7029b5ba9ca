// Package mirror copies finished artifacts to configured external storage.
// Publishing is best effort: failures are logged and never reach the client.
package mirror

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"slidepack/config"
	"slidepack/logger"
)

// uploadFunc writes the content of r as key on one backend.
type uploadFunc func(ctx context.Context, settings map[string]string, key string, r io.Reader) error

var backends = map[string]uploadFunc{
	"directServe": uploadToDirectServe,
	"s3":          uploadToS3,
	"gcs":         uploadToGCS,
	"sftp":        uploadToSFTP,
}

// Upload writes r to the backend named by backendType.
func Upload(ctx context.Context, backendType string, settings map[string]string, key string, r io.Reader) error {
	upload, ok := backends[backendType]
	if !ok {
		return fmt.Errorf("unknown backend type: %s", backendType)
	}
	if err := upload(ctx, settings, key, r); err != nil {
		return fmt.Errorf("failed to upload to %s: %w", backendType, err)
	}
	return nil
}

// Publisher sends every published file to all configured mirrors.
type Publisher struct {
	mirrors []config.Mirror
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewPublisher checks that every mirror names a known backend.
func NewPublisher(mirrors []config.Mirror, timeout time.Duration) (*Publisher, error) {
	for _, m := range mirrors {
		if _, ok := backends[m.Type]; !ok {
			return nil, fmt.Errorf("mirror %q: unknown backend type: %s", m.Name, m.Type)
		}
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Publisher{mirrors: mirrors, timeout: timeout}, nil
}

// Enabled reports whether any mirror is configured.
func (p *Publisher) Enabled() bool {
	return p != nil && len(p.mirrors) > 0
}

// Publish uploads the file at filePath to every mirror in the background.
// The upload outlives ctx cancellation but not its values.
func (p *Publisher) Publish(ctx context.Context, filePath string) {
	if !p.Enabled() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	name := filepath.Base(filePath)

	for _, m := range p.mirrors {
		p.wg.Add(1)
		go func(m config.Mirror) {
			defer p.wg.Done()
			ctx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()

			if err := p.publishOne(ctx, m, filePath, path.Join(m.Folder, name)); err != nil {
				logger.Errorf("Mirror %s: %v", m.Name, err)
			}
		}(m)
	}
}

// PublishSync is Publish without the goroutines; it returns the first error.
func (p *Publisher) PublishSync(ctx context.Context, filePath string) error {
	if !p.Enabled() {
		return nil
	}
	name := filepath.Base(filePath)
	for _, m := range p.mirrors {
		if err := p.publishOne(ctx, m, filePath, path.Join(m.Folder, name)); err != nil {
			return fmt.Errorf("mirror %s: %w", m.Name, err)
		}
	}
	return nil
}

func (p *Publisher) publishOne(ctx context.Context, m config.Mirror, filePath, key string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	started := time.Now()
	if err := Upload(ctx, m.Type, m.Settings, key, f); err != nil {
		return err
	}
	logger.Debugf("Mirror %s stored %s in %v", m.Name, key, time.Since(started).Round(time.Millisecond))
	return nil
}

// Wait blocks until background uploads finish.
func (p *Publisher) Wait() {
	if p == nil {
		return
	}
	p.wg.Wait()
}
