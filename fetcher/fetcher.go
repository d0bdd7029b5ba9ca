// Package fetcher downloads slide images with bounded parallelism and
// normalizes each one into a single raster format.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"slidepack/encoder"
	"slidepack/logger"
	"slidepack/models"
	"slidepack/retry"
)

// DefaultConcurrency caps in-flight fetches across one batch.
const DefaultConcurrency = 20

// maxImageBytes bounds a single slide download.
const maxImageBytes = 32 << 20

// FetchExhaustedError reports a URL that failed every attempt.
type FetchExhaustedError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("failed to fetch %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, models.ErrFetchExhausted) hold.
func (e *FetchExhaustedError) Is(target error) bool { return target == models.ErrFetchExhausted }

// StatusError is a non-2xx response. It is retried like a transport error.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Fetcher runs the fetch-and-normalize pipeline.
type Fetcher struct {
	Client      *http.Client
	Policy      retry.Policy
	Concurrency int
	UserAgent   string
}

// New returns a Fetcher. A nil client gets a default one without a global timeout;
// the retry policy carries the per-attempt timeout.
func New(client *http.Client, policy retry.Policy, concurrency int, userAgent string) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Fetcher{Client: client, Policy: policy, Concurrency: concurrency, UserAgent: userAgent}
}

// FetchAll downloads every URL, normalizes it to format and writes it to dir.
// Result N corresponds to urls[N] regardless of completion order. The first
// permanent failure cancels the batch and no partial results are returned.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string, format string, quality int, dir string) ([]models.FetchedImage, error) {
	if _, ok := encoder.Get(format); !ok {
		return nil, models.InvalidFormat(format)
	}

	started := time.Now()
	results := make([]models.FetchedImage, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.Concurrency)

	for i, url := range urls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := f.fetchOne(gctx, i, url, format, quality, dir)
			if err != nil {
				return err
			}
			results[i] = img
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Infof("Fetched and normalized %d slides to %s in %v", len(urls), format, time.Since(started).Round(time.Millisecond))
	return results, nil
}

// fetchOne downloads a single URL under the retry policy and normalizes it
func (f *Fetcher) fetchOne(ctx context.Context, pos int, url, format string, quality int, dir string) (models.FetchedImage, error) {
	var data []byte
	err := f.Policy.Do(ctx, func(ctx context.Context) error {
		body, err := f.get(ctx, url)
		if err != nil {
			logger.Warnf("Fetch attempt failed for %s: %v", url, err)
			return err
		}
		data = body
		return nil
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return models.FetchedImage{}, &FetchExhaustedError{URL: url, Attempts: exhausted.Attempts, Err: exhausted.Err}
		}
		return models.FetchedImage{}, fmt.Errorf("fetch %s: %w", url, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("slide-%03d.%s", pos+1, format))
	res, err := writeNormalized(path, data, format, quality)
	if err != nil {
		return models.FetchedImage{}, fmt.Errorf("normalize slide %d (%s): %w", pos+1, url, err)
	}

	logger.Debugf("Slide %d normalized from %s to %s (%dx%d)", pos+1, res.SourceFormat, format, res.Width, res.Height)
	return models.FetchedImage{
		Position: pos,
		URL:      url,
		Path:     path,
		Format:   format,
		Width:    res.Width,
		Height:   res.Height,
	}, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/jpeg,*/*;q=0.8")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// writeNormalized re-encodes data into path, removing the file on failure
func writeNormalized(path string, data []byte, format string, quality int) (encoder.Result, error) {
	file, err := os.Create(path)
	if err != nil {
		return encoder.Result{}, err
	}

	res, err := encoder.Normalize(bytes.NewReader(data), file, format, encoder.EncodeOptions{Quality: quality})
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return encoder.Result{}, err
	}
	return res, nil
}
