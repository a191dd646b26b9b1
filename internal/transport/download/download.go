package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/afero"

	"github.com/vaporvee/boundless-server/internal/domain/manifest"
	"github.com/vaporvee/boundless-server/internal/integrity"
	"github.com/vaporvee/boundless-server/internal/logger"
)

const (
	// DefaultMaxAttempts is used when no attempt bound is configured.
	DefaultMaxAttempts = 3

	// DefaultFileMode is the permission of downloaded files.
	DefaultFileMode os.FileMode = 0o644

	// defaultDirMode is the permission of directories created for downloads.
	defaultDirMode os.FileMode = 0o755
)

var (
	// ErrBadHTTPStatus is returned when the server answers with a non-200 status.
	ErrBadHTTPStatus = errors.New("unexpected http status")
	// ErrNoSource is returned when no download URL is provided.
	ErrNoSource = errors.New("no download source")
)

// Outcome is the result of fetching one file.
type Outcome struct {
	// Success is true when the last attempt was written and verified.
	Success bool
	// Attempts is the number of attempts made.
	Attempts int
	// BytesWritten is the size written by the last attempt.
	BytesWritten int64
	// Err is the failure of the last attempt, nil on success.
	Err error
}

// Downloader fetches files into an install root filesystem.
type Downloader struct {
	// fs is the install root; destinations are relative to it.
	fs afero.Fs
	// client performs HTTP requests.
	client *http.Client
	// maxAttempts bounds attempts per file.
	maxAttempts int
	// timeout bounds a single attempt; zero disables it.
	timeout time.Duration
	// userAgent is sent with every request when set.
	userAgent string
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// WithMaxAttempts sets the attempt bound; values below 1 are ignored.
func WithMaxAttempts(attempts int) Option {
	return func(d *Downloader) {
		if attempts > 0 {
			d.maxAttempts = attempts
		}
	}
}

// WithTimeout sets the per-attempt network timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(d *Downloader) {
		d.userAgent = userAgent
	}
}

// New creates a Downloader writing into fsys.
func New(fsys afero.Fs, opts ...Option) *Downloader {
	d := &Downloader{
		fs:          fsys,
		client:      http.DefaultClient,
		maxAttempts: DefaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Fetch downloads dest from urls and verifies it against digests.
// Attempt n uses urls[n % len(urls)], so the primary source goes first.
// The destination is rewritten on each attempt and keeps the last write on failure.
func (d *Downloader) Fetch(ctx context.Context, urls []string, dest string, digests map[string]string) Outcome {
	return d.fetch(ctx, urls, dest, func(name string) error {
		return integrity.Verify(d.fs, name, digests)
	})
}

// Get downloads dest from url without content verification.
// Transport failures are still retried up to the attempt bound.
func (d *Downloader) Get(ctx context.Context, url, dest string) (int64, error) {
	outcome := d.fetch(ctx, []string{url}, dest, nil)

	return outcome.BytesWritten, outcome.Err
}

func (d *Downloader) fetch(ctx context.Context, urls []string, dest string, verify func(string) error) Outcome {
	var outcome Outcome

	name, err := manifest.CleanPath(dest)
	if err != nil {
		outcome.Err = err

		return outcome
	}

	if len(urls) == 0 {
		outcome.Err = fmt.Errorf("%s: %w", dest, ErrNoSource)

		return outcome
	}

	if err = d.fs.MkdirAll(filepath.Dir(name), defaultDirMode); err != nil {
		outcome.Err = fmt.Errorf("create parent of %s: %w", dest, err)

		return outcome
	}

	operation := func() error {
		source := urls[outcome.Attempts%len(urls)]
		outcome.Attempts++

		written, attemptErr := d.writeOnce(ctx, source, name)
		outcome.BytesWritten = written

		if attemptErr == nil && verify != nil {
			attemptErr = verify(name)
		}

		if attemptErr != nil {
			logger.WarnKV(ctx, "Download attempt failed",
				"path", dest, "url", source, "attempt", outcome.Attempts, "error", attemptErr)
		}

		return attemptErr
	}

	//nolint:gosec // maxAttempts is always at least 1.
	policy := backoff.WithContext(
		backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(d.maxAttempts-1)),
		ctx,
	)

	if err = backoff.Retry(operation, policy); err != nil {
		outcome.Err = err

		return outcome
	}

	outcome.Success = true

	return outcome
}

// writeOnce truncates name and streams the body of url into it.
func (d *Downloader) writeOnce(ctx context.Context, url, name string) (int64, error) {
	output, err := d.fs.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, DefaultFileMode)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", name, err)
	}

	written, err := d.copyBody(ctx, url, output)

	if closeErr := output.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close %s: %w", name, closeErr)
	}

	return written, err
}

func (d *Downloader) copyBody(ctx context.Context, url string, w io.Writer) (int64, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, err
	}

	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	response, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s, %s: %w", url, response.Status, ErrBadHTTPStatus)
	}

	written, err := io.Copy(w, response.Body)
	if err != nil {
		return written, fmt.Errorf("read body of %s: %w", url, err)
	}

	return written, nil
}
