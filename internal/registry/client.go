package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vaporvee/boundless-server/internal/logger"
)

var (
	// ErrNoMatchingVersion is returned when no version is published on the channel.
	ErrNoMatchingVersion = errors.New("no version on channel")
	// ErrNoFiles is returned when the selected version has no files.
	ErrNoFiles = errors.New("version has no files")
	// ErrBadHTTPStatus is returned when the registry answers with a non-200 status.
	ErrBadHTTPStatus = errors.New("unexpected http status")
)

// Version is one published version of a project, newest first in registry responses.
type Version struct {
	// ID is the registry identifier of the version.
	ID string `json:"id"`
	// VersionNumber is the human readable version.
	VersionNumber string `json:"version_number"`
	// VersionType is the release channel (release, beta, alpha).
	VersionType string `json:"version_type"`
	// Files lists the downloadable artifacts of this version.
	Files []File `json:"files"`
}

// File is a downloadable artifact of a version.
type File struct {
	// URL is the direct download location.
	URL string `json:"url"`
	// Filename is the artifact name.
	Filename string `json:"filename"`
	// Primary marks the main artifact of the version.
	Primary bool `json:"primary"`
	// Hashes maps digest algorithm names to hex digests.
	Hashes map[string]string `json:"hashes"`
	// Size is the artifact size in bytes.
	Size int64 `json:"size"`
}

// Client talks to the registry HTTP API.
type Client struct {
	// baseURL is the API root, e.g. https://api.modrinth.com/v2.
	baseURL string
	// userAgent identifies the caller; the registry rejects anonymous agents.
	userAgent string
	// timeout bounds each request.
	timeout time.Duration
	// http performs requests.
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout bounds each registry request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient creates a registry client for the API at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Versions lists the versions of project, newest first.
func (c *Client) Versions(ctx context.Context, project string) ([]Version, error) {
	endpoint, err := url.JoinPath(c.baseURL, "project", project, "version")
	if err != nil {
		return nil, fmt.Errorf("build registry URL: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	response, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query registry: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", endpoint, response.Status, ErrBadHTTPStatus)
	}

	var versions []Version
	if err = json.NewDecoder(response.Body).Decode(&versions); err != nil {
		return nil, fmt.Errorf("decode registry response: %w", err)
	}

	return versions, nil
}

// LatestFile returns the first file of the newest version of project on channel.
func (c *Client) LatestFile(ctx context.Context, project, channel string) (*Version, *File, error) {
	versions, err := c.Versions(ctx, project)
	if err != nil {
		return nil, nil, err
	}

	version, file, err := SelectFile(versions, channel)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", project, err)
	}

	logger.InfoKV(ctx, "Resolved package version",
		"project", project, "channel", channel, "version", version.VersionNumber, "file", file.Filename)

	return version, file, nil
}

// SelectFile picks the first version on channel and its first file.
func SelectFile(versions []Version, channel string) (*Version, *File, error) {
	for i := range versions {
		version := &versions[i]
		if version.VersionType != channel {
			continue
		}

		if len(version.Files) == 0 {
			return nil, nil, fmt.Errorf("%s: %w", version.VersionNumber, ErrNoFiles)
		}

		return version, &version.Files[0], nil
	}

	return nil, nil, fmt.Errorf("%q: %w", channel, ErrNoMatchingVersion)
}
