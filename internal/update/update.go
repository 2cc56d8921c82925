// Package update checks GitHub releases for a newer texpak build.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

const (
	defaultBaseURL    = "https://api.github.com"
	defaultRepository = "meigma/texpak"
	maxResponseBytes  = 4 << 20
)

// ErrNoReleases is returned when the repository has no published release.
var ErrNoReleases = errors.New("update: no releases published")

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name        string
	DownloadURL string
	Size        int64
}

// Release describes a release newer than the running build.
type Release struct {
	Name      string
	Version   *semver.Version
	Published time.Time
	Notes     string
	URL       string
	// Asset is nil when no file matches the current platform.
	Asset *Asset
}

// Checker queries the releases of one repository.
type Checker struct {
	current    *semver.Version
	client     *nethttp.Client
	baseURL    string
	repository string
	goos       string
	goarch     string
	logger     *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *nethttp.Client) Option {
	return func(c *Checker) {
		c.client = client
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(c *Checker) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithRepository sets the "owner/name" repository to query.
func WithRepository(repo string) Option {
	return func(c *Checker) {
		c.repository = strings.Trim(repo, "/")
	}
}

// WithPlatform overrides the platform used for asset selection.
func WithPlatform(goos, goarch string) Option {
	return func(c *Checker) {
		c.goos = goos
		c.goarch = goarch
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = l
	}
}

// NewChecker creates a Checker for the build identified by current.
func NewChecker(current string, opts ...Option) (*Checker, error) {
	v, err := semver.NewVersion(current)
	if err != nil {
		return nil, fmt.Errorf("update: current version %q: %w", current, err)
	}
	c := &Checker{
		current:    v,
		client:     nethttp.DefaultClient,
		baseURL:    defaultBaseURL,
		repository: defaultRepository,
		goos:       runtime.GOOS,
		goarch:     runtime.GOARCH,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = nethttp.DefaultClient
	}
	return c, nil
}

func (c *Checker) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(slog.DiscardHandler)
}

// AssetPrefix returns the asset name prefix for the configured platform.
func (c *Checker) AssetPrefix() string {
	return fmt.Sprintf("texpak-%s-%s", c.goos, c.goarch)
}

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

type githubRelease struct {
	Name        string        `json:"name"`
	TagName     string        `json:"tag_name"`
	Body        string        `json:"body"`
	HTMLURL     string        `json:"html_url"`
	Draft       bool          `json:"draft"`
	Prerelease  bool          `json:"prerelease"`
	PublishedAt time.Time     `json:"published_at"`
	Assets      []githubAsset `json:"assets"`
}

// Check returns the newest published release when it is strictly newer than
// the running build, or nil otherwise.
func (c *Checker) Check(ctx context.Context) (*Release, error) {
	releases, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	var (
		latest    *githubRelease
		latestVer *semver.Version
	)
	for i := range releases {
		r := &releases[i]
		if r.Draft || r.Prerelease {
			continue
		}
		v, err := semver.NewVersion(r.TagName)
		if err != nil {
			c.log().Debug("skipping release with unparsable tag", "tag", r.TagName, "error", err)
			continue
		}
		if latestVer == nil || v.GreaterThan(latestVer) {
			latest, latestVer = r, v
		}
	}
	if latest == nil {
		return nil, ErrNoReleases
	}
	if !latestVer.GreaterThan(c.current) {
		c.log().Debug("no update available", "current", c.current.String(), "latest", latestVer.String())
		return nil, nil
	}

	rel := &Release{
		Name:      latest.Name,
		Version:   latestVer,
		Published: latest.PublishedAt,
		Notes:     latest.Body,
		URL:       latest.HTMLURL,
	}
	prefix := c.AssetPrefix()
	for _, a := range latest.Assets {
		if strings.HasPrefix(a.Name, prefix) {
			rel.Asset = &Asset{Name: a.Name, DownloadURL: a.BrowserDownloadURL, Size: a.Size}
			break
		}
	}
	c.log().Info("update available", "current", c.current.String(), "latest", latestVer.String())
	return rel, nil
}

func (c *Checker) fetch(ctx context.Context) ([]githubRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/releases", c.baseURL, c.repository)
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, url, nethttp.NoBody)
	if err != nil {
		return nil, fmt.Errorf("update: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "texpak/"+c.current.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("update: fetch releases: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, fmt.Errorf("update: fetch releases: %s", resp.Status)
	}

	var releases []githubRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&releases); err != nil {
		return nil, fmt.Errorf("update: decode releases: %w", err)
	}
	return releases, nil
}
